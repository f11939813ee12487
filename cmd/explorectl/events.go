package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"game-exploration-be/pkg/events"
	pktNats "game-exploration-be/pkg/nats"

	"github.com/spf13/cobra"
)

func newEventsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow exploration domain events on NATS",
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print exploration events as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := pktNats.NewSubscriber(opts.natsURL)
			if err != nil {
				return fmt.Errorf("connecting NATS: %w", err)
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = sub.Subscribe(ctx, pktNats.AllSubjects, "", func(ctx context.Context, event events.Event) error {
				data, _ := json.Marshal(event.Payload())
				fmt.Printf("%s %s %s\n",
					dimColor(event.Timestamp().Local().Format("15:04:05")),
					headerColor(event.EventType()),
					string(data),
				)
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Println(dimColor("watching exploration events, ctrl+c to stop"))
			<-ctx.Done()
			return nil
		},
	}

	cmd.AddCommand(watchCmd)
	return cmd
}
