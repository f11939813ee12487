// Command explorectl inspects a running exploration backend.
package main

import (
	"fmt"
	"os"

	"game-exploration-be/internal/apiclient"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	dimColor     = color.New(color.Faint).SprintFunc()
)

type options struct {
	apiURL  string
	natsURL string
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "explorectl",
		Short:         "Operator CLI for the game exploration backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("EXPLORE_API_URL", "http://localhost:3000"), "backend base URL")
	rootCmd.PersistentFlags().StringVar(&opts.natsURL, "nats", envOr("NATS_URL", "nats://localhost:4222"), "NATS server URL")

	rootCmd.AddCommand(
		newDebugCmd(opts),
		newMemoryCmd(opts),
		newSessionCmd(opts),
		newVersionsCmd(opts),
		newEventsCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor("Error:"), err)
		os.Exit(1)
	}
}

func (o *options) client() *apiclient.Client {
	return apiclient.New(o.apiURL)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
