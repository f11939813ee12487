package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newDebugCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Inspect the provider debug ring buffer",
	}

	var verbose bool
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Print the recorded provider calls, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().ProviderLog(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%s %d/%d entries\n\n", headerColor("Provider log"), len(res.Entries), res.Capacity)
			table := tablewriter.NewWriter(os.Stdout)
			table.SetAutoWrapText(false)
			table.SetHeader([]string{"#", "Label", "Attempt", "Duration", "Tokens", "Tools", "Error"})
			for _, e := range res.Entries {
				errText := "-"
				if e.Error != "" {
					errText = errorColor(e.Error)
				}
				table.Append([]string{
					strconv.FormatUint(e.Seq, 10),
					e.Label,
					strconv.Itoa(e.Attempt),
					fmt.Sprintf("%dms", e.DurationMS),
					strconv.Itoa(e.Usage.TotalTokens),
					strconv.Itoa(len(e.ToolCalls)),
					errText,
				})
			}
			table.Render()

			if verbose {
				for _, e := range res.Entries {
					fmt.Printf("\n%s #%d %s\n%s\n", headerColor("Response"), e.Seq, e.Label, dimColor(e.RawResponse))
				}
			}
			return nil
		},
	}
	logCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print raw responses")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the provider debug ring buffer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().ClearProviderLog(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(successColor("✓"), "provider log cleared")
			return nil
		},
	}

	cmd.AddCommand(logCmd, clearCmd)
	return cmd
}
