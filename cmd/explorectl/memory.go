package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newMemoryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Browse exploration memory notes",
	}

	listCmd := &cobra.Command{
		Use:   "list <project_id>",
		Short: "List a project's memory notes, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectId, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			notes, err := opts.client().MemoryNotes(cmd.Context(), projectId)
			if err != nil {
				return err
			}
			if len(notes) == 0 {
				fmt.Println(dimColor("No memories yet."))
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetAutoWrapText(false)
			table.SetHeader([]string{"ID", "Kind", "Title", "Confidence", "Tags", "Created"})
			for _, n := range notes {
				table.Append([]string{
					strconv.FormatUint(uint64(n.Id), 10),
					n.Kind,
					n.Content.Title,
					strconv.FormatFloat(n.Confidence, 'f', 2, 64),
					strings.Join(n.Tags, " "),
					n.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.AddCommand(listCmd)
	return cmd
}
