package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newVersionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <project_id>",
		Short: "List a project's file versions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectId, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			versions, err := opts.client().Versions(cmd.Context(), projectId)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Println(dimColor("No versions yet."))
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetAutoWrapText(false)
			table.SetHeader([]string{"ID", "Source", "Note", "Created"})
			for i, v := range versions {
				id := strconv.FormatUint(uint64(v.Id), 10)
				if i == 0 {
					id = successColor(id + " (current)")
				}
				table.Append([]string{id, v.Source, v.Note, v.CreatedAt.Local().Format("2006-01-02 15:04")})
			}
			table.Render()
			return nil
		},
	}
}
