package main

import (
	"fmt"
	"strconv"
	"strings"

	"game-exploration-be/internal/entity"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSessionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect exploration sessions",
	}

	stateCmd := &cobra.Command{
		Use:   "state <project_id> <session_id>",
		Short: "Print a session's state and hypothesis ledger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectId, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			sessionId, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[1])
			}

			res, err := opts.client().SessionState(cmd.Context(), projectId, uint(sessionId))
			if err != nil {
				return err
			}
			selected := "-"
			if res.SelectedOptionId != nil {
				selected = *res.SelectedOptionId
			}
			fmt.Printf("%s %d\n", headerColor("Session"), res.SessionId)
			fmt.Printf("  state:      %s\n", successColor(res.State))
			fmt.Printf("  selected:   %s\n", selected)
			fmt.Printf("  iterations: %d\n", res.IterationCount)
			printLedger(res.HypothesisLedger)
			return nil
		},
	}

	activeCmd := &cobra.Command{
		Use:   "active <project_id>",
		Short: "Print the project's in-progress session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectId, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			res, err := opts.client().ActiveSession(cmd.Context(), projectId)
			if err != nil {
				return err
			}
			fmt.Printf("%s %d %s\n", headerColor("Session"), res.SessionId, successColor(res.State))
			fmt.Printf("  input: %s\n", res.UserInput)
			for _, o := range res.Options {
				mark := " "
				if o.IsRecommended {
					mark = "*"
				}
				fmt.Printf("  %s %s  %s (%s)\n", mark, o.OptionId, o.Title, dimColor(o.TemplateId))
			}
			return nil
		},
	}

	cmd.AddCommand(stateCmd, activeCmd)
	return cmd
}

func printLedger(l entity.HypothesisLedger) {
	section := func(name string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Printf("  %s\n", headerColor(name))
		fmt.Printf("    - %s\n", strings.Join(items, "\n    - "))
	}
	section("validated", l.Validated)
	section("rejected", l.Rejected)
	section("open questions", l.OpenQuestions)
}
