package main

import (
	"github.com/spf13/cobra"

	"github.com/kode4food/rewind"
	"github.com/kode4food/rewind/internal/document"
)

type historyFunc func(
	*rewind.Controller[document.Document],
) *rewind.State[document.Document]

var (
	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the present document and its history depth",
		Args:  cobra.NoArgs,
		RunE: runSession(
			func(cmd *cobra.Command, _ []string, s *session) error {
				asJSON, _ := cmd.Flags().GetBool("json")
				return printSummary(cmd.OutOrStdout(), s.summary(), asJSON)
			},
		),
	}

	commitCmd = newHistoryCmd("commit",
		"Record the present as an undo step",
		(*rewind.Controller[document.Document]).Commit,
	)

	undoCmd = newHistoryCmd("undo",
		"Step back to the previous document",
		(*rewind.Controller[document.Document]).Undo,
	)

	redoCmd = newHistoryCmd("redo",
		"Step forward to the next document",
		(*rewind.Controller[document.Document]).Redo,
	)

	resetCmd = newHistoryCmd("reset",
		"Discard the history and return to an empty document",
		(*rewind.Controller[document.Document]).Reset,
	)

	clearCmd = newHistoryCmd("clear",
		"Discard the history but keep the present document",
		(*rewind.Controller[document.Document]).Clear,
	)
)

func init() {
	for _, cmd := range []*cobra.Command{
		showCmd, commitCmd, undoCmd, redoCmd, resetCmd, clearCmd,
	} {
		cmd.Flags().Bool("json", false, "print the result as JSON")
		rootCmd.AddCommand(cmd)
	}
}

func newHistoryCmd(use, short string, fn historyFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: runSession(
			func(cmd *cobra.Command, _ []string, s *session) error {
				fn(s.history)
				asJSON, _ := cmd.Flags().GetBool("json")
				return printSummary(cmd.OutOrStdout(), s.summary(), asJSON)
			},
		),
	}
}
