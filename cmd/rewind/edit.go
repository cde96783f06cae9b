package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kode4food/rewind"
	"github.com/kode4food/rewind/internal/document"
)

type editFunc func(document.Document, []string) (document.Document, error)

var (
	appendCmd = newEditCmd(&cobra.Command{
		Use:   "append <text>...",
		Short: "Append a fragment to the document",
		Args:  cobra.MinimumNArgs(1),
	}, func(d document.Document, args []string) (document.Document, error) {
		return d.Append(strings.Join(args, " ")), nil
	})

	editCmd = newEditCmd(&cobra.Command{
		Use:   "edit <index> <text>...",
		Short: "Replace the text of a fragment",
		Args:  cobra.MinimumNArgs(2),
	}, func(d document.Document, args []string) (document.Document, error) {
		i, err := parseIndex(args[0])
		if err != nil {
			return d, err
		}
		return d.Edit(i, strings.Join(args[1:], " "))
	})

	removeCmd = newEditCmd(&cobra.Command{
		Use:   "remove <index>",
		Short: "Remove a fragment from the document",
		Args:  cobra.ExactArgs(1),
	}, func(d document.Document, args []string) (document.Document, error) {
		i, err := parseIndex(args[0])
		if err != nil {
			return d, err
		}
		return d.Remove(i)
	})

	titleCmd = newEditCmd(&cobra.Command{
		Use:   "title <title>...",
		Short: "Change the document title",
		Args:  cobra.MinimumNArgs(1),
	}, func(d document.Document, args []string) (document.Document, error) {
		return d.Retitle(strings.Join(args, " ")), nil
	})
)

func init() {
	for _, cmd := range []*cobra.Command{
		appendCmd, editCmd, removeCmd, titleCmd,
	} {
		cmd.Flags().Bool("no-record", false,
			"change the present without adding an undo step",
		)
		cmd.Flags().Bool("keep-future", false,
			"keep the redo entries when not recording",
		)
		cmd.Flags().Bool("json", false, "print the result as JSON")
		rootCmd.AddCommand(cmd)
	}
}

// newEditCmd completes cmd so that it applies fn to the present document.
// An edit that leaves the document unchanged records nothing
func newEditCmd(cmd *cobra.Command, fn editFunc) *cobra.Command {
	cmd.RunE = runSession(
		func(cmd *cobra.Command, args []string, s *session) error {
			opts, err := setOptions(cmd)
			if err != nil {
				return err
			}

			next, err := fn(s.history.Present(), args)
			if err != nil {
				return err
			}
			s.history.Set(next, opts...)

			asJSON, _ := cmd.Flags().GetBool("json")
			return printSummary(cmd.OutOrStdout(), s.summary(), asJSON)
		},
	)
	return cmd
}

func setOptions(cmd *cobra.Command) ([]rewind.SetOption, error) {
	var opts []rewind.SetOption
	noRecord, err := cmd.Flags().GetBool("no-record")
	if err != nil {
		return nil, err
	}
	if noRecord {
		opts = append(opts, rewind.WithoutRecord())
	}
	keepFuture, err := cmd.Flags().GetBool("keep-future")
	if err != nil {
		return nil, err
	}
	if keepFuture {
		opts = append(opts, rewind.KeepFuture())
	}
	return opts, nil
}

func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid fragment index %q: %w", arg, err)
	}
	return i, nil
}
