package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ErrUnusableSnapshot is returned by import when the input cannot be
// restored
var ErrUnusableSnapshot = errors.New("snapshot is malformed or from another version")

var (
	exportCmd = &cobra.Command{
		Use:   "export [file]",
		Short: "Write the history snapshot to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: runSession(
			func(cmd *cobra.Command, args []string, s *session) error {
				data, err := s.history.Export()
				if err != nil {
					return err
				}
				if len(args) == 0 {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), data)
					return err
				}
				return os.WriteFile(args[0], []byte(data), 0o644)
			},
		),
	}

	importCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the history with a snapshot from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: runSession(
			func(cmd *cobra.Command, args []string, s *session) error {
				data, err := readInput(cmd, args)
				if err != nil {
					return err
				}
				if !s.history.LoadRaw(string(data)) {
					return ErrUnusableSnapshot
				}
				return printSummary(cmd.OutOrStdout(), s.summary(), false)
			},
		),
	}

	forgetCmd = &cobra.Command{
		Use:   "forget",
		Short: "Delete the stored history for the document",
		Args:  cobra.NoArgs,
		RunE: runSession(
			func(cmd *cobra.Command, _ []string, s *session) error {
				p := s.history.Persister()
				if err := p.Remove(cmd.Context()); err != nil {
					return fmt.Errorf("remove %s: %w", p.Key(), err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", cfg.Document)
				return err
			},
		),
	}
)

func init() {
	rootCmd.AddCommand(exportCmd, importCmd, forgetCmd)
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
