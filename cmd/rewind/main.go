// Package main is the entry point for the rewind CLI, which edits a
// fragment-list document with a persistent undo/redo history
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kode4food/rewind/internal/config"
)

// version is set at build time via ldflags
var version = "dev"

var (
	// cfg and logger are populated before any subcommand runs
	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:     "rewind",
	Short:   "Edit a document with a persistent undo/redo history",
	Version: version,
	Long: `rewind keeps a titled list of text fragments and records every edit in a
bounded undo/redo history. The history is written to the configured storage
backend after each change and restored on the next run, so undo and redo
work across invocations.

Backends: memory, file, bolt, badger, sqlite, redis, postgres, etcd.
Settings come from rewind.yaml, REWIND_* environment variables and flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		v := config.NewViper(path)
		for key, flag := range map[string]string{
			"document": "doc",
			"backend":  "backend",
			"codec":    "codec",
			"verbose":  "verbose",
		} {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return err
			}
		}

		loaded, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := newLogger(cfg.Verbose)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		logger = l
		logger.Debug("configuration loaded",
			zap.String("config_file", v.ConfigFileUsed()),
			zap.String("backend", cfg.Backend),
			zap.String("document", cfg.Document),
		)
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./rewind.yaml or ~/.rewind/rewind.yaml)")
	flags.String("doc", config.DefaultDocument, "name of the document to edit")
	flags.String("backend", config.BackendFile, "storage backend for the history")
	flags.String("codec", config.CodecJSON, "snapshot encoding: json, yaml or toml")
	flags.BoolP("verbose", "v", false, "log debug output to stderr")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return zc.Build()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
