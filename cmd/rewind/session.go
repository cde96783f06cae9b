package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kode4food/rewind"
	"github.com/kode4food/rewind/internal/document"
)

type (
	// session holds the open history for the selected document for the
	// duration of a single command
	session struct {
		registry *rewind.Registry[document.Document]
		history  *rewind.Controller[document.Document]
		close    func() error
	}

	// summary is what show prints for a history
	summary struct {
		Document string            `json:"document"`
		Present  document.Document `json:"present"`
		Past     int               `json:"past"`
		Future   int               `json:"future"`
		CanUndo  bool              `json:"can_undo"`
		CanRedo  bool              `json:"can_redo"`
	}
)

func openSession(ctx context.Context) (*session, error) {
	storage, closeStorage, err := cfg.OpenStorage(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Backend, err)
	}

	reg := rewind.NewStorageRegistry(1, storage,
		func() document.Document { return document.New(cfg.Document) },
		cfg.History,
		rewind.WithEquality[document.Document](document.Equal),
		rewind.WithLogger[document.Document](logger),
		rewind.WithCodec[document.Document](cfg.SnapshotCodec()),
	)
	history := reg.Open(cfg.Document)
	if err := history.WaitHydrated(ctx); err != nil {
		_ = reg.Close()
		_ = closeStorage()
		return nil, fmt.Errorf("restore history: %w", err)
	}

	logger.Debug("history restored",
		zap.String("key", history.Persister().Key()),
		zap.Bool("can_undo", history.CanUndo()),
		zap.Bool("can_redo", history.CanRedo()),
	)
	return &session{
		registry: reg,
		history:  history,
		close:    closeStorage,
	}, nil
}

// Close flushes pending writes and releases the storage backend
func (s *session) Close() error {
	return errors.Join(s.registry.Close(), s.close())
}

// runSession wraps a command body so that it runs against an open session
// which is always closed afterward
func runSession(
	fn func(*cobra.Command, []string, *session) error,
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, s.Close())
		}()
		return fn(cmd, args, s)
	}
}

func (s *session) summary() summary {
	st := s.history.State()
	return summary{
		Document: cfg.Document,
		Present:  st.Present,
		Past:     len(st.Past),
		Future:   len(st.Future),
		CanUndo:  st.CanUndo(),
		CanRedo:  st.CanRedo(),
	}
}

func printSummary(w io.Writer, s summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	if _, err := io.WriteString(w, s.Present.Markdown()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n[%s] undo: %d, redo: %d\n",
		s.Document, s.Past, s.Future,
	)
	return err
}
