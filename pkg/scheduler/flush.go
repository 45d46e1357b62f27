package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/astromechza/ramblathon/pkg/deltabuf"
	"github.com/astromechza/ramblathon/pkg/docstore"
)

// Flusher moves pending deltas from the buffer into the document file.
type Flusher struct {
	Buffer   *deltabuf.Buffer
	Store    *docstore.Store
	Notifier Notifier
	Logger   *slog.Logger
}

// Tick drains the buffer and appends what it got. An empty drain touches no
// file. Deltas appended after the drain belong to the next tick. The returned
// error is an i/o failure and must be treated as fatal.
func (f *Flusher) Tick(ctx context.Context) (int, error) {
	log := loggerOrDefault(f.Logger)
	text := f.Buffer.DrainAndClear()
	if text == "" {
		log.Debug("delta buffer is empty")
		return 0, nil
	}
	if err := f.Store.Append(text); err != nil {
		return 0, fmt.Errorf("failed to flush %d bytes: %w", len(text), err)
	}
	log.Info("flushed delta buffer", "bytes", len(text), "path", f.Store.Path())
	if f.Notifier != nil {
		if err := f.Notifier.Flushed(ctx, text); err != nil {
			log.Warn("failed to notify flush", "err", err)
		}
	}
	return len(text), nil
}

// Run flushes once immediately and then every interval. On shutdown it does
// one last flush so that a clean stop keeps whatever is pending.
func (f *Flusher) Run(ctx context.Context, interval time.Duration) error {
	if err := every(ctx, interval, func(ctx context.Context) error {
		_, err := f.Tick(ctx)
		return err
	}); err != nil {
		return err
	}
	_, err := f.Tick(context.WithoutCancel(ctx))
	return err
}
