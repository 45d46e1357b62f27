// Package scheduler runs the periodic flush of pending deltas into the
// document file and the periodic backup of that file.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/astromechza/ramblathon/pkg/docstore"
)

const (
	DefaultFlushInterval  = 30 * time.Second
	DefaultBackupInterval = time.Hour
)

// Notifier is told about every chunk that was written to the document.
type Notifier interface {
	Flushed(ctx context.Context, text string) error
}

// Recorder is told about every backup that was taken.
type Recorder interface {
	Record(ctx context.Context, snap docstore.Snapshot) error
}

// every calls tick straight away and then once per interval until tick fails
// or ctx is done.
func every(ctx context.Context, interval time.Duration, tick func(context.Context) error) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := tick(ctx); err != nil {
			return err
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
