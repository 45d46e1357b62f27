package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/astromechza/ramblathon/pkg/docstore"
)

// Backup copies the document file into a timestamped snapshot. It does not
// coordinate with the Flusher, so a copy can observe a half-finished append.
type Backup struct {
	Store    *docstore.Store
	Recorder Recorder
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Tick takes one snapshot. The returned error is an i/o failure and must be
// treated as fatal.
func (b *Backup) Tick(ctx context.Context) (docstore.Snapshot, error) {
	log := loggerOrDefault(b.Logger)
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	snap, err := b.Store.Snapshot(now())
	if err != nil {
		return docstore.Snapshot{}, fmt.Errorf("failed to back up document: %w", err)
	}
	log.Info("backed up document", "path", snap.Path, "bytes", snap.Size)
	if b.Recorder != nil {
		if err := b.Recorder.Record(ctx, snap); err != nil {
			log.Warn("failed to record backup", "path", snap.Path, "err", err)
		}
	}
	return snap, nil
}

// Run snapshots once immediately and then every interval.
func (b *Backup) Run(ctx context.Context, interval time.Duration) error {
	return every(ctx, interval, func(ctx context.Context) error {
		_, err := b.Tick(ctx)
		return err
	})
}
