// Package catalog keeps an index of taken backups in a sqlite database so
// they can be listed without scanning the backup directory.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/astromechza/ramblathon/pkg/docstore"
)

type Catalog struct {
	database *sql.DB
}

// Entry is one recorded backup.
type Entry struct {
	ID      string
	TakenAt time.Time
	Path    string
	Size    int64
}

func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	c := &Catalog{database: db}
	if err := c.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) init() error {
	if _, err := c.database.Exec(
		`CREATE TABLE IF NOT EXISTS snapshots (
		id text not null primary key,
		taken_at_ms integer not null,
		path text not null,
		size integer not null
		)`,
	); err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return nil
}

// Record stores a backup in the index.
func (c *Catalog) Record(ctx context.Context, snap docstore.Snapshot) error {
	if _, err := c.database.ExecContext(
		ctx,
		`INSERT INTO snapshots (id, taken_at_ms, path, size) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), snap.TakenAt.UnixMilli(), snap.Path, snap.Size,
	); err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}
	return nil
}

// List returns every recorded backup, newest first.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.database.QueryContext(ctx, `SELECT id, taken_at_ms, path, size FROM snapshots ORDER BY taken_at_ms DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "err", err)
		}
	}(rows)

	var out []Entry
	for rows.Next() {
		var e Entry
		var takenAt int64
		if err := rows.Scan(&e.ID, &takenAt, &e.Path, &e.Size); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		e.TakenAt = time.UnixMilli(takenAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate: %w", err)
	}
	return out, nil
}

func (c *Catalog) Close() error {
	return c.database.Close()
}
