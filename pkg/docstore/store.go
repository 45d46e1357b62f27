// Package docstore owns the append-only document file and its timestamped
// backup copies.
package docstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// ErrIO marks failures reading or writing the document file or its backups.
// Callers treat these as fatal.
var ErrIO = errors.New("document i/o failed")

type Store struct {
	fs        afero.Fs
	path      string
	backupDir string
}

// Snapshot describes one backup copy.
type Snapshot struct {
	Path    string
	TakenAt time.Time
	Size    int64
}

func New(fs afero.Fs, path, backupDir string) *Store {
	return &Store{fs: fs, path: path, backupDir: backupDir}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) BackupDir() string {
	return s.backupDir
}

// Ensure creates the document file, its directory and the backup directory
// when they do not exist yet. Existing content is left alone.
func (s *Store) Ensure() error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create document directory: %w", ErrIO, err)
	}
	if err := s.fs.MkdirAll(s.backupDir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create backup directory: %w", ErrIO, err)
	}
	f, err := s.fs.OpenFile(s.path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: failed to create document file: %w", ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: failed to close document file: %w", ErrIO, err)
	}
	return nil
}

// ReadAll returns the full current document.
func (s *Store) ReadAll() (string, error) {
	raw, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read document: %w", ErrIO, err)
	}
	return string(raw), nil
}

// Append writes text to the end of the document.
func (s *Store) Append(text string) error {
	f, err := s.fs.OpenFile(s.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%w: failed to open document for append: %w", ErrIO, err)
	}
	if _, err := io.WriteString(f, text); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: failed to append to document: %w", ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: failed to close document: %w", ErrIO, err)
	}
	return nil
}

// SnapshotName is the backup file name for a copy taken at the given time.
func SnapshotName(at time.Time) string {
	return fmt.Sprintf("buffer_%d.txt", at.UnixMilli())
}

// Snapshot copies the document byte for byte into the backup directory.
// Nothing stops a concurrent Append from landing mid-copy.
func (s *Store) Snapshot(at time.Time) (Snapshot, error) {
	src, err := s.fs.Open(s.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: failed to open document for backup: %w", ErrIO, err)
	}
	defer src.Close()

	dstPath := filepath.Join(s.backupDir, SnapshotName(at))
	dst, err := s.fs.Create(dstPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: failed to create backup: %w", ErrIO, err)
	}
	n, err := io.Copy(dst, src)
	if err != nil {
		_ = dst.Close()
		return Snapshot{}, fmt.Errorf("%w: failed to copy document to backup: %w", ErrIO, err)
	}
	if err := dst.Close(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: failed to close backup: %w", ErrIO, err)
	}
	return Snapshot{Path: dstPath, TakenAt: at, Size: n}, nil
}
