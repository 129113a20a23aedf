// Package backup snapshots a document file before mutation and restores it
// after a failed run. Snapshots are plain copies under a recognizable
// naming convention carrying the run ID and a timestamp.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Snapshot file name layout: <stem>_backup_<timestamp>_<runid><ext>.
const (
	nameMarker    = "_backup_"
	timestampFmt  = "20060102_150405"
	snapshotPerms = 0o600
)

var ErrNoDocument = errors.New("backup: no document at source path")

// Record identifies one snapshot.
type Record struct {
	Path       string
	SourcePath string
	RunID      string
	CreatedAt  time.Time
}

// Manager writes snapshots under Dir. An empty Dir places them alongside
// the source document.
type Manager struct {
	dir string
	now func() time.Time
}

// NewManager returns a Manager writing snapshots under dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, now: time.Now}
}

// Snapshot copies the document to the backup location. The copy is fully
// written and synced before the record is returned; a half-written
// snapshot is removed.
func (m *Manager) Snapshot(ctx context.Context, sourcePath, runID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrNoDocument, err)
	}

	dir := m.dir
	if dir == "" {
		dir = filepath.Dir(sourcePath)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Record{}, fmt.Errorf("creating backup dir: %w", err)
	}

	createdAt := m.now()
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := fmt.Sprintf("%s%s%s_%s%s", stem, nameMarker, createdAt.Format(timestampFmt), runID, ext)
	dest := filepath.Join(dir, name)

	if err := copyFile(sourcePath, dest); err != nil {
		_ = os.Remove(dest)
		return Record{}, fmt.Errorf("writing snapshot: %w", err)
	}
	return Record{Path: dest, SourcePath: sourcePath, RunID: runID, CreatedAt: createdAt}, nil
}

// Restore copies the snapshot back over the source path. It operates on
// paths only and needs no open document handle. The write goes through a
// temp file in the same directory and a rename, so a failed restore never
// truncates the document.
func (m *Manager) Restore(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(rec.Path); err != nil {
		return fmt.Errorf("snapshot missing: %w", err)
	}

	tmp := rec.SourcePath + ".restore.tmp"
	if err := copyFile(rec.Path, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("staging restore: %w", err)
	}
	if err := os.Rename(tmp, rec.SourcePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing document: %w", err)
	}
	return nil
}

// Prune deletes the oldest snapshots of the given document beyond keep.
// Retention is a policy decision, not a correctness invariant; callers run
// it after successful runs. Returns the number of snapshots removed.
func (m *Manager) Prune(sourcePath string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	dir := m.dir
	if dir == "" {
		dir = filepath.Dir(sourcePath)
	}

	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	pattern := filepath.Join(dir, stem+nameMarker+"*"+ext)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, fmt.Errorf("listing snapshots: %w", err)
	}
	if len(matches) <= keep {
		return 0, nil
	}

	// Timestamps embedded in the names sort oldest-first.
	sort.Strings(matches)
	removed := 0
	var errs []error
	for _, path := range matches[:len(matches)-keep] {
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src) // #nosec G304 -- snapshot paths come from the caller
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, snapshotPerms) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
