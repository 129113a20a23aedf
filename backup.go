package appendix

import (
	"context"
	"fmt"
	"time"

	"github.com/integral05/word-appendix-manager/internal/backup"
)

// BackupRecord identifies one pre-run snapshot of the target document.
type BackupRecord struct {
	Path       string // snapshot location
	SourcePath string // document the snapshot was taken from
	RunID      string
	CreatedAt  time.Time
}

// BackupManager snapshots the document before mutation and restores it if
// a run fails irrecoverably. Restore operates on the file path, independent
// of any open session, so it can be attempted even when the document handle
// is in an unknown state.
type BackupManager interface {
	Snapshot(ctx context.Context, documentPath, runID string) (BackupRecord, error)
	Restore(ctx context.Context, rec BackupRecord) error
}

// fileBackupManager adapts the internal file-copy manager.
type fileBackupManager struct {
	m *backup.Manager
}

// NewBackupManager returns the production backup manager writing snapshots
// under dir. An empty dir stores snapshots alongside the document.
func NewBackupManager(dir string) BackupManager {
	return &fileBackupManager{m: backup.NewManager(dir)}
}

func (f *fileBackupManager) Snapshot(ctx context.Context, documentPath, runID string) (BackupRecord, error) {
	rec, err := f.m.Snapshot(ctx, documentPath, runID)
	if err != nil {
		return BackupRecord{}, fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}
	return BackupRecord{
		Path:       rec.Path,
		SourcePath: rec.SourcePath,
		RunID:      rec.RunID,
		CreatedAt:  rec.CreatedAt,
	}, nil
}

func (f *fileBackupManager) Restore(ctx context.Context, rec BackupRecord) error {
	r := backup.Record{
		Path:       rec.Path,
		SourcePath: rec.SourcePath,
		RunID:      rec.RunID,
		CreatedAt:  rec.CreatedAt,
	}
	if err := f.m.Restore(ctx, r); err != nil {
		return fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}
	return nil
}
