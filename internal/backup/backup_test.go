package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func managerAt(t *testing.T, dir string, now time.Time) *Manager {
	t.Helper()
	m := NewManager(dir)
	m.now = func() time.Time { return now }
	return m
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("copies into backup dir with recognizable name", func(t *testing.T) {
		t.Parallel()
		srcDir := t.TempDir()
		bakDir := filepath.Join(t.TempDir(), "backups")
		src := writeDoc(t, srcDir, "report.docx", "original content")

		now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		m := managerAt(t, bakDir, now)

		rec, err := m.Snapshot(context.Background(), src, "deadbeef01234567")
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		wantName := "report_backup_20260314_092653_deadbeef01234567.docx"
		if filepath.Base(rec.Path) != wantName {
			t.Errorf("snapshot name = %s, want %s", filepath.Base(rec.Path), wantName)
		}
		if filepath.Dir(rec.Path) != bakDir {
			t.Errorf("snapshot dir = %s, want %s", filepath.Dir(rec.Path), bakDir)
		}
		data, err := os.ReadFile(rec.Path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "original content" {
			t.Errorf("snapshot content = %q", data)
		}
		if rec.SourcePath != src || rec.RunID != "deadbeef01234567" || !rec.CreatedAt.Equal(now) {
			t.Errorf("record fields wrong: %+v", rec)
		}
	})

	t.Run("empty dir places snapshot alongside the document", func(t *testing.T) {
		t.Parallel()
		srcDir := t.TempDir()
		src := writeDoc(t, srcDir, "report.docx", "x")

		m := managerAt(t, "", time.Now())
		rec, err := m.Snapshot(context.Background(), src, "cafe")
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Dir(rec.Path) != srcDir {
			t.Errorf("snapshot dir = %s, want %s", filepath.Dir(rec.Path), srcDir)
		}
	})

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()
		m := NewManager(t.TempDir())
		_, err := m.Snapshot(context.Background(), filepath.Join(t.TempDir(), "gone.docx"), "cafe")
		if !errors.Is(err, ErrNoDocument) {
			t.Fatalf("Snapshot = %v, want ErrNoDocument", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		src := writeDoc(t, t.TempDir(), "report.docx", "x")
		if _, err := NewManager("").Snapshot(ctx, src, "cafe"); !errors.Is(err, context.Canceled) {
			t.Fatalf("Snapshot = %v, want context.Canceled", err)
		}
	})
}

func TestRestore(t *testing.T) {
	t.Parallel()

	t.Run("restores snapshot bytes over the source", func(t *testing.T) {
		t.Parallel()
		src := writeDoc(t, t.TempDir(), "report.docx", "original")
		m := managerAt(t, t.TempDir(), time.Now())

		rec, err := m.Snapshot(context.Background(), src, "cafe")
		if err != nil {
			t.Fatal(err)
		}

		// Simulate a half-finished mutation.
		if err := os.WriteFile(src, []byte("mangled partial state"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := m.Restore(context.Background(), rec); err != nil {
			t.Fatalf("Restore: %v", err)
		}
		data, err := os.ReadFile(src)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "original" {
			t.Errorf("restored content = %q, want original bytes", data)
		}
	})

	t.Run("missing snapshot", func(t *testing.T) {
		t.Parallel()
		m := NewManager("")
		err := m.Restore(context.Background(), Record{
			Path:       filepath.Join(t.TempDir(), "gone.docx"),
			SourcePath: filepath.Join(t.TempDir(), "report.docx"),
		})
		if err == nil {
			t.Fatal("Restore of missing snapshot succeeded")
		}
	})
}

func TestPrune(t *testing.T) {
	t.Parallel()

	t.Run("keeps the newest snapshots", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		src := writeDoc(t, t.TempDir(), "report.docx", "x")

		base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		var newest []string
		for i := 0; i < 5; i++ {
			m := managerAt(t, dir, base.Add(time.Duration(i)*time.Minute))
			rec, err := m.Snapshot(context.Background(), src, "cafe")
			if err != nil {
				t.Fatal(err)
			}
			if i >= 3 {
				newest = append(newest, rec.Path)
			}
		}

		removed, err := NewManager(dir).Prune(src, 2)
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		if removed != 3 {
			t.Errorf("removed = %d, want 3", removed)
		}
		for _, path := range newest {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("newest snapshot pruned: %s", path)
			}
		}
		left, err := filepath.Glob(filepath.Join(dir, "report_backup_*"))
		if err != nil {
			t.Fatal(err)
		}
		if len(left) != 2 {
			t.Errorf("snapshots left = %d, want 2", len(left))
		}
	})

	t.Run("under the limit removes nothing", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		src := writeDoc(t, t.TempDir(), "report.docx", "x")
		if _, err := managerAt(t, dir, time.Now()).Snapshot(context.Background(), src, "cafe"); err != nil {
			t.Fatal(err)
		}

		removed, err := NewManager(dir).Prune(src, 5)
		if err != nil {
			t.Fatal(err)
		}
		if removed != 0 {
			t.Errorf("removed = %d, want 0", removed)
		}
	})

	t.Run("other documents' snapshots untouched", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		srcDir := t.TempDir()
		report := writeDoc(t, srcDir, "report.docx", "x")
		thesis := writeDoc(t, srcDir, "thesis.docx", "y")

		base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			m := managerAt(t, dir, base.Add(time.Duration(i)*time.Minute))
			if _, err := m.Snapshot(context.Background(), report, "cafe"); err != nil {
				t.Fatal(err)
			}
			if _, err := m.Snapshot(context.Background(), thesis, "cafe"); err != nil {
				t.Fatal(err)
			}
		}

		if _, err := NewManager(dir).Prune(report, 0); err != nil {
			t.Fatal(err)
		}
		left, err := filepath.Glob(filepath.Join(dir, "thesis_backup_*"))
		if err != nil {
			t.Fatal(err)
		}
		if len(left) != 3 {
			t.Errorf("thesis snapshots left = %d, want 3", len(left))
		}
		if left, _ := filepath.Glob(filepath.Join(dir, "report_backup_*")); len(left) != 0 {
			t.Errorf("report snapshots left = %v, want none", left)
		}
	})
}

func TestSnapshotNameSortsChronologically(t *testing.T) {
	t.Parallel()

	early := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	late := early.Add(48 * time.Hour)
	src := writeDoc(t, t.TempDir(), "report.docx", "x")
	dir := t.TempDir()

	recEarly, err := managerAt(t, dir, early).Snapshot(context.Background(), src, "ffffffffffffffff")
	if err != nil {
		t.Fatal(err)
	}
	recLate, err := managerAt(t, dir, late).Snapshot(context.Background(), src, "0000000000000000")
	if err != nil {
		t.Fatal(err)
	}

	// Lexical order must follow creation order regardless of run IDs.
	if !(strings.Compare(filepath.Base(recEarly.Path), filepath.Base(recLate.Path)) < 0) {
		t.Errorf("lexical order broken: %s !< %s",
			filepath.Base(recEarly.Path), filepath.Base(recLate.Path))
	}
}
