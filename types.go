package appendix

import (
	"fmt"
	"strings"
)

// Numbering scheme constants.
const (
	SchemeAlphabetical = "alphabetical"
	SchemeNumeric      = "numeric"
	SchemeRoman        = "roman"
)

// Failure mode constants.
const (
	// ModeStrict guarantees all-or-nothing mutation: any failure restores
	// the pre-run snapshot.
	ModeStrict = "strict"

	// ModeBestEffort keeps and saves whatever was inserted before the
	// failure point.
	ModeBestEffort = "best-effort"
)

// Image resolution bounds in DPI.
const (
	MinDPI     = 36
	MaxDPI     = 1200
	DefaultDPI = 150
)

// DefaultMaxPDFSizeMB caps source PDF size. Oversized files are a
// validation error before any mutation.
const DefaultMaxPDFSizeMB = 200

// maxEntriesPerRun caps the number of sources in one run.
const maxEntriesPerRun = 50

// RunConfig holds per-run configuration for the engine.
type RunConfig struct {
	NumberingScheme string // "alphabetical", "numeric", "roman"
	FailureMode     string // "strict", "best-effort"
	ImageDPI        int    // rasterization resolution
	AutoBackup      bool   // snapshot before mutation (disabling also disables rollback)
	BackupDir       string // empty = alongside the target document
	MaxPDFSizeMB    int    // per-source size limit
	RenderWorkers   int    // parallel rasterization limit; 0 = auto
}

// DefaultRunConfig returns the configuration used when nothing is specified.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		NumberingScheme: SchemeAlphabetical,
		FailureMode:     ModeStrict,
		ImageDPI:        DefaultDPI,
		AutoBackup:      true,
		MaxPDFSizeMB:    DefaultMaxPDFSizeMB,
	}
}

// Validate checks that the configuration is usable.
// Uses case-insensitive comparison and does not mutate.
func (c RunConfig) Validate() error {
	if !isValidScheme(c.NumberingScheme) {
		return fmt.Errorf("%w: %q", ErrInvalidScheme, c.NumberingScheme)
	}
	if !isValidFailureMode(c.FailureMode) {
		return fmt.Errorf("%w: %q", ErrInvalidFailureMode, c.FailureMode)
	}
	if c.ImageDPI < MinDPI || c.ImageDPI > MaxDPI {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidDPI, c.ImageDPI, MinDPI, MaxDPI)
	}
	if c.MaxPDFSizeMB <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxPDFSize, c.MaxPDFSizeMB)
	}
	return nil
}

func isValidScheme(s string) bool {
	switch strings.ToLower(s) {
	case SchemeAlphabetical, SchemeNumeric, SchemeRoman:
		return true
	}
	return false
}

func isValidFailureMode(m string) bool {
	switch strings.ToLower(m) {
	case ModeStrict, ModeBestEffort:
		return true
	}
	return false
}

// Source names one PDF to append.
type Source struct {
	Path          string // absolute path to the PDF (required)
	Title         string // heading title; empty = file name stem
	LabelOverride string // pins this entry's label; excluded from auto-numbering
}

// DocumentRef identifies the target document.
type DocumentRef struct {
	Path string // path to the .docx document
}

// ProcessingState tracks one entry through a run. Progression is one-way
// except StateFailed, which is terminal for the entry.
type ProcessingState string

// Processing states.
const (
	StatePending     ProcessingState = "pending"
	StateRasterizing ProcessingState = "rasterizing"
	StateInserting   ProcessingState = "inserting"
	StateDone        ProcessingState = "done"
	StateFailed      ProcessingState = "failed"
)

// Page is one rasterized PDF page ready for insertion.
type Page struct {
	PNG       []byte
	WidthPx   int
	HeightPx  int
	DPI       int
	Landscape bool
}

// Progress is emitted after every inserted page and at entry boundaries.
// It is the only externally observable mid-run state.
type Progress struct {
	CompletedPages   int
	TotalPages       int
	CompletedEntries int
	TotalEntries     int
	CurrentLabel     string
}

// ProgressFunc receives progress events. Called synchronously from the run
// goroutine; implementations should return quickly.
type ProgressFunc func(Progress)

// Status is the terminal state of a run.
type Status string

// Run statuses.
const (
	// StatusCommitted means all appendices were inserted and saved.
	StatusCommitted Status = "committed"

	// StatusRolledBack means a failure occurred and the pre-run snapshot
	// was restored; the document equals its original.
	StatusRolledBack Status = "rolled-back"

	// StatusFailed means the run did not commit and the document was left
	// in the explicitly reported state (untouched, or partial under
	// best-effort mode).
	StatusFailed Status = "failed"
)

// Stage names used in error details.
const (
	StageValidating = "validating"
	StageBackingUp  = "backing-up"
	StageRendering  = "rendering"
	StageInserting  = "inserting"
	StageFinalizing = "finalizing"
	StageRollback   = "rollback"
)

// ErrorDetail describes one failure with enough context to be reported as
// part of a structured result.
type ErrorDetail struct {
	Stage     string // pipeline stage, see Stage constants
	Path      string // source PDF or document path, if applicable
	Label     string // assigned label, if known
	PageIndex int    // zero-based page index; -1 when not page-scoped
	Err       error  // underlying cause, wraps a sentinel
}

func (d ErrorDetail) Error() string {
	var b strings.Builder
	b.WriteString(d.Stage)
	if d.Label != "" {
		fmt.Fprintf(&b, " [appendix %s]", d.Label)
	}
	if d.Path != "" {
		fmt.Fprintf(&b, " %s", d.Path)
	}
	if d.PageIndex >= 0 {
		fmt.Fprintf(&b, " page %d", d.PageIndex)
	}
	fmt.Fprintf(&b, ": %v", d.Err)
	return b.String()
}

func (d ErrorDetail) Unwrap() error { return d.Err }

// EntryReport summarizes one entry in the result, in rank order.
type EntryReport struct {
	Path  string
	Label string
	Title string
	Pages int
	State ProcessingState
}

// Result is the authoritative record of a run. Any run that is not
// Committed leaves the document either equal to its pre-run original
// (RolledBack) or in the partial state the per-entry report describes.
type Result struct {
	Status     Status
	Entries    []EntryReport              // rank order
	PerEntry   map[string]ProcessingState // source path -> state
	BackupPath string                     // empty if no backup was taken
	Errors     []ErrorDetail              // ordered; empty on commit

	// ManualRecovery is set when restore itself failed and the document
	// must be recovered by hand from BackupPath.
	ManualRecovery bool
}
