package appendix

import "errors"

// Sentinel errors for engine operations.
var (
	// ErrValidation reports one or more input violations. The run result's
	// Errors slice carries the full collected list, not just the first.
	ErrValidation = errors.New("input validation failed")

	// ErrBackupFailed means the pre-run snapshot could not be created.
	// Mutation without a safety copy is disallowed, so the run never starts.
	ErrBackupFailed = errors.New("backup creation failed")

	// ErrUnreadablePDF means a source PDF could not be opened or parsed.
	ErrUnreadablePDF = errors.New("unreadable PDF")

	// ErrRenderFailed means a page failed to rasterize.
	ErrRenderFailed = errors.New("page render failed")

	// ErrInsertionFailed means a heading or page image could not be written
	// into the document. The remaining pages of that appendix are skipped
	// and the run halts.
	ErrInsertionFailed = errors.New("document insertion failed")

	// ErrSaveFailed means the mutated document could not be written back.
	ErrSaveFailed = errors.New("document save failed")

	// ErrRestoreFailed means rollback from the backup snapshot failed.
	// This is the one truly unrecoverable case: the backup file still
	// exists on disk and manual recovery from it is required.
	ErrRestoreFailed = errors.New("restore from backup failed")

	// ErrDocumentUnavailable means the target document does not exist, is
	// exclusively locked, or is not a supported format.
	ErrDocumentUnavailable = errors.New("document unavailable")

	// ErrDocumentBusy means another run already holds a session for the
	// same target document. Runs are never queued.
	ErrDocumentBusy = errors.New("document busy with another run")

	// ErrRunCancelled means cancellation was observed at a checked
	// boundary. Handled like a failure under the active failure mode.
	ErrRunCancelled = errors.New("run cancelled")
)

// Configuration validation errors.
var (
	ErrInvalidScheme      = errors.New("invalid numbering scheme")
	ErrInvalidFailureMode = errors.New("invalid failure mode")
	ErrInvalidDPI         = errors.New("invalid image resolution")
	ErrInvalidMaxPDFSize  = errors.New("invalid max PDF size")
	ErrNoSources          = errors.New("no PDF sources given")
)
