package main

import (
	"errors"
	"os"

	appendix "github.com/integral05/word-appendix-manager"
)

// Exit codes for appendixctl.
// Unix conventions: 0=success, 1=general, 2=usage.
const (
	ExitSuccess   = 0 // run committed
	ExitGeneral   = 1 // run failed or rolled back
	ExitUsage     = 2 // invalid flags, config, or input validation
	ExitIO        = 3 // document or PDF unreadable, save failed
	ExitCancelled = 4 // run cancelled by signal
)

// exitCodeFor maps an error to an exit code. Uses errors.Is, so wrapped
// sentinels are recognized.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, appendix.ErrRunCancelled) {
		return ExitCancelled
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, appendix.ErrUnreadablePDF) ||
		errors.Is(err, appendix.ErrDocumentUnavailable) ||
		errors.Is(err, appendix.ErrSaveFailed) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, appendix.ErrValidation) ||
		errors.Is(err, appendix.ErrInvalidScheme) ||
		errors.Is(err, appendix.ErrInvalidFailureMode) ||
		errors.Is(err, appendix.ErrInvalidDPI) ||
		errors.Is(err, appendix.ErrInvalidMaxPDFSize) ||
		errors.Is(err, appendix.ErrNoSources) ||
		errors.Is(err, ErrNoDocument) ||
		errors.Is(err, ErrNoPDFs) ||
		errors.Is(err, ErrNotPDF) ||
		errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrConfigParse) {
		return ExitUsage
	}

	return ExitGeneral
}
