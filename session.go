package appendix

import (
	"context"
	"errors"
	"fmt"

	"github.com/integral05/word-appendix-manager/internal/docx"
)

// Session is the sole mutator of one open target document. All operations
// are sequential, and each appendix is written in a fixed order: heading,
// page images, spacer. The heading style is a fixed contract so the table
// of contents refresh recognizes every appendix heading.
//
// A session holds no internal locking; the engine enforces one in-flight
// mutation at a time.
type Session interface {
	// InsertAppendixHeading writes a styled "Appendix <label>" heading.
	InsertAppendixHeading(ctx context.Context, label, title string) error

	// InsertPageImage writes one page image sized to fit the page while
	// preserving aspect ratio. The orientation hint selects portrait or
	// landscape sizing for that image's section.
	InsertPageImage(ctx context.Context, p Page) error

	// InsertSpacer ends an appendix section.
	InsertSpacer(ctx context.Context) error

	// RefreshTOC marks the table of contents for refresh. Idempotent:
	// calling it twice produces the same document as calling it once.
	RefreshTOC(ctx context.Context) error

	// Save writes the document back to its path.
	Save(ctx context.Context) error

	// Close releases the handle. Safe to call after a prior failure and
	// safe to call more than once.
	Close() error
}

// SessionOpener opens a Session on a target document. Fails with an error
// wrapping ErrDocumentUnavailable when the document is missing, locked, or
// an unsupported format.
type SessionOpener interface {
	Open(ref DocumentRef) (Session, error)
}

// docxOpener is the production opener, editing .docx files directly.
type docxOpener struct{}

// NewSessionOpener returns the production document adapter.
func NewSessionOpener() SessionOpener { return docxOpener{} }

func (docxOpener) Open(ref DocumentRef) (Session, error) {
	doc, err := docx.Open(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDocumentUnavailable, ref.Path, err)
	}
	return &docxSession{doc: doc}, nil
}

// docxSession adapts the internal docx editor to the Session interface.
// Every operation observes the context before touching the document.
type docxSession struct {
	doc *docx.Document
}

func (s *docxSession) InsertAppendixHeading(ctx context.Context, label, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.doc.InsertHeading(fmt.Sprintf("Appendix %s: %s", label, title)); err != nil {
		return fmt.Errorf("%w: heading %q: %v", ErrInsertionFailed, label, err)
	}
	return nil
}

func (s *docxSession) InsertPageImage(ctx context.Context, p Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img := docx.PageImage{
		PNG:       p.PNG,
		WidthPx:   p.WidthPx,
		HeightPx:  p.HeightPx,
		DPI:       p.DPI,
		Landscape: p.Landscape,
	}
	if err := s.doc.InsertPageImage(img); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertionFailed, err)
	}
	return nil
}

func (s *docxSession) InsertSpacer(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.doc.InsertSpacer(); err != nil {
		return fmt.Errorf("%w: spacer: %v", ErrInsertionFailed, err)
	}
	return nil
}

func (s *docxSession) RefreshTOC(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.doc.RefreshTOC(); err != nil {
		return fmt.Errorf("%w: refreshing TOC: %v", ErrInsertionFailed, err)
	}
	return nil
}

func (s *docxSession) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.doc.Save(); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

func (s *docxSession) Close() error {
	err := s.doc.Close()
	if err != nil && !errors.Is(err, docx.ErrClosed) {
		return err
	}
	return nil
}
