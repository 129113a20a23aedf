package appendix

import (
	"context"
	"fmt"

	"github.com/integral05/word-appendix-manager/internal/pdfraster"
)

// Rasterizer opens PDFs and renders their pages to images. Stateless per
// call; implementations must be safe for concurrent Open calls on
// independent files.
type Rasterizer interface {
	// Open parses the PDF and returns a handle. Fails with an error
	// wrapping ErrUnreadablePDF if the file cannot be read or parsed.
	Open(ctx context.Context, path string) (PDFHandle, error)

	// Probe collects validation info without keeping the file open.
	Probe(path string) (PDFInfo, error)
}

// PDFHandle is one open PDF. Close releases all temporary decode state,
// including after a failed render.
type PDFHandle interface {
	PageCount() int

	// RenderPage rasterizes the zero-based page at the given resolution.
	// Fails with an error wrapping ErrRenderFailed on a corrupt page.
	RenderPage(ctx context.Context, index, dpi int) (Page, error)

	Close() error
}

// PDFInfo is the validation-time view of a source PDF.
type PDFInfo struct {
	PageCount int
	SizeBytes int64
	Warnings  []string // non-fatal findings (large file, many pages)
}

// popplerRasterizer adapts the internal pdfcpu+pdftoppm rasterizer to the
// public Rasterizer interface, translating errors to package sentinels.
type popplerRasterizer struct {
	r *pdfraster.Rasterizer
}

// NewRasterizer returns the production rasterizer: pdfcpu for structure,
// the poppler pdftoppm tool for page rendering.
func NewRasterizer() Rasterizer {
	return &popplerRasterizer{r: pdfraster.New()}
}

func (p *popplerRasterizer) Open(ctx context.Context, path string) (PDFHandle, error) {
	h, err := p.r.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePDF, path, err)
	}
	return &popplerHandle{h: h}, nil
}

func (p *popplerRasterizer) Probe(path string) (PDFInfo, error) {
	info, err := pdfraster.Probe(path)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("%w: %s: %v", ErrUnreadablePDF, path, err)
	}
	return PDFInfo{
		PageCount: info.PageCount,
		SizeBytes: info.SizeBytes,
		Warnings:  info.Warnings,
	}, nil
}

type popplerHandle struct {
	h *pdfraster.Handle
}

func (p *popplerHandle) PageCount() int { return p.h.PageCount() }

func (p *popplerHandle) RenderPage(ctx context.Context, index, dpi int) (Page, error) {
	pg, err := p.h.RenderPage(ctx, index, dpi)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		return Page{}, fmt.Errorf("%w: page %d: %v", ErrRenderFailed, index, err)
	}
	return Page{
		PNG:       pg.PNG,
		WidthPx:   pg.WidthPx,
		HeightPx:  pg.HeightPx,
		DPI:       dpi,
		Landscape: pg.WidthPx > pg.HeightPx,
	}, nil
}

func (p *popplerHandle) Close() error { return p.h.Close() }
