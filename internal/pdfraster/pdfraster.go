// Package pdfraster opens PDF files and renders their pages to PNG images.
// Structure (validation, page count) is read with pdfcpu; pixel rendering
// shells out to the poppler pdftoppm tool through an injectable executor.
package pdfraster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Probe warning thresholds, mirrored from the engine's validation policy.
const (
	largeFileWarnBytes = 50 << 20
	manyPagesWarnAt    = 1000
)

// defaultBinary is the poppler page renderer.
const defaultBinary = "pdftoppm"

var errClosed = errors.New("pdf handle already closed")

// CommandExecutor runs an external command and returns its stdout.
// Injectable so tests never need poppler installed.
type CommandExecutor interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Rasterizer renders PDF pages via pdftoppm. The zero value is not usable;
// create with New.
type Rasterizer struct {
	executor CommandExecutor
	binary   string
}

// New returns a Rasterizer using the system pdftoppm binary.
func New() *Rasterizer {
	return &Rasterizer{executor: systemExecutor{}, binary: defaultBinary}
}

// Page is one rendered page.
type Page struct {
	PNG      []byte
	WidthPx  int
	HeightPx int
}

// Info is the validation-time view of a PDF.
type Info struct {
	PageCount int
	SizeBytes int64
	Warnings  []string
}

// relaxedConf returns the pdfcpu configuration used for reading real-world
// PDFs, which are frequently not strictly conformant.
func relaxedConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Probe validates the file and collects page count, size, and non-fatal
// warnings without keeping it open.
func Probe(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat: %w", err)
	}
	if err := api.ValidateFile(path, relaxedConf()); err != nil {
		return Info{}, fmt.Errorf("validating PDF: %w", err)
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("counting pages: %w", err)
	}

	info := Info{PageCount: n, SizeBytes: fi.Size()}
	if fi.Size() > largeFileWarnBytes {
		info.Warnings = append(info.Warnings, fmt.Sprintf("large file: %d MB", fi.Size()>>20))
	}
	if n > manyPagesWarnAt {
		info.Warnings = append(info.Warnings, fmt.Sprintf("many pages: %d", n))
	}
	return info, nil
}

// Open parses the PDF and returns a handle for page rendering.
// The handle owns a temp directory for render output; Close removes it.
func (r *Rasterizer) Open(ctx context.Context, path string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}
	workDir, err := os.MkdirTemp("", "pdfraster-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	return &Handle{r: r, path: path, pageCount: n, workDir: workDir}, nil
}

// Handle is one open PDF.
type Handle struct {
	r         *Rasterizer
	path      string
	pageCount int
	workDir   string

	mu     sync.Mutex
	closed bool
}

// PageCount reports the number of pages.
func (h *Handle) PageCount() int { return h.pageCount }

// RenderPage rasterizes the zero-based page at the given DPI.
func (h *Handle) RenderPage(ctx context.Context, index, dpi int) (Page, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return Page{}, errClosed
	}
	h.mu.Unlock()

	if index < 0 || index >= h.pageCount {
		return Page{}, fmt.Errorf("page index %d out of range [0,%d)", index, h.pageCount)
	}

	// pdftoppm pages are one-based; -singlefile drops the page suffix.
	pageNo := strconv.Itoa(index + 1)
	prefix := filepath.Join(h.workDir, fmt.Sprintf("page_%d", index))
	args := []string{
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", pageNo,
		"-l", pageNo,
		"-singlefile",
		h.path,
		prefix,
	}
	if _, err := h.r.executor.Run(ctx, h.r.binary, args...); err != nil {
		return Page{}, fmt.Errorf("rendering page %d: %w", index, err)
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return Page{}, fmt.Errorf("reading rendered page %d: %w", index, err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Page{}, fmt.Errorf("decoding rendered page %d: %w", index, err)
	}
	// Render artifacts are not needed once read back.
	_ = os.Remove(prefix + ".png")

	return Page{PNG: data, WidthPx: cfg.Width, HeightPx: cfg.Height}, nil
}

// Close removes the handle's temp directory. Safe to call more than once
// and after a failed render.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return os.RemoveAll(h.workDir)
}
