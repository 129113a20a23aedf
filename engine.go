package appendix

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Compile-time interface implementation checks.
var (
	_ Rasterizer    = (*popplerRasterizer)(nil)
	_ PDFHandle     = (*popplerHandle)(nil)
	_ SessionOpener = docxOpener{}
	_ Session       = (*docxSession)(nil)
	_ BackupManager = (*fileBackupManager)(nil)
)

// Render worker pool bounds. Rasterization has no shared mutable state, so
// independent PDFs may render in parallel; insertion stays single-writer.
const (
	minRenderWorkers = 1
	maxRenderWorkers = 8
)

// Engine orchestrates one run: validate, back up, render, insert, finalize.
// An Engine is reusable across runs; each run holds exclusive access to its
// target document for the duration.
type Engine struct {
	cfg      RunConfig
	raster   Rasterizer
	opener   SessionOpener
	backups  BackupManager
	logger   *slog.Logger
	progress ProgressFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithRasterizer replaces the production PDF rasterizer.
func WithRasterizer(r Rasterizer) Option {
	if r == nil {
		panic("appendix: WithRasterizer requires a non-nil rasterizer")
	}
	return func(e *Engine) { e.raster = r }
}

// WithSessionOpener replaces the production document adapter.
func WithSessionOpener(o SessionOpener) Option {
	if o == nil {
		panic("appendix: WithSessionOpener requires a non-nil opener")
	}
	return func(e *Engine) { e.opener = o }
}

// WithBackupManager replaces the production backup manager.
func WithBackupManager(b BackupManager) Option {
	if b == nil {
		panic("appendix: WithBackupManager requires a non-nil manager")
	}
	return func(e *Engine) { e.backups = b }
}

// WithLogger sets the logger. The engine never logs through a process-wide
// default; without this option log output is discarded.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("appendix: WithLogger requires a non-nil logger")
	}
	return func(e *Engine) { e.logger = l }
}

// WithProgress sets the progress callback, invoked after every inserted
// page and at entry boundaries.
func WithProgress(fn ProgressFunc) Option {
	if fn == nil {
		panic("appendix: WithProgress requires a non-nil callback")
	}
	return func(e *Engine) { e.progress = fn }
}

// New creates an Engine for the given configuration.
// Scheme and mode comparisons are case-insensitive.
func New(cfg RunConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.NumberingScheme = strings.ToLower(cfg.NumberingScheme)
	cfg.FailureMode = strings.ToLower(cfg.FailureMode)

	// Strict mode rolls back from the snapshot, so it cannot run without one.
	if cfg.FailureMode == ModeStrict && !cfg.AutoBackup {
		return nil, fmt.Errorf("%w: strict mode requires autoBackup", ErrInvalidFailureMode)
	}

	e := &Engine{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	// Production collaborators if not injected (e.g., by tests).
	if e.raster == nil {
		e.raster = NewRasterizer()
	}
	if e.opener == nil {
		e.opener = NewSessionOpener()
	}
	if e.backups == nil {
		e.backups = NewBackupManager(cfg.BackupDir)
	}
	return e, nil
}

// activeDocs tracks documents with a run in flight. A second run against
// the same document fails immediately rather than queuing; queuing silent
// mutation against a user-visible document is unsafe.
var activeDocs = struct {
	mu    sync.Mutex
	paths map[string]struct{}
}{paths: make(map[string]struct{})}

func acquireDocument(path string) error {
	key := filepath.Clean(path)
	activeDocs.mu.Lock()
	defer activeDocs.mu.Unlock()
	if _, held := activeDocs.paths[key]; held {
		return fmt.Errorf("%w: %s", ErrDocumentBusy, path)
	}
	activeDocs.paths[key] = struct{}{}
	return nil
}

func releaseDocument(path string) {
	key := filepath.Clean(path)
	activeDocs.mu.Lock()
	defer activeDocs.mu.Unlock()
	delete(activeDocs.paths, key)
}

// newRunID returns a random 16-character hex run identifier.
func newRunID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic("appendix: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// Run executes one end-to-end run against one target document. It returns
// the authoritative result record; the error summarizes why the run did not
// commit (nil on commit). Run is synchronous; cancel through ctx.
func (e *Engine) Run(ctx context.Context, ref DocumentRef, sources []Source) (*Result, error) {
	res := &Result{Status: StatusFailed}

	// Validating: collect every violation before touching anything.
	entries := buildEntries(sources, e.cfg.NumberingScheme)
	if details := e.validate(ref, entries, sources); len(details) > 0 {
		res.Errors = details
		syncReport(res, entries)
		return res, fmt.Errorf("%w: %d violation(s)", ErrValidation, len(details))
	}

	if err := acquireDocument(ref.Path); err != nil {
		res.Errors = append(res.Errors, ErrorDetail{Stage: StageValidating, Path: ref.Path, PageIndex: -1, Err: err})
		syncReport(res, entries)
		return res, err
	}
	defer releaseDocument(ref.Path)

	runID := newRunID()
	log := e.logger.With("runId", runID, "document", ref.Path)
	log.Info("run starting", "entries", len(entries), "scheme", e.cfg.NumberingScheme, "mode", e.cfg.FailureMode)

	// Backing up: mutation without a safety copy is disallowed by policy.
	var rec BackupRecord
	haveBackup := false
	if e.cfg.AutoBackup {
		var err error
		rec, err = e.backups.Snapshot(ctx, ref.Path, runID)
		if err != nil {
			log.Error("backup failed, run aborted before mutation", "error", err)
			res.Errors = append(res.Errors, ErrorDetail{Stage: StageBackingUp, Path: ref.Path, PageIndex: -1, Err: err})
			syncReport(res, entries)
			return res, err
		}
		haveBackup = true
		res.BackupPath = rec.Path
		log.Info("backup created", "backup", rec.Path)
	}

	// Rendering: parallel across PDFs, rank order preserved in the plan.
	pl, detail := e.render(ctx, entries)
	if detail != nil {
		res.Errors = append(res.Errors, *detail)
		e.concludeFailure(ctx, res, entries, nil, rec, haveBackup, log)
		return res, detail.Err
	}

	// Inserting: the session is a single-writer resource; strictly
	// sequential, rank order.
	sess, err := e.opener.Open(ref)
	if err != nil {
		res.Errors = append(res.Errors, ErrorDetail{Stage: StageInserting, Path: ref.Path, PageIndex: -1, Err: err})
		e.concludeFailure(ctx, res, entries, nil, rec, haveBackup, log)
		return res, err
	}

	if detail := e.insert(ctx, sess, pl, log); detail != nil {
		res.Errors = append(res.Errors, *detail)
		e.concludeFailure(ctx, res, entries, sess, rec, haveBackup, log)
		return res, detail.Err
	}

	// Finalizing: final TOC refresh, save, commit.
	if detail := e.finalize(ctx, sess, ref); detail != nil {
		res.Errors = append(res.Errors, *detail)
		e.concludeFailure(ctx, res, entries, sess, rec, haveBackup, log)
		return res, detail.Err
	}
	if err := sess.Close(); err != nil {
		log.Warn("closing session after commit", "error", err)
	}

	res.Status = StatusCommitted
	syncReport(res, entries)
	log.Info("run committed", "entries", len(entries), "pages", pl.totalPages())
	return res, nil
}

// buildEntries creates pending entries in input order and assigns labels.
func buildEntries(sources []Source, scheme string) []*Entry {
	entries := make([]*Entry, len(sources))
	for i, src := range sources {
		entries[i] = newEntry(src, i)
	}
	Assign(entries, scheme)
	return entries
}

// validate probes every source and the document reference, collecting all
// violations so the caller can present them together.
func (e *Engine) validate(ref DocumentRef, entries []*Entry, sources []Source) []ErrorDetail {
	var details []ErrorDetail
	fail := func(path, label string, err error) {
		details = append(details, ErrorDetail{Stage: StageValidating, Path: path, Label: label, PageIndex: -1, Err: err})
	}

	if len(sources) == 0 {
		fail("", "", ErrNoSources)
	}
	if len(sources) > maxEntriesPerRun {
		fail("", "", fmt.Errorf("%w: %d sources exceeds limit of %d", ErrValidation, len(sources), maxEntriesPerRun))
	}

	if ref.Path == "" {
		fail("", "", fmt.Errorf("%w: empty document reference", ErrDocumentUnavailable))
	} else {
		if info, err := os.Stat(ref.Path); err != nil {
			fail(ref.Path, "", fmt.Errorf("%w: %v", ErrDocumentUnavailable, err))
		} else if info.IsDir() {
			fail(ref.Path, "", fmt.Errorf("%w: is a directory", ErrDocumentUnavailable))
		} else if !strings.EqualFold(filepath.Ext(ref.Path), ".docx") {
			fail(ref.Path, "", fmt.Errorf("%w: unsupported format %q", ErrDocumentUnavailable, filepath.Ext(ref.Path)))
		}
	}

	seen := make(map[string]bool, len(entries))
	for _, en := range entries {
		if en.Path == "" {
			fail("", en.Label, fmt.Errorf("%w: empty source path", ErrUnreadablePDF))
			continue
		}
		key := filepath.Clean(en.Path)
		if seen[key] {
			fail(en.Path, en.Label, fmt.Errorf("%w: duplicate source path", ErrValidation))
			continue
		}
		seen[key] = true

		info, err := e.raster.Probe(en.Path)
		if err != nil {
			fail(en.Path, en.Label, err)
			continue
		}
		if maxBytes := int64(e.cfg.MaxPDFSizeMB) << 20; info.SizeBytes > maxBytes {
			fail(en.Path, en.Label, fmt.Errorf("%w: %d MB exceeds limit of %d MB",
				ErrValidation, info.SizeBytes>>20, e.cfg.MaxPDFSizeMB))
			continue
		}
		for _, w := range info.Warnings {
			e.logger.Warn("source PDF warning", "path", en.Path, "warning", w)
		}
		en.PageCount = info.PageCount
	}
	return details
}

// render rasterizes every entry's pages at the configured resolution.
// Entries render in parallel; the plan keeps rank order. Returns the first
// failure (cancellation between pages included) as a structured detail.
func (e *Engine) render(ctx context.Context, entries []*Entry) (*plan, *ErrorDetail) {
	pl := &plan{items: make([]planItem, len(entries))}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.renderWorkers())

	for i, en := range entries {
		pl.items[i].entry = en
		eg.Go(func() error {
			en.State = StateRasterizing
			pages, err := e.renderEntry(gctx, en)
			if err != nil {
				return err
			}
			pl.items[i].pages = pages
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		if detail, ok := err.(*ErrorDetail); ok {
			return nil, detail
		}
		return nil, &ErrorDetail{Stage: StageRendering, PageIndex: -1, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ErrorDetail{Stage: StageRendering, PageIndex: -1, Err: fmt.Errorf("%w: %v", ErrRunCancelled, err)}
	}
	return pl, nil
}

// renderEntry rasterizes one PDF, checking for cancellation between pages.
func (e *Engine) renderEntry(ctx context.Context, en *Entry) ([]Page, error) {
	h, err := e.raster.Open(ctx, en.Path)
	if err != nil {
		return nil, &ErrorDetail{Stage: StageRendering, Path: en.Path, Label: en.Label, PageIndex: -1, Err: err}
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			e.logger.Warn("closing PDF handle", "path", en.Path, "error", cerr)
		}
	}()

	n := h.PageCount()
	en.PageCount = n
	if n == 0 {
		// Zero pages is an empty appendix: heading and spacer only.
		e.logger.Warn("PDF has no pages, inserting empty appendix", "path", en.Path, "label", en.Label)
		return nil, nil
	}

	pages := make([]Page, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, &ErrorDetail{Stage: StageRendering, Path: en.Path, Label: en.Label, PageIndex: i,
				Err: fmt.Errorf("%w: %v", ErrRunCancelled, err)}
		}
		pg, err := h.RenderPage(ctx, i, e.cfg.ImageDPI)
		if err != nil {
			if ctx.Err() != nil {
				err = fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
			}
			return nil, &ErrorDetail{Stage: StageRendering, Path: en.Path, Label: en.Label, PageIndex: i, Err: err}
		}
		pages = append(pages, pg)
	}
	return pages, nil
}

func (e *Engine) renderWorkers() int {
	n := e.cfg.RenderWorkers
	if n <= 0 {
		n = maxRenderWorkers
	}
	if n < minRenderWorkers {
		n = minRenderWorkers
	}
	if n > maxRenderWorkers {
		n = maxRenderWorkers
	}
	return n
}

// insert writes every appendix through the session in rank order: heading,
// page images, spacer. Progress is reported after every page. In
// best-effort mode the document is refreshed and saved after each completed
// appendix, so a later failure keeps exactly the completed ones.
func (e *Engine) insert(ctx context.Context, sess Session, pl *plan, log *slog.Logger) *ErrorDetail {
	totalPages := pl.totalPages()
	totalEntries := len(pl.items)
	completedPages := 0
	completedEntries := 0

	for _, it := range pl.items {
		en := it.entry
		if err := ctx.Err(); err != nil {
			return &ErrorDetail{Stage: StageInserting, Path: en.Path, Label: en.Label, PageIndex: -1,
				Err: fmt.Errorf("%w: %v", ErrRunCancelled, err)}
		}

		en.State = StateInserting
		e.emit(Progress{completedPages, totalPages, completedEntries, totalEntries, en.Label})

		if err := sess.InsertAppendixHeading(ctx, en.Label, en.Title); err != nil {
			return e.insertDetail(ctx, en, -1, err)
		}
		for i, pg := range it.pages {
			if err := ctx.Err(); err != nil {
				return &ErrorDetail{Stage: StageInserting, Path: en.Path, Label: en.Label, PageIndex: i,
					Err: fmt.Errorf("%w: %v", ErrRunCancelled, err)}
			}
			if err := sess.InsertPageImage(ctx, pg); err != nil {
				// Remaining pages of this appendix are skipped; the run halts.
				return e.insertDetail(ctx, en, i, err)
			}
			completedPages++
			e.emit(Progress{completedPages, totalPages, completedEntries, totalEntries, en.Label})
		}
		if err := sess.InsertSpacer(ctx); err != nil {
			return e.insertDetail(ctx, en, -1, err)
		}

		if e.cfg.FailureMode == ModeBestEffort {
			// Checkpoint: keep completed appendices on disk even if a later one fails.
			if err := sess.RefreshTOC(ctx); err != nil {
				return e.insertDetail(ctx, en, -1, err)
			}
			if err := sess.Save(ctx); err != nil {
				return e.insertDetail(ctx, en, -1, err)
			}
		}

		en.State = StateDone
		completedEntries++
		log.Info("appendix inserted", "label", en.Label, "pages", len(it.pages))
		e.emit(Progress{completedPages, totalPages, completedEntries, totalEntries, en.Label})
	}
	return nil
}

func (e *Engine) insertDetail(ctx context.Context, en *Entry, page int, err error) *ErrorDetail {
	if ctx.Err() != nil {
		err = fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
	}
	return &ErrorDetail{Stage: StageInserting, Path: en.Path, Label: en.Label, PageIndex: page, Err: err}
}

// finalize refreshes the TOC once more and saves. The refresh is idempotent
// so per-appendix refreshes in best-effort mode do not change the outcome.
func (e *Engine) finalize(ctx context.Context, sess Session, ref DocumentRef) *ErrorDetail {
	if err := sess.RefreshTOC(ctx); err != nil {
		return &ErrorDetail{Stage: StageFinalizing, Path: ref.Path, PageIndex: -1, Err: err}
	}
	if err := sess.Save(ctx); err != nil {
		return &ErrorDetail{Stage: StageFinalizing, Path: ref.Path, PageIndex: -1, Err: err}
	}
	return nil
}

// concludeFailure applies the failure mode once a run cannot commit.
// Strict: close the session without saving, restore the snapshot, report
// RolledBack. Best-effort: keep what was checkpointed and report Failed.
// Entries that did not finish are reported Failed, never Pending.
func (e *Engine) concludeFailure(ctx context.Context, res *Result, entries []*Entry, sess Session, rec BackupRecord, haveBackup bool, log *slog.Logger) {
	// Rollback undoes completed insertions too, so under strict mode even
	// Done entries are reported failed.
	failAll := e.cfg.FailureMode == ModeStrict && haveBackup
	for _, en := range entries {
		if failAll || en.State != StateDone {
			en.State = StateFailed
		}
	}

	// Close before restoring: restore operates on the path and must not
	// race a stale open handle.
	if sess != nil {
		if err := sess.Close(); err != nil {
			log.Warn("closing session after failure", "error", err)
		}
	}

	if e.cfg.FailureMode == ModeStrict && haveBackup {
		// Restore even though the document state is unknown.
		restoreCtx := ctx
		if restoreCtx.Err() != nil {
			restoreCtx = context.WithoutCancel(ctx)
		}
		if err := e.backups.Restore(restoreCtx, rec); err != nil {
			log.Error("restore failed, manual recovery required", "backup", rec.Path, "error", err)
			res.Errors = append(res.Errors, ErrorDetail{Stage: StageRollback, Path: rec.SourcePath, PageIndex: -1,
				Err: fmt.Errorf("%w: recover manually from %s", err, rec.Path)})
			res.ManualRecovery = true
			res.Status = StatusFailed
		} else {
			log.Info("document rolled back", "backup", rec.Path)
			res.Status = StatusRolledBack
		}
	} else {
		res.Status = StatusFailed
	}
	syncReport(res, entries)
}

// syncReport copies entry states into the result record.
func syncReport(res *Result, entries []*Entry) {
	res.Entries = res.Entries[:0]
	if res.PerEntry == nil {
		res.PerEntry = make(map[string]ProcessingState, len(entries))
	}
	for _, en := range entries {
		res.Entries = append(res.Entries, EntryReport{
			Path:  en.Path,
			Label: en.Label,
			Title: en.Title,
			Pages: en.PageCount,
			State: en.State,
		})
		res.PerEntry[en.Path] = en.State
	}
}

func (e *Engine) emit(p Progress) {
	if e.progress != nil {
		e.progress(p)
	}
}
