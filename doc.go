// Package appendix assembles PDF files into a target word-processing
// document as numbered appendix sections. Each PDF becomes a styled
// heading followed by one page image per PDF page, and the document's
// table of contents is refreshed afterwards.
//
// # Quick Start
//
// Create an engine and run it against a document and an ordered list of
// PDF sources:
//
//	eng, err := appendix.New(appendix.DefaultRunConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := eng.Run(ctx, appendix.DocumentRef{Path: "report.docx"}, []appendix.Source{
//	    {Path: "/data/measurements.pdf"},
//	    {Path: "/data/certificates.pdf"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Status)
//
// The result reports per-entry processing states, the backup location, and
// an ordered list of structured error details for anything that went wrong.
//
// # Run Pipeline
//
// A run progresses through these stages:
//
//  1. Validating: every source is probed; all violations are collected and
//     reported together before anything is touched.
//  2. Backing up: a snapshot of the target document is written. A run never
//     mutates the document without a safety copy.
//  3. Rendering: each PDF's pages are rasterized to images, in parallel
//     across PDFs.
//  4. Inserting: headings and page images are written into the document,
//     strictly in label order, one mutation at a time.
//  5. Finalizing: table of contents refresh and save.
//
// # Failure Modes
//
// In strict mode any failure restores the pre-run snapshot, leaving the
// document byte-for-byte unchanged. In best-effort mode the appendices
// inserted before the failure point are kept and saved, and the result
// names exactly which entries succeeded. Cancellation through the context
// is observed between pages and entries and is handled like a failure
// under the active mode.
//
// # Configuration
//
// RunConfig selects the numbering scheme (alphabetical, numeric, roman),
// the failure mode, the rasterization resolution, and backup behavior.
// Use functional options to inject a logger or a progress callback:
//
//	eng, err := appendix.New(cfg,
//	    appendix.WithLogger(slog.Default()),
//	    appendix.WithProgress(func(p appendix.Progress) {
//	        fmt.Printf("%d/%d pages\n", p.CompletedPages, p.TotalPages)
//	    }),
//	)
//
// # External Tools
//
// The production rasterizer renders pages with the poppler pdftoppm tool
// and reads PDF structure with pdfcpu. The production document adapter
// edits .docx files directly; no word processor needs to be installed.
package appendix
