// Package docx edits Word documents (.docx) directly at the OOXML level:
// appending styled appendix headings, full-page images, and section breaks,
// and flagging the table of contents for refresh. Only the narrow mutation
// surface the appendix engine needs is implemented; the document is never
// reflowed or re-rendered here.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Well-known part names inside the package.
const (
	partDocument     = "word/document.xml"
	partDocumentRels = "word/_rels/document.xml.rels"
	partSettings     = "word/settings.xml"
	partContentTypes = "[Content_Types].xml"
)

// Sentinel errors for document operations.
var (
	ErrNotDocx   = errors.New("docx: not a Word document")
	ErrMalformed = errors.New("docx: malformed document package")
	ErrLocked    = errors.New("docx: document locked by another process")
	ErrClosed    = errors.New("docx: document already closed")
)

var relIDPattern = regexp.MustCompile(`Id="rId(\d+)"`)

// Document is one open .docx package held in memory. Mutations accumulate
// as pending body fragments; Save applies them and writes the package back
// to its path. Not safe for concurrent use; callers serialize mutations.
type Document struct {
	path  string
	parts map[string][]byte
	order []string // original part order, for stable output

	pending []string // body XML fragments not yet applied
	images  int      // media parts added so far
	nextRel int      // next relationship id number
	closed  bool
}

// Open reads the package into memory. Fails when the file is missing, is
// not a .docx package, or is opened exclusively by a word processor (a
// Word owner lockfile sits next to it).
func Open(path string) (*Document, error) {
	if !strings.EqualFold(filepath.Ext(path), ".docx") {
		return nil, fmt.Errorf("%w: %s", ErrNotDocx, path)
	}
	lock := filepath.Join(filepath.Dir(path), "~$"+strings.TrimPrefix(filepath.Base(path), "~$"))
	if _, err := os.Stat(lock); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}
	defer zr.Close()

	d := &Document{
		path:  path,
		parts: make(map[string][]byte, len(zr.File)),
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening part %s: %v", ErrMalformed, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: reading part %s: %v", ErrMalformed, f.Name, err)
		}
		d.parts[f.Name] = data
		d.order = append(d.order, f.Name)
	}

	if _, ok := d.parts[partDocument]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, partDocument)
	}
	if _, ok := d.parts[partContentTypes]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, partContentTypes)
	}
	d.nextRel = d.maxRelID() + 1
	return d, nil
}

// maxRelID scans the document relationships for the highest rId number.
func (d *Document) maxRelID() int {
	max := 0
	for _, m := range relIDPattern.FindAllSubmatch(d.parts[partDocumentRels], -1) {
		if n, err := strconv.Atoi(string(m[1])); err == nil && n > max {
			max = n
		}
	}
	return max
}

// InsertHeading appends a page break and a Heading1-styled paragraph. The
// style name is a fixed contract: the TOC field collects Heading1 entries,
// so appendix headings always land in the refreshed table of contents.
func (d *Document) InsertHeading(text string) error {
	if d.closed {
		return ErrClosed
	}
	d.pending = append(d.pending, pageBreakXML, headingXML(text))
	return nil
}

// PageImage is one rendered PDF page to place into the document.
type PageImage struct {
	PNG       []byte
	WidthPx   int
	HeightPx  int
	DPI       int
	Landscape bool
}

// InsertPageImage embeds the image as a media part and appends a centered
// inline drawing scaled to fit the printable page box, preserving aspect
// ratio. The orientation hint ends the image's section with a matching
// portrait or landscape page size.
func (d *Document) InsertPageImage(img PageImage) error {
	if d.closed {
		return ErrClosed
	}
	if len(img.PNG) == 0 {
		return fmt.Errorf("docx: empty image data")
	}
	if img.WidthPx <= 0 || img.HeightPx <= 0 {
		return fmt.Errorf("docx: invalid image dimensions %dx%d", img.WidthPx, img.HeightPx)
	}

	d.images++
	mediaPart := fmt.Sprintf("word/media/appendix_page_%d.png", d.images)
	relID := fmt.Sprintf("rId%d", d.nextRel)
	d.nextRel++

	d.addPart(mediaPart, img.PNG)
	if err := d.addImageRel(relID, "media/"+filepath.Base(mediaPart)); err != nil {
		return err
	}

	cx, cy := fitEMU(img)
	d.pending = append(d.pending,
		drawingXML(relID, d.images, cx, cy),
		sectionBreakXML(img.Landscape),
	)
	return nil
}

// InsertSpacer appends an empty paragraph, closing out an appendix.
func (d *Document) InsertSpacer() error {
	if d.closed {
		return ErrClosed
	}
	d.pending = append(d.pending, spacerXML)
	return nil
}

// RefreshTOC flags every field for recalculation on next open, which is
// how a headless edit refreshes the table of contents and page numbers.
// Idempotent: the flag is added once and further calls change nothing.
func (d *Document) RefreshTOC() error {
	if d.closed {
		return ErrClosed
	}
	settings, ok := d.parts[partSettings]
	if !ok {
		d.addPart(partSettings, []byte(minimalSettingsXML))
		if err := d.addSettingsRel(); err != nil {
			return err
		}
		d.ensureOverride(partSettings, settingsContentType)
		return nil
	}
	if bytes.Contains(settings, []byte("<w:updateFields")) {
		return nil
	}
	s := string(settings)
	i := strings.Index(s, ">") // end of the <w:settings ...> open tag
	if i < 0 {
		return fmt.Errorf("%w: settings part has no root element", ErrMalformed)
	}
	d.parts[partSettings] = []byte(s[:i+1] + updateFieldsXML + s[i+1:])
	return nil
}

// Save applies pending fragments to the document body and writes the whole
// package back to its path through a temp file and rename, so a failed
// write never truncates the document.
func (d *Document) Save() error {
	if d.closed {
		return ErrClosed
	}
	if err := d.applyPending(); err != nil {
		return err
	}
	d.ensureDefault("png", "image/png")

	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".docx-save-*")
	if err != nil {
		return fmt.Errorf("staging save: %w", err)
	}
	tmpName := tmp.Name()

	zw := zip.NewWriter(tmp)
	for _, name := range d.order {
		w, err := zw.Create(name)
		if err == nil {
			_, err = w.Write(d.parts[name])
		}
		if err != nil {
			_ = zw.Close()
			_ = tmp.Close()
			_ = os.Remove(tmpName)
			return fmt.Errorf("writing part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("finalizing package: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing staged save: %w", err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing document: %w", err)
	}
	return nil
}

// Close drops the in-memory package. Unsaved pending fragments are
// discarded; safe to call after a failure and more than once.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.parts = nil
	d.order = nil
	d.pending = nil
	return nil
}

// applyPending splices accumulated fragments into the document body, just
// before the trailing body-level section properties.
func (d *Document) applyPending() error {
	if len(d.pending) == 0 {
		return nil
	}
	doc := string(d.parts[partDocument])
	insert := strings.Join(d.pending, "")

	at := bodySectPrIndex(doc)
	if at < 0 {
		at = strings.LastIndex(doc, "</w:body>")
	}
	if at < 0 {
		return fmt.Errorf("%w: document has no body", ErrMalformed)
	}
	d.parts[partDocument] = []byte(doc[:at] + insert + doc[at:])
	d.pending = d.pending[:0]
	return nil
}

// bodySectPrIndex locates the body-level section properties. Paragraph-level
// section breaks (the per-image fragments this package inserts) sit directly
// inside <w:pPr> and are skipped, so the anchor stays after content inserted
// by earlier saves.
func bodySectPrIndex(doc string) int {
	at := strings.LastIndex(doc, "<w:sectPr")
	for at >= 0 && strings.HasSuffix(doc[:at], "<w:pPr>") {
		at = strings.LastIndex(doc[:at], "<w:sectPr")
	}
	return at
}

// addPart registers a new package part, keeping output order stable.
func (d *Document) addPart(name string, data []byte) {
	if _, ok := d.parts[name]; !ok {
		d.order = append(d.order, name)
	}
	d.parts[name] = data
}

// addImageRel appends an image relationship to the document rels part.
func (d *Document) addImageRel(relID, target string) error {
	return d.addRel(fmt.Sprintf(
		`<Relationship Id=%q Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target=%q/>`,
		relID, target))
}

func (d *Document) addSettingsRel() error {
	relID := fmt.Sprintf("rId%d", d.nextRel)
	d.nextRel++
	return d.addRel(fmt.Sprintf(
		`<Relationship Id=%q Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings" Target="settings.xml"/>`,
		relID))
}

func (d *Document) addRel(rel string) error {
	rels, ok := d.parts[partDocumentRels]
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrMalformed, partDocumentRels)
	}
	s := string(rels)
	at := strings.LastIndex(s, "</Relationships>")
	if at < 0 {
		return fmt.Errorf("%w: malformed %s", ErrMalformed, partDocumentRels)
	}
	d.parts[partDocumentRels] = []byte(s[:at] + rel + s[at:])
	return nil
}

// ensureDefault adds a Default content-type mapping if absent.
func (d *Document) ensureDefault(extension, contentType string) {
	ct := string(d.parts[partContentTypes])
	if strings.Contains(ct, `Extension="`+extension+`"`) {
		return
	}
	entry := fmt.Sprintf(`<Default Extension=%q ContentType=%q/>`, extension, contentType)
	at := strings.LastIndex(ct, "</Types>")
	if at < 0 {
		return
	}
	d.parts[partContentTypes] = []byte(ct[:at] + entry + ct[at:])
}

// ensureOverride adds an Override content-type mapping if absent.
func (d *Document) ensureOverride(partName, contentType string) {
	ct := string(d.parts[partContentTypes])
	if strings.Contains(ct, `PartName="/`+partName+`"`) {
		return
	}
	entry := fmt.Sprintf(`<Override PartName=%q ContentType=%q/>`, "/"+partName, contentType)
	at := strings.LastIndex(ct, "</Types>")
	if at < 0 {
		return
	}
	d.parts[partContentTypes] = []byte(ct[:at] + entry + ct[at:])
}
