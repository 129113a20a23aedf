package docx

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Page geometry in twentieths of a point (A4) and EMU conversion factors.
// The printable box is the page minus one-inch margins on every side.
const (
	pageWidthTwips  = 11906
	pageHeightTwips = 16838
	marginTwips     = 1440

	emuPerTwip = 635
	emuPerInch = 914400
)

const settingsContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"

const pageBreakXML = `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`

const spacerXML = `<w:p/>`

const updateFieldsXML = `<w:updateFields w:val="true"/>`

const minimalSettingsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<w:settings xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	updateFieldsXML +
	`</w:settings>`

// headingXML builds a Heading1-styled paragraph.
func headingXML(text string) string {
	return `<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr>` +
		`<w:r><w:t xml:space="preserve">` + escape(text) + `</w:t></w:r></w:p>`
}

// drawingXML builds a centered inline picture paragraph of cx by cy EMU,
// referencing an already-registered image relationship.
func drawingXML(relID string, seq int, cx, cy int64) string {
	name := fmt.Sprintf("Appendix page %d", seq)
	return fmt.Sprintf(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">`+
		`<wp:extent cx="%d" cy="%d"/>`+
		`<wp:docPr id="%d" name=%q/>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="%d" name=%q/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed=%q xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"/>`+
		`<a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`,
		cx, cy, seq, name, seq, name, relID, cx, cy)
}

// sectionBreakXML ends the current section with an A4 page sized for the
// given orientation, so landscape pages lay out on landscape paper.
func sectionBreakXML(landscape bool) string {
	w, h := pageWidthTwips, pageHeightTwips
	orient := "portrait"
	if landscape {
		w, h = h, w
		orient = "landscape"
	}
	return fmt.Sprintf(`<w:p><w:pPr><w:sectPr>`+
		`<w:pgSz w:w="%d" w:h="%d" w:orient=%q/>`+
		`<w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d"/>`+
		`</w:sectPr></w:pPr></w:p>`,
		w, h, orient, marginTwips, marginTwips, marginTwips, marginTwips)
}

// fitEMU scales the image to the printable box of its page orientation,
// preserving aspect ratio, and returns the display size in EMU.
func fitEMU(img PageImage) (cx, cy int64) {
	boxW := int64(pageWidthTwips-2*marginTwips) * emuPerTwip
	boxH := int64(pageHeightTwips-2*marginTwips) * emuPerTwip
	if img.Landscape {
		boxW, boxH = boxH, boxW
	}

	dpi := img.DPI
	if dpi <= 0 {
		dpi = 96
	}
	natW := int64(img.WidthPx) * emuPerInch / int64(dpi)
	natH := int64(img.HeightPx) * emuPerInch / int64(dpi)

	// Fit: scale by the tighter axis, up or down.
	if natW*boxH > natH*boxW {
		return boxW, natH * boxW / natW
	}
	return natW * boxH / natH, boxH
}

// escape renders text safe for inclusion in an XML text node.
func escape(text string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(text))
	return b.String()
}
