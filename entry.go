package appendix

import (
	"path/filepath"
	"strings"
)

// Entry is one appendix in a run: a source PDF plus its derived label,
// rank, and processing state. Unique by source path within one run.
type Entry struct {
	Path          string
	Title         string
	Rank          int
	Label         string
	LabelOverride string
	PageCount     int
	State         ProcessingState
}

// newEntry builds a pending entry from a source at the given rank.
// An empty title defaults to the file name without extension.
func newEntry(src Source, rank int) *Entry {
	title := src.Title
	if title == "" {
		base := filepath.Base(src.Path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &Entry{
		Path:          src.Path,
		Title:         title,
		Rank:          rank,
		LabelOverride: src.LabelOverride,
		State:         StatePending,
	}
}

// plan is the materialized insertion order: entries paired with their
// rendered pages, consumed strictly in rank order. Once rendering begins
// the order is frozen; it always equals final label order, since partial
// insertion makes mid-run reordering unsafe.
type plan struct {
	items []planItem
}

type planItem struct {
	entry *Entry
	pages []Page
}

// totalPages sums resolved page counts across all entries.
func (p *plan) totalPages() int {
	n := 0
	for _, it := range p.items {
		n += len(it.pages)
	}
	return n
}
