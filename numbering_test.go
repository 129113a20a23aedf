package appendix

// Notes:
// - LabelFor: rank 0 is "A"/"1"/"I"; alphabetical continues AA, AB past Z
// - Assign: stable under append, overrides pinned, first registration wins
//   on duplicate ranks

import "testing"

func TestLabelFor_Alphabetical(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rank int
		want string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}
	for _, tt := range tests {
		if got := LabelFor(tt.rank, SchemeAlphabetical); got != tt.want {
			t.Errorf("LabelFor(%d, alphabetical) = %q, want %q", tt.rank, got, tt.want)
		}
	}
}

func TestLabelFor_Numeric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rank int
		want string
	}{
		{0, "1"},
		{1, "2"},
		{99, "100"},
	}
	for _, tt := range tests {
		if got := LabelFor(tt.rank, SchemeNumeric); got != tt.want {
			t.Errorf("LabelFor(%d, numeric) = %q, want %q", tt.rank, got, tt.want)
		}
	}
}

func TestLabelFor_Roman(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rank int
		want string
	}{
		{0, "I"},
		{1, "II"},
		{2, "III"},
		{3, "IV"},
		{8, "IX"},
		{13, "XIV"},
		{39, "XL"},
		{48, "XLIX"},
		{89, "XC"},
		{499, "D"},
		{1999, "MM"},
	}
	for _, tt := range tests {
		if got := LabelFor(tt.rank, SchemeRoman); got != tt.want {
			t.Errorf("LabelFor(%d, roman) = %q, want %q", tt.rank, got, tt.want)
		}
	}
}

func TestLabelFor_CaseInsensitiveScheme(t *testing.T) {
	t.Parallel()

	if got := LabelFor(0, "Roman"); got != "I" {
		t.Errorf("LabelFor(0, Roman) = %q, want I", got)
	}
}

func entriesAtRanks(ranks ...int) []*Entry {
	entries := make([]*Entry, len(ranks))
	for i, r := range ranks {
		entries[i] = &Entry{Path: string(rune('a'+i)) + ".pdf", Rank: r}
	}
	return entries
}

func TestAssign_StableUnderAppend(t *testing.T) {
	t.Parallel()

	for _, scheme := range []string{SchemeAlphabetical, SchemeNumeric, SchemeRoman} {
		entries := entriesAtRanks(0, 1, 2, 3)
		Assign(entries, scheme)

		before := make([]string, len(entries))
		for i, e := range entries {
			before[i] = e.Label
		}

		entries = append(entries, &Entry{Path: "extra.pdf", Rank: 4})
		Assign(entries, scheme)

		for i, want := range before {
			if entries[i].Label != want {
				t.Errorf("scheme %s: label at rank %d changed from %q to %q after append",
					scheme, i, want, entries[i].Label)
			}
		}
	}
}

func TestAssign_OverridePinned(t *testing.T) {
	t.Parallel()

	entries := entriesAtRanks(0, 1, 2)
	entries[1].LabelOverride = "X1"
	Assign(entries, SchemeAlphabetical)

	// The pinned entry keeps its override and does not consume a slot.
	want := []string{"A", "X1", "B"}
	for i, w := range want {
		if entries[i].Label != w {
			t.Errorf("label[%d] = %q, want %q", i, entries[i].Label, w)
		}
	}
}

func TestAssign_DuplicateRankFirstRegistrationWins(t *testing.T) {
	t.Parallel()

	entries := entriesAtRanks(0, 1, 1)
	Assign(entries, SchemeAlphabetical)

	// Registration order breaks the tie: the earlier entry gets the
	// earlier label.
	want := []string{"A", "B", "C"}
	for i, w := range want {
		if entries[i].Label != w {
			t.Errorf("label[%d] = %q, want %q", i, entries[i].Label, w)
		}
	}
}

func TestAssign_RecomputedOnReorder(t *testing.T) {
	t.Parallel()

	entries := entriesAtRanks(0, 1)
	Assign(entries, SchemeAlphabetical)
	entries[0].Rank, entries[1].Rank = 1, 0
	Assign(entries, SchemeAlphabetical)

	if entries[0].Label != "B" || entries[1].Label != "A" {
		t.Errorf("labels after reorder = %q, %q; want B, A", entries[0].Label, entries[1].Label)
	}
}
