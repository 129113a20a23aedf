package appendix

import (
	"sort"
	"strconv"
	"strings"
)

// Labels are a pure function of rank and scheme. They are recomputed
// whenever rank or scheme changes and never stored independently of rank,
// so label and position cannot drift apart.

// Assign computes the label for every entry under the given scheme and
// writes it to Entry.Label. Entries with a LabelOverride keep it pinned and
// do not consume an auto-numbering slot. Entries claiming the same rank are
// ordered by first registration.
func Assign(entries []*Entry, scheme string) {
	ordered := make([]*Entry, len(entries))
	copy(ordered, entries)
	// Stable: first registration wins on equal ranks.
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	auto := 0
	for _, e := range ordered {
		if e.LabelOverride != "" {
			e.Label = e.LabelOverride
			continue
		}
		e.Label = LabelFor(auto, scheme)
		auto++
	}
}

// LabelFor returns the label for a zero-based rank under the given scheme.
// Rank 0 yields "A", "1", or "I" depending on the scheme.
func LabelFor(rank int, scheme string) string {
	switch strings.ToLower(scheme) {
	case SchemeNumeric:
		return strconv.Itoa(rank + 1)
	case SchemeRoman:
		return romanLabel(rank + 1)
	default:
		return alphaLabel(rank)
	}
}

// alphaLabel maps 0 -> "A" ... 25 -> "Z", 26 -> "AA", 27 -> "AB", and so
// on (bijective base-26). Runs of more than 26 appendices are expected.
func alphaLabel(rank int) string {
	n := rank + 1
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

var romanValues = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// romanLabel converts a positive integer to uppercase Roman numerals.
func romanLabel(n int) string {
	var b strings.Builder
	for _, rv := range romanValues {
		for n >= rv.value {
			b.WriteString(rv.symbol)
			n -= rv.value
		}
	}
	return b.String()
}
