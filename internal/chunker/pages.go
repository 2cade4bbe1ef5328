package chunker

import (
	"regexp"
	"sort"
	"strconv"
)

var markerRe = regexp.MustCompile(`(?m)^Page (\d+):$`)

type marker struct {
	offset int
	page   int
}

// markerIndex lists "Page N:" headers in order of appearance.
type markerIndex struct {
	markers []marker
	textLen int
	total   int
}

func newMarkerIndex(text string) markerIndex {
	idx := markerIndex{textLen: len(text)}
	for _, m := range markerRe.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		idx.markers = append(idx.markers, marker{offset: m[0], page: n})
		if n > idx.total {
			idx.total = n
		}
	}
	return idx
}

// pages returns the sorted page numbers touched by [start, end).
func (idx markerIndex) pages(start, end int) []int {
	if len(idx.markers) == 0 {
		return estimatePages(start, end, idx.textLen, 1)
	}
	seen := map[int]bool{}
	// Page in effect at start: the last marker at or before it.
	i := sort.Search(len(idx.markers), func(i int) bool { return idx.markers[i].offset > start })
	if i > 0 {
		seen[idx.markers[i-1].page] = true
	}
	for ; i < len(idx.markers) && idx.markers[i].offset < end; i++ {
		seen[idx.markers[i].page] = true
	}
	if len(seen) == 0 {
		// Text before the first marker belongs to page 1.
		seen[1] = true
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// ResolvePages maps a character range of text back to page numbers using the
// embedded "Page N:" markers. Without markers the pages are estimated from the
// range's relative position across totalPages.
func ResolvePages(text string, start, end, totalPages int) []int {
	idx := newMarkerIndex(text)
	if len(idx.markers) == 0 {
		return estimatePages(start, end, len(text), totalPages)
	}
	return idx.pages(start, end)
}

func estimatePages(start, end, textLen, totalPages int) []int {
	if totalPages < 1 {
		totalPages = 1
	}
	if textLen <= 0 {
		return []int{1}
	}
	first := start*totalPages/textLen + 1
	last := (end-1)*totalPages/textLen + 1
	if last < first {
		last = first
	}
	if last > totalPages {
		last = totalPages
	}
	if first > last {
		first = last
	}
	out := make([]int, 0, last-first+1)
	for p := first; p <= last; p++ {
		out = append(out, p)
	}
	return out
}
