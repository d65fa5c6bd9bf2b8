// Package paginate splits ordered result sets into numbered pages.
//
// A trailing remainder of up to Orphans items is absorbed into the previous
// page instead of forming its own near-empty page.
package paginate

import (
	"strconv"
	"strings"
)

// Paginator describes a page-size and orphan policy.
type Paginator struct {
	PerPage int
	Orphans int
}

// New returns a paginator; perPage below 1 is treated as 1 and negative
// orphans as 0.
func New(perPage, orphans int) Paginator {
	if perPage < 1 {
		perPage = 1
	}
	if orphans < 0 {
		orphans = 0
	}
	return Paginator{PerPage: perPage, Orphans: orphans}
}

// NumPages returns the page count for count items. There is always at least
// one (possibly empty) page.
func (p Paginator) NumPages(count int) int {
	if count <= 0 {
		return 1
	}
	hits := count - p.Orphans
	if hits < 1 {
		hits = 1
	}
	return 1 + (hits-1)/p.PerPage
}

// Window is the slice of a result set a page covers.
type Window struct {
	Number   int
	NumPages int
	Count    int
	Offset   int
	Limit    int
}

// HasNext reports whether a later page exists.
func (w Window) HasNext() bool { return w.Number < w.NumPages }

// HasPrevious reports whether an earlier page exists.
func (w Window) HasPrevious() bool { return w.Number > 1 }

// Window returns the bounds of page number, clamped into [1, NumPages].
func (p Paginator) Window(number, count int) Window {
	pages := p.NumPages(count)
	if number < 1 {
		number = 1
	}
	if number > pages {
		number = pages
	}
	bottom := (number - 1) * p.PerPage
	top := bottom + p.PerPage
	if top+p.Orphans >= count {
		top = count
	}
	limit := top - bottom
	if limit < 0 {
		limit = 0
	}
	return Window{Number: number, NumPages: pages, Count: count, Offset: bottom, Limit: limit}
}

// ParseNumber reads a 1-based page parameter. Blank or malformed values give
// 1; "last" gives a number large enough to be clamped to the last page.
func ParseNumber(raw string) int {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "last") {
		return int(^uint(0) >> 1)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Page is one page of items with navigation metadata.
type Page[T any] struct {
	Number      int  `json:"number"`
	NumPages    int  `json:"num_pages"`
	Count       int  `json:"count"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
	Items       []T  `json:"items"`
}

// NewPage wraps items fetched for w.
func NewPage[T any](w Window, items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Number:      w.Number,
		NumPages:    w.NumPages,
		Count:       w.Count,
		HasNext:     w.HasNext(),
		HasPrevious: w.HasPrevious(),
		Items:       items,
	}
}

// Slice pages an in-memory slice.
func Slice[T any](p Paginator, items []T, number int) Page[T] {
	w := p.Window(number, len(items))
	return NewPage(w, items[w.Offset:w.Offset+w.Limit])
}
