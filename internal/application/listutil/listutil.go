// Package listutil parses list-screen query parameters and computes pager links.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// PageSizeOptions are the selectable rows-per-page values.
var PageSizeOptions = []int{5, 10, 25, 50}

// Request is what a list-screen request asks the binding to do.
// The URL page number is 1-based; Page is the 0-based index, or -1 when absent.
type Request struct {
	Page      int
	PageSize  int // 0 when absent or not an allowed option
	Keyword   string
	Filters   map[string]string
	Submitted bool // the filter form was submitted
	Refresh   bool
}

// ParseRequest extracts list parameters from URL query values.
// PRE: filterKeys lists the allowed filter parameter names
// POST: Page >= -1; PageSize is 0 or one of PageSizeOptions
func ParseRequest(q url.Values, filterKeys ...string) Request {
	req := Request{
		Page:      -1,
		Keyword:   strings.TrimSpace(q.Get("q")),
		Filters:   make(map[string]string),
		Submitted: q.Get("filter") == "1",
		Refresh:   q.Get("refresh") == "1",
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil {
		req.Page = max(p-1, 0)
	}
	if n, err := strconv.Atoi(q.Get("size")); err == nil && slices.Contains(PageSizeOptions, n) {
		req.PageSize = n
	}
	for _, key := range filterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			req.Filters[key] = v
		}
	}
	return req
}

// Pager is the pagination metadata of one rendered page.
type Pager struct {
	Index    int // 0-based current page
	PageSize int
	Total    int
	Pages    int // at least 1
}

// NewPager computes pagination metadata.
// PRE: total >= 0
// POST: Pages >= 1; a non-positive pageSize uses the smallest option
func NewPager(index, pageSize, total int) Pager {
	if pageSize < 1 {
		pageSize = PageSizeOptions[0]
	}
	pages := max((total+pageSize-1)/pageSize, 1)
	return Pager{Index: max(index, 0), PageSize: pageSize, Total: total, Pages: pages}
}

// Number returns the 1-based current page number.
func (p Pager) Number() int {
	return p.Index + 1
}

// StartRow returns the 1-based first row number, 0 when empty.
func (p Pager) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return min(p.Index*p.PageSize+1, p.Total)
}

// EndRow returns the 1-based last row number on the current page.
func (p Pager) EndRow() int {
	return min((p.Index+1)*p.PageSize, p.Total)
}

// HasPrev reports whether a previous page exists.
func (p Pager) HasPrev() bool {
	return p.Index > 0
}

// HasNext reports whether a next page exists.
func (p Pager) HasNext() bool {
	return p.Index+1 < p.Pages
}

// Numbers returns at most 5 page numbers (1-based) centered on the current page.
func (p Pager) Numbers() []int {
	const maxButtons = 5
	cur := p.Number()
	start := max(cur-maxButtons/2, 1)
	end := start + maxButtons - 1
	if end > p.Pages {
		end = p.Pages
		start = max(end-maxButtons+1, 1)
	}
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out
}

// Query returns the query string of page number n (1-based) at the current page size.
func (p Pager) Query(n int) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(n))
	v.Set("size", strconv.Itoa(p.PageSize))
	return v.Encode()
}
