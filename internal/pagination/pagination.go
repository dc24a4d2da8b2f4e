// Package pagination reads page, limit and sort query parameters and applies
// them to in-memory lists. Without a limit the whole list is one page.
package pagination

import (
	"net/url"
	"strconv"
)

// Params represents pagination parameters extracted from a request.
type Params struct {
	Page   int    // Current page number (1-based)
	Limit  int    // Items per page; 0 means no limit
	Offset int    // Items skipped before the page
	Sort   string // "newest" or "oldest"
}

const (
	// MaxLimit is the maximum number of items allowed per page
	MaxLimit = 100
	// DefaultPage is the default page number when not specified
	DefaultPage = 1
	// DefaultSort is the default sort order when not specified
	DefaultSort = "newest"
)

func calculateOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

func isValidSort(sort string) bool {
	switch sort {
	case "newest", "oldest":
		return true
	default:
		return false
	}
}

// PaginationOption configures the defaults applied before the query is read.
type PaginationOption func(*Params)

// WithDefaultLimit returns a PaginationOption that sets the default limit.
// The limit is only applied if it's greater than 0.
func WithDefaultLimit(limit int) PaginationOption {
	return func(p *Params) {
		if limit > 0 {
			p.Limit = limit
		}
	}
}

// WithDefaultSort returns a PaginationOption that sets the default sort order.
// If the sort string is invalid, it returns a no-op option.
func WithDefaultSort(sort string) PaginationOption {
	if !isValidSort(sort) {
		return func(p *Params) {}
	}
	return func(p *Params) {
		p.Sort = sort
	}
}

// GetPaginationParams extracts pagination parameters from URL query values.
func GetPaginationParams(q url.Values, opts ...PaginationOption) Params {
	params := Params{
		Page: DefaultPage,
		Sort: DefaultSort,
	}

	for _, opt := range opts {
		opt(&params)
	}

	if pageStr := q.Get("page"); pageStr != "" {
		if val, err := strconv.Atoi(pageStr); err == nil && val > 0 {
			params.Page = val
		}
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		if val, err := strconv.Atoi(limitStr); err == nil && val > 0 {
			params.Limit = val
		}
	}

	// enforce max limit
	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}

	params.Offset = calculateOffset(params.Page, params.Limit)

	if sortStr := q.Get("sort"); sortStr != "" && isValidSort(sortStr) {
		params.Sort = sortStr
	}

	return params
}

// Apply returns the page of items selected by p.
func Apply[T any](items []T, p Params) []T {
	if p.Limit <= 0 {
		return items
	}
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

// GetHasNext determines if there are more items available after the current page.
func GetHasNext(p Params, count int) bool {
	if p.Limit <= 0 {
		return false
	}
	return (p.Offset + p.Limit) < count
}
