package model

// Pagination defaults for page/limit list endpoints
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxPage keeps (page-1)*limit well inside int range
	MaxPage = 1_000_000
)

// PageRequest is a 1-based page and a page size
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest applies defaults and clamps the limit
func NewPageRequest(page, limit int) PageRequest {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

// Start returns the number of rows to skip
func (p PageRequest) Start() int {
	return (p.Page - 1) * p.Limit
}

// Page is one page of results plus the total row count
type Page[T any] struct {
	Items []T
	Total int
	PageRequest
}

// HasMore reports whether rows exist beyond this page
func (p Page[T]) HasMore() bool {
	return p.Page*p.Limit < p.Total
}
