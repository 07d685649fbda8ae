package domain

import "strconv"

const (
	// DefaultPageLimit is used when the caller does not ask for a page size.
	DefaultPageLimit = 20
	// MaxPageLimit caps the page size a caller may request.
	MaxPageLimit = 100
)

// PageRequest carries page/limit values from the HTTP layer to the repo layer.
// Page is 1-indexed.
type PageRequest struct {
	Page  int
	Limit int
}

// ParsePageRequest builds a PageRequest from raw query values.
// Missing, malformed or non-positive values fall back to page 1 and
// DefaultPageLimit; the limit is capped at MaxPageLimit.
func ParsePageRequest(page, limit string) PageRequest {
	p := PageRequest{Page: 1, Limit: DefaultPageLimit}
	if n, err := strconv.Atoi(page); err == nil && n >= 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(limit); err == nil && n >= 1 {
		p.Limit = min(n, MaxPageLimit)
	}
	return p
}

// Offset returns the zero-based row offset for a SQL OFFSET clause.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}
