package shared

import (
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// ListFilters is the fixed set of list predicates masterdata repositories
// recognise. Queries bind every filter as a parameter; an unset field (zero
// value or nil) disables its predicate.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortDir string

	IsActive   *bool
	CategoryID *int64
	Kind       string
}

// Offset converts page/limit to a row offset.
func (f ListFilters) Offset() int {
	page := f.Page
	if page < DefaultPage {
		page = DefaultPage
	}
	limit := f.PageLimit()
	return (page - 1) * limit
}

// PageLimit returns the effective page size.
func (f ListFilters) PageLimit() int {
	if f.Limit < 1 {
		return DefaultLimit
	}
	return f.Limit
}

// ActiveParam flattens the optional IsActive filter for fixed-predicate SQL:
// -1 disables the predicate, 0 matches inactive, 1 matches active.
func (f ListFilters) ActiveParam() int {
	if f.IsActive == nil {
		return -1
	}
	if *f.IsActive {
		return 1
	}
	return 0
}

// CategoryParam flattens the optional CategoryID filter; 0 disables it.
func (f ListFilters) CategoryParam() int64 {
	if f.CategoryID == nil {
		return 0
	}
	return *f.CategoryID
}

// SortDesc reports whether results should be sorted descending.
func (f ListFilters) SortDesc() bool {
	return f.SortDir == "desc"
}

// ParseListFilters reads the standard list parameters from a query string.
func ParseListFilters(q url.Values) ListFilters {
	f := ListFilters{
		Search:  q.Get("search"),
		SortDir: q.Get("dir"),
		Kind:    q.Get("kind"),
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	if raw := q.Get("category_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.CategoryID = &id
		}
	}
	if raw := q.Get("is_active"); raw != "" {
		active := raw == "true"
		f.IsActive = &active
	}
	return f
}
