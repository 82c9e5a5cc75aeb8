package model

// Sort directions
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Sort keys accepted from clients. Repositories map them to columns.
const (
	SortPrice     = "price"
	SortName      = "name"
	SortCreatedAt = "created_at"
	SortTotal     = "total"
)

var (
	SweetSortKeys    = []string{SortPrice, SortName, SortCreatedAt}
	PurchaseSortKeys = []string{SortCreatedAt, SortTotal}
)

// PageQuery is a validated pagination and ordering request
type PageQuery struct {
	Page  int
	Limit int
	Sort  string
	Dir   string
}

// Offset returns the number of rows preceding the requested page
func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Descending reports whether the sort direction is descending
func (q PageQuery) Descending() bool {
	return q.Dir == SortDesc
}

// SweetQuery filters the catalog
type SweetQuery struct {
	PageQuery
	Name     string
	Category Category
	MinPrice *int64
	MaxPrice *int64
}

// Page is one window of a sorted result set
type Page[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// NewPage builds the page envelope from a window and the total row count
func NewPage[T any](data []T, q PageQuery, total int64) Page[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if q.Limit > 0 {
		totalPages = int((total + int64(q.Limit) - 1) / int64(q.Limit))
	}
	return Page[T]{
		Data:       data,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    int64(q.Offset()+len(data)) < total,
	}
}
