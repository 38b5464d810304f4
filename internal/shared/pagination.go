package shared

import "math"

// Pagination contains metadata for paginated listings. Pages are zero based.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata. Pages whose offset would
// overflow fall back to the first page.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 10
	}
	if page < 0 || page > math.MaxInt/perPage {
		page = 0
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the index of the first row of the page.
func (p Pagination) Offset() int {
	return p.Page * p.PerPage
}
