package model

// Pagination is the envelope returned by every list endpoint.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// NewPagination computes the envelope from page/limit against the total count
// and the number of rows actually returned for the page.
func NewPagination(page, limit, total, returned int) Pagination {
	if limit <= 0 {
		limit = 1
	}
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	skip := (page - 1) * limit
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNext:     skip+returned < total,
		HasPrev:     page > 1,
	}
}
