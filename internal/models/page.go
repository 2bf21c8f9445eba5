package models

const (
	// DefaultPage is used when no page is requested.
	DefaultPage = 1
	// DefaultLimit is used when no page size is requested.
	DefaultLimit = 20
	// MaxLimit caps the page size.
	MaxLimit = 100
)

// Page is an offset pagination request.
type Page struct {
	Page  int
	Limit int
}

// Normalize replaces out-of-range values with defaults and caps the limit.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination describes the position of a page inside the full result set.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// NewPagination computes the pagination block for p over total rows.
func NewPagination(p Page, total int64) Pagination {
	limit := int64(p.Limit)
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
}

// ReportList is one page of reports.
type ReportList struct {
	Data       []Report   `json:"data"`
	Pagination Pagination `json:"pagination"`
}
