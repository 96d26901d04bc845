package shared

// Pagination normalises page/page-size query input.
type Pagination struct {
	Page     int
	PageSize int
}

// Normalize clamps the pagination to sane bounds.
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}
