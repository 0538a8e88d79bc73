package model

import "time"

// Satellite is one catalog entry: a named TLE pair. It is owned by the
// catalog collaborator and only read by the propagation core.
type Satellite struct {
	ID    int // NORAD catalog number
	Name  string
	Line1 string
	Line2 string

	// Date is when the source published this element set; zero if unknown.
	Date time.Time
}

// HasTLE reports whether both TLE lines are present.
func (s *Satellite) HasTLE() bool {
	return s != nil && s.Line1 != "" && s.Line2 != ""
}

// Page is one page of a paginated satellite catalog.
type Page struct {
	Number     int
	PageSize   int
	TotalItems int
	Satellites []Satellite
	HasNext    bool
	HasPrev    bool
}

// LastPage returns the last page number implied by TotalItems and PageSize,
// or Number when the size is unknown.
func (p Page) LastPage() int {
	if p.PageSize <= 0 {
		return p.Number
	}
	last := (p.TotalItems + p.PageSize - 1) / p.PageSize
	if last < 1 {
		return 1
	}
	return last
}
