package services

import (
	"math"

	"gorm.io/gorm"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100

	// MaxPage keeps Offset well inside the int range.
	MaxPage = math.MaxInt32 / MaxPerPage
)

// Page is a normalized page request.
type Page struct {
	Number  int
	PerPage int
}

// NewPage clamps page to 1..MaxPage and perPage to 1..MaxPerPage, falling
// back to def when perPage is not positive.
func NewPage(page, perPage, def int) Page {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = def
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Page{Number: page, PerPage: perPage}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

func (p Page) Scope(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.PerPage)
}

// PageInfo is the pagination block of list responses.
type PageInfo struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

func (p Page) Info(total int64) PageInfo {
	pages := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	return PageInfo{
		Page:       p.Number,
		PerPage:    p.PerPage,
		TotalPages: pages,
		TotalItems: total,
	}
}
