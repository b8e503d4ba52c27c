package dto

import (
	"math"

	"github.com/yamdb/yamdb-api/internal/repository"
)

const MaxPageSize = 100

// MaxPage keeps the computed row offset within 32 bits.
const MaxPage = math.MaxInt32 / MaxPageSize

// Pagination is a 1-based page request.
type Pagination struct {
	Page     int
	PageSize int
}

// Normalize clamps p into the valid range, falling back to defaultSize.
func (p Pagination) Normalize(defaultSize int) Pagination {
	if defaultSize <= 0 {
		defaultSize = 10
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Pagination) Options() repository.ListOptions {
	return repository.ListOptions{
		Offset: (p.Page - 1) * p.PageSize,
		Limit:  p.PageSize,
	}
}

// Page is the envelope every list endpoint responds with.
type Page[T any] struct {
	Count      int64 `json:"count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	Results    []T   `json:"results"`
}

func NewPage[T any](results []T, total int64, p Pagination) Page[T] {
	if results == nil {
		results = []T{}
	}
	totalPages := 0
	if p.PageSize > 0 {
		totalPages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return Page[T]{
		Count:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
		Results:    results,
	}
}

// MapSlice converts every element of in with fn.
func MapSlice[In, Out any](in []In, fn func(*In) Out) []Out {
	out := make([]Out, 0, len(in))
	for i := range in {
		out = append(out, fn(&in[i]))
	}
	return out
}
