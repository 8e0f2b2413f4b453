package httpx

import (
	"math"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// maxOffset keeps offset+limit representable on every platform.
	maxOffset = math.MaxInt32 - MaxPageSize
)

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// Calculate clamps page and size and returns the matching offset and limit.
func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page-1 > maxOffset/size {
		page = maxOffset/size + 1
	}
	return (page - 1) * size, size
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasPrev    bool  `json:"hasPrev"`
	HasNext    bool  `json:"hasNext"`
}

func NewPageMeta(offset, limit int, total int64) PageMeta {
	return PageMeta{
		Page:       offset/limit + 1,
		Size:       limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
		HasPrev:    offset > 0,
		HasNext:    int64(offset+limit) < total,
	}
}
