package util

import (
	"strconv"

	"github.com/Skotchmaster/plugtech/internal/repo"
	"github.com/Skotchmaster/plugtech/internal/transport"
)

const DefaultPageSize = repo.DefaultListLimit

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// Calculate turns a 1-based page and a size into an offset and limit. The
// size is capped at the repository maximum.
func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > repo.MaxListLimit {
		size = repo.MaxListLimit
	}
	return (page - 1) * size, size
}

func Meta(page, size int, total int64) transport.PageMeta {
	if page < 1 {
		page = 1
	}
	offset, limit := Calculate(page, size)
	return transport.PageMeta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
}
