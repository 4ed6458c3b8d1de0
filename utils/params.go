package utils

import (
	"net/http"
	"strconv"
)

// Pagination holds the page/limit query values with defaults applied.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) Skip() int64 {
	return int64((p.Page - 1) * p.Limit)
}

func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return Pagination{Page: page, Limit: limit}
}

// TotalPages returns the page count for a given document total.
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return pages
}
