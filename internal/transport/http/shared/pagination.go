package shared

import (
	"net/http"
	"strconv"
)

type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit/offset, or page/pageSize (1-based) when page is
// given. Invalid values fall back to the defaults; limit is capped at
// maxLimit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	q := r.URL.Query()
	page := positive(q.Get("page"), 0)
	p := Pagination{Limit: positive(q.Get("limit"), defaultLimit)}
	if page > 0 {
		p.Limit = positive(q.Get("pageSize"), p.Limit)
	}
	if maxLimit > 0 {
		p.Limit = min(p.Limit, maxLimit)
	}
	if page > 0 {
		p.Offset = (page - 1) * p.Limit
	} else if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		p.Offset = v
	}
	return p
}

func positive(raw string, fallback int) int {
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}

// SetTotal exposes the unpaginated row count of a list response.
func SetTotal(w http.ResponseWriter, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
}
