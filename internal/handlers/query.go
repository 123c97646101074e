package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/dynexia/portal/internal/httpx"
)

// Every collection endpoint honors the same contract: select (field
// projection), sort (comma keys, "-" prefix for descending), page and limit.
const (
	defaultPageSize = 25
	maxPageSize     = 100
	defaultSort     = "-updated_at"
)

type ListParams struct {
	Page   int
	Limit  int
	Sort   string
	Select string
}

// ParseList reads the shared list parameters from the query string.
func ParseList(r *http.Request) ListParams {
	p := ListParams{Page: 1, Limit: defaultPageSize, Sort: defaultSort}
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			p.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxPageSize {
			p.Limit = n
		}
	}
	if v := strings.TrimSpace(q.Get("sort")); v != "" {
		p.Sort = v
	}
	p.Select = strings.TrimSpace(q.Get("select"))
	return p
}

func (p ListParams) Offset() int { return (p.Page - 1) * p.Limit }

// Apply adds ordering, projection, and paging to the query. Sort and select
// keys are checked against the allowed column set; unknown keys are dropped
// rather than passed into SQL.
func (p ListParams) Apply(q *gorm.DB, allowed map[string]bool) *gorm.DB {
	var order []string
	for _, key := range strings.Split(p.Sort, ",") {
		key = strings.TrimSpace(key)
		desc := strings.HasPrefix(key, "-")
		col := strings.TrimPrefix(key, "-")
		if !allowed[col] {
			continue
		}
		if desc {
			order = append(order, col+" desc")
		} else {
			order = append(order, col+" asc")
		}
	}
	if len(order) == 0 {
		order = []string{"updated_at desc"}
	}
	q = q.Order(strings.Join(order, ", "))

	if p.Select != "" {
		var cols []string
		for _, f := range strings.Split(p.Select, ",") {
			f = strings.TrimSpace(f)
			if allowed[f] {
				cols = append(cols, f)
			}
		}
		if len(cols) > 0 {
			// id always included so relations and links stay usable
			q = q.Select(append([]string{"id"}, cols...))
		}
	}
	return q.Limit(p.Limit).Offset(p.Offset())
}

// paginationMeta mirrors the original wire shape: next when more rows exist
// past this page, prev when the page is beyond the first.
func paginationMeta(total int64, p ListParams) *httpx.Pagination {
	meta := &httpx.Pagination{}
	if int64(p.Page*p.Limit) < total {
		meta.Next = &httpx.Page{Page: p.Page + 1, Limit: p.Limit}
	}
	if p.Page > 1 {
		meta.Prev = &httpx.Page{Page: p.Page - 1, Limit: p.Limit}
	}
	return meta
}
