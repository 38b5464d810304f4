package listing

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/shared"
)

// Params is the list state carried in the URL.
type Params struct {
	Page    int               `json:"page"`
	Search  string            `json:"search,omitempty"`
	Sort    []string          `json:"sort,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

// MaxPage is the highest page accepted from the URL.
const MaxPage = 1 << 20

// ParseQuery reads the list state of r from q. Invalid values are treated
// as absent.
func ParseQuery(r Resource, q url.Values) Params {
	p := Params{}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page >= 0 && page <= MaxPage {
		p.Page = page
	}
	p.Search = strings.TrimSpace(q.Get("search"))
	for _, field := range strings.Split(q.Get("sort"), ",") {
		field = strings.TrimSpace(field)
		if sortPattern.MatchString(field) {
			p.Sort = append(p.Sort, field)
		}
	}
	for _, f := range r.Filters() {
		value := strings.TrimSpace(q.Get(f.Key))
		if value == "" || !f.Kind.Valid(value) {
			continue
		}
		if p.Filters == nil {
			p.Filters = make(map[string]string)
		}
		p.Filters[f.Key] = value
	}
	return p
}

// HasState reports whether q carries any list state for r.
func HasState(r Resource, q url.Values) bool {
	for _, key := range []string{"page", "search", "sort"} {
		if q.Has(key) {
			return true
		}
	}
	for _, f := range r.Filters() {
		if q.Has(f.Key) {
			return true
		}
	}
	return false
}

// Query renders p back into URL state. Defaults are omitted.
func (p Params) Query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if len(p.Sort) > 0 {
		q.Set("sort", strings.Join(p.Sort, ","))
	}
	keys := make([]string, 0, len(p.Filters))
	for key := range p.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		q.Set(key, p.Filters[key])
	}
	return q
}

// Pagination returns the page window for perPage rows and total results.
func (p Params) Pagination(perPage, total int) shared.Pagination {
	return shared.NewPagination(p.Page, perPage, total)
}

// Options converts p into backend list options.
func (p Params) Options(perPage int) backend.ListOptions {
	page := p.Pagination(perPage, 0)
	opts := backend.ListOptions{
		Limit:  page.PerPage,
		Offset: page.Offset(),
		Search: p.Search,
		Sort:   append([]string(nil), p.Sort...),
	}
	if len(p.Filters) > 0 {
		opts.Filters = make(map[string]string, len(p.Filters))
		for k, v := range p.Filters {
			opts.Filters[k] = v
		}
	}
	return opts
}
