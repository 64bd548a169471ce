// Package paginate turns list options into sort, skip and limit instructions
// for the stores and assembles the page envelope returned to clients.
package paginate

import (
	"net/url"
	"strings"
)

const (
	DefaultLimit     = 10
	DefaultPage      = 1
	DefaultSortField = "createdAt"
)

// Options are the list parameters accepted by every paginated endpoint.
type Options struct {
	SortBy   string `json:"sortBy,omitempty"`
	Populate string `json:"populate,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// SortField is one `field:direction` pair of a sortBy expression.
type SortField struct {
	Field string
	Desc  bool
}

// OptionsFromQuery reads sortBy, populate, limit and page from a query
// string. Values that are not numbers are treated as absent.
func OptionsFromQuery(q url.Values) Options {
	return Options{
		SortBy:   q.Get("sortBy"),
		Populate: q.Get("populate"),
		Limit:    parseInt(q.Get("limit")),
		Page:     parseInt(q.Get("page")),
	}
}

// PageSize is the effective limit.
func (o Options) PageSize() int {
	if o.Limit > 0 {
		return o.Limit
	}
	return DefaultLimit
}

// PageNumber is the effective 1-based page.
func (o Options) PageNumber() int {
	if o.Page > 0 {
		return o.Page
	}
	return DefaultPage
}

// Skip is the number of records before the requested page.
func (o Options) Skip() int {
	return (o.PageNumber() - 1) * o.PageSize()
}

// Sort parses SortBy. Without one, records are ordered by creation time,
// oldest first.
func (o Options) Sort() []SortField {
	return ParseSort(o.SortBy)
}

// ParseSort splits "name:desc,createdAt" into sort fields. Only the literal
// "desc" reverses a field.
func ParseSort(sortBy string) []SortField {
	var fields []SortField
	for _, option := range strings.Split(sortBy, ",") {
		parts := strings.Split(strings.TrimSpace(option), ":")
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		desc := len(parts) > 1 && strings.TrimSpace(parts[1]) == "desc"
		fields = append(fields, SortField{Field: key, Desc: desc})
	}
	if len(fields) == 0 {
		return []SortField{{Field: DefaultSortField}}
	}
	return fields
}

// parseInt reads the leading integer of s: "12abc" is 12, "abc" is 0.
func parseInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		if n > 1<<31 {
			return 0
		}
	}
	if neg {
		return -n
	}
	return n
}
