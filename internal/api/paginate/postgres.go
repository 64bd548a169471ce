package paginate

import (
	"fmt"
	"strings"
)

// Columns maps sortable API field names to SQL columns. Fields missing from
// the map are never interpolated into a query.
type Columns map[string]string

// OrderBy renders an ORDER BY clause from the sortable columns. Unknown fields
// are dropped; if nothing remains the default creation-time order is used.
func (c Columns) OrderBy(fields []SortField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := c[f.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		col, ok := c[DefaultSortField]
		if !ok {
			return ""
		}
		parts = append(parts, col+" ASC")
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// Clause renders ORDER BY, LIMIT and OFFSET for opts.
func (c Columns) Clause(opts Options) string {
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", c.OrderBy(opts.Sort()), opts.PageSize(), opts.Skip())
}
