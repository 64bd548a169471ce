package paginate

// Result is one page of a list query.
type Result[T any] struct {
	Results      []T   `json:"results"`
	Page         int   `json:"page"`
	Limit        int   `json:"limit"`
	TotalPages   int   `json:"totalPages"`
	TotalResults int64 `json:"totalResults"`
}

// NewResult assembles the page envelope for results fetched with opts.
func NewResult[T any](results []T, totalResults int64, opts Options) *Result[T] {
	if results == nil {
		results = []T{}
	}
	limit := opts.PageSize()
	return &Result[T]{
		Results:      results,
		Page:         opts.PageNumber(),
		Limit:        limit,
		TotalPages:   TotalPages(totalResults, limit),
		TotalResults: totalResults,
	}
}

// Map converts the results of a page, keeping its counters.
func Map[T, U any](r *Result[T], fn func(T) U) *Result[U] {
	out := make([]U, 0, len(r.Results))
	for _, item := range r.Results {
		out = append(out, fn(item))
	}
	return &Result[U]{
		Results:      out,
		Page:         r.Page,
		Limit:        r.Limit,
		TotalPages:   r.TotalPages,
		TotalResults: r.TotalResults,
	}
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}
