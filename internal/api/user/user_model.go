package user

import (
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

// maxFetchLimit caps the page size of the admin listing.
const maxFetchLimit = 100

// FetchUsersRequest is the body of the admin listing. Non-positive limit
// and page fall back to the paginator defaults.
type FetchUsersRequest struct {
	types.UserFilter
	SortBy  string `json:"sortBy,omitempty" validate:"omitempty,oneof=name email role createdAt updatedAt"`
	OrderBy string `json:"orderBy,omitempty" validate:"omitempty,oneof=asc desc"`
	Limit   int    `json:"limit,omitempty"`
	Page    int    `json:"page,omitempty"`
}

// Options converts sortBy/orderBy into the field:direction form the
// paginator reads. Newest users come first unless told otherwise.
func (r FetchUsersRequest) Options() paginate.Options {
	opts := paginate.Options{Limit: min(r.Limit, maxFetchLimit), Page: r.Page}
	field := r.SortBy
	if field == "" {
		field = paginate.DefaultSortField
	}
	order := r.OrderBy
	if order == "" {
		order = "desc"
	}
	opts.SortBy = field + ":" + order
	return opts
}
