package paginate

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestOptionsFromQuery_Defaults(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLimit int
		wantPage  int
	}{
		{"empty", "", 10, 1},
		{"valid", "limit=25&page=3", 25, 3},
		{"zero", "limit=0&page=0", 10, 1},
		{"negative", "limit=-5&page=-1", 10, 1},
		{"non numeric", "limit=abc&page=x1", 10, 1},
		{"leading digits", "limit=12abc&page=2x", 12, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			require.NoError(t, err)
			opts := OptionsFromQuery(q)
			assert.Equal(t, tc.wantLimit, opts.PageSize())
			assert.Equal(t, tc.wantPage, opts.PageNumber())
			assert.Equal(t, (tc.wantPage-1)*tc.wantLimit, opts.Skip())
		})
	}
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, []SortField{{Field: "createdAt"}}, ParseSort(""))
	assert.Equal(t, []SortField{
		{Field: "name", Desc: true},
		{Field: "email"},
		{Field: "role"},
	}, ParseSort("name:desc,email:asc,role:DESC"))
	assert.Equal(t, []SortField{{Field: "views", Desc: true}}, ParseSort(" views:desc , :desc"))
}

func TestParsePopulate(t *testing.T) {
	t.Run("shared prefixes merge", func(t *testing.T) {
		got := ParsePopulate("author.company,author.team,tags")
		assert.Equal(t, []PopulateNode{
			{Path: "author", Populate: []PopulateNode{{Path: "company"}, {Path: "team"}}},
			{Path: "tags"},
		}, got)
	})

	t.Run("later prefix turns node into leaf", func(t *testing.T) {
		got := ParsePopulate("author.company,author")
		assert.Equal(t, []PopulateNode{{Path: "author"}}, got)
	})

	t.Run("later deeper path expands leaf", func(t *testing.T) {
		got := ParsePopulate("author,author.company")
		assert.Equal(t, []PopulateNode{
			{Path: "author", Populate: []PopulateNode{{Path: "company"}}},
		}, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, ParsePopulate(""))
		assert.Nil(t, ParsePopulate(" , ."))
	})
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 7, 14},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, TotalPages(tc.total, tc.limit), "total=%d limit=%d", tc.total, tc.limit)
	}
}

func TestNewResult(t *testing.T) {
	r := NewResult[int](nil, 23, Options{Limit: 5, Page: 2})
	assert.Equal(t, []int{}, r.Results)
	assert.Equal(t, 2, r.Page)
	assert.Equal(t, 5, r.Limit)
	assert.Equal(t, 5, r.TotalPages)
	assert.Equal(t, int64(23), r.TotalResults)

	doubled := Map(NewResult([]int{1, 2}, 2, Options{}), func(i int) int { return i * 2 })
	assert.Equal(t, []int{2, 4}, doubled.Results)
	assert.Equal(t, 1, doubled.TotalPages)
}

func TestColumns_Clause(t *testing.T) {
	cols := Columns{"createdAt": "created_at", "name": "name", "email": "email"}

	assert.Equal(t, " ORDER BY created_at ASC LIMIT 10 OFFSET 0", cols.Clause(Options{}))
	assert.Equal(t, " ORDER BY name DESC, email ASC LIMIT 5 OFFSET 10",
		cols.Clause(Options{SortBy: "name:desc,email", Limit: 5, Page: 3}))
	assert.Equal(t, " ORDER BY created_at ASC LIMIT 10 OFFSET 0",
		cols.Clause(Options{SortBy: "password;DROP TABLE users:desc"}))
	assert.Equal(t, "", Columns{}.OrderBy(ParseSort("")))
}

func TestMongoSortAndLookups(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "title", Value: -1}, {Key: "createdAt", Value: 1}},
		MongoSort(ParseSort("title:desc,createdAt")))

	refs := map[string]Ref{
		"course": {Collection: "courses", Refs: map[string]Ref{
			"createdBy": {Collection: "users"},
		}},
		"likes": {Collection: "users", Many: true},
	}
	stages := LookupStages(ParsePopulate("course.createdBy,likes,unknown"), refs)
	// course: $lookup + $unwind, likes: $lookup only.
	require.Len(t, stages, 3)
	assert.Equal(t, "$lookup", stages[0][0].Key)
	assert.Equal(t, "$unwind", stages[1][0].Key)
	assert.Equal(t, "$lookup", stages[2][0].Key)

	lookup := stages[0][0].Value.(bson.D)
	assert.Equal(t, bson.E{Key: "from", Value: "courses"}, lookup[0])
	assert.Equal(t, bson.E{Key: "as", Value: "course"}, lookup[3])
	inner := lookup[2].Value.(mongo.Pipeline)
	assert.Len(t, inner, 3, "match plus nested createdBy lookup and unwind")
}

type doc struct {
	Title string `bson:"title"`
}

func TestMongo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("counts and fetches a page", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(12)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "title", Value: "a"}},
				bson.D{{Key: "title", Value: "b"}},
			),
		)

		res, err := Mongo[doc](context.Background(), mt.Coll, nil, Options{Limit: 5, Page: 3}, nil)
		require.NoError(mt, err)
		assert.Equal(mt, []doc{{Title: "a"}, {Title: "b"}}, res.Results)
		assert.Equal(mt, int64(12), res.TotalResults)
		assert.Equal(mt, 3, res.TotalPages)
		assert.Equal(mt, 3, res.Page)
		assert.LessOrEqual(mt, len(res.Results), res.Limit)
	})

	mt.Run("count failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "boom"}))

		_, err := Mongo[doc](context.Background(), mt.Coll, bson.D{}, Options{}, nil)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to count")
	})
}
