package sanitize

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type address struct {
	City   string `json:"city"`
	Secret string `json:"secret" private:"true"`
}

type account struct {
	ID        uuid.UUID  `json:"_id"`
	Email     string     `json:"email"`
	Password  string     `json:"password" private:"true"`
	Address   *address   `json:"address,omitempty"`
	Past      []address  `json:"past"`
	CreatedBy *uuid.UUID `json:"createdBy,omitempty"`
	Version   int        `json:"__v"`
	Ignored   string     `json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
}

func TestValue_Struct(t *testing.T) {
	id := uuid.New()
	actor := uuid.New()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	got := Struct(account{
		ID:        id,
		Email:     "a@x.com",
		Password:  "hash",
		Address:   &address{City: "Lisbon", Secret: "s"},
		Past:      []address{{City: "Porto", Secret: "s2"}},
		CreatedBy: &actor,
		Version:   3,
		Ignored:   "x",
		CreatedAt: created,
	})

	assert.Equal(t, map[string]any{
		"id":        id.String(),
		"email":     "a@x.com",
		"address":   map[string]any{"city": "Lisbon"},
		"past":      []any{map[string]any{"city": "Porto"}},
		"createdBy": actor.String(),
		"createdAt": created,
	}, got)
}

func TestValue_BSONDocument(t *testing.T) {
	oid := primitive.NewObjectID()
	author := primitive.NewObjectID()
	schema := NewSchema("token").WithRef("author", NewSchema("password"))

	doc := bson.M{
		"_id":       oid,
		"title":     "hello",
		"token":     "t",
		"__v":       int32(2),
		"createdBy": author,
		"author": bson.M{
			"_id":      author,
			"name":     "ann",
			"password": "p",
			"token":    "kept under the ref schema",
		},
		"comments": bson.A{
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "token", Value: "x"}, {Key: "text", Value: "hi"}},
		},
	}

	got, ok := Value(doc, schema).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, oid.Hex(), got["id"])
	assert.Equal(t, author.Hex(), got["createdBy"])
	assert.NotContains(t, got, "_id")
	assert.NotContains(t, got, "__v")
	assert.NotContains(t, got, "token")

	authorOut := got["author"].(map[string]any)
	assert.Equal(t, author.Hex(), authorOut["id"])
	assert.NotContains(t, authorOut, "password")
	assert.Equal(t, "kept under the ref schema", authorOut["token"])

	comments := got["comments"].([]any)
	require.Len(t, comments, 1)
	comment := comments[0].(map[string]any)
	assert.Equal(t, "hi", comment["text"])
	assert.NotContains(t, comment, "token")
	assert.Contains(t, comment, "id")
}

func TestValue_StorageIDWinsOverID(t *testing.T) {
	oid := primitive.NewObjectID()

	// map iteration order varies between runs
	for i := 0; i < 50; i++ {
		got := Value(bson.M{"_id": oid, "id": "other", "title": "t"}, nil).(map[string]any)
		require.Equal(t, oid.Hex(), got["id"])
		assert.NotContains(t, got, "_id")
	}

	got := Value(bson.D{{Key: "_id", Value: oid}, {Key: "id", Value: "other"}}, nil).(map[string]any)
	assert.Equal(t, oid.Hex(), got["id"])
}

func TestValue_Idempotent(t *testing.T) {
	actor := uuid.New()
	inputs := []struct {
		name   string
		in     any
		schema *Schema
	}{
		{"struct", account{ID: uuid.New(), Email: "b@x.com", Password: "p", CreatedBy: &actor, Past: []address{{City: "c"}}}, SchemaOf(account{})},
		{"bson", bson.M{"_id": primitive.NewObjectID(), "nested": bson.M{"secret": 1, "deep": bson.A{bson.M{"secret": 2, "k": "v"}}}}, NewSchema("secret")},
		{"slice", []any{map[string]any{"_id": "abc", "__v": 1}, nil, "plain"}, nil},
		{"scalar", 42, nil},
		{"nil", nil, nil},
	}

	for _, tc := range inputs {
		t.Run(tc.name, func(t *testing.T) {
			once := Value(tc.in, tc.schema)
			twice := Value(once, tc.schema)
			assert.Equal(t, once, twice)
		})
	}
}

func TestValue_RemovesPrivateAtEveryDepth(t *testing.T) {
	schema := NewSchema("secret")
	in := map[string]any{
		"secret": 1,
		"a": map[string]any{
			"secret": 2,
			"b": []any{
				map[string]any{"secret": 3, "keep": true},
			},
		},
		"keep": "yes",
	}

	got := Value(in, schema).(map[string]any)
	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": []any{map[string]any{"keep": true}},
		},
		"keep": "yes",
	}, got)
}

func TestSchemaOf(t *testing.T) {
	s := SchemaOf(&account{})
	assert.True(t, s.IsPrivate("password"))
	assert.True(t, s.IsPrivate("secret"), "nested struct tags are collected")
	assert.False(t, s.IsPrivate("email"))
	assert.ElementsMatch(t, []string{"password", "secret"}, s.Private())

	assert.Same(t, s, SchemaOf(account{}))
	assert.Empty(t, SchemaOf(3).Private())
}

func TestSlice(t *testing.T) {
	items := []address{{City: "a", Secret: "x"}, {City: "b"}}
	got := Slice(items, nil)
	assert.Equal(t, []any{
		map[string]any{"city": "a"},
		map[string]any{"city": "b"},
	}, got)
}
