package paginate

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Ref describes a populatable reference held by a document field.
type Ref struct {
	// Collection the referenced documents live in.
	Collection string
	// Many is set when the field holds an array of ids.
	Many bool
	// Refs of the referenced documents, for nested populate paths.
	Refs map[string]Ref
}

// MongoSort renders sort fields as a sort document.
func MongoSort(fields []SortField) bson.D {
	sort := make(bson.D, 0, len(fields))
	for _, f := range fields {
		dir := 1
		if f.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: f.Field, Value: dir})
	}
	return sort
}

// MongoFindOptions applies sort, skip and limit to a find.
func MongoFindOptions(opts Options) *options.FindOptions {
	return options.Find().
		SetSort(MongoSort(opts.Sort())).
		SetSkip(int64(opts.Skip())).
		SetLimit(int64(opts.PageSize()))
}

// LookupStages builds the $lookup stages that load the populate tree.
// Paths without a known reference are ignored.
func LookupStages(nodes []PopulateNode, refs map[string]Ref) mongo.Pipeline {
	var stages mongo.Pipeline
	for _, node := range nodes {
		ref, ok := refs[node.Path]
		if !ok {
			continue
		}
		match := bson.D{{Key: "$eq", Value: bson.A{"$_id", "$$ref"}}}
		if ref.Many {
			match = bson.D{{Key: "$in", Value: bson.A{"$_id", bson.D{{Key: "$ifNull", Value: bson.A{"$$ref", bson.A{}}}}}}}
		}
		inner := mongo.Pipeline{
			{{Key: "$match", Value: bson.D{{Key: "$expr", Value: match}}}},
		}
		inner = append(inner, LookupStages(node.Populate, ref.Refs)...)

		stages = append(stages, bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: ref.Collection},
			{Key: "let", Value: bson.D{{Key: "ref", Value: "$" + node.Path}}},
			{Key: "pipeline", Value: inner},
			{Key: "as", Value: node.Path},
		}}})
		if !ref.Many {
			stages = append(stages, bson.D{{Key: "$unwind", Value: bson.D{
				{Key: "path", Value: "$" + node.Path},
				{Key: "preserveNullAndEmptyArrays", Value: true},
			}}})
		}
	}
	return stages
}

// MongoPipeline is the aggregation used when references must be populated.
func MongoPipeline(filter any, opts Options, refs map[string]Ref) mongo.Pipeline {
	if filter == nil {
		filter = bson.D{}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sort", Value: MongoSort(opts.Sort())}},
		{{Key: "$skip", Value: int64(opts.Skip())}},
		{{Key: "$limit", Value: int64(opts.PageSize())}},
	}
	return append(pipeline, LookupStages(ParsePopulate(opts.Populate), refs)...)
}

// Mongo counts and fetches one page of coll. References named in
// opts.Populate are loaded through $lookup.
func Mongo[T any](ctx context.Context, coll *mongo.Collection, filter any, opts Options, refs map[string]Ref) (*Result[T], error) {
	if filter == nil {
		filter = bson.D{}
	}
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", coll.Name(), err)
	}

	var cursor *mongo.Cursor
	if lookups := LookupStages(ParsePopulate(opts.Populate), refs); len(lookups) > 0 {
		cursor, err = coll.Aggregate(ctx, MongoPipeline(filter, opts, refs))
	} else {
		cursor, err = coll.Find(ctx, filter, MongoFindOptions(opts))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}

	var results []T
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return NewResult(results, total, opts), nil
}
