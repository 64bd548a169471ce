package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/learnhub-api/app/mongodb"
	"github.com/FACorreiaa/learnhub-api/app/observability/metrics"
	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

var _ BlogRepo = (*MongoBlogRepo)(nil)

type BlogRepo interface {
	Create(ctx context.Context, blog *types.Blog) error
	List(ctx context.Context, opts paginate.Options) (*paginate.Result[types.Blog], error)
	// View returns the blog after counting one more view.
	View(ctx context.Context, id primitive.ObjectID) (*types.Blog, error)
	Like(ctx context.Context, id primitive.ObjectID) (*types.Blog, error)
	AddComment(ctx context.Context, id primitive.ObjectID, comment types.BlogComment) (*types.Blog, error)
}

type MongoBlogRepo struct {
	logger  *slog.Logger
	coll    *mongo.Collection
	metrics *metrics.AppMetrics
}

func NewMongoBlogRepo(db *mongo.Database, m *metrics.AppMetrics, logger *slog.Logger) *MongoBlogRepo {
	return &MongoBlogRepo{
		logger:  logger,
		coll:    db.Collection(mongodb.Blogs),
		metrics: m,
	}
}

func (r *MongoBlogRepo) Create(ctx context.Context, blog *types.Blog) error {
	ctx, span := otel.Tracer("BlogRepo").Start(ctx, "Create")
	defer span.End()
	start := time.Now()

	now := time.Now().UTC()
	if blog.ID.IsZero() {
		blog.ID = primitive.NewObjectID()
	}
	if blog.Comments == nil {
		blog.Comments = []types.BlogComment{}
	}
	blog.CreatedAt, blog.UpdatedAt = now, now

	_, err := r.coll.InsertOne(ctx, blog)
	r.metrics.ObserveQuery(ctx, "mongodb", "blogs.create", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return fmt.Errorf("failed to insert blog: %w", err)
	}
	span.SetAttributes(attribute.String("blog.id", blog.ID.Hex()))
	span.SetStatus(codes.Ok, "blog created")
	return nil
}

func (r *MongoBlogRepo) List(ctx context.Context, opts paginate.Options) (*paginate.Result[types.Blog], error) {
	ctx, span := otel.Tracer("BlogRepo").Start(ctx, "List")
	defer span.End()
	start := time.Now()

	page, err := paginate.Mongo[types.Blog](ctx, r.coll, bson.D{}, opts, nil)
	r.metrics.ObserveQuery(ctx, "mongodb", "blogs.list", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "blogs listed")
	return page, nil
}

func (r *MongoBlogRepo) View(ctx context.Context, id primitive.ObjectID) (*types.Blog, error) {
	return r.update(ctx, "blogs.view", id, bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}}})
}

func (r *MongoBlogRepo) Like(ctx context.Context, id primitive.ObjectID) (*types.Blog, error) {
	return r.update(ctx, "blogs.like", id, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "likes", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	})
}

func (r *MongoBlogRepo) AddComment(ctx context.Context, id primitive.ObjectID, comment types.BlogComment) (*types.Blog, error) {
	return r.update(ctx, "blogs.comment", id, bson.D{
		{Key: "$push", Value: bson.D{{Key: "comments", Value: comment}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	})
}

// update applies an atomic update and returns the document after it.
func (r *MongoBlogRepo) update(ctx context.Context, op string, id primitive.ObjectID, update bson.D) (*types.Blog, error) {
	ctx, span := otel.Tracer("BlogRepo").Start(ctx, op, trace.WithAttributes(
		attribute.String("blog.id", id.Hex()),
	))
	defer span.End()
	start := time.Now()

	var blog types.Blog
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&blog)
	r.metrics.ObserveQuery(ctx, "mongodb", op, start, err)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("blog %s: %w", id.Hex(), api.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Blog update failed", slog.String("operation", op), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("error running %s: %w", op, err)
	}
	span.SetStatus(codes.Ok, "blog updated")
	return &blog, nil
}
