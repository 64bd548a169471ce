package course

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

var _ CourseRepo = (*MongoCourseRepo)(nil)

type CourseRepo interface {
	// Create inserts a course. A taken slug yields api.ErrAlreadyExists.
	Create(ctx context.Context, course *types.Course) error
	List(ctx context.Context, filter bson.D, opts paginate.Options) (*paginate.Result[types.Course], error)
	Get(ctx context.Context, id primitive.ObjectID) (*types.Course, error)
	// Update applies a $set and returns the updated course.
	Update(ctx context.Context, id primitive.ObjectID, set bson.D) (*types.Course, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type MongoCourseRepo struct {
	logger  *slog.Logger
	coll    *mongo.Collection
	metrics *metrics.AppMetrics
}

func NewMongoCourseRepo(db *mongo.Database, m *metrics.AppMetrics, logger *slog.Logger) *MongoCourseRepo {
	return &MongoCourseRepo{
		logger:  logger,
		coll:    db.Collection(mongodb.Courses),
		metrics: m,
	}
}

func (r *MongoCourseRepo) Create(ctx context.Context, course *types.Course) error {
	ctx, span := otel.Tracer("CourseRepo").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("course.slug", course.Slug),
	))
	defer span.End()
	start := time.Now()

	now := time.Now().UTC()
	if course.ID.IsZero() {
		course.ID = primitive.NewObjectID()
	}
	if course.Tasks == nil {
		course.Tasks = []types.CourseTask{}
	}
	course.CreatedAt, course.UpdatedAt = now, now

	_, err := r.coll.InsertOne(ctx, course)
	r.metrics.ObserveQuery(ctx, "mongodb", "courses.create", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("course slug %q: %w", course.Slug, api.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert course: %w", err)
	}
	span.SetStatus(codes.Ok, "course created")
	return nil
}

func (r *MongoCourseRepo) List(ctx context.Context, filter bson.D, opts paginate.Options) (*paginate.Result[types.Course], error) {
	ctx, span := otel.Tracer("CourseRepo").Start(ctx, "List")
	defer span.End()
	start := time.Now()

	page, err := paginate.Mongo[types.Course](ctx, r.coll, filter, opts, nil)
	r.metrics.ObserveQuery(ctx, "mongodb", "courses.list", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "courses listed")
	return page, nil
}

func (r *MongoCourseRepo) Get(ctx context.Context, id primitive.ObjectID) (*types.Course, error) {
	start := time.Now()
	var course types.Course
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&course)
	r.metrics.ObserveQuery(ctx, "mongodb", "courses.get", start, err)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("course %s: %w", id.Hex(), api.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}
	return &course, nil
}

func (r *MongoCourseRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.D) (*types.Course, error) {
	ctx, span := otel.Tracer("CourseRepo").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("course.id", id.Hex()),
	))
	defer span.End()
	start := time.Now()

	set = append(set, bson.E{Key: "updatedAt", Value: time.Now().UTC()})
	update := bson.D{
		{Key: "$set", Value: set},
		{Key: "$inc", Value: bson.D{{Key: "__v", Value: 1}}},
	}
	var course types.Course
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&course)
	r.metrics.ObserveQuery(ctx, "mongodb", "courses.update", start, err)
	switch {
	case err == nil:
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("course %s: %w", id.Hex(), api.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return nil, fmt.Errorf("course slug: %w", api.ErrAlreadyExists)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	span.SetStatus(codes.Ok, "course updated")
	return &course, nil
}

func (r *MongoCourseRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	start := time.Now()
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	r.metrics.ObserveQuery(ctx, "mongodb", "courses.delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("course %s: %w", id.Hex(), api.ErrNotFound)
	}
	return nil
}
