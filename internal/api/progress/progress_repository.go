package progress

import (
	"context"
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
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

// TrackUpdate is one progress report for a (user, course, task) triple.
type TrackUpdate struct {
	UserID  string
	Course  primitive.ObjectID
	Task    primitive.ObjectID
	Seconds int64
	Status  types.ProgressStatus
}

var _ ProgressRepo = (*MongoProgressRepo)(nil)

type ProgressRepo interface {
	Track(ctx context.Context, u TrackUpdate) (*types.UserTaskProgress, error)
	List(ctx context.Context, userID string, course *primitive.ObjectID) ([]types.UserTaskProgress, error)
}

type MongoProgressRepo struct {
	logger  *slog.Logger
	coll    *mongo.Collection
	metrics *metrics.AppMetrics
}

func NewMongoProgressRepo(db *mongo.Database, m *metrics.AppMetrics, logger *slog.Logger) *MongoProgressRepo {
	return &MongoProgressRepo{
		logger:  logger,
		coll:    db.Collection(mongodb.UserTaskProgress),
		metrics: m,
	}
}

// trackUpdate builds the upsert document. Time accumulates; a missing status
// leaves an existing record alone and starts a new one as in-progress.
func trackUpdate(u TrackUpdate, now time.Time) bson.D {
	set := bson.D{{Key: "updatedAt", Value: now}}
	onInsert := bson.D{{Key: "createdAt", Value: now}, {Key: "__v", Value: 0}}
	if u.Status != "" {
		set = append(set, bson.E{Key: "status", Value: u.Status})
	} else {
		onInsert = append(onInsert, bson.E{Key: "status", Value: types.ProgressInProgress})
	}
	return bson.D{
		{Key: "$inc", Value: bson.D{{Key: "time", Value: u.Seconds}}},
		{Key: "$set", Value: set},
		{Key: "$setOnInsert", Value: onInsert},
	}
}

func (r *MongoProgressRepo) Track(ctx context.Context, u TrackUpdate) (*types.UserTaskProgress, error) {
	ctx, span := otel.Tracer("ProgressRepo").Start(ctx, "Track", trace.WithAttributes(
		attribute.String("progress.user", u.UserID),
		attribute.String("progress.course", u.Course.Hex()),
		attribute.String("progress.task", u.Task.Hex()),
	))
	defer span.End()
	start := time.Now()

	filter := bson.D{
		{Key: "user", Value: u.UserID},
		{Key: "course", Value: u.Course},
		{Key: "task", Value: u.Task},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var p types.UserTaskProgress
	err := r.coll.FindOneAndUpdate(ctx, filter, trackUpdate(u, time.Now().UTC()), opts).Decode(&p)
	if mongo.IsDuplicateKeyError(err) {
		// Two concurrent upserts raced on the unique index; the loser now
		// finds the winner's document.
		err = r.coll.FindOneAndUpdate(ctx, filter, trackUpdate(u, time.Now().UTC()), opts).Decode(&p)
	}
	r.metrics.ObserveQuery(ctx, "mongodb", "progress.track", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return nil, fmt.Errorf("failed to track progress: %w", err)
	}
	span.SetStatus(codes.Ok, "progress tracked")
	return &p, nil
}

func (r *MongoProgressRepo) List(ctx context.Context, userID string, course *primitive.ObjectID) ([]types.UserTaskProgress, error) {
	start := time.Now()
	filter := bson.D{{Key: "user", Value: userID}}
	if course != nil {
		filter = append(filter, bson.E{Key: "course", Value: *course})
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		r.metrics.ObserveQuery(ctx, "mongodb", "progress.list", start, err)
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	records := []types.UserTaskProgress{}
	err = cursor.All(ctx, &records)
	r.metrics.ObserveQuery(ctx, "mongodb", "progress.list", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return records, nil
}
