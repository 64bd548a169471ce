package payment

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

// paymentRefs are the populatable references of a payment.
var paymentRefs = map[string]paginate.Ref{
	"course": {Collection: mongodb.Courses},
}

var _ PaymentRepo = (*MongoPaymentRepo)(nil)

type PaymentRepo interface {
	Create(ctx context.Context, p *types.Payment) error
	List(ctx context.Context, filter types.PaymentFilter, opts paginate.Options) (*paginate.Result[types.Payment], error)
	// Get loads one payment, populating the paths named in populate.
	Get(ctx context.Context, id primitive.ObjectID, populate string) (*types.Payment, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, params types.UpdatePaymentStatusParams) (*types.Payment, error)
}

type MongoPaymentRepo struct {
	logger  *slog.Logger
	coll    *mongo.Collection
	metrics *metrics.AppMetrics
}

func NewMongoPaymentRepo(db *mongo.Database, m *metrics.AppMetrics, logger *slog.Logger) *MongoPaymentRepo {
	return &MongoPaymentRepo{
		logger:  logger,
		coll:    db.Collection(mongodb.Payments),
		metrics: m,
	}
}

func filterDoc(f types.PaymentFilter) bson.D {
	doc := bson.D{}
	if f.UserID != "" {
		doc = append(doc, bson.E{Key: "user", Value: f.UserID})
	}
	if f.Course != nil {
		doc = append(doc, bson.E{Key: "course", Value: *f.Course})
	}
	if f.Status != "" {
		doc = append(doc, bson.E{Key: "status", Value: f.Status})
	}
	return doc
}

func (r *MongoPaymentRepo) Create(ctx context.Context, p *types.Payment) error {
	ctx, span := otel.Tracer("PaymentRepo").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("payment.user", p.UserID),
	))
	defer span.End()
	start := time.Now()

	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.coll.InsertOne(ctx, p)
	r.metrics.ObserveQuery(ctx, "mongodb", "payments.create", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	span.SetStatus(codes.Ok, "payment created")
	return nil
}

func (r *MongoPaymentRepo) List(ctx context.Context, filter types.PaymentFilter, opts paginate.Options) (*paginate.Result[types.Payment], error) {
	ctx, span := otel.Tracer("PaymentRepo").Start(ctx, "List")
	defer span.End()
	start := time.Now()

	page, err := paginate.Mongo[types.Payment](ctx, r.coll, filterDoc(filter), opts, paymentRefs)
	r.metrics.ObserveQuery(ctx, "mongodb", "payments.list", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "payments listed")
	return page, nil
}

func (r *MongoPaymentRepo) Get(ctx context.Context, id primitive.ObjectID, populate string) (*types.Payment, error) {
	start := time.Now()
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}},
		{{Key: "$limit", Value: 1}},
	}
	pipeline = append(pipeline, paginate.LookupStages(paginate.ParsePopulate(populate), paymentRefs)...)

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		r.metrics.ObserveQuery(ctx, "mongodb", "payments.get", start, err)
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	var found []types.Payment
	err = cursor.All(ctx, &found)
	r.metrics.ObserveQuery(ctx, "mongodb", "payments.get", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payment: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("payment %s: %w", id.Hex(), api.ErrNotFound)
	}
	return &found[0], nil
}

func (r *MongoPaymentRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, params types.UpdatePaymentStatusParams) (*types.Payment, error) {
	ctx, span := otel.Tracer("PaymentRepo").Start(ctx, "UpdateStatus", trace.WithAttributes(
		attribute.String("payment.id", id.Hex()),
		attribute.String("payment.status", string(params.Status)),
	))
	defer span.End()
	start := time.Now()

	set := bson.D{
		{Key: "status", Value: params.Status},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}
	if params.TransactionID != "" {
		set = append(set, bson.E{Key: "transactionId", Value: params.TransactionID})
	}
	if params.Transaction != nil {
		set = append(set, bson.E{Key: "transaction", Value: params.Transaction})
	}

	var p types.Payment
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	r.metrics.ObserveQuery(ctx, "mongodb", "payments.update_status", start, err)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("payment %s: %w", id.Hex(), api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	span.SetStatus(codes.Ok, "status updated")
	return &p, nil
}
