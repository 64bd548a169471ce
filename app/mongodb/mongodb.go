package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	Blogs            = "blogs"
	Courses          = "courses"
	Payments         = "payments"
	UserTaskProgress = "usertaskprogresses"
)

// Connect opens a client and pings it. The caller owns Disconnect.
func Connect(ctx context.Context, uri string, logger *slog.Logger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)

	logger.InfoContext(ctx, "Connecting to MongoDB")
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err = client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.InfoContext(ctx, "Connected to MongoDB")
	return client, nil
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely
// on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		Courses: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "title", Value: 1}}},
		},
		UserTaskProgress: {
			{
				Keys:    bson.D{{Key: "user", Value: 1}, {Key: "course", Value: 1}, {Key: "task", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		Payments: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "course", Value: 1}}},
			{Keys: bson.D{{Key: "course", Value: 1}, {Key: "status", Value: 1}}},
		},
		Blogs: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
