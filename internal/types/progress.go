package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProgressStatus string

const (
	ProgressInProgress ProgressStatus = "in-progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// UserTaskProgress is unique per (user, course, task). Time accumulates the
// seconds spent on the task.
type UserTaskProgress struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    string             `bson:"user" json:"user"`
	Course    primitive.ObjectID `bson:"course" json:"course"`
	Task      primitive.ObjectID `bson:"task" json:"task"`
	Status    ProgressStatus     `bson:"status" json:"status"`
	Time      int64              `bson:"time" json:"time"`
	Version   int                `bson:"__v" json:"__v"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type TrackProgressParams struct {
	Course string         `json:"course" validate:"required,objectid"`
	Task   string         `json:"task" validate:"required,objectid"`
	Time   int64          `json:"time" validate:"gte=0"`
	Status ProgressStatus `json:"status,omitempty" validate:"omitempty,oneof=in-progress completed"`
}
