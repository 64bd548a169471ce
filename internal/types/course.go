package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Course struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Slug        string             `bson:"slug" json:"slug"`
	Thumbnail   string             `bson:"thumbnail" json:"thumbnail"`
	Author      string             `bson:"author" json:"author"`
	Tasks       []CourseTask       `bson:"tasks" json:"tasks"`
	CreatedBy   string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy   string             `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	Version     int                `bson:"__v" json:"__v"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type CourseTask struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Thumbnail   string             `bson:"thumbnail" json:"thumbnail"`
	Media       string             `bson:"media" json:"media"`
	MediaType   string             `bson:"mediaType" json:"mediaType"`
	StartTime   string             `bson:"startTime" json:"startTime"` // e.g. "06:00 AM"
	EndTime     string             `bson:"endTime" json:"endTime"`
}

type CourseTaskParams struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty" validate:"omitempty,url"`
	Media       string `json:"media,omitempty"`
	MediaType   string `json:"mediaType,omitempty"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
}

type CreateCourseParams struct {
	Title       string             `json:"title" validate:"required,max=200"`
	Description string             `json:"description,omitempty"`
	Slug        string             `json:"slug" validate:"required,max=200"`
	Thumbnail   string             `json:"thumbnail,omitempty" validate:"omitempty,url"`
	Author      string             `json:"author,omitempty"`
	Tasks       []CourseTaskParams `json:"tasks,omitempty" validate:"dive"`
}

// UpdateCourseParams is a partial update; nil fields are left alone and a
// non-nil Tasks replaces the task list.
type UpdateCourseParams struct {
	Title       *string             `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string             `json:"description,omitempty"`
	Slug        *string             `json:"slug,omitempty" validate:"omitempty,max=200"`
	Thumbnail   *string             `json:"thumbnail,omitempty" validate:"omitempty,url"`
	Author      *string             `json:"author,omitempty"`
	Tasks       *[]CourseTaskParams `json:"tasks,omitempty" validate:"omitempty,dive"`
}
