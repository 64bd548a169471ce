package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Blog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	Content   string             `bson:"content" json:"content"`
	Likes     int64              `bson:"likes" json:"likes"`
	Views     int64              `bson:"views" json:"views"`
	Comments  []BlogComment      `bson:"comments" json:"comments"`
	CreatedBy string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	Version   int                `bson:"__v" json:"__v"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type BlogComment struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	UserID    string             `bson:"userId" json:"userId"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type CreateBlogParams struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

type CommentParams struct {
	Comment string `json:"comment" validate:"required,max=2000"`
}
