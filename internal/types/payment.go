package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentType string

const (
	PaymentOneTime PaymentType = "one-time"
	PaymentMonthly PaymentType = "monthly"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type Payment struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID         string             `bson:"user" json:"user"`
	Course         Ref[Course]        `bson:"course" json:"course"`
	Type           PaymentType        `bson:"type" json:"type"`
	Amount         float64            `bson:"amount" json:"amount"`
	Status         PaymentStatus      `bson:"status" json:"status"`
	Transaction    map[string]any     `bson:"transaction" json:"transaction"`
	OrderID        string             `bson:"orderId,omitempty" json:"orderId,omitempty"`
	TransactionID  string             `bson:"transactionId,omitempty" json:"transactionId,omitempty"`   // one-time payments
	SubscriptionID string             `bson:"subscriptionId,omitempty" json:"subscriptionId,omitempty"` // monthly subscriptions
	Version        int                `bson:"__v" json:"__v"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type CreatePaymentParams struct {
	Course         string         `json:"course" validate:"required,objectid"`
	Type           PaymentType    `json:"type,omitempty" validate:"omitempty,oneof=one-time monthly"`
	Amount         float64        `json:"amount" validate:"gt=0"`
	OrderID        string         `json:"orderId,omitempty"`
	TransactionID  string         `json:"transactionId,omitempty"`
	SubscriptionID string         `json:"subscriptionId,omitempty"`
	Transaction    map[string]any `json:"transaction,omitempty"`
}

type UpdatePaymentStatusParams struct {
	Status        PaymentStatus  `json:"status" validate:"required,oneof=pending completed failed"`
	TransactionID string         `json:"transactionId,omitempty"`
	Transaction   map[string]any `json:"transaction,omitempty"`
}

type PaymentFilter struct {
	UserID string
	Course *primitive.ObjectID
	Status PaymentStatus
}
