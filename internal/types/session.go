package types

import (
	"time"

	"github.com/google/uuid"
)

type DeviceType string

const (
	DeviceAndroid DeviceType = "android"
	DeviceIOS     DeviceType = "ios"
	DeviceWeb     DeviceType = "web"
)

// Session binds one refresh token to a user and, optionally, a push device.
type Session struct {
	ID                  uuid.UUID   `json:"_id"`
	UserID              uuid.UUID   `json:"user"`
	RefreshToken        string      `json:"refreshToken" private:"true"`
	RefreshTokenExpires time.Time   `json:"refreshTokenExpires"`
	DeviceToken         *string     `json:"deviceToken,omitempty" private:"true"`
	DeviceType          *DeviceType `json:"deviceType,omitempty" private:"true"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

// Device is the optional push target recorded with a new session.
type Device struct {
	Token string     `json:"deviceToken,omitempty" validate:"omitempty,max=4096"`
	Type  DeviceType `json:"deviceType,omitempty" validate:"omitempty,oneof=android ios web"`
}

func (d Device) Empty() bool {
	return d.Token == ""
}
