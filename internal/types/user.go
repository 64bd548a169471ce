package types

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

type Provider string

const (
	ProviderEmail    Provider = "email"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderGithub   Provider = "github"
	ProviderTwitter  Provider = "twitter"
)

// User is the identity record. Fields tagged private never leave the service.
type User struct {
	ID                 uuid.UUID  `json:"_id"`
	Name               string     `json:"name"`
	UserName           *string    `json:"userName,omitempty"`
	Email              string     `json:"email"`
	Profile            string     `json:"profile"`
	Background         string     `json:"background"`
	Bio                string     `json:"bio"`
	Provider           Provider   `json:"provider" private:"true"`
	ProviderID         string     `json:"providerId" private:"true"`
	Role               Role       `json:"role"`
	Password           *string    `json:"password,omitempty" private:"true"` // bcrypt hash, nil for social accounts
	Phone              *string    `json:"phone,omitempty"`
	PhoneCountryCode   *string    `json:"phoneCountryCode,omitempty"`
	IsLoginVerified    bool       `json:"isLoginVerified"`
	LoginToken         *string    `json:"loginToken,omitempty" private:"true"`
	LoginTokenExpires  *time.Time `json:"loginTokenExpires,omitempty" private:"true"`
	IsAdminVerified    bool       `json:"isAdminVerified"`
	IsEmailVerified    bool       `json:"isEmailVerified"`
	EmailToken         *string    `json:"emailToken,omitempty" private:"true"`
	EmailTokenExpires  *time.Time `json:"emailTokenExpires,omitempty" private:"true"`
	IsPhoneVerified    bool       `json:"isPhoneVerified"`
	PhoneToken         *string    `json:"phoneToken,omitempty" private:"true"`
	PhoneTokenExpires  *time.Time `json:"phoneTokenExpires,omitempty" private:"true"`
	IsResetConfirmed   bool       `json:"isResetConfirmed"`
	ResetToken         *string    `json:"resetToken,omitempty" private:"true"`
	ResetTokenExpires  *time.Time `json:"resetTokenExpires,omitempty" private:"true"`
	IsDeleted          bool       `json:"isDeleted"`
	DeletedBy          *uuid.UUID `json:"deletedBy,omitempty" private:"true"`
	DeletedAt          *time.Time `json:"deletedAt,omitempty" private:"true"`
	IsBlocked          bool       `json:"isBlocked"`
	BlockedBy          *uuid.UUID `json:"blockedBy,omitempty" private:"true"`
	BlockedAt          *time.Time `json:"blockedAt,omitempty" private:"true"`
	SendNotifications  bool       `json:"sendNotifications"`
	PrivacyPolicy      bool       `json:"privacyPolicy"`
	TermsAndConditions bool       `json:"termsAndConditions"`
	CreatedBy          *uuid.UUID `json:"createdBy,omitempty"`
	UpdatedBy          *uuid.UUID `json:"updatedBy,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// DisplayName is what emails greet the user with.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// HasRole reports whether the user's role is one of roles. An empty list
// allows every role.
func (u *User) HasRole(roles ...Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// NewUser is what sign-up and admin creation persist.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash *string
	Role         Role
	CreatedBy    *uuid.UUID
}

// SocialProfile is the identity returned by an OAuth provider.
type SocialProfile struct {
	Email      string
	Name       string
	Provider   Provider
	ProviderID string
	Image      string
}

// UpdateProfileParams holds the self-service profile fields. Nil means
// unchanged.
type UpdateProfileParams struct {
	Name             *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Bio              *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Phone            *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	PhoneCountryCode *string `json:"phoneCountryCode,omitempty" validate:"omitempty,max=6"`
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Search    string `json:"search,omitempty"` // case-insensitive match on name or email
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role,omitempty" validate:"omitempty,oneof=customer admin superadmin"`
	IsDeleted *bool  `json:"isDeleted,omitempty"`
}

// OTPKind selects which OTP column pair of the user an operation touches.
type OTPKind string

const (
	OTPEmail OTPKind = "email"
	OTPReset OTPKind = "reset-password"
	OTPLogin OTPKind = "login"
	OTPPhone OTPKind = "phone"
)
