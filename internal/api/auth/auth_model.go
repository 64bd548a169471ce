package auth

import (
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	types.Device
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	types.Device
}

type SocialTokenRequest struct {
	Provider    types.Provider `json:"provider" validate:"required,oneof=google facebook github"`
	AccessToken string         `json:"accessToken" validate:"required"`
	types.Device
}

// OTP request types accepted by send-otp and verify.
const (
	OTPTypeEmail         = "email"
	OTPTypeResetPassword = "reset-password"
	OTPTypeLogin         = "login"
)

type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Type  string `json:"type" validate:"required"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric"`
	Type  string `json:"type" validate:"required"`
	types.Device
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
