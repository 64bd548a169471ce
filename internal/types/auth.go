package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenAccess        TokenType = "access"
	TokenRefresh       TokenType = "refresh"
	TokenResetPassword TokenType = "resetPassword"
	TokenVerifyEmail   TokenType = "verifyEmail"
	TokenVerifyPhone   TokenType = "verifyPhone"
	TokenLoginOTP      TokenType = "loginOTP"
)

// IsOTP reports whether tokens of this type are numeric codes compared
// against a stored value rather than signed credentials.
func (t TokenType) IsOTP() bool {
	switch t {
	case TokenResetPassword, TokenVerifyEmail, TokenVerifyPhone, TokenLoginOTP:
		return true
	}
	return false
}

// Claims are the JWT claims of access and refresh tokens. Subject holds the
// user id.
type Claims struct {
	Role Role      `json:"role"`
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Token is one issued credential with its expiry.
type Token struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// AuthTokens is the access/refresh pair returned to clients.
type AuthTokens struct {
	Access  Token `json:"access"`
	Refresh Token `json:"refresh"`
}

// AuthResult is the payload of every flow that signs a user in.
type AuthResult struct {
	User   *User       `json:"user"`
	Tokens *AuthTokens `json:"tokens"`
}
