package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/learnhub-api/config"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

const defaultOTPLength = 6

var ErrInvalidTokenType = errors.New("invalid token type")

// TokenIssuer signs access and refresh JWTs and generates numeric OTPs.
type TokenIssuer struct {
	jwtCfg config.JWTConfig
	otpCfg config.OTPConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewTokenIssuer(jwtCfg config.JWTConfig, otpCfg config.OTPConfig, logger *slog.Logger) *TokenIssuer {
	return &TokenIssuer{
		jwtCfg: jwtCfg,
		otpCfg: otpCfg,
		logger: logger,
		now:    time.Now,
	}
}

// GenerateToken returns a signed JWT for access and refresh tokens and a
// random numeric code for OTP types. Empty role, zero expiry and empty
// secret fall back to customer, now plus the access TTL and the configured
// secret.
func (t *TokenIssuer) GenerateToken(userID uuid.UUID, role types.Role, typ types.TokenType, expires time.Time, secret string) (string, error) {
	switch {
	case typ.IsOTP():
		return GenerateOTP(t.otpLength())
	case typ != types.TokenAccess && typ != types.TokenRefresh:
		return "", fmt.Errorf("%w: %q", ErrInvalidTokenType, typ)
	}

	if role == "" {
		role = types.RoleCustomer
	}
	if secret == "" {
		secret = t.jwtCfg.SecretKey
	}
	now := t.now()
	if expires.IsZero() {
		expires = now.Add(t.jwtCfg.AccessTokenTTL)
	}

	claims := types.Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    t.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	if t.jwtCfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{t.jwtCfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

// ParseToken validates signature, algorithm, expiry, issuer and audience.
// Errors wrap the jwt sentinel errors so callers can tell expiry apart.
func (t *TokenIssuer) ParseToken(tokenString string) (*types.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.jwtCfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.jwtCfg.Issuer))
	}
	if t.jwtCfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(t.jwtCfg.Audience))
	}

	claims := &types.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(t.jwtCfg.SecretKey), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}

// VerifyToken returns the claims of a valid token, or nil for anything else.
// Failures are logged, never returned.
func (t *TokenIssuer) VerifyToken(tokenString string) *types.Claims {
	claims, err := t.ParseToken(tokenString)
	if err != nil {
		t.logger.Warn("Token verification failed", slog.Any("error", err))
		return nil
	}
	return claims
}

// UserID is the subject of claims returned by ParseToken.
func UserID(claims *types.Claims) uuid.UUID {
	id, _ := uuid.Parse(claims.Subject)
	return id
}

// OTPTTL is how long an OTP of the given kind stays valid.
func (t *TokenIssuer) OTPTTL(kind types.OTPKind) time.Duration {
	switch kind {
	case types.OTPReset:
		return t.otpCfg.ResetPasswordTTL
	case types.OTPLogin:
		return t.otpCfg.LoginTTL
	case types.OTPPhone:
		return t.otpCfg.VerifyPhoneTTL
	default:
		return t.otpCfg.VerifyEmailTTL
	}
}

func (t *TokenIssuer) otpLength() int {
	if t.otpCfg.Length > 0 {
		return t.otpCfg.Length
	}
	return defaultOTPLength
}

// GenerateOTP returns length uniformly random decimal digits.
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = defaultOTPLength
	}
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate otp: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
