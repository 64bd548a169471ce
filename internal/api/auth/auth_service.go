package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/learnhub-api/app/observability/metrics"
	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

const (
	msgEmailTaken          = "Email already exists, Please try logging in"
	msgUserNotFound        = "User not found"
	msgIncorrectPassword   = "Incorrect password"
	msgUserBlocked         = "User is blocked"
	msgUserDeleted         = "User account has been deleted"
	msgInvalidOTPType      = "Invalid OTP type"
	msgInvalidVerifyType   = "Invalid verification type"
	msgEmailVerified       = "Email already verified"
	msgEmailTokenExpired   = "Email verification token expired"
	msgInvalidOTP          = "Invalid OTP"
	msgNoResetToken        = "No reset token found"
	msgResetTokenExpired   = "Reset token expired"
	msgNoLoginToken        = "No login token found"
	msgLoginTokenExpired   = "Login token expired"
	msgResetNotConfirmed   = "Reset OTP has not been verified"
	msgInvalidRefreshToken = "Invalid refresh token"
	msgInvalidTokenType    = "Invalid token type"
	msgRefreshTokenExpired = "Refresh token expired"
	msgInvalidSocialToken  = "Invalid social access token"
	msgSocialEmailMissing  = "Social account has no email address"
	msgSessionNotFound     = "Session not found"
)

// UserStore is the user persistence the auth flows need.
type UserStore interface {
	Create(ctx context.Context, params types.NewUser) (*types.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	UpsertSocial(ctx context.Context, profile types.SocialProfile) (*types.User, error)
	SetOTP(ctx context.Context, id uuid.UUID, kind types.OTPKind, otp string, expires time.Time) error
	CompleteVerification(ctx context.Context, id uuid.UUID, kind types.OTPKind) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// SessionStore is the session persistence the auth flows need.
type SessionStore interface {
	Create(ctx context.Context, s *types.Session) (*types.Session, error)
	FindByRefreshToken(ctx context.Context, userID uuid.UUID, refreshToken string) (*types.Session, error)
	Rotate(ctx context.Context, sessionID uuid.UUID, oldToken, newToken string, expires time.Time) error
	Delete(ctx context.Context, userID uuid.UUID, refreshToken string) error
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
}

type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, name, otp string, ttl time.Duration) error
	SendResetPasswordEmail(ctx context.Context, to, name, otp string, ttl time.Duration) error
	SendLoginOTPEmail(ctx context.Context, to, name, otp string, ttl time.Duration) error
}

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	SignUp(ctx context.Context, req SignUpRequest) (*types.AuthResult, error)
	SignIn(ctx context.Context, req SignInRequest) (*types.AuthResult, error)
	SocialSignIn(ctx context.Context, req SocialTokenRequest) (*types.AuthResult, error)
	SendOTP(ctx context.Context, req SendOTPRequest) error
	Verify(ctx context.Context, req VerifyRequest) (*types.AuthResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*types.AuthTokens, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	GenerateAuthTokens(ctx context.Context, user *types.User, device types.Device) (*types.AuthTokens, error)
}

type AuthServiceImpl struct {
	logger   *slog.Logger
	users    UserStore
	sessions SessionStore
	tokens   *TokenIssuer
	mailer   Mailer
	social   SocialVerifier
	metrics  *metrics.AppMetrics
	now      func() time.Time
}

func NewAuthService(users UserStore, sessions SessionStore, tokens *TokenIssuer, mailer Mailer, social SocialVerifier, m *metrics.AppMetrics, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:   logger,
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		mailer:   mailer,
		social:   social,
		metrics:  m,
		now:      time.Now,
	}
}

// GenerateAuthTokens issues an access/refresh pair and records the refresh
// token as a new session of user.
func (s *AuthServiceImpl) GenerateAuthTokens(ctx context.Context, user *types.User, device types.Device) (*types.AuthTokens, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "GenerateAuthTokens", trace.WithAttributes(
		attribute.String("user.id", user.ID.String()),
	))
	defer span.End()

	now := s.now()
	accessExpires := now.Add(s.tokens.jwtCfg.AccessTokenTTL)
	refreshExpires := now.Add(s.tokens.jwtCfg.RefreshTokenTTL)

	access, err := s.tokens.GenerateToken(user.ID, user.Role, types.TokenAccess, accessExpires, "")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	refresh, err := s.tokens.GenerateToken(user.ID, user.Role, types.TokenRefresh, refreshExpires, "")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	session := &types.Session{
		UserID:              user.ID,
		RefreshToken:        refresh,
		RefreshTokenExpires: refreshExpires,
	}
	if !device.Empty() {
		token := device.Token
		session.DeviceToken = &token
		if device.Type != "" {
			typ := device.Type
			session.DeviceType = &typ
		}
	}
	if _, err := s.sessions.Create(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session not stored")
		return nil, fmt.Errorf("error storing session: %w", err)
	}

	s.metrics.TokensIssued(ctx)
	span.SetStatus(codes.Ok, "tokens issued")
	return &types.AuthTokens{
		Access:  types.Token{Token: access, Expires: accessExpires},
		Refresh: types.Token{Token: refresh, Expires: refreshExpires},
	}, nil
}

// issueOTP generates and stores an OTP of kind for user, returning the code
// and how long it lives.
func (s *AuthServiceImpl) issueOTP(ctx context.Context, user *types.User, kind types.OTPKind, typ types.TokenType) (string, time.Duration, error) {
	otp, err := s.tokens.GenerateToken(user.ID, user.Role, typ, time.Time{}, "")
	if err != nil {
		return "", 0, err
	}
	ttl := s.tokens.OTPTTL(kind)
	if err := s.users.SetOTP(ctx, user.ID, kind, otp, s.now().Add(ttl)); err != nil {
		return "", 0, fmt.Errorf("error storing otp: %w", err)
	}
	s.metrics.OTPSent(ctx, string(kind))
	return otp, ttl, nil
}

func (s *AuthServiceImpl) SignUp(ctx context.Context, req SignUpRequest) (*types.AuthResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SignUp")
	defer span.End()

	l := s.logger.With(slog.String("method", "SignUp"))
	l.DebugContext(ctx, "Signing up user")

	taken, err := s.users.IsEmailTaken(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if taken {
		span.SetStatus(codes.Error, "email taken")
		return nil, api.BadRequest(msgEmailTaken)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(ctx, types.NewUser{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: &hash,
		Role:         types.RoleCustomer,
	})
	if err != nil {
		if errors.Is(err, api.ErrAlreadyExists) {
			return nil, api.WrapError(http.StatusBadRequest, msgEmailTaken, err)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	otp, ttl, err := s.issueOTP(ctx, user, types.OTPEmail, types.TokenVerifyEmail)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var tokens *types.AuthTokens
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tokens, err = s.GenerateAuthTokens(gctx, user, req.Device)
		return err
	})
	g.Go(func() error {
		return s.mailer.SendVerificationEmail(gctx, user.Email, user.DisplayName(), otp, ttl)
	})
	if err := g.Wait(); err != nil {
		l.ErrorContext(ctx, "Sign-up side effects failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign-up failed")
		return nil, fmt.Errorf("error completing sign-up: %w", err)
	}

	s.metrics.SignUp(ctx)
	l.InfoContext(ctx, "User signed up", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "signed up")
	return &types.AuthResult{User: user, Tokens: tokens}, nil
}

func (s *AuthServiceImpl) SignIn(ctx context.Context, req SignInRequest) (*types.AuthResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SignIn")
	defer span.End()

	l := s.logger.With(slog.String("method", "SignIn"))

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			s.metrics.SignIn(ctx, "unknown_user")
			return nil, api.NotFound(msgUserNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	ok, err := CheckPassword(user.Password, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.SignIn(ctx, "incorrect_password")
		span.SetStatus(codes.Error, "incorrect password")
		return nil, api.Unauthorized(msgIncorrectPassword)
	}
	if err := checkAccountState(user); err != nil {
		s.metrics.SignIn(ctx, "account_state")
		return nil, err
	}

	tokens, err := s.GenerateAuthTokens(ctx, user, req.Device)
	if err != nil {
		return nil, err
	}

	s.metrics.SignIn(ctx, "success")
	l.InfoContext(ctx, "User signed in", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "signed in")
	return &types.AuthResult{User: user, Tokens: tokens}, nil
}

// checkAccountState rejects blocked (403) and deleted (410) accounts.
func checkAccountState(user *types.User) error {
	switch {
	case user.IsBlocked:
		return api.Forbidden(msgUserBlocked)
	case user.IsDeleted:
		return api.Gone(msgUserDeleted)
	}
	return nil
}

func (s *AuthServiceImpl) SocialSignIn(ctx context.Context, req SocialTokenRequest) (*types.AuthResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SocialSignIn", trace.WithAttributes(
		attribute.String("provider", string(req.Provider)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SocialSignIn"), slog.String("provider", string(req.Provider)))

	profile, err := s.social.FetchProfile(ctx, req.Provider, req.AccessToken)
	if err != nil {
		if errors.Is(err, ErrUnsupportedProvider) {
			return nil, api.WrapError(http.StatusBadRequest, err.Error(), err)
		}
		span.RecordError(err)
		return nil, api.WrapError(http.StatusUnauthorized, msgInvalidSocialToken, err)
	}
	if profile.Email == "" {
		return nil, api.BadRequest(msgSocialEmailMissing)
	}

	user, err := s.users.UpsertSocial(ctx, *profile)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error upserting social user: %w", err)
	}
	if err := checkAccountState(user); err != nil {
		return nil, err
	}

	tokens, err := s.GenerateAuthTokens(ctx, user, req.Device)
	if err != nil {
		return nil, err
	}

	s.metrics.SignIn(ctx, "social")
	l.InfoContext(ctx, "Social sign-in", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "signed in")
	return &types.AuthResult{User: user, Tokens: tokens}, nil
}

func (s *AuthServiceImpl) SendOTP(ctx context.Context, req SendOTPRequest) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SendOTP", trace.WithAttributes(
		attribute.String("otp.type", req.Type),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SendOTP"), slog.String("type", req.Type))

	if !isOTPType(req.Type) {
		return api.BadRequest(msgInvalidOTPType)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.NotFound(msgUserNotFound)
		}
		span.RecordError(err)
		return fmt.Errorf("error fetching user: %w", err)
	}

	switch req.Type {
	case OTPTypeEmail:
		otp, ttl, err := s.issueOTP(ctx, user, types.OTPEmail, types.TokenVerifyEmail)
		if err != nil {
			return err
		}
		err = s.mailer.SendVerificationEmail(ctx, user.Email, user.DisplayName(), otp, ttl)
		if err != nil {
			span.RecordError(err)
			return err
		}
	case OTPTypeResetPassword:
		otp, ttl, err := s.issueOTP(ctx, user, types.OTPReset, types.TokenResetPassword)
		if err != nil {
			return err
		}
		err = s.mailer.SendResetPasswordEmail(ctx, user.Email, user.DisplayName(), otp, ttl)
		if err != nil {
			span.RecordError(err)
			return err
		}
	case OTPTypeLogin:
		if err := checkAccountState(user); err != nil {
			return err
		}
		otp, ttl, err := s.issueOTP(ctx, user, types.OTPLogin, types.TokenLoginOTP)
		if err != nil {
			return err
		}
		err = s.mailer.SendLoginOTPEmail(ctx, user.Email, user.DisplayName(), otp, ttl)
		if err != nil {
			span.RecordError(err)
			return err
		}
	}

	l.InfoContext(ctx, "OTP sent", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "otp sent")
	return nil
}

func isOTPType(typ string) bool {
	switch typ {
	case OTPTypeEmail, OTPTypeResetPassword, OTPTypeLogin:
		return true
	}
	return false
}

// checkOTP compares a submitted code with the stored one. Expiry is checked
// before the code so an expired token always reports expiry.
func (s *AuthServiceImpl) checkOTP(stored *string, expires *time.Time, submitted, expiredMsg string) error {
	if stored == nil {
		return api.Unauthorized(msgInvalidOTP)
	}
	if expires == nil || s.now().After(*expires) {
		return api.Unauthorized(expiredMsg)
	}
	if subtle.ConstantTimeCompare([]byte(*stored), []byte(submitted)) != 1 {
		return api.Unauthorized(msgInvalidOTP)
	}
	return nil
}

func (s *AuthServiceImpl) Verify(ctx context.Context, req VerifyRequest) (*types.AuthResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Verify", trace.WithAttributes(
		attribute.String("otp.type", req.Type),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Verify"), slog.String("type", req.Type))

	if !isOTPType(req.Type) {
		return nil, api.BadRequest(msgInvalidVerifyType)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.NotFound(msgUserNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	var kind types.OTPKind
	switch req.Type {
	case OTPTypeEmail:
		if user.IsEmailVerified {
			return nil, api.BadRequest(msgEmailVerified)
		}
		if err := s.checkOTP(user.EmailToken, user.EmailTokenExpires, req.OTP, msgEmailTokenExpired); err != nil {
			l.WarnContext(ctx, "Email OTP rejected", slog.String("userID", user.ID.String()))
			return nil, err
		}
		kind = types.OTPEmail
	case OTPTypeResetPassword:
		if user.ResetToken == nil {
			return nil, api.BadRequest(msgNoResetToken)
		}
		if err := s.checkOTP(user.ResetToken, user.ResetTokenExpires, req.OTP, msgResetTokenExpired); err != nil {
			l.WarnContext(ctx, "Reset OTP rejected", slog.String("userID", user.ID.String()))
			return nil, err
		}
		kind = types.OTPReset
	case OTPTypeLogin:
		if err := checkAccountState(user); err != nil {
			return nil, err
		}
		if user.LoginToken == nil {
			return nil, api.BadRequest(msgNoLoginToken)
		}
		if err := s.checkOTP(user.LoginToken, user.LoginTokenExpires, req.OTP, msgLoginTokenExpired); err != nil {
			l.WarnContext(ctx, "Login OTP rejected", slog.String("userID", user.ID.String()))
			return nil, err
		}
		kind = types.OTPLogin
	}

	if err := s.users.CompleteVerification(ctx, user.ID, kind); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error completing verification: %w", err)
	}
	user, err = s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error reloading user: %w", err)
	}

	tokens, err := s.GenerateAuthTokens(ctx, user, req.Device)
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "Verification completed", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "verified")
	return &types.AuthResult{User: user, Tokens: tokens}, nil
}

// RefreshTokens exchanges a refresh token for a new pair. The session keeps
// its id; its refresh token is rotated so the old one stops working.
func (s *AuthServiceImpl) RefreshTokens(ctx context.Context, refreshToken string) (*types.AuthTokens, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "RefreshTokens")
	defer span.End()

	l := s.logger.With(slog.String("method", "RefreshTokens"))

	claims, err := s.tokens.ParseToken(refreshToken)
	if err != nil {
		l.WarnContext(ctx, "Refresh token rejected", slog.Any("error", err))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, api.Unauthorized(msgRefreshTokenExpired)
		}
		return nil, api.Unauthorized(msgInvalidRefreshToken)
	}
	if claims.Type != types.TokenRefresh {
		return nil, api.Unauthorized(msgInvalidTokenType)
	}

	user, err := s.users.GetByID(ctx, UserID(claims))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.Unauthorized(msgUserNotFound)
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	if err := checkAccountState(user); err != nil {
		return nil, err
	}

	session, err := s.sessions.FindByRefreshToken(ctx, user.ID, refreshToken)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.Unauthorized(msgInvalidRefreshToken)
		}
		return nil, fmt.Errorf("error fetching session: %w", err)
	}
	now := s.now()
	if now.After(session.RefreshTokenExpires) {
		if err := s.sessions.Delete(ctx, user.ID, refreshToken); err != nil && !errors.Is(err, api.ErrNotFound) {
			l.WarnContext(ctx, "Failed to prune expired session", slog.Any("error", err))
		}
		return nil, api.Unauthorized(msgRefreshTokenExpired)
	}

	accessExpires := now.Add(s.tokens.jwtCfg.AccessTokenTTL)
	refreshExpires := now.Add(s.tokens.jwtCfg.RefreshTokenTTL)
	access, err := s.tokens.GenerateToken(user.ID, user.Role, types.TokenAccess, accessExpires, "")
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateToken(user.ID, user.Role, types.TokenRefresh, refreshExpires, "")
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Rotate(ctx, session.ID, refreshToken, refresh, refreshExpires); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.Unauthorized(msgInvalidRefreshToken)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("error rotating session: %w", err)
	}

	s.metrics.TokensIssued(ctx)
	span.SetStatus(codes.Ok, "tokens refreshed")
	return &types.AuthTokens{
		Access:  types.Token{Token: access, Expires: accessExpires},
		Refresh: types.Token{Token: refresh, Expires: refreshExpires},
	}, nil
}

// ResetPassword sets a new password once the reset OTP has been verified,
// then signs the user out everywhere.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ResetPassword")
	defer span.End()

	l := s.logger.With(slog.String("method", "ResetPassword"))

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.NotFound(msgUserNotFound)
		}
		return fmt.Errorf("error fetching user: %w", err)
	}
	if !user.IsResetConfirmed {
		return api.BadRequest(msgResetNotConfirmed)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error updating password: %w", err)
	}
	n, err := s.sessions.DeleteAll(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error removing sessions: %w", err)
	}

	l.InfoContext(ctx, "Password reset", slog.String("userID", user.ID.String()), slog.Int64("sessions_removed", n))
	span.SetStatus(codes.Ok, "password reset")
	return nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	err := s.sessions.Delete(ctx, userID, refreshToken)
	if errors.Is(err, api.ErrNotFound) {
		return api.NotFound(msgSessionNotFound)
	}
	return err
}

func (s *AuthServiceImpl) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	n, err := s.sessions.DeleteAll(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User logged out from all sessions",
		slog.String("userID", userID.String()),
		slog.Int64("sessions_removed", n))
	return nil
}
