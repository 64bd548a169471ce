package auth

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/learnhub-api/internal/api"
)

var _ Handler = (*AuthHandlerImpl)(nil)

type Handler interface {
	SignUp(w http.ResponseWriter, r *http.Request)
	SignIn(w http.ResponseWriter, r *http.Request)
	SocialSignIn(w http.ResponseWriter, r *http.Request)
	SendOTP(w http.ResponseWriter, r *http.Request)
	Verify(w http.ResponseWriter, r *http.Request)
	RefreshTokens(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	LogoutAll(w http.ResponseWriter, r *http.Request)
}

type AuthHandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

func NewAuthHandlerImpl(authService AuthService, logger *slog.Logger) *AuthHandlerImpl {
	return &AuthHandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

func (h *AuthHandlerImpl) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "SignUp"))

	var req SignUpRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	result, err := h.authService.SignUp(ctx, req)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusCreated, "User signed up successfully", result)
}

func (h *AuthHandlerImpl) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "SignIn"))

	var req SignInRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	result, err := h.authService.SignIn(ctx, req)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "User signed in successfully", result)
}

func (h *AuthHandlerImpl) SocialSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "SocialSignIn"))

	var req SocialTokenRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	result, err := h.authService.SocialSignIn(ctx, req)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusCreated, "User signed in successfully", result)
}

func (h *AuthHandlerImpl) SendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "SendOTP"))

	var req SendOTPRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	if err := h.authService.SendOTP(ctx, req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "OTP sent successfully", nil)
}

func (h *AuthHandlerImpl) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Verify"))

	var req VerifyRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	result, err := h.authService.Verify(ctx, req)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "Verification successful", result)
}

func (h *AuthHandlerImpl) RefreshTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "RefreshTokens"))

	var req RefreshRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	tokens, err := h.authService.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "Tokens refreshed successfully", tokens)
}

func (h *AuthHandlerImpl) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "ResetPassword"))

	var req ResetPasswordRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	if err := h.authService.ResetPassword(ctx, req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "Password reset successfully", nil)
}

// Logout ends the caller's session identified by the refresh token.
func (h *AuthHandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Logout"))

	user, ok := api.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, msgPleaseAuthenticate)
		return
	}

	var req LogoutRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	if err := h.authService.Logout(ctx, user.ID, req.RefreshToken); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "User logged out successfully", nil)
}

func (h *AuthHandlerImpl) LogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "LogoutAll"))

	user, ok := api.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, msgPleaseAuthenticate)
		return
	}

	if err := h.authService.LogoutAll(ctx, user.ID); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "User logged out from all sessions successfully", nil)
}
