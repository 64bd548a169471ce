package user

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

var _ Handler = (*UserHandlerImpl)(nil)

type Handler interface {
	GetMe(w http.ResponseWriter, r *http.Request)
	UpdateMe(w http.ResponseWriter, r *http.Request)
	UploadProfile(w http.ResponseWriter, r *http.Request)
	UploadBackground(w http.ResponseWriter, r *http.Request)
	FetchUsers(w http.ResponseWriter, r *http.Request)
	GetUser(w http.ResponseWriter, r *http.Request)
	DeleteUser(w http.ResponseWriter, r *http.Request)
	BlockUser(w http.ResponseWriter, r *http.Request)
}

type UserHandlerImpl struct {
	userService UserService
	logger      *slog.Logger
}

func NewUserHandlerImpl(userService UserService, logger *slog.Logger) *UserHandlerImpl {
	return &UserHandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

// currentUser writes a 401 and returns false when the auth middleware did
// not run.
func currentUser(w http.ResponseWriter, r *http.Request) (*types.User, bool) {
	user, ok := api.UserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Please authenticate")
	}
	return user, ok
}

func userIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, api.WrapError(http.StatusBadRequest, "Invalid user id", err)
	}
	return id, nil
}

func (h *UserHandlerImpl) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "GetMe"))

	me, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.userService.GetMe(ctx, me.ID)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "", user)
}

func (h *UserHandlerImpl) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "UpdateMe"))

	me, ok := currentUser(w, r)
	if !ok {
		return
	}
	var params types.UpdateProfileParams
	if err := api.DecodeAndValidate(w, r, &params); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	user, err := h.userService.UpdateMe(ctx, me.ID, params)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "Profile updated successfully", user)
}

func (h *UserHandlerImpl) UploadProfile(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, ImageProfile)
}

func (h *UserHandlerImpl) UploadBackground(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, ImageBackground)
}

func (h *UserHandlerImpl) upload(w http.ResponseWriter, r *http.Request, field ImageField) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Upload"), slog.String("field", string(field)))

	me, ok := currentUser(w, r)
	if !ok {
		return
	}
	file, header, err := api.FormFile(w, r, "file")
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	defer file.Close()
	if !api.IsImage(header) {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Only image uploads are allowed")
		return
	}

	user, err := h.userService.UploadImage(ctx, me.ID, field, file)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "Image uploaded successfully", user)
}

func (h *UserHandlerImpl) FetchUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "FetchUsers"))

	var req FetchUsersRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	page, err := h.userService.List(ctx, req.UserFilter, req.Options())
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "", page)
}

func (h *UserHandlerImpl) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "GetUser"))

	id, err := userIDParam(r)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	user, err := h.userService.Get(ctx, id)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "", user)
}

func (h *UserHandlerImpl) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "DeleteUser"))

	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := userIDParam(r)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	if err := h.userService.Delete(ctx, actor, id); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "User deleted successfully", nil)
}

func (h *UserHandlerImpl) BlockUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "BlockUser"))

	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := userIDParam(r)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	if err := h.userService.Block(ctx, actor, id); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "User blocked successfully", nil)
}
