package progress

import (
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

var _ Handler = (*ProgressHandlerImpl)(nil)

type Handler interface {
	ListProgress(w http.ResponseWriter, r *http.Request)
	TrackProgress(w http.ResponseWriter, r *http.Request)
}

type ProgressHandlerImpl struct {
	progressService ProgressService
	logger          *slog.Logger
}

func NewProgressHandlerImpl(progressService ProgressService, logger *slog.Logger) *ProgressHandlerImpl {
	return &ProgressHandlerImpl{progressService: progressService, logger: logger}
}

func (h *ProgressHandlerImpl) ListProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "ListProgress"))

	user, ok := api.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Please authenticate")
		return
	}
	var course *primitive.ObjectID
	if c := r.URL.Query().Get("course"); c != "" {
		id, err := primitive.ObjectIDFromHex(c)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid course id")
			return
		}
		course = &id
	}

	records, err := h.progressService.List(ctx, user, course)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "", records)
}

func (h *ProgressHandlerImpl) TrackProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "TrackProgress"))

	user, ok := api.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Please authenticate")
		return
	}
	var params types.TrackProgressParams
	if err := api.DecodeAndValidate(w, r, &params); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	p, err := h.progressService.Track(ctx, user, params)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "Progress saved", p)
}
