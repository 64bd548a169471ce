package payment

import (
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

var _ Handler = (*PaymentHandlerImpl)(nil)

type Handler interface {
	CreatePayment(w http.ResponseWriter, r *http.Request)
	ListPayments(w http.ResponseWriter, r *http.Request)
	GetPayment(w http.ResponseWriter, r *http.Request)
	UpdatePaymentStatus(w http.ResponseWriter, r *http.Request)
}

type PaymentHandlerImpl struct {
	paymentService PaymentService
	logger         *slog.Logger
}

func NewPaymentHandlerImpl(paymentService PaymentService, logger *slog.Logger) *PaymentHandlerImpl {
	return &PaymentHandlerImpl{paymentService: paymentService, logger: logger}
}

func (h *PaymentHandlerImpl) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "CreatePayment"))

	user, ok := api.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Please authenticate")
		return
	}
	var params types.CreatePaymentParams
	if err := api.DecodeAndValidate(w, r, &params); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	p, err := h.paymentService.Create(ctx, user, params)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusCreated, "Payment created successfully", p)
}

// ListPayments accepts status and course query filters next to the
// pagination options.
func (h *PaymentHandlerImpl) ListPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "ListPayments"))

	user, ok := api.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Please authenticate")
		return
	}
	q := r.URL.Query()
	filter := types.PaymentFilter{Status: types.PaymentStatus(q.Get("status"))}
	if filter.Status != "" {
		if err := api.ValidateVar("status", string(filter.Status), "oneof=pending completed failed"); err != nil {
			api.HandleError(w, r, l, err)
			return
		}
	}
	if c := q.Get("course"); c != "" {
		id, err := primitive.ObjectIDFromHex(c)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid course id")
			return
		}
		filter.Course = &id
	}

	page, err := h.paymentService.List(ctx, user, filter, paginate.OptionsFromQuery(q))
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "", page)
}

func (h *PaymentHandlerImpl) GetPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "GetPayment"))

	user, ok := api.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Please authenticate")
		return
	}
	id, err := api.ObjectIDParam(r, "id", "payment")
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	p, err := h.paymentService.Get(ctx, user, id, r.URL.Query().Get("populate"))
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "", p)
}

func (h *PaymentHandlerImpl) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "UpdatePaymentStatus"))

	id, err := api.ObjectIDParam(r, "id", "payment")
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	var params types.UpdatePaymentStatusParams
	if err := api.DecodeAndValidate(w, r, &params); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	p, err := h.paymentService.UpdateStatus(r.Context(), id, params)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "Payment status updated", p)
}
