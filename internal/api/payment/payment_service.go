package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

// CourseGetter checks that a payment targets an existing course.
type CourseGetter interface {
	Get(ctx context.Context, id primitive.ObjectID) (*types.Course, error)
}

var _ PaymentService = (*PaymentServiceImpl)(nil)

type PaymentService interface {
	Create(ctx context.Context, user *types.User, params types.CreatePaymentParams) (*types.Payment, error)
	List(ctx context.Context, user *types.User, filter types.PaymentFilter, opts paginate.Options) (*paginate.Result[types.Payment], error)
	Get(ctx context.Context, user *types.User, id primitive.ObjectID, populate string) (*types.Payment, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, params types.UpdatePaymentStatusParams) (*types.Payment, error)
}

type PaymentServiceImpl struct {
	logger  *slog.Logger
	repo    PaymentRepo
	courses CourseGetter
}

func NewPaymentService(repo PaymentRepo, courses CourseGetter, logger *slog.Logger) *PaymentServiceImpl {
	return &PaymentServiceImpl{logger: logger, repo: repo, courses: courses}
}

func isStaff(u *types.User) bool {
	return u.HasRole(types.RoleAdmin, types.RoleSuperAdmin)
}

func paymentNotFound(err error) error {
	if errors.Is(err, api.ErrNotFound) {
		return api.WrapError(http.StatusNotFound, "Payment not found", err)
	}
	return err
}

func (s *PaymentServiceImpl) Create(ctx context.Context, user *types.User, params types.CreatePaymentParams) (*types.Payment, error) {
	l := s.logger.With(slog.String("method", "Create"), slog.String("userID", user.ID.String()))

	courseID, err := primitive.ObjectIDFromHex(params.Course)
	if err != nil {
		return nil, api.WrapError(http.StatusBadRequest, "Invalid course id", err)
	}
	if _, err := s.courses.Get(ctx, courseID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.WrapError(http.StatusNotFound, "Course not found", err)
		}
		return nil, fmt.Errorf("error checking course: %w", err)
	}

	typ := params.Type
	if typ == "" {
		typ = types.PaymentOneTime
	}
	p := &types.Payment{
		UserID:         user.ID.String(),
		Course:         types.RefTo[types.Course](courseID),
		Type:           typ,
		Amount:         params.Amount,
		Status:         types.PaymentPending,
		Transaction:    params.Transaction,
		OrderID:        params.OrderID,
		TransactionID:  params.TransactionID,
		SubscriptionID: params.SubscriptionID,
	}
	if p.Transaction == nil {
		p.Transaction = map[string]any{}
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("error creating payment: %w", err)
	}
	l.InfoContext(ctx, "Payment created", slog.String("paymentID", p.ID.Hex()), slog.String("type", string(typ)))
	return p, nil
}

// List shows customers only their own payments.
func (s *PaymentServiceImpl) List(ctx context.Context, user *types.User, filter types.PaymentFilter, opts paginate.Options) (*paginate.Result[types.Payment], error) {
	if !isStaff(user) {
		filter.UserID = user.ID.String()
	}
	return s.repo.List(ctx, filter, opts)
}

// Get hides payments of other users from customers behind a 404.
func (s *PaymentServiceImpl) Get(ctx context.Context, user *types.User, id primitive.ObjectID, populate string) (*types.Payment, error) {
	p, err := s.repo.Get(ctx, id, populate)
	if err != nil {
		return nil, paymentNotFound(err)
	}
	if !isStaff(user) && p.UserID != user.ID.String() {
		return nil, api.NotFound("Payment not found")
	}
	return p, nil
}

func (s *PaymentServiceImpl) UpdateStatus(ctx context.Context, id primitive.ObjectID, params types.UpdatePaymentStatusParams) (*types.Payment, error) {
	p, err := s.repo.UpdateStatus(ctx, id, params)
	if err != nil {
		return nil, paymentNotFound(err)
	}
	s.logger.InfoContext(ctx, "Payment status updated", slog.String("paymentID", id.Hex()), slog.String("status", string(p.Status)))
	return p, nil
}
