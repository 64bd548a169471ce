package payment

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

func newPaymentRouter(user *types.User) (http.Handler, *MockPaymentRepo, *MockCourseGetter) {
	svc, repo, courses := newTestService()
	h := NewPaymentHandlerImpl(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(api.WithUser(r.Context(), user)))
		})
	})
	r.Post("/payments", h.CreatePayment)
	r.Get("/payments", h.ListPayments)
	r.Get("/payments/{id}", h.GetPayment)
	r.Patch("/payments/{id}/status", h.UpdatePaymentStatus)
	return r, repo, courses
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestCreatePayment(t *testing.T) {
	user := &types.User{ID: uuid.New(), Role: types.RoleCustomer}
	courseID := primitive.NewObjectID()

	t.Run("created", func(t *testing.T) {
		h, repo, courses := newPaymentRouter(user)
		courses.On("Get", mock.Anything, courseID).Return(&types.Course{ID: courseID}, nil)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*types.Payment")).Return(nil)

		body := `{"course":"` + courseID.Hex() + `","amount":19.5,"type":"monthly","subscriptionId":"sub_1"}`
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body)))

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		data, _ := decodeBody(t, rr)["data"].(map[string]any)
		assert.Equal(t, courseID.Hex(), data["course"])
		assert.Equal(t, "monthly", data["type"])
		assert.Equal(t, "pending", data["status"])
	})

	t.Run("amount must be positive", func(t *testing.T) {
		h, repo, _ := newPaymentRouter(user)

		body := `{"course":"` + courseID.Hex() + `","amount":0}`
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestListPayments(t *testing.T) {
	user := &types.User{ID: uuid.New(), Role: types.RoleCustomer}
	courseID := primitive.NewObjectID()

	t.Run("filters by status and course", func(t *testing.T) {
		h, repo, _ := newPaymentRouter(user)
		want := types.PaymentFilter{UserID: user.ID.String(), Course: &courseID, Status: types.PaymentCompleted}
		repo.On("List", mock.Anything, want, paginate.Options{Limit: 5}).
			Return(paginate.NewResult([]types.Payment{}, 0, paginate.Options{Limit: 5}), nil)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments?status=completed&limit=5&course="+courseID.Hex(), nil))

		assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		repo.AssertExpectations(t)
	})

	t.Run("unknown status", func(t *testing.T) {
		h, _, _ := newPaymentRouter(user)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments?status=refunded", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("bad course id", func(t *testing.T) {
		h, _, _ := newPaymentRouter(user)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments?course=nope", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUpdatePaymentStatus(t *testing.T) {
	admin := &types.User{ID: uuid.New(), Role: types.RoleAdmin}
	id := primitive.NewObjectID()

	h, repo, _ := newPaymentRouter(admin)
	params := types.UpdatePaymentStatusParams{Status: types.PaymentCompleted, TransactionID: "tx-1"}
	repo.On("UpdateStatus", mock.Anything, id, params).
		Return(&types.Payment{ID: id, Status: types.PaymentCompleted, TransactionID: "tx-1"}, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/payments/"+id.Hex()+"/status",
		strings.NewReader(`{"status":"completed","transactionId":"tx-1"}`)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Payment status updated", decodeBody(t, rr)["message"])

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/payments/bad/status", strings.NewReader(`{"status":"completed"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
