package user

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/learnhub-api/app/storage"
	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

func newHandlerFixture(user *types.User) (http.Handler, *userFixture) {
	f := newUserFixture()
	h := NewUserHandlerImpl(f.svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	if user != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(api.WithUser(r.Context(), user)))
			})
		})
	}
	r.Get("/users/me", h.GetMe)
	r.Patch("/users/me", h.UpdateMe)
	r.Post("/users/me/upload/photo", h.UploadProfile)
	r.Post("/users/fetch", h.FetchUsers)
	r.Get("/users/{id}", h.GetUser)
	r.Post("/users/{id}/block", h.BlockUser)
	return r, f
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestGetMeHandler(t *testing.T) {
	me := &types.User{ID: uuid.New(), Email: "ada@example.com", Role: types.RoleCustomer}
	secret := "hash"
	stored := &types.User{ID: me.ID, Email: me.Email, Password: &secret, Provider: types.ProviderEmail}

	h, f := newHandlerFixture(me)
	f.repo.On("GetByID", mock.Anything, me.ID).Return(stored, nil).Once()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/me", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, me.ID.String(), data["id"])
	assert.NotContains(t, data, "password")
	assert.NotContains(t, data, "provider")

	t.Run("unauthenticated", func(t *testing.T) {
		h, _ := newHandlerFixture(nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestFetchUsersHandler(t *testing.T) {
	admin := &types.User{ID: uuid.New(), Role: types.RoleAdmin}
	h, f := newHandlerFixture(admin)

	deleted := false
	filter := types.UserFilter{Search: "ada", Role: types.RoleCustomer, IsDeleted: &deleted}
	opts := paginate.Options{SortBy: "name:asc", Limit: 5, Page: 2}
	f.repo.On("List", mock.Anything, filter, opts).
		Return(paginate.NewResult([]types.User{{ID: uuid.New(), Name: "Ada"}}, 6, opts), nil).Once()

	rr := httptest.NewRecorder()
	body := `{"search":"ada","role":"customer","isDeleted":false,"sortBy":"name","orderBy":"asc","limit":5,"page":2}`
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/fetch", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	data := decode(t, rr)["data"].(map[string]any)
	assert.EqualValues(t, 2, data["totalPages"])
	assert.EqualValues(t, 6, data["totalResults"])
	f.repo.AssertExpectations(t)

	t.Run("unknown sort field", func(t *testing.T) {
		h, f := newHandlerFixture(admin)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/fetch", strings.NewReader(`{"sortBy":"password"}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		f.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFetchUsersHandlerDefaults(t *testing.T) {
	admin := &types.User{ID: uuid.New(), Role: types.RoleAdmin}

	tests := []struct {
		name      string
		body      string
		filter    types.UserFilter
		opts      paginate.Options
		wantLimit int
		wantPage  int
	}{
		{
			name:      "empty body sorts newest first",
			body:      `{}`,
			opts:      paginate.Options{SortBy: "createdAt:desc"},
			wantLimit: 10,
			wantPage:  1,
		},
		{
			name:      "negative limit falls back",
			body:      `{"limit":-1}`,
			opts:      paginate.Options{SortBy: "createdAt:desc", Limit: -1},
			wantLimit: 10,
			wantPage:  1,
		},
		{
			name:      "negative page falls back",
			body:      `{"page":-3}`,
			opts:      paginate.Options{SortBy: "createdAt:desc", Page: -3},
			wantLimit: 10,
			wantPage:  1,
		},
		{
			name:      "large limit is capped",
			body:      `{"limit":150}`,
			opts:      paginate.Options{SortBy: "createdAt:desc", Limit: maxFetchLimit},
			wantLimit: maxFetchLimit,
			wantPage:  1,
		},
		{
			name:      "name and email filters",
			body:      `{"name":"ada","email":"example.com"}`,
			filter:    types.UserFilter{Name: "ada", Email: "example.com"},
			opts:      paginate.Options{SortBy: "createdAt:desc"},
			wantLimit: 10,
			wantPage:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, f := newHandlerFixture(admin)
			f.repo.On("List", mock.Anything, tt.filter, tt.opts).
				Return(paginate.NewResult([]types.User{}, 0, tt.opts), nil).Once()

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/fetch", strings.NewReader(tt.body)))

			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			data := decode(t, rr)["data"].(map[string]any)
			assert.EqualValues(t, tt.wantLimit, data["limit"])
			assert.EqualValues(t, tt.wantPage, data["page"])
			f.repo.AssertExpectations(t)
		})
	}
}

func TestGetUserHandlerInvalidID(t *testing.T) {
	h, _ := newHandlerFixture(&types.User{ID: uuid.New(), Role: types.RoleAdmin})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid user id", decode(t, rr)["message"])
}

func TestBlockUserHandlerSelf(t *testing.T) {
	admin := &types.User{ID: uuid.New(), Role: types.RoleAdmin}
	h, _ := newHandlerFixture(admin)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/"+admin.ID.String()+"/block", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "You cannot block yourself", decode(t, rr)["message"])
}

func multipartBody(t *testing.T, field, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="me.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadProfileHandler(t *testing.T) {
	me := &types.User{ID: uuid.New(), Role: types.RoleCustomer}

	t.Run("stores the image", func(t *testing.T) {
		uploaded := storage.Object{Key: "learnhub/users/profile/01h", URL: "https://cdn.example.com/me.png"}
		h, f := newHandlerFixture(me)
		f.storage.On("Put", mock.Anything, "users/profile", mock.Anything).
			Return(&uploaded, nil).Once()
		f.repo.On("UpdateImage", mock.Anything, me.ID, ImageProfile, uploaded.URL).
			Return(&types.User{ID: me.ID, Profile: uploaded.URL}, nil).Once()

		body, ct := multipartBody(t, "file", "image/png", []byte("\x89PNG"))
		req := httptest.NewRequest(http.MethodPost, "/users/me/upload/photo", body)
		req.Header.Set("Content-Type", ct)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		data := decode(t, rr)["data"].(map[string]any)
		assert.Equal(t, uploaded.URL, data["profile"])
	})

	t.Run("rejects non images", func(t *testing.T) {
		h, f := newHandlerFixture(me)
		body, ct := multipartBody(t, "file", "text/plain", []byte("hello"))
		req := httptest.NewRequest(http.MethodPost, "/users/me/upload/photo", body)
		req.Header.Set("Content-Type", ct)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		f.storage.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing part", func(t *testing.T) {
		h, _ := newHandlerFixture(me)
		body, ct := multipartBody(t, "other", "image/png", []byte("\x89PNG"))
		req := httptest.NewRequest(http.MethodPost, "/users/me/upload/photo", body)
		req.Header.Set("Content-Type", ct)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
