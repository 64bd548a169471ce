package misc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/FACorreiaa/learnhub-api/app/storage"
	"github.com/FACorreiaa/learnhub-api/internal/api"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, prefix string, r io.Reader) (*storage.Object, error) {
	args := m.Called(ctx, prefix, r)
	o, _ := args.Get(0).(*storage.Object)
	return o, args.Error(1)
}

func healthBody(t *testing.T, rr *httptest.ResponseRecorder) HealthStatus {
	t.Helper()
	var resp struct {
		Data HealthStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Data
}

func TestHealthAllUp(t *testing.T) {
	pg, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pg.Close)
	pg.ExpectPing()

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("ping", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		h := NewMiscHandlerImpl(nil, discard, PostgresCheck(pg), MongoCheck(mt.Client), RedisCheck(rdb))
		rr := httptest.NewRecorder()
		h.Health(rr, httptest.NewRequest(http.MethodGet, "/api/v1/misc/health", nil))

		require.Equal(mt, http.StatusOK, rr.Code)
		status := healthBody(mt.T, rr)
		assert.Equal(mt, "ok", status.Status)
		assert.Equal(mt, map[string]string{"postgres": "up", "mongodb": "up", "redis": "up"}, status.Services)
	})
	assert.NoError(t, pg.ExpectationsWereMet())
}

func TestHealthRedisDown(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	srv.Close()

	ok := Check{Name: "postgres", Probe: func(context.Context) error { return nil }}
	h := NewMiscHandlerImpl(nil, discard, ok, RedisCheck(rdb))
	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/api/v1/misc/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	status := healthBody(t, rr)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "down", status.Services["redis"])
	assert.Equal(t, "up", status.Services["postgres"])
}

func uploadRequest(t *testing.T, field string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "notes.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/misc/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	t.Run("returns the url", func(t *testing.T) {
		store := new(MockObjectStore)
		store.On("Put", mock.Anything, "uploads", mock.Anything).
			Return(&storage.Object{Key: "learnhub/uploads/01h", URL: "https://cdn.example.com/notes.pdf"}, nil).Once()

		rr := httptest.NewRecorder()
		NewMiscHandlerImpl(store, discard).Upload(rr, uploadRequest(t, "file"))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Data UploadResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "https://cdn.example.com/notes.pdf", resp.Data.URL)
		store.AssertExpectations(t)
	})

	t.Run("missing file", func(t *testing.T) {
		store := new(MockObjectStore)
		rr := httptest.NewRecorder()
		NewMiscHandlerImpl(store, discard).Upload(rr, uploadRequest(t, "attachment"))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage not configured", func(t *testing.T) {
		store := new(MockObjectStore)
		store.On("Put", mock.Anything, "uploads", mock.Anything).Return(nil, storage.ErrNotConfigured).Once()

		rr := httptest.NewRecorder()
		NewMiscHandlerImpl(store, discard).Upload(rr, uploadRequest(t, "file"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		var resp api.Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
	})
}
