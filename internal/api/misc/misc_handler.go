package misc

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/learnhub-api/app/storage"
	"github.com/FACorreiaa/learnhub-api/internal/api"
)

const checkTimeout = 3 * time.Second

// Check is one dependency probe of the health endpoint.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func PostgresCheck(db Pinger) Check {
	return Check{Name: "postgres", Probe: db.Ping}
}

func MongoCheck(client *mongo.Client) Check {
	return Check{Name: "mongodb", Probe: func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}}
}

func RedisCheck(client *redis.Client) Check {
	return Check{Name: "redis", Probe: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

type ObjectStore interface {
	Put(ctx context.Context, prefix string, r io.Reader) (*storage.Object, error)
}

// HealthStatus is the body of /misc/health.
type HealthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

type UploadResult struct {
	URL string `json:"url"`
}

var _ Handler = (*MiscHandlerImpl)(nil)

type Handler interface {
	Health(w http.ResponseWriter, r *http.Request)
	Upload(w http.ResponseWriter, r *http.Request)
}

type MiscHandlerImpl struct {
	checks  []Check
	storage ObjectStore
	logger  *slog.Logger
}

func NewMiscHandlerImpl(store ObjectStore, logger *slog.Logger, checks ...Check) *MiscHandlerImpl {
	return &MiscHandlerImpl{
		checks:  checks,
		storage: store,
		logger:  logger,
	}
}

// Health probes every dependency concurrently and answers 503 if any is down.
func (h *MiscHandlerImpl) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()
	l := h.logger.With(slog.String("HandlerImpl", "Health"))

	var (
		mu     sync.Mutex
		status = HealthStatus{Status: "ok", Services: make(map[string]string, len(h.checks))}
	)
	var g errgroup.Group
	for _, c := range h.checks {
		g.Go(func() error {
			state := "up"
			if err := c.Probe(ctx); err != nil {
				l.WarnContext(ctx, "Health check failed", slog.String("service", c.Name), slog.Any("error", err))
				state = "down"
			}
			mu.Lock()
			defer mu.Unlock()
			status.Services[c.Name] = state
			if state == "down" {
				status.Status = "degraded"
			}
			return nil
		})
	}
	_ = g.Wait()

	if status.Status != "ok" {
		api.WriteJSONResponse(w, r, http.StatusServiceUnavailable, api.Response{
			Success: false,
			Message: "Service unavailable",
			Data:    status,
		})
		return
	}
	api.Success(w, r, http.StatusOK, "", status)
}

// Upload stores the "file" part of an authenticated multipart request.
func (h *MiscHandlerImpl) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Upload"))

	file, header, err := api.FormFile(w, r, "file")
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	defer file.Close()

	obj, err := h.storage.Put(ctx, "uploads", file)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	l.InfoContext(ctx, "File uploaded", slog.String("key", obj.Key), slog.String("filename", header.Filename), slog.Int64("size", header.Size))
	api.Success(w, r, http.StatusOK, "File uploaded successfully", UploadResult{URL: obj.URL})
}
