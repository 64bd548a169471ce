package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	rediscache "github.com/FACorreiaa/learnhub-api/app/cache"
	database "github.com/FACorreiaa/learnhub-api/app/db"
	"github.com/FACorreiaa/learnhub-api/app/mailer"
	appMiddleware "github.com/FACorreiaa/learnhub-api/app/middleware"
	"github.com/FACorreiaa/learnhub-api/app/mongodb"
	"github.com/FACorreiaa/learnhub-api/app/notifier"
	"github.com/FACorreiaa/learnhub-api/app/observability/metrics"
	"github.com/FACorreiaa/learnhub-api/app/storage"
	"github.com/FACorreiaa/learnhub-api/app/tracer"
	"github.com/FACorreiaa/learnhub-api/config"
	"github.com/FACorreiaa/learnhub-api/internal/api/auth"
	"github.com/FACorreiaa/learnhub-api/internal/api/blog"
	"github.com/FACorreiaa/learnhub-api/internal/api/course"
	"github.com/FACorreiaa/learnhub-api/internal/api/misc"
	"github.com/FACorreiaa/learnhub-api/internal/api/payment"
	"github.com/FACorreiaa/learnhub-api/internal/api/progress"
	"github.com/FACorreiaa/learnhub-api/internal/api/session"
	"github.com/FACorreiaa/learnhub-api/internal/api/user"
	"github.com/FACorreiaa/learnhub-api/internal/router"
)

const (
	serviceName         = "learnhub-api"
	defaultUserCacheTTL = time.Minute
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *slog.Logger
	Pool      *pgxpool.Pool
	Mongo     *mongo.Client
	Redis     *redis.Client
	Providers *tracer.Providers
	Sessions  *session.PostgresSessionRepo
	Router    *router.Config
}

// NewContainer connects every store, applies migrations and indexes and
// builds the handlers. Optional collaborators (SMTP, Cloudinary, Firebase)
// fall back to logging or 503 stand-ins when they are not configured.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}
	if err := c.connect(ctx); err != nil {
		c.Close()
		return nil, err
	}

	providers, err := tracer.InitTracingAndMetrics(serviceName)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Providers = providers
	meter := providers.Meter.Meter(serviceName)

	appMetrics, err := metrics.New(meter)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create app metrics: %w", err)
	}
	requestMetrics, err := tracer.RequestMetrics(meter)
	if err != nil {
		c.Close()
		return nil, err
	}

	// Initialize repositories
	mdb := c.Mongo.Database(cfg.Repositories.Mongo.DB)
	userRepo := user.NewPostgresUserRepo(c.Pool, appMetrics, logger)
	c.Sessions = session.NewPostgresSessionRepo(c.Pool, appMetrics, logger)
	blogRepo := blog.NewMongoBlogRepo(mdb, appMetrics, logger)
	courseRepo := course.NewMongoCourseRepo(mdb, appMetrics, logger)
	paymentRepo := payment.NewMongoPaymentRepo(mdb, appMetrics, logger)
	progressRepo := progress.NewMongoProgressRepo(mdb, appMetrics, logger)

	// Collaborators
	mail := newMailer(cfg, logger)
	store := newObjectStore(cfg, logger)
	push := newNotifier(ctx, cfg, logger)

	userCacheTTL := cfg.RateLimit.UserCacheTTL
	if userCacheTTL <= 0 {
		userCacheTTL = defaultUserCacheTTL
	}
	userCache := gocache.New(userCacheTTL, 2*userCacheTTL)

	// Initialize services
	tokens := auth.NewTokenIssuer(cfg.JWT, cfg.OTP, logger)
	authService := auth.NewAuthService(userRepo, c.Sessions, tokens, mail, auth.NewGothVerifier(*cfg, logger), appMetrics, logger)
	userService := user.NewUserService(userRepo, c.Sessions, push, store, userCache, logger)
	courseService := course.NewCourseService(courseRepo, logger)

	c.Router = &router.Config{
		Logger:          logger,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Timeout:         cfg.Server.Timeout,
		ShowStackTraces: !cfg.IsProduction(),
		MetricsPath:     cfg.Server.MetricsPath,
		MetricsHandler:  providers.Handler,
		RequestMetrics:  requestMetrics,
		Require:         auth.NewAuthenticator(tokens, userRepo, userCache, logger).Require,
		AuthRateLimit:   appMiddleware.RateLimitByIP(cfg.RateLimit.AuthRequests, cfg.RateLimit.Window, logger),
		OTPThrottle:     appMiddleware.NewOTPThrottle(c.Redis, cfg.RateLimit.OTPPerWindow, cfg.RateLimit.OTPWindow, logger).Handler,
		AuthHandler:     auth.NewAuthHandlerImpl(authService, logger),
		UserHandler:     user.NewUserHandlerImpl(userService, logger),
		MiscHandler: misc.NewMiscHandlerImpl(store, logger,
			misc.PostgresCheck(c.Pool),
			misc.MongoCheck(c.Mongo),
			misc.RedisCheck(c.Redis),
		),
		BlogHandler:     blog.NewBlogHandlerImpl(blog.NewBlogService(blogRepo, logger), logger),
		CourseHandler:   course.NewCourseHandlerImpl(courseService, logger),
		PaymentHandler:  payment.NewPaymentHandlerImpl(payment.NewPaymentService(paymentRepo, courseRepo, logger), logger),
		ProgressHandler: progress.NewProgressHandlerImpl(progress.NewProgressService(progressRepo, courseRepo, logger), logger),
	}
	return c, nil
}

func (c *Container) connect(ctx context.Context) error {
	cfg, logger := c.Config, c.Logger

	connectionURL, err := database.ConnectionURL(*cfg)
	if err != nil {
		return fmt.Errorf("failed to generate database config: %w", err)
	}
	if err := database.RunMigrations(connectionURL, logger); err != nil {
		return err
	}
	if c.Pool, err = database.Init(ctx, connectionURL, logger); err != nil {
		return err
	}
	if !database.WaitForDB(ctx, c.Pool, logger) {
		return errors.New("database not ready after waiting")
	}

	if c.Mongo, err = mongodb.Connect(ctx, cfg.Repositories.Mongo.URI, logger); err != nil {
		return err
	}
	if err := mongodb.EnsureIndexes(ctx, c.Mongo.Database(cfg.Repositories.Mongo.DB)); err != nil {
		return err
	}

	if c.Redis, err = rediscache.Connect(ctx, cfg.Repositories.Redis.URL, logger); err != nil {
		return err
	}
	return nil
}

func newMailer(cfg *config.Config, logger *slog.Logger) auth.Mailer {
	if cfg.SMTP.Host == "" {
		logger.Warn("SMTP host not set, emails will only be logged")
		return mailer.NewLogMailer(logger, !cfg.IsProduction())
	}
	m, err := mailer.New(cfg.SMTP, logger)
	if err != nil {
		logger.Error("Failed to create mailer, emails will only be logged", slog.Any("error", err))
		return mailer.NewLogMailer(logger, !cfg.IsProduction())
	}
	return m
}

// objectStore is what both the user and the misc upload handlers need.
type objectStore interface {
	user.ObjectStore
	misc.ObjectStore
}

func newObjectStore(cfg *config.Config, logger *slog.Logger) objectStore {
	store, err := storage.NewCloudinary(cfg.Storage.Cloudinary, logger)
	if err != nil {
		if !errors.Is(err, storage.ErrNotConfigured) {
			logger.Error("Failed to initialize object storage", slog.Any("error", err))
		} else {
			logger.Warn("Object storage not configured, uploads are disabled")
		}
		return storage.Unavailable{}
	}
	return store
}

func newNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) user.Notifier {
	fb, err := notifier.NewFirebase(ctx, cfg.Firebase, logger)
	if err != nil {
		if !errors.Is(err, notifier.ErrNotConfigured) {
			logger.Error("Failed to initialize firebase", slog.Any("error", err))
		}
		return notifier.NewLogNotifier(logger)
	}
	return fb
}

// RunSessionJanitor deletes expired sessions every interval until ctx ends.
func (c *Container) RunSessionJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := c.Sessions.DeleteExpired(ctx, now.UTC())
			if err != nil {
				c.Logger.WarnContext(ctx, "Failed to purge expired sessions", slog.Any("error", err))
				continue
			}
			if n > 0 {
				c.Logger.InfoContext(ctx, "Expired sessions purged", slog.Int64("count", n))
			}
		}
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.Providers != nil {
		if err := c.Providers.Shutdown(ctx); err != nil {
			c.Logger.Warn("Failed to shut down telemetry", slog.Any("error", err))
		}
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			c.Logger.Warn("Failed to disconnect from MongoDB", slog.Any("error", err))
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
