package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appLogger "github.com/FACorreiaa/learnhub-api/app/logger"
	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/auth"
	"github.com/FACorreiaa/learnhub-api/internal/api/blog"
	"github.com/FACorreiaa/learnhub-api/internal/api/course"
	"github.com/FACorreiaa/learnhub-api/internal/api/misc"
	"github.com/FACorreiaa/learnhub-api/internal/api/payment"
	"github.com/FACorreiaa/learnhub-api/internal/api/progress"
	"github.com/FACorreiaa/learnhub-api/internal/api/user"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

const defaultMetricsPath = "/metrics"

type Middleware = func(http.Handler) http.Handler

// Config contains dependencies needed for the router setup
type Config struct {
	Logger          *slog.Logger
	AllowedOrigins  []string
	Timeout         time.Duration
	ShowStackTraces bool
	MetricsPath     string
	MetricsHandler  http.Handler
	RequestMetrics  Middleware

	// Require authenticates the caller and, given roles, authorizes them.
	Require       func(roles ...types.Role) func(http.Handler) http.Handler
	AuthRateLimit Middleware
	OTPThrottle   Middleware

	AuthHandler     auth.Handler
	UserHandler     user.Handler
	MiscHandler     misc.Handler
	BlogHandler     blog.Handler
	CourseHandler   course.Handler
	PaymentHandler  payment.Handler
	ProgressHandler progress.Handler
}

func passthrough(next http.Handler) http.Handler { return next }

func orPassthrough(m Middleware) Middleware {
	if m == nil {
		return passthrough
	}
	return m
}

// SetupRouter builds the whole HTTP surface: server-wide middleware, the
// scrape and liveness endpoints and the versioned API.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(orPassthrough(cfg.RequestMetrics))
	r.Use(api.ShowStackTraces(cfg.ShowStackTraces))
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = defaultMetricsPath
		}
		r.Method(http.MethodGet, path, cfg.MetricsHandler)
	}
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	authenticated := cfg.Require()
	staff := cfg.Require(types.RoleAdmin, types.RoleSuperAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			h := cfg.AuthHandler
			r.Group(func(r chi.Router) {
				r.Use(orPassthrough(cfg.AuthRateLimit))
				r.Post("/sign-up", h.SignUp)
				r.Post("/sign-in", h.SignIn)
				r.Post("/social-token", h.SocialSignIn)
				r.Post("/verify", h.Verify)
				r.Post("/refresh", h.RefreshTokens)
				r.Post("/reset-password", h.ResetPassword)
				r.With(orPassthrough(cfg.OTPThrottle)).Post("/send-otp", h.SendOTP)
			})
			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Post("/logout", h.Logout)
				r.Post("/logout-all", h.LogoutAll)
			})
		})

		r.Route("/users", func(r chi.Router) {
			h := cfg.UserHandler
			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Get("/me", h.GetMe)
				r.Patch("/me", h.UpdateMe)
				r.Post("/me/upload/photo", h.UploadProfile)
				r.Post("/me/upload/background", h.UploadBackground)
			})
			r.Group(func(r chi.Router) {
				r.Use(staff)
				r.Post("/fetch", h.FetchUsers)
				r.Get("/{id}", h.GetUser)
				r.Delete("/{id}", h.DeleteUser)
				r.Post("/{id}/block", h.BlockUser)
			})
		})

		r.Route("/misc", func(r chi.Router) {
			r.Get("/health", cfg.MiscHandler.Health)
			r.With(authenticated).Post("/upload", cfg.MiscHandler.Upload)
		})

		r.Route("/blogs", func(r chi.Router) {
			h := cfg.BlogHandler
			r.Get("/", h.ListBlogs)
			r.Get("/{id}", h.GetBlog)
			r.Post("/{id}/like", h.LikeBlog)
			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Post("/", h.CreateBlog)
				r.Post("/{id}/comment", h.CommentBlog)
			})
		})

		r.Route("/courses", func(r chi.Router) {
			h := cfg.CourseHandler
			r.Get("/", h.ListCourses)
			r.Get("/{id}", h.GetCourse)
			r.Group(func(r chi.Router) {
				r.Use(staff)
				r.Post("/", h.CreateCourse)
				r.Patch("/{id}", h.UpdateCourse)
				r.Delete("/{id}", h.DeleteCourse)
			})
		})

		r.Route("/payments", func(r chi.Router) {
			h := cfg.PaymentHandler
			r.Use(authenticated)
			r.Post("/", h.CreatePayment)
			r.Get("/", h.ListPayments)
			r.Get("/{id}", h.GetPayment)
			r.With(staff).Patch("/{id}/status", h.UpdatePaymentStatus)
		})

		r.Route("/progress", func(r chi.Router) {
			h := cfg.ProgressHandler
			r.Use(authenticated)
			r.Get("/", h.ListProgress)
			r.Put("/", h.TrackProgress)
		})
	})

	return r
}
