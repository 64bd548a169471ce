// Package gateway fronts the auth and blog services behind one port.
package gateway

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appLogger "github.com/FACorreiaa/learnhub-api/app/logger"
	"github.com/FACorreiaa/learnhub-api/internal/api"
)

// Route forwards every request under Prefix to Target with the prefix
// removed, so /auth/sign-in reaches <Target>/sign-in.
type Route struct {
	Prefix string
	Target string
}

func newProxy(target *url.URL, logger *slog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Set(middleware.RequestIDHeader, middleware.GetReqID(pr.In.Context()))
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(r.Context(), "Upstream request failed",
				slog.String("upstream", target.Host),
				slog.String("path", r.URL.Path),
				slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadGateway, "Upstream service unavailable")
		},
	}
}

// New builds the gateway handler. Unknown prefixes answer 404.
func New(routes []Route, logger *slog.Logger) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	for _, rt := range routes {
		prefix := "/" + strings.Trim(rt.Prefix, "/")
		target, err := url.Parse(rt.Target)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("invalid upstream %q for %s", rt.Target, prefix)
		}
		r.Mount(prefix, http.StripPrefix(prefix, newProxy(target, logger)))
		logger.Info("Gateway route registered", slog.String("prefix", prefix), slog.String("upstream", target.String()))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.ErrorResponse(w, r, http.StatusNotFound, "Not found")
	})
	return r, nil
}
