package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/learnhub-api/internal/api"
)

const otpThrottleKeyPrefix = "otp_throttle:"

const maxPeekBytes = 1 << 20

// OTPThrottle limits how many OTP emails a single address may request per
// window. The counter lives in Redis so every API replica shares it.
type OTPThrottle struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *slog.Logger
}

func NewOTPThrottle(client *redis.Client, limit int, window time.Duration, logger *slog.Logger) *OTPThrottle {
	return &OTPThrottle{client: client, limit: limit, window: window, logger: logger}
}

func otpThrottleKey(email string) string {
	return otpThrottleKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

// Handler reads the "email" field of the JSON body, counts the request
// against it and restores the body for the next handler. Requests without an
// email pass through; validation rejects them later. Redis failures fail
// open.
func (t *OTPThrottle) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		l := t.logger.With(slog.String("middleware", "OTPThrottle"))

		body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
		_ = r.Body.Close()
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Unable to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var payload struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal(body, &payload); err != nil || payload.Email == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := otpThrottleKey(payload.Email)
		count, err := t.client.Incr(ctx, key).Result()
		if err != nil {
			l.WarnContext(ctx, "OTP throttle unavailable, allowing request", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
				l.WarnContext(ctx, "Failed to set OTP throttle expiry", slog.Any("error", err))
			}
		}

		if count > int64(t.limit) {
			ttl, _ := t.client.TTL(ctx, key).Result()
			if ttl > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			}
			l.WarnContext(ctx, "OTP request limit reached", slog.Int64("count", count))
			api.ErrorResponse(w, r, http.StatusTooManyRequests,
				fmt.Sprintf("Too many OTP requests, please wait %s before trying again", t.window))
			return
		}

		next.ServeHTTP(w, r)
	})
}
