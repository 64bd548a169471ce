package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the auth and storage instruments. A nil *AppMetrics is
// valid and records nothing.
type AppMetrics struct {
	SignUpsTotal           metric.Int64Counter
	SignInsTotal           metric.Int64Counter
	TokensIssuedTotal      metric.Int64Counter
	OTPSentTotal           metric.Int64Counter
	DbQueryDurationSeconds metric.Float64Histogram
	DbQueryErrorsTotal     metric.Int64Counter
}

func New(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	m.SignUpsTotal, err = meter.Int64Counter(
		"auth_signups_total",
		metric.WithDescription("Total number of completed sign-ups"),
		metric.WithUnit("{user}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to create auth_signups_total: %w", err)
	}

	m.SignInsTotal, err = meter.Int64Counter(
		"auth_signins_total",
		metric.WithDescription("Sign-in attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to create auth_signins_total: %w", err)
	}

	m.TokensIssuedTotal, err = meter.Int64Counter(
		"auth_tokens_issued_total",
		metric.WithDescription("Access/refresh token pairs issued"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to create auth_tokens_issued_total: %w", err)
	}

	m.OTPSentTotal, err = meter.Int64Counter(
		"auth_otp_sent_total",
		metric.WithDescription("One-time passwords generated and mailed"),
		metric.WithUnit("{otp}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to create auth_otp_sent_total: %w", err)
	}

	m.DbQueryDurationSeconds, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to create db_query_duration_seconds: %w", err)
	}

	m.DbQueryErrorsTotal, err = meter.Int64Counter(
		"db_query_errors_total",
		metric.WithDescription("Total number of database query errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to create db_query_errors_total: %w", err)
	}

	return m, nil
}

func (m *AppMetrics) SignUp(ctx context.Context) {
	if m == nil {
		return
	}
	m.SignUpsTotal.Add(ctx, 1)
}

// SignIn records one attempt; outcome is "success" or the failure reason.
func (m *AppMetrics) SignIn(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.SignInsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AppMetrics) TokensIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.TokensIssuedTotal.Add(ctx, 1)
}

func (m *AppMetrics) OTPSent(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.OTPSentTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// ObserveQuery records the latency of a repository call and counts it as an
// error when err is non-nil.
func (m *AppMetrics) ObserveQuery(ctx context.Context, store, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("store", store), attribute.String("operation", op))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}
