package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/learnhub-api/app/db"
	"github.com/FACorreiaa/learnhub-api/app/observability/metrics"
	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

var _ SessionRepo = (*PostgresSessionRepo)(nil)

type SessionRepo interface {
	// Create stores a new session. The (user, refresh token) pair is unique.
	Create(ctx context.Context, s *types.Session) (*types.Session, error)
	// FindByRefreshToken returns api.ErrNotFound when the user owns no
	// session with that token.
	FindByRefreshToken(ctx context.Context, userID uuid.UUID, refreshToken string) (*types.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Session, error)
	// DeviceTokens lists the distinct push tokens of the user's sessions.
	DeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	// Rotate swaps the refresh token of a session, failing with
	// api.ErrNotFound if oldToken was already rotated or removed.
	Rotate(ctx context.Context, sessionID uuid.UUID, oldToken, newToken string, expires time.Time) error
	// Delete removes the session matching (user, refresh token).
	Delete(ctx context.Context, userID uuid.UUID, refreshToken string) error
	// DeleteAll removes every session of the user and reports how many.
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

const sessionColumns = `id, user_id, refresh_token, refresh_token_expires, device_token, device_type, created_at, updated_at`

type PostgresSessionRepo struct {
	logger  *slog.Logger
	db      database.DB
	metrics *metrics.AppMetrics
}

func NewPostgresSessionRepo(db database.DB, m *metrics.AppMetrics, logger *slog.Logger) *PostgresSessionRepo {
	return &PostgresSessionRepo{
		logger:  logger,
		db:      db,
		metrics: m,
	}
}

func scanSession(row pgx.Row) (*types.Session, error) {
	var s types.Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.RefreshToken,
		&s.RefreshTokenExpires,
		&s.DeviceToken,
		&s.DeviceType,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresSessionRepo) Create(ctx context.Context, s *types.Session) (*types.Session, error) {
	ctx, span := otel.Tracer("SessionRepo").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("user.id", s.UserID.String()),
	))
	defer span.End()
	start := time.Now()

	query := `INSERT INTO sessions (user_id, refresh_token, refresh_token_expires, device_token, device_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + sessionColumns

	created, err := scanSession(r.db.QueryRow(ctx, query,
		s.UserID, s.RefreshToken, s.RefreshTokenExpires, s.DeviceToken, s.DeviceType))
	r.metrics.ObserveQuery(ctx, "postgres", "sessions.create", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if database.IsUniqueViolation(err, "sessions_user_refresh_token_key") {
			return nil, fmt.Errorf("session for this refresh token: %w", api.ErrAlreadyExists)
		}
		r.logger.ErrorContext(ctx, "Failed to create session", slog.Any("error", err))
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	span.SetStatus(codes.Ok, "session created")
	return created, nil
}

func (r *PostgresSessionRepo) FindByRefreshToken(ctx context.Context, userID uuid.UUID, refreshToken string) (*types.Session, error) {
	ctx, span := otel.Tracer("SessionRepo").Start(ctx, "FindByRefreshToken", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	start := time.Now()

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 AND refresh_token = $2`
	s, err := scanSession(r.db.QueryRow(ctx, query, userID, refreshToken))
	r.metrics.ObserveQuery(ctx, "postgres", "sessions.find", start, ignoreNoRows(err))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, fmt.Errorf("session: %w", api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("error finding session: %w", err)
	}
	span.SetStatus(codes.Ok, "session found")
	return s, nil
}

func (r *PostgresSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]types.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

func (r *PostgresSessionRepo) DeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT device_token FROM sessions WHERE user_id = $1 AND device_token IS NOT NULL AND device_token <> ''`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("error listing device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("error scanning device token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *PostgresSessionRepo) Rotate(ctx context.Context, sessionID uuid.UUID, oldToken, newToken string, expires time.Time) error {
	ctx, span := otel.Tracer("SessionRepo").Start(ctx, "Rotate", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()
	start := time.Now()

	tag, err := r.db.Exec(ctx,
		`UPDATE sessions SET refresh_token = $1, refresh_token_expires = $2 WHERE id = $3 AND refresh_token = $4`,
		newToken, expires, sessionID, oldToken)
	r.metrics.ObserveQuery(ctx, "postgres", "sessions.rotate", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("error rotating session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return fmt.Errorf("session %s: %w", sessionID, api.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "session rotated")
	return nil
}

func (r *PostgresSessionRepo) Delete(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND refresh_token = $2`,
		userID, refreshToken)
	r.metrics.ObserveQuery(ctx, "postgres", "sessions.delete", start, err)
	if err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session: %w", api.ErrNotFound)
	}
	return nil
}

func (r *PostgresSessionRepo) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	r.metrics.ObserveQuery(ctx, "postgres", "sessions.delete_all", start, err)
	if err != nil {
		return 0, fmt.Errorf("error deleting sessions of user %s: %w", userID, err)
	}
	r.logger.DebugContext(ctx, "Sessions removed",
		slog.String("userID", userID.String()),
		slog.Int64("count", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE refresh_token_expires < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func ignoreNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}
