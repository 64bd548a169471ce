package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
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
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for user persistence.
type UserRepo interface {
	// Create inserts a user. A taken email yields api.ErrAlreadyExists.
	Create(ctx context.Context, params types.NewUser) (*types.User, error)
	// GetByID and GetByEmail return api.ErrNotFound for unknown users.
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	// UpsertSocial creates or links the account of a social identity. The
	// email is marked verified either way.
	UpsertSocial(ctx context.Context, profile types.SocialProfile) (*types.User, error)

	// SetOTP stores a one-time password and its expiry for kind.
	SetOTP(ctx context.Context, id uuid.UUID, kind types.OTPKind, otp string, expires time.Time) error
	// CompleteVerification sets the verified flag of kind and clears its OTP.
	CompleteVerification(ctx context.Context, id uuid.UUID, kind types.OTPKind) error
	// UpdatePassword stores a new hash and clears any pending reset.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	UpdateProfile(ctx context.Context, id uuid.UUID, params types.UpdateProfileParams) (*types.User, error)
	UpdateImage(ctx context.Context, id uuid.UUID, field ImageField, url string) (*types.User, error)

	List(ctx context.Context, filter types.UserFilter, opts paginate.Options) (*paginate.Result[types.User], error)
	SoftDelete(ctx context.Context, id, actor uuid.UUID) error
	Block(ctx context.Context, id, actor uuid.UUID) error
}

// ImageField names the user column an uploaded image URL is stored in.
type ImageField string

const (
	ImageProfile    ImageField = "profile"
	ImageBackground ImageField = "background"
)

var userColumnNames = []string{
	"id", "name", "user_name", "email", "profile", "background", "bio",
	"provider", "provider_id", "role", "password_hash", "phone", "phone_country_code",
	"is_login_verified", "login_token", "login_token_expires",
	"is_admin_verified",
	"is_email_verified", "email_token", "email_token_expires",
	"is_phone_verified", "phone_token", "phone_token_expires",
	"is_reset_confirmed", "reset_token", "reset_token_expires",
	"is_deleted", "deleted_by", "deleted_at",
	"is_blocked", "blocked_by", "blocked_at",
	"send_notifications", "privacy_policy", "terms_and_conditions",
	"created_by", "updated_by", "created_at", "updated_at",
}

var userColumns = strings.Join(userColumnNames, ", ")

// userSortColumns whitelists the fields the admin listing may sort by.
var userSortColumns = paginate.Columns{
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// otpColumns maps an OTP kind to its (token, expiry, verified flag) columns.
var otpColumns = map[types.OTPKind][3]string{
	types.OTPEmail: {"email_token", "email_token_expires", "is_email_verified"},
	types.OTPReset: {"reset_token", "reset_token_expires", "is_reset_confirmed"},
	types.OTPLogin: {"login_token", "login_token_expires", "is_login_verified"},
	types.OTPPhone: {"phone_token", "phone_token_expires", "is_phone_verified"},
}

// scanTargets lists the destinations of userColumnNames, in order.
func scanTargets(u *types.User) []any {
	return []any{
		&u.ID, &u.Name, &u.UserName, &u.Email, &u.Profile, &u.Background, &u.Bio,
		&u.Provider, &u.ProviderID, &u.Role, &u.Password, &u.Phone, &u.PhoneCountryCode,
		&u.IsLoginVerified, &u.LoginToken, &u.LoginTokenExpires,
		&u.IsAdminVerified,
		&u.IsEmailVerified, &u.EmailToken, &u.EmailTokenExpires,
		&u.IsPhoneVerified, &u.PhoneToken, &u.PhoneTokenExpires,
		&u.IsResetConfirmed, &u.ResetToken, &u.ResetTokenExpires,
		&u.IsDeleted, &u.DeletedBy, &u.DeletedAt,
		&u.IsBlocked, &u.BlockedBy, &u.BlockedAt,
		&u.SendNotifications, &u.PrivacyPolicy, &u.TermsAndConditions,
		&u.CreatedBy, &u.UpdatedBy, &u.CreatedAt, &u.UpdatedAt,
	}
}

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	if err := row.Scan(scanTargets(&u)...); err != nil {
		return nil, err
	}
	return &u, nil
}

type PostgresUserRepo struct {
	logger  *slog.Logger
	db      database.DB
	metrics *metrics.AppMetrics
}

func NewPostgresUserRepo(db database.DB, m *metrics.AppMetrics, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger:  logger,
		db:      db,
		metrics: m,
	}
}

func (r *PostgresUserRepo) Create(ctx context.Context, params types.NewUser) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "Create")
	defer span.End()
	start := time.Now()

	role := params.Role
	if role == "" {
		role = types.RoleCustomer
	}

	query := `INSERT INTO users (name, email, password_hash, role, provider, created_by)
		VALUES ($1, LOWER($2), $3, $4, $5, $6)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query,
		params.Name, strings.TrimSpace(params.Email), params.PasswordHash, role, types.ProviderEmail, params.CreatedBy))
	r.metrics.ObserveQuery(ctx, "postgres", "users.create", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if database.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("email %s: %w", params.Email, api.ErrAlreadyExists)
		}
		r.logger.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", u.ID.String()))
	span.SetStatus(codes.Ok, "user created")
	return u, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetByID", trace.WithAttributes(
		attribute.String("user.id", id.String()),
	))
	defer span.End()

	return r.getOne(ctx, span, "users.get_by_id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetByEmail")
	defer span.End()

	return r.getOne(ctx, span, "users.get_by_email",
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email))
}

func (r *PostgresUserRepo) getOne(ctx context.Context, span trace.Span, op, query string, args ...any) (*types.User, error) {
	start := time.Now()
	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		r.metrics.ObserveQuery(ctx, "postgres", op, start, nil)
		span.SetStatus(codes.Error, "not found")
		return nil, fmt.Errorf("user: %w", api.ErrNotFound)
	}
	r.metrics.ObserveQuery(ctx, "postgres", op, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	span.SetStatus(codes.Ok, "user found")
	return u, nil
}

func (r *PostgresUserRepo) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`,
		strings.TrimSpace(email)).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return taken, nil
}

func (r *PostgresUserRepo) UpsertSocial(ctx context.Context, p types.SocialProfile) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpsertSocial", trace.WithAttributes(
		attribute.String("provider", string(p.Provider)),
	))
	defer span.End()
	start := time.Now()

	query := `INSERT INTO users (name, email, provider, provider_id, profile, is_email_verified)
		VALUES ($1, LOWER($2), $3, $4, $5, TRUE)
		ON CONFLICT ((LOWER(email))) DO UPDATE SET
			provider = EXCLUDED.provider,
			provider_id = EXCLUDED.provider_id,
			is_email_verified = TRUE,
			name = CASE WHEN users.name = '' THEN EXCLUDED.name ELSE users.name END,
			profile = CASE WHEN users.profile = '' THEN EXCLUDED.profile ELSE users.profile END
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, p.Name, strings.TrimSpace(p.Email), p.Provider, p.ProviderID, p.Image))
	r.metrics.ObserveQuery(ctx, "postgres", "users.upsert_social", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return nil, fmt.Errorf("error upserting social user: %w", err)
	}
	span.SetStatus(codes.Ok, "user upserted")
	return u, nil
}

func (r *PostgresUserRepo) SetOTP(ctx context.Context, id uuid.UUID, kind types.OTPKind, otp string, expires time.Time) error {
	cols, ok := otpColumns[kind]
	if !ok {
		return fmt.Errorf("unknown otp kind %q", kind)
	}
	set := fmt.Sprintf("%s = $1, %s = $2", cols[0], cols[1])
	if kind == types.OTPReset {
		// a new reset code revokes any earlier confirmation
		set += ", is_reset_confirmed = FALSE"
	}
	return r.execOne(ctx, "users.set_otp", `UPDATE users SET `+set+` WHERE id = $3`, otp, expires, id)
}

func (r *PostgresUserRepo) CompleteVerification(ctx context.Context, id uuid.UUID, kind types.OTPKind) error {
	cols, ok := otpColumns[kind]
	if !ok {
		return fmt.Errorf("unknown otp kind %q", kind)
	}
	query := fmt.Sprintf(`UPDATE users SET %s = TRUE, %s = NULL, %s = NULL WHERE id = $1`, cols[2], cols[0], cols[1])
	return r.execOne(ctx, "users.complete_verification", query, id)
}

func (r *PostgresUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.execOne(ctx, "users.update_password",
		`UPDATE users SET password_hash = $1, is_reset_confirmed = FALSE, reset_token = NULL, reset_token_expires = NULL, updated_by = $2 WHERE id = $2`,
		passwordHash, id)
}

func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, params types.UpdateProfileParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateProfile", trace.WithAttributes(
		attribute.String("user.id", id.String()),
	))
	defer span.End()

	query := `UPDATE users SET
			name = COALESCE($1, name),
			bio = COALESCE($2, bio),
			phone = COALESCE($3, phone),
			phone_country_code = COALESCE($4, phone_country_code),
			updated_by = $5
		WHERE id = $5 AND is_deleted = FALSE
		RETURNING ` + userColumns

	return r.getOne(ctx, span, "users.update_profile", query,
		params.Name, params.Bio, params.Phone, params.PhoneCountryCode, id)
}

func (r *PostgresUserRepo) UpdateImage(ctx context.Context, id uuid.UUID, field ImageField, url string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateImage", trace.WithAttributes(
		attribute.String("user.id", id.String()),
		attribute.String("field", string(field)),
	))
	defer span.End()

	if field != ImageProfile && field != ImageBackground {
		return nil, fmt.Errorf("unknown image field %q", field)
	}
	query := `UPDATE users SET ` + string(field) + ` = $1, updated_by = $2 WHERE id = $2 RETURNING ` + userColumns
	return r.getOne(ctx, span, "users.update_image", query, url, id)
}

// userFilterClause renders the WHERE clause of the admin listing. Arguments
// are numbered from 1.
func userFilterClause(filter types.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", n, n))
	}
	for _, c := range []struct{ column, value string }{{"name", filter.Name}, {"email", filter.Email}} {
		if v := strings.TrimSpace(c.value); v != "" {
			args = append(args, "%"+escapeLike(v)+"%")
			conds = append(conds, fmt.Sprintf("%s ILIKE $%d", c.column, len(args)))
		}
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.IsDeleted != nil {
		args = append(args, *filter.IsDeleted)
		conds = append(conds, fmt.Sprintf("is_deleted = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PostgresUserRepo) List(ctx context.Context, filter types.UserFilter, opts paginate.Options) (*paginate.Result[types.User], error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "List")
	defer span.End()
	start := time.Now()

	where, args := userFilterClause(filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		r.metrics.ObserveQuery(ctx, "postgres", "users.list", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users`+where+userSortColumns.Clause(opts), args...)
	if err != nil {
		r.metrics.ObserveQuery(ctx, "postgres", "users.list", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]types.User, 0, opts.PageSize())
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode users: %w", err)
		}
		users = append(users, *u)
	}
	err = rows.Err()
	r.metrics.ObserveQuery(ctx, "postgres", "users.list", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	span.SetAttributes(attribute.Int64("total", total))
	span.SetStatus(codes.Ok, "users listed")
	return paginate.NewResult(users, total, opts), nil
}

func (r *PostgresUserRepo) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	return r.execOne(ctx, "users.soft_delete",
		`UPDATE users SET is_deleted = TRUE, deleted_by = $1, deleted_at = NOW(), updated_by = $1 WHERE id = $2 AND is_deleted = FALSE`,
		actor, id)
}

func (r *PostgresUserRepo) Block(ctx context.Context, id, actor uuid.UUID) error {
	return r.execOne(ctx, "users.block",
		`UPDATE users SET is_blocked = TRUE, blocked_by = $1, blocked_at = NOW(), updated_by = $1 WHERE id = $2`,
		actor, id)
}

// execOne runs an update that must touch exactly one user.
func (r *PostgresUserRepo) execOne(ctx context.Context, op, query string, args ...any) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, query, args...)
	r.metrics.ObserveQuery(ctx, "postgres", op, start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "User update failed", slog.String("operation", op), slog.Any("error", err))
		return fmt.Errorf("error running %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user: %w", api.ErrNotFound)
	}
	return nil
}
