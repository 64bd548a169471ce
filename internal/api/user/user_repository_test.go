package user

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/FACorreiaa/learnhub-api/app/db"
	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

func setupUserRepoTest(t *testing.T) (*PostgresUserRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresUserRepo(mock, nil, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

// userRow returns the column values of u in select order.
func userRow(u types.User) []any {
	targets := scanTargets(&u)
	values := make([]any, len(targets))
	for i, p := range targets {
		values[i] = reflect.ValueOf(p).Elem().Interface()
	}
	return values
}

func userRows(users ...types.User) *pgxmock.Rows {
	rows := pgxmock.NewRows(userColumnNames)
	for _, u := range users {
		rows.AddRow(userRow(u)...)
	}
	return rows
}

func sampleUser() types.User {
	hash := "$2a$10$hash"
	now := time.Now().UTC()
	return types.User{
		ID:                uuid.New(),
		Name:              "Jane",
		Email:             "jane@example.com",
		Provider:          types.ProviderEmail,
		Role:              types.RoleCustomer,
		Password:          &hash,
		SendNotifications: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestScanTargetsMatchColumns(t *testing.T) {
	var u types.User
	assert.Len(t, scanTargets(&u), len(userColumnNames))
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	want := sampleUser()

	t.Run("success", func(t *testing.T) {
		repo, mock := setupUserRepoTest(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (name, email, password_hash, role, provider, created_by)")).
			WithArgs("Jane", "Jane@Example.com", want.Password, types.RoleCustomer, types.ProviderEmail, (*uuid.UUID)(nil)).
			WillReturnRows(userRows(want))

		got, err := repo.Create(ctx, types.NewUser{Name: "Jane", Email: " Jane@Example.com ", PasswordHash: want.Password})
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, "$2a$10$hash", *got.Password)
		assert.Nil(t, got.EmailToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo, mock := setupUserRepoTest(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: database.UniqueViolation, ConstraintName: "users_email_key"})

		_, err := repo.Create(ctx, types.NewUser{Email: "jane@example.com"})
		assert.ErrorIs(t, err, api.ErrAlreadyExists)
	})
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	u := sampleUser()

	t.Run("by id", func(t *testing.T) {
		repo, mock := setupUserRepoTest(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs(u.ID).
			WillReturnRows(userRows(u))

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, got.Email)
	})

	t.Run("by email is case insensitive", func(t *testing.T) {
		repo, mock := setupUserRepoTest(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(email) = LOWER($1)")).
			WithArgs("JANE@example.com").
			WillReturnRows(userRows(u))

		got, err := repo.GetByEmail(ctx, "JANE@example.com ")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := setupUserRepoTest(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs(u.ID).
			WillReturnRows(pgxmock.NewRows(userColumnNames))

		_, err := repo.GetByID(ctx, u.ID)
		assert.ErrorIs(t, err, api.ErrNotFound)
	})
}

func TestIsEmailTaken(t *testing.T) {
	repo, mock := setupUserRepoTest(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("jane@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.IsEmailTaken(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestSetOTP(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	expires := time.Now().Add(10 * time.Minute)

	t.Run("email", func(t *testing.T) {
		repo, mock := setupUserRepoTest(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET email_token = $1, email_token_expires = $2 WHERE id = $3")).
			WithArgs("123456", expires, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.SetOTP(ctx, id, types.OTPEmail, "123456", expires))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reset revokes confirmation", func(t *testing.T) {
		repo, mock := setupUserRepoTest(t)
		mock.ExpectExec(regexp.QuoteMeta("reset_token = $1, reset_token_expires = $2, is_reset_confirmed = FALSE")).
			WithArgs("654321", expires, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.SetOTP(ctx, id, types.OTPReset, "654321", expires))
	})

	t.Run("unknown kind", func(t *testing.T) {
		repo, _ := setupUserRepoTest(t)
		assert.Error(t, repo.SetOTP(ctx, id, types.OTPKind("sms"), "1", expires))
	})

	t.Run("unknown user", func(t *testing.T) {
		repo, mock := setupUserRepoTest(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET login_token")).
			WithArgs("1", expires, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.SetOTP(ctx, id, types.OTPLogin, "1", expires), api.ErrNotFound)
	})
}

func TestCompleteVerification(t *testing.T) {
	repo, mock := setupUserRepoTest(t)
	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_email_verified = TRUE, email_token = NULL, email_token_expires = NULL WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.CompleteVerification(context.Background(), id, types.OTPEmail))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileUsesCoalesce(t *testing.T) {
	repo, mock := setupUserRepoTest(t)
	u := sampleUser()
	name := "Janet"
	u.Name = name

	mock.ExpectQuery(regexp.QuoteMeta("name = COALESCE($1, name)")).
		WithArgs(&name, (*string)(nil), (*string)(nil), (*string)(nil), u.ID).
		WillReturnRows(userRows(u))

	got, err := repo.UpdateProfile(context.Background(), u.ID, types.UpdateProfileParams{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Janet", got.Name)
}

func TestUpdateImage(t *testing.T) {
	ctx := context.Background()
	u := sampleUser()
	u.Background = "https://cdn/bg.png"

	repo, mock := setupUserRepoTest(t)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET background = $1")).
		WithArgs("https://cdn/bg.png", u.ID).
		WillReturnRows(userRows(u))

	got, err := repo.UpdateImage(ctx, u.ID, ImageBackground, "https://cdn/bg.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/bg.png", got.Background)

	_, err = repo.UpdateImage(ctx, u.ID, ImageField("password_hash"), "x")
	assert.Error(t, err)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupUserRepoTest(t)
	deleted := false
	filter := types.UserFilter{Search: "ja_n", Role: types.RoleCustomer, IsDeleted: &deleted}
	a, b := sampleUser(), sampleUser()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE (name ILIKE $1 OR email ILIKE $1) AND role = $2 AND is_deleted = $3")).
		WithArgs(`%ja\_n%`, types.RoleCustomer, false).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY name DESC LIMIT 2 OFFSET 2")).
		WithArgs(`%ja\_n%`, types.RoleCustomer, false).
		WillReturnRows(userRows(a, b))

	res, err := repo.List(ctx, filter, paginate.Options{SortBy: "name:desc,password:asc", Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Len(t, res.Results, 2)
	assert.Equal(t, int64(7), res.TotalResults)
	assert.Equal(t, 4, res.TotalPages)
	assert.Equal(t, 2, res.Page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFilterClauseNameAndEmail(t *testing.T) {
	where, args := userFilterClause(types.UserFilter{Name: "ada", Email: "example.com", Role: types.RoleAdmin})
	assert.Equal(t, " WHERE name ILIKE $1 AND email ILIKE $2 AND role = $3", where)
	assert.Equal(t, []any{"%ada%", "%example.com%", types.RoleAdmin}, args)
}

func TestUserFilterClauseEmpty(t *testing.T) {
	where, args := userFilterClause(types.UserFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestSoftDeleteAndBlock(t *testing.T) {
	ctx := context.Background()
	id, actor := uuid.New(), uuid.New()

	repo, mock := setupUserRepoTest(t)
	mock.ExpectExec(regexp.QuoteMeta("SET is_deleted = TRUE, deleted_by = $1")).
		WithArgs(actor, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_blocked = TRUE, blocked_by = $1")).
		WithArgs(actor, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.SoftDelete(ctx, id, actor))
	assert.ErrorIs(t, repo.Block(ctx, id, actor), api.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
