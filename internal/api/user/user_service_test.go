package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/learnhub-api/app/notifier"
	"github.com/FACorreiaa/learnhub-api/app/storage"
	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) user(args mock.Arguments) (*types.User, error) {
	u, _ := args.Get(0).(*types.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) Create(ctx context.Context, params types.NewUser) (*types.User, error) {
	return m.user(m.Called(ctx, params))
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *MockUserRepo) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepo) UpsertSocial(ctx context.Context, profile types.SocialProfile) (*types.User, error) {
	return m.user(m.Called(ctx, profile))
}

func (m *MockUserRepo) SetOTP(ctx context.Context, id uuid.UUID, kind types.OTPKind, otp string, expires time.Time) error {
	return m.Called(ctx, id, kind, otp, expires).Error(0)
}

func (m *MockUserRepo) CompleteVerification(ctx context.Context, id uuid.UUID, kind types.OTPKind) error {
	return m.Called(ctx, id, kind).Error(0)
}

func (m *MockUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, params types.UpdateProfileParams) (*types.User, error) {
	return m.user(m.Called(ctx, id, params))
}

func (m *MockUserRepo) UpdateImage(ctx context.Context, id uuid.UUID, field ImageField, url string) (*types.User, error) {
	return m.user(m.Called(ctx, id, field, url))
}

func (m *MockUserRepo) List(ctx context.Context, filter types.UserFilter, opts paginate.Options) (*paginate.Result[types.User], error) {
	args := m.Called(ctx, filter, opts)
	r, _ := args.Get(0).(*paginate.Result[types.User])
	return r, args.Error(1)
}

func (m *MockUserRepo) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *MockUserRepo) Block(ctx context.Context, id, actor uuid.UUID) error {
	return m.Called(ctx, id, actor).Error(0)
}

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) DeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	tokens, _ := args.Get(0).([]string)
	return tokens, args.Error(1)
}

func (m *MockSessionStore) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, tokens []string, n notifier.Notification) (*notifier.Result, error) {
	args := m.Called(ctx, tokens, n)
	r, _ := args.Get(0).(*notifier.Result)
	return r, args.Error(1)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, prefix string, r io.Reader) (*storage.Object, error) {
	args := m.Called(ctx, prefix, r)
	o, _ := args.Get(0).(*storage.Object)
	return o, args.Error(1)
}

type userFixture struct {
	repo     *MockUserRepo
	sessions *MockSessionStore
	notifier *MockNotifier
	storage  *MockObjectStore
	cache    *cache.Cache
	svc      *UserServiceImpl
}

func newUserFixture() *userFixture {
	f := &userFixture{
		repo:     new(MockUserRepo),
		sessions: new(MockSessionStore),
		notifier: new(MockNotifier),
		storage:  new(MockObjectStore),
		cache:    cache.New(time.Minute, time.Minute),
	}
	f.svc = NewUserService(f.repo, f.sessions, f.notifier, f.storage, f.cache,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr), "expected *api.Error, got %v", err)
	assert.Equal(t, status, apiErr.StatusCode)
}

func TestGetMe(t *testing.T) {
	f := newUserFixture()
	id := uuid.New()
	f.repo.On("GetByID", mock.Anything, id).Return(nil, api.ErrNotFound).Once()

	_, err := f.svc.GetMe(context.Background(), id)
	requireStatus(t, err, http.StatusNotFound)
}

func TestUpdateMeEvictsCache(t *testing.T) {
	f := newUserFixture()
	id := uuid.New()
	name := "Grace"
	params := types.UpdateProfileParams{Name: &name}
	f.cache.SetDefault(id.String(), &types.User{ID: id, Name: "Old"})
	f.repo.On("UpdateProfile", mock.Anything, id, params).Return(&types.User{ID: id, Name: name}, nil).Once()

	user, err := f.svc.UpdateMe(context.Background(), id, params)
	require.NoError(t, err)
	assert.Equal(t, "Grace", user.Name)
	_, cached := f.cache.Get(id.String())
	assert.False(t, cached)
	f.repo.AssertExpectations(t)
}

func TestUploadImage(t *testing.T) {
	f := newUserFixture()
	id := uuid.New()
	body := strings.NewReader("png-bytes")
	f.storage.On("Put", mock.Anything, "users/background", body).
		Return(&storage.Object{Key: "learnhub/users/background/01h", URL: "https://cdn.example.com/bg.png"}, nil).Once()
	f.repo.On("UpdateImage", mock.Anything, id, ImageBackground, "https://cdn.example.com/bg.png").
		Return(&types.User{ID: id, Background: "https://cdn.example.com/bg.png"}, nil).Once()

	user, err := f.svc.UploadImage(context.Background(), id, ImageBackground, body)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/bg.png", user.Background)
	f.storage.AssertExpectations(t)
	f.repo.AssertExpectations(t)

	t.Run("storage failure leaves the user untouched", func(t *testing.T) {
		f := newUserFixture()
		f.storage.On("Put", mock.Anything, "users/profile", mock.Anything).Return(nil, storage.ErrNotConfigured).Once()

		_, err := f.svc.UploadImage(context.Background(), id, ImageProfile, strings.NewReader("x"))
		require.ErrorIs(t, err, storage.ErrNotConfigured)
		f.repo.AssertNotCalled(t, "UpdateImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBlock(t *testing.T) {
	ctx := context.Background()
	admin := &types.User{ID: uuid.New(), Role: types.RoleAdmin}

	t.Run("notifies devices and drops sessions", func(t *testing.T) {
		f := newUserFixture()
		target := &types.User{ID: uuid.New(), Role: types.RoleCustomer}
		f.cache.SetDefault(target.ID.String(), target)
		tokens := []string{"fcm-1", "fcm-2"}

		f.repo.On("GetByID", mock.Anything, target.ID).Return(target, nil).Once()
		f.sessions.On("DeviceTokens", mock.Anything, target.ID).Return(tokens, nil).Once()
		f.repo.On("Block", mock.Anything, target.ID, admin.ID).Return(nil).Once()
		f.notifier.On("Send", mock.Anything, tokens, mock.MatchedBy(func(n notifier.Notification) bool {
			return n.Data["type"] == "blocked"
		})).Return(&notifier.Result{Sent: 2}, nil).Once()
		f.sessions.On("DeleteAll", mock.Anything, target.ID).Return(int64(2), nil).Once()

		require.NoError(t, f.svc.Block(ctx, admin, target.ID))
		f.repo.AssertExpectations(t)
		f.sessions.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
		_, cached := f.cache.Get(target.ID.String())
		assert.False(t, cached)
	})

	t.Run("push failure does not stop the block", func(t *testing.T) {
		f := newUserFixture()
		target := &types.User{ID: uuid.New(), Role: types.RoleCustomer}
		f.repo.On("GetByID", mock.Anything, target.ID).Return(target, nil).Once()
		f.sessions.On("DeviceTokens", mock.Anything, target.ID).Return([]string{"fcm-1"}, nil).Once()
		f.repo.On("Block", mock.Anything, target.ID, admin.ID).Return(nil).Once()
		f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil, notifier.ErrNotConfigured).Once()
		f.sessions.On("DeleteAll", mock.Anything, target.ID).Return(int64(1), nil).Once()

		require.NoError(t, f.svc.Block(ctx, admin, target.ID))
		f.sessions.AssertExpectations(t)
	})

	t.Run("no devices, no push", func(t *testing.T) {
		f := newUserFixture()
		target := &types.User{ID: uuid.New(), Role: types.RoleCustomer}
		f.repo.On("GetByID", mock.Anything, target.ID).Return(target, nil).Once()
		f.sessions.On("DeviceTokens", mock.Anything, target.ID).Return([]string{}, nil).Once()
		f.repo.On("Block", mock.Anything, target.ID, admin.ID).Return(nil).Once()
		f.sessions.On("DeleteAll", mock.Anything, target.ID).Return(int64(0), nil).Once()

		require.NoError(t, f.svc.Block(ctx, admin, target.ID))
		f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("self", func(t *testing.T) {
		f := newUserFixture()
		err := f.svc.Block(ctx, admin, admin.ID)
		requireStatus(t, err, http.StatusBadRequest)
		f.repo.AssertNotCalled(t, "Block", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin cannot block a superadmin", func(t *testing.T) {
		f := newUserFixture()
		target := &types.User{ID: uuid.New(), Role: types.RoleSuperAdmin}
		f.repo.On("GetByID", mock.Anything, target.ID).Return(target, nil).Once()

		err := f.svc.Block(ctx, admin, target.ID)
		requireStatus(t, err, http.StatusForbidden)
		f.repo.AssertNotCalled(t, "Block", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	super := &types.User{ID: uuid.New(), Role: types.RoleSuperAdmin}

	t.Run("superadmin deletes a superadmin", func(t *testing.T) {
		f := newUserFixture()
		target := &types.User{ID: uuid.New(), Role: types.RoleSuperAdmin}
		f.repo.On("GetByID", mock.Anything, target.ID).Return(target, nil).Once()
		f.repo.On("SoftDelete", mock.Anything, target.ID, super.ID).Return(nil).Once()
		f.sessions.On("DeleteAll", mock.Anything, target.ID).Return(int64(1), nil).Once()

		require.NoError(t, f.svc.Delete(ctx, super, target.ID))
		f.repo.AssertExpectations(t)
		f.sessions.AssertExpectations(t)
	})

	t.Run("already deleted", func(t *testing.T) {
		f := newUserFixture()
		target := &types.User{ID: uuid.New(), IsDeleted: true}
		f.repo.On("GetByID", mock.Anything, target.ID).Return(target, nil).Once()
		f.repo.On("SoftDelete", mock.Anything, target.ID, super.ID).Return(api.ErrNotFound).Once()

		err := f.svc.Delete(ctx, super, target.ID)
		requireStatus(t, err, http.StatusNotFound)
		f.sessions.AssertNotCalled(t, "DeleteAll", mock.Anything, mock.Anything)
	})
}
