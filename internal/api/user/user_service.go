package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/learnhub-api/app/notifier"
	"github.com/FACorreiaa/learnhub-api/app/storage"
	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

// SessionStore is the slice of session persistence account moderation uses.
type SessionStore interface {
	DeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
}

type Notifier interface {
	Send(ctx context.Context, tokens []string, n notifier.Notification) (*notifier.Result, error)
}

type ObjectStore interface {
	Put(ctx context.Context, prefix string, r io.Reader) (*storage.Object, error)
}

// UserCache is the auth middleware's user cache; writes evict the entry.
type UserCache interface {
	Delete(key string)
}

var _ UserService = (*UserServiceImpl)(nil)

type UserService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error)
	UploadImage(ctx context.Context, userID uuid.UUID, field ImageField, r io.Reader) (*types.User, error)

	List(ctx context.Context, filter types.UserFilter, opts paginate.Options) (*paginate.Result[types.User], error)
	Get(ctx context.Context, userID uuid.UUID) (*types.User, error)
	Delete(ctx context.Context, actor *types.User, userID uuid.UUID) error
	Block(ctx context.Context, actor *types.User, userID uuid.UUID) error
}

type UserServiceImpl struct {
	logger   *slog.Logger
	repo     UserRepo
	sessions SessionStore
	notifier Notifier
	storage  ObjectStore
	cache    UserCache
}

func NewUserService(repo UserRepo, sessions SessionStore, n Notifier, store ObjectStore, cache UserCache, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger:   logger,
		repo:     repo,
		sessions: sessions,
		notifier: n,
		storage:  store,
		cache:    cache,
	}
}

func (s *UserServiceImpl) evict(id uuid.UUID) {
	if s.cache != nil {
		s.cache.Delete(id.String())
	}
}

func (s *UserServiceImpl) GetMe(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return s.Get(ctx, userID)
}

func (s *UserServiceImpl) UpdateMe(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateMe", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateMe"), slog.String("userID", userID.String()))

	user, err := s.repo.UpdateProfile(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("error updating profile: %w", err)
	}
	s.evict(userID)

	l.InfoContext(ctx, "Profile updated")
	span.SetStatus(codes.Ok, "profile updated")
	return user, nil
}

func (s *UserServiceImpl) UploadImage(ctx context.Context, userID uuid.UUID, field ImageField, r io.Reader) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UploadImage", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("field", string(field)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UploadImage"), slog.String("field", string(field)))

	obj, err := s.storage.Put(ctx, "users/"+string(field), r)
	if err != nil {
		l.ErrorContext(ctx, "Upload failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return nil, fmt.Errorf("error uploading image: %w", err)
	}

	user, err := s.repo.UpdateImage(ctx, userID, field, obj.URL)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error saving image url: %w", err)
	}
	s.evict(userID)

	l.InfoContext(ctx, "Image uploaded", slog.String("key", obj.Key))
	span.SetStatus(codes.Ok, "image uploaded")
	return user, nil
}

func (s *UserServiceImpl) List(ctx context.Context, filter types.UserFilter, opts paginate.Options) (*paginate.Result[types.User], error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "List")
	defer span.End()

	page, err := s.repo.List(ctx, filter, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	span.SetStatus(codes.Ok, "users listed")
	return page, nil
}

func (s *UserServiceImpl) Get(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.NotFound("User not found")
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return user, nil
}

// moderationTarget loads the user an admin acts on. Admins cannot act on
// themselves and only a superadmin may act on a superadmin.
func (s *UserServiceImpl) moderationTarget(ctx context.Context, actor *types.User, userID uuid.UUID, verb string) (*types.User, error) {
	if actor.ID == userID {
		return nil, api.BadRequest(fmt.Sprintf("You cannot %s yourself", verb))
	}
	target, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Role == types.RoleSuperAdmin && actor.Role != types.RoleSuperAdmin {
		return nil, api.Forbidden("Forbidden")
	}
	return target, nil
}

// Delete soft-deletes the account and ends all of its sessions.
func (s *UserServiceImpl) Delete(ctx context.Context, actor *types.User, userID uuid.UUID) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("actor.id", actor.ID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Delete"), slog.String("userID", userID.String()))

	if _, err := s.moderationTarget(ctx, actor, userID, "delete"); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, userID, actor.ID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.NotFound("User not found")
		}
		span.RecordError(err)
		return fmt.Errorf("error deleting user: %w", err)
	}
	if _, err := s.sessions.DeleteAll(ctx, userID); err != nil {
		l.ErrorContext(ctx, "Failed to drop sessions of deleted user", slog.Any("error", err))
	}
	s.evict(userID)

	l.InfoContext(ctx, "User deleted", slog.String("actor", actor.ID.String()))
	span.SetStatus(codes.Ok, "user deleted")
	return nil
}

// Block marks the account blocked, tells the user's devices and ends all of
// its sessions. Push failures are logged, not returned.
func (s *UserServiceImpl) Block(ctx context.Context, actor *types.User, userID uuid.UUID) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "Block", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("actor.id", actor.ID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Block"), slog.String("userID", userID.String()))

	if _, err := s.moderationTarget(ctx, actor, userID, "block"); err != nil {
		return err
	}

	// Device tokens live on sessions, so read them before the sessions go.
	tokens, err := s.sessions.DeviceTokens(ctx, userID)
	if err != nil {
		l.WarnContext(ctx, "Failed to load device tokens", slog.Any("error", err))
	}

	if err := s.repo.Block(ctx, userID, actor.ID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.NotFound("User not found")
		}
		span.RecordError(err)
		return fmt.Errorf("error blocking user: %w", err)
	}
	s.evict(userID)

	if len(tokens) > 0 {
		res, err := s.notifier.Send(ctx, tokens, notifier.Notification{
			Title: "Account blocked",
			Body:  "Your account has been blocked by an administrator.",
			Data:  map[string]any{"type": "blocked", "user": userID.String()},
		})
		if err != nil {
			l.WarnContext(ctx, "Block notification failed", slog.Any("error", err))
		} else {
			l.DebugContext(ctx, "Block notification sent",
				slog.Int("sent", res.Sent),
				slog.Int("failed", res.Failed),
				slog.Int("stale", len(res.Stale)))
		}
	}

	n, err := s.sessions.DeleteAll(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error dropping sessions: %w", err)
	}

	l.InfoContext(ctx, "User blocked", slog.String("actor", actor.ID.String()), slog.Int64("sessions_removed", n))
	span.SetStatus(codes.Ok, "user blocked")
	return nil
}
