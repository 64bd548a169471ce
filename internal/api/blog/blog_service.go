package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

var _ BlogService = (*BlogServiceImpl)(nil)

type BlogService interface {
	Create(ctx context.Context, author uuid.UUID, params types.CreateBlogParams) (*types.Blog, error)
	List(ctx context.Context, opts paginate.Options) (*paginate.Result[types.Blog], error)
	Get(ctx context.Context, id primitive.ObjectID) (*types.Blog, error)
	Like(ctx context.Context, id primitive.ObjectID) (*types.Blog, error)
	Comment(ctx context.Context, id primitive.ObjectID, userID uuid.UUID, params types.CommentParams) (*types.Blog, error)
}

type BlogServiceImpl struct {
	logger *slog.Logger
	repo   BlogRepo
}

func NewBlogService(repo BlogRepo, logger *slog.Logger) *BlogServiceImpl {
	return &BlogServiceImpl{logger: logger, repo: repo}
}

func notFound(err error) error {
	if errors.Is(err, api.ErrNotFound) {
		return api.WrapError(http.StatusNotFound, "Blog not found", err)
	}
	return err
}

func (s *BlogServiceImpl) Create(ctx context.Context, author uuid.UUID, params types.CreateBlogParams) (*types.Blog, error) {
	blog := &types.Blog{
		Title:     params.Title,
		Content:   params.Content,
		CreatedBy: author.String(),
	}
	if err := s.repo.Create(ctx, blog); err != nil {
		return nil, fmt.Errorf("error creating blog: %w", err)
	}
	s.logger.InfoContext(ctx, "Blog created", slog.String("blogID", blog.ID.Hex()), slog.String("author", blog.CreatedBy))
	return blog, nil
}

func (s *BlogServiceImpl) List(ctx context.Context, opts paginate.Options) (*paginate.Result[types.Blog], error) {
	return s.repo.List(ctx, opts)
}

func (s *BlogServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*types.Blog, error) {
	blog, err := s.repo.View(ctx, id)
	return blog, notFound(err)
}

func (s *BlogServiceImpl) Like(ctx context.Context, id primitive.ObjectID) (*types.Blog, error) {
	blog, err := s.repo.Like(ctx, id)
	return blog, notFound(err)
}

func (s *BlogServiceImpl) Comment(ctx context.Context, id primitive.ObjectID, userID uuid.UUID, params types.CommentParams) (*types.Blog, error) {
	blog, err := s.repo.AddComment(ctx, id, types.BlogComment{
		ID:        primitive.NewObjectID(),
		UserID:    userID.String(),
		Comment:   params.Comment,
		CreatedAt: time.Now().UTC(),
	})
	return blog, notFound(err)
}
