package course

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeSlug lowercases s and joins its alphanumeric runs with dashes.
func NormalizeSlug(s string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func newTasks(params []types.CourseTaskParams) []types.CourseTask {
	tasks := make([]types.CourseTask, 0, len(params))
	for _, p := range params {
		tasks = append(tasks, types.CourseTask{
			ID:          primitive.NewObjectID(),
			Title:       p.Title,
			Description: p.Description,
			Thumbnail:   p.Thumbnail,
			Media:       p.Media,
			MediaType:   p.MediaType,
			StartTime:   p.StartTime,
			EndTime:     p.EndTime,
		})
	}
	return tasks
}

var _ CourseService = (*CourseServiceImpl)(nil)

type CourseService interface {
	Create(ctx context.Context, actor uuid.UUID, params types.CreateCourseParams) (*types.Course, error)
	List(ctx context.Context, search string, opts paginate.Options) (*paginate.Result[types.Course], error)
	Get(ctx context.Context, id primitive.ObjectID) (*types.Course, error)
	Update(ctx context.Context, actor uuid.UUID, id primitive.ObjectID, params types.UpdateCourseParams) (*types.Course, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CourseServiceImpl struct {
	logger *slog.Logger
	repo   CourseRepo
}

func NewCourseService(repo CourseRepo, logger *slog.Logger) *CourseServiceImpl {
	return &CourseServiceImpl{logger: logger, repo: repo}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrNotFound):
		return api.WrapError(http.StatusNotFound, "Course not found", err)
	case errors.Is(err, api.ErrAlreadyExists):
		return api.WrapError(http.StatusBadRequest, "Slug already taken", err)
	}
	return err
}

func (s *CourseServiceImpl) Create(ctx context.Context, actor uuid.UUID, params types.CreateCourseParams) (*types.Course, error) {
	slug := NormalizeSlug(params.Slug)
	if slug == "" {
		return nil, api.BadRequest("Slug must contain letters or digits")
	}
	course := &types.Course{
		Title:       params.Title,
		Description: params.Description,
		Slug:        slug,
		Thumbnail:   params.Thumbnail,
		Author:      params.Author,
		Tasks:       newTasks(params.Tasks),
		CreatedBy:   actor.String(),
		UpdatedBy:   actor.String(),
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, mapErr(err)
	}
	s.logger.InfoContext(ctx, "Course created", slog.String("courseID", course.ID.Hex()), slog.String("slug", slug))
	return course, nil
}

// List filters by a case-insensitive title match when search is set.
func (s *CourseServiceImpl) List(ctx context.Context, search string, opts paginate.Options) (*paginate.Result[types.Course], error) {
	filter := bson.D{}
	if search = strings.TrimSpace(search); search != "" {
		filter = append(filter, bson.E{Key: "title", Value: primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}})
	}
	return s.repo.List(ctx, filter, opts)
}

func (s *CourseServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*types.Course, error) {
	course, err := s.repo.Get(ctx, id)
	return course, mapErr(err)
}

func (s *CourseServiceImpl) Update(ctx context.Context, actor uuid.UUID, id primitive.ObjectID, params types.UpdateCourseParams) (*types.Course, error) {
	set := bson.D{{Key: "updatedBy", Value: actor.String()}}
	if params.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *params.Title})
	}
	if params.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *params.Description})
	}
	if params.Slug != nil {
		slug := NormalizeSlug(*params.Slug)
		if slug == "" {
			return nil, api.BadRequest("Slug must contain letters or digits")
		}
		set = append(set, bson.E{Key: "slug", Value: slug})
	}
	if params.Thumbnail != nil {
		set = append(set, bson.E{Key: "thumbnail", Value: *params.Thumbnail})
	}
	if params.Author != nil {
		set = append(set, bson.E{Key: "author", Value: *params.Author})
	}
	if params.Tasks != nil {
		set = append(set, bson.E{Key: "tasks", Value: newTasks(*params.Tasks)})
	}

	course, err := s.repo.Update(ctx, id, set)
	if err != nil {
		return nil, mapErr(err)
	}
	s.logger.InfoContext(ctx, "Course updated", slog.String("courseID", id.Hex()))
	return course, nil
}

func (s *CourseServiceImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	return mapErr(s.repo.Delete(ctx, id))
}
