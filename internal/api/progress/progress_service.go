package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

// CourseGetter resolves the course a progress report points at.
type CourseGetter interface {
	Get(ctx context.Context, id primitive.ObjectID) (*types.Course, error)
}

var _ ProgressService = (*ProgressServiceImpl)(nil)

type ProgressService interface {
	Track(ctx context.Context, user *types.User, params types.TrackProgressParams) (*types.UserTaskProgress, error)
	List(ctx context.Context, user *types.User, course *primitive.ObjectID) ([]types.UserTaskProgress, error)
}

type ProgressServiceImpl struct {
	logger  *slog.Logger
	repo    ProgressRepo
	courses CourseGetter
}

func NewProgressService(repo ProgressRepo, courses CourseGetter, logger *slog.Logger) *ProgressServiceImpl {
	return &ProgressServiceImpl{logger: logger, repo: repo, courses: courses}
}

// Track rejects tasks that do not belong to the course.
func (s *ProgressServiceImpl) Track(ctx context.Context, user *types.User, params types.TrackProgressParams) (*types.UserTaskProgress, error) {
	courseID, err := primitive.ObjectIDFromHex(params.Course)
	if err != nil {
		return nil, api.WrapError(http.StatusBadRequest, "Invalid course id", err)
	}
	taskID, err := primitive.ObjectIDFromHex(params.Task)
	if err != nil {
		return nil, api.WrapError(http.StatusBadRequest, "Invalid task id", err)
	}

	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.WrapError(http.StatusNotFound, "Course not found", err)
		}
		return nil, fmt.Errorf("error loading course: %w", err)
	}
	if !hasTask(course, taskID) {
		return nil, api.NotFound("Task not found")
	}

	p, err := s.repo.Track(ctx, TrackUpdate{
		UserID:  user.ID.String(),
		Course:  courseID,
		Task:    taskID,
		Seconds: params.Time,
		Status:  params.Status,
	})
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "Progress tracked",
		slog.String("userID", user.ID.String()),
		slog.String("taskID", taskID.Hex()),
		slog.Int64("time", p.Time))
	return p, nil
}

func (s *ProgressServiceImpl) List(ctx context.Context, user *types.User, course *primitive.ObjectID) ([]types.UserTaskProgress, error) {
	return s.repo.List(ctx, user.ID.String(), course)
}

func hasTask(c *types.Course, id primitive.ObjectID) bool {
	for _, t := range c.Tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}
