package course

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

var _ Handler = (*CourseHandlerImpl)(nil)

type Handler interface {
	CreateCourse(w http.ResponseWriter, r *http.Request)
	ListCourses(w http.ResponseWriter, r *http.Request)
	GetCourse(w http.ResponseWriter, r *http.Request)
	UpdateCourse(w http.ResponseWriter, r *http.Request)
	DeleteCourse(w http.ResponseWriter, r *http.Request)
}

type CourseHandlerImpl struct {
	courseService CourseService
	logger        *slog.Logger
}

func NewCourseHandlerImpl(courseService CourseService, logger *slog.Logger) *CourseHandlerImpl {
	return &CourseHandlerImpl{courseService: courseService, logger: logger}
}

func (h *CourseHandlerImpl) CreateCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "CreateCourse"))

	user, ok := api.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Please authenticate")
		return
	}
	var params types.CreateCourseParams
	if err := api.DecodeAndValidate(w, r, &params); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	course, err := h.courseService.Create(ctx, user.ID, params)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusCreated, "Course created successfully", course)
}

func (h *CourseHandlerImpl) ListCourses(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "ListCourses"))

	q := r.URL.Query()
	page, err := h.courseService.List(r.Context(), q.Get("search"), paginate.OptionsFromQuery(q))
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "", page)
}

func (h *CourseHandlerImpl) GetCourse(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "GetCourse"))

	id, err := api.ObjectIDParam(r, "id", "course")
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	course, err := h.courseService.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "", course)
}

func (h *CourseHandlerImpl) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "UpdateCourse"))

	user, ok := api.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Please authenticate")
		return
	}
	id, err := api.ObjectIDParam(r, "id", "course")
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	var params types.UpdateCourseParams
	if err := api.DecodeAndValidate(w, r, &params); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	course, err := h.courseService.Update(ctx, user.ID, id, params)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "Course updated successfully", course)
}

func (h *CourseHandlerImpl) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "DeleteCourse"))

	id, err := api.ObjectIDParam(r, "id", "course")
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	if err := h.courseService.Delete(r.Context(), id); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "Course deleted successfully", nil)
}
