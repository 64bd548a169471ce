package blog

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/api/paginate"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

var _ Handler = (*BlogHandlerImpl)(nil)

type Handler interface {
	CreateBlog(w http.ResponseWriter, r *http.Request)
	ListBlogs(w http.ResponseWriter, r *http.Request)
	GetBlog(w http.ResponseWriter, r *http.Request)
	LikeBlog(w http.ResponseWriter, r *http.Request)
	CommentBlog(w http.ResponseWriter, r *http.Request)
}

type BlogHandlerImpl struct {
	blogService BlogService
	logger      *slog.Logger
}

func NewBlogHandlerImpl(blogService BlogService, logger *slog.Logger) *BlogHandlerImpl {
	return &BlogHandlerImpl{blogService: blogService, logger: logger}
}

func (h *BlogHandlerImpl) CreateBlog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "CreateBlog"))

	user, ok := api.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Please authenticate")
		return
	}
	var params types.CreateBlogParams
	if err := api.DecodeAndValidate(w, r, &params); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	blog, err := h.blogService.Create(ctx, user.ID, params)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusCreated, "Blog created successfully", blog)
}

func (h *BlogHandlerImpl) ListBlogs(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "ListBlogs"))

	page, err := h.blogService.List(r.Context(), paginate.OptionsFromQuery(r.URL.Query()))
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "", page)
}

func (h *BlogHandlerImpl) GetBlog(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "GetBlog"))

	id, err := api.ObjectIDParam(r, "id", "blog")
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	blog, err := h.blogService.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "", blog)
}

func (h *BlogHandlerImpl) LikeBlog(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "LikeBlog"))

	id, err := api.ObjectIDParam(r, "id", "blog")
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	blog, err := h.blogService.Like(r.Context(), id)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusOK, "Blog liked", blog)
}

func (h *BlogHandlerImpl) CommentBlog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "CommentBlog"))

	user, ok := api.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Please authenticate")
		return
	}
	id, err := api.ObjectIDParam(r, "id", "blog")
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	var params types.CommentParams
	if err := api.DecodeAndValidate(w, r, &params); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	blog, err := h.blogService.Comment(ctx, id, user.ID, params)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.Success(w, r, http.StatusCreated, "Comment added", blog)
}
