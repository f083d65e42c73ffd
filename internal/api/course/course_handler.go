package course

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/analyticalinvestments/omega-api/internal/api"
)

type CourseHandler struct {
	logger *slog.Logger
	repo   CourseRepo
}

func NewCourseHandler(repo CourseRepo, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{
		logger: logger,
		repo:   repo,
	}
}

// ListCourses returns the full catalog. Public.
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.repo.ListCourses(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list courses", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to list courses")
		return
	}
	if courses == nil {
		courses = []Course{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, courses)
}

// GetCourse returns one course by ID. Public.
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid course id")
		return
	}

	course, err := h.repo.GetCourse(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "course not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to get course", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to get course")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, course)
}

// CreateCourse godoc
// @Summary      Add a course to the catalog
// @Tags         courses
// @Accept       json
// @Produce      json
// @Param        request body CreateCourseRequest true "Course details"
// @Success      201 {object} Course
// @Router       /courses [post]
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" || req.Description == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "title and description are required")
		return
	}
	if !validLevel(req.Level) {
		api.ErrorResponse(w, r, http.StatusBadRequest, "level must be beginner, intermediate or advanced")
		return
	}

	course, err := h.repo.CreateCourse(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to create course", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to create course")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, course)
}
