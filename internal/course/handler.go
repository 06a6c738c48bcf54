package course

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/vkotelnikov/eduplatform/internal"
	"github.com/vkotelnikov/eduplatform/internal/transport"
)

type ServiceAPI interface {
	GetAllCourses() ([]*Course, error)
	GetCourseByID(id int64) (*Course, error)
	GetCategoryByID(id int64) (*Category, error)
	GetLevelByID(id int64) (*Level, error)
	CreateCourse(dto CreateCourseDTO) (*Course, error)
	CreateCategory(courseID int64, dto CreateCategoryDTO) (*Category, error)
	CreateLevel(categoryID int64, dto CreateLevelDTO) (*Level, error)
	DeleteCourse(id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.Service.GetAllCourses()
	if err != nil {
		h.Logger.Error("GetCourses: failed to get courses", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to get courses")
		return
	}

	h.WriteJSON(w, http.StatusOK, CoursesResponse{Courses: courses})
}

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid course id", errors.ErrCodeValidationFailed))
		return
	}

	c, err := h.Service.GetCourseByID(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var dto CreateCourseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	c, err := h.Service.CreateCourse(dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid course id", errors.ErrCodeValidationFailed))
		return
	}

	var dto CreateCategoryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	c, err := h.Service.CreateCategory(courseID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) CreateLevel(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid category id", errors.ErrCodeValidationFailed))
		return
	}

	var dto CreateLevelDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	l, err := h.Service.CreateLevel(categoryID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, l)
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid course id", errors.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.DeleteCourse(id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
