package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"lms-module/http/response"
	"lms-module/logger"
	"lms-module/models"
	"lms-module/services"
	"lms-module/utils"

	"github.com/shopspring/decimal"
)

const maxUploadBytes = 10 << 20

// CourseRequest is the body of the create and update endpoints
type CourseRequest struct {
	ID          string           `json:"id"`
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	IsActive    *bool            `json:"is_active"`
}

func (req CourseRequest) toCourse() (models.Course, error) {
	course := models.Course{
		ID:          strings.TrimSpace(req.ID),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		IsActive:    true,
	}
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return course, fmt.Errorf("price must not be negative")
		}
		course.Price = decimal.NewNullDecimal(*req.Price)
	}
	return course, nil
}

func courseResponses(courses []models.Course) []models.CourseResponse {
	out := make([]models.CourseResponse, len(courses))
	for i := range courses {
		out[i] = courses[i].ToResponse()
	}
	return out
}

// GetCourses lists courses; ?all=true includes inactive ones.
// GET /courses
func (h *Handler) GetCourses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	activeOnly := r.URL.Query().Get("all") != "true"
	courses, err := h.Courses.ListCourses(r.Context(), activeOnly)
	if err != nil {
		logger.Error("Error fetching courses: %v", err)
		response.ErrorResponse(w, http.StatusInternalServerError, "Error fetching courses")
		return
	}

	response.SuccessResponse(w, http.StatusOK, fmt.Sprintf("Retrieved %d courses", len(courses)), courseResponses(courses))
}

// GetCourseByID retrieves a specific course by ID
// GET /course?id=
func (h *Handler) GetCourseByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	courseID := r.URL.Query().Get("id")
	if courseID == "" {
		response.ErrorResponse(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	course, err := h.Courses.GetCourse(r.Context(), courseID)
	if err != nil {
		response.FromError(w, err, "Error fetching course")
		return
	}

	response.SuccessResponse(w, http.StatusOK, "Course retrieved", course.ToResponse())
}

// CreateCourse creates a new course (admin endpoint)
// POST /create-course
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req CourseRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	course, err := req.toCourse()
	if err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.Courses.CreateCourse(r.Context(), course)
	if err != nil {
		logger.Error("Error creating course: %v", err)
		response.FromError(w, err, "Error creating course")
		return
	}

	response.SuccessResponse(w, http.StatusCreated, "Course created successfully", created.ToResponse())
}

// UpdateCourse updates an existing course (admin endpoint)
// PUT /update-course
func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req CourseRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		response.ErrorResponse(w, http.StatusBadRequest, "Course ID is required")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	course, err := req.toCourse()
	if err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.Courses.UpdateCourse(r.Context(), course)
	if err != nil {
		logger.Error("Error updating course: %v", err)
		response.FromError(w, err, "Error updating course")
		return
	}

	response.SuccessResponse(w, http.StatusOK, "Course updated successfully", updated.ToResponse())
}

// UploadCourses bulk-creates courses from an xlsx file in the "file" form field.
// POST /upload-courses
func (h *Handler) UploadCourses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	courses, err := services.ParseCourseSheet(file)
	if err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	created, failed := 0, []string{}
	for _, c := range courses {
		if _, err := h.Courses.CreateCourse(r.Context(), c); err != nil {
			logger.Warn("Course %q not imported: %v", c.Title, err)
			failed = append(failed, c.Title)
			continue
		}
		created++
	}

	response.SuccessResponse(w, http.StatusOK, fmt.Sprintf("Imported %d of %d courses", created, len(courses)), map[string]interface{}{
		"created": created,
		"failed":  failed,
	})
}
