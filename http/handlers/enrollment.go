package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"lms-module/http/response"
	"lms-module/logger"
	"lms-module/services"
)

// GetEnrollments lists enrollments, optionally for one student.
// GET /enrollments?student_id=
func (h *Handler) GetEnrollments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var (
		list interface{}
		n    int
		err  error
	)
	if studentID := r.URL.Query().Get("student_id"); studentID != "" {
		l, e := h.Enrollments.ListEnrollmentsByStudent(r.Context(), studentID)
		list, n, err = l, len(l), e
	} else {
		l, e := h.Enrollments.ListEnrollments(r.Context())
		list, n, err = l, len(l), e
	}
	if err != nil {
		logger.Error("Error fetching enrollments: %v", err)
		response.ErrorResponse(w, http.StatusInternalServerError, "Error fetching enrollments")
		return
	}

	response.SuccessResponse(w, http.StatusOK, fmt.Sprintf("Retrieved %d enrollments", n), list)
}

// GetEnrollmentReceipt renders the PDF receipt of one enrollment.
// GET /enrollments/receipt?id=
func (h *Handler) GetEnrollmentReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		response.ErrorResponse(w, http.StatusBadRequest, "Enrollment ID is required")
		return
	}

	detail, err := h.Enrollments.GetEnrollment(r.Context(), id)
	if err != nil {
		response.FromError(w, err, "Error fetching enrollment")
		return
	}

	var buf bytes.Buffer
	if err := services.RenderReceipt(&buf, detail); err != nil {
		logger.Error("Error rendering receipt for enrollment %s: %v", id, err)
		response.ErrorResponse(w, http.StatusInternalServerError, "Error generating receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt_%s.pdf"`, id))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ExportEnrollments downloads all enrollments as a spreadsheet.
// GET /enrollments/export
func (h *Handler) ExportEnrollments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	list, err := h.Enrollments.ListEnrollments(r.Context())
	if err != nil {
		logger.Error("Error fetching enrollments for export: %v", err)
		response.ErrorResponse(w, http.StatusInternalServerError, "Error fetching enrollments")
		return
	}

	var buf bytes.Buffer
	if err := services.ExportEnrollments(&buf, list); err != nil {
		logger.Error("Error exporting enrollments: %v", err)
		response.ErrorResponse(w, http.StatusInternalServerError, "Error generating export")
		return
	}

	name := "enrollments_" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
