package http

import (
	"net/http"

	"lms-module/http/handlers"
	"lms-module/http/middleware"
	"lms-module/http/response"
)

// Requests per second allowed per client IP on the payment initiation endpoint
const initiateRateLimit = 1

// NewRouter configures all HTTP routes and middleware
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.SuccessResponse(w, http.StatusOK, "ok", nil)
	})

	// Course Management APIs
	mux.HandleFunc("/courses", middleware.EnableCORS(h.GetCourses))
	mux.HandleFunc("/course", middleware.EnableCORS(h.GetCourseByID))
	mux.HandleFunc("/create-course", middleware.EnableCORS(h.CreateCourse))
	mux.HandleFunc("/update-course", middleware.EnableCORS(h.UpdateCourse))
	mux.HandleFunc("/upload-courses", middleware.EnableCORS(h.UploadCourses))

	// M-Pesa APIs; the callback is called by the gateway, not browsers
	mux.HandleFunc("/mpesa/initiate-payment", middleware.EnableCORS(middleware.RateLimit(initiateRateLimit, h.InitiateMpesaPayment)))
	mux.HandleFunc("/mpesa/callback", h.MpesaCallback)

	// Enrollment APIs
	mux.HandleFunc("/enrollments", middleware.EnableCORS(h.GetEnrollments))
	mux.HandleFunc("/enrollments/receipt", middleware.EnableCORS(h.GetEnrollmentReceipt))
	mux.HandleFunc("/enrollments/export", middleware.EnableCORS(h.ExportEnrollments))

	// DLQ Management APIs
	mux.HandleFunc("/api/dlq/messages", middleware.EnableCORS(h.GetDLQMessages))
	mux.HandleFunc("/api/dlq/messages/retry", middleware.EnableCORS(h.RetryDLQMessages))
	mux.HandleFunc("/api/dlq/messages/resolve", middleware.EnableCORS(h.ResolveDLQMessage))
	mux.HandleFunc("/api/dlq/stats", middleware.EnableCORS(h.GetDLQStats))

	return mux
}
