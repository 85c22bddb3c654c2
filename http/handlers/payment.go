package handlers

import (
	"io"
	"net/http"

	"lms-module/http/response"
	"lms-module/logger"
	"lms-module/utils"
)

const maxCallbackBytes = 64 << 10

// InitiateMpesaRequest is the body of POST /mpesa/initiate-payment
type InitiateMpesaRequest struct {
	CourseID    string `json:"course_id" validate:"required"`
	PurchaserID string `json:"purchaser_id" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required,ke_msisdn"`
}

// InitiateMpesaPayment starts an STK push, or enrolls directly for a free course.
// POST /mpesa/initiate-payment
func (h *Handler) InitiateMpesaPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req InitiateMpesaRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	req.PhoneNumber = utils.NormalizePhone(req.PhoneNumber)
	if err := utils.ValidateStruct(req); err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.Payments.Initiate(r.Context(), req.CourseID, req.PurchaserID, req.PhoneNumber)
	if err != nil {
		response.ErrorResponse(w, http.StatusBadGateway, "Failed to initiate payment")
		return
	}

	msg := "Payment request sent, complete it on your phone"
	if outcome.Free {
		msg = "Enrolled in free course"
	}
	response.SuccessResponse(w, http.StatusOK, msg, outcome)
}

// MpesaCallback receives the asynchronous STK push result.
// POST /mpesa/callback?token=
func (h *Handler) MpesaCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.Text(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
	r.Body.Close()
	if err != nil {
		logger.Warn("Error reading M-Pesa callback body: %v", err)
		response.Text(w, http.StatusBadRequest, "unreadable body")
		return
	}

	outcome := h.Callbacks.Handle(r.Context(), raw, r.URL.Query().Get("token"))
	status := outcome.StatusCode()
	if status == http.StatusOK {
		w.WriteHeader(http.StatusOK)
		return
	}
	body := string(outcome.Reason)
	if outcome.Detail != "" {
		body += ": " + outcome.Detail
	}
	response.Text(w, status, body)
}
