package handlers

import (
	"net/http"

	"lms-module/errors"
	"lms-module/http/response"
	"lms-module/logger"
	"lms-module/utils"
)

// GetDLQMessages retrieves unresolved DLQ messages
// GET /api/dlq/messages?limit=50
func (h *Handler) GetDLQMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, err := utils.ParseLimit(r)
	if err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.DLQ.ListDLQMessages(r.Context(), limit)
	if err != nil {
		logger.Error("Error fetching DLQ messages: %v", err)
		response.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch DLQ messages")
		return
	}

	response.SuccessResponse(w, http.StatusOK, "DLQ messages retrieved", map[string]interface{}{
		"count":    len(messages),
		"messages": messages,
	})
}

// RetryDLQMessages reprocesses pending DLQ messages now
// POST /api/dlq/messages/retry?limit=50
func (h *Handler) RetryDLQMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if h.Retry == nil || h.Reprocess == nil {
		response.ErrorResponse(w, http.StatusServiceUnavailable, "DLQ retry is not available")
		return
	}

	limit, err := utils.ParseLimit(r)
	if err != nil {
		response.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	retried, resolved := h.Retry(r.Context(), limit, h.Reprocess)
	response.SuccessResponse(w, http.StatusOK, "DLQ retry finished", map[string]interface{}{
		"retried":  retried,
		"resolved": resolved,
	})
}

// ResolveDLQMessage marks a DLQ message as resolved
// POST /api/dlq/messages/resolve?id=
func (h *Handler) ResolveDLQMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	messageID := r.URL.Query().Get("id")
	if messageID == "" {
		response.ErrorResponse(w, http.StatusBadRequest, "Missing message ID parameter")
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := utils.DecodeJSONRequest(r, &req); err != nil || req.Notes == "" {
		req.Notes = "Manually resolved"
	}

	if err := h.DLQ.ResolveDLQMessage(r.Context(), messageID, req.Notes); err != nil {
		if !errors.IsKind(err, errors.NotFound) {
			logger.Error("Error resolving DLQ message %s: %v", messageID, err)
		}
		response.FromError(w, err, "Failed to resolve message")
		return
	}

	response.SuccessResponse(w, http.StatusOK, "Message marked as resolved", map[string]interface{}{
		"messageId": messageID,
	})
}

// GetDLQStats retrieves statistics about DLQ messages
// GET /api/dlq/stats
func (h *Handler) GetDLQStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	stats, err := h.DLQ.DLQStats(r.Context())
	if err != nil {
		logger.Error("Error fetching DLQ statistics: %v", err)
		response.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch DLQ statistics")
		return
	}

	response.SuccessResponse(w, http.StatusOK, "DLQ statistics", stats)
}
