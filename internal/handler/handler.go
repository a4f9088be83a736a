// Package handler serves the urlguard HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/urlguard/urlguard/internal/handler/dto"
	"github.com/urlguard/urlguard/internal/service"
)

// Version is reported by the service info endpoint.
var Version = "dev"

// Handler serves the unversioned informational routes.
type Handler struct{}

func New() *Handler {
	return &Handler{}
}

// ServiceInfo describes the API.
// GET /
func (h *Handler) ServiceInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "urlguard",
		"version": Version,
		"endpoints": []string{
			"POST /api/v1/analyze",
			"GET /api/v1/analyze?url=",
			"POST /api/v1/analyze/batch",
			"GET /api/v1/scans",
			"GET /api/v1/scans/{id}",
			"GET /api/v1/stats",
		},
	})
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the flat {"error","code"} body.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// decodeJSON decodes a request body, reporting an oversized body separately.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
	default:
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
	}
	return false
}

// handleServiceError maps service sentinels to status codes; anything else is a logged 500.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrScanNotFound):
		writeError(w, http.StatusNotFound, "SCAN_NOT_FOUND", "Scan not found")
	case errors.Is(err, service.ErrAPIKeyNotFound):
		writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found or already revoked")
	case errors.Is(err, service.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
	case errors.Is(err, service.ErrInvalidThreatType):
		writeError(w, http.StatusBadRequest, "INVALID_THREAT_TYPE", "threat_type must be one of benign, phishing, malware, defacement")
	case errors.Is(err, service.ErrEmptyBatch):
		writeError(w, http.StatusBadRequest, "EMPTY_BATCH", "urls must contain at least one URL")
	case errors.Is(err, service.ErrBatchTooLarge):
		writeError(w, http.StatusBadRequest, "BATCH_TOO_LARGE", err.Error())
	case errors.Is(err, service.ErrInvalidScope):
		writeError(w, http.StatusBadRequest, "INVALID_SCOPE", err.Error()+". Valid scopes: read, admin")
	case errors.Is(err, service.ErrInvalidTier):
		writeError(w, http.StatusBadRequest, "INVALID_TIER", err.Error()+". Valid tiers: free, pro, unlimited")
	case errors.Is(err, service.ErrInvalidOwner):
		writeError(w, http.StatusBadRequest, "INVALID_OWNER", "Owner is required")
	case errors.Is(err, service.ErrHistoryDisabled), errors.Is(err, service.ErrStatsUnavailable), errors.Is(err, service.ErrKeysDisabled):
		writeError(w, http.StatusServiceUnavailable, "FEATURE_DISABLED", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "REQUEST_CANCELED", "Request canceled before completion")
	default:
		logger.Error("internal_error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
