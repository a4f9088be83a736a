package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/urlguard/urlguard/internal/handler/dto"
	"github.com/urlguard/urlguard/internal/service"
)

// ScanHandler serves scan history and statistics.
type ScanHandler struct {
	svc    *service.ScanService
	logger *slog.Logger
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(svc *service.ScanService, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/scans.
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 20
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	result, err := h.svc.ListScans(r.Context(), service.ListScansInput{
		Cursor:     query.Get("cursor"),
		Limit:      limit,
		ThreatType: query.Get("threat_type"),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToScanListResponse(result.Scans, result.NextCursor, result.HasMore))
}

// Get handles GET /api/v1/scans/{id}.
func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Scan ID is required")
		return
	}

	scan, err := h.svc.GetScan(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToScanResponse(scan))
}

// Stats handles GET /api/v1/stats.
func (h *ScanHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToStatsResponse(stats))
}
