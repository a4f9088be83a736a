package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/urlguard/urlguard/internal/handler/dto"
	"github.com/urlguard/urlguard/internal/middleware"
	"github.com/urlguard/urlguard/internal/model"
	"github.com/urlguard/urlguard/internal/service"
)

// AnalyzeHandler serves the public classification endpoints.
type AnalyzeHandler struct {
	svc          *service.ScanService
	logger       *slog.Logger
	maxURLLength int
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(svc *service.ScanService, logger *slog.Logger, maxURLLength int) *AnalyzeHandler {
	return &AnalyzeHandler{svc: svc, logger: logger, maxURLLength: maxURLLength}
}

// Analyze handles POST /api/v1/analyze.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req dto.AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.analyze(w, r, req.URL)
}

// AnalyzeQuery handles GET /api/v1/analyze?url=...
func (h *AnalyzeHandler) AnalyzeQuery(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, r.URL.Query().Get("url"))
}

func (h *AnalyzeHandler) analyze(w http.ResponseWriter, r *http.Request, raw string) {
	rawURL, err := middleware.NormalizeURLInput(raw, h.maxURLLength)
	if err != nil {
		h.writeInputError(w, err, "")
		return
	}

	analysis, err := h.svc.Analyze(r.Context(), rawURL, service.ScanOptions{
		Source:    model.SourceAPI,
		RequestID: middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAnalysisResponse(analysis))
}

// AnalyzeBatch handles POST /api/v1/analyze/batch.
func (h *AnalyzeHandler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchAnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.URLs) == 0 {
		handleServiceError(w, h.logger, service.ErrEmptyBatch)
		return
	}
	if limit := h.svc.MaxBatchSize(); len(req.URLs) > limit {
		writeError(w, http.StatusBadRequest, "BATCH_TOO_LARGE",
			fmt.Sprintf("Batch of %d URLs exceeds the limit of %d", len(req.URLs), limit))
		return
	}

	urls := make([]string, len(req.URLs))
	for i, raw := range req.URLs {
		normalized, err := middleware.NormalizeURLInput(raw, h.maxURLLength)
		if err != nil {
			h.writeInputError(w, err, fmt.Sprintf("urls[%d]: ", i))
			return
		}
		urls[i] = normalized
	}

	analyses, err := h.svc.AnalyzeBatch(r.Context(), urls, service.ScanOptions{
		Source:    model.SourceBatch,
		RequestID: middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBatchAnalysisResponse(analyses))
}

func (h *AnalyzeHandler) writeInputError(w http.ResponseWriter, err error, prefix string) {
	switch {
	case errors.Is(err, middleware.ErrURLMissing):
		writeError(w, http.StatusBadRequest, "MISSING_URL", prefix+"Please enter a URL to analyze")
	case errors.Is(err, middleware.ErrURLTooLong):
		writeError(w, http.StatusBadRequest, "URL_TOO_LONG",
			fmt.Sprintf("%sURL exceeds the maximum length of %d characters", prefix, h.maxURLLength))
	default:
		handleServiceError(w, h.logger, err)
	}
}
