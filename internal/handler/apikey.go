package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/urlguard/urlguard/internal/auth"
	"github.com/urlguard/urlguard/internal/handler/dto"
	"github.com/urlguard/urlguard/internal/model"
	"github.com/urlguard/urlguard/internal/service"
)

// APIKeyHandler serves /api/v1/api-keys.
type APIKeyHandler struct {
	svc    *service.APIKeyService
	logger *slog.Logger
}

func NewAPIKeyHandler(svc *service.APIKeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/api-keys. New keys belong to the caller's
// owner; the plaintext key is returned once.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.CreateAPIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	key, plaintext, err := h.svc.CreateKey(r.Context(), service.CreateKeyInput{
		Owner:         owner,
		Name:          req.Name,
		Scopes:        req.Scopes,
		RateLimitTier: req.RateLimitTier,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.APIKeyCreateResponse{
		APIKeyResponse: key.ToResponse(),
		Key:            plaintext,
	})
}

// List handles GET /api/v1/api-keys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	keys, err := h.svc.ListKeys(r.Context(), owner)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	responses := make([]model.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, key.ToResponse())
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": responses})
}

// Revoke handles DELETE /api/v1/api-keys/{key_id}.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	keyID := chi.URLParam(r, "key_id")
	if keyID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Key ID is required")
		return
	}

	if err := h.svc.RevokeKey(r.Context(), owner, keyID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
