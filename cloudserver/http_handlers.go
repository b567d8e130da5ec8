// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package cloudserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/bizledger/possync/cloudstore"
	"github.com/bizledger/possync/internal/auth"
)

// HTTPHandlers exposes the document store as the REST surface the
// cloudstore HTTP client consumes. The tenant always comes from the JWT.
type HTTPHandlers struct {
	service *Service
	logger  *slog.Logger
}

// NewHTTPHandlers creates the handler set.
func NewHTTPHandlers(service *Service, logger *slog.Logger) *HTTPHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandlers{service: service, logger: logger}
}

// Routes registers the collection endpoints on a mux. Callers wrap the
// returned handler with JWTAuth.Middleware.
func (h *HTTPHandlers) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/collections/{collection}", h.handleList)
	mux.HandleFunc("PUT /v1/collections/{collection}/{key}", h.handleMerge)
	mux.HandleFunc("DELETE /v1/collections/{collection}/{key}", h.handleDelete)
	return mux
}

type listResponse struct {
	Documents []cloudstore.Doc `json:"documents"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *HTTPHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "missing tenant")
		return
	}
	tenantID := id.TenantID
	collection := r.PathValue("collection")

	docs, err := h.service.GetAll(r.Context(), tenantID, collection)
	if err != nil {
		h.logger.Error("failed to list documents", "tenant", tenantID, "collection", collection, "error", err)
		h.writeError(w, http.StatusInternalServerError, "list_failed", "failed to list documents")
		return
	}
	if docs == nil {
		docs = []cloudstore.Doc{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listResponse{Documents: docs}); err != nil {
		h.logger.Error("failed to encode list response", "error", err)
	}
}

func (h *HTTPHandlers) handleMerge(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "missing tenant")
		return
	}
	tenantID := id.TenantID
	collection := r.PathValue("collection")
	key := r.PathValue("key")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
		return
	}
	if !json.Valid(body) {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "body must be a JSON object")
		return
	}

	if err := h.service.SetMerge(r.Context(), tenantID, collection, key, body); err != nil {
		h.logger.Error("failed to merge document", "tenant", tenantID,
			"collection", collection, "key", key, "error", err)
		h.writeError(w, http.StatusInternalServerError, "merge_failed", "failed to merge document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "missing tenant")
		return
	}
	tenantID := id.TenantID
	collection := r.PathValue("collection")
	key := r.PathValue("key")

	if err := h.service.Delete(r.Context(), tenantID, collection, key); err != nil {
		h.logger.Error("failed to delete document", "tenant", tenantID,
			"collection", collection, "key", key, "error", err)
		h.writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: code, Message: message})
}
