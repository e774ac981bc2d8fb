package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopperslink/variant-service/internal/domain"
	"github.com/shopperslink/variant-service/internal/service"
	"github.com/shopperslink/variant-service/pkg/httputil"
	"github.com/shopperslink/variant-service/pkg/pagination"
)

// AttributeHandler handles HTTP requests for the attribute catalog.
type AttributeHandler struct {
	service *service.AttributeService
	logger  *slog.Logger
}

// NewAttributeHandler creates a new attribute HTTP handler.
func NewAttributeHandler(svc *service.AttributeService, logger *slog.Logger) *AttributeHandler {
	return &AttributeHandler{
		service: svc,
		logger:  logger,
	}
}

// ListAttributes handles GET /api/v1/attributes
func (h *AttributeHandler) ListAttributes(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := domain.AttributeFilter{
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		filter.Status = &v
	}
	if v := strings.TrimSpace(q.Get("category_id")); v != "" {
		filter.CategoryID = &v
	}

	attrs, total, err := h.service.ListAttributes(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, pagination.NewResult(attrs, total, params))
}

// GetAttribute handles GET /api/v1/attributes/{id}
func (h *AttributeHandler) GetAttribute(w http.ResponseWriter, r *http.Request) {
	attr, err := h.service.GetAttribute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, attr)
}

// CreateAttribute handles POST /api/v1/attributes
func (h *AttributeHandler) CreateAttribute(w http.ResponseWriter, r *http.Request) {
	var req service.CreateAttributeInput
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	attr, err := h.service.CreateAttribute(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, attr)
}

// UpdateAttribute handles PUT /api/v1/attributes/{id}
func (h *AttributeHandler) UpdateAttribute(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateAttributeInput
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	attr, err := h.service.UpdateAttribute(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, attr)
}

// DeleteAttribute handles DELETE /api/v1/attributes/{id}
func (h *AttributeHandler) DeleteAttribute(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAttribute(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddValue handles POST /api/v1/attributes/{id}/values
func (h *AttributeHandler) AddValue(w http.ResponseWriter, r *http.Request) {
	var req service.AttributeValueInput
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	attr, err := h.service.AddValue(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, attr)
}

// RemoveValue handles DELETE /api/v1/attributes/{id}/values/{valueId}
func (h *AttributeHandler) RemoveValue(w http.ResponseWriter, r *http.Request) {
	attr, err := h.service.RemoveValue(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "valueId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, attr)
}
