package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopperslink/variant-service/internal/domain"
	"github.com/shopperslink/variant-service/internal/matrix"
	"github.com/shopperslink/variant-service/internal/service"
	"github.com/shopperslink/variant-service/pkg/httputil"
	"github.com/shopperslink/variant-service/pkg/middleware"
)

// DraftHandler handles HTTP requests for variant drafts.
type DraftHandler struct {
	service *service.DraftService
	logger  *slog.Logger
}

// NewDraftHandler creates a new draft HTTP handler.
func NewDraftHandler(svc *service.DraftService, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{
		service: svc,
		logger:  logger,
	}
}

type previewColumn struct {
	AttributeID string   `json:"attribute_id" validate:"max=64"`
	Name        string   `json:"name" validate:"required,max=128"`
	Values      []string `json:"values" validate:"max=200,unique,dive,required,max=128"`
}

type previewRequest struct {
	Columns  []previewColumn     `json:"columns" validate:"max=32,unique=Name,dive"`
	Previous []domain.VariantRow `json:"previous"`
	Excluded []string            `json:"excluded"`
}

type setCategoryRequest struct {
	CategoryID string `json:"category_id" validate:"max=64"`
}

type setBaseSKURequest struct {
	BaseSKU string `json:"base_sku" validate:"max=64"`
}

type valueRequest struct {
	Value string `json:"value" validate:"required,max=128"`
}

type updateRowRequest struct {
	Field string `json:"field" validate:"required,oneof=sku price discount stock"`
	Value string `json:"value" validate:"max=128"`
}

type bulkRequest struct {
	Price    string `json:"price" validate:"omitempty,money"`
	Discount string `json:"discount" validate:"omitempty,money"`
	Stock    string `json:"stock" validate:"omitempty,quantity"`
}

type globalPricingRequest struct {
	Enabled  bool   `json:"enabled"`
	Price    string `json:"price" validate:"omitempty,money"`
	Discount string `json:"discount" validate:"omitempty,money"`
}

func actorFromRequest(r *http.Request) service.Actor {
	return service.Actor{
		UserID: middleware.UserIDFromContext(r.Context()),
		Role:   middleware.RoleFromContext(r.Context()),
	}
}

// draftID reads and validates the {id} path parameter. On failure the
// response is already written.
func draftID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return "", false
	}
	return id.String(), true
}

// Preview handles POST /api/v1/variant-matrix/preview
func (h *DraftHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	columns := make([]matrix.Column, 0, len(req.Columns))
	for _, c := range req.Columns {
		columns = append(columns, matrix.Column{AttributeID: c.AttributeID, Name: c.Name, Values: c.Values})
	}

	rows, err := h.service.Preview(columns, req.Previous, req.Excluded)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, rows)
}

// CreateDraft handles POST /api/v1/variant-drafts
func (h *DraftHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req service.CreateDraftInput
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.service.CreateDraft(r.Context(), actorFromRequest(r), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, d)
}

// GetDraft handles GET /api/v1/variant-drafts/{id}
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	d, err := h.service.GetDraft(r.Context(), actorFromRequest(r), id)
	h.respond(w, r, d, err)
}

// DeleteDraft handles DELETE /api/v1/variant-drafts/{id}
func (h *DraftHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteDraft(r.Context(), actorFromRequest(r), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetCategory handles PUT /api/v1/variant-drafts/{id}/category
func (h *DraftHandler) SetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req setCategoryRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.service.SetCategory(r.Context(), actorFromRequest(r), id, req.CategoryID)
	h.respond(w, r, d, err)
}

// SetBaseSKU handles PUT /api/v1/variant-drafts/{id}/base-sku
func (h *DraftHandler) SetBaseSKU(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req setBaseSKURequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.service.SetBaseSKU(r.Context(), actorFromRequest(r), id, req.BaseSKU)
	h.respond(w, r, d, err)
}

// ToggleAttribute handles POST /api/v1/variant-drafts/{id}/attributes/{attributeId}/toggle
func (h *DraftHandler) ToggleAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	d, err := h.service.ToggleAttribute(r.Context(), actorFromRequest(r), id, chi.URLParam(r, "attributeId"))
	h.respond(w, r, d, err)
}

// ToggleValue handles POST /api/v1/variant-drafts/{id}/attributes/{attributeId}/values/toggle
func (h *DraftHandler) ToggleValue(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req valueRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.service.ToggleValue(r.Context(), actorFromRequest(r), id, chi.URLParam(r, "attributeId"), req.Value)
	h.respond(w, r, d, err)
}

// AddCustomValue handles POST /api/v1/variant-drafts/{id}/attributes/{attributeId}/values/custom
func (h *DraftHandler) AddCustomValue(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req valueRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.service.AddCustomValue(r.Context(), actorFromRequest(r), id, chi.URLParam(r, "attributeId"), req.Value)
	h.respond(w, r, d, err)
}

// UpdateRow handles PATCH /api/v1/variant-drafts/{id}/rows/{rowId}
func (h *DraftHandler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req updateRowRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.service.UpdateRow(r.Context(), actorFromRequest(r), id, chi.URLParam(r, "rowId"), req.Field, req.Value)
	h.respond(w, r, d, err)
}

// RemoveRow handles DELETE /api/v1/variant-drafts/{id}/rows/{rowId}
func (h *DraftHandler) RemoveRow(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	d, err := h.service.RemoveRow(r.Context(), actorFromRequest(r), id, chi.URLParam(r, "rowId"))
	h.respond(w, r, d, err)
}

// ApplyBulk handles POST /api/v1/variant-drafts/{id}/bulk
func (h *DraftHandler) ApplyBulk(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req bulkRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	in := matrix.BulkInput{Price: req.Price, Discount: req.Discount, Stock: req.Stock}
	d, err := h.service.ApplyBulk(r.Context(), actorFromRequest(r), id, in)
	h.respond(w, r, d, err)
}

// SetGlobalPricing handles PUT /api/v1/variant-drafts/{id}/global-pricing
func (h *DraftHandler) SetGlobalPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req globalPricingRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	gp := domain.GlobalPricing{Enabled: req.Enabled, Price: req.Price, Discount: req.Discount}
	d, err := h.service.SetGlobalPricing(r.Context(), actorFromRequest(r), id, gp)
	h.respond(w, r, d, err)
}

// GenerateSKUs handles POST /api/v1/variant-drafts/{id}/skus?overwrite=true
func (h *DraftHandler) GenerateSKUs(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	overwrite := false
	if v := r.URL.Query().Get("overwrite"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:    "INVALID_PARAMETER",
					Message: "overwrite must be a boolean",
				},
			})
			return
		}
		overwrite = parsed
	}

	d, err := h.service.GenerateSKUs(r.Context(), actorFromRequest(r), id, overwrite)
	h.respond(w, r, d, err)
}

// CommitDraft handles POST /api/v1/variant-drafts/{id}/commit
func (h *DraftHandler) CommitDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	variants, err := h.service.CommitDraft(r.Context(), actorFromRequest(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, variants)
}

func (h *DraftHandler) respond(w http.ResponseWriter, r *http.Request, d *domain.Draft, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, d)
}
