package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopperslink/variant-service/internal/service"
	"github.com/shopperslink/variant-service/pkg/httputil"
)

// VariantHandler serves committed variants.
type VariantHandler struct {
	service *service.VariantService
	logger  *slog.Logger
}

// NewVariantHandler creates a new variant HTTP handler.
func NewVariantHandler(svc *service.VariantService, logger *slog.Logger) *VariantHandler {
	return &VariantHandler{
		service: svc,
		logger:  logger,
	}
}

// ListByProduct handles GET /api/v1/products/{productId}/variants
func (h *VariantHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	variants, err := h.service.ListByProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, variants)
}
