package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopperslink/variant-service/internal/domain"
	"github.com/shopperslink/variant-service/internal/repository"
	apperrors "github.com/shopperslink/variant-service/pkg/errors"
)

// VariantService serves committed variants.
type VariantService struct {
	variants repository.VariantRepository
	drafts   repository.DraftRepository
	logger   *slog.Logger
}

// NewVariantService creates a new variant service.
func NewVariantService(variants repository.VariantRepository, drafts repository.DraftRepository, logger *slog.Logger) *VariantService {
	return &VariantService{
		variants: variants,
		drafts:   drafts,
		logger:   logger,
	}
}

// ListByProduct returns the committed variants of a product.
func (s *VariantService) ListByProduct(ctx context.Context, productID string) ([]domain.Variant, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	variants, err := s.variants.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants by product: %w", err)
	}
	return variants, nil
}

// DeleteByProduct removes every committed variant of a product.
func (s *VariantService) DeleteByProduct(ctx context.Context, productID string) (int64, error) {
	n, err := s.variants.DeleteByProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("delete variants by product: %w", err)
	}
	return n, nil
}

// PurgeProduct drops the committed variants and every open draft of a
// deleted product. It is safe to repeat.
func (s *VariantService) PurgeProduct(ctx context.Context, productID string) error {
	n, err := s.DeleteByProduct(ctx, productID)
	if err != nil {
		return err
	}

	ids, err := s.drafts.ListIDsByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("list drafts by product: %w", err)
	}
	for _, id := range ids {
		if err := s.drafts.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete draft %s: %w", id, err)
		}
	}

	s.logger.InfoContext(ctx, "product variants purged",
		slog.String("product_id", productID),
		slog.Int64("variants", n),
		slog.Int("drafts", len(ids)),
	)
	return nil
}
