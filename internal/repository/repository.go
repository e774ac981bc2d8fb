package repository

import (
	"context"

	"github.com/shopperslink/variant-service/internal/domain"
)

// AttributeRepository defines persistence operations for the attribute
// catalog.
type AttributeRepository interface {
	// Create inserts an attribute together with its values.
	Create(ctx context.Context, a *domain.Attribute) error

	// GetByID returns the attribute with all of its values.
	GetByID(ctx context.Context, id string) (*domain.Attribute, error)

	// List returns one page of attributes and the total count.
	List(ctx context.Context, filter domain.AttributeFilter) ([]domain.Attribute, int, error)

	// ListAll returns every attribute with its values, in catalog order.
	ListAll(ctx context.Context) ([]domain.Attribute, error)

	Update(ctx context.Context, a *domain.Attribute) error
	Delete(ctx context.Context, id string) error

	// DeleteIfVersion removes the draft only if the stored version still
	// equals expected. It reports false on a version mismatch.
	DeleteIfVersion(ctx context.Context, id string, expected int) (bool, error)

	AddValue(ctx context.Context, v *domain.AttributeValue) error
	RemoveValue(ctx context.Context, attributeID, valueID string) error
}

// VariantRepository defines persistence operations for committed variants.
type VariantRepository interface {
	// ReplaceForProduct atomically swaps the product's variants for the given
	// set.
	ReplaceForProduct(ctx context.Context, productID string, variants []domain.Variant) error

	ListByProduct(ctx context.Context, productID string) ([]domain.Variant, error)

	// DeleteByProduct removes every variant of the product and returns how
	// many were deleted.
	DeleteByProduct(ctx context.Context, productID string) (int64, error)
}

// DraftRepository defines persistence operations for variant drafts.
type DraftRepository interface {
	Get(ctx context.Context, id string) (*domain.Draft, error)

	// Create stores a new draft. It fails with ALREADY_EXISTS if the id is
	// taken.
	Create(ctx context.Context, d *domain.Draft) error

	// SaveIfVersion stores d only if the stored version still equals
	// expected, and bumps d.Version. It reports false on a version mismatch.
	SaveIfVersion(ctx context.Context, d *domain.Draft, expected int) (bool, error)

	Delete(ctx context.Context, id string) error

	// DeleteIfVersion removes the draft only if the stored version still
	// equals expected. It reports false on a version mismatch.
	DeleteIfVersion(ctx context.Context, id string, expected int) (bool, error)

	// ListIDsByProduct returns ids of drafts editing the given product.
	ListIDsByProduct(ctx context.Context, productID string) ([]string, error)
}
