package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopperslink/variant-service/internal/domain"
	"github.com/shopperslink/variant-service/pkg/database"
	apperrors "github.com/shopperslink/variant-service/pkg/errors"
)

// VariantRepository implements repository.VariantRepository using PostgreSQL.
type VariantRepository struct {
	pool database.DBTX
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
func NewVariantRepository(pool database.DBTX) *VariantRepository {
	return &VariantRepository{pool: pool}
}

// ReplaceForProduct deletes the product's current variants and inserts the
// given ones in a single transaction.
func (r *VariantRepository) ReplaceForProduct(ctx context.Context, productID string, variants []domain.Variant) (err error) {
	insertQuery := `
		INSERT INTO product_variants (id, product_id, sku, attributes, attribute_hash, price, discount, stock, currency, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	ctx, end := database.TraceQuery(ctx, "ReplaceProductVariants", insertQuery)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx, `DELETE FROM product_variants WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("delete previous variants: %w", err)
	}

	for i := range variants {
		v := &variants[i]
		attrsJSON, mErr := encodeAttributes(v.Attributes)
		if mErr != nil {
			err = fmt.Errorf("marshal variant attributes: %w", mErr)
			return err
		}

		_, err = tx.Exec(ctx, insertQuery,
			v.ID,
			productID,
			v.SKU,
			attrsJSON,
			v.AttributeHash,
			v.Price,
			v.Discount,
			v.Stock,
			v.Currency,
			v.IsActive,
			v.CreatedAt,
			v.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.AlreadyExists("variant", "sku", v.SKU)
			}
			return fmt.Errorf("insert variant: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListByProduct returns the product's variants ordered by creation.
func (r *VariantRepository) ListByProduct(ctx context.Context, productID string) (_ []domain.Variant, err error) {
	query := `
		SELECT id, product_id, sku, attributes, attribute_hash, price, discount, stock, currency, is_active, created_at, updated_at
		FROM product_variants
		WHERE product_id = $1
		ORDER BY created_at, sku`

	ctx, end := database.TraceQuery(ctx, "ListProductVariants", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	variants := []domain.Variant{}
	for rows.Next() {
		var (
			v         domain.Variant
			attrsJSON []byte
		)
		if err = rows.Scan(
			&v.ID, &v.ProductID, &v.SKU, &attrsJSON, &v.AttributeHash,
			&v.Price, &v.Discount, &v.Stock, &v.Currency, &v.IsActive,
			&v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		if v.Attributes, err = decodeAttributes(attrsJSON); err != nil {
			return nil, fmt.Errorf("unmarshal variant attributes: %w", err)
		}
		variants = append(variants, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return variants, nil
}

// DeleteByProduct removes every variant of a product.
func (r *VariantRepository) DeleteByProduct(ctx context.Context, productID string) (_ int64, err error) {
	query := `DELETE FROM product_variants WHERE product_id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteProductVariants", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, productID)
	if err != nil {
		return 0, fmt.Errorf("delete variants: %w", err)
	}
	return ct.RowsAffected(), nil
}

// encodeAttributes stores the set as an array of name/value pairs so the
// column order survives the round trip through JSONB.
func encodeAttributes(attrs domain.AttributeSet) ([]byte, error) {
	pairs := []domain.AttributeOption(attrs)
	if pairs == nil {
		pairs = []domain.AttributeOption{}
	}
	return json.Marshal(pairs)
}

func decodeAttributes(data []byte) (domain.AttributeSet, error) {
	var pairs []domain.AttributeOption
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, err
	}
	return domain.AttributeSet(pairs), nil
}
