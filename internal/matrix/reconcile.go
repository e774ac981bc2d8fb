package matrix

import (
	"fmt"
	"slices"

	"github.com/shopperslink/variant-service/internal/domain"
)

// Editable row fields.
const (
	FieldSKU      = "sku"
	FieldPrice    = "price"
	FieldDiscount = "discount"
	FieldStock    = "stock"
)

// Fields lists the editable row fields.
func Fields() []string {
	return []string{FieldSKU, FieldPrice, FieldDiscount, FieldStock}
}

// UpdateRow sets one editable field of the row with id. Price and discount
// are locked while gp is enabled.
func UpdateRow(rows []domain.VariantRow, gp domain.GlobalPricing, id, field, value string) error {
	i := slices.IndexFunc(rows, func(r domain.VariantRow) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}

	row := &rows[i]
	switch field {
	case FieldSKU:
		row.SKU = value
	case FieldPrice, FieldDiscount:
		if gp.Enabled {
			return fmt.Errorf("%w: %s", ErrFieldLocked, field)
		}
		if field == FieldPrice {
			row.Price = value
		} else {
			row.Discount = value
		}
	case FieldStock:
		row.Stock = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// RemoveRow deletes the row with id and returns the remaining rows together
// with the canonical key of the removed combination.
func RemoveRow(rows []domain.VariantRow, id string) ([]domain.VariantRow, string, error) {
	i := slices.IndexFunc(rows, func(r domain.VariantRow) bool { return r.ID == id })
	if i < 0 {
		return rows, "", fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	key := rows[i].Key()
	return slices.Delete(rows, i, i+1), key, nil
}
