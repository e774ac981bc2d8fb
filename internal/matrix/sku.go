package matrix

import (
	"strings"

	"github.com/shopperslink/variant-service/internal/domain"
	"github.com/shopperslink/variant-service/pkg/slug"
)

// GenerateSKU derives a SKU from base and the row's values in column order,
// e.g. "PRD-001" with Deep Blue / M gives "PRD-001-DEEPBLUE-M". Values that
// reduce to nothing are skipped.
func GenerateSKU(row domain.VariantRow, base string) string {
	parts := make([]string, 0, len(row.Attributes)+1)
	if b := slug.Code(base); b != "" {
		parts = append(parts, b)
	}
	for _, v := range row.Attributes.Values() {
		if tok := slug.Token(v); tok != "" {
			parts = append(parts, tok)
		}
	}
	return strings.Join(parts, "-")
}

// GenerateAllSKUs fills the SKU of every row, or only of rows without one
// unless overwrite is set. It returns how many rows changed.
func GenerateAllSKUs(rows []domain.VariantRow, base string, overwrite bool) int {
	changed := 0
	for i := range rows {
		if rows[i].SKU != "" && !overwrite {
			continue
		}
		sku := GenerateSKU(rows[i], base)
		if sku != rows[i].SKU {
			rows[i].SKU = sku
			changed++
		}
	}
	return changed
}
