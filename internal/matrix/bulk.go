package matrix

import "github.com/shopperslink/variant-service/internal/domain"

// BulkInput holds the values to write to every row. Empty fields are
// skipped.
type BulkInput struct {
	Price    string `json:"price"`
	Discount string `json:"discount"`
	Stock    string `json:"stock"`
}

// IsEmpty reports whether no field is set.
func (b BulkInput) IsEmpty() bool {
	return b.Price == "" && b.Discount == "" && b.Stock == ""
}

// ApplyBulk overwrites price, discount and stock on every row for each
// non-empty field of in.
func ApplyBulk(rows []domain.VariantRow, in BulkInput) {
	for i := range rows {
		if in.Price != "" {
			rows[i].Price = in.Price
		}
		if in.Discount != "" {
			rows[i].Discount = in.Discount
		}
		if in.Stock != "" {
			rows[i].Stock = in.Stock
		}
	}
}

// ApplyGlobalPricing copies the global price and discount onto every row
// when gp is enabled.
func ApplyGlobalPricing(rows []domain.VariantRow, gp domain.GlobalPricing) {
	if !gp.Enabled {
		return
	}
	for i := range rows {
		rows[i].Price = gp.Price
		rows[i].Discount = gp.Discount
	}
}
