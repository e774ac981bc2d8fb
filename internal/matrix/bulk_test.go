package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shopperslink/variant-service/internal/domain"
)

func threeRows() []domain.VariantRow {
	return []domain.VariantRow{
		{ID: "a", SKU: "A", Price: "1", Discount: "0", Stock: "3"},
		{ID: "b", SKU: "B", Price: "2", Discount: "", Stock: "4"},
		{ID: "c", SKU: "", Price: "", Discount: "1", Stock: ""},
	}
}

func TestApplyBulk_PriceOnly(t *testing.T) {
	rows := threeRows()
	before := threeRows()

	ApplyBulk(rows, BulkInput{Price: "999"})

	for i := range rows {
		assert.Equal(t, "999", rows[i].Price)
		assert.Equal(t, before[i].SKU, rows[i].SKU)
		assert.Equal(t, before[i].Stock, rows[i].Stock)
		assert.Equal(t, before[i].Discount, rows[i].Discount)
	}
}

func TestApplyBulk_AllFields(t *testing.T) {
	rows := threeRows()
	ApplyBulk(rows, BulkInput{Price: "50", Discount: "5", Stock: "10"})

	for _, r := range rows {
		assert.Equal(t, "50", r.Price)
		assert.Equal(t, "5", r.Discount)
		assert.Equal(t, "10", r.Stock)
	}
}

func TestApplyBulk_EmptyInputIsNoop(t *testing.T) {
	rows := threeRows()
	in := BulkInput{}
	assert.True(t, in.IsEmpty())
	ApplyBulk(rows, in)
	assert.Equal(t, threeRows(), rows)
}

func TestApplyGlobalPricing(t *testing.T) {
	rows := threeRows()
	ApplyGlobalPricing(rows, domain.GlobalPricing{Enabled: false, Price: "77"})
	assert.Equal(t, threeRows(), rows)

	ApplyGlobalPricing(rows, domain.GlobalPricing{Enabled: true, Price: "77", Discount: "7"})
	for _, r := range rows {
		assert.Equal(t, "77", r.Price)
		assert.Equal(t, "7", r.Discount)
	}
	assert.Equal(t, "3", rows[0].Stock)
}
