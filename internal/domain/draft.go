package domain

import (
	"slices"
	"time"
)

// Selection is the operator's attribute/value selection. Attributes is
// ordered and determines column order. Values holds the selected values per
// attribute id in selection order; Custom records which of them were typed
// in rather than picked from the catalog.
type Selection struct {
	Attributes []string            `json:"selected_attributes"`
	Values     map[string][]string `json:"selected_values"`
	Custom     map[string][]string `json:"custom_values,omitempty"`
}

// NewSelection returns an empty selection with initialised maps.
func NewSelection() Selection {
	return Selection{
		Attributes: []string{},
		Values:     map[string][]string{},
		Custom:     map[string][]string{},
	}
}

// Has reports whether attribute id is selected.
func (s *Selection) Has(id string) bool {
	return slices.Contains(s.Attributes, id)
}

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	out := Selection{
		Attributes: slices.Clone(s.Attributes),
		Values:     make(map[string][]string, len(s.Values)),
		Custom:     make(map[string][]string, len(s.Custom)),
	}
	if out.Attributes == nil {
		out.Attributes = []string{}
	}
	for k, v := range s.Values {
		out.Values[k] = slices.Clone(v)
	}
	for k, v := range s.Custom {
		out.Custom[k] = slices.Clone(v)
	}
	return out
}

// Equal reports whether both selections pick the same attributes and
// values in the same order.
func (s Selection) Equal(o Selection) bool {
	if !slices.Equal(s.Attributes, o.Attributes) {
		return false
	}
	for _, id := range s.Attributes {
		if !slices.Equal(s.Values[id], o.Values[id]) {
			return false
		}
	}
	return true
}

// GlobalPricing keeps price and discount of every row synced to one value
// while Enabled.
type GlobalPricing struct {
	Enabled  bool   `json:"enabled"`
	Price    string `json:"price"`
	Discount string `json:"discount"`
}

// VariantMeta is the selection-side state of a draft.
type VariantMeta struct {
	CategoryID    string        `json:"category_id"`
	BaseSKU       string        `json:"base_sku"`
	Selection     Selection     `json:"selection"`
	Excluded      []string      `json:"excluded,omitempty"`
	GlobalPricing GlobalPricing `json:"global_pricing"`
}

// Draft is the server-held state of a product wizard's variant step.
type Draft struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"owner_id"`
	ProductID string       `json:"product_id"`
	Currency  string       `json:"currency"`
	Meta      VariantMeta  `json:"variant_meta"`
	Rows      []VariantRow `json:"variants"`
	Version   int          `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// OwnedBy reports whether userID owns the draft.
func (d *Draft) OwnedBy(userID string) bool {
	return userID != "" && d.OwnerID == userID
}

// FindRow returns the index of the row with id, or -1.
func (d *Draft) FindRow(id string) int {
	for i := range d.Rows {
		if d.Rows[i].ID == id {
			return i
		}
	}
	return -1
}

// IsExcluded reports whether the combination key was removed by hand.
func (d *Draft) IsExcluded(key string) bool {
	return slices.Contains(d.Meta.Excluded, key)
}
