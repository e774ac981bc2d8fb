package matrix

import (
	"slices"
	"strings"

	"github.com/shopperslink/variant-service/internal/domain"
)

// Column is one selected attribute resolved against the catalog.
type Column struct {
	AttributeID string   `json:"attribute_id"`
	Name        string   `json:"name"`
	Values      []string `json:"values"`
}

func ensureMaps(sel *domain.Selection) {
	if sel.Values == nil {
		sel.Values = map[string][]string{}
	}
	if sel.Custom == nil {
		sel.Custom = map[string][]string{}
	}
}

// ToggleAttribute adds id to the end of the selection, or removes it when
// already present. Either way the attribute's selected and custom values
// are cleared. It returns whether the attribute is selected afterwards.
func ToggleAttribute(sel *domain.Selection, id string) bool {
	ensureMaps(sel)
	delete(sel.Values, id)
	delete(sel.Custom, id)

	if i := slices.Index(sel.Attributes, id); i >= 0 {
		sel.Attributes = slices.Delete(sel.Attributes, i, i+1)
		return false
	}
	sel.Attributes = append(sel.Attributes, id)
	return true
}

// ToggleValue adds value to the attribute's selected values, or removes it
// when already present. It returns whether the value is selected afterwards.
func ToggleValue(sel *domain.Selection, id, value string) (bool, error) {
	if !sel.Has(id) {
		return false, ErrAttributeNotSelected
	}
	ensureMaps(sel)

	values := sel.Values[id]
	if i := slices.Index(values, value); i >= 0 {
		sel.Values[id] = slices.Delete(values, i, i+1)
		if j := slices.Index(sel.Custom[id], value); j >= 0 {
			sel.Custom[id] = slices.Delete(sel.Custom[id], j, j+1)
		}
		return false, nil
	}
	sel.Values[id] = append(values, value)
	return true, nil
}

// AddCustomValue adds a typed-in value for attr. Matching is
// case-insensitive: a value already selected is left alone (false is
// returned), a value matching a canonical one selects the canonical
// spelling, anything else is added as a custom value.
func AddCustomValue(sel *domain.Selection, attr *domain.Attribute, value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, ErrEmptyValue
	}
	if !sel.Has(attr.ID) {
		return false, ErrAttributeNotSelected
	}
	ensureMaps(sel)

	for _, v := range sel.Values[attr.ID] {
		if strings.EqualFold(v, value) {
			return false, nil
		}
	}

	if canonical, ok := attr.FindValue(value); ok {
		sel.Values[attr.ID] = append(sel.Values[attr.ID], canonical.Value)
		return true, nil
	}

	sel.Values[attr.ID] = append(sel.Values[attr.ID], value)
	sel.Custom[attr.ID] = append(sel.Custom[attr.ID], value)
	return true, nil
}

// Columns resolves the selection against catalog, in selection order.
// Selected ids missing from the catalog are skipped.
func Columns(sel domain.Selection, catalog []domain.Attribute) []Column {
	byID := make(map[string]*domain.Attribute, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	cols := make([]Column, 0, len(sel.Attributes))
	for _, id := range sel.Attributes {
		attr, ok := byID[id]
		if !ok {
			continue
		}
		cols = append(cols, Column{
			AttributeID: id,
			Name:        attr.Name,
			Values:      slices.Clone(sel.Values[id]),
		})
	}
	return cols
}
