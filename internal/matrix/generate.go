package matrix

import (
	"github.com/google/uuid"

	"github.com/shopperslink/variant-service/internal/domain"
)

// Options tunes Generate.
type Options struct {
	// NewID returns ids for fresh rows. Defaults to a random UUID.
	NewID func() string
	// Excluded holds canonical keys of combinations to leave out.
	Excluded map[string]struct{}
}

// ExcludedSet builds an Options.Excluded set from keys.
func ExcludedSet(keys []string) map[string]struct{} {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Generate returns one row per combination of the column values, in nested
// loop order with the last column varying fastest. A row from previous
// whose attribute mapping equals the combination (ignoring order) is reused
// with its id and editable fields; other combinations get a fresh row.
//
// Repeated values within a column count once, at their first position.
// No columns, or a column without values, yields an empty result.
func Generate(columns []Column, previous []domain.VariantRow, opts Options) []domain.VariantRow {
	if len(columns) == 0 {
		return []domain.VariantRow{}
	}
	columns = distinctColumns(columns)
	total := 1
	for _, c := range columns {
		if len(c.Values) == 0 {
			return []domain.VariantRow{}
		}
		total *= len(c.Values)
	}

	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	reuse := make(map[string]domain.VariantRow, len(previous))
	for _, r := range previous {
		k := r.Key()
		if _, seen := reuse[k]; !seen {
			reuse[k] = r
		}
	}

	rows := make([]domain.VariantRow, 0, total)
	idx := make([]int, len(columns))
	for {
		attrs := make(domain.AttributeSet, len(columns))
		for i, c := range columns {
			attrs[i] = domain.AttributeOption{Name: c.Name, Value: c.Values[idx[i]]}
		}

		key := attrs.Key()
		if _, skip := opts.Excluded[key]; !skip {
			if prev, ok := reuse[key]; ok {
				prev.Attributes = attrs
				rows = append(rows, prev)
			} else {
				rows = append(rows, domain.VariantRow{ID: newID(), Attributes: attrs})
			}
		}

		// odometer: advance the last column first
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(columns[i].Values) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return rows
		}
	}
}

// distinctColumns returns columns with repeated values dropped. The input is
// left untouched.
func distinctColumns(columns []Column) []Column {
	out := make([]Column, len(columns))
	for i, c := range columns {
		out[i] = c
		seen := make(map[string]struct{}, len(c.Values))
		values := make([]string, 0, len(c.Values))
		for _, v := range c.Values {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
		out[i].Values = values
	}
	return out
}

// Regenerate resolves sel against catalog and generates rows from previous.
func Regenerate(sel domain.Selection, catalog []domain.Attribute, previous []domain.VariantRow, opts Options) []domain.VariantRow {
	return Generate(Columns(sel, catalog), previous, opts)
}
