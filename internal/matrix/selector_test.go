package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopperslink/variant-service/internal/domain"
)

func colorAttr() *domain.Attribute {
	return &domain.Attribute{
		ID:     "attr-color",
		Name:   "Color",
		Status: domain.StatusActive,
		Values: []domain.AttributeValue{
			{ID: "v1", Value: "Red", Status: domain.StatusActive},
			{ID: "v2", Value: "Blue", Status: domain.StatusActive},
		},
	}
}

func TestToggleAttribute(t *testing.T) {
	var sel domain.Selection

	assert.True(t, ToggleAttribute(&sel, "color"))
	assert.True(t, ToggleAttribute(&sel, "size"))
	assert.Equal(t, []string{"color", "size"}, sel.Attributes)

	_, err := ToggleValue(&sel, "color", "Red")
	require.NoError(t, err)
	sel.Custom["color"] = []string{"Red"}

	assert.False(t, ToggleAttribute(&sel, "color"))
	assert.Equal(t, []string{"size"}, sel.Attributes)
	assert.NotContains(t, sel.Values, "color")
	assert.NotContains(t, sel.Custom, "color")

	// re-selecting appends at the end with no values
	assert.True(t, ToggleAttribute(&sel, "color"))
	assert.Equal(t, []string{"size", "color"}, sel.Attributes)
	assert.Empty(t, sel.Values["color"])
}

func TestToggleValue(t *testing.T) {
	sel := domain.NewSelection()

	_, err := ToggleValue(&sel, "color", "Red")
	assert.ErrorIs(t, err, ErrAttributeNotSelected)

	ToggleAttribute(&sel, "color")
	on, err := ToggleValue(&sel, "color", "Red")
	require.NoError(t, err)
	assert.True(t, on)
	_, _ = ToggleValue(&sel, "color", "Blue")
	assert.Equal(t, []string{"Red", "Blue"}, sel.Values["color"])

	on, err = ToggleValue(&sel, "color", "Red")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, []string{"Blue"}, sel.Values["color"])
}

func TestToggleValue_RemovesCustomMarker(t *testing.T) {
	sel := domain.NewSelection()
	attr := colorAttr()
	ToggleAttribute(&sel, attr.ID)

	added, err := AddCustomValue(&sel, attr, "Olive")
	require.NoError(t, err)
	require.True(t, added)
	assert.Equal(t, []string{"Olive"}, sel.Custom[attr.ID])

	on, err := ToggleValue(&sel, attr.ID, "Olive")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, sel.Custom[attr.ID])
}

func TestAddCustomValue(t *testing.T) {
	attr := colorAttr()

	tests := []struct {
		name       string
		preselect  []string
		input      string
		wantAdded  bool
		wantErr    error
		wantValues []string
		wantCustom []string
	}{
		{name: "new custom value", input: "  Olive Green ", wantAdded: true,
			wantValues: []string{"Olive Green"}, wantCustom: []string{"Olive Green"}},
		{name: "matches canonical value", input: "rEd", wantAdded: true,
			wantValues: []string{"Red"}},
		{name: "already selected", preselect: []string{"Blue"}, input: "BLUE",
			wantValues: []string{"Blue"}},
		{name: "blank", input: "   ", wantErr: ErrEmptyValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := domain.NewSelection()
			ToggleAttribute(&sel, attr.ID)
			for _, v := range tt.preselect {
				_, err := ToggleValue(&sel, attr.ID, v)
				require.NoError(t, err)
			}

			added, err := AddCustomValue(&sel, attr, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdded, added)
			assert.Equal(t, tt.wantValues, sel.Values[attr.ID])
			assert.Equal(t, tt.wantCustom, sel.Custom[attr.ID])
		})
	}
}

func TestAddCustomValue_CustomDuplicateIsCaseInsensitive(t *testing.T) {
	attr := colorAttr()
	sel := domain.NewSelection()
	ToggleAttribute(&sel, attr.ID)

	_, err := AddCustomValue(&sel, attr, "Olive")
	require.NoError(t, err)
	added, err := AddCustomValue(&sel, attr, "olive")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, []string{"Olive"}, sel.Values[attr.ID])
}

func TestAddCustomValue_RequiresSelectedAttribute(t *testing.T) {
	sel := domain.NewSelection()
	_, err := AddCustomValue(&sel, colorAttr(), "Olive")
	assert.ErrorIs(t, err, ErrAttributeNotSelected)
}

func TestColumns(t *testing.T) {
	catalog := []domain.Attribute{*colorAttr(), {ID: "attr-size", Name: "Size"}}
	sel := domain.Selection{
		Attributes: []string{"attr-size", "missing", "attr-color"},
		Values:     map[string][]string{"attr-size": {"S"}, "attr-color": {"Red", "Blue"}},
	}

	cols := Columns(sel, catalog)
	require.Len(t, cols, 2)
	assert.Equal(t, Column{AttributeID: "attr-size", Name: "Size", Values: []string{"S"}}, cols[0])
	assert.Equal(t, "Color", cols[1].Name)

	cols[1].Values[0] = "changed"
	assert.Equal(t, "Red", sel.Values["attr-color"][0])
}
