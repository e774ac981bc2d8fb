package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Attribute Tests
// ============================================================================

func TestIsValidStatus(t *testing.T) {
	for _, s := range ValidStatuses() {
		assert.True(t, IsValidStatus(s), "expected %q to be valid", s)
	}
	assert.False(t, IsValidStatus(""))
	assert.False(t, IsValidStatus("ACTIVE"))
}

func TestAttribute_EligibleFor(t *testing.T) {
	shoes := "cat-shoes"
	plain := Attribute{ID: "a1", Name: "Color"}
	reserved := Attribute{ID: "a2", Name: "Shoe Size", ExclusiveCategoryID: &shoes}
	empty := ""
	blank := Attribute{ID: "a3", Name: "Blank", ExclusiveCategoryID: &empty}

	assert.True(t, plain.EligibleFor("anything"))
	assert.True(t, plain.EligibleFor(""))
	assert.True(t, reserved.EligibleFor("cat-shoes"))
	assert.False(t, reserved.EligibleFor("cat-shirts"))
	assert.False(t, reserved.EligibleFor(""))
	assert.False(t, blank.IsReserved())
}

func TestAttribute_ActiveValuesAndFind(t *testing.T) {
	a := Attribute{Values: []AttributeValue{
		{Value: "Red", Status: StatusActive},
		{Value: "Teal", Status: StatusInactive},
		{Value: "Blue", Status: StatusActive},
	}}
	assert.Equal(t, []string{"Red", "Blue"}, a.ActiveValues())

	v, ok := a.FindValue("rED")
	require.True(t, ok)
	assert.Equal(t, "Red", v.Value)

	_, ok = a.FindValue("green")
	assert.False(t, ok)
}

// ============================================================================
// AttributeSet Tests
// ============================================================================

func TestAttributeSet_KeyIsOrderIndependent(t *testing.T) {
	a := AttributeSet{{"Color", "Red"}, {"Size", "S"}}
	b := AttributeSet{{"Size", "S"}, {"Color", "Red"}}
	c := AttributeSet{{"Color", "Red"}, {"Size", "M"}}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Len(t, a.Hash(), 64)
}

func TestAttributeSet_KeyIsUnambiguous(t *testing.T) {
	a := AttributeSet{{"A", "x,B=y"}}
	b := AttributeSet{{"A", "x"}, {"B", "y"}}
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestAttributeSet_JSONPreservesOrder(t *testing.T) {
	s := AttributeSet{{"Size", "M"}, {"Color", "Deep \"Blue\""}}

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"Size":"M","Color":"Deep \"Blue\""}`, string(b))

	var decoded AttributeSet
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, s, decoded)
}

func TestAttributeSet_UnmarshalRejectsNonObject(t *testing.T) {
	var s AttributeSet
	assert.Error(t, json.Unmarshal([]byte(`["Red"]`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"Color":1}`), &s))

	require.NoError(t, json.Unmarshal([]byte(`null`), &s))
	assert.Nil(t, s)
}

func TestAttributeSet_Accessors(t *testing.T) {
	s := AttributeSet{{"Color", "Red"}, {"Size", "S"}}

	v, ok := s.Get("Size")
	assert.True(t, ok)
	assert.Equal(t, "S", v)
	_, ok = s.Get("Material")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"Color": "Red", "Size": "S"}, s.Map())
	assert.Equal(t, []string{"Red", "S"}, s.Values())
}

// ============================================================================
// Selection / Draft Tests
// ============================================================================

func TestSelection_CloneIsDeep(t *testing.T) {
	s := NewSelection()
	s.Attributes = append(s.Attributes, "color")
	s.Values["color"] = []string{"Red"}

	c := s.Clone()
	c.Values["color"][0] = "Blue"
	c.Attributes[0] = "size"

	assert.Equal(t, "Red", s.Values["color"][0])
	assert.Equal(t, "color", s.Attributes[0])
	assert.True(t, s.Has("color"))
	assert.False(t, s.Has("size"))
}

func TestSelection_Equal(t *testing.T) {
	a := Selection{Attributes: []string{"c", "s"}, Values: map[string][]string{"c": {"Red"}, "s": {"S"}}}
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Values["s"] = append(b.Values["s"], "M")
	assert.False(t, a.Equal(b))

	c := Selection{Attributes: []string{"s", "c"}, Values: a.Values}
	assert.False(t, a.Equal(c))
}

func TestDraft_Helpers(t *testing.T) {
	d := Draft{
		OwnerID: "vendor-1",
		Rows:    []VariantRow{{ID: "r1"}, {ID: "r2"}},
		Meta:    VariantMeta{Excluded: []string{"k1"}},
	}

	assert.True(t, d.OwnedBy("vendor-1"))
	assert.False(t, d.OwnedBy("vendor-2"))
	assert.False(t, (&Draft{}).OwnedBy(""))
	assert.Equal(t, 1, d.FindRow("r2"))
	assert.Equal(t, -1, d.FindRow("r3"))
	assert.True(t, d.IsExcluded("k1"))
	assert.False(t, d.IsExcluded("k2"))
}

func TestDraft_JSONShape(t *testing.T) {
	d := Draft{
		ID:   "d1",
		Rows: []VariantRow{{ID: "r1", Attributes: AttributeSet{{"Color", "Red"}}, Price: "10"}},
		Meta: VariantMeta{Selection: NewSelection()},
	}
	b, err := json.Marshal(d)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Contains(t, raw, "variants")
	assert.Contains(t, raw, "variant_meta")
	assert.JSONEq(t, `[{"id":"r1","attributes":{"Color":"Red"},"sku":"","price":"10","discount":"","stock":""}]`, string(raw["variants"]))
}
