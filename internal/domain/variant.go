package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// AttributeOption is one attribute-name/value pair of a variant.
type AttributeOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AttributeSet is the attribute mapping of a variant, kept in column order.
// It encodes as a JSON object whose keys follow that order.
type AttributeSet []AttributeOption

// Get returns the value for name.
func (s AttributeSet) Get(name string) (string, bool) {
	for _, o := range s {
		if o.Name == name {
			return o.Value, true
		}
	}
	return "", false
}

// Map returns the set as a plain map.
func (s AttributeSet) Map() map[string]string {
	m := make(map[string]string, len(s))
	for _, o := range s {
		m[o.Name] = o.Value
	}
	return m
}

// Values returns the values in column order.
func (s AttributeSet) Values() []string {
	out := make([]string, len(s))
	for i, o := range s {
		out[i] = o.Value
	}
	return out
}

// Key returns the canonical, order-independent identity of the set. Two
// sets with the same pairs in any order have the same key.
func (s AttributeSet) Key() string {
	pairs := make([][2]string, len(s))
	for i, o := range s {
		pairs[i] = [2]string{o.Name, o.Value}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	b, _ := json.Marshal(pairs)
	return string(b)
}

// Hash returns the hex SHA-256 of Key.
func (s AttributeSet) Hash() string {
	sum := sha256.Sum256([]byte(s.Key()))
	return hex.EncodeToString(sum[:])
}

// MarshalJSON encodes the set as an object in column order.
func (s AttributeSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, o := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(o.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(o.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, preserving key order.
func (s *AttributeSet) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("attribute set: expected object, got %v", tok)
	}

	out := AttributeSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("attribute set: value for %q: %w", key, err)
		}
		out = append(out, AttributeOption{Name: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// VariantRow is one row of the variant matrix as edited in the product
// wizard. Editable fields hold the text typed by the operator; an empty
// string means unset.
type VariantRow struct {
	ID         string       `json:"id"`
	Attributes AttributeSet `json:"attributes"`
	SKU        string       `json:"sku"`
	Price      string       `json:"price"`
	Discount   string       `json:"discount"`
	Stock      string       `json:"stock"`
}

// Key returns the canonical key of the row's combination.
func (r *VariantRow) Key() string {
	return r.Attributes.Key()
}

// Variant is a committed product variant.
type Variant struct {
	ID            string       `json:"id"`
	ProductID     string       `json:"product_id"`
	SKU           string       `json:"sku"`
	Attributes    AttributeSet `json:"attributes"`
	AttributeHash string       `json:"attribute_hash"`
	Price         int64        `json:"price"`
	Discount      int64        `json:"discount"`
	Stock         int          `json:"stock"`
	Currency      string       `json:"currency"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
