package domain

import (
	"strings"
	"time"
)

// Attribute and value status constants.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Attribute is a product attribute such as Color or Size together with its
// canonical values.
type Attribute struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Values []AttributeValue `json:"values"`
	Status string           `json:"status"`
	// ExclusiveCategoryID binds a reserved attribute to a single category.
	ExclusiveCategoryID *string   `json:"exclusive_category_id,omitempty"`
	SortOrder           int       `json:"sort_order"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// AttributeValue is one canonical value of an attribute.
type AttributeValue struct {
	ID          string    `json:"id"`
	AttributeID string    `json:"attribute_id,omitempty"`
	Value       string    `json:"value"`
	Status      string    `json:"status"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidStatuses returns the set of valid attribute and value statuses.
func ValidStatuses() []string {
	return []string{StatusActive, StatusInactive}
}

// IsValidStatus checks whether status is a valid attribute or value status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// IsActive reports whether the attribute may be selected.
func (a *Attribute) IsActive() bool {
	return a.Status == StatusActive
}

// IsReserved reports whether the attribute is bound to one category.
func (a *Attribute) IsReserved() bool {
	return a.ExclusiveCategoryID != nil && *a.ExclusiveCategoryID != ""
}

// EligibleFor reports whether the attribute may be used for a product in
// categoryID. Unreserved attributes are eligible everywhere.
func (a *Attribute) EligibleFor(categoryID string) bool {
	if !a.IsReserved() {
		return true
	}
	return *a.ExclusiveCategoryID == categoryID
}

// ActiveValues returns the value strings of active values in catalog order.
func (a *Attribute) ActiveValues() []string {
	out := make([]string, 0, len(a.Values))
	for _, v := range a.Values {
		if v.Status == StatusActive {
			out = append(out, v.Value)
		}
	}
	return out
}

// FindValue returns the canonical value matching v case-insensitively.
func (a *Attribute) FindValue(v string) (AttributeValue, bool) {
	for _, av := range a.Values {
		if strings.EqualFold(av.Value, v) {
			return av, true
		}
	}
	return AttributeValue{}, false
}

// AttributeFilter holds criteria for listing attributes.
type AttributeFilter struct {
	Status     *string
	CategoryID *string
	Page       int
	PerPage    int
}
