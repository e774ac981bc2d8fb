// Package matrix is the variant matrix engine: attribute/value selection,
// cartesian generation with row reuse, row editing, bulk pricing and SKU
// derivation. Everything here is synchronous and free of I/O.
package matrix

import "errors"

var (
	ErrAttributeNotSelected = errors.New("attribute is not selected")
	ErrEmptyValue           = errors.New("value must not be empty")
	ErrRowNotFound          = errors.New("variant row not found")
	ErrUnknownField         = errors.New("unknown variant row field")
	ErrFieldLocked          = errors.New("field is locked by global pricing")
)
