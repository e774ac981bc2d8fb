package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attributeInput struct {
	Name   string   `json:"name" validate:"required,min=2,max=10"`
	Status string   `json:"status" validate:"omitempty,oneof=active inactive"`
	Values []string `json:"values" validate:"max=2"`
	ID     string   `json:"id" validate:"omitempty,uuid"`
}

type bulkInput struct {
	Price    string `json:"price" validate:"omitempty,money"`
	Stock    string `json:"stock" validate:"omitempty,quantity"`
	Internal string `json:"-" validate:"omitempty,max=1"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(attributeInput{Name: "Color", Status: "active"}))
	assert.NoError(t, Validate(bulkInput{Price: "999", Stock: "10"}))
	assert.NoError(t, Validate(bulkInput{}))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	fields := fieldsOf(t, Validate(attributeInput{}))
	assert.Equal(t, "is required", fields["name"])
	assert.NotContains(t, fields, "Name")
}

func TestValidate_FallsBackToGoNameForHiddenFields(t *testing.T) {
	fields := fieldsOf(t, Validate(bulkInput{Internal: "too long"}))
	assert.Contains(t, fields, "Internal")
}

func TestValidate_Messages(t *testing.T) {
	fields := fieldsOf(t, Validate(attributeInput{
		Name:   "X",
		Status: "deleted",
		Values: []string{"a", "b", "c"},
		ID:     "not-a-uuid",
	}))
	assert.Equal(t, "must be at least 2 characters", fields["name"])
	assert.Equal(t, "must be one of: active inactive", fields["status"])
	assert.Equal(t, "must contain at most 2 items", fields["values"])
	assert.Equal(t, "must be a valid UUID", fields["id"])
}

func TestValidate_UniqueMessage(t *testing.T) {
	type columnInput struct {
		Values []string `json:"values" validate:"unique"`
	}

	assert.NoError(t, Validate(columnInput{Values: []string{"Red", "Blue"}}))
	fields := fieldsOf(t, Validate(columnInput{Values: []string{"Red", "Red"}}))
	assert.Equal(t, "must not contain duplicates", fields["values"])
}

func TestValidate_MoneyAndQuantity(t *testing.T) {
	fields := fieldsOf(t, Validate(bulkInput{Price: "-1", Stock: "2.5"}))
	assert.Contains(t, fields["price"], "non-negative amount")
	assert.Contains(t, fields["stock"], "whole number")
}

func TestIsMoney(t *testing.T) {
	for _, ok := range []string{"0", "12", "12.5", "12.50", " 7 "} {
		assert.True(t, IsMoney(ok), ok)
	}
	for _, bad := range []string{"", "-1", "1.234", "abc", "1,5", ".5"} {
		assert.False(t, IsMoney(bad), bad)
	}
}

func TestIsQuantity(t *testing.T) {
	assert.True(t, IsQuantity("0"))
	assert.True(t, IsQuantity("150"))
	assert.False(t, IsQuantity(""))
	assert.False(t, IsQuantity("-3"))
	assert.False(t, IsQuantity("1.0"))
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(attributeInput{})
	require.Error(t, err)
	assert.Equal(t, "field 'name' is required", err.Error())
}

func TestDecodeAndValidate(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"Size"}`))
	var in attributeInput
	require.NoError(t, DecodeAndValidate(req, &in))
	assert.Equal(t, "Size", in.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))
	err := DecodeAndValidate(req, &in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	var empty attributeInput
	err = DecodeAndValidate(req, &empty)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
