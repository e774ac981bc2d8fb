package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUnauthorized,
		ErrForbidden, ErrInternal, ErrConflict, ErrGone, ErrServiceUnavail,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j])
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	withInner := &AppError{Code: "INTERNAL_ERROR", Message: "draft save failed", Err: fmt.Errorf("redis down")}
	assert.Equal(t, "INTERNAL_ERROR: draft save failed: redis down", withInner.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "draft not found"}
	assert.Equal(t, "NOT_FOUND: draft not found", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestAppError_WithFields_DoesNotMutateOriginal(t *testing.T) {
	base := InvalidInput("draft cannot be committed")
	withFields := base.WithFields(map[string]string{"rows[0].sku": "is required"})

	assert.Nil(t, base.Fields)
	assert.Equal(t, "is required", withFields.Fields["rows[0].sku"])
	assert.True(t, errors.Is(withFields, ErrInvalidInput))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("attribute", "a-1"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"already exists", AlreadyExists("attribute", "name", "Color"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists},
		{"invalid input", InvalidInput("value is empty"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("missing token"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("not your draft"), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"conflict", Conflict("draft was modified"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"gone", Gone("draft expired"), "GONE", http.StatusGone, ErrGone},
		{"unavailable", Unavailable("catalog unreachable"), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.True(t, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestNotFound_MessageNamesResource(t *testing.T) {
	err := NotFound("variant draft", "d-42")
	assert.Equal(t, "variant draft with id d-42 not found", err.Message)
}

func TestInternal_HidesCause(t *testing.T) {
	err := Internal(fmt.Errorf("pq: deadlock detected"))
	assert.Equal(t, "an internal error occurred", err.Message)
	assert.Contains(t, err.Error(), "deadlock")
}

func TestWrap(t *testing.T) {
	wrapped := Wrap(ErrNotFound, "load draft")
	assert.Equal(t, "load draft: resource not found", wrapped.Error())
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NotFound("x", "1"), http.StatusNotFound},
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrGone, http.StatusGone},
		{ErrServiceUnavail, http.StatusServiceUnavailable},
		{fmt.Errorf("outer: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}
