package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldErrors(t *testing.T) {
	f := FieldErrors{}
	assert.NoError(t, f.Err())

	f.Required("asset_id", " ")
	f.Required("employee_id", "12")
	f.Add("asset_id", "second message is ignored")
	f.Add("condition", "must be one of good, poor")

	err := f.Err()
	require.Error(t, err)
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindValidation, ae.Kind)
	assert.Equal(t, map[string]string{
		"asset_id":  "is required",
		"condition": "must be one of good, poor",
	}, ae.Fields)
	assert.Equal(t, "asset_id is required; condition must be one of good, poor", ae.Message)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("x"), http.StatusBadRequest},
		{NotFound("x"), http.StatusNotFound},
		{Conflict("x"), http.StatusConflict},
		{Transaction(errors.New("db gone")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", Conflict("x")), http.StatusConflict},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestFromStorage(t *testing.T) {
	assert.NoError(t, FromStorage(nil, "dup"))

	nf := NotFound("asset not found")
	assert.Same(t, nf, FromStorage(nf, "dup"))

	err := FromStorage(errors.New("connection reset"), "dup")
	assert.True(t, Is(err, KindTransaction))
}
