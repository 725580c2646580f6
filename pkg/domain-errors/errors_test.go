package dErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeQuotaExceeded, "quota reached")
	assert.True(t, HasCode(err, CodeQuotaExceeded))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeQuotaExceeded))
	assert.False(t, HasCode(nil, CodeQuotaExceeded))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodeInvalidState, "cannot move")
	outer := fmt.Errorf("while submitting: %w", inner)
	assert.True(t, HasCode(outer, CodeInvalidState))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "store unavailable")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithField(t *testing.T) {
	err := New(CodeIncompleteFiscalData, "fiscal data incomplete").
		WithField("missing_fields", []string{"situacion_iva"})

	fields := FieldsOf(err)
	require.NotNil(t, fields)
	assert.Equal(t, []string{"situacion_iva"}, fields["missing_fields"])
	assert.Nil(t, FieldsOf(errors.New("plain")))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
