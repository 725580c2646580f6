package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDsAreDistinctTypes(t *testing.T) {
	userID := NewUserID()
	assert.False(t, userID.IsNil())
	assert.Len(t, userID.String(), 36)

	var zero PostulacionID
	assert.True(t, zero.IsNil())
}
