package optional

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresent(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"real value", "Responsable Inscripto", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"dash placeholder", "-", false},
		{"ninguna", "ninguna", false},
		{"ninguno uppercase", "NINGUNO", false},
		{"no corresponde", "No Corresponde", false},
		{"n/a", "n/a", false},
		{"na padded", "  NA  ", false},
		{"value containing placeholder word", "ninguna observacion", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Present(tt.value))
		})
	}
}

func TestFirst(t *testing.T) {
	assert.Equal(t, "b", First("", "ninguna", " b ", "c"))
	assert.Equal(t, "", First("-", "n/a"))
}

func TestFirstOr(t *testing.T) {
	assert.Equal(t, "fallback", FirstOr("fallback", "", "ninguno"))
	assert.Equal(t, "x", FirstOr("fallback", "x"))
}
