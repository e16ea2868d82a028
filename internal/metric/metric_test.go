package metric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDifferential(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected string
	}{
		{"zero", 0, "No Difference"},
		{"growth", 0.123, "+12.3%"},
		{"shrink", -0.5, "-50%"},
		{"double", 1, "+100%"},
		{"rounding", 0.12345, "+12.3%"},
		{"small", 0.0001, "+0%"},
		{"nan", math.NaN(), "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDifferential(tt.value))
		})
	}
}

func TestDifferential_Type(t *testing.T) {
	assert.Equal(t, "Differential", Differential.Title)
	assert.Equal(t, "No Difference", Differential.FormatValue(0))
	assert.Equal(t, "-25%", Differential.FormatValue(-0.25))
}

func TestGeneric(t *testing.T) {
	assert.Equal(t, "42", Generic(42))
	assert.Equal(t, "-3", Generic(-3))
	assert.Equal(t, "1.5", Generic(1.5))
	assert.Equal(t, "0.333", Generic(1.0/3.0))
	assert.Equal(t, "NaN", Generic(math.NaN()))
	assert.Equal(t, "+Inf", Generic(math.Inf(1)))
	assert.Equal(t, "-Inf", Generic(math.Inf(-1)))
}

func TestType_FormatValueFallsBackToGeneric(t *testing.T) {
	assert.Equal(t, "7", Samples.FormatValue(7))
	assert.Equal(t, "1.5µs", Duration.FormatValue(1500))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(1.5*1024*1024))
	assert.Equal(t, "NaN", FormatBytes(math.NaN()))
}
