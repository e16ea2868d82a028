package diff

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perf-diff/pkg/utils"
)

func TestPalette_Default(t *testing.T) {
	p := DefaultPalette()

	tests := []struct {
		diff float64
		heat int
	}{
		{0, 0},
		{0.0001, 1},
		{0.005, 1},
		{0.01, 2},
		{0.025, 3},
		{0.03, 4},
		{0.039, 4},
		{0.04, 5},
		{3, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.heat, p.Heat(tt.diff), "diff %v", tt.diff)
		assert.Equal(t, tt.heat, p.Heat(-tt.diff), "diff %v", -tt.diff)
	}
	assert.Equal(t, NumColors, p.Heat(math.NaN()))
}

func TestPalette_Create(t *testing.T) {
	p := NewPalette(100, -10, nil)
	assert.Equal(t, 10.0, p.Min())
	assert.Equal(t, 100.0, p.Max())

	assert.Equal(t, 0, p.Heat(0.1))
	assert.Equal(t, 1, p.Heat(0.2))
	assert.Equal(t, 2, p.Heat(0.33))
	assert.Equal(t, 3, p.Heat(0.6))
	assert.Equal(t, 4, p.Heat(-0.9))
	assert.Equal(t, 5, p.Heat(1))

	p = NewPalette(0, 1, nil)
	assert.Equal(t, 1, p.Heat(0.002))
	assert.Equal(t, 2, p.Heat(0.003))
	assert.Equal(t, 4, p.Heat(0.008))
}

func TestPalette_EqualThresholds(t *testing.T) {
	var buf bytes.Buffer
	logger := utils.NewDefaultLogger(utils.LevelWarn, &buf)

	p := NewPalette(3, 3, logger)

	assert.Equal(t, 3.0, p.Min())
	assert.Equal(t, 4.0, p.Max())
	assert.Contains(t, buf.String(), "palette thresholds are equal")
}

func TestPalette_Style(t *testing.T) {
	p := DefaultPalette()

	assert.Equal(t, StyleEqual, p.Style(0))
	assert.Equal(t, "more2", p.Style(0.01))
	assert.Equal(t, "less5", p.Style(-0.5))
	assert.Equal(t, "more5", p.Style(math.NaN()))

	styles := Styles()
	assert.Len(t, styles, 1+2*NumColors)
	assert.Contains(t, styles, "less3")
	assert.Contains(t, styles, "more1")
}

func TestFlameColor(t *testing.T) {
	tests := []struct {
		name      string
		diff      float64
		threshold float64
		want      FlameStyle
	}{
		{"nan", math.NaN(), 1, FlameStyle{Name: FlameNaN, Color: "#ff0000"}},
		{"within noise", 0.05, 1, FlameStyle{Name: FlameNoDifference, Color: "#ffffff"}},
		{"small drop", -0.01, 1, FlameStyle{Name: FlameNoDifference, Color: "#ffffff"}},
		{"halved", -0.5, 1, FlameStyle{Name: "BLUE127", Color: "#4d7fff"}},
		{"vanished", -1, 1, FlameStyle{Name: "BLUE0", Color: "#0000ff"}},
		{"half growth", 0.5, 1, FlameStyle{Name: "RED128", Color: "#ff8080"}},
		{"saturated", 3, 2, FlameStyle{Name: "RED0", Color: "#ff0000"}},
		{"default threshold", 1, 0, FlameStyle{Name: "RED0", Color: "#ff0000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlameColor(tt.diff, tt.threshold))
		})
	}
}
