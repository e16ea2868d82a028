package diff

import (
	"fmt"
	"math"
	"strconv"

	"github.com/perf-diff/pkg/utils"
)

// Heat palette styles.
const (
	NumColors  = 5
	StyleEqual = "equal"
	StyleLess  = "less"
	StyleMore  = "more"
)

// Palette classifies relative changes into heat levels. Thresholds are in
// percent: a change at or below the minimum is "equal", a change at or
// above the maximum gets the hottest level, and the range in between is
// split evenly over the remaining levels.
type Palette struct {
	min  float64
	max  float64
	step float64
}

// DefaultPalette uses thresholds of 0% and 4%.
func DefaultPalette() *Palette {
	return NewPalette(0, 4, nil)
}

// NewPalette creates a palette from two thresholds in percent, in any
// order and sign. Equal thresholds are widened by one percent.
func NewPalette(a, b float64, logger utils.Logger) *Palette {
	lo := math.Min(math.Abs(a), math.Abs(b))
	hi := math.Max(math.Abs(a), math.Abs(b))
	if lo == hi {
		utils.OrNull(logger).Warn("palette thresholds are equal (%v%%), using %v%% as maximum", lo, lo+1)
		hi = lo + 1
	}
	return &Palette{
		min:  lo,
		max:  hi,
		step: (hi - lo) / (NumColors - 1),
	}
}

// Min returns the lower threshold in percent.
func (p *Palette) Min() float64 {
	return p.min
}

// Max returns the upper threshold in percent.
func (p *Palette) Max() float64 {
	return p.max
}

// Heat returns the heat level of difference: 0 for no significant change,
// otherwise 1 to NumColors. NaN is the hottest level.
func (p *Palette) Heat(difference float64) int {
	if math.IsNaN(difference) {
		return NumColors
	}
	pct := math.Abs(difference) * 100
	if pct <= p.min {
		return 0
	}
	if pct >= p.max {
		return NumColors
	}
	heat := int((pct-p.min)/p.step) + 1
	if heat > NumColors {
		return NumColors
	}
	if heat < 1 {
		return 1
	}
	return heat
}

// Style returns the style key of difference: "equal", "less1".."less5"
// for shrinking call sites or "more1".."more5" for growing ones. Call
// sites without a baseline are "more5".
func (p *Palette) Style(difference float64) string {
	heat := p.Heat(difference)
	if heat == 0 {
		return StyleEqual
	}
	if difference < 0 {
		return StyleLess + strconv.Itoa(heat)
	}
	return StyleMore + strconv.Itoa(heat)
}

// Styles lists every style key of the palette.
func Styles() []string {
	out := []string{StyleEqual}
	for i := 1; i <= NumColors; i++ {
		out = append(out, StyleLess+strconv.Itoa(i), StyleMore+strconv.Itoa(i))
	}
	return out
}

// FlameStyle is the color of a differential node in a flame graph.
type FlameStyle struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Flame style names.
const (
	FlameNaN          = "NaN"
	FlameNoDifference = "NO-Difference"
)

// NoDifferenceThreshold is the largest relative change drawn as no change.
const NoDifferenceThreshold = 0.05

// FlameColor maps a relative change onto a blue (shrink) to red (growth)
// scale. Growth saturates at threshold; a threshold <= 0 means 1 (100%).
// Nodes without a baseline are pure red.
func FlameColor(difference, threshold float64) FlameStyle {
	if threshold <= 0 {
		threshold = 1
	}
	switch {
	case math.IsNaN(difference):
		return FlameStyle{Name: FlameNaN, Color: hexColor(255, 0, 0)}
	case math.Abs(difference) <= NoDifferenceThreshold:
		return FlameStyle{Name: FlameNoDifference, Color: hexColor(255, 255, 255)}
	case difference < 0:
		i := 255 + int(math.Floor(difference*255))
		if i < 0 {
			i = 0
		}
		return FlameStyle{Name: "BLUE" + strconv.Itoa(i), Color: hexColor(max(i-50, 0), i, 255)}
	default:
		d := math.Min(difference, threshold)
		i := 255 - int(math.Floor(d/threshold*255))
		return FlameStyle{Name: "RED" + strconv.Itoa(i), Color: hexColor(255, i, i)}
	}
}

func hexColor(r, g, b int) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
