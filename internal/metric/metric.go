// Package metric describes the values a provider can show for a call site
// and how to format them.
package metric

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DataType is the kind of quantity a metric carries.
type DataType string

const (
	DataNumber   DataType = "number"
	DataDuration DataType = "duration"
	DataBytes    DataType = "bytes"
	DataRatio    DataType = "ratio"
)

// Formatter renders a metric value.
type Formatter func(value float64) string

// Type describes one metric.
type Type struct {
	Title    string
	DataType DataType
	Unit     string
	Format   Formatter
}

// FormatValue renders value with the type's formatter, or the generic
// formatter when it has none.
func (t Type) FormatValue(value float64) string {
	if t.Format != nil {
		return t.Format(value)
	}
	return Generic(value)
}

// Common weight types.
var (
	Samples  = Type{Title: "Samples", DataType: DataNumber}
	Duration = Type{Title: "Duration", DataType: DataDuration, Unit: "ns", Format: FormatDuration}
	Bytes    = Type{Title: "Bytes", DataType: DataBytes, Unit: "B", Format: FormatBytes}
)

// DifferentialTitle is the title of the metric carrying the relative
// change of a differential node.
const DifferentialTitle = "Differential"

// NoDifference is shown for a relative change of exactly zero.
const NoDifference = "No Difference"

// Differential is the metric type of a relative change.
var Differential = Type{
	Title:    DifferentialTitle,
	DataType: DataRatio,
	Unit:     "%",
	Format:   FormatDifferential,
}

// FormatDifferential renders a relative change as a signed percentage
// with at most one decimal ("+12.3%", "-50%"). Zero renders as
// "No Difference" and NaN goes to the generic formatter.
func FormatDifferential(value float64) string {
	if math.IsNaN(value) {
		return Generic(value)
	}
	if value == 0 {
		return NoDifference
	}
	s := trimZero(strconv.FormatFloat(value*100, 'f', 1, 64))
	if value > 0 {
		s = "+" + s
	}
	return s + "%"
}

// Generic renders any number: integers without decimals, others with up
// to three.
func Generic(value float64) string {
	switch {
	case math.IsNaN(value):
		return "NaN"
	case math.IsInf(value, 1):
		return "+Inf"
	case math.IsInf(value, -1):
		return "-Inf"
	case value == math.Trunc(value) && math.Abs(value) < 1e15:
		return strconv.FormatInt(int64(value), 10)
	}
	return trimZero(strconv.FormatFloat(value, 'f', 3, 64))
}

// FormatDuration renders nanoseconds as a duration.
func FormatDuration(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Generic(value)
	}
	return time.Duration(int64(value)).String()
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Generic(value)
	}
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	v := value
	i := 0
	for math.Abs(v) >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	if i == 0 {
		return Generic(v) + " " + units[0]
	}
	return trimZero(strconv.FormatFloat(v, 'f', 1, 64)) + " " + units[i]
}

func trimZero(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
