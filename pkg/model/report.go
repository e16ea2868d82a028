package model

import (
	"time"
)

// ChangeKind classifies one entry of a comparison report.
type ChangeKind string

const (
	ChangeRegression  ChangeKind = "regression"
	ChangeImprovement ChangeKind = "improvement"
	ChangeAdded       ChangeKind = "added"
)

// Change is one call path whose weight moved between the two sides of a
// comparison.
type Change struct {
	Element      string     `json:"element"`
	Path         []string   `json:"path"`
	Symbol       string     `json:"symbol"`
	Kind         ChangeKind `json:"kind"`
	BaseWeight   int64      `json:"base_weight"`
	TargetWeight int64      `json:"target_weight"`
	Difference   *float64   `json:"difference,omitempty"` // nil when the path is new
	Formatted    string     `json:"formatted"`
}

// ComparisonReport summarizes a differential analysis. Trees are not part
// of the report; they are exported separately.
type ComparisonReport struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	BaseInputs    []string  `json:"base_inputs"`
	TargetInputs  []string  `json:"target_inputs"`
	GroupBy       string    `json:"group_by"`
	Statistic     string    `json:"statistic,omitempty"`
	WeightType    string    `json:"weight_type"`
	BaseWeight    int64     `json:"base_weight"`
	TargetWeight  int64     `json:"target_weight"`
	PairedGroups  int       `json:"paired_groups"`
	NodeCount     int       `json:"node_count"`
	NewNodes      int       `json:"new_nodes"`
	Changes       []*Change `json:"changes"`
	Artifacts     []string  `json:"artifacts,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	DurationNanos int64     `json:"duration_nanos"`
}

// Regressions returns the changes that grew versus the baseline.
func (r *ComparisonReport) Regressions() []*Change {
	return r.filter(ChangeRegression)
}

// Improvements returns the changes that shrank versus the baseline.
func (r *ComparisonReport) Improvements() []*Change {
	return r.filter(ChangeImprovement)
}

func (r *ComparisonReport) filter(kind ChangeKind) []*Change {
	out := make([]*Change, 0)
	for _, c := range r.Changes {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// WeightDelta returns the relative change of the total weight, or 0 when
// the base side is empty.
func (r *ComparisonReport) WeightDelta() float64 {
	if r.BaseWeight == 0 {
		return 0
	}
	return float64(r.TargetWeight-r.BaseWeight) / float64(r.BaseWeight)
}
