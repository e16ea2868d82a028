package repository

import (
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/perf-diff/pkg/model"
)

// ComparisonRecord represents the comparison_reports table.
type ComparisonRecord struct {
	ID            string         `gorm:"column:id;primaryKey;type:varchar(36)"`
	Name          string         `gorm:"column:name;type:varchar(128);index"`
	BaseInputs    StringList     `gorm:"column:base_inputs;type:text"`
	TargetInputs  StringList     `gorm:"column:target_inputs;type:text"`
	GroupBy       string         `gorm:"column:group_by;type:varchar(64)"`
	Statistic     string         `gorm:"column:statistic;type:varchar(64)"`
	WeightType    string         `gorm:"column:weight_type;type:varchar(64)"`
	BaseWeight    int64          `gorm:"column:base_weight"`
	TargetWeight  int64          `gorm:"column:target_weight"`
	PairedGroups  int            `gorm:"column:paired_groups"`
	NodeCount     int            `gorm:"column:node_count"`
	NewNodes      int            `gorm:"column:new_nodes"`
	Artifacts     StringList     `gorm:"column:artifacts;type:text"`
	DurationNanos int64          `gorm:"column:duration_nanos"`
	CreatedAt     time.Time      `gorm:"column:created_at;index"`
	Changes       []ChangeRecord `gorm:"foreignKey:ReportID;references:ID"`
}

// TableName returns the table name for ComparisonRecord.
func (ComparisonRecord) TableName() string {
	return "comparison_reports"
}

// ChangeRecord represents the comparison_changes table. Position keeps the
// order of the report's change list.
type ChangeRecord struct {
	ID           int64            `gorm:"column:id;primaryKey;autoIncrement"`
	ReportID     string           `gorm:"column:report_id;type:varchar(36);index"`
	Position     int              `gorm:"column:position"`
	Element      string           `gorm:"column:element;type:varchar(255)"`
	Path         string           `gorm:"column:path;type:text"`
	Symbol       string           `gorm:"column:symbol;type:varchar(512)"`
	Kind         model.ChangeKind `gorm:"column:kind;type:varchar(16)"`
	BaseWeight   int64            `gorm:"column:base_weight"`
	TargetWeight int64            `gorm:"column:target_weight"`
	Difference   *float64         `gorm:"column:difference"`
	Formatted    string           `gorm:"column:formatted;type:varchar(32)"`
}

// TableName returns the table name for ChangeRecord.
func (ChangeRecord) TableName() string {
	return "comparison_changes"
}

// pathSeparator joins the frames of a stored change path, as in folded stacks.
const pathSeparator = ";"

// NewComparisonRecord converts a report into its table rows.
func NewComparisonRecord(r *model.ComparisonReport) *ComparisonRecord {
	rec := &ComparisonRecord{
		ID:            r.ID,
		Name:          r.Name,
		BaseInputs:    StringList(r.BaseInputs),
		TargetInputs:  StringList(r.TargetInputs),
		GroupBy:       r.GroupBy,
		Statistic:     r.Statistic,
		WeightType:    r.WeightType,
		BaseWeight:    r.BaseWeight,
		TargetWeight:  r.TargetWeight,
		PairedGroups:  r.PairedGroups,
		NodeCount:     r.NodeCount,
		NewNodes:      r.NewNodes,
		Artifacts:     StringList(r.Artifacts),
		DurationNanos: r.DurationNanos,
		CreatedAt:     r.CreatedAt,
	}
	for i, c := range r.Changes {
		rec.Changes = append(rec.Changes, ChangeRecord{
			ReportID:     r.ID,
			Position:     i,
			Element:      c.Element,
			Path:         strings.Join(c.Path, pathSeparator),
			Symbol:       c.Symbol,
			Kind:         c.Kind,
			BaseWeight:   c.BaseWeight,
			TargetWeight: c.TargetWeight,
			Difference:   c.Difference,
			Formatted:    c.Formatted,
		})
	}
	return rec
}

// ToModel converts the record back into a report. Changes are included
// when they were loaded.
func (r *ComparisonRecord) ToModel() *model.ComparisonReport {
	report := &model.ComparisonReport{
		ID:            r.ID,
		Name:          r.Name,
		BaseInputs:    []string(r.BaseInputs),
		TargetInputs:  []string(r.TargetInputs),
		GroupBy:       r.GroupBy,
		Statistic:     r.Statistic,
		WeightType:    r.WeightType,
		BaseWeight:    r.BaseWeight,
		TargetWeight:  r.TargetWeight,
		PairedGroups:  r.PairedGroups,
		NodeCount:     r.NodeCount,
		NewNodes:      r.NewNodes,
		Artifacts:     []string(r.Artifacts),
		DurationNanos: r.DurationNanos,
		CreatedAt:     r.CreatedAt,
		Changes:       make([]*model.Change, 0, len(r.Changes)),
	}
	for _, c := range r.Changes {
		var path []string
		if c.Path != "" {
			path = strings.Split(c.Path, pathSeparator)
		}
		report.Changes = append(report.Changes, &model.Change{
			Element:      c.Element,
			Path:         path,
			Symbol:       c.Symbol,
			Kind:         c.Kind,
			BaseWeight:   c.BaseWeight,
			TargetWeight: c.TargetWeight,
			Difference:   c.Difference,
			Formatted:    c.Formatted,
		})
	}
	return report
}

// StringList stores a list of strings as a JSON array.
type StringList []string

// Value implements driver.Valuer interface.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := gojson.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner interface.
func (l *StringList) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for StringList")
	}

	var out []string
	if err := gojson.Unmarshal(data, &out); err != nil {
		return err
	}
	if len(out) == 0 {
		out = nil
	}
	*l = out
	return nil
}
