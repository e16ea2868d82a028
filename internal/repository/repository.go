// Package repository persists comparison report summaries.
package repository

import (
	"context"
	"time"

	"github.com/perf-diff/pkg/model"
)

// ReportRepository defines the database operations on comparison reports.
// Only summaries and change lists are stored, never call trees.
type ReportRepository interface {
	// Save stores a new report together with its changes. An empty ID is
	// replaced by a fresh UUID.
	Save(ctx context.Context, report *model.ComparisonReport) error

	// Get retrieves a report and its changes by ID.
	Get(ctx context.Context, id string) (*model.ComparisonReport, error)

	// List returns report summaries, newest first. Changes are not loaded.
	List(ctx context.Context, filter ListFilter) ([]*model.ComparisonReport, error)

	// Delete removes a report and its changes.
	Delete(ctx context.Context, id string) error
}

// ListFilter narrows List results. Zero fields do not filter.
type ListFilter struct {
	Name  string
	Since time.Time
	Limit int
}
