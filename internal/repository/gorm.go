package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/model"
)

// changeBatchSize bounds the rows of one INSERT of changes.
const changeBatchSize = 100

// GormReportRepository implements ReportRepository using GORM.
type GormReportRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormReportRepository creates a new GormReportRepository.
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db, now: time.Now}
}

// Save stores report and its changes in one transaction. The ID and the
// creation time are filled in on report when missing.
func (r *GormReportRepository) Save(ctx context.Context, report *model.ComparisonReport) error {
	if report == nil {
		return apperrors.New(apperrors.CodeInvalidInput, "report is nil")
	}
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = r.now().UTC()
	}

	rec := NewComparisonRecord(report)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(rec).Error; err != nil {
			return err
		}
		if len(rec.Changes) == 0 {
			return nil
		}
		return tx.CreateInBatches(rec.Changes, changeBatchSize).Error
	})
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeDatabaseError, err, "failed to save report %s", report.ID)
	}
	return nil
}

// Get retrieves a report and its changes by ID.
func (r *GormReportRepository) Get(ctx context.Context, id string) (*model.ComparisonReport, error) {
	var rec ComparisonRecord

	err := r.db.WithContext(ctx).
		Preload("Changes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("report not found: %s", id))
		}
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to get report", err)
	}
	return rec.ToModel(), nil
}

// List returns report summaries matching filter, newest first.
func (r *GormReportRepository) List(ctx context.Context, filter ListFilter) ([]*model.ComparisonReport, error) {
	var recs []ComparisonRecord

	query := r.db.WithContext(ctx).Model(&ComparisonRecord{})
	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list reports", err)
	}

	out := make([]*model.ComparisonReport, len(recs))
	for i := range recs {
		out[i] = recs[i].ToModel()
	}
	return out, nil
}

// Delete removes a report and its changes.
func (r *GormReportRepository) Delete(ctx context.Context, id string) error {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", id).Delete(&ChangeRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&ComparisonRecord{})
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeDatabaseError, err, "failed to delete report %s", id)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("report not found: %s", id))
	}
	return nil
}
