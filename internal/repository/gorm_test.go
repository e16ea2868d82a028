package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/perf-diff/pkg/config"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewGormDB(&config.DatabaseConfig{Type: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func sampleReport(name string) *model.ComparisonReport {
	up := 0.5
	return &model.ComparisonReport{
		Name:         name,
		BaseInputs:   []string{"base.folded"},
		TargetInputs: []string{"a.folded", "b.folded"},
		GroupBy:      "Thread",
		WeightType:   "Samples",
		BaseWeight:   100,
		TargetWeight: 150,
		PairedGroups: 2,
		NodeCount:    12,
		NewNodes:     1,
		Changes: []*model.Change{
			{
				Element:      "java/main",
				Path:         []string{"main", "run", "work"},
				Symbol:       "work",
				Kind:         model.ChangeRegression,
				BaseWeight:   40,
				TargetWeight: 60,
				Difference:   &up,
				Formatted:    "+50%",
			},
			{
				Element:      "java/main",
				Path:         []string{"main", "helper"},
				Symbol:       "helper",
				Kind:         model.ChangeAdded,
				TargetWeight: 10,
				Formatted:    "NaN",
			},
		},
	}
}

func TestGormReportRepository_SaveAndGet(t *testing.T) {
	repo := NewGormReportRepository(setupTestDB(t))
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	report := sampleReport("nightly")
	require.NoError(t, repo.Save(ctx, report))
	require.NotEmpty(t, report.ID)
	assert.Len(t, report.ID, 36)
	assert.Equal(t, fixed, report.CreatedAt)

	got, err := repo.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Name, got.Name)
	assert.Equal(t, report.BaseInputs, got.BaseInputs)
	assert.Equal(t, report.TargetInputs, got.TargetInputs)
	assert.Equal(t, int64(150), got.TargetWeight)
	assert.Equal(t, 2, got.PairedGroups)
	assert.True(t, fixed.Equal(got.CreatedAt))
	assert.Nil(t, got.Artifacts)

	require.Len(t, got.Changes, 2)
	assert.Equal(t, "work", got.Changes[0].Symbol)
	assert.Equal(t, []string{"main", "run", "work"}, got.Changes[0].Path)
	require.NotNil(t, got.Changes[0].Difference)
	assert.Equal(t, 0.5, *got.Changes[0].Difference)
	assert.Equal(t, model.ChangeAdded, got.Changes[1].Kind)
	assert.Nil(t, got.Changes[1].Difference)
}

func TestGormReportRepository_Save_KeepsID(t *testing.T) {
	repo := NewGormReportRepository(setupTestDB(t))
	ctx := context.Background()

	report := sampleReport("x")
	report.ID = "fixed-id"
	report.Changes = nil
	require.NoError(t, repo.Save(ctx, report))
	assert.Equal(t, "fixed-id", report.ID)

	got, err := repo.Get(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Empty(t, got.Changes)

	// A second report with the same ID is rejected.
	err = repo.Save(ctx, sampleReport("x"))
	require.NoError(t, err)
	dup := sampleReport("y")
	dup.ID = "fixed-id"
	err = repo.Save(ctx, dup)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetErrorCode(err))
}

func TestGormReportRepository_Save_Nil(t *testing.T) {
	repo := NewGormReportRepository(setupTestDB(t))
	err := repo.Save(context.Background(), nil)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetErrorCode(err))
}

func TestGormReportRepository_GetNotFound(t *testing.T) {
	repo := NewGormReportRepository(setupTestDB(t))

	report, err := repo.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "report not found")
}

func TestGormReportRepository_List(t *testing.T) {
	repo := NewGormReportRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"nightly", "release", "nightly"} {
		r := sampleReport(name)
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Save(ctx, r))
	}

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "nightly", all[0].Name)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.Empty(t, all[0].Changes, "summaries do not load changes")

	nightly, err := repo.List(ctx, ListFilter{Name: "nightly"})
	require.NoError(t, err)
	assert.Len(t, nightly, 2)

	recent, err := repo.List(ctx, ListFilter{Since: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := repo.List(ctx, ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormReportRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	report := sampleReport("nightly")
	require.NoError(t, repo.Save(ctx, report))

	require.NoError(t, repo.Delete(ctx, report.ID))

	var changes int64
	require.NoError(t, db.Model(&ChangeRecord{}).Where("report_id = ?", report.ID).Count(&changes).Error)
	assert.Zero(t, changes)

	err := repo.Delete(ctx, report.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

// newMockDB backs GORM with sqlmock through the MySQL dialect to reach
// driver failures that sqlite cannot produce.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestGormReportRepository_SaveInsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `comparison_reports`").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), sampleReport("nightly"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormReportRepository_SaveChangesFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `comparison_reports`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `comparison_changes`").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), sampleReport("nightly"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormReportRepository_GetQueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormReportRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `comparison_reports`").WillReturnError(errors.New("timeout"))

	_, err := repo.Get(context.Background(), "id-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormReportRepository_ListQueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormReportRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `comparison_reports`").WillReturnError(errors.New("timeout"))

	_, err := repo.List(context.Background(), ListFilter{Name: "nightly"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormReportRepository_DeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `comparison_changes`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM `comparison_reports`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "id-1")
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStringList(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = StringList{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)

	var l StringList
	require.NoError(t, l.Scan([]byte(`["x"]`)))
	assert.Equal(t, StringList{"x"}, l)
	require.NoError(t, l.Scan("[]"))
	assert.Nil(t, l)
	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)
	assert.Error(t, l.Scan(42))
}
