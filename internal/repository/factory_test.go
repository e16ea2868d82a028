package repository

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/perf-diff/pkg/config"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/utils"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{"explicit", config.DatabaseConfig{Type: "mysql", DSN: "custom"}, "custom"},
		{"sqlite default", config.DatabaseConfig{Type: "sqlite"}, ":memory:"},
		{"sqlite file", config.DatabaseConfig{Type: "sqlite", Path: "/tmp/r.db"}, "/tmp/r.db"},
		{"postgres", config.DatabaseConfig{
			Type: "postgres", Host: "db", User: "u", Password: "p", Database: "perf",
		}, "host=db port=5432 user=u password=p dbname=perf sslmode=disable"},
		{"mysql", config.DatabaseConfig{
			Type: "mysql", Host: "db", Port: 3307, User: "u", Password: "p", Database: "perf",
		}, "u:p@tcp(db:3307)/perf?parseTime=true&loc=UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DSN(&tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DSN(&config.DatabaseConfig{Type: "oracle"})
	assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))
}

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.db")
	var buf bytes.Buffer
	log := utils.NewDefaultLogger(utils.LevelInfo, &buf)

	repos, err := Open(&config.DatabaseConfig{Type: "sqlite", Path: path, LogLevel: "info"},
		WithTracing(true), WithLogger(log))
	require.NoError(t, err)
	require.NotNil(t, repos.Reports)
	assert.NotNil(t, repos.DB())
	assert.NotNil(t, repos.GormDB())

	ctx := context.Background()
	require.NoError(t, repos.HealthCheck(ctx))

	report := sampleReport("nightly")
	require.NoError(t, repos.Reports.Save(ctx, report))
	assert.NotEmpty(t, buf.String(), "queries are logged at info level")

	require.NoError(t, repos.Close())

	// The data survives reopening the file.
	repos, err = Open(&config.DatabaseConfig{Type: "sqlite", Path: path})
	require.NoError(t, err)
	defer repos.Close()

	got, err := repos.Reports.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Len(t, got.Changes, 2)
}

func TestNewGormDB_UnsupportedType(t *testing.T) {
	_, err := NewGormDB(&config.DatabaseConfig{Type: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestRepositories_CloseWithoutDB(t *testing.T) {
	repos := &Repositories{}
	assert.NoError(t, repos.Close())
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Error, gormLogLevel("error"))
	assert.Equal(t, logger.Warn, gormLogLevel("WARN"))
	assert.Equal(t, logger.Info, gormLogLevel("debug"))
	assert.Equal(t, logger.Silent, gormLogLevel(""))
}
