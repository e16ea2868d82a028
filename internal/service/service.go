// Package service ties parsing, call graph construction, grouping,
// differencing and the report sinks into the comparison pipeline.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/perf-diff/internal/parser"
	"github.com/perf-diff/internal/parser/chrome"
	"github.com/perf-diff/internal/parser/collapsed"
	"github.com/perf-diff/internal/parser/pprof"
	"github.com/perf-diff/internal/repository"
	"github.com/perf-diff/internal/storage"
	"github.com/perf-diff/pkg/config"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/utils"
)

// Service runs comparisons and aggregations with the configured sinks.
type Service struct {
	config   *config.Config
	logger   utils.Logger
	registry *parser.Registry
	storage  storage.Storage
	reports  repository.ReportRepository
	repos    *repository.Repositories
	clock    utils.Clock
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithRegistry replaces the default parser registry.
func WithRegistry(r *parser.Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithStorage sets the object storage used for remote inputs and
// published artifacts.
func WithStorage(store storage.Storage) Option {
	return func(s *Service) {
		s.storage = store
	}
}

// WithReportRepository sets the repository comparison reports are saved to.
func WithReportRepository(r repository.ReportRepository) Option {
	return func(s *Service) {
		s.reports = r
	}
}

// WithClock sets the clock used for stage timing and report timestamps.
func WithClock(c utils.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithIDGenerator sets the generator of report IDs.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// New creates a new Service instance.
func New(cfg *config.Config, logger utils.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.CodeConfigError, "config is required")
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	s := &Service{
		config: cfg,
		logger: logger,
		clock:  utils.NewRealClock(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = DefaultRegistry(cfg)
	}
	return s, nil
}

// DefaultRegistry registers every built-in parser configured from cfg.
func DefaultRegistry(cfg *config.Config) *parser.Registry {
	r := parser.NewRegistry()
	collapsed.Register(r, collapsed.WithIncludeSwapper(cfg.Analysis.IncludeSwapper))
	pprof.Register(r, pprof.Options{SampleType: cfg.Analysis.SampleType})
	chrome.Register(r)
	return r
}

// Initialize opens the storage and database sinks enabled in the
// configuration, unless they were injected.
func (s *Service) Initialize(ctx context.Context) error {
	if s.storage == nil && s.config.Storage.Enabled {
		s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)
		store, err := storage.NewStorage(&s.config.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		s.storage = store
	}

	if s.reports == nil && s.config.Database.Enabled {
		s.logger.Info("Connecting to database (%s)...", s.config.Database.Type)
		repos, err := repository.Open(&s.config.Database,
			repository.WithTracing(s.config.Telemetry.Enabled),
			repository.WithLogger(s.logger))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := repos.HealthCheck(ctx); err != nil {
			repos.Close()
			return fmt.Errorf("database health check failed: %w", err)
		}
		s.repos = repos
		s.reports = repos.Reports
	}
	return nil
}

// Close releases the database connection opened by Initialize.
func (s *Service) Close() error {
	if s.repos == nil {
		return nil
	}
	err := s.repos.Close()
	s.repos = nil
	s.reports = nil
	return err
}

// Reports returns the report repository, or nil when persistence is off.
func (s *Service) Reports() repository.ReportRepository {
	return s.reports
}

// HealthCheck checks the database connection opened by Initialize.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.repos != nil {
		if err := s.repos.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
	}
	return nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Service) timer(name string) *utils.StageTimer {
	return utils.NewStageTimer(name, utils.WithClock(s.clock), utils.WithLogger(s.logger))
}
