package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/perf-diff/internal/callgraph"
	"github.com/perf-diff/internal/flamegraph"
	"github.com/perf-diff/internal/statistics"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/model"
	"github.com/perf-diff/pkg/telemetry"
)

// AggregateRequest describes the aggregation of one or more profiles into
// a single grouped call graph.
type AggregateRequest struct {
	Name      string
	Inputs    []string
	GroupBy   string
	OutputDir string
}

// AggregateResult holds the outputs of an aggregation.
type AggregateResult struct {
	ID          string
	Provider    *callgraph.GraphProvider
	Graph       *callgraph.CallGraph
	FlameGraph  *flamegraph.FlameGraph
	Threads     *statistics.ThreadStatsResult
	TotalWeight int64
	Files       []string
	Artifacts   []string
	Summary     string
}

// Aggregate merges the inputs into one call graph grouped at the
// requested level and writes its views.
func (s *Service) Aggregate(ctx context.Context, req *AggregateRequest) (result *AggregateResult, err error) {
	if req == nil || len(req.Inputs) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "at least one input is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "service.Aggregate",
		attribute.String("name", req.Name),
		attribute.Int("inputs", len(req.Inputs)))
	defer func() { telemetry.EndSpan(span, err) }()

	timer := s.timer("aggregate " + req.Name)
	result = &AggregateResult{ID: s.newID()}

	var results []*model.ParseResult
	err = timer.Time(StageParse, func() error {
		var err error
		if results, err = s.loadInputs(ctx, req.Inputs); err != nil {
			return err
		}
		return checkKinds(results...)
	})
	if err != nil {
		return nil, err
	}

	err = timer.Time(StageBuild, func() error {
		builder, err := s.newGraphBuilder(req.GroupBy)
		if err != nil {
			return err
		}
		result.Graph, err = builder.build(ctx, results...)
		return err
	})
	if err != nil {
		return nil, err
	}
	result.Provider = newProvider(profileTitle(results...), result.Graph, results...)
	result.TotalWeight = result.Graph.TotalWeight()
	result.Threads = s.threadStats(results...)

	w, err := s.newArtifactWriter(req.OutputDir, result.ID)
	if err != nil {
		return nil, err
	}
	err = timer.Time(StageWrite, func() error {
		fg, err := s.writeViews(ctx, w, result.Provider)
		result.FlameGraph = fg
		return err
	})
	if err != nil {
		return nil, err
	}
	result.Files = w.files

	err = timer.Time(StagePublish, func() error {
		urls, err := s.publish(ctx, result.ID, w.files)
		result.Artifacts = urls
		return err
	})
	if err != nil {
		return nil, err
	}

	result.Summary = timer.Summary()
	s.logger.Info("Aggregated %d inputs into %d elements, total weight %d",
		len(req.Inputs), len(result.Graph.Elements()), result.TotalWeight)
	return result, nil
}
