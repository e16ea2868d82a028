package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/perf-diff/internal/callgraph"
	"github.com/perf-diff/internal/diff"
	"github.com/perf-diff/internal/flamegraph"
	"github.com/perf-diff/internal/statistics"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/model"
	"github.com/perf-diff/pkg/telemetry"
	"github.com/perf-diff/pkg/utils"
)

// Pipeline stage names.
const (
	StageParse   = "parse"
	StageBuild   = "build"
	StageStats   = "statistics"
	StageWrite   = "write"
	StagePublish = "publish"
	StageSave    = "save"
)

// CompareRequest describes one comparison of target profiles against a
// baseline.
type CompareRequest struct {
	Name string
	// Base and Target list local paths or "store://" keys.
	Base   []string
	Target []string
	// GroupBy and Statistic override the configured values when set.
	GroupBy   string
	Statistic string
	// OutputDir overrides the configured output directory.
	OutputDir string
}

// CompareResult holds everything a comparison produced.
type CompareResult struct {
	Report        *model.ComparisonReport
	Provider      *diff.Provider
	FlameGraph    *flamegraph.FlameGraph
	BaseThreads   *statistics.ThreadStatsResult
	TargetThreads *statistics.ThreadStatsResult
	Files         []string
	Summary       string
}

// Compare diffs the target profiles against the base profiles.
//
// Without a statistic, the profiles of each side are merged and their
// elements paired by name, so every thread (or process) gets its own
// differential tree. With a statistic, each side is merged into a single
// element and compared on that statistic.
func (s *Service) Compare(ctx context.Context, req *CompareRequest) (result *CompareResult, err error) {
	if req == nil || len(req.Base) == 0 || len(req.Target) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "base and target inputs are required")
	}
	statistic := req.Statistic
	if statistic == "" {
		statistic = s.config.Analysis.Statistic
	}
	groupBy := req.GroupBy
	if groupBy == "" {
		groupBy = s.config.Analysis.GroupBy
	}

	ctx, span := telemetry.StartSpan(ctx, "service.Compare",
		attribute.String("name", req.Name),
		attribute.Int("base_inputs", len(req.Base)),
		attribute.Int("target_inputs", len(req.Target)),
		attribute.String("group_by", groupBy))
	defer func() { telemetry.EndSpan(span, err) }()

	timer := s.timer("compare " + req.Name)
	report := &model.ComparisonReport{
		ID:           s.newID(),
		Name:         req.Name,
		BaseInputs:   req.Base,
		TargetInputs: req.Target,
		GroupBy:      groupBy,
		Statistic:    statistic,
		CreatedAt:    s.now(),
	}
	s.logger.Info("Comparing %v against %v (report %s)", req.Target, req.Base, report.ID)

	var base, target []*model.ParseResult
	err = timer.Time(StageParse, func() error {
		var err error
		if base, err = s.loadInputs(ctx, req.Base); err != nil {
			return err
		}
		if target, err = s.loadInputs(ctx, req.Target); err != nil {
			return err
		}
		return checkKinds(append(append([]*model.ParseResult{}, base...), target...)...)
	})
	if err != nil {
		return nil, err
	}

	var provider *diff.Provider
	err = timer.Time(StageBuild, func() error {
		var err error
		provider, err = s.diffProfiles(ctx, groupBy, statistic, base, target, report)
		return err
	})
	if err != nil {
		return nil, err
	}

	var changes *statistics.ChangesResult
	timer.Time(StageStats, func() error {
		changes = statistics.NewChangesCalculator(
			statistics.WithTopN(s.config.Analysis.TopN),
			statistics.WithMinChange(s.config.Differential.MinChange),
		).Calculate(provider)
		return nil
	})
	report.WeightType = provider.WeightType().Title
	report.NodeCount = changes.NodeCount
	report.NewNodes = changes.NewNodes
	report.Changes = changes.Changes

	result = &CompareResult{
		Report:        report,
		Provider:      provider,
		BaseThreads:   s.threadStats(base...),
		TargetThreads: s.threadStats(target...),
	}
	if err := s.finish(ctx, timer, req.OutputDir, provider, result); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("changes", len(report.Changes)))
	return result, nil
}

// diffProfiles builds the call graphs of both sides and their
// differential provider, and fills the weight totals of report.
func (s *Service) diffProfiles(ctx context.Context, groupBy, statistic string, base, target []*model.ParseResult, report *model.ComparisonReport) (*diff.Provider, error) {
	builder, err := s.newGraphBuilder(groupBy)
	if err != nil {
		return nil, err
	}

	if statistic == "" {
		first, err := builder.build(ctx, base...)
		if err != nil {
			return nil, err
		}
		second, err := builder.build(ctx, target...)
		if err != nil {
			return nil, err
		}
		report.BaseWeight = first.TotalWeight()
		report.TargetWeight = second.TotalWeight()

		p := diff.DiffTreeSets(newProvider(profileTitle(target...), second, target...), first, second)
		if p == nil {
			return nil, apperrors.New(apperrors.CodeNoPairing, fmt.Sprintf(
				"no %s of the target matches one of the baseline", groupBy))
		}
		report.PairedGroups = len(p.Trees().Pairs())
		return p, nil
	}

	firsts, err := s.buildEach(ctx, builder, base)
	if err != nil {
		return nil, err
	}
	seconds, err := s.buildEach(ctx, builder, target)
	if err != nil {
		return nil, err
	}
	for _, g := range firsts {
		report.BaseWeight += g.(*callgraph.CallGraph).TotalWeight()
	}
	for _, g := range seconds {
		report.TargetWeight += g.(*callgraph.CallGraph).TotalWeight()
	}

	merged := callgraph.Merge(diff.MergeName, seconds...)
	p := diff.DiffGraphs(newProvider(profileTitle(target...), merged, target...), firsts, seconds, statistic)
	if p == nil {
		return nil, apperrors.New(apperrors.CodeEmptyData, "both sides are empty")
	}
	report.PairedGroups = len(p.Trees().Pairs())
	return p, nil
}

func (s *Service) buildEach(ctx context.Context, b *graphBuilder, results []*model.ParseResult) ([]callgraph.TreeSet, error) {
	out := make([]callgraph.TreeSet, 0, len(results))
	for _, r := range results {
		g, err := b.build(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Service) threadStats(results ...*model.ParseResult) *statistics.ThreadStatsResult {
	return statistics.NewThreadStatsCalculator(
		statistics.WithMaxThreads(s.config.Analysis.TopN),
		statistics.WithSwapper(s.config.Analysis.IncludeSwapper),
	).Calculate(results...)
}

func (s *Service) palette() *diff.Palette {
	return diff.NewPalette(s.config.Differential.MinHeat, s.config.Differential.MaxHeat, s.logger)
}

// finish writes the artifacts of a comparison, publishes them and saves
// the report. The report file is written last so it lists every other
// artifact.
func (s *Service) finish(ctx context.Context, timer *utils.StageTimer, outputDir string, p *diff.Provider, result *CompareResult) error {
	report := result.Report
	w, err := s.newArtifactWriter(outputDir, report.ID)
	if err != nil {
		return err
	}

	err = timer.Time(StageWrite, func() error {
		fg, err := s.writeViews(ctx, w, p)
		result.FlameGraph = fg
		return err
	})
	if err != nil {
		return err
	}

	views := append([]string(nil), w.files...)
	err = timer.Time(StagePublish, func() error {
		urls, err := s.publish(ctx, report.ID, views)
		report.Artifacts = urls
		return err
	})
	if err != nil {
		return err
	}

	report.DurationNanos = int64(timer.Total())
	if err := w.report(report); err != nil {
		return err
	}
	urls, err := s.publish(ctx, report.ID, w.files[len(views):])
	if err != nil {
		return err
	}
	report.Artifacts = append(report.Artifacts, urls...)

	if s.reports != nil {
		err = timer.Time(StageSave, func() error {
			return s.reports.Save(ctx, report)
		})
		if err != nil {
			return err
		}
	}

	result.Files = w.files
	result.Summary = timer.Summary()
	s.logger.Info("Report %s: %d changes, %d paired groups, weight %d -> %d",
		report.ID, len(report.Changes), report.PairedGroups, report.BaseWeight, report.TargetWeight)
	return nil
}
