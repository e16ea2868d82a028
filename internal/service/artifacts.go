package service

import (
	"context"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"

	"github.com/perf-diff/internal/callgraph"
	"github.com/perf-diff/internal/flamegraph"
	"github.com/perf-diff/internal/storage"
	"github.com/perf-diff/pkg/compression"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/model"
	"github.com/perf-diff/pkg/telemetry"
	"github.com/perf-diff/pkg/writer"
)

// Artifact file names. JSON files get the extension of the configured
// compression appended.
const (
	ReportFile     = "report.json"
	FlameGraphFile = "flamegraph.json"
	FoldedFile     = "stacks.folded"
	DiffFoldedFile = "diff.folded"
	TreeFile       = "tree.txt"
)

// artifactWriter writes the files of one run below dir.
type artifactWriter struct {
	dir         string
	compression compression.Type
	pretty      bool
	files       []string
}

func (s *Service) newArtifactWriter(outputDir, id string) (*artifactWriter, error) {
	if outputDir == "" {
		outputDir = s.config.Output.Dir
	}
	codec, err := compression.ParseType(s.config.Output.Compression)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "invalid output compression", err)
	}
	dir := filepath.Join(outputDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Wrapf(apperrors.CodeStorageError, err, "failed to create output directory %s", dir)
	}
	return &artifactWriter{dir: dir, compression: codec, pretty: s.config.Output.Pretty}, nil
}

func (w *artifactWriter) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *artifactWriter) done(path string, err error) error {
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeStorageError, err, "failed to write %s", path)
	}
	w.files = append(w.files, path)
	return nil
}

func jsonWriter[T any](codec compression.Type, pretty bool) *writer.JSONWriter[T] {
	jw := writer.NewJSONWriter[T]()
	if pretty {
		jw = writer.NewPrettyJSONWriter[T]()
	}
	jw.Compression = codec
	jw.Level = compression.LevelDefault
	return jw
}

func (w *artifactWriter) report(r *model.ComparisonReport) error {
	path := w.path(ReportFile + w.compression.Extension())
	_, err := jsonWriter[*model.ComparisonReport](w.compression, w.pretty).WriteToFileWithStats(r, path)
	return w.done(path, err)
}

func (w *artifactWriter) flameGraph(fg *flamegraph.FlameGraph) error {
	path := w.path(FlameGraphFile + w.compression.Extension())
	_, err := jsonWriter[*flamegraph.FlameGraph](w.compression, w.pretty).WriteToFileWithStats(fg, path)
	return w.done(path, err)
}

func (w *artifactWriter) folded(fg *flamegraph.FlameGraph) error {
	if fg.Differential {
		path := w.path(DiffFoldedFile)
		return w.done(path, flamegraph.NewDiffFoldedWriter().WriteToFile(fg, path))
	}
	path := w.path(FoldedFile)
	return w.done(path, flamegraph.NewFoldedWriter().WriteToFile(fg, path))
}

func (w *artifactWriter) tree(p callgraph.Provider) error {
	path := w.path(TreeFile)
	return w.done(path, callgraph.NewTextWriter().WriteToFile(p, path))
}

// writeViews writes the configured views of p: flame graph JSON, folded
// stacks and the text tree.
func (s *Service) writeViews(ctx context.Context, w *artifactWriter, p callgraph.Provider) (*flamegraph.FlameGraph, error) {
	out := s.config.Output
	var fg *flamegraph.FlameGraph
	if out.FlameGraph || out.Folded {
		gen := flamegraph.NewGenerator(&flamegraph.GeneratorOptions{
			SplitModules:   true,
			Palette:        s.palette(),
			FlameThreshold: s.config.Differential.FlameThreshold,
		})
		var err error
		if fg, err = gen.Generate(ctx, p); err != nil {
			return nil, err
		}
	}
	if out.FlameGraph {
		if err := w.flameGraph(fg); err != nil {
			return nil, err
		}
	}
	if out.Folded {
		if err := w.folded(fg); err != nil {
			return nil, err
		}
	}
	if out.Text {
		if err := w.tree(p); err != nil {
			return nil, err
		}
	}
	return fg, nil
}

// publish uploads files below the report id and returns their URLs. It
// is a no-op without storage.
func (s *Service) publish(ctx context.Context, id string, files []string) (urls []string, err error) {
	if s.storage == nil || len(files) == 0 {
		return nil, nil
	}
	ctx, span := telemetry.StartSpan(ctx, "service.publish", attribute.Int("files", len(files)))
	defer func() { telemetry.EndSpan(span, err) }()

	return storage.NewPublisher(s.storage, s.config.Storage.Prefix).Publish(ctx, id, files)
}
