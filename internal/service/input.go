package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/perf-diff/internal/parser"
	"github.com/perf-diff/internal/storage"
	"github.com/perf-diff/pkg/compression"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/model"
	"github.com/perf-diff/pkg/parallel"
	"github.com/perf-diff/pkg/telemetry"
)

// sniffSize is the number of leading bytes used for format detection.
const sniffSize = 512

// FormatAuto selects the parser from the file name and content.
const FormatAuto = "auto"

// loadInputs parses every input concurrently and returns the results in
// input order.
func (s *Service) loadInputs(ctx context.Context, inputs []string) ([]*model.ParseResult, error) {
	if len(inputs) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "no input given")
	}
	pool := parallel.DefaultPoolConfig().WithWorkers(s.config.Analysis.Workers)
	return parallel.Map(ctx, pool, inputs, s.parseInput)
}

func (s *Service) parseInput(ctx context.Context, input string) (result *model.ParseResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.parse", attribute.String("input", input))
	defer func() { telemetry.EndSpan(span, err) }()

	rc, err := s.open(ctx, input)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r, codec, err := compression.NewReader(rc)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.CodeParseError, err, "failed to decompress %s", input)
	}
	defer r.Close()

	br := bufio.NewReader(r)
	head, _ := br.Peek(sniffSize)

	format := s.config.Analysis.Format
	if format == "" || strings.EqualFold(format, FormatAuto) {
		format = parser.Detect(strings.TrimSuffix(input, codec.Extension()), head)
	}
	p, err := s.registry.Get(format)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Parsing %s as %s with %s", input, format, p.Name())
	result, err = p.Parse(ctx, br)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.GetErrorCode(err), err, "failed to parse %s", input)
	}
	if result == nil || result.Empty() {
		return nil, apperrors.New(apperrors.CodeEmptyData, fmt.Sprintf("no samples in %s", input))
	}
	span.SetAttributes(attribute.String("format", format), attribute.Int64("total", result.TotalSamples))
	return result, nil
}

// open opens a local file or, for "store://" inputs, an object of the
// configured storage.
func (s *Service) open(ctx context.Context, input string) (io.ReadCloser, error) {
	if storage.IsRemote(input) {
		return storage.Open(ctx, s.storage, input)
	}
	f, err := os.Open(filepath.Clean(input))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrapf(apperrors.CodeNotFound, err, "input %s not found", input)
		}
		return nil, apperrors.Wrapf(apperrors.CodeInvalidInput, err, "failed to open %s", input)
	}
	return f, nil
}
