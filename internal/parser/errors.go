package parser

import (
	apperrors "github.com/perf-diff/pkg/errors"
)

var (
	// ErrInvalidFormat is returned when the input does not follow its format.
	ErrInvalidFormat = apperrors.New(apperrors.CodeParseError, "invalid input format")

	// ErrEmptyInput is returned when the input holds no data.
	ErrEmptyInput = apperrors.New(apperrors.CodeEmptyData, "empty input")
)

func unsupported(format string) error {
	return apperrors.Wrapf(apperrors.CodeUnsupportedFormat, nil, "no parser for format %q", format)
}
