// Package mock provides testify mocks of the service dependencies.
package mock

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/perf-diff/pkg/model"
)

// MockParser is a mock implementation of the parser.Parser interface.
type MockParser struct {
	mock.Mock
}

// Parse mocks the Parse method.
func (m *MockParser) Parse(ctx context.Context, reader io.Reader) (*model.ParseResult, error) {
	args := m.Called(ctx, reader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ParseResult), args.Error(1)
}

// SupportedFormats mocks the SupportedFormats method.
func (m *MockParser) SupportedFormats() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

// Name mocks the Name method.
func (m *MockParser) Name() string {
	args := m.Called()
	return args.String(0)
}

// NewMockParser creates a parser mock that answers SupportedFormats and
// Name for registration under formats.
func NewMockParser(name string, formats ...string) *MockParser {
	m := &MockParser{}
	m.On("SupportedFormats").Return(formats).Maybe()
	m.On("Name").Return(name).Maybe()
	return m
}

// ExpectParse sets up an expectation for Parse.
func (m *MockParser) ExpectParse(result *model.ParseResult, err error) *mock.Call {
	return m.On("Parse", mock.Anything, mock.Anything).Return(result, err)
}
