package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/perf-diff/internal/repository"
	"github.com/perf-diff/pkg/model"
)

// MockReportRepository is a mock implementation of repository.ReportRepository.
type MockReportRepository struct {
	mock.Mock
}

// Save mocks the Save method.
func (m *MockReportRepository) Save(ctx context.Context, report *model.ComparisonReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

// Get mocks the Get method.
func (m *MockReportRepository) Get(ctx context.Context, id string) (*model.ComparisonReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ComparisonReport), args.Error(1)
}

// List mocks the List method.
func (m *MockReportRepository) List(ctx context.Context, filter repository.ListFilter) ([]*model.ComparisonReport, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ComparisonReport), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockReportRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ExpectSave sets up an expectation for any Save call.
func (m *MockReportRepository) ExpectSave(err error) *mock.Call {
	return m.On("Save", mock.Anything, mock.AnythingOfType("*model.ComparisonReport")).Return(err)
}

var _ repository.ReportRepository = (*MockReportRepository)(nil)
