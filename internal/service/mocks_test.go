package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
)

type MockNumberBackend struct {
	mock.Mock
}

func (m *MockNumberBackend) ListNumbers(ctx context.Context) ([]domain.NumberMapping, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.NumberMapping), args.Error(1)
}

func (m *MockNumberBackend) AddNumber(ctx context.Context, in domain.AddNumberInput) (*domain.NumberMapping, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NumberMapping), args.Error(1)
}

func (m *MockNumberBackend) UpdateText(ctx context.Context, id int64, textContent string) (*domain.NumberMapping, error) {
	args := m.Called(ctx, id, textContent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NumberMapping), args.Error(1)
}

func (m *MockNumberBackend) UpdateAudio(ctx context.Context, id int64, audio *domain.AudioFile) (*domain.NumberMapping, error) {
	args := m.Called(ctx, id, audio)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NumberMapping), args.Error(1)
}

func (m *MockNumberBackend) DeleteNumber(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNumberBackend) ConfigureWebhook(ctx context.Context, phoneNumber string) error {
	return m.Called(ctx, phoneNumber).Error(0)
}

type MockBlastBackend struct {
	mock.Mock
}

func (m *MockBlastBackend) ListCallLogs(ctx context.Context) ([]domain.CallLogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CallLogEntry), args.Error(1)
}

func (m *MockBlastBackend) SendBlast(ctx context.Context, message string, phoneNumbers []string) (*domain.SendBlastResult, error) {
	args := m.Called(ctx, message, phoneNumbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SendBlastResult), args.Error(1)
}

type MockCostBackend struct {
	mock.Mock
}

func (m *MockCostBackend) GetCostBreakdown(ctx context.Context, req domain.CostBreakdownRequest) (*domain.CostBreakdown, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CostBreakdown), args.Error(1)
}

func (m *MockCostBackend) UpdateBudget(ctx context.Context, totalBudget float64) (*domain.BudgetUpdate, error) {
	args := m.Called(ctx, totalBudget)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BudgetUpdate), args.Error(1)
}

// memoryFilterStore is a FilterStore kept in memory
type memoryFilterStore struct {
	filters []domain.CustomFilter
	saves   int
	saveErr error
	loadErr error
}

func (s *memoryFilterStore) LoadFilters(ctx context.Context) ([]domain.CustomFilter, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]domain.CustomFilter{}, s.filters...), nil
}

func (s *memoryFilterStore) SaveFilters(ctx context.Context, filters []domain.CustomFilter) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.filters = append([]domain.CustomFilter{}, filters...)
	return nil
}
