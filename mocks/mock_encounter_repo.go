package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

// MockEncounterRepo is a mock implementation of port.EncounterRepository.
type MockEncounterRepo struct {
	mock.Mock
}

func (m *MockEncounterRepo) UpsertBatch(ctx context.Context, encounters []*domain.Encounter) error {
	args := m.Called(ctx, encounters)
	return args.Error(0)
}

func (m *MockEncounterRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Encounter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Encounter), args.Error(1)
}

func (m *MockEncounterRepo) ListByShellFile(ctx context.Context, patientID, shellFileID uuid.UUID) ([]domain.Encounter, error) {
	args := m.Called(ctx, patientID, shellFileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Encounter), args.Error(1)
}
