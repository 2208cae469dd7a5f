package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
	"github.com/xavierjflanagan/Guardian-sub003/internal/service"
)

// MockManifestService is a mock implementation of service.ManifestService.
type MockManifestService struct {
	mock.Mock
}

func (m *MockManifestService) Build(ctx context.Context, input *service.BuildManifestInput) (*domain.Manifest, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Manifest), args.Error(1)
}

func (m *MockManifestService) GetEncounter(ctx context.Context, id uuid.UUID) (*domain.Encounter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Encounter), args.Error(1)
}

func (m *MockManifestService) ListEncounters(ctx context.Context, patientID, shellFileID uuid.UUID) ([]domain.Encounter, error) {
	args := m.Called(ctx, patientID, shellFileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Encounter), args.Error(1)
}
