package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

// MockPageGeometrySource is a mock implementation of port.PageGeometrySource.
type MockPageGeometrySource struct {
	mock.Mock
}

func (m *MockPageGeometrySource) Load(ctx context.Context, shellFileID uuid.UUID) ([]domain.PageGeometry, error) {
	args := m.Called(ctx, shellFileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PageGeometry), args.Error(1)
}
