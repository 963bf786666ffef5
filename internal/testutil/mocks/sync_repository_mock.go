package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/cftracker/internal/models"
)

// MockSyncRepository is a mock implementation of repository.SyncRepository
type MockSyncRepository struct {
	mock.Mock
}

func (m *MockSyncRepository) ExistingKeys(ctx context.Context, studentID int64) (*models.ExistingKeys, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExistingKeys), args.Error(1)
}

func (m *MockSyncRepository) ApplySync(ctx context.Context, studentID int64, handle string, update models.SyncUpdate) (models.SyncCounts, error) {
	args := m.Called(ctx, studentID, handle, update)
	return args.Get(0).(models.SyncCounts), args.Error(1)
}
