package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/cftracker/internal/models"
)

// MockContestRepository is a mock implementation of repository.ContestRepository
type MockContestRepository struct {
	mock.Mock
}

func (m *MockContestRepository) ListByStudent(ctx context.Context, studentID int64, since *time.Time) ([]models.Contest, error) {
	args := m.Called(ctx, studentID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Contest), args.Error(1)
}

// MockRatingRepository is a mock implementation of repository.RatingRepository
type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) ListByStudent(ctx context.Context, studentID int64, since *time.Time) ([]models.RatingChange, error) {
	args := m.Called(ctx, studentID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RatingChange), args.Error(1)
}

// MockSubmissionRepository is a mock implementation of repository.SubmissionRepository
type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) ListByStudent(ctx context.Context, studentID int64, since *time.Time, limit int) ([]models.Submission, error) {
	args := m.Called(ctx, studentID, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Submission), args.Error(1)
}
