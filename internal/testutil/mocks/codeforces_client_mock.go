package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/cftracker/internal/codeforces"
)

// MockCodeforcesClient is a mock implementation of codeforces.ClientInterface
type MockCodeforcesClient struct {
	mock.Mock
}

func (m *MockCodeforcesClient) UserInfo(ctx context.Context, handle string) (*codeforces.User, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*codeforces.User), args.Error(1)
}

func (m *MockCodeforcesClient) UserRating(ctx context.Context, handle string) ([]codeforces.RatingChange, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]codeforces.RatingChange), args.Error(1)
}

func (m *MockCodeforcesClient) UserStatus(ctx context.Context, handle string, count int) ([]codeforces.Submission, error) {
	args := m.Called(ctx, handle, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]codeforces.Submission), args.Error(1)
}
