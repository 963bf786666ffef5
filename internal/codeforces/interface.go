package codeforces

import "context"

// ClientInterface defines the Codeforces API operations the sync engine uses.
type ClientInterface interface {
	UserInfo(ctx context.Context, handle string) (*User, error)
	UserRating(ctx context.Context, handle string) ([]RatingChange, error)
	UserStatus(ctx context.Context, handle string, count int) ([]Submission, error)
}

var _ ClientInterface = (*Client)(nil)
