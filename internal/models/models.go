package models

import (
	"strconv"
	"time"
)

// ProfileUpdate carries the aggregate fields refreshed from the platform.
type ProfileUpdate struct {
	CurrentRating int
	MaxRating     int
	Rank          string
	MaxRank       string
	Avatar        string
}

// SyncUpdate is everything one successful sync writes for a student.
type SyncUpdate struct {
	Profile       ProfileUpdate
	Contests      []Contest
	Submissions   []Submission
	RatingChanges []RatingChange
	SyncedAt      time.Time
}

// ExistingKeys are the remote identifiers already stored for a student.
type ExistingKeys struct {
	SubmissionIDs    map[int64]bool
	ContestIDs       map[int]bool
	RatingContestIDs map[int]bool
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives page counts from a total and page size.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

func itoa(i int) string { return strconv.Itoa(i) }

// SyncCounts reports how many rows one sync inserted.
type SyncCounts struct {
	Contests      int `json:"contests"`
	Submissions   int `json:"submissions"`
	RatingChanges int `json:"rating_changes"`
}
