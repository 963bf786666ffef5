package models

import "time"

type SyncStatus string

const (
	SyncStatusNever  SyncStatus = "never"
	SyncStatusOK     SyncStatus = "ok"
	SyncStatusFailed SyncStatus = "failed"
)

type Student struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone,omitempty"`
	Handle         string     `json:"handle"`
	CurrentRating  int        `json:"current_rating"`
	MaxRating      int        `json:"max_rating"`
	Rank           string     `json:"rank,omitempty"`
	MaxRank        string     `json:"max_rank,omitempty"`
	Avatar         string     `json:"avatar,omitempty"`
	SyncEnabled    bool       `json:"sync_enabled"`
	LastSyncedAt   *time.Time `json:"last_synced_at"`
	LastSyncStatus SyncStatus `json:"last_sync_status"`
	LastSyncError  string     `json:"last_sync_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// StudentFilter drives listing. Zero values mean "no constraint".
type StudentFilter struct {
	Query       string
	SyncEnabled *bool
	Limit       int
	Offset      int
	OrderBy     string
	OrderDir    string
}

// StudentSortColumns are the columns a student list may be ordered by.
var StudentSortColumns = map[string]bool{
	"name":           true,
	"handle":         true,
	"current_rating": true,
	"max_rating":     true,
	"last_synced_at": true,
	"created_at":     true,
}
