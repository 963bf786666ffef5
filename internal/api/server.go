package api

import (
	"context"
	"time"

	"github.com/vytor/cftracker/internal/services"
)

// Pinger reports whether the database answers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	StudentService  services.StudentService
	ProgressService services.ProgressService
	SyncService     services.SyncService
	DB              Pinger
	// RateLimit is the per-IP request budget per RateWindow on /api; 0 disables it.
	RateLimit   int
	RateWindow  time.Duration
	CORSOrigins []string
}
