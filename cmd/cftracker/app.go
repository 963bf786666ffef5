package main

import (
	"github.com/vytor/cftracker/internal/codeforces"
	"github.com/vytor/cftracker/internal/config"
	"github.com/vytor/cftracker/internal/db"
	"github.com/vytor/cftracker/internal/repository"
	"github.com/vytor/cftracker/internal/repository/sqlite"
	cfsync "github.com/vytor/cftracker/internal/sync"
)

type repositories struct {
	students    repository.StudentRepository
	sync        repository.SyncRepository
	contests    repository.ContestRepository
	ratings     repository.RatingRepository
	submissions repository.SubmissionRepository
}

func newRepositories(database *db.DB) repositories {
	return repositories{
		students:    sqlite.NewStudentRepository(database.DB),
		sync:        sqlite.NewSyncRepository(database.DB),
		contests:    sqlite.NewContestRepository(database.DB),
		ratings:     sqlite.NewRatingRepository(database.DB),
		submissions: sqlite.NewSubmissionRepository(database.DB),
	}
}

func newEngine(cfg config.Config, repos repositories) *cfsync.Engine {
	client := codeforces.New(codeforces.Options{
		BaseURL:      cfg.CFBaseURL,
		CallInterval: cfg.CFCallInterval,
		Timeout:      cfg.CFTimeout,
	})
	return cfsync.NewEngine(repos.students, repos.sync, client, cfsync.Options{
		UserDelay:       cfg.CFUserDelay,
		SubmissionLimit: cfg.CFSubmissionLimit,
	})
}
