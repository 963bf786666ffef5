package sync_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/cftracker/internal/codeforces"
	"github.com/vytor/cftracker/internal/models"
	cfsync "github.com/vytor/cftracker/internal/sync"
)

func sub(id int64, contest int, index, verdict, participant string) codeforces.Submission {
	return codeforces.Submission{
		ID:                  id,
		ContestID:           contest,
		CreationTimeSeconds: 1700000000 + id,
		Problem:             codeforces.Problem{ContestID: contest, Index: index, Name: "P" + index, Rating: 1000},
		Author:              codeforces.Party{ParticipantType: participant},
		Verdict:             verdict,
	}
}

func TestBuildUpdate_ContestTallies(t *testing.T) {
	ratings := []codeforces.RatingChange{
		{ContestID: 10, ContestName: "Round 10", Rank: 100, OldRating: 1400, NewRating: 1480, RatingUpdateTimeSeconds: 1700003600},
	}
	subs := []codeforces.Submission{
		sub(1, 10, "A", "WRONG_ANSWER", "CONTESTANT"),
		sub(2, 10, "A", "OK", "CONTESTANT"),
		sub(3, 10, "B", "OK", "CONTESTANT"),
		sub(4, 10, "C", "TIME_LIMIT_EXCEEDED", "CONTESTANT"),
		sub(5, 10, "D", "OK", "PRACTICE"),
	}

	u := cfsync.BuildUpdate(&codeforces.User{Rating: 1480, MaxRating: 1500}, ratings, subs, nil, time.Now())

	require.Len(t, u.Contests, 1)
	c := u.Contests[0]
	assert.Equal(t, 2, c.ProblemsSolved)
	assert.Equal(t, 1, c.ProblemsUnsolved, "practice submissions after the contest do not count")
	assert.Equal(t, 80, c.RatingChange)
	assert.Equal(t, time.Unix(1700003600, 0).UTC(), c.ParticipatedAt)

	require.Len(t, u.RatingChanges, 1)
	assert.Len(t, u.Submissions, 5)
}

func TestBuildUpdate_SkipsStoredAndRepeatedRecords(t *testing.T) {
	ratings := []codeforces.RatingChange{
		{ContestID: 1, NewRating: 1200},
		{ContestID: 2, OldRating: 1200, NewRating: 1300},
		{ContestID: 2, OldRating: 1200, NewRating: 1300},
	}
	subs := []codeforces.Submission{
		sub(100, 1, "A", "OK", "CONTESTANT"),
		sub(101, 2, "A", "OK", "CONTESTANT"),
		sub(101, 2, "A", "OK", "CONTESTANT"),
	}
	keys := &models.ExistingKeys{
		SubmissionIDs:    map[int64]bool{100: true},
		ContestIDs:       map[int]bool{1: true},
		RatingContestIDs: map[int]bool{1: true},
	}

	u := cfsync.BuildUpdate(&codeforces.User{}, ratings, subs, keys, time.Now())

	require.Len(t, u.RatingChanges, 1)
	assert.Equal(t, 2, u.RatingChanges[0].ContestID)
	require.Len(t, u.Contests, 1)
	assert.Equal(t, 2, u.Contests[0].ContestID)
	require.Len(t, u.Submissions, 1)
	assert.Equal(t, int64(101), u.Submissions[0].SubmissionID)
}

func TestBuildUpdate_Profile(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.FixedZone("X", 3*3600))

	u := cfsync.BuildUpdate(&codeforces.User{
		Rating:     1900,
		MaxRating:  1850,
		Rank:       "candidate master",
		MaxRank:    "expert",
		Avatar:     "https://userpic.codeforces.org/small.jpg",
		TitlePhoto: "https://userpic.codeforces.org/title.jpg",
	}, nil, nil, nil, now)

	assert.Equal(t, 1900, u.Profile.CurrentRating)
	assert.Equal(t, 1900, u.Profile.MaxRating, "max rating never trails the current rating")
	assert.Equal(t, "https://userpic.codeforces.org/title.jpg", u.Profile.Avatar)
	assert.Equal(t, time.UTC, u.SyncedAt.Location())
	assert.Empty(t, u.Contests)
	assert.Empty(t, u.Submissions)
	assert.NotNil(t, u.Submissions)
}

func TestBuildUpdate_UnratedUser(t *testing.T) {
	u := cfsync.BuildUpdate(&codeforces.User{Handle: "newbie"}, []codeforces.RatingChange{}, []codeforces.Submission{
		{ID: 7, Problem: codeforces.Problem{ContestID: 55, Index: "B", Name: "Gym"}, Verdict: "OK"},
	}, &models.ExistingKeys{}, time.Now())

	assert.Zero(t, u.Profile.CurrentRating)
	require.Len(t, u.Submissions, 1)
	assert.Equal(t, 55, u.Submissions[0].ContestID, "falls back to the problem's contest id")
	assert.Equal(t, []string{}, u.Submissions[0].Tags)
}
