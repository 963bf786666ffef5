package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/cftracker/internal/models"
	"github.com/vytor/cftracker/internal/repository"
	"github.com/vytor/cftracker/internal/repository/sqlite"
	"github.com/vytor/cftracker/internal/testutil"
)

var contestDay = time.Date(2026, 9, 1, 14, 35, 0, 0, time.UTC)

func sampleUpdate(syncedAt time.Time) models.SyncUpdate {
	return models.SyncUpdate{
		Profile: models.ProfileUpdate{CurrentRating: 1650, MaxRating: 1720, Rank: "expert", MaxRank: "expert"},
		RatingChanges: []models.RatingChange{
			{ContestID: 2001, ContestName: "Round 2001", Rank: 812, OldRating: 1500, NewRating: 1720, ChangedAt: contestDay},
			{ContestID: 2002, ContestName: "Round 2002", Rank: 2210, OldRating: 1720, NewRating: 1650, ChangedAt: contestDay.Add(7 * 24 * time.Hour)},
		},
		Contests: []models.Contest{
			{ContestID: 2001, ContestName: "Round 2001", Rank: 812, OldRating: 1500, NewRating: 1720, RatingChange: 220, ProblemsSolved: 3, ProblemsUnsolved: 1, ParticipatedAt: contestDay},
			{ContestID: 2002, ContestName: "Round 2002", Rank: 2210, OldRating: 1720, NewRating: 1650, RatingChange: -70, ProblemsSolved: 1, ProblemsUnsolved: 2, ParticipatedAt: contestDay.Add(7 * 24 * time.Hour)},
		},
		Submissions: []models.Submission{
			{SubmissionID: 900001, ContestID: 2001, ProblemIndex: "A", ProblemName: "Watermelon", ProblemRating: 800, Tags: []string{"math", "brute force"}, Verdict: "OK", Language: "GNU C++17", SubmittedAt: contestDay},
			{SubmissionID: 900002, ContestID: 2001, ProblemIndex: "B", ProblemName: "Queue", ProblemRating: 1200, Tags: []string{"greedy"}, Verdict: "WRONG_ANSWER", Language: "GNU C++17", SubmittedAt: contestDay.Add(time.Minute)},
		},
		SyncedAt: syncedAt,
	}
}

// seedHistory stores one sync's worth of rows for a student.
func seedHistory(t *testing.T, db *sql.DB, studentID int64, handle string) {
	t.Helper()
	_, err := sqlite.NewSyncRepository(db).ApplySync(context.Background(), studentID, handle, sampleUpdate(time.Now()))
	require.NoError(t, err)
}

type SyncRepositorySuite struct {
	suite.Suite
	db        *sql.DB
	repo      repository.SyncRepository
	students  repository.StudentRepository
	studentID int64
}

func (s *SyncRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewSyncRepository(s.db)
	s.students = sqlite.NewStudentRepository(s.db)
	s.studentID = testutil.InsertStudent(s.T(), s.db, "tourist")
}

func (s *SyncRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *SyncRepositorySuite) TestApplySync_InsertsAndStamps() {
	ctx := context.Background()
	syncedAt := time.Date(2026, 10, 1, 2, 0, 0, 0, time.UTC)

	counts, err := s.repo.ApplySync(ctx, s.studentID, "tourist", sampleUpdate(syncedAt))
	s.Require().NoError(err)
	s.Assert().Equal(models.SyncCounts{Contests: 2, Submissions: 2, RatingChanges: 2}, counts)

	st, err := s.students.Get(ctx, s.studentID)
	s.Require().NoError(err)
	s.Assert().Equal(1650, st.CurrentRating)
	s.Assert().Equal(1720, st.MaxRating)
	s.Assert().Equal("expert", st.Rank)
	s.Assert().Equal(models.SyncStatusOK, st.LastSyncStatus)
	s.Require().NotNil(st.LastSyncedAt)
	s.Assert().True(st.LastSyncedAt.Equal(syncedAt))
}

func (s *SyncRepositorySuite) TestApplySync_SkipsExistingRows() {
	ctx := context.Background()
	_, err := s.repo.ApplySync(ctx, s.studentID, "tourist", sampleUpdate(time.Now()))
	s.Require().NoError(err)

	again := sampleUpdate(time.Now())
	again.Submissions = append(again.Submissions, models.Submission{
		SubmissionID: 900003, ContestID: 2002, ProblemIndex: "C", Verdict: "OK", SubmittedAt: contestDay.Add(8 * 24 * time.Hour),
	})

	counts, err := s.repo.ApplySync(ctx, s.studentID, "tourist", again)
	s.Require().NoError(err)
	s.Assert().Equal(models.SyncCounts{Submissions: 1}, counts)

	var total int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM submissions WHERE student_id = ?`, s.studentID).Scan(&total))
	s.Assert().Equal(3, total)
}

func (s *SyncRepositorySuite) TestApplySync_UnknownStudentRollsBack() {
	ctx := context.Background()

	_, err := s.repo.ApplySync(ctx, 4242, "tourist", models.SyncUpdate{SyncedAt: time.Now()})
	s.Assert().ErrorIs(err, repository.ErrStudentNotFound)
}

func (s *SyncRepositorySuite) TestApplySync_StaleHandleWritesNothing() {
	ctx := context.Background()
	_, err := s.db.Exec(`UPDATE students SET handle = 'tourist_new' WHERE id = ?`, s.studentID)
	s.Require().NoError(err)

	_, err = s.repo.ApplySync(ctx, s.studentID, "tourist", sampleUpdate(time.Now()))
	s.Require().ErrorIs(err, repository.ErrHandleChanged)

	for _, table := range []string{"contests", "submissions", "rating_changes"} {
		var n int
		s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE student_id = ?`, s.studentID).Scan(&n))
		s.Assert().Zero(n, table)
	}
	st, err := s.students.Get(ctx, s.studentID)
	s.Require().NoError(err)
	s.Assert().Equal(models.SyncStatusNever, st.LastSyncStatus)
	s.Assert().Nil(st.LastSyncedAt)
	s.Assert().Zero(st.CurrentRating)
}

func (s *SyncRepositorySuite) TestApplySync_HandleMatchIgnoresCase() {
	_, err := s.repo.ApplySync(context.Background(), s.studentID, "Tourist", sampleUpdate(time.Now()))
	s.Assert().NoError(err)
}

func (s *SyncRepositorySuite) TestExistingKeys() {
	ctx := context.Background()
	_, err := s.repo.ApplySync(ctx, s.studentID, "tourist", sampleUpdate(time.Now()))
	s.Require().NoError(err)

	keys, err := s.repo.ExistingKeys(ctx, s.studentID)
	s.Require().NoError(err)
	s.Assert().Equal(map[int64]bool{900001: true, 900002: true}, keys.SubmissionIDs)
	s.Assert().Equal(map[int]bool{2001: true, 2002: true}, keys.ContestIDs)
	s.Assert().Equal(map[int]bool{2001: true, 2002: true}, keys.RatingContestIDs)

	other := testutil.InsertStudent(s.T(), s.db, "petr")
	otherKeys, err := s.repo.ExistingKeys(ctx, other)
	s.Require().NoError(err)
	s.Assert().Empty(otherKeys.SubmissionIDs, "keys are scoped per student")
}

func (s *SyncRepositorySuite) TestHistoryQueries() {
	ctx := context.Background()
	_, err := s.repo.ApplySync(ctx, s.studentID, "tourist", sampleUpdate(time.Now()))
	s.Require().NoError(err)

	contests, err := sqlite.NewContestRepository(s.db).ListByStudent(ctx, s.studentID, nil)
	s.Require().NoError(err)
	s.Require().Len(contests, 2)
	s.Assert().Equal(2002, contests[0].ContestID, "newest first")

	since := contestDay.Add(24 * time.Hour)
	recent, err := sqlite.NewContestRepository(s.db).ListByStudent(ctx, s.studentID, &since)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Assert().Equal(-70, recent[0].RatingChange)

	ratings, err := sqlite.NewRatingRepository(s.db).ListByStudent(ctx, s.studentID, nil)
	s.Require().NoError(err)
	s.Require().Len(ratings, 2)
	s.Assert().Equal(2001, ratings[0].ContestID, "rating history is chronological")

	subs, err := sqlite.NewSubmissionRepository(s.db).ListByStudent(ctx, s.studentID, nil, 1)
	s.Require().NoError(err)
	s.Require().Len(subs, 1)
	s.Assert().Equal(int64(900002), subs[0].SubmissionID)

	all, err := sqlite.NewSubmissionRepository(s.db).ListByStudent(ctx, s.studentID, nil, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Assert().Equal([]string{"math", "brute force"}, all[1].Tags)
}

func TestSyncRepositorySuite(t *testing.T) {
	suite.Run(t, new(SyncRepositorySuite))
}
