package services_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/cftracker/internal/models"
	"github.com/vytor/cftracker/internal/services"
	"github.com/vytor/cftracker/internal/testutil/mocks"
)

var now = time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)

func solvedSub(contest int, index string, rating int, at time.Time) models.Submission {
	return models.Submission{ContestID: contest, ProblemIndex: index, ProblemName: "P" + index, ProblemRating: rating, Verdict: "OK", SubmittedAt: at}
}

func TestComputeProblemStats(t *testing.T) {
	day1 := now.Add(-48 * time.Hour)
	day2 := now.Add(-24 * time.Hour)
	subs := []models.Submission{
		{ContestID: 1, ProblemIndex: "A", ProblemRating: 800, Verdict: "WRONG_ANSWER", SubmittedAt: day1},
		solvedSub(1, "A", 800, day1.Add(time.Minute)),
		solvedSub(1, "A", 800, day2),
		solvedSub(1, "C", 1450, day2.Add(time.Hour)),
		solvedSub(2, "B", 1499, day2.Add(2*time.Hour)),
		solvedSub(3, "D", 0, now),
	}

	stats := services.ComputeProblemStats(subs, 10, now)

	assert.Equal(t, 10, stats.Days)
	assert.Equal(t, 4, stats.TotalSolved, "repeat accepts count once")
	require.NotNil(t, stats.MostDifficult)
	assert.Equal(t, 1499, stats.MostDifficult.Rating)
	assert.Equal(t, "B", stats.MostDifficult.Index)
	assert.InDelta(t, 1249.67, stats.AverageRating, 0.001)
	assert.InDelta(t, 0.4, stats.AveragePerDay, 0.001)
	assert.Equal(t, []models.RatingBucket{{Rating: 800, Count: 1}, {Rating: 1400, Count: 2}}, stats.RatingBuckets)
	assert.Equal(t, []models.HeatmapDay{
		{Date: day1.Format("2006-01-02"), Count: 2},
		{Date: day2.Format("2006-01-02"), Count: 3},
		{Date: now.Format("2006-01-02"), Count: 1},
	}, stats.Heatmap)
}

func TestComputeProblemStats_Empty(t *testing.T) {
	stats := services.ComputeProblemStats(nil, 0, now)

	assert.Zero(t, stats.TotalSolved)
	assert.Nil(t, stats.MostDifficult)
	assert.Zero(t, stats.AveragePerDay)
	assert.NotNil(t, stats.RatingBuckets)
	assert.NotNil(t, stats.Heatmap)
}

func TestComputeProblemStats_AllTimeUsesFirstSubmission(t *testing.T) {
	subs := []models.Submission{solvedSub(1, "A", 900, now.Add(-3*24*time.Hour))}

	stats := services.ComputeProblemStats(subs, 0, now)
	assert.InDelta(t, 0.25, stats.AveragePerDay, 0.001)
}

func TestComputeProblemStats_ResolvedBeforeWindowIsNotCounted(t *testing.T) {
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-2 * 24 * time.Hour)
	subs := []models.Submission{
		solvedSub(1, "A", 1200, old),
		solvedSub(1, "A", 1200, recent),
		solvedSub(2, "B", 1000, recent.Add(time.Hour)),
	}

	stats := services.ComputeProblemStats(subs, 30, now)

	assert.Equal(t, 1, stats.TotalSolved)
	require.NotNil(t, stats.MostDifficult)
	assert.Equal(t, "B", stats.MostDifficult.Index)
	assert.Equal(t, []models.RatingBucket{{Rating: 1000, Count: 1}}, stats.RatingBuckets)
	assert.Equal(t, []models.HeatmapDay{{Date: recent.Format("2006-01-02"), Count: 2}}, stats.Heatmap)

	all := services.ComputeProblemStats(subs, 0, now)
	assert.Equal(t, 2, all.TotalSolved)
	assert.Len(t, all.Heatmap, 2)
	assert.InDelta(t, 0.05, all.AveragePerDay, 0.001)
}

func TestProgressService_ProblemStatsReadsFullHistory(t *testing.T) {
	students := new(mocks.MockStudentRepository)
	submissions := new(mocks.MockSubmissionRepository)
	svc := services.NewProgressService(students, nil, nil, submissions, clockwork.NewFakeClockAt(now))

	students.On("Get", mock.Anything, int64(1)).Return(&models.Student{ID: 1}, nil)
	submissions.On("ListByStudent", mock.Anything, int64(1), (*time.Time)(nil), 0).Return([]models.Submission{
		solvedSub(1, "A", 1200, now.Add(-40*24*time.Hour)),
		solvedSub(1, "A", 1200, now.Add(-time.Hour)),
	}, nil)

	stats, err := svc.ProblemStats(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalSolved)
	assert.Len(t, stats.Heatmap, 1)
	submissions.AssertExpectations(t)
}

func TestProgressService_DayWindow(t *testing.T) {
	students := new(mocks.MockStudentRepository)
	contests := new(mocks.MockContestRepository)
	ratings := new(mocks.MockRatingRepository)
	submissions := new(mocks.MockSubmissionRepository)
	svc := services.NewProgressService(students, contests, ratings, submissions, clockwork.NewFakeClockAt(now))

	students.On("Get", mock.Anything, int64(1)).Return(&models.Student{ID: 1}, nil)
	cutoff := now.Add(-30 * 24 * time.Hour)
	contests.On("ListByStudent", mock.Anything, int64(1), &cutoff).Return([]models.Contest{{ContestID: 9}}, nil)
	ratings.On("ListByStudent", mock.Anything, int64(1), (*time.Time)(nil)).Return([]models.RatingChange{{ContestID: 9}}, nil)
	submissions.On("ListByStudent", mock.Anything, int64(1), (*time.Time)(nil), 20).Return([]models.Submission{}, nil)

	got, err := svc.Contests(context.Background(), 1, 30)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	history, err := svc.RatingHistory(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	subs, err := svc.Submissions(context.Background(), 1, 0, 20)
	require.NoError(t, err)
	assert.Empty(t, subs)

	contests.AssertExpectations(t)
	ratings.AssertExpectations(t)
	submissions.AssertExpectations(t)
}

func TestProgressService_UnknownStudent(t *testing.T) {
	students := new(mocks.MockStudentRepository)
	submissions := new(mocks.MockSubmissionRepository)
	svc := services.NewProgressService(students, nil, nil, submissions, clockwork.NewFakeClockAt(now))
	students.On("Get", mock.Anything, int64(2)).Return(nil, nil)

	_, err := svc.ProblemStats(context.Background(), 2, 30)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	submissions.AssertNotCalled(t, "ListByStudent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
