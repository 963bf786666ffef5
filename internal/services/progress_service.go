package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vytor/cftracker/internal/errors"
	"github.com/vytor/cftracker/internal/logger"
	"github.com/vytor/cftracker/internal/models"
	"github.com/vytor/cftracker/internal/repository"
)

const ratingBucketWidth = 100

// ProgressService reads a student's synced history. days <= 0 means the
// whole history.
type ProgressService interface {
	Contests(ctx context.Context, studentID int64, days int) ([]models.Contest, error)
	RatingHistory(ctx context.Context, studentID int64, days int) ([]models.RatingChange, error)
	Submissions(ctx context.Context, studentID int64, days, limit int) ([]models.Submission, error)
	ProblemStats(ctx context.Context, studentID int64, days int) (*models.ProblemStats, error)
}

type progressService struct {
	studentRepo    repository.StudentRepository
	contestRepo    repository.ContestRepository
	ratingRepo     repository.RatingRepository
	submissionRepo repository.SubmissionRepository
	clock          clockwork.Clock
}

// NewProgressService creates a new ProgressService
func NewProgressService(
	studentRepo repository.StudentRepository,
	contestRepo repository.ContestRepository,
	ratingRepo repository.RatingRepository,
	submissionRepo repository.SubmissionRepository,
	clock clockwork.Clock,
) ProgressService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &progressService{
		studentRepo:    studentRepo,
		contestRepo:    contestRepo,
		ratingRepo:     ratingRepo,
		submissionRepo: submissionRepo,
		clock:          clock,
	}
}

// since checks the student exists and turns a day window into a cutoff.
func (s *progressService) since(ctx context.Context, studentID int64, days int) (*time.Time, error) {
	student, err := s.studentRepo.Get(ctx, studentID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to load student: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if student == nil {
		return nil, errors.NewNotFoundError("student", studentID)
	}
	if days <= 0 {
		return nil, nil
	}
	cutoff := s.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
	return &cutoff, nil
}

func (s *progressService) Contests(ctx context.Context, studentID int64, days int) ([]models.Contest, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting contests: student_id=%d days=%d", studentID, days)

	since, err := s.since(ctx, studentID, days)
	if err != nil {
		return nil, err
	}
	contests, err := s.contestRepo.ListByStudent(ctx, studentID, since)
	if err != nil {
		log.Error("failed to list contests: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return contests, nil
}

func (s *progressService) RatingHistory(ctx context.Context, studentID int64, days int) ([]models.RatingChange, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting rating history: student_id=%d days=%d", studentID, days)

	since, err := s.since(ctx, studentID, days)
	if err != nil {
		return nil, err
	}
	changes, err := s.ratingRepo.ListByStudent(ctx, studentID, since)
	if err != nil {
		log.Error("failed to list rating changes: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return changes, nil
}

func (s *progressService) Submissions(ctx context.Context, studentID int64, days, limit int) ([]models.Submission, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting submissions: student_id=%d days=%d limit=%d", studentID, days, limit)

	since, err := s.since(ctx, studentID, days)
	if err != nil {
		return nil, err
	}
	subs, err := s.submissionRepo.ListByStudent(ctx, studentID, since, limit)
	if err != nil {
		log.Error("failed to list submissions: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return subs, nil
}

func (s *progressService) ProblemStats(ctx context.Context, studentID int64, days int) (*models.ProblemStats, error) {
	log := logger.FromContext(ctx)
	log.Debug("computing problem stats: student_id=%d days=%d", studentID, days)

	// The whole history is needed to tell a first solve from a re-solve.
	if _, err := s.since(ctx, studentID, 0); err != nil {
		return nil, err
	}
	subs, err := s.submissionRepo.ListByStudent(ctx, studentID, nil, 0)
	if err != nil {
		log.Error("failed to list submissions: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return ComputeProblemStats(subs, days, s.clock.Now()), nil
}

// ComputeProblemStats summarises a student's full submission history over
// the last days days; days <= 0 covers everything. A problem counts once,
// in the window holding its first accepted submission, so problems already
// solved before the window are not counted again.
func ComputeProblemStats(subs []models.Submission, days int, now time.Time) *models.ProblemStats {
	stats := &models.ProblemStats{
		Days:          days,
		RatingBuckets: []models.RatingBucket{},
		Heatmap:       []models.HeatmapDay{},
	}

	ordered := make([]models.Submission, len(subs))
	copy(ordered, subs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt) })

	solved := make(map[string]bool)
	buckets := make(map[int]int)
	perDay := make(map[string]int)
	ratingSum, rated := 0, 0

	var cutoff time.Time
	if days > 0 {
		cutoff = now.Add(-time.Duration(days) * 24 * time.Hour)
	}
	var first *time.Time

	for _, sub := range ordered {
		inWindow := !sub.SubmittedAt.Before(cutoff)
		if inWindow {
			perDay[sub.SubmittedAt.UTC().Format("2006-01-02")]++
			if first == nil {
				at := sub.SubmittedAt
				first = &at
			}
		}

		if !sub.Solved() || solved[sub.ProblemKey()] {
			continue
		}
		solved[sub.ProblemKey()] = true
		if !inWindow {
			continue
		}
		stats.TotalSolved++

		if sub.ProblemRating <= 0 {
			continue
		}
		ratingSum += sub.ProblemRating
		rated++
		buckets[sub.ProblemRating/ratingBucketWidth*ratingBucketWidth]++
		if stats.MostDifficult == nil || sub.ProblemRating > stats.MostDifficult.Rating {
			stats.MostDifficult = &models.SolvedProblem{
				Name:      sub.ProblemName,
				ContestID: sub.ContestID,
				Index:     sub.ProblemIndex,
				Rating:    sub.ProblemRating,
			}
		}
	}

	if rated > 0 {
		stats.AverageRating = round2(float64(ratingSum) / float64(rated))
	}

	window := days
	if window <= 0 && first != nil {
		window = int(now.Sub(*first).Hours()/24) + 1
	}
	if window > 0 {
		stats.AveragePerDay = round2(float64(stats.TotalSolved) / float64(window))
	}

	for rating, count := range buckets {
		stats.RatingBuckets = append(stats.RatingBuckets, models.RatingBucket{Rating: rating, Count: count})
	}
	sort.Slice(stats.RatingBuckets, func(i, j int) bool { return stats.RatingBuckets[i].Rating < stats.RatingBuckets[j].Rating })

	for date, count := range perDay {
		stats.Heatmap = append(stats.Heatmap, models.HeatmapDay{Date: date, Count: count})
	}
	sort.Slice(stats.Heatmap, func(i, j int) bool { return stats.Heatmap[i].Date < stats.Heatmap[j].Date })

	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
