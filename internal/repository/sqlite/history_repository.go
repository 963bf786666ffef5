package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/cftracker/internal/logger"
	"github.com/vytor/cftracker/internal/models"
	"github.com/vytor/cftracker/internal/repository"
)

type contestRepository struct {
	db *sql.DB
}

// NewContestRepository creates a new ContestRepository implementation
func NewContestRepository(db *sql.DB) repository.ContestRepository {
	return &contestRepository{db: db}
}

func (r *contestRepository) ListByStudent(ctx context.Context, studentID int64, since *time.Time) ([]models.Contest, error) {
	log := logger.FromContext(ctx).WithPrefix("contest_repo")
	log.Debug("listing contests: student_id=%d", studentID)

	query := sqlBuilder.Select(
		"id", "student_id", "contest_id", "contest_name", "rank", "old_rating", "new_rating", "rating_change",
		"problems_solved", "problems_unsolved", "participated_at", "created_at",
	).From("contests").Where(squirrel.Eq{"student_id": studentID})
	if since != nil {
		query = query.Where(squirrel.GtOrEq{"participated_at": utc(*since)})
	}
	stmt, args, err := query.OrderBy("participated_at DESC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to list contests: %v", err)
		return nil, err
	}
	defer rows.Close()

	contests := []models.Contest{}
	for rows.Next() {
		var c models.Contest
		if err := rows.Scan(&c.ID, &c.StudentID, &c.ContestID, &c.ContestName, &c.Rank, &c.OldRating, &c.NewRating, &c.RatingChange,
			&c.ProblemsSolved, &c.ProblemsUnsolved, &c.ParticipatedAt, &c.CreatedAt); err != nil {
			log.Error("failed to scan contest row: %v", err)
			return nil, err
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

type ratingRepository struct {
	db *sql.DB
}

// NewRatingRepository creates a new RatingRepository implementation
func NewRatingRepository(db *sql.DB) repository.RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) ListByStudent(ctx context.Context, studentID int64, since *time.Time) ([]models.RatingChange, error) {
	log := logger.FromContext(ctx).WithPrefix("rating_repo")
	log.Debug("listing rating changes: student_id=%d", studentID)

	query := sqlBuilder.Select(
		"id", "student_id", "contest_id", "contest_name", "rank", "old_rating", "new_rating", "changed_at", "created_at",
	).From("rating_changes").Where(squirrel.Eq{"student_id": studentID})
	if since != nil {
		query = query.Where(squirrel.GtOrEq{"changed_at": utc(*since)})
	}
	stmt, args, err := query.OrderBy("changed_at ASC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to list rating changes: %v", err)
		return nil, err
	}
	defer rows.Close()

	changes := []models.RatingChange{}
	for rows.Next() {
		var c models.RatingChange
		if err := rows.Scan(&c.ID, &c.StudentID, &c.ContestID, &c.ContestName, &c.Rank, &c.OldRating, &c.NewRating, &c.ChangedAt, &c.CreatedAt); err != nil {
			log.Error("failed to scan rating change row: %v", err)
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

type submissionRepository struct {
	db *sql.DB
}

// NewSubmissionRepository creates a new SubmissionRepository implementation
func NewSubmissionRepository(db *sql.DB) repository.SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) ListByStudent(ctx context.Context, studentID int64, since *time.Time, limit int) ([]models.Submission, error) {
	log := logger.FromContext(ctx).WithPrefix("submission_repo")
	log.Debug("listing submissions: student_id=%d, limit=%d", studentID, limit)

	query := sqlBuilder.Select(
		"id", "student_id", "submission_id", "contest_id", "problem_index", "problem_name", "problem_rating",
		"tags", "verdict", "language", "participant_type", "submitted_at", "created_at",
	).From("submissions").Where(squirrel.Eq{"student_id": studentID})
	if since != nil {
		query = query.Where(squirrel.GtOrEq{"submitted_at": utc(*since)})
	}
	query = query.OrderBy("submitted_at DESC", "submission_id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to list submissions: %v", err)
		return nil, err
	}
	defer rows.Close()

	subs := []models.Submission{}
	for rows.Next() {
		var s models.Submission
		var tags string
		if err := rows.Scan(&s.ID, &s.StudentID, &s.SubmissionID, &s.ContestID, &s.ProblemIndex, &s.ProblemName, &s.ProblemRating,
			&tags, &s.Verdict, &s.Language, &s.ParticipantType, &s.SubmittedAt, &s.CreatedAt); err != nil {
			log.Error("failed to scan submission row: %v", err)
			return nil, err
		}
		s.Tags = splitTags(tags)
		subs = append(subs, s)
	}
	log.Debug("found %d submissions", len(subs))
	return subs, rows.Err()
}
