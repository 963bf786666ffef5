package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vytor/cftracker/internal/logger"
	"github.com/vytor/cftracker/internal/models"
	"github.com/vytor/cftracker/internal/repository"
)

type syncRepository struct {
	db *sql.DB
}

// NewSyncRepository creates a new SyncRepository implementation
func NewSyncRepository(db *sql.DB) repository.SyncRepository {
	return &syncRepository{db: db}
}

func (r *syncRepository) ExistingKeys(ctx context.Context, studentID int64) (*models.ExistingKeys, error) {
	log := logger.FromContext(ctx).WithPrefix("sync_repo")
	log.Debug("loading existing keys for student_id=%d", studentID)

	keys := &models.ExistingKeys{
		SubmissionIDs:    make(map[int64]bool),
		ContestIDs:       make(map[int]bool),
		RatingContestIDs: make(map[int]bool),
	}

	rows, err := r.db.QueryContext(ctx, `SELECT submission_id FROM submissions WHERE student_id = ?`, studentID)
	if err != nil {
		log.Error("failed to list submission ids: %v", err)
		return nil, err
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		keys.SubmissionIDs[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.collectContestIDs(ctx, `SELECT contest_id FROM contests WHERE student_id = ?`, studentID, keys.ContestIDs); err != nil {
		log.Error("failed to list contest ids: %v", err)
		return nil, err
	}
	if err := r.collectContestIDs(ctx, `SELECT contest_id FROM rating_changes WHERE student_id = ?`, studentID, keys.RatingContestIDs); err != nil {
		log.Error("failed to list rating contest ids: %v", err)
		return nil, err
	}

	log.Debug("existing keys: submissions=%d contests=%d rating_changes=%d",
		len(keys.SubmissionIDs), len(keys.ContestIDs), len(keys.RatingContestIDs))
	return keys, nil
}

func (r *syncRepository) collectContestIDs(ctx context.Context, query string, studentID int64, out map[int]bool) error {
	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return err
		}
		out[id] = true
	}
	return rows.Err()
}

// ApplySync writes one sync's new rows and refreshes the student's
// aggregates in a single transaction. Rows that already exist are skipped.
// The aggregate update runs first and is guarded on handle, so a sync
// fetched for a handle the student no longer has rolls back untouched.
func (r *syncRepository) ApplySync(ctx context.Context, studentID int64, handle string, u models.SyncUpdate) (models.SyncCounts, error) {
	log := logger.FromContext(ctx).WithPrefix("sync_repo")
	log.Debug("applying sync for student_id=%d handle=%s: contests=%d submissions=%d rating_changes=%d",
		studentID, handle, len(u.Contests), len(u.Submissions), len(u.RatingChanges))

	var counts models.SyncCounts
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE students
SET current_rating = ?, max_rating = ?, rank = ?, max_rank = ?, avatar = ?,
    last_synced_at = ?, last_sync_status = ?, last_sync_error = '', updated_at = ?
WHERE id = ? AND handle = ?
`, u.Profile.CurrentRating, u.Profile.MaxRating, u.Profile.Rank, u.Profile.MaxRank, u.Profile.Avatar,
			utc(u.SyncedAt), models.SyncStatusOK, utc(u.SyncedAt), studentID, handle)
		if err != nil {
			log.Error("failed to update student aggregates: %v", err)
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return missingOrRenamed(ctx, tx, studentID)
		}

		if counts.RatingChanges, err = insertRatingChanges(ctx, tx, studentID, u.RatingChanges); err != nil {
			log.Error("failed to insert rating changes: %v", err)
			return err
		}
		if counts.Contests, err = insertContests(ctx, tx, studentID, u.Contests); err != nil {
			log.Error("failed to insert contests: %v", err)
			return err
		}
		if counts.Submissions, err = insertSubmissions(ctx, tx, studentID, u.Submissions); err != nil {
			log.Error("failed to insert submissions: %v", err)
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrHandleChanged) {
			log.Warn("discarding sync for student_id=%d: handle %s is no longer current", studentID, handle)
		}
		return models.SyncCounts{}, err
	}

	log.Debug("sync applied: %+v", counts)
	return counts, nil
}

// missingOrRenamed explains why a handle-guarded update matched no row.
func missingOrRenamed(ctx context.Context, q queryer, studentID int64) error {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM students WHERE id = ?`, studentID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return repository.ErrStudentNotFound
	case err != nil:
		return err
	default:
		return repository.ErrHandleChanged
	}
}

func execInserted(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

func insertRatingChanges(ctx context.Context, tx *sql.Tx, studentID int64, changes []models.RatingChange) (int, error) {
	if len(changes) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO rating_changes (student_id, contest_id, contest_name, rank, old_rating, new_rating, changed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(student_id, contest_id) DO NOTHING
`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range changes {
		res, err := stmt.ExecContext(ctx, studentID, c.ContestID, c.ContestName, c.Rank, c.OldRating, c.NewRating, utc(c.ChangedAt))
		if err != nil {
			return inserted, err
		}
		inserted += execInserted(res)
	}
	return inserted, nil
}

func insertContests(ctx context.Context, tx *sql.Tx, studentID int64, contests []models.Contest) (int, error) {
	if len(contests) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO contests (
    student_id, contest_id, contest_name, rank, old_rating, new_rating, rating_change,
    problems_solved, problems_unsolved, participated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(student_id, contest_id) DO NOTHING
`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range contests {
		res, err := stmt.ExecContext(ctx, studentID, c.ContestID, c.ContestName, c.Rank, c.OldRating, c.NewRating, c.RatingChange,
			c.ProblemsSolved, c.ProblemsUnsolved, utc(c.ParticipatedAt))
		if err != nil {
			return inserted, err
		}
		inserted += execInserted(res)
	}
	return inserted, nil
}

func insertSubmissions(ctx context.Context, tx *sql.Tx, studentID int64, subs []models.Submission) (int, error) {
	if len(subs) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO submissions (
    student_id, submission_id, contest_id, problem_index, problem_name, problem_rating,
    tags, verdict, language, participant_type, submitted_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(student_id, submission_id) DO NOTHING
`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, s := range subs {
		res, err := stmt.ExecContext(ctx, studentID, s.SubmissionID, s.ContestID, s.ProblemIndex, s.ProblemName, s.ProblemRating,
			joinTags(s.Tags), s.Verdict, s.Language, s.ParticipantType, utc(s.SubmittedAt))
		if err != nil {
			return inserted, err
		}
		inserted += execInserted(res)
	}
	return inserted, nil
}
