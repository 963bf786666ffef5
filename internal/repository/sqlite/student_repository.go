package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/cftracker/internal/logger"
	"github.com/vytor/cftracker/internal/models"
	"github.com/vytor/cftracker/internal/repository"
)

const studentColumns = `id, name, email, phone, handle, current_rating, max_rating, rank, max_rank, avatar,
       sync_enabled, last_synced_at, last_sync_status, last_sync_error, created_at, updated_at`

var studentColumnList = []string{
	"id", "name", "email", "phone", "handle", "current_rating", "max_rating", "rank", "max_rank", "avatar",
	"sync_enabled", "last_synced_at", "last_sync_status", "last_sync_error", "created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var s models.Student
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Handle, &s.CurrentRating, &s.MaxRating, &s.Rank, &s.MaxRank, &s.Avatar,
		&s.SyncEnabled, &s.LastSyncedAt, &s.LastSyncStatus, &s.LastSyncError, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type studentRepository struct {
	db *sql.DB
}

// NewStudentRepository creates a new StudentRepository implementation
func NewStudentRepository(db *sql.DB) repository.StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) Get(ctx context.Context, id int64) (*models.Student, error) {
	log := logger.FromContext(ctx).WithPrefix("student_repo")
	log.Debug("getting student: id=%d", id)

	s, err := scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("student not found: id=%d", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get student: %v", err)
		return nil, err
	}
	return s, nil
}

func (r *studentRepository) GetByHandle(ctx context.Context, handle string) (*models.Student, error) {
	log := logger.FromContext(ctx).WithPrefix("student_repo")
	log.Debug("getting student by handle: %s", handle)

	s, err := scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE handle = ?`, handle))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get student by handle: %v", err)
		return nil, err
	}
	return s, nil
}

func applyStudentFilter(query squirrel.SelectBuilder, filter models.StudentFilter) squirrel.SelectBuilder {
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		query = query.Where(squirrel.Or{
			squirrel.Like{"name": like},
			squirrel.Like{"handle": like},
			squirrel.Like{"email": like},
		})
	}
	if filter.SyncEnabled != nil {
		query = query.Where(squirrel.Eq{"sync_enabled": *filter.SyncEnabled})
	}
	return query
}

func (r *studentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	log := logger.FromContext(ctx).WithPrefix("student_repo")
	log.Debug("listing students: q=%q, order=%s %s, limit=%d, offset=%d",
		filter.Query, filter.OrderBy, filter.OrderDir, filter.Limit, filter.Offset)

	query := applyStudentFilter(sqlBuilder.Select(studentColumnList...).From("students"), filter)

	// Safe ORDER BY with validation
	orderBy := "created_at"
	if models.StudentSortColumns[filter.OrderBy] {
		orderBy = filter.OrderBy
	}
	orderDir := "ASC"
	if filter.OrderDir == "DESC" || filter.OrderDir == "desc" {
		orderDir = "DESC"
	}
	query = query.OrderBy(orderBy+" "+orderDir, "id ASC")

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to list students: %v", err)
		return nil, err
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			log.Error("failed to scan student row: %v", err)
			return nil, err
		}
		students = append(students, *s)
	}
	log.Debug("found %d students", len(students))
	return students, rows.Err()
}

func (r *studentRepository) Count(ctx context.Context, filter models.StudentFilter) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("student_repo")

	stmt, args, err := applyStudentFilter(sqlBuilder.Select("COUNT(*)").From("students"), filter).ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return 0, err
	}

	var count int
	if err := r.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		log.Error("failed to count students: %v", err)
		return 0, err
	}
	return count, nil
}

func (r *studentRepository) Create(ctx context.Context, s models.Student) (*models.Student, error) {
	log := logger.FromContext(ctx).WithPrefix("student_repo")
	log.Debug("creating student: handle=%s", s.Handle)

	now := utc(time.Now())
	created, err := scanStudent(r.db.QueryRowContext(ctx, `
INSERT INTO students (name, email, phone, handle, sync_enabled, last_sync_status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING `+studentColumns,
		s.Name, s.Email, s.Phone, s.Handle, s.SyncEnabled, models.SyncStatusNever, now, now))
	if err != nil {
		if isUniqueViolation(err) {
			log.Debug("handle already tracked: %s", s.Handle)
			return nil, repository.ErrDuplicateHandle
		}
		log.Error("failed to create student: %v", err)
		return nil, err
	}
	log.Debug("student created: id=%d", created.ID)
	return created, nil
}

func (r *studentRepository) Update(ctx context.Context, s models.Student) (*models.Student, error) {
	log := logger.FromContext(ctx).WithPrefix("student_repo")
	log.Debug("updating student: id=%d", s.ID)

	updated, err := scanStudent(r.db.QueryRowContext(ctx, `
UPDATE students
SET name = ?, email = ?, phone = ?, handle = ?, sync_enabled = ?, updated_at = ?
WHERE id = ?
RETURNING `+studentColumns,
		s.Name, s.Email, s.Phone, s.Handle, s.SyncEnabled, utc(time.Now()), s.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrStudentNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicateHandle
		}
		log.Error("failed to update student: %v", err)
		return nil, err
	}
	return updated, nil
}

func (r *studentRepository) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("student_repo")
	log.Debug("deleting student and related data: id=%d", id)

	return tx(ctx, r.db, func(tx *sql.Tx) error {
		if err := deleteCollections(ctx, tx, id); err != nil {
			log.Error("failed to delete data for student %d: %v", id, err)
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
		if err != nil {
			log.Error("failed to delete student %d: %v", id, err)
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrStudentNotFound
		}
		log.Debug("student %d deleted with cascading data", id)
		return nil
	})
}

func deleteCollections(ctx context.Context, tx *sql.Tx, studentID int64) error {
	for _, table := range []string{"submissions", "contests", "rating_changes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE student_id = ?`, studentID); err != nil {
			return err
		}
	}
	return nil
}

func (r *studentRepository) queryStudents(ctx context.Context, query string, args ...any) ([]models.Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

func (r *studentRepository) ListStale(ctx context.Context, cutoff time.Time) ([]models.Student, error) {
	log := logger.FromContext(ctx).WithPrefix("student_repo")
	log.Debug("listing students not synced since %s", cutoff.Format(time.RFC3339))

	students, err := r.queryStudents(ctx, `
SELECT `+studentColumns+`
FROM students
WHERE sync_enabled = 1 AND (last_synced_at IS NULL OR last_synced_at < ?)
ORDER BY last_synced_at IS NOT NULL, last_synced_at ASC, id ASC
`, utc(cutoff))
	if err != nil {
		log.Error("failed to list stale students: %v", err)
		return nil, err
	}
	log.Debug("found %d stale students", len(students))
	return students, nil
}

func (r *studentRepository) ListSyncEnabled(ctx context.Context) ([]models.Student, error) {
	log := logger.FromContext(ctx).WithPrefix("student_repo")

	students, err := r.queryStudents(ctx, `
SELECT `+studentColumns+`
FROM students
WHERE sync_enabled = 1
ORDER BY id ASC
`)
	if err != nil {
		log.Error("failed to list sync-enabled students: %v", err)
		return nil, err
	}
	return students, nil
}

// MarkSyncFailed records a failed sync. Like ApplySync it is a no-op
// returning ErrHandleChanged once the student's handle has moved on.
func (r *studentRepository) MarkSyncFailed(ctx context.Context, id int64, handle, reason string, at time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("student_repo")
	log.Debug("marking sync failed: student_id=%d handle=%s", id, handle)

	res, err := r.db.ExecContext(ctx, `
UPDATE students
SET last_sync_status = ?, last_sync_error = ?, updated_at = ?
WHERE id = ? AND handle = ?
`, models.SyncStatusFailed, reason, utc(at), id, handle)
	if err != nil {
		log.Error("failed to mark sync failure: %v", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return missingOrRenamed(ctx, r.db, id)
	}
	return nil
}

func (r *studentRepository) ResetSyncData(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("student_repo")
	log.Debug("resetting synced data: student_id=%d", id)

	return tx(ctx, r.db, func(tx *sql.Tx) error {
		if err := deleteCollections(ctx, tx, id); err != nil {
			log.Error("failed to clear collections for student %d: %v", id, err)
			return err
		}
		_, err := tx.ExecContext(ctx, `
UPDATE students
SET current_rating = 0, max_rating = 0, rank = '', max_rank = '', avatar = '',
    last_synced_at = NULL, last_sync_status = ?, last_sync_error = '', updated_at = ?
WHERE id = ?
`, models.SyncStatusNever, utc(time.Now()), id)
		return err
	})
}
