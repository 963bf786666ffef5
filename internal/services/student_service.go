package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/vytor/cftracker/internal/errors"
	"github.com/vytor/cftracker/internal/jobs"
	"github.com/vytor/cftracker/internal/logger"
	"github.com/vytor/cftracker/internal/models"
	"github.com/vytor/cftracker/internal/repository"
)

// StudentInput carries the editable fields of a student.
type StudentInput struct {
	Name        string
	Email       string
	Phone       string
	Handle      string
	SyncEnabled *bool
}

func (in StudentInput) normalized() StudentInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Handle = strings.TrimSpace(in.Handle)
	return in
}

func (in StudentInput) validate() error {
	switch {
	case in.Name == "":
		return errors.NewValidationError("name", "cannot be empty")
	case in.Email == "":
		return errors.NewValidationError("email", "cannot be empty")
	case in.Handle == "":
		return errors.NewValidationError("handle", "cannot be empty")
	}
	return nil
}

// StudentService handles student-related business logic
type StudentService interface {
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	CreateStudent(ctx context.Context, in StudentInput) (*models.Student, error)
	UpdateStudent(ctx context.Context, id int64, in StudentInput) (*models.Student, error)
	DeleteStudent(ctx context.Context, id int64) error
}

type studentService struct {
	studentRepo repository.StudentRepository
	queue       jobs.JobQueue
}

// NewStudentService creates a new StudentService
func NewStudentService(studentRepo repository.StudentRepository, queue jobs.JobQueue) StudentService {
	return &studentService{studentRepo: studentRepo, queue: queue}
}

func (s *studentService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing students: q=%q limit=%d offset=%d", filter.Query, filter.Limit, filter.Offset)

	students, err := s.studentRepo.List(ctx, filter)
	if err != nil {
		log.Error("failed to list students: %v", err)
		return nil, 0, errors.NewInternalError(err)
	}

	total, err := s.studentRepo.Count(ctx, filter)
	if err != nil {
		log.Error("failed to count students: %v", err)
		return nil, 0, errors.NewInternalError(err)
	}

	return students, total, nil
}

func (s *studentService) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting student: id=%d", id)

	student, err := s.studentRepo.Get(ctx, id)
	if err != nil {
		log.Error("failed to get student: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if student == nil {
		return nil, errors.NewNotFoundError("student", id)
	}
	return student, nil
}

func (s *studentService) CreateStudent(ctx context.Context, in StudentInput) (*models.Student, error) {
	log := logger.FromContext(ctx)
	in = in.normalized()
	log.Debug("creating student: handle=%s", in.Handle)

	if err := in.validate(); err != nil {
		return nil, err
	}

	student := models.Student{
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Handle:      in.Handle,
		SyncEnabled: true,
	}
	if in.SyncEnabled != nil {
		student.SyncEnabled = *in.SyncEnabled
	}

	created, err := s.studentRepo.Create(ctx, student)
	if err != nil {
		if stderrors.Is(err, repository.ErrDuplicateHandle) {
			return nil, errors.NewConflictError("handle already tracked: " + in.Handle)
		}
		log.Error("failed to create student: %v", err)
		return nil, errors.NewInternalError(err)
	}

	if created.SyncEnabled {
		s.enqueueSync(ctx, created.ID)
	}
	return created, nil
}

func (s *studentService) UpdateStudent(ctx context.Context, id int64, in StudentInput) (*models.Student, error) {
	log := logger.FromContext(ctx)
	in = in.normalized()
	log.Debug("updating student: id=%d", id)

	if err := in.validate(); err != nil {
		return nil, err
	}

	current, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	next.Name = in.Name
	next.Email = in.Email
	next.Phone = in.Phone
	next.Handle = in.Handle
	if in.SyncEnabled != nil {
		next.SyncEnabled = *in.SyncEnabled
	}

	updated, err := s.studentRepo.Update(ctx, next)
	if err != nil {
		switch {
		case stderrors.Is(err, repository.ErrDuplicateHandle):
			return nil, errors.NewConflictError("handle already tracked: " + in.Handle)
		case stderrors.Is(err, repository.ErrStudentNotFound):
			return nil, errors.NewNotFoundError("student", id)
		}
		log.Error("failed to update student: %v", err)
		return nil, errors.NewInternalError(err)
	}

	if strings.EqualFold(current.Handle, updated.Handle) {
		return updated, nil
	}

	// history belongs to the old handle
	log.Info("handle changed from %s to %s, resetting synced data", current.Handle, updated.Handle)
	if err := s.studentRepo.ResetSyncData(ctx, id); err != nil {
		log.Error("failed to reset synced data: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if updated.SyncEnabled {
		s.enqueueSync(ctx, id)
	}
	return s.GetStudent(ctx, id)
}

func (s *studentService) DeleteStudent(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting student: id=%d", id)

	if err := s.studentRepo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrStudentNotFound) {
			return errors.NewNotFoundError("student", id)
		}
		log.Error("failed to delete student: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

// enqueueSync schedules a background sync. A full queue is not fatal: the
// student stays stale and the scheduler picks it up.
func (s *studentService) enqueueSync(ctx context.Context, id int64) {
	if err := s.queue.EnqueueSync(id); err != nil {
		logger.FromContext(ctx).Warn("could not enqueue sync for student %d: %v", id, err)
	}
}
