package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/vytor/cftracker/internal/errors"
	"github.com/vytor/cftracker/internal/jobs"
	"github.com/vytor/cftracker/internal/models"
	"github.com/vytor/cftracker/internal/repository"
	"github.com/vytor/cftracker/internal/services"
	"github.com/vytor/cftracker/internal/testutil"
	"github.com/vytor/cftracker/internal/testutil/mocks"
)

type StudentServiceSuite struct {
	suite.Suite
	repo    *mocks.MockStudentRepository
	queue   *mocks.MockJobQueue
	service services.StudentService
}

func (s *StudentServiceSuite) SetupTest() {
	s.repo = new(mocks.MockStudentRepository)
	s.queue = new(mocks.MockJobQueue)
	s.service = services.NewStudentService(s.repo, s.queue)
}

func (s *StudentServiceSuite) TearDownTest() {
	s.repo.AssertExpectations(s.T())
	s.queue.AssertExpectations(s.T())
}

func (s *StudentServiceSuite) assertStatus(err error, status int) {
	appErr, ok := apperrors.AsAppError(err)
	s.Require().True(ok, "expected AppError, got %v", err)
	s.Assert().Equal(status, appErr.Status)
}

func (s *StudentServiceSuite) TestCreateStudent_EnqueuesInitialSync() {
	s.repo.On("Create", mock.Anything, mock.MatchedBy(func(st models.Student) bool {
		return st.Handle == "tourist" && st.Name == "Gennady" && st.SyncEnabled
	})).Return(&models.Student{ID: 7, Name: "Gennady", Handle: "tourist", SyncEnabled: true}, nil)
	s.queue.On("EnqueueSync", int64(7)).Return(nil)

	st, err := s.service.CreateStudent(context.Background(), services.StudentInput{
		Name: "  Gennady ", Email: "g@example.com", Handle: " tourist ",
	})

	s.Require().NoError(err)
	s.Assert().Equal(int64(7), st.ID)
}

func (s *StudentServiceSuite) TestCreateStudent_SyncDisabledSkipsQueue() {
	s.repo.On("Create", mock.Anything, mock.Anything).
		Return(&models.Student{ID: 8, Handle: "quiet", SyncEnabled: false}, nil)

	_, err := s.service.CreateStudent(context.Background(), services.StudentInput{
		Name: "Q", Email: "q@example.com", Handle: "quiet", SyncEnabled: testutil.Ptr(false),
	})

	s.Require().NoError(err)
	s.queue.AssertNotCalled(s.T(), "EnqueueSync", mock.Anything)
}

func (s *StudentServiceSuite) TestCreateStudent_FullQueueIsNotFatal() {
	s.repo.On("Create", mock.Anything, mock.Anything).Return(&models.Student{ID: 9, SyncEnabled: true}, nil)
	s.queue.On("EnqueueSync", int64(9)).Return(jobs.ErrQueueFull)

	st, err := s.service.CreateStudent(context.Background(), services.StudentInput{Name: "A", Email: "a@example.com", Handle: "a"})

	s.Require().NoError(err)
	s.Assert().Equal(int64(9), st.ID)
}

func (s *StudentServiceSuite) TestCreateStudent_Validation() {
	_, err := s.service.CreateStudent(context.Background(), services.StudentInput{Name: "A", Email: "a@example.com", Handle: "   "})
	s.assertStatus(err, http.StatusBadRequest)
}

func (s *StudentServiceSuite) TestCreateStudent_DuplicateHandle() {
	s.repo.On("Create", mock.Anything, mock.Anything).Return(nil, repository.ErrDuplicateHandle)

	_, err := s.service.CreateStudent(context.Background(), services.StudentInput{Name: "A", Email: "a@example.com", Handle: "taken"})
	s.assertStatus(err, http.StatusConflict)
}

func (s *StudentServiceSuite) TestGetStudent_NotFound() {
	s.repo.On("Get", mock.Anything, int64(404)).Return(nil, nil)

	_, err := s.service.GetStudent(context.Background(), 404)
	s.assertStatus(err, http.StatusNotFound)
}

func (s *StudentServiceSuite) TestUpdateStudent_SameHandleKeepsHistory() {
	current := &models.Student{ID: 1, Name: "Old", Email: "o@example.com", Handle: "petr", SyncEnabled: true}
	s.repo.On("Get", mock.Anything, int64(1)).Return(current, nil)
	s.repo.On("Update", mock.Anything, mock.MatchedBy(func(st models.Student) bool {
		return st.Name == "New" && st.Handle == "Petr"
	})).Return(&models.Student{ID: 1, Name: "New", Handle: "Petr", SyncEnabled: true}, nil)

	st, err := s.service.UpdateStudent(context.Background(), 1, services.StudentInput{Name: "New", Email: "o@example.com", Handle: "Petr"})

	s.Require().NoError(err)
	s.Assert().Equal("New", st.Name)
	s.repo.AssertNotCalled(s.T(), "ResetSyncData", mock.Anything, mock.Anything)
}

func (s *StudentServiceSuite) TestUpdateStudent_HandleChangeResetsAndResyncs() {
	s.repo.On("Get", mock.Anything, int64(1)).Return(&models.Student{ID: 1, Name: "A", Email: "a@example.com", Handle: "old", SyncEnabled: true}, nil).Once()
	s.repo.On("Update", mock.Anything, mock.Anything).Return(&models.Student{ID: 1, Handle: "new", SyncEnabled: true}, nil)
	s.repo.On("ResetSyncData", mock.Anything, int64(1)).Return(nil)
	s.queue.On("EnqueueSync", int64(1)).Return(nil)
	s.repo.On("Get", mock.Anything, int64(1)).Return(&models.Student{ID: 1, Handle: "new", LastSyncStatus: models.SyncStatusNever}, nil).Once()

	st, err := s.service.UpdateStudent(context.Background(), 1, services.StudentInput{Name: "A", Email: "a@example.com", Handle: "new"})

	s.Require().NoError(err)
	s.Assert().Equal("new", st.Handle)
	s.Assert().Equal(models.SyncStatusNever, st.LastSyncStatus)
}

func (s *StudentServiceSuite) TestDeleteStudent_NotFound() {
	s.repo.On("Delete", mock.Anything, int64(3)).Return(repository.ErrStudentNotFound)

	err := s.service.DeleteStudent(context.Background(), 3)
	s.assertStatus(err, http.StatusNotFound)
}

func (s *StudentServiceSuite) TestListStudents() {
	filter := models.StudentFilter{Query: "a", Limit: 10}
	s.repo.On("List", mock.Anything, filter).Return([]models.Student{{ID: 1}, {ID: 2}}, nil)
	s.repo.On("Count", mock.Anything, filter).Return(12, nil)

	list, total, err := s.service.ListStudents(context.Background(), filter)

	s.Require().NoError(err)
	s.Assert().Len(list, 2)
	s.Assert().Equal(12, total)
}

func TestStudentServiceSuite(t *testing.T) {
	suite.Run(t, new(StudentServiceSuite))
}
