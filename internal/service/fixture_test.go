package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/notify"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/lesson_scheduler/internal/scheduling"
)

var brt = time.FixedZone("BRT", -3*3600)

// понедельник
var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, brt)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, brt)
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	clock    *clock.FixedClock
	requests *ChangeRequestService
	workflow *RequestWorkflow
	calendar *CalendarService
	users    *UserService
	notes    *notify.Recorder

	student  *model.User
	teacher  *model.User
	teacher2 *model.User
	admin    *model.User

	enrollment *model.Enrollment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := clock.Fixed(testNow, brt)
	f := &fixture{
		ctx:   context.Background(),
		store: memory.NewStore(clk),
		clock: clk,
		notes: &notify.Recorder{},
	}
	logger := zap.NewNop()

	policy := scheduling.NewPolicy(scheduling.DefaultPolicyConfig(), f.clock, f.store.Holidays())
	engine := scheduling.NewEngine(f.store.Availability(), f.store.Lessons(), f.store.Holidays(), f.clock, scheduling.DefaultProposalConfig())

	f.requests = NewChangeRequestService(f.store, policy, f.clock, logger)
	f.workflow = NewRequestWorkflow(f.requests, f.notes)
	f.calendar = NewCalendarService(f.store, engine, policy, f.clock, logger)
	f.users = NewUserService(f.store.Users(), []int64{900}, logger)

	f.student = f.register(t, 100, model.UserRoleStudent)
	f.teacher = f.register(t, 200, model.UserRoleTeacher)
	f.teacher2 = f.register(t, 300, model.UserRoleTeacher)
	f.admin = f.register(t, 900, model.UserRoleAdmin)

	var err error
	f.enrollment, err = f.calendar.CreateEnrollment(f.ctx, EnrollmentInput{
		StudentID:  f.student.ID,
		LessonType: model.LessonTypeParticular,
	})
	require.NoError(t, err)

	return f
}

func (f *fixture) register(t *testing.T, telegramID int64, role model.UserRole) *model.User {
	t.Helper()
	u, err := f.users.RegisterUser(f.ctx, telegramID, "", "User", "", "pt")
	require.NoError(t, err)
	if role != u.Role {
		require.NoError(t, f.users.SetRole(f.ctx, telegramID, role))
		u.Role = role
	}
	return u
}

func (f *fixture) book(t *testing.T, enrollmentID, teacherID int64, start time.Time) *model.Lesson {
	t.Helper()
	l, err := f.calendar.BookLesson(f.ctx, BookLessonInput{
		EnrollmentID:    enrollmentID,
		TeacherID:       teacherID,
		StartTime:       start,
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) create(t *testing.T, lesson *model.Lesson, typ model.RequestType, start *time.Time, teacherID *int64) *model.ChangeRequest {
	t.Helper()
	out, err := f.requests.Create(f.ctx, CreateRequestInput{
		LessonID:           lesson.ID,
		RequesterID:        f.student.ID,
		Type:               typ,
		RequestedStart:     start,
		RequestedTeacherID: teacherID,
	})
	require.NoError(t, err)
	return out.Request
}

func (f *fixture) teacherActor() Actor {
	return Actor{UserID: f.teacher.ID, Role: model.UserRoleTeacher}
}

func (f *fixture) adminActor() Actor {
	return Actor{UserID: f.admin.ID, Role: model.UserRoleAdmin}
}

func (f *fixture) lesson(t *testing.T, id int64) *model.Lesson {
	t.Helper()
	l, err := f.store.Lessons().GetByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l
}

func (f *fixture) request(t *testing.T, id int64) *model.ChangeRequest {
	t.Helper()
	r, err := f.store.ChangeRequests().GetByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, r)
	return r
}

func (f *fixture) teacherLessons(t *testing.T, teacherID int64) []*model.Lesson {
	t.Helper()
	lessons, err := f.store.Lessons().GetActiveByTeacherInRange(f.ctx, teacherID, at(1, 0, 0), at(31, 0, 0))
	require.NoError(t, err)
	return lessons
}

func ptr[T any](v T) *T {
	return &v
}
