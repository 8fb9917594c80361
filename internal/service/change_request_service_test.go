package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/notify"
)

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))

	out, err := f.workflow.Create(f.ctx, CreateRequestInput{
		LessonID:       lesson.ID,
		RequesterID:    f.student.ID,
		Type:           model.RequestTypeTrocaAula,
		RequestedStart: ptr(at(9, 10, 0)),
		Notes:          "consulta médica",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusPending, out.Request.Status)
	assert.Equal(t, lesson.ID, out.Request.LessonID)

	events, err := f.requests.History(f.ctx, out.Request.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.RequestStatus(""), events[0].FromStatus)
	assert.Equal(t, model.RequestStatusPending, events[0].ToStatus)

	sent := f.notes.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.KindRequestCreated, sent[0].Kind)
	assert.Equal(t, []notify.Recipient{notify.Teacher(f.teacher.ID)}, sent[0].Recipients)

	// заявка не меняет календарь
	assert.Equal(t, model.LessonStatusConfirmed, f.lesson(t, lesson.ID).Status)
}

func TestCreateRejectsGroupLessonRegardlessOfInput(t *testing.T) {
	f := newFixture(t)
	group, err := f.calendar.CreateEnrollment(f.ctx, EnrollmentInput{
		StudentID:  f.student.ID,
		LessonType: model.LessonTypeGroup,
		GroupName:  "  Turma A ",
	})
	require.NoError(t, err)
	lesson := f.book(t, group.ID, f.teacher.ID, at(2, 10, 0))

	inputs := []CreateRequestInput{
		{LessonID: lesson.ID, RequesterID: f.student.ID, Type: model.RequestTypeCancelamento},
		{LessonID: lesson.ID, RequesterID: f.student.ID, Type: "UNKNOWN"},
		{LessonID: lesson.ID, RequesterID: f.teacher.ID, Type: model.RequestTypeTrocaAula},
		{LessonID: lesson.ID, Type: model.RequestTypeTrocaAula, RequestedStart: ptr(at(1, 10, 0))},
	}
	for _, in := range inputs {
		_, err := f.requests.Create(f.ctx, in)
		assert.ErrorIs(t, err, model.ErrUnsupportedForGroup)
		assert.Equal(t, model.KindUnsupportedForGroup, model.KindOf(err))
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))

	tests := []struct {
		name string
		in   CreateRequestInput
		want error
	}{
		{
			name: "reschedule without start",
			in:   CreateRequestInput{Type: model.RequestTypeTrocaAula},
			want: model.ErrInvalidInput,
		},
		{
			name: "start in the past",
			in:   CreateRequestInput{Type: model.RequestTypeTrocaAula, RequestedStart: ptr(at(1, 10, 0))},
			want: model.ErrInvalidInput,
		},
		{
			name: "cancel with start",
			in:   CreateRequestInput{Type: model.RequestTypeCancelamento, RequestedStart: ptr(at(9, 10, 0))},
			want: model.ErrInvalidInput,
		},
		{
			name: "teacher change without teacher",
			in:   CreateRequestInput{Type: model.RequestTypeTrocaProfessor},
			want: model.ErrInvalidInput,
		},
		{
			name: "unknown teacher",
			in:   CreateRequestInput{Type: model.RequestTypeTrocaProfessor, RequestedTeacherID: ptr(int64(777))},
			want: model.ErrNotFound,
		},
		{
			name: "student as teacher",
			in:   CreateRequestInput{Type: model.RequestTypeTrocaProfessor, RequestedTeacherID: &f.student.ID},
			want: model.ErrInvalidInput,
		},
		{
			name: "unknown type",
			in:   CreateRequestInput{Type: "TROCA_SALA"},
			want: model.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.LessonID = lesson.ID
			tt.in.RequesterID = f.student.ID
			_, err := f.requests.Create(f.ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.requests.Create(f.ctx, CreateRequestInput{LessonID: 999, RequesterID: f.student.ID, Type: model.RequestTypeCancelamento})
	assert.ErrorIs(t, err, model.ErrNotFound)

	// перенос принимает новое время вместе с учителем или одного учителя
	accepted := []CreateRequestInput{
		{Type: model.RequestTypeTrocaAula, RequestedStart: ptr(at(10, 10, 0)), RequestedTeacherID: &f.teacher2.ID},
		{Type: model.RequestTypeTrocaAula, RequestedTeacherID: &f.teacher2.ID},
		{Type: model.RequestTypeTrocaProfessor, RequestedStart: ptr(at(11, 10, 0))},
	}
	for i, in := range accepted {
		other := f.book(t, f.enrollment.ID, f.teacher.ID, at(6+i, 14, 0))
		in.LessonID = other.ID
		in.RequesterID = f.student.ID
		out, err := f.requests.Create(f.ctx, in)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusPending, out.Request.Status)
	}

	_, err = f.requests.Create(f.ctx, CreateRequestInput{LessonID: lesson.ID, RequesterID: f.teacher2.ID, Type: model.RequestTypeCancelamento})
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestCreateRespectsPolicy(t *testing.T) {
	f := newFixture(t)

	soon := f.book(t, f.enrollment.ID, f.teacher.ID, at(2, 12, 0))
	_, err := f.requests.Create(f.ctx, CreateRequestInput{LessonID: soon.ID, RequesterID: f.student.ID, Type: model.RequestTypeCancelamento})
	require.ErrorIs(t, err, model.ErrPolicyViolation)
	assert.True(t, model.IsUserCorrectable(err))

	onHoliday := f.book(t, f.enrollment.ID, f.teacher.ID, at(20, 9, 0))
	_, err = f.calendar.AddHoliday(f.ctx, at(20, 0, 0), "Feriado municipal")
	require.NoError(t, err)
	_, err = f.requests.Create(f.ctx, CreateRequestInput{LessonID: onHoliday.ID, RequesterID: f.student.ID, Type: model.RequestTypeCancelamento})
	assert.ErrorIs(t, err, model.ErrPolicyViolation)
}

func TestCreateRequiresConfirmedLessonWithoutOpenRequest(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))

	f.create(t, lesson, model.RequestTypeCancelamento, nil, nil)
	_, err := f.requests.Create(f.ctx, CreateRequestInput{LessonID: lesson.ID, RequesterID: f.student.ID, Type: model.RequestTypeCancelamento})
	assert.ErrorIs(t, err, model.ErrInvalidState)

	cancelled := f.book(t, f.enrollment.ID, f.teacher.ID, at(6, 14, 0))
	require.NoError(t, f.store.Lessons().UpdateStatus(f.ctx, cancelled.ID, model.LessonStatusConfirmed, model.LessonStatusCancelled))
	_, err = f.requests.Create(f.ctx, CreateRequestInput{LessonID: cancelled.ID, RequesterID: f.student.ID, Type: model.RequestTypeCancelamento})
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestApproveCancelamento(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
	req := f.create(t, lesson, model.RequestTypeCancelamento, nil, nil)

	out, err := f.workflow.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.teacherActor()})
	require.NoError(t, err)
	assert.Nil(t, out.NewLesson)

	assert.Equal(t, model.LessonStatusCancelled, f.lesson(t, lesson.ID).Status)
	stored := f.request(t, req.ID)
	assert.Equal(t, model.RequestStatusCompleted, stored.Status)
	require.NotNil(t, stored.ResolvedAt)
	assert.True(t, stored.ResolvedAt.Equal(testNow))

	assert.Equal(t, []notify.Kind{notify.KindRequestCompleted}, f.notes.Kinds())
}

func TestApproveTrocaAulaIsAtomic(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
	req := f.create(t, lesson, model.RequestTypeTrocaAula, ptr(at(9, 10, 0)), nil)

	out, err := f.requests.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.teacherActor()})
	require.NoError(t, err)
	require.NotNil(t, out.NewLesson)

	assert.Equal(t, model.LessonStatusCancelled, f.lesson(t, lesson.ID).Status)

	replacement := f.lesson(t, out.NewLesson.ID)
	assert.Equal(t, model.LessonStatusConfirmed, replacement.Status)
	assert.True(t, replacement.StartTime.Equal(at(9, 10, 0)))
	assert.Equal(t, lesson.DurationMinutes, replacement.DurationMinutes)
	assert.Equal(t, lesson.EnrollmentID, replacement.EnrollmentID)
	assert.Equal(t, f.teacher.ID, replacement.TeacherID)
	require.NotNil(t, replacement.ReplacesLessonID)
	assert.Equal(t, lesson.ID, *replacement.ReplacesLessonID)

	active := f.teacherLessons(t, f.teacher.ID)
	require.Len(t, active, 1)
	assert.Equal(t, replacement.ID, active[0].ID)

	stored := f.request(t, req.ID)
	assert.Equal(t, model.RequestStatusCompleted, stored.Status)
	require.NotNil(t, stored.ResultLessonID)
	assert.Equal(t, replacement.ID, *stored.ResultLessonID)

	events, err := f.requests.History(f.ctx, req.ID)
	require.NoError(t, err)
	var path []model.RequestStatus
	for _, e := range events {
		path = append(path, e.ToStatus)
	}
	assert.Equal(t, []model.RequestStatus{
		model.RequestStatusPending,
		model.RequestStatusTeacherApproved,
		model.RequestStatusCompleted,
	}, path)
}

func TestApproveRollsBackOnPersistenceFailure(t *testing.T) {
	for _, op := range []string{"lessons.create", "lessons.update_status", "requests.transition", "requests.add_event"} {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t)
			lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
			req := f.create(t, lesson, model.RequestTypeTrocaAula, ptr(at(9, 10, 0)), nil)

			f.store.FailOn(op, errors.New("connection reset"))
			_, err := f.workflow.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.teacherActor()})
			require.Error(t, err)
			assert.Equal(t, model.KindPersistence, model.KindOf(err))
			assert.False(t, model.IsUserCorrectable(err))

			assert.Equal(t, model.LessonStatusConfirmed, f.lesson(t, lesson.ID).Status)
			assert.Len(t, f.teacherLessons(t, f.teacher.ID), 1)
			assert.Equal(t, model.RequestStatusPending, f.request(t, req.ID).Status)
			assert.Empty(t, f.notes.Sent())

			f.store.FailOn(op, nil)
			_, err = f.requests.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.teacherActor()})
			require.NoError(t, err)
		})
	}
}

func TestApproveRevalidatesSlot(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
	req := f.create(t, lesson, model.RequestTypeTrocaAula, ptr(at(9, 10, 0)), nil)

	// слот занят после создания заявки
	other, err := f.calendar.CreateEnrollment(f.ctx, EnrollmentInput{StudentID: f.student.ID, LessonType: model.LessonTypeParticular})
	require.NoError(t, err)
	f.book(t, other.ID, f.teacher.ID, at(9, 10, 30))

	_, err = f.requests.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.teacherActor()})
	require.ErrorIs(t, err, model.ErrSlotConflict)
	assert.False(t, model.IsUserCorrectable(err))

	assert.Equal(t, model.LessonStatusConfirmed, f.lesson(t, lesson.ID).Status)
	assert.Equal(t, model.RequestStatusPending, f.request(t, req.ID).Status)
	assert.Len(t, f.teacherLessons(t, f.teacher.ID), 2)
}

func TestApproveRejectsStartThatHasPassed(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
	req := f.create(t, lesson, model.RequestTypeTrocaAula, ptr(at(3, 10, 0)), nil)

	f.clock.Set(at(3, 11, 0))
	_, err := f.requests.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.teacherActor()})
	assert.ErrorIs(t, err, model.ErrSlotConflict)
}

func TestApproveTrocaProfessor(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
	req := f.create(t, lesson, model.RequestTypeTrocaProfessor, nil, &f.teacher2.ID)

	out, err := f.workflow.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.teacherActor()})
	require.NoError(t, err)

	assert.Equal(t, f.teacher2.ID, out.NewLesson.TeacherID)
	assert.True(t, out.NewLesson.StartTime.Equal(lesson.StartTime))
	assert.Empty(t, f.teacherLessons(t, f.teacher.ID))
	assert.Len(t, f.teacherLessons(t, f.teacher2.ID), 1)

	sent := f.notes.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Recipients, notify.Teacher(f.teacher2.ID))
	assert.Contains(t, sent[0].Recipients, notify.Student(f.student.ID))
}

func TestConcurrentApprovals(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
	req := f.create(t, lesson, model.RequestTypeTrocaAula, ptr(at(9, 10, 0)), nil)

	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < attempts; i++ {
		actor := f.teacherActor()
		if i%2 == 1 {
			actor = f.adminActor()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.requests.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: actor})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, model.ErrInvalidState)
	}
	assert.Equal(t, 1, succeeded)

	active := f.teacherLessons(t, f.teacher.ID)
	require.Len(t, active, 1)
	assert.NotEqual(t, lesson.ID, active[0].ID)
	assert.Equal(t, model.RequestStatusCompleted, f.request(t, req.ID).Status)
}

func TestEscalationPath(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
	req := f.create(t, lesson, model.RequestTypeCancelamento, nil, nil)

	out, err := f.workflow.Reject(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.teacherActor(), Notes: "sem reposição"})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusTeacherRejected, out.Request.Status)
	assert.Equal(t, []notify.Kind{notify.KindRequestRejected, notify.KindRequestEscalated}, f.notes.Kinds())

	// учитель больше не решает
	_, err = f.requests.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.teacherActor()})
	assert.ErrorIs(t, err, model.ErrInvalidState)

	// открытая заявка блокирует новую
	_, err = f.requests.Create(f.ctx, CreateRequestInput{LessonID: lesson.ID, RequesterID: f.student.ID, Type: model.RequestTypeCancelamento})
	assert.ErrorIs(t, err, model.ErrInvalidState)

	escalated, err := f.requests.Escalated(f.ctx)
	require.NoError(t, err)
	require.Len(t, escalated, 1)

	out, err = f.requests.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.adminActor(), Notes: "liberado"})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCompleted, out.Request.Status)
	assert.Equal(t, "liberado", f.request(t, req.ID).AdminNotes)
	assert.Equal(t, model.LessonStatusCancelled, f.lesson(t, lesson.ID).Status)
}

func TestAdminFinalReject(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
	req := f.create(t, lesson, model.RequestTypeCancelamento, nil, nil)

	_, err := f.requests.AdminReject(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.adminActor()})
	assert.ErrorIs(t, err, model.ErrInvalidState)

	_, err = f.requests.Reject(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.teacherActor()})
	require.NoError(t, err)

	_, err = f.requests.AdminReject(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.teacherActor()})
	assert.ErrorIs(t, err, model.ErrForbidden)

	out, err := f.requests.AdminReject(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.adminActor(), Notes: "fora do prazo"})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusAdminRejected, out.Request.Status)

	stored := f.request(t, req.ID)
	assert.Equal(t, "fora do prazo", stored.AdminNotes)
	assert.NotNil(t, stored.ResolvedAt)
	assert.Equal(t, model.LessonStatusConfirmed, f.lesson(t, lesson.ID).Status)

	// после окончательного отказа можно подать новую заявку
	f.create(t, lesson, model.RequestTypeCancelamento, nil, nil)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	f := newFixture(t)

	completedLesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
	completed := f.create(t, completedLesson, model.RequestTypeCancelamento, nil, nil)
	_, err := f.requests.Approve(f.ctx, ResolveInput{RequestID: completed.ID, Actor: f.teacherActor()})
	require.NoError(t, err)

	rejectedLesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(6, 14, 0))
	rejected := f.create(t, rejectedLesson, model.RequestTypeCancelamento, nil, nil)
	_, err = f.requests.Reject(f.ctx, ResolveInput{RequestID: rejected.ID, Actor: f.teacherActor()})
	require.NoError(t, err)
	_, err = f.requests.AdminReject(f.ctx, ResolveInput{RequestID: rejected.ID, Actor: f.adminActor()})
	require.NoError(t, err)

	ops := map[string]func(ResolveInput) (*Outcome, error){
		"approve":      func(in ResolveInput) (*Outcome, error) { return f.requests.Approve(f.ctx, in) },
		"reject":       func(in ResolveInput) (*Outcome, error) { return f.requests.Reject(f.ctx, in) },
		"admin reject": func(in ResolveInput) (*Outcome, error) { return f.requests.AdminReject(f.ctx, in) },
	}
	for _, req := range []*model.ChangeRequest{completed, rejected} {
		before := f.request(t, req.ID)
		for name, op := range ops {
			for _, actor := range []Actor{f.teacherActor(), f.adminActor()} {
				_, err := op(ResolveInput{RequestID: req.ID, Actor: actor})
				assert.ErrorIs(t, err, model.ErrInvalidState, "%s by %s", name, actor.Role)
			}
		}
		assert.Equal(t, before, f.request(t, req.ID))
	}
}

func TestActorChecks(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
	req := f.create(t, lesson, model.RequestTypeCancelamento, nil, nil)

	other := Actor{UserID: f.teacher2.ID, Role: model.UserRoleTeacher}
	student := Actor{UserID: f.student.ID, Role: model.UserRoleStudent}

	_, err := f.requests.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: other})
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.requests.Reject(f.ctx, ResolveInput{RequestID: req.ID, Actor: other})
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.requests.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: student})
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.requests.Approve(f.ctx, ResolveInput{RequestID: 999, Actor: f.teacherActor()})
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.requests.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: Actor{UserID: 1, Role: "guest"}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	assert.Equal(t, model.RequestStatusPending, f.request(t, req.ID).Status)

	// администратор может одобрить и PENDING, без промежуточного TEACHER_APPROVED
	_, err = f.requests.Approve(f.ctx, ResolveInput{RequestID: req.ID, Actor: f.adminActor()})
	require.NoError(t, err)
	events, err := f.requests.History(f.ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.RequestStatusCompleted, events[1].ToStatus)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	l1 := f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))
	l2 := f.book(t, f.enrollment.ID, f.teacher2.ID, at(5, 14, 0))
	r1 := f.create(t, l1, model.RequestTypeCancelamento, nil, nil)
	f.create(t, l2, model.RequestTypeCancelamento, nil, nil)

	pending, err := f.requests.PendingForTeacher(f.ctx, f.teacher.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, r1.ID, pending[0].ID)

	byLesson, err := f.requests.ForLesson(f.ctx, l1.ID)
	require.NoError(t, err)
	assert.Len(t, byLesson, 1)

	_, err = f.requests.Get(f.ctx, 12345)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
