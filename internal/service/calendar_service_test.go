package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

func TestBookLessonDetectsConflicts(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 14, 0))

	_, err := f.calendar.BookLesson(f.ctx, BookLessonInput{
		EnrollmentID:    f.enrollment.ID,
		TeacherID:       f.teacher.ID,
		StartTime:       at(5, 14, 30),
		DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, model.ErrSlotConflict)

	// стык без пересечения допустим
	f.book(t, f.enrollment.ID, f.teacher.ID, at(5, 15, 0))

	_, err = f.calendar.BookLesson(f.ctx, BookLessonInput{
		EnrollmentID:    f.enrollment.ID,
		TeacherID:       f.student.ID,
		StartTime:       at(6, 15, 0),
		DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestBookLessonSharesGroupOccurrence(t *testing.T) {
	f := newFixture(t)

	var groups []*model.Enrollment
	for _, name := range []string{"Turma A", " Turma A "} {
		e, err := f.calendar.CreateEnrollment(f.ctx, EnrollmentInput{
			StudentID:  f.student.ID,
			LessonType: model.LessonTypeGroup,
			GroupName:  name,
		})
		require.NoError(t, err)
		groups = append(groups, e)
	}

	first := f.book(t, groups[0].ID, f.teacher.ID, at(4, 18, 0))
	second := f.book(t, groups[1].ID, f.teacher.ID, at(4, 18, 0))
	assert.Equal(t, first.Occurrence(), second.Occurrence())

	// индивидуальное занятие в то же время конфликтует
	_, err := f.calendar.BookLesson(f.ctx, BookLessonInput{
		EnrollmentID:    f.enrollment.ID,
		TeacherID:       f.teacher.ID,
		StartTime:       at(4, 18, 0),
		DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, model.ErrSlotConflict)

	_, err = f.calendar.CreateEnrollment(f.ctx, EnrollmentInput{StudentID: f.student.ID, LessonType: model.LessonTypeGroup})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestReplaceAvailability(t *testing.T) {
	f := newFixture(t)

	err := f.calendar.ReplaceAvailability(f.ctx, f.teacher.ID, []AvailabilityInput{
		{DayOfWeek: 1, StartMinute: 840, EndMinute: 960},
		{DayOfWeek: 3, StartMinute: 480, EndMinute: 600},
	})
	require.NoError(t, err)

	err = f.calendar.ReplaceAvailability(f.ctx, f.teacher.ID, []AvailabilityInput{
		{DayOfWeek: 1, StartMinute: 840, EndMinute: 960},
	})
	require.NoError(t, err)

	slots, err := f.store.Availability().GetByTeacherID(f.ctx, f.teacher.ID)
	require.NoError(t, err)
	assert.Len(t, slots, 1)

	err = f.calendar.ReplaceAvailability(f.ctx, f.teacher.ID, []AvailabilityInput{
		{DayOfWeek: 2, StartMinute: 600, EndMinute: 600},
	})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	err = f.calendar.ReplaceAvailability(f.ctx, 4242, nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProposalsForReschedule(t *testing.T) {
	f := newFixture(t)

	// понедельник 14:00-16:00, занято 14:30-15:30
	require.NoError(t, f.calendar.ReplaceAvailability(f.ctx, f.teacher.ID, []AvailabilityInput{
		{DayOfWeek: 1, StartMinute: 840, EndMinute: 960},
		{DayOfWeek: 3, StartMinute: 840, EndMinute: 960},
	}))
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(4, 14, 0))
	f.book(t, f.enrollment.ID, f.teacher.ID, at(9, 14, 30))

	slots, err := f.calendar.ProposeSlots(f.ctx, lesson.ID, nil, at(9, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, slots)

	slots, err = f.calendar.ProposeSlots(f.ctx, lesson.ID, nil, at(11, 0, 0))
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.True(t, slots[0].Start.Equal(at(11, 14, 0)))

	_, err = f.calendar.AddHoliday(f.ctx, at(11, 0, 0), "Feriado")
	require.NoError(t, err)

	dates, err := f.calendar.ProposeDates(f.ctx, lesson.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	// 09/03 занят, 11/03 праздник
	assert.Equal(t, "2026-03-16", dates[0].Format("2006-01-02"))
	assert.Equal(t, "2026-03-18", dates[1].Format("2006-01-02"))

	// другой учитель без окон доступен всегда
	dates, err = f.calendar.ProposeDates(f.ctx, lesson.ID, &f.teacher2.ID, 1)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "2026-03-05", dates[0].Format("2006-01-02"))
}

func TestChangeDecision(t *testing.T) {
	f := newFixture(t)
	lesson := f.book(t, f.enrollment.ID, f.teacher.ID, at(2, 12, 0))

	d, err := f.calendar.ChangeDecision(f.ctx, lesson.ID)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 6, d.ThresholdHours)

	upcoming, err := f.calendar.UpcomingLessons(f.ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)

	_, err = f.calendar.Lesson(f.ctx, 9999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
