package scheduling

import (
	"context"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

var brt = time.FixedZone("BRT", -3*3600)

// 2026-03-02 понедельник, 08:00
var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, brt)

type fakeCalendar struct {
	slots    []*model.TeacherAvailabilitySlot
	lessons  []*model.Lesson
	holidays []time.Time
}

func (f *fakeCalendar) GetByTeacherID(_ context.Context, teacherID int64) ([]*model.TeacherAvailabilitySlot, error) {
	var out []*model.TeacherAvailabilitySlot
	for _, s := range f.slots {
		if s.TeacherID == teacherID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCalendar) GetActiveByTeacherInRange(_ context.Context, teacherID int64, from, to time.Time) ([]*model.Lesson, error) {
	var out []*model.Lesson
	for _, l := range f.lessons {
		if l.TeacherID == teacherID && l.IsBusy() && Overlaps(l.StartTime, l.EndTime(), from, to) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCalendar) DatesInRange(_ context.Context, from, to time.Time) (model.HolidaySet, error) {
	set := model.HolidaySet{}
	for _, h := range f.holidays {
		day := clock.StartOfDay(h, brt)
		if !day.Before(clock.StartOfDay(from, brt)) && !day.After(clock.StartOfDay(to, brt)) {
			set.Add(day)
		}
	}
	return set, nil
}

func newTestEngine(cal *fakeCalendar, cfg ProposalConfig) *Engine {
	return NewEngine(cal, cal, cal, clock.Fixed(testNow, brt), cfg)
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, brt)
}

func lesson(id, teacherID int64, start time.Time, minutes int) *model.Lesson {
	return &model.Lesson{
		ID:              id,
		EnrollmentID:    id,
		TeacherID:       teacherID,
		StartTime:       start,
		DurationMinutes: minutes,
		Status:          model.LessonStatusConfirmed,
	}
}
