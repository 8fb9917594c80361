package scheduling

import (
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

// Overlaps пересекаются ли полуоткрытые интервалы [aStart, aEnd) и [bStart, bEnd).
// Касание концами конфликтом не считается.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func overlapsMinutes(a, b Window) bool {
	return a.Start < b.End && b.Start < a.End
}

// FindConflict возвращает первое активное занятие, пересекающее [start, end).
// Занятия из ignore не учитываются (например, переносимое занятие).
func FindConflict(bookings []*model.Lesson, start, end time.Time, ignore ...int64) *model.Lesson {
	for _, lesson := range bookings {
		if lesson == nil || !lesson.IsBusy() || contains(ignore, lesson.ID) {
			continue
		}
		if Overlaps(start, end, lesson.StartTime, lesson.EndTime()) {
			return lesson
		}
	}
	return nil
}

// HasConflict есть ли пересечение с активными занятиями
func HasConflict(bookings []*model.Lesson, start, end time.Time, ignore ...int64) bool {
	return FindConflict(bookings, start, end, ignore...) != nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
