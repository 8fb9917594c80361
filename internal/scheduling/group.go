package scheduling

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

// GroupKey нормализованное имя группы
func GroupKey(name string) string {
	return strings.TrimSpace(name)
}

// IsGroupLesson групповое ли зачисление: тип GROUP и непустое имя группы
func IsGroupLesson(enrollment *model.Enrollment) bool {
	if enrollment == nil {
		return false
	}
	return enrollment.LessonType == model.LessonTypeGroup && GroupKey(enrollment.GroupName) != ""
}

// CheckRequestable запрещает самостоятельные заявки по групповым занятиям
func CheckRequestable(enrollment *model.Enrollment) error {
	if IsGroupLesson(enrollment) {
		return fmt.Errorf("%w: enrollment %d belongs to group %q",
			model.ErrUnsupportedForGroup, enrollment.ID, GroupKey(enrollment.GroupName))
	}
	return nil
}

// SameOccurrence одно ли это календарное занятие
func SameOccurrence(a, b *model.Lesson) bool {
	return a.Occurrence() == b.Occurrence()
}

// DistinctOccurrences оставляет по одной активной строке на календарное занятие
func DistinctOccurrences(lessons []*model.Lesson) []*model.Lesson {
	seen := make(map[model.OccurrenceKey]struct{}, len(lessons))
	out := make([]*model.Lesson, 0, len(lessons))
	for _, lesson := range lessons {
		if lesson == nil || !lesson.IsBusy() {
			continue
		}
		key := lesson.Occurrence()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, lesson)
	}
	return out
}
