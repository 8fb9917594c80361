package model

import (
	"strings"
	"time"
)

type LessonStatus string

const (
	LessonStatusConfirmed LessonStatus = "CONFIRMED" // Подтверждено
	LessonStatusCancelled LessonStatus = "CANCELLED" // Отменено, больше не активируется
	LessonStatusReposicao LessonStatus = "REPOSICAO"  // Занятие-отработка, замена уже существует
)

// Lesson одно занятие учителя со студентом или группой
type Lesson struct {
	ID               int64        `json:"id"`
	EnrollmentID     int64        `json:"enrollment_id"`
	GroupName        string       `json:"group_name"` // пусто для индивидуальных занятий
	TeacherID        int64        `json:"teacher_id"`
	StartTime        time.Time    `json:"start_time"`
	DurationMinutes  int          `json:"duration_minutes"`
	Status           LessonStatus `json:"status"`
	Notes            string       `json:"notes"`
	ReplacesLessonID *int64       `json:"replaces_lesson_id"` // исходное занятие, если это замена
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// EndTime возвращает время окончания занятия
func (l *Lesson) EndTime() time.Time {
	return l.StartTime.Add(time.Duration(l.DurationMinutes) * time.Minute)
}

// IsBusy занимает ли занятие время учителя
func (l *Lesson) IsBusy() bool {
	return l.Status != LessonStatusCancelled
}

// OccurrenceKey идентифицирует календарное занятие.
// Строки групповых занятий с одинаковыми (группа, начало) это одно и то же занятие.
type OccurrenceKey struct {
	GroupName string
	Start     int64
	LessonID  int64
}

// Occurrence возвращает ключ календарного занятия
func (l *Lesson) Occurrence() OccurrenceKey {
	name := strings.TrimSpace(l.GroupName)
	if name == "" {
		return OccurrenceKey{LessonID: l.ID}
	}
	return OccurrenceKey{GroupName: name, Start: l.StartTime.Unix()}
}
