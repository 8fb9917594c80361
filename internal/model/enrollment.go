package model

import "time"

type LessonType string

const (
	LessonTypeParticular LessonType = "PARTICULAR"
	LessonTypeGroup      LessonType = "GROUP"
)

// Enrollment договор студента (или группы) со школой
type Enrollment struct {
	ID                  int64      `json:"id"`
	StudentID           int64      `json:"student_id"`
	LessonType          LessonType `json:"lesson_type"`
	GroupName           string     `json:"group_name"`
	NoticeHoursOverride *int       `json:"notice_hours_override"` // nil = политика по умолчанию
	SourceSchool        string     `json:"source_school"`
	CreatedAt           time.Time  `json:"created_at"`
}
