package model

import "time"

const MinutesPerDay = 24 * 60

// TeacherAvailabilitySlot еженедельное окно, когда учитель свободен
type TeacherAvailabilitySlot struct {
	ID          int64     `json:"id"`
	TeacherID   int64     `json:"teacher_id"`
	DayOfWeek   int       `json:"day_of_week"`  // 0 = Sunday, 6 = Saturday
	StartMinute int       `json:"start_minute"` // минута от начала дня
	EndMinute   int       `json:"end_minute"`   // не включительно, максимум 1440
	CreatedAt   time.Time `json:"created_at"`
}

// Valid проверяет границы окна
func (s *TeacherAvailabilitySlot) Valid() bool {
	return s.DayOfWeek >= 0 && s.DayOfWeek <= 6 &&
		s.StartMinute >= 0 && s.EndMinute <= MinutesPerDay &&
		s.StartMinute < s.EndMinute
}
