package model

import "time"

// Holiday выходной день школы
type Holiday struct {
	ID        int64     `json:"id"`
	Date      time.Time `json:"date"` // только дата, в часовом поясе школы
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DateKey ключ даты праздника
func (h *Holiday) DateKey() string {
	return h.Date.Format(time.DateOnly)
}

// HolidaySet множество дат в формате 2006-01-02
type HolidaySet map[string]struct{}

// Contains проверяет дату. t должен быть уже в часовом поясе школы.
func (s HolidaySet) Contains(t time.Time) bool {
	_, ok := s[t.Format(time.DateOnly)]
	return ok
}

// Add добавляет дату
func (s HolidaySet) Add(t time.Time) {
	s[t.Format(time.DateOnly)] = struct{}{}
}
