// Package scheduling содержит чистую логику подбора времени для переноса занятий:
// недельную доступность учителя, проверку пересечений, предложения слотов,
// политику заблаговременности и правила групповых занятий.
package scheduling

import (
	"sort"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

// Window интервал [Start, End) в минутах от начала дня
type Window struct {
	Start int
	End   int
}

// Length длина окна в минутах
func (w Window) Length() int {
	return w.End - w.Start
}

// FullDay окно на весь день, используется когда у учителя нет ограничений
var FullDay = Window{Start: 0, End: model.MinutesPerDay}

// AvailabilityIndex недельная доступность одного учителя
type AvailabilityIndex struct {
	open bool
	days [7][]Window
}

// NewAvailabilityIndex строит индекс из сохранённых окон.
// Окна сортируются, пересекающиеся окна не объединяются.
func NewAvailabilityIndex(slots []*model.TeacherAvailabilitySlot) *AvailabilityIndex {
	ix := &AvailabilityIndex{open: true}

	for _, slot := range slots {
		if slot == nil {
			continue
		}
		// Сам факт наличия окон закрывает "открытые двери", даже если окно битое
		ix.open = false
		if !slot.Valid() {
			continue
		}
		ix.days[slot.DayOfWeek] = append(ix.days[slot.DayOfWeek], Window{
			Start: slot.StartMinute,
			End:   slot.EndMinute,
		})
	}

	for day := range ix.days {
		windows := ix.days[day]
		sort.SliceStable(windows, func(i, j int) bool {
			if windows[i].Start != windows[j].Start {
				return windows[i].Start < windows[j].Start
			}
			return windows[i].End < windows[j].End
		})
	}

	return ix
}

// IsOpen у учителя нет ни одного окна: свободен в любое время
func (ix *AvailabilityIndex) IsOpen() bool {
	return ix.open
}

// SlotsForDay возвращает упорядоченные окна на день недели
func (ix *AvailabilityIndex) SlotsForDay(day time.Weekday) []Window {
	if ix.open {
		return []Window{FullDay}
	}
	windows := ix.days[int(day)%7]
	out := make([]Window, len(windows))
	copy(out, windows)
	return out
}
