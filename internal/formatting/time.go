// Package formatting форматирование дат, статусов и заявок для сообщений бота
package formatting

import (
	"fmt"
	"time"
)

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

// FormatDate форматирует только дату
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatDateWithWeekday форматирует дату с коротким днём недели
func FormatDateWithWeekday(t time.Time) string {
	return fmt.Sprintf("%s %s", GetWeekdayShortName(int(t.Weekday())), t.Format("02/01"))
}

// FormatTime форматирует только время
func FormatTime(t time.Time) string {
	return t.Format("15:04")
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

// FormatDuration форматирует длительность в минутах
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%02d", hours, mins)
}

// GetWeekdayName возвращает название дня недели на португальском
func GetWeekdayName(weekday int) string {
	names := []string{
		"Domingo",
		"Segunda-feira",
		"Terça-feira",
		"Quarta-feira",
		"Quinta-feira",
		"Sexta-feira",
		"Sábado",
	}
	if weekday >= 0 && weekday < len(names) {
		return names[weekday]
	}
	return "Desconhecido"
}

// GetWeekdayShortName возвращает краткое название дня недели
func GetWeekdayShortName(weekday int) string {
	names := []string{"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"}
	if weekday >= 0 && weekday < len(names) {
		return names[weekday]
	}
	return "?"
}
