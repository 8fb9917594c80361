package formatting

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

// FormatLesson однострочное описание занятия
func FormatLesson(l *model.Lesson, loc *time.Location) string {
	start := l.StartTime.In(loc)
	line := fmt.Sprintf("%s %s, %s", FormatDateWithWeekday(start),
		FormatTimeRange(start, l.EndTime().In(loc)), FormatDuration(l.DurationMinutes))
	if name := strings.TrimSpace(l.GroupName); name != "" {
		line += " · turma " + name
	}
	return line
}

// FormatRequest описание заявки для учителя и администратора
func FormatRequest(req *model.ChangeRequest, lesson *model.Lesson, loc *time.Location) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📝 Solicitação #%d: %s\n", req.ID, GetRequestTypeName(req.Type))
	if lesson != nil {
		fmt.Fprintf(&b, "Aula: %s\n", FormatLesson(lesson, loc))
	}
	if req.RequestedStart != nil {
		fmt.Fprintf(&b, "Novo horário: %s\n", FormatDateTime(req.RequestedStart.In(loc)))
	}
	if req.RequesterNotes != "" {
		fmt.Fprintf(&b, "Observação: %s\n", req.RequesterNotes)
	}
	if req.AdminNotes != "" {
		fmt.Fprintf(&b, "Coordenação: %s\n", req.AdminNotes)
	}
	fmt.Fprintf(&b, "Status: %s", GetRequestStatusDisplay(req.Status))

	return b.String()
}
