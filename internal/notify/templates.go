package notify

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/formatting"
)

// Render текст уведомления в часовом поясе школы
func Render(n Notification, loc *time.Location) string {
	if n.Text != "" {
		return n.Text
	}
	if n.Request == nil {
		return ""
	}

	details := formatting.FormatRequest(n.Request, n.Lesson, loc)

	switch n.Kind {
	case KindRequestCreated:
		return "🔔 Nova solicitação de aluno\n\n" + details
	case KindRequestCompleted:
		text := "✅ Sua solicitação foi atendida\n\n" + details
		if n.NewLesson != nil {
			text += fmt.Sprintf("\n\nNova aula: %s", formatting.FormatLesson(n.NewLesson, loc))
		}
		return text
	case KindRequestRejected:
		return "⚠️ O professor recusou sua solicitação. A coordenação vai analisar.\n\n" + details
	case KindRequestEscalated:
		return "📋 Solicitação recusada pelo professor aguarda decisão da coordenação\n\n" + details
	case KindRequestClosed:
		return "🚫 Sua solicitação foi recusada pela coordenação\n\n" + details
	default:
		return details
	}
}
