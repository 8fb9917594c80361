package formatting

import "github.com/Freeeeeet/lesson_scheduler/internal/model"

// StatusDisplay отображение статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

func (d StatusDisplay) String() string {
	return d.Emoji + " " + d.Text
}

// GetRequestStatusDisplay возвращает emoji и текст для статуса заявки
func GetRequestStatusDisplay(status model.RequestStatus) StatusDisplay {
	displays := map[model.RequestStatus]StatusDisplay{
		model.RequestStatusPending:         {"⏳", "Aguardando professor"},
		model.RequestStatusTeacherApproved: {"👍", "Aprovada pelo professor"},
		model.RequestStatusTeacherRejected: {"⚠️", "Recusada pelo professor, aguardando coordenação"},
		model.RequestStatusAdminRejected:   {"🚫", "Recusada"},
		model.RequestStatusCompleted:       {"✅", "Concluída"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Desconhecido"}
}

// GetLessonStatusDisplay возвращает emoji и текст для статуса занятия
func GetLessonStatusDisplay(status model.LessonStatus) StatusDisplay {
	displays := map[model.LessonStatus]StatusDisplay{
		model.LessonStatusConfirmed: {"🟢", "Confirmada"},
		model.LessonStatusCancelled: {"⚫️", "Cancelada"},
		model.LessonStatusReposicao: {"🔁", "Reposição"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Desconhecido"}
}

// GetRequestTypeName название вида заявки
func GetRequestTypeName(t model.RequestType) string {
	switch t {
	case model.RequestTypeCancelamento:
		return "Cancelamento"
	case model.RequestTypeTrocaAula:
		return "Troca de horário"
	case model.RequestTypeTrocaProfessor:
		return "Troca de professor"
	default:
		return string(t)
	}
}
