package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbackdata"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/keyboard"
	"github.com/Freeeeeet/lesson_scheduler/internal/formatting"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

const helpText = "📚 Comandos:\n\n" +
	"/start - Começar\n" +
	"/aulas - Minhas próximas aulas: cancelar ou remarcar\n" +
	"/pendentes - Solicitações aguardando decisão (professores e coordenação)\n" +
	"/feriado DD/MM/AAAA - Cadastrar feriado (coordenação)\n" +
	"/cancel - Interromper o diálogo atual\n" +
	"/help - Esta ajuda"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, m Messenger, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From
	user, err := h.userService.RegisterUser(ctx, from.ID, from.Username, from.FirstName, from.LastName, from.LanguageCode)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.send(ctx, m, update.Message.Chat.ID, "❌ Erro no cadastro. Tente novamente mais tarde.", nil)
		return
	}

	var role string
	switch user.Role {
	case model.UserRoleTeacher:
		role = "Você está cadastrado como professor. Use /pendentes para ver solicitações."
	case model.UserRoleAdmin:
		role = "Você está cadastrado como coordenação. Use /pendentes para ver solicitações escaladas."
	default:
		role = "Use /aulas para cancelar ou remarcar uma aula."
	}

	h.send(ctx, m, update.Message.Chat.ID, fmt.Sprintf("👋 Olá, %s!\n\n%s\n\n%s", user.DisplayName(), role, helpText), nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, m Messenger, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.send(ctx, m, update.Message.Chat.ID, helpText, nil)
}

// HandleLessons обрабатывает команду /aulas: ближайшие занятия студента с кнопками
func (h *Handlers) HandleLessons(ctx context.Context, m Messenger, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, err := h.currentUser(ctx, update.Message.From.ID)
	if err != nil {
		h.replyError(ctx, m, chatID, "lessons", err)
		return
	}

	lessons, err := h.calendarService.UpcomingLessons(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, m, chatID, "lessons", err)
		return
	}
	if len(lessons) == 0 {
		h.send(ctx, m, chatID, "📭 Você não tem aulas agendadas.", nil)
		return
	}

	var text strings.Builder
	text.WriteString("📅 Suas próximas aulas:\n")
	kb := keyboard.NewBuilder()
	for i, l := range lessons {
		fmt.Fprintf(&text, "\n%d. %s", i+1, formatting.FormatLesson(l, h.loc))
		if l.GroupName != "" {
			// групповые занятия через бота не меняются
			continue
		}
		decision, err := h.calendarService.ChangeDecision(ctx, l.ID)
		if err != nil {
			h.logger.Warn("Change decision failed", zap.Int64("lesson_id", l.ID), zap.Error(err))
			continue
		}
		if !decision.Allowed {
			text.WriteString(" ⏰ prazo encerrado")
			continue
		}
		label := formatting.FormatDateWithWeekday(l.StartTime.In(h.loc)) + " " + formatting.FormatTime(l.StartTime.In(h.loc))
		kb.Row(
			keyboard.Button("❌ "+label, callbackdata.Cancel(l.ID)),
			keyboard.Button("🔁 "+label, callbackdata.Reschedule(l.ID)),
		)
	}

	var markup *models.InlineKeyboardMarkup
	if kb.Len() > 0 {
		markup = kb.Build()
	}
	h.send(ctx, m, chatID, text.String(), markup)
}

// HandlePending обрабатывает команду /pendentes.
// Учитель видит заявки PENDING по своим занятиям, администратор эскалированные.
func (h *Handlers) HandlePending(ctx context.Context, m Messenger, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, err := h.currentUser(ctx, update.Message.From.ID)
	if err != nil {
		h.replyError(ctx, m, chatID, "pending", err)
		return
	}

	var requests []*model.ChangeRequest
	switch user.Role {
	case model.UserRoleTeacher:
		requests, err = h.workflow.PendingForTeacher(ctx, user.ID)
	case model.UserRoleAdmin:
		requests, err = h.workflow.Escalated(ctx)
	default:
		h.send(ctx, m, chatID, "🚫 Disponível apenas para professores e coordenação", nil)
		return
	}
	if err != nil {
		h.replyError(ctx, m, chatID, "pending", err)
		return
	}
	if len(requests) == 0 {
		h.send(ctx, m, chatID, "✅ Nenhuma solicitação pendente.", nil)
		return
	}

	for _, req := range requests {
		lesson, err := h.calendarService.Lesson(ctx, req.LessonID)
		if err != nil {
			h.logger.Warn("Lesson for request not loaded",
				zap.Int64("request_id", req.ID),
				zap.Error(err))
			lesson = nil
		}

		kb := keyboard.NewBuilder().Row(
			keyboard.Button("✅ Aprovar", callbackdata.Approve(req.ID)),
			keyboard.Button("❌ Recusar", callbackdata.Reject(req.ID)),
		)
		h.send(ctx, m, chatID, formatting.FormatRequest(req, lesson, h.loc), kb.Build())
	}
}

// HandleHoliday обрабатывает команду администратора /feriado DD/MM/AAAA [nome]
func (h *Handlers) HandleHoliday(ctx context.Context, m Messenger, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, err := h.currentUser(ctx, update.Message.From.ID)
	if err != nil {
		h.replyError(ctx, m, chatID, "holiday", err)
		return
	}
	if !user.IsAdmin() {
		h.replyError(ctx, m, chatID, "holiday", model.ErrForbidden)
		return
	}

	args := strings.Fields(strings.TrimPrefix(update.Message.Text, "/feriado"))
	if len(args) == 0 {
		h.send(ctx, m, chatID, "Uso: /feriado DD/MM/AAAA [nome]", nil)
		return
	}
	date, err := time.ParseInLocation("02/01/2006", args[0], h.loc)
	if err != nil {
		h.send(ctx, m, chatID, "❌ Data inválida. Uso: /feriado DD/MM/AAAA [nome]", nil)
		return
	}

	holiday, err := h.calendarService.AddHoliday(ctx, date, strings.Join(args[1:], " "))
	if err != nil {
		h.replyError(ctx, m, chatID, "holiday", err)
		return
	}
	h.send(ctx, m, chatID, "📅 Feriado cadastrado: "+formatting.FormatDateWithWeekday(holiday.Date.In(h.loc)), nil)
}
