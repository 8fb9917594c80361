package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbackdata"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/keyboard"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/state"
	"github.com/Freeeeeet/lesson_scheduler/internal/formatting"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
)

const (
	maxProposedDates = 8
	datesPerRow      = 2
	slotsPerRow      = 3

	skipReason = "-"
)

// HandleCallbackQuery распределяет нажатия inline кнопок
func (h *Handlers) HandleCallbackQuery(ctx context.Context, m Messenger, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	chatID := cq.From.ID

	h.logger.Info("Routing callback",
		zap.String("data", cq.Data),
		zap.Int64("user_id", cq.From.ID))

	data, err := callbackdata.Parse(cq.Data, h.loc)
	if err != nil {
		h.answer(ctx, m, cq.ID, ErrorMessage(err), true)
		return
	}
	if data.Action == callbackdata.ActionNoop {
		h.answer(ctx, m, cq.ID, "", false)
		return
	}

	user, err := h.currentUser(ctx, cq.From.ID)
	if err != nil {
		h.answer(ctx, m, cq.ID, ErrorMessage(err), true)
		return
	}
	// снимаем "часики" с кнопки, дальше отвечаем сообщением
	h.answer(ctx, m, cq.ID, "", false)

	switch data.Action {
	case callbackdata.ActionCancel:
		h.requestChange(ctx, m, chatID, user, data.ID, model.RequestTypeCancelamento, nil)
	case callbackdata.ActionReschedule:
		h.proposeDates(ctx, m, chatID, data.ID)
	case callbackdata.ActionDate:
		h.proposeSlots(ctx, m, chatID, data)
	case callbackdata.ActionSlot:
		start := data.Start
		h.requestChange(ctx, m, chatID, user, data.ID, model.RequestTypeTrocaAula, &start)
	case callbackdata.ActionApprove:
		h.approve(ctx, m, chatID, user, data.ID)
	case callbackdata.ActionReject:
		h.askRejectReason(ctx, m, chatID, cq.From.ID, user, data.ID)
	}
}

func (h *Handlers) requestChange(ctx context.Context, m Messenger, chatID int64, user *model.User, lessonID int64, typ model.RequestType, start *time.Time) {
	out, err := h.workflow.Create(ctx, service.CreateRequestInput{
		LessonID:       lessonID,
		RequesterID:    user.ID,
		Type:           typ,
		RequestedStart: start,
	})
	if err != nil {
		h.replyError(ctx, m, chatID, "create_request", err)
		return
	}

	h.send(ctx, m, chatID,
		"✅ Solicitação enviada ao professor.\n\n"+formatting.FormatRequest(out.Request, out.Lesson, h.loc), nil)
}

func (h *Handlers) proposeDates(ctx context.Context, m Messenger, chatID, lessonID int64) {
	dates, err := h.calendarService.ProposeDates(ctx, lessonID, nil, maxProposedDates)
	if err != nil {
		h.replyError(ctx, m, chatID, "propose_dates", err)
		return
	}
	if len(dates) == 0 {
		h.send(ctx, m, chatID, "📭 Não há datas disponíveis para remarcar esta aula.", nil)
		return
	}

	buttons := make([]models.InlineKeyboardButton, 0, len(dates))
	for _, d := range dates {
		buttons = append(buttons, keyboard.Button(formatting.FormatDateWithWeekday(d), callbackdata.Date(lessonID, d)))
	}
	h.send(ctx, m, chatID, "📅 Escolha a nova data:", keyboard.NewBuilder().Grid(datesPerRow, buttons...).Build())
}

func (h *Handlers) proposeSlots(ctx context.Context, m Messenger, chatID int64, data callbackdata.Data) {
	slots, err := h.calendarService.ProposeSlots(ctx, data.ID, nil, data.Date)
	if err != nil {
		h.replyError(ctx, m, chatID, "propose_slots", err)
		return
	}
	if len(slots) == 0 {
		h.send(ctx, m, chatID, "📭 Não há horários livres nesta data. Escolha outra com /aulas.", nil)
		return
	}

	buttons := make([]models.InlineKeyboardButton, 0, len(slots))
	for _, s := range slots {
		buttons = append(buttons, keyboard.Button(formatting.FormatTime(s.Start.In(h.loc)), callbackdata.Slot(data.ID, s.Start)))
	}
	h.send(ctx, m, chatID,
		fmt.Sprintf("🕐 Horários livres em %s:", formatting.FormatDateWithWeekday(data.Date)),
		keyboard.NewBuilder().Grid(slotsPerRow, buttons...).Build())
}

func actorOf(user *model.User) service.Actor {
	return service.Actor{UserID: user.ID, Role: user.Role}
}

func (h *Handlers) approve(ctx context.Context, m Messenger, chatID int64, user *model.User, requestID int64) {
	out, err := h.workflow.Approve(ctx, service.ResolveInput{RequestID: requestID, Actor: actorOf(user)})
	if err != nil {
		h.replyError(ctx, m, chatID, "approve_request", err)
		return
	}

	text := "✅ Solicitação aprovada.\n\n" + formatting.FormatRequest(out.Request, out.Lesson, h.loc)
	if out.NewLesson != nil {
		text += "\nNova aula: " + formatting.FormatLesson(out.NewLesson, h.loc)
	}
	h.send(ctx, m, chatID, text, nil)
}

// askRejectReason начинает диалог: следующее сообщение станет причиной отказа
func (h *Handlers) askRejectReason(ctx context.Context, m Messenger, chatID, telegramID int64, user *model.User, requestID int64) {
	if user.Role != model.UserRoleTeacher && user.Role != model.UserRoleAdmin {
		h.replyError(ctx, m, chatID, "reject_request", model.ErrForbidden)
		return
	}

	h.dialogs.Start(telegramID, state.StateRejectReason, requestID)
	h.send(ctx, m, chatID, fmt.Sprintf(
		"✏️ Informe o motivo da recusa da solicitação #%d.\nEnvie %s para recusar sem motivo ou /cancel para desistir.",
		requestID, skipReason), nil)
}

// reject учитель отклоняет PENDING, администратор закрывает эскалированную заявку
func (h *Handlers) reject(ctx context.Context, m Messenger, chatID int64, user *model.User, requestID int64, notes string) {
	in := service.ResolveInput{RequestID: requestID, Actor: actorOf(user), Notes: notes}

	var (
		out *service.Outcome
		err error
	)
	switch user.Role {
	case model.UserRoleAdmin:
		out, err = h.workflow.AdminReject(ctx, in)
	default:
		out, err = h.workflow.Reject(ctx, in)
	}
	if err != nil {
		h.replyError(ctx, m, chatID, "reject_request", err)
		return
	}

	h.send(ctx, m, chatID, "❌ Solicitação recusada.\n\n"+formatting.FormatRequest(out.Request, out.Lesson, h.loc), nil)
}
