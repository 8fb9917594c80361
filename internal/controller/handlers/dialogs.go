package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/state"
)

// HandleTextMessage обрабатывает текст вне команд: ответы в незавершённых диалогах
func (h *Handlers) HandleTextMessage(ctx context.Context, m Messenger, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	dialog, ok := h.dialogs.Take(telegramID)
	if !ok {
		h.send(ctx, m, chatID, "🤔 Não entendi. Veja /help", nil)
		return
	}

	switch dialog.State {
	case state.StateRejectReason:
		user, err := h.currentUser(ctx, telegramID)
		if err != nil {
			h.replyError(ctx, m, chatID, "reject_request", err)
			return
		}

		notes := strings.TrimSpace(update.Message.Text)
		if notes == skipReason {
			notes = ""
		}
		h.reject(ctx, m, chatID, user, dialog.RequestID, notes)
	}
}

// HandleCancel обрабатывает команду /cancel: прерывает текущий диалог
func (h *Handlers) HandleCancel(ctx context.Context, m Messenger, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	if _, ok := h.dialogs.Take(update.Message.From.ID); !ok {
		h.send(ctx, m, update.Message.Chat.ID, "Nada para cancelar.", nil)
		return
	}
	h.send(ctx, m, update.Message.Chat.ID, "↩️ Ok, cancelado.", nil)
}
