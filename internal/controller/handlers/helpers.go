package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbackdata"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

var ErrUserNotRegistered = errors.New("user not registered")

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUserNotRegistered):
		return "❌ Usuário não encontrado. Use /start"
	case errors.Is(err, callbackdata.ErrInvalidFormat):
		return "❌ Botão inválido ou desatualizado"
	}

	switch model.KindOf(err) {
	case model.KindUnsupportedForGroup:
		return "👥 Aulas em grupo não podem ser alteradas pelo bot. Fale com a coordenação."
	case model.KindPolicyViolation:
		return "⏰ Fora do prazo: a aula está muito próxima ou cai em feriado."
	case model.KindInvalidInput:
		return "❌ Dados inválidos"
	case model.KindForbidden:
		return "🚫 Você não tem permissão para esta ação"
	case model.KindNotFound:
		return "❌ Aula ou solicitação não encontrada"
	case model.KindInvalidState:
		return "⚠️ Esta aula ou solicitação já foi alterada"
	case model.KindSlotConflict:
		return "⚠️ Este horário não está mais disponível. Escolha outro."
	case model.KindPersistence:
		return "❌ Erro ao salvar. Tente novamente mais tarde."
	default:
		return "❌ Ocorreu um erro"
	}
}

// currentUser загружает зарегистрированного пользователя
func (h *Handlers) currentUser(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := h.userService.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotRegistered
	}
	return user, nil
}

func (h *Handlers) send(ctx context.Context, m Messenger, chatID int64, text string, markup *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	_, err := m.SendMessage(ctx, params)
	if err != nil {
		h.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// answer отвечает на callback query; alert показывает всплывающее окно
func (h *Handlers) answer(ctx context.Context, m Messenger, callbackID, text string, alert bool) {
	_, err := m.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}

// replyError логирует ошибку и показывает её пользователю
func (h *Handlers) replyError(ctx context.Context, m Messenger, chatID int64, op string, err error) {
	switch model.KindOf(err) {
	case model.KindUnknown, model.KindPersistence:
		h.logger.Error("Request failed", zap.String("op", op), zap.Error(err))
	default:
		h.logger.Info("Request refused", zap.String("op", op), zap.Error(err))
	}
	h.send(ctx, m, chatID, ErrorMessage(err), nil)
}
