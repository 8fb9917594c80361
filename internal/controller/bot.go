package controller

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/handlers"
)

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(botInstance *bot.Bot, h *handlers.Handlers, logger *zap.Logger) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: h,
		logger:   logger,
	}
}

type handlerFunc func(ctx context.Context, m handlers.Messenger, update *models.Update)

func adapt(fn handlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		fn(ctx, b, update)
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, adapt(c.handlers.HandleStart))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, adapt(c.handlers.HandleHelp))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/aulas", bot.MatchTypeExact, adapt(c.handlers.HandleLessons))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pendentes", bot.MatchTypeExact, adapt(c.handlers.HandlePending))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, adapt(c.handlers.HandleCancel))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/feriado", bot.MatchTypePrefix, adapt(c.handlers.HandleHoliday))

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, adapt(c.handlers.HandleCallbackQuery))

	return c.setCommands(ctx)
}

// HandleDefault получает обновления без подходящего обработчика (bot.WithDefaultHandler).
// Текст вне команд идёт в незавершённые диалоги.
func (c *BotController) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message != nil && update.Message.Text != "" {
		c.handlers.HandleTextMessage(ctx, b, update)
	}
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Começar"},
		{Command: "aulas", Description: "📅 Minhas aulas: cancelar ou remarcar"},
		{Command: "pendentes", Description: "📝 Solicitações pendentes"},
		{Command: "cancel", Description: "↩️ Interromper o diálogo atual"},
		{Command: "help", Description: "❓ Ajuda"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены контекста
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
