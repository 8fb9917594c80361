package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/state"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
)

// Messenger часть API бота, нужная обработчикам. *bot.Bot её реализует.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService     *service.UserService
	calendarService *service.CalendarService
	workflow        *service.RequestWorkflow
	dialogs         *state.Manager
	loc             *time.Location
	logger          *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService *service.UserService,
	calendarService *service.CalendarService,
	workflow *service.RequestWorkflow,
	dialogs *state.Manager,
	loc *time.Location,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		userService:     userService,
		calendarService: calendarService,
		workflow:        workflow,
		dialogs:         dialogs,
		loc:             loc,
		logger:          logger,
	}
}
