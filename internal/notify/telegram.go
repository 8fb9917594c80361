package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/interfaces"
)

// MessageSender часть *bot.Bot, нужная для отправки
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramSender отправляет уведомления в личные чаты Telegram
type TelegramSender struct {
	bot    MessageSender
	users  interfaces.UsersRepository
	loc    *time.Location
	logger *zap.Logger
}

func NewTelegramSender(b MessageSender, users interfaces.UsersRepository, loc *time.Location, logger *zap.Logger) *TelegramSender {
	return &TelegramSender{
		bot:    b,
		users:  users,
		loc:    loc,
		logger: logger,
	}
}

func (s *TelegramSender) Send(ctx context.Context, n Notification) error {
	chats, err := s.resolve(ctx, n.Recipients)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		s.logger.Warn("notification has no reachable recipients",
			zap.String("notification_id", n.ID.String()),
			zap.String("kind", string(n.Kind)),
		)
		return nil
	}

	text := Render(n, s.loc)

	var errs []error
	for _, chatID := range chats {
		_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   text,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("send to chat %d: %w", chatID, err))
		}
	}

	return errors.Join(errs...)
}

// resolve переводит получателей в telegram id без повторов
func (s *TelegramSender) resolve(ctx context.Context, recipients []Recipient) ([]int64, error) {
	seen := make(map[int64]struct{})
	var chats []int64

	add := func(u *model.User) {
		if u == nil || u.TelegramID == 0 {
			return
		}
		if _, ok := seen[u.TelegramID]; ok {
			return
		}
		seen[u.TelegramID] = struct{}{}
		chats = append(chats, u.TelegramID)
	}

	for _, r := range recipients {
		if r.UserID == 0 && r.Role == model.UserRoleAdmin {
			admins, err := s.users.GetByRole(ctx, model.UserRoleAdmin)
			if err != nil {
				return nil, fmt.Errorf("get admins: %w", err)
			}
			for _, a := range admins {
				add(a)
			}
			continue
		}

		u, err := s.users.GetByID(ctx, r.UserID)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", r.UserID, err)
		}
		add(u)
	}

	return chats, nil
}
