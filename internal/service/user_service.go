package service

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/interfaces"
)

type UserService struct {
	userRepo         interfaces.UsersRepository
	adminTelegramIDs []int64
	logger           *zap.Logger
}

func NewUserService(userRepo interfaces.UsersRepository, adminTelegramIDs []int64, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo:         userRepo,
		adminTelegramIDs: adminTelegramIDs,
		logger:           logger,
	}
}

// RegisterUser регистрирует или обновляет пользователя
func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode string) (*model.User, error) {
	// Проверяем существует ли пользователь
	existingUser, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	isAdmin := slices.Contains(s.adminTelegramIDs, telegramID)

	// Если пользователь уже существует, обновляем данные
	if existingUser != nil {
		existingUser.Username = username
		existingUser.FirstName = firstName
		existingUser.LastName = lastName
		existingUser.LanguageCode = languageCode
		if isAdmin {
			existingUser.Role = model.UserRoleAdmin
		}

		err = s.userRepo.Update(ctx, existingUser)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}

		s.logger.Info("User updated",
			zap.Int64("telegram_id", telegramID),
			zap.String("username", username),
		)

		return existingUser, nil
	}

	// Создаём нового пользователя
	user := &model.User{
		TelegramID:   telegramID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		LanguageCode: languageCode,
		Role:         model.UserRoleStudent, // По умолчанию студент
	}
	if isAdmin {
		user.Role = model.UserRoleAdmin
	}

	err = s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", telegramID),
		zap.String("username", username),
		zap.String("role", string(user.Role)),
	)

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// SetRole меняет роль пользователя
func (s *UserService) SetRole(ctx context.Context, telegramID int64, role model.UserRole) error {
	switch role {
	case model.UserRoleStudent, model.UserRoleTeacher, model.UserRoleAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, role)
	}

	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if user == nil {
		return fmt.Errorf("user with telegram id %d: %w", telegramID, model.ErrNotFound)
	}

	user.Role = role
	err = s.userRepo.Update(ctx, user)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User role changed",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(role)),
	)

	return nil
}
