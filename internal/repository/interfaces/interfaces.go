// Package interfaces описывает контракты хранилища, которые используют сервисы.
// Реализации: repository (PostgreSQL) и repository/memory.
package interfaces

import (
	"context"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

type LessonsRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)
	// GetForUpdate блокирует строку до конца транзакции
	GetForUpdate(ctx context.Context, id int64) (*model.Lesson, error)
	// GetActiveByTeacherInRange неотменённые занятия, пересекающие [from, to)
	GetActiveByTeacherInRange(ctx context.Context, teacherID int64, from, to time.Time) ([]*model.Lesson, error)
	GetUpcomingByStudent(ctx context.Context, studentID int64, from time.Time) ([]*model.Lesson, error)
	Create(ctx context.Context, lesson *model.Lesson) error
	// UpdateStatus меняет статус только если текущий равен from, иначе ErrInvalidState
	UpdateStatus(ctx context.Context, id int64, from, to model.LessonStatus) error
}

type EnrollmentsRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Enrollment, error)
	Create(ctx context.Context, enrollment *model.Enrollment) error
}

type AvailabilityRepository interface {
	GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.TeacherAvailabilitySlot, error)
	Create(ctx context.Context, slot *model.TeacherAvailabilitySlot) error
	DeleteByTeacherID(ctx context.Context, teacherID int64) error
}

type HolidaysRepository interface {
	// DatesInRange даты праздников между from и to включительно (по календарной дате)
	DatesInRange(ctx context.Context, from, to time.Time) (model.HolidaySet, error)
	Create(ctx context.Context, holiday *model.Holiday) error
}

type ChangeRequestsRepository interface {
	GetByID(ctx context.Context, id int64) (*model.ChangeRequest, error)
	GetForUpdate(ctx context.Context, id int64) (*model.ChangeRequest, error)
	GetOpenByLessonID(ctx context.Context, lessonID int64) (*model.ChangeRequest, error)
	GetByLessonID(ctx context.Context, lessonID int64) ([]*model.ChangeRequest, error)
	GetPendingByTeacherID(ctx context.Context, teacherID int64) ([]*model.ChangeRequest, error)
	GetByStatus(ctx context.Context, status model.RequestStatus) ([]*model.ChangeRequest, error)
	// Create возвращает ErrInvalidState, если по занятию уже есть открытая заявка
	Create(ctx context.Context, req *model.ChangeRequest) error
	// Transition переводит заявку только из статуса t.From, иначе ErrInvalidState
	Transition(ctx context.Context, id int64, t model.Transition) error
	AddEvent(ctx context.Context, event *model.ChangeRequestEvent) error
	GetEvents(ctx context.Context, requestID int64) ([]*model.ChangeRequestEvent, error)
}

type UsersRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByRole(ctx context.Context, role model.UserRole) ([]*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
}

// Repositories набор репозиториев, привязанных к соединению или транзакции
type Repositories interface {
	Lessons() LessonsRepository
	Enrollments() EnrollmentsRepository
	Availability() AvailabilityRepository
	Holidays() HolidaysRepository
	ChangeRequests() ChangeRequestsRepository
	Users() UsersRepository
	// LockTeacher сериализует изменения расписания учителя до конца транзакции
	LockTeacher(ctx context.Context, teacherID int64) error
}

// Store хранилище с поддержкой атомарных изменений
type Store interface {
	Repositories
	// WithinTx выполняет fn в одной транзакции. Ошибка из fn откатывает все изменения.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
