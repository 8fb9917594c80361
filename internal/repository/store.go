// Package repository реализация хранилища на PostgreSQL (pgx)
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/interfaces"
)

// teacherLockKey текстовый ключ блокировки расписания учителя; id не усекается
func teacherLockKey(teacherID int64) string {
	return fmt.Sprintf("teacher:%d", teacherID)
}

// Store хранилище поверх пула соединений
type Store struct {
	pool *pgxpool.Pool
	repos
}

var _ interfaces.Store = (*Store)(nil)

// NewStore создаёт хранилище
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:  pool,
		repos: repos{base.NewRepository(pool)},
	}
}

// WithinTx выполняет fn в транзакции. Репозитории tx привязаны к этой транзакции.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, repos{base.NewRepository(tx)})
	})
}

// repos набор репозиториев поверх одного соединения
type repos struct {
	db base.Repository
}

func (r repos) Lessons() interfaces.LessonsRepository {
	return &LessonRepository{Repository: r.db}
}

func (r repos) Enrollments() interfaces.EnrollmentsRepository {
	return &EnrollmentRepository{Repository: r.db}
}

func (r repos) Availability() interfaces.AvailabilityRepository {
	return &AvailabilityRepository{Repository: r.db}
}

func (r repos) Holidays() interfaces.HolidaysRepository {
	return &HolidayRepository{Repository: r.db}
}

func (r repos) ChangeRequests() interfaces.ChangeRequestsRepository {
	return &ChangeRequestRepository{Repository: r.db}
}

func (r repos) Users() interfaces.UsersRepository {
	return &UserRepository{Repository: r.db}
}

// LockTeacher берёт транзакционную advisory-блокировку. Вне транзакции блокировка
// снимается сразу после запроса, поэтому вызывать её имеет смысл только в WithinTx.
func (r repos) LockTeacher(ctx context.Context, teacherID int64) error {
	if _, err := r.db.DB().Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, teacherLockKey(teacherID)); err != nil {
		return fmt.Errorf("lock teacher %d: %w", teacherID, err)
	}
	return nil
}
