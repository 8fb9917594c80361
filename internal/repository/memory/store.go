// Package memory хранилище в памяти. Используется в режиме разработки без БД и в тестах.
// Транзакция держит эксклюзивную блокировку и работает с копией состояния,
// которая подменяет основное состояние только при успешном завершении.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/interfaces"
)

type state struct {
	seq          int64
	users        map[int64]*model.User
	lessons      map[int64]*model.Lesson
	enrollments  map[int64]*model.Enrollment
	availability map[int64]*model.TeacherAvailabilitySlot
	holidays     map[int64]*model.Holiday
	requests     map[int64]*model.ChangeRequest
	events       []*model.ChangeRequestEvent
}

func newState() *state {
	return &state{
		users:        make(map[int64]*model.User),
		lessons:      make(map[int64]*model.Lesson),
		enrollments:  make(map[int64]*model.Enrollment),
		availability: make(map[int64]*model.TeacherAvailabilitySlot),
		holidays:     make(map[int64]*model.Holiday),
		requests:     make(map[int64]*model.ChangeRequest),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for id, v := range s.users {
		c.users[id] = copyOf(v)
	}
	for id, v := range s.lessons {
		c.lessons[id] = copyOf(v)
	}
	for id, v := range s.enrollments {
		c.enrollments[id] = copyOf(v)
	}
	for id, v := range s.availability {
		c.availability[id] = copyOf(v)
	}
	for id, v := range s.holidays {
		c.holidays[id] = copyOf(v)
	}
	for id, v := range s.requests {
		c.requests[id] = copyOf(v)
	}
	c.events = make([]*model.ChangeRequestEvent, len(s.events))
	for i, v := range s.events {
		c.events[i] = copyOf(v)
	}
	return c
}

func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Store хранилище в памяти
type Store struct {
	mu     sync.RWMutex
	st     *state
	faults map[string]error
	root   *session
	clock  clock.Clock
}

var _ interfaces.Store = (*Store)(nil)

// NewStore создаёт пустое хранилище. CreatedAt и UpdatedAt берутся из clk.
func NewStore(clk clock.Clock) *Store {
	s := &Store{
		st:     newState(),
		faults: make(map[string]error),
		clock:  clk,
	}
	s.root = &session{store: s}
	return s
}

// FailOn заставляет операцию op возвращать err (например "lessons.create").
// nil снимает сбой.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// WithinTx выполняет fn на копии состояния и применяет её только при успехе
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(ctx, &session{store: s, st: work, inTx: true}); err != nil {
		return err
	}

	s.st = work
	return nil
}

func (s *Store) Lessons() interfaces.LessonsRepository               { return s.root.Lessons() }
func (s *Store) Enrollments() interfaces.EnrollmentsRepository       { return s.root.Enrollments() }
func (s *Store) Availability() interfaces.AvailabilityRepository     { return s.root.Availability() }
func (s *Store) Holidays() interfaces.HolidaysRepository             { return s.root.Holidays() }
func (s *Store) ChangeRequests() interfaces.ChangeRequestsRepository { return s.root.ChangeRequests() }
func (s *Store) Users() interfaces.UsersRepository                   { return s.root.Users() }

func (s *Store) LockTeacher(ctx context.Context, teacherID int64) error {
	return s.root.LockTeacher(ctx, teacherID)
}

// session привязка репозиториев к основному состоянию или к копии внутри транзакции
type session struct {
	store *Store
	st    *state
	inTx  bool
}

func (x *session) read(fn func(st *state)) {
	if x.inTx {
		fn(x.st)
		return
	}
	x.store.mu.RLock()
	defer x.store.mu.RUnlock()
	fn(x.store.st)
}

func (x *session) write(op string, fn func(st *state) error) error {
	if !x.inTx {
		x.store.mu.Lock()
		defer x.store.mu.Unlock()
	}
	if err := x.store.faults[op]; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if x.inTx {
		return fn(x.st)
	}
	return fn(x.store.st)
}

func (x *session) Lessons() interfaces.LessonsRepository           { return lessonsRepo{x} }
func (x *session) Enrollments() interfaces.EnrollmentsRepository   { return enrollmentsRepo{x} }
func (x *session) Availability() interfaces.AvailabilityRepository { return availabilityRepo{x} }
func (x *session) Holidays() interfaces.HolidaysRepository         { return holidaysRepo{x} }
func (x *session) ChangeRequests() interfaces.ChangeRequestsRepository {
	return requestsRepo{x}
}
func (x *session) Users() interfaces.UsersRepository { return usersRepo{x} }

// LockTeacher внутри транзакции блокировка уже эксклюзивная
func (x *session) LockTeacher(ctx context.Context, _ int64) error {
	return ctx.Err()
}

func (x *session) now() time.Time {
	return x.store.clock.Now()
}
