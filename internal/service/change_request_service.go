package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/interfaces"
	"github.com/Freeeeeet/lesson_scheduler/internal/scheduling"
)

// Actor кто выполняет действие над заявкой
type Actor struct {
	UserID int64          `json:"user_id" validate:"gt=0"`
	Role   model.UserRole `json:"role" validate:"oneof=student teacher admin"`
}

// CreateRequestInput данные новой заявки
type CreateRequestInput struct {
	LessonID           int64             `json:"lesson_id" validate:"gt=0"`
	RequesterID        int64             `json:"requester_id" validate:"gt=0"`
	Type               model.RequestType `json:"type" validate:"oneof=CANCELAMENTO TROCA_AULA TROCA_PROFESSOR"`
	RequestedStart     *time.Time        `json:"requested_start"`
	RequestedTeacherID *int64            `json:"requested_teacher_id" validate:"omitempty,gt=0"`
	Notes              string            `json:"notes" validate:"max=1000"`
}

// ResolveInput решение по заявке
type ResolveInput struct {
	RequestID int64  `json:"request_id" validate:"gt=0"`
	Actor     Actor  `json:"actor"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// Outcome заявка после операции и затронутые занятия
type Outcome struct {
	Request   *model.ChangeRequest
	Lesson    *model.Lesson // исходное занятие
	NewLesson *model.Lesson // замена, только для одобренного переноса
}

// ChangeRequestService конечный автомат заявок на изменение занятий.
// Уведомления здесь не отправляются, это делает вызывающий код (см. RequestWorkflow).
type ChangeRequestService struct {
	store  interfaces.Store
	policy *scheduling.Policy
	clock  clock.Clock
	logger *zap.Logger
}

func NewChangeRequestService(store interfaces.Store, policy *scheduling.Policy, clk clock.Clock, logger *zap.Logger) *ChangeRequestService {
	return &ChangeRequestService{
		store:  store,
		policy: policy,
		clock:  clk,
		logger: logger,
	}
}

// Create создаёт заявку в статусе PENDING
func (s *ChangeRequestService) Create(ctx context.Context, in CreateRequestInput) (*Outcome, error) {
	lesson, err := s.store.Lessons().GetByID(ctx, in.LessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, fmt.Errorf("lesson %d: %w", in.LessonID, model.ErrNotFound)
	}

	enrollment, err := s.store.Enrollments().GetByID(ctx, lesson.EnrollmentID)
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, fmt.Errorf("enrollment %d: %w", lesson.EnrollmentID, model.ErrNotFound)
	}

	// Групповые занятия отклоняются до любых других проверок
	if err := scheduling.CheckRequestable(enrollment); err != nil {
		return nil, err
	}

	if err := validateInput(in); err != nil {
		return nil, err
	}
	if enrollment.StudentID != in.RequesterID {
		return nil, fmt.Errorf("%w: lesson %d does not belong to user %d", model.ErrForbidden, lesson.ID, in.RequesterID)
	}
	if err := s.checkRequestedTarget(ctx, in); err != nil {
		return nil, err
	}

	if lesson.Status != model.LessonStatusConfirmed {
		return nil, fmt.Errorf("%w: lesson %d is %s", model.ErrInvalidState, lesson.ID, lesson.Status)
	}

	open, err := s.store.ChangeRequests().GetOpenByLessonID(ctx, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("get open request: %w", err)
	}
	if open != nil {
		return nil, fmt.Errorf("%w: lesson %d already has request %d in %s",
			model.ErrInvalidState, lesson.ID, open.ID, open.Status)
	}

	if err := s.policy.CheckChange(ctx, lesson, enrollment); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	req := &model.ChangeRequest{
		LessonID:           lesson.ID,
		RequesterID:        in.RequesterID,
		Type:               in.Type,
		Status:             model.RequestStatusPending,
		RequestedStart:     in.RequestedStart,
		RequestedTeacherID: in.RequestedTeacherID,
		RequesterNotes:     in.Notes,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.Repositories) error {
		if err := tx.ChangeRequests().Create(ctx, req); err != nil {
			return err
		}
		return tx.ChangeRequests().AddEvent(ctx, &model.ChangeRequestEvent{
			RequestID: req.ID,
			ToStatus:  model.RequestStatusPending,
			ActorID:   in.RequesterID,
			Notes:     in.Notes,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create request: %w", persistence(err))
	}

	s.logger.Info("Change request created",
		zap.Int64("request_id", req.ID),
		zap.Int64("lesson_id", lesson.ID),
		zap.String("type", string(req.Type)),
	)

	return &Outcome{Request: req, Lesson: lesson}, nil
}

// checkRequestedTarget новое время в будущем, новый учитель существует
func (s *ChangeRequestService) checkRequestedTarget(ctx context.Context, in CreateRequestInput) error {
	if in.RequestedStart != nil && !in.RequestedStart.After(s.clock.Now()) {
		return fmt.Errorf("%w: requested start %s is not in the future",
			model.ErrInvalidInput, in.RequestedStart.Format(time.RFC3339))
	}

	if in.RequestedTeacherID == nil {
		return nil
	}

	teacher, err := s.store.Users().GetByID(ctx, *in.RequestedTeacherID)
	if err != nil {
		return fmt.Errorf("get requested teacher: %w", err)
	}
	if teacher == nil {
		return fmt.Errorf("teacher %d: %w", *in.RequestedTeacherID, model.ErrNotFound)
	}
	if !teacher.IsTeacher() {
		return fmt.Errorf("%w: user %d is not a teacher", model.ErrInvalidInput, teacher.ID)
	}

	return nil
}

// Approve одобряет заявку. Отмена занятия, создание замены и смена статуса выполняются
// одной транзакцией: при любой ошибке ничего не меняется.
func (s *ChangeRequestService) Approve(ctx context.Context, in ResolveInput) (*Outcome, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var out *Outcome
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.Repositories) error {
		req, lesson, err := s.loadForDecision(ctx, tx, in.RequestID)
		if err != nil {
			return err
		}
		if err := authorizeApproval(in.Actor, req, lesson); err != nil {
			return err
		}

		now := s.clock.Now()
		out = &Outcome{Request: req, Lesson: lesson}

		switch req.Type {
		case model.RequestTypeCancelamento:
			if err := tx.Lessons().UpdateStatus(ctx, lesson.ID, model.LessonStatusConfirmed, model.LessonStatusCancelled); err != nil {
				return fmt.Errorf("cancel lesson: %w", persistence(err))
			}
		case model.RequestTypeTrocaAula, model.RequestTypeTrocaProfessor:
			newLesson, err := s.reschedule(ctx, tx, req, lesson, now)
			if err != nil {
				return err
			}
			out.NewLesson = newLesson
		default:
			return fmt.Errorf("%w: unknown request type %q", model.ErrInvalidState, req.Type)
		}
		lesson.Status = model.LessonStatusCancelled

		steps := []model.RequestStatus{model.RequestStatusCompleted}
		if req.Status == model.RequestStatusPending && in.Actor.Role == model.UserRoleTeacher {
			steps = []model.RequestStatus{model.RequestStatusTeacherApproved, model.RequestStatusCompleted}
		}

		for _, to := range steps {
			t := model.Transition{From: req.Status, To: to, At: now}
			if to == model.RequestStatusCompleted {
				t.ResolvedAt = &now
				if out.NewLesson != nil {
					t.ResultLessonID = &out.NewLesson.ID
				}
				if in.Actor.Role == model.UserRoleAdmin && in.Notes != "" {
					t.AdminNotes = &in.Notes
				}
			}
			if err := s.transition(ctx, tx, req, t, in.Actor.UserID, in.Notes); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		s.logger.Warn("Change request approval failed",
			zap.Int64("request_id", in.RequestID),
			zap.Int64("actor_id", in.Actor.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	fields := []zap.Field{
		zap.Int64("request_id", out.Request.ID),
		zap.Int64("lesson_id", out.Lesson.ID),
		zap.String("type", string(out.Request.Type)),
		zap.Int64("actor_id", in.Actor.UserID),
	}
	if out.NewLesson != nil {
		fields = append(fields, zap.Int64("new_lesson_id", out.NewLesson.ID))
	}
	s.logger.Info("Change request approved", fields...)

	return out, nil
}

// reschedule перепроверяет конфликт на текущем расписании учителя, отменяет исходное занятие
// и создаёт замену
func (s *ChangeRequestService) reschedule(ctx context.Context, tx interfaces.Repositories, req *model.ChangeRequest, lesson *model.Lesson, now time.Time) (*model.Lesson, error) {
	teacherID := lesson.TeacherID
	if req.RequestedTeacherID != nil {
		teacherID = *req.RequestedTeacherID
	}
	start := lesson.StartTime
	if req.RequestedStart != nil {
		start = *req.RequestedStart
	}
	end := start.Add(time.Duration(lesson.DurationMinutes) * time.Minute)

	if !start.After(now) {
		return nil, fmt.Errorf("%w: requested start %s has already passed",
			model.ErrSlotConflict, start.Format(time.RFC3339))
	}

	// Две заявки не должны одновременно занять одно время учителя
	if err := tx.LockTeacher(ctx, teacherID); err != nil {
		return nil, fmt.Errorf("lock teacher: %w", persistence(err))
	}

	bookings, err := tx.Lessons().GetActiveByTeacherInRange(ctx, teacherID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get teacher bookings: %w", persistence(err))
	}
	if conflict := scheduling.FindConflict(bookings, start, end, lesson.ID); conflict != nil {
		return nil, fmt.Errorf("%w: teacher %d is busy with lesson %d at %s",
			model.ErrSlotConflict, teacherID, conflict.ID, conflict.StartTime.Format(time.RFC3339))
	}

	if err := tx.Lessons().UpdateStatus(ctx, lesson.ID, model.LessonStatusConfirmed, model.LessonStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel original lesson: %w", persistence(err))
	}

	replaces := lesson.ID
	newLesson := &model.Lesson{
		EnrollmentID:     lesson.EnrollmentID,
		GroupName:        lesson.GroupName,
		TeacherID:        teacherID,
		StartTime:        start,
		DurationMinutes:  lesson.DurationMinutes,
		Status:           model.LessonStatusConfirmed,
		Notes:            lesson.Notes,
		ReplacesLessonID: &replaces,
	}
	if err := tx.Lessons().Create(ctx, newLesson); err != nil {
		return nil, fmt.Errorf("create replacement lesson: %w", persistence(err))
	}

	return newLesson, nil
}

// Reject отказ учителя: заявка уходит администратору
func (s *ChangeRequestService) Reject(ctx context.Context, in ResolveInput) (*Outcome, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var out *Outcome
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.Repositories) error {
		req, lesson, err := s.loadForDecision(ctx, tx, in.RequestID)
		if err != nil {
			return err
		}
		if in.Actor.Role != model.UserRoleTeacher {
			return fmt.Errorf("%w: only the teacher rejects a pending request", model.ErrForbidden)
		}
		if req.Status != model.RequestStatusPending {
			return fmt.Errorf("%w: request %d is %s", model.ErrInvalidState, req.ID, req.Status)
		}
		if lesson.TeacherID != in.Actor.UserID {
			return fmt.Errorf("%w: lesson %d belongs to another teacher", model.ErrForbidden, lesson.ID)
		}

		t := model.Transition{From: req.Status, To: model.RequestStatusTeacherRejected, At: s.clock.Now()}
		if err := s.transition(ctx, tx, req, t, in.Actor.UserID, in.Notes); err != nil {
			return err
		}

		out = &Outcome{Request: req, Lesson: lesson}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Change request rejected by teacher",
		zap.Int64("request_id", out.Request.ID),
		zap.Int64("teacher_id", in.Actor.UserID),
	)

	return out, nil
}

// AdminReject окончательный отказ администратора
func (s *ChangeRequestService) AdminReject(ctx context.Context, in ResolveInput) (*Outcome, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var out *Outcome
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.Repositories) error {
		req, lesson, err := s.loadForDecision(ctx, tx, in.RequestID)
		if err != nil {
			return err
		}
		if in.Actor.Role != model.UserRoleAdmin {
			return fmt.Errorf("%w: only an administrator closes an escalated request", model.ErrForbidden)
		}
		if req.Status != model.RequestStatusTeacherRejected {
			return fmt.Errorf("%w: request %d is %s", model.ErrInvalidState, req.ID, req.Status)
		}

		now := s.clock.Now()
		t := model.Transition{
			From:       req.Status,
			To:         model.RequestStatusAdminRejected,
			ResolvedAt: &now,
			At:         now,
		}
		if in.Notes != "" {
			t.AdminNotes = &in.Notes
		}
		if err := s.transition(ctx, tx, req, t, in.Actor.UserID, in.Notes); err != nil {
			return err
		}

		out = &Outcome{Request: req, Lesson: lesson}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Change request rejected by admin",
		zap.Int64("request_id", out.Request.ID),
		zap.Int64("admin_id", in.Actor.UserID),
	)

	return out, nil
}

// loadForDecision блокирует заявку и её занятие. Конечные статусы не меняются никогда.
func (s *ChangeRequestService) loadForDecision(ctx context.Context, tx interfaces.Repositories, requestID int64) (*model.ChangeRequest, *model.Lesson, error) {
	req, err := tx.ChangeRequests().GetForUpdate(ctx, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("get request: %w", persistence(err))
	}
	if req == nil {
		return nil, nil, fmt.Errorf("request %d: %w", requestID, model.ErrNotFound)
	}
	if req.Status.IsTerminal() {
		return nil, nil, fmt.Errorf("%w: request %d is already %s", model.ErrInvalidState, req.ID, req.Status)
	}

	lesson, err := tx.Lessons().GetForUpdate(ctx, req.LessonID)
	if err != nil {
		return nil, nil, fmt.Errorf("get lesson: %w", persistence(err))
	}
	if lesson == nil {
		return nil, nil, fmt.Errorf("lesson %d: %w", req.LessonID, model.ErrNotFound)
	}

	return req, lesson, nil
}

// authorizeApproval учитель одобряет только свои PENDING, администратор ещё и TEACHER_REJECTED
func authorizeApproval(actor Actor, req *model.ChangeRequest, lesson *model.Lesson) error {
	switch actor.Role {
	case model.UserRoleTeacher:
		if lesson.TeacherID != actor.UserID {
			return fmt.Errorf("%w: lesson %d belongs to another teacher", model.ErrForbidden, lesson.ID)
		}
		if req.Status != model.RequestStatusPending {
			return fmt.Errorf("%w: request %d is %s, waiting for administrator", model.ErrInvalidState, req.ID, req.Status)
		}
		return nil
	case model.UserRoleAdmin:
		if !req.Status.CanTransitionTo(model.RequestStatusCompleted) {
			return fmt.Errorf("%w: request %d is %s", model.ErrInvalidState, req.ID, req.Status)
		}
		return nil
	default:
		return fmt.Errorf("%w: role %q cannot approve requests", model.ErrForbidden, actor.Role)
	}
}

// transition применяет переход с проверкой текущего статуса и пишет историю
func (s *ChangeRequestService) transition(ctx context.Context, tx interfaces.Repositories, req *model.ChangeRequest, t model.Transition, actorID int64, notes string) error {
	if !t.From.CanTransitionTo(t.To) {
		return fmt.Errorf("%w: %s -> %s is not allowed", model.ErrInvalidState, t.From, t.To)
	}

	if err := tx.ChangeRequests().Transition(ctx, req.ID, t); err != nil {
		return fmt.Errorf("transition request %d: %w", req.ID, persistence(err))
	}
	if err := tx.ChangeRequests().AddEvent(ctx, &model.ChangeRequestEvent{
		RequestID:  req.ID,
		FromStatus: t.From,
		ToStatus:   t.To,
		ActorID:    actorID,
		Notes:      notes,
		CreatedAt:  t.At,
	}); err != nil {
		return fmt.Errorf("record request event: %w", persistence(err))
	}

	req.Status = t.To
	req.UpdatedAt = t.At
	if t.ResolvedAt != nil {
		req.ResolvedAt = t.ResolvedAt
	}
	if t.ResultLessonID != nil {
		req.ResultLessonID = t.ResultLessonID
	}
	if t.AdminNotes != nil {
		req.AdminNotes = *t.AdminNotes
	}

	return nil
}

// Get получает заявку
func (s *ChangeRequestService) Get(ctx context.Context, id int64) (*model.ChangeRequest, error) {
	req, err := s.store.ChangeRequests().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %d: %w", id, model.ErrNotFound)
	}
	return req, nil
}

// History переходы заявки по порядку
func (s *ChangeRequestService) History(ctx context.Context, id int64) ([]*model.ChangeRequestEvent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ChangeRequests().GetEvents(ctx, id)
}

// PendingForTeacher заявки, ожидающие решения учителя
func (s *ChangeRequestService) PendingForTeacher(ctx context.Context, teacherID int64) ([]*model.ChangeRequest, error) {
	return s.store.ChangeRequests().GetPendingByTeacherID(ctx, teacherID)
}

// Escalated заявки, отклонённые учителями и ожидающие администратора
func (s *ChangeRequestService) Escalated(ctx context.Context) ([]*model.ChangeRequest, error) {
	return s.store.ChangeRequests().GetByStatus(ctx, model.RequestStatusTeacherRejected)
}

// ForLesson все заявки по занятию
func (s *ChangeRequestService) ForLesson(ctx context.Context, lessonID int64) ([]*model.ChangeRequest, error) {
	return s.store.ChangeRequests().GetByLessonID(ctx, lessonID)
}

// persistence оставляет доменные ошибки как есть, остальное считает сбоем хранилища
func persistence(err error) error {
	if err == nil {
		return nil
	}
	switch model.KindOf(err) {
	case model.KindUnknown:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", model.ErrPersistence, err)
	default:
		return err
	}
}
