package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
)

type ChangeRequestRepository struct {
	base.Repository
}

const changeRequestColumns = `cr.id, cr.lesson_id, cr.requester_id, cr.type, cr.status, cr.requested_start,
	cr.requested_teacher_id, cr.requester_notes, cr.admin_notes, cr.result_lesson_id,
	cr.created_at, cr.updated_at, cr.resolved_at`

func scanChangeRequest(row pgx.Row) (*model.ChangeRequest, error) {
	var req model.ChangeRequest
	err := row.Scan(
		&req.ID,
		&req.LessonID,
		&req.RequesterID,
		&req.Type,
		&req.Status,
		&req.RequestedStart,
		&req.RequestedTeacherID,
		&req.RequesterNotes,
		&req.AdminNotes,
		&req.ResultLessonID,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *ChangeRequestRepository) getOne(ctx context.Context, op, query string, args ...any) (*model.ChangeRequest, error) {
	req, err := scanChangeRequest(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return req, nil
}

func (r *ChangeRequestRepository) getMany(ctx context.Context, op, query string, args ...any) ([]*model.ChangeRequest, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var requests []*model.ChangeRequest
	for rows.Next() {
		req, err := scanChangeRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan change request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return requests, nil
}

// GetByID получает заявку по ID
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id int64) (*model.ChangeRequest, error) {
	return r.getOne(ctx, "get change request by id",
		`SELECT `+changeRequestColumns+` FROM change_requests cr WHERE cr.id = $1`, id)
}

// GetForUpdate получает заявку и блокирует строку
func (r *ChangeRequestRepository) GetForUpdate(ctx context.Context, id int64) (*model.ChangeRequest, error) {
	return r.getOne(ctx, "get change request for update",
		`SELECT `+changeRequestColumns+` FROM change_requests cr WHERE cr.id = $1 FOR UPDATE`, id)
}

// GetOpenByLessonID получает незавершённую заявку по занятию
func (r *ChangeRequestRepository) GetOpenByLessonID(ctx context.Context, lessonID int64) (*model.ChangeRequest, error) {
	return r.getOne(ctx, "get open change request",
		`SELECT `+changeRequestColumns+` FROM change_requests cr
		 WHERE cr.lesson_id = $1 AND cr.status = ANY($2)`,
		lessonID, openStatuses())
}

// GetByLessonID получает историю заявок по занятию
func (r *ChangeRequestRepository) GetByLessonID(ctx context.Context, lessonID int64) ([]*model.ChangeRequest, error) {
	return r.getMany(ctx, "get change requests by lesson",
		`SELECT `+changeRequestColumns+` FROM change_requests cr WHERE cr.lesson_id = $1 ORDER BY cr.id`, lessonID)
}

// GetPendingByTeacherID получает заявки, ожидающие решения учителя
func (r *ChangeRequestRepository) GetPendingByTeacherID(ctx context.Context, teacherID int64) ([]*model.ChangeRequest, error) {
	query := `
		SELECT ` + changeRequestColumns + `
		FROM change_requests cr
		JOIN lessons l ON l.id = cr.lesson_id
		WHERE l.teacher_id = $1 AND cr.status = $2
		ORDER BY cr.id
	`
	return r.getMany(ctx, "get pending change requests by teacher", query, teacherID, model.RequestStatusPending)
}

// GetByStatus получает заявки в статусе
func (r *ChangeRequestRepository) GetByStatus(ctx context.Context, status model.RequestStatus) ([]*model.ChangeRequest, error) {
	return r.getMany(ctx, "get change requests by status",
		`SELECT `+changeRequestColumns+` FROM change_requests cr WHERE cr.status = $1 ORDER BY cr.id`, status)
}

// Create создаёт заявку. Частичный уникальный индекс не даёт открыть вторую заявку по занятию.
func (r *ChangeRequestRepository) Create(ctx context.Context, req *model.ChangeRequest) error {
	query := `
		INSERT INTO change_requests (lesson_id, requester_id, type, status, requested_start, requested_teacher_id, requester_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		req.LessonID,
		req.RequesterID,
		req.Type,
		req.Status,
		req.RequestedStart,
		req.RequestedTeacherID,
		req.RequesterNotes,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("lesson %d already has an open request: %w", req.LessonID, model.ErrInvalidState)
		}
		return fmt.Errorf("create change request: %w", err)
	}

	return nil
}

// Transition переводит заявку в новый статус, если текущий равен t.From
func (r *ChangeRequestRepository) Transition(ctx context.Context, id int64, t model.Transition) error {
	query := `
		UPDATE change_requests
		SET status = $1,
		    admin_notes = COALESCE($2, admin_notes),
		    result_lesson_id = COALESCE($3, result_lesson_id),
		    resolved_at = COALESCE($4, resolved_at),
		    updated_at = $5
		WHERE id = $6 AND status = $7
	`

	affected, err := r.ExecAffected(ctx, query, t.To, t.AdminNotes, t.ResultLessonID, t.ResolvedAt, t.At, id, t.From)
	if err != nil {
		return fmt.Errorf("transition change request: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("change request %d is not %s: %w", id, t.From, model.ErrInvalidState)
	}

	return nil
}

// AddEvent записывает переход в историю
func (r *ChangeRequestRepository) AddEvent(ctx context.Context, event *model.ChangeRequestEvent) error {
	query := `
		INSERT INTO change_request_events (request_id, from_status, to_status, actor_id, notes, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, COALESCE($6, NOW()))
		RETURNING id, created_at
	`

	var at *time.Time
	if !event.CreatedAt.IsZero() {
		at = &event.CreatedAt
	}

	err := r.QueryRow(ctx, query,
		event.RequestID,
		string(event.FromStatus),
		event.ToStatus,
		event.ActorID,
		event.Notes,
		at,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("add change request event: %w", err)
	}

	return nil
}

// GetEvents получает историю заявки
func (r *ChangeRequestRepository) GetEvents(ctx context.Context, requestID int64) ([]*model.ChangeRequestEvent, error) {
	query := `
		SELECT id, request_id, COALESCE(from_status, ''), to_status, actor_id, notes, created_at
		FROM change_request_events
		WHERE request_id = $1
		ORDER BY id
	`

	rows, err := r.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("get change request events: %w", err)
	}
	defer rows.Close()

	var events []*model.ChangeRequestEvent
	for rows.Next() {
		var e model.ChangeRequestEvent
		if err := rows.Scan(&e.ID, &e.RequestID, &e.FromStatus, &e.ToStatus, &e.ActorID, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan change request event: %w", err)
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}

func openStatuses() []string {
	out := make([]string, len(model.OpenRequestStatuses))
	for i, s := range model.OpenRequestStatuses {
		out[i] = string(s)
	}
	return out
}
