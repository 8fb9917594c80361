package model

import (
	"fmt"
	"time"
)

// RequestType вид заявки на изменение занятия
type RequestType string

const (
	RequestTypeCancelamento   RequestType = "CANCELAMENTO"    // Отмена занятия
	RequestTypeTrocaAula      RequestType = "TROCA_AULA"      // Перенос на другое время
	RequestTypeTrocaProfessor RequestType = "TROCA_PROFESSOR" // Замена учителя
)

// ParseRequestType разбирает вид заявки из строки
func ParseRequestType(s string) (RequestType, error) {
	switch t := RequestType(s); t {
	case RequestTypeCancelamento, RequestTypeTrocaAula, RequestTypeTrocaProfessor:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown request type %q", ErrInvalidInput, s)
	}
}

// IsReschedule создаёт ли одобрение новое занятие
func (t RequestType) IsReschedule() bool {
	switch t {
	case RequestTypeTrocaAula, RequestTypeTrocaProfessor:
		return true
	case RequestTypeCancelamento:
		return false
	default:
		return false
	}
}

type RequestStatus string

const (
	RequestStatusPending         RequestStatus = "PENDING"          // Ожидает учителя
	RequestStatusTeacherApproved RequestStatus = "TEACHER_APPROVED" // Промежуточный, сразу переходит в COMPLETED
	RequestStatusTeacherRejected RequestStatus = "TEACHER_REJECTED" // Отклонено учителем, ждёт администратора
	RequestStatusAdminRejected   RequestStatus = "ADMIN_REJECTED"   // Окончательно отклонено
	RequestStatusCompleted       RequestStatus = "COMPLETED"        // Изменение применено
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending: {
		RequestStatusTeacherApproved,
		RequestStatusTeacherRejected,
		RequestStatusCompleted,
	},
	RequestStatusTeacherApproved: {RequestStatusCompleted},
	RequestStatusTeacherRejected: {RequestStatusCompleted, RequestStatusAdminRejected},
}

// CanTransitionTo проверяет допустимость перехода
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal COMPLETED и ADMIN_REJECTED конечные
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusAdminRejected
}

// OpenRequestStatuses статусы, которые блокируют новую заявку на то же занятие
var OpenRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusTeacherRejected,
}

// IsOpen есть ли у заявки незавершённое рассмотрение
func (s RequestStatus) IsOpen() bool {
	for _, open := range OpenRequestStatuses {
		if s == open {
			return true
		}
	}
	return false
}

// ChangeRequest заявка студента на отмену или перенос занятия
type ChangeRequest struct {
	ID                 int64         `json:"id"`
	LessonID           int64         `json:"lesson_id"`
	RequesterID        int64         `json:"requester_id"`
	Type               RequestType   `json:"type"`
	Status             RequestStatus `json:"status"`
	RequestedStart     *time.Time    `json:"requested_start"`
	RequestedTeacherID *int64        `json:"requested_teacher_id"`
	RequesterNotes     string        `json:"requester_notes"`
	AdminNotes         string        `json:"admin_notes"`
	ResultLessonID     *int64        `json:"result_lesson_id"` // новое занятие после одобрения переноса
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	ResolvedAt         *time.Time    `json:"resolved_at"`
}

// ChangeRequestEvent запись истории переходов заявки
type ChangeRequestEvent struct {
	ID         int64         `json:"id"`
	RequestID  int64         `json:"request_id"`
	FromStatus RequestStatus `json:"from_status"` // пусто при создании
	ToStatus   RequestStatus `json:"to_status"`
	ActorID    int64         `json:"actor_id"`
	Notes      string        `json:"notes"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Transition параметры перехода заявки в новый статус
type Transition struct {
	From           RequestStatus
	To             RequestStatus
	AdminNotes     *string
	ResultLessonID *int64
	ResolvedAt     *time.Time
	At             time.Time
}
