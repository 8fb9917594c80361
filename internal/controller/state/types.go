package state

import "time"

// UserState текущий шаг диалога пользователя
type UserState string

const (
	StateNone UserState = "" // Нет активного диалога

	// Учитель или администратор вводит причину отказа по заявке
	StateRejectReason UserState = "reject_reason"
)

// DefaultTTL через сколько незавершённый диалог забывается
const DefaultTTL = 30 * time.Minute

// Dialog данные незавершённого диалога
type Dialog struct {
	State     UserState
	RequestID int64
	StartedAt time.Time
}
