package model

import "errors"

// Ошибки домена. Сервисы оборачивают их через fmt.Errorf("...: %w", err).
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrPolicyViolation     = errors.New("policy violation")
	ErrUnsupportedForGroup = errors.New("unsupported for group lesson")
	ErrSlotConflict        = errors.New("slot no longer available")
	ErrPersistence         = errors.New("persistence failure")
	ErrInvalidInput        = errors.New("invalid input")
	ErrForbidden           = errors.New("forbidden")
)

type ErrorKind string

const (
	KindUnknown             ErrorKind = "unknown"
	KindNotFound            ErrorKind = "not_found"
	KindInvalidState        ErrorKind = "invalid_state"
	KindPolicyViolation     ErrorKind = "policy_violation"
	KindUnsupportedForGroup ErrorKind = "unsupported_for_group"
	KindSlotConflict        ErrorKind = "slot_conflict"
	KindPersistence         ErrorKind = "persistence_failure"
	KindInvalidInput        ErrorKind = "invalid_input"
	KindForbidden           ErrorKind = "forbidden"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	// порядок важен: ошибка хранилища может оборачивать конфликт статуса
	{ErrUnsupportedForGroup, KindUnsupportedForGroup},
	{ErrPolicyViolation, KindPolicyViolation},
	{ErrInvalidInput, KindInvalidInput},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrInvalidState, KindInvalidState},
	{ErrSlotConflict, KindSlotConflict},
	{ErrPersistence, KindPersistence},
}

// KindOf определяет вид ошибки
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// IsUserCorrectable может ли пользователь исправить запрос сам
func IsUserCorrectable(err error) bool {
	switch KindOf(err) {
	case KindPolicyViolation, KindUnsupportedForGroup, KindInvalidInput:
		return true
	default:
		return false
	}
}
