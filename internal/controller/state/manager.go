package state

import (
	"sync"
	"time"
)

// Manager хранит диалоги пользователей в памяти процесса
type Manager struct {
	mu      sync.Mutex
	dialogs map[int64]Dialog // telegramID -> Dialog
	ttl     time.Duration
	now     func() time.Time
}

// NewManager создаёт новый менеджер состояний
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		dialogs: make(map[int64]Dialog),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Start начинает диалог, заменяя предыдущий
func (sm *Manager) Start(telegramID int64, state UserState, requestID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state == StateNone {
		delete(sm.dialogs, telegramID)
		return
	}
	sm.dialogs[telegramID] = Dialog{State: state, RequestID: requestID, StartedAt: sm.now()}
}

// Get возвращает активный диалог; просроченный удаляется
func (sm *Manager) Get(telegramID int64) (Dialog, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	d, ok := sm.dialogs[telegramID]
	if !ok {
		return Dialog{}, false
	}
	if sm.now().Sub(d.StartedAt) > sm.ttl {
		delete(sm.dialogs, telegramID)
		return Dialog{}, false
	}
	return d, true
}

// Take возвращает активный диалог и завершает его
func (sm *Manager) Take(telegramID int64) (Dialog, bool) {
	d, ok := sm.Get(telegramID)
	if ok {
		sm.Clear(telegramID)
	}
	return d, ok
}

// Clear очищает состояние пользователя
func (sm *Manager) Clear(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.dialogs, telegramID)
}
