// Package notify асинхронная доставка уведомлений об изменениях заявок.
// Ошибка доставки только логируется и никогда не влияет на результат операции.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

type Kind string

const (
	KindRequestCreated   Kind = "request_created"   // учителю: новая заявка
	KindRequestCompleted Kind = "request_completed" // студенту: заявка выполнена
	KindRequestRejected  Kind = "request_rejected"  // студенту: учитель отказал, заявка у администратора
	KindRequestEscalated Kind = "request_escalated" // администраторам: нужна проверка
	KindRequestClosed    Kind = "request_closed"    // студенту: окончательный отказ
	KindDigest           Kind = "digest"            // ежедневная сводка
)

// Recipient получатель. Пустой UserID с ролью admin означает всех администраторов.
type Recipient struct {
	UserID int64
	Role   model.UserRole
}

// Student получатель-студент
func Student(userID int64) Recipient {
	return Recipient{UserID: userID, Role: model.UserRoleStudent}
}

// Teacher получатель-учитель
func Teacher(userID int64) Recipient {
	return Recipient{UserID: userID, Role: model.UserRoleTeacher}
}

// Admins все администраторы
func Admins() Recipient {
	return Recipient{Role: model.UserRoleAdmin}
}

// Notification одно уведомление
type Notification struct {
	ID         uuid.UUID
	Kind       Kind
	Recipients []Recipient
	Request    *model.ChangeRequest
	Lesson     *model.Lesson
	NewLesson  *model.Lesson
	Text       string // для сводок, иначе текст собирается из заявки
	CreatedAt  time.Time
}

// Notifier принимает уведомления. Вызов не блокирует и не возвращает ошибку.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Sender доставляет уведомление синхронно
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Dispatcher отправляет уведомления в фоне с таймаутом
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher создаёт диспетчер
func NewDispatcher(sender Sender, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
		logger:  logger,
	}
}

// Notify ставит уведомление в отправку и сразу возвращается
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	// Отправка переживает отмену контекста запроса
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("notification sender panicked",
					zap.String("notification_id", n.ID.String()),
					zap.Any("panic", r),
				)
			}
		}()

		if err := d.sender.Send(sendCtx, n); err != nil {
			d.logger.Error("failed to deliver notification",
				zap.String("notification_id", n.ID.String()),
				zap.String("kind", string(n.Kind)),
				zap.Error(err),
			)
			return
		}

		d.logger.Debug("notification delivered",
			zap.String("notification_id", n.ID.String()),
			zap.String("kind", string(n.Kind)),
		)
	}()
}

// Wait ждёт завершения всех отправок (graceful shutdown и тесты)
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogSender пишет уведомления в лог, когда бот отключён
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	fields := []zap.Field{
		zap.String("notification_id", n.ID.String()),
		zap.String("kind", string(n.Kind)),
		zap.Int("recipients", len(n.Recipients)),
	}
	if n.Request != nil {
		fields = append(fields,
			zap.Int64("request_id", n.Request.ID),
			zap.String("status", string(n.Request.Status)),
		)
	}
	s.logger.Info("notification", fields...)
	return nil
}

// Recorder сохраняет уведомления в памяти для тестов
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

// Sent копия полученных уведомлений
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Kinds виды полученных уведомлений по порядку
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, len(r.sent))
	for i, n := range r.sent {
		kinds[i] = n.Kind
	}
	return kinds
}
