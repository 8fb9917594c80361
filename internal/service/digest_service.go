package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/formatting"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/notify"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/interfaces"
)

// DigestService ежедневная сводка: учителям их PENDING заявки, администраторам TEACHER_REJECTED
type DigestService struct {
	store    interfaces.Store
	notifier notify.Notifier
	clock    clock.Clock
	logger   *zap.Logger
}

func NewDigestService(store interfaces.Store, notifier notify.Notifier, clk clock.Clock, logger *zap.Logger) *DigestService {
	return &DigestService{
		store:    store,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// Run отправляет сводки и возвращает их количество
func (s *DigestService) Run(ctx context.Context) (int, error) {
	pending, err := s.store.ChangeRequests().GetByStatus(ctx, model.RequestStatusPending)
	if err != nil {
		return 0, fmt.Errorf("get pending requests: %w", err)
	}
	escalated, err := s.store.ChangeRequests().GetByStatus(ctx, model.RequestStatusTeacherRejected)
	if err != nil {
		return 0, fmt.Errorf("get escalated requests: %w", err)
	}

	lessons := make(map[int64]*model.Lesson)
	load := func(id int64) (*model.Lesson, error) {
		if l, ok := lessons[id]; ok {
			return l, nil
		}
		l, err := s.store.Lessons().GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get lesson %d: %w", id, err)
		}
		lessons[id] = l
		return l, nil
	}

	byTeacher := make(map[int64][]string)
	for _, req := range pending {
		l, err := load(req.LessonID)
		if err != nil {
			return 0, err
		}
		if l == nil {
			continue
		}
		byTeacher[l.TeacherID] = append(byTeacher[l.TeacherID], s.line(req, l))
	}

	teachers := make([]int64, 0, len(byTeacher))
	for id := range byTeacher {
		teachers = append(teachers, id)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i] < teachers[j] })

	sent := 0
	for _, id := range teachers {
		lines := byTeacher[id]
		s.notifier.Notify(ctx, notify.Notification{
			Kind:       notify.KindDigest,
			Recipients: []notify.Recipient{notify.Teacher(id)},
			Text:       fmt.Sprintf("⏳ Solicitações aguardando sua resposta: %d\n\n%s", len(lines), strings.Join(lines, "\n")),
		})
		sent++
	}

	if len(escalated) > 0 {
		lines := make([]string, 0, len(escalated))
		for _, req := range escalated {
			l, err := load(req.LessonID)
			if err != nil {
				return sent, err
			}
			if l == nil {
				continue
			}
			lines = append(lines, s.line(req, l))
		}
		s.notifier.Notify(ctx, notify.Notification{
			Kind:       notify.KindDigest,
			Recipients: []notify.Recipient{notify.Admins()},
			Text:       fmt.Sprintf("📋 Solicitações recusadas aguardando a coordenação: %d\n\n%s", len(lines), strings.Join(lines, "\n")),
		})
		sent++
	}

	s.logger.Info("Daily digest sent",
		zap.Int("pending", len(pending)),
		zap.Int("escalated", len(escalated)),
		zap.Int("notifications", sent),
	)

	return sent, nil
}

func (s *DigestService) line(req *model.ChangeRequest, l *model.Lesson) string {
	return fmt.Sprintf("• #%d %s: %s", req.ID, formatting.GetRequestTypeName(req.Type),
		formatting.FormatLesson(l, s.clock.Location()))
}
