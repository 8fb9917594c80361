package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/service"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	cron   gocron.Scheduler
	digest *service.DigestService
	logger *zap.Logger
}

// NewScheduler создаёт планировщик и регистрирует ежедневную сводку по заявкам
func NewScheduler(digest *service.DigestService, cronExpr string, loc *time.Location, logger *zap.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("init cron scheduler: %w", err)
	}

	s := &Scheduler{
		cron:   cron,
		digest: digest,
		logger: logger,
	}

	_, err = cron.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(s.runDigest),
		gocron.WithName("change requests digest"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.AfterJobRuns(func(jobID uuid.UUID, jobName string) {
				logger.Debug("Cron job finished", zap.String("job", jobName), zap.String("job_id", jobID.String()))
			}),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("init digest job %q: %w", cronExpr, err)
	}

	return s, nil
}

// Start запускает фоновые задачи и останавливает их при отмене ctx
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting background scheduler")
	s.cron.Start()

	<-ctx.Done()
	return s.Stop()
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping background scheduler")
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("shutdown cron scheduler: %w", err)
	}
	return nil
}

// runDigest рассылает ежедневную сводку
func (s *Scheduler) runDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s.logger.Info("Starting daily digest")

	if _, err := s.digest.Run(ctx); err != nil {
		s.logger.Error("Failed to send daily digest", zap.Error(err))
		return
	}

	s.logger.Info("Daily digest completed successfully")
}
