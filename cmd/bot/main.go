package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Freeeeeet/lesson_scheduler/internal/app"
	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/config"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/handlers"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/state"
	"github.com/Freeeeeet/lesson_scheduler/internal/notify"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/interfaces"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/lesson_scheduler/internal/scheduling"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting lesson scheduler",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.Timezone.String()),
		zap.Bool("memory_store", cfg.UseMemoryStore()),
		zap.Bool("telegram", cfg.TelegramToken != ""))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Application stopped with error", zap.Error(err))
	}
	logger.Info("Application stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	clk := clock.New(cfg.Timezone)
	store, closeStore, err := openStore(ctx, cfg, clk, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	policy := scheduling.NewPolicy(scheduling.PolicyConfig{
		DefaultNoticeHours: cfg.DefaultNoticeHours,
		PartnerNoticeHours: cfg.PartnerNoticeHours,
		PartnerSchools:     cfg.PartnerSchools,
	}, clk, store.Holidays())
	engine := scheduling.NewEngine(store.Availability(), store.Lessons(), store.Holidays(), clk, scheduling.ProposalConfig{
		StepMinutes:   cfg.SlotStepMinutes,
		HorizonMonths: cfg.ProposalHorizonMonths,
	})

	var (
		b             *bot.Bot
		botController *controller.BotController
		sender        notify.Sender = notify.NewLogSender(logger)
	)
	if cfg.TelegramToken != "" {
		b, err = bot.New(cfg.TelegramToken,
			// контроллер создаётся ниже, до b.Start
			bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
				botController.HandleDefault(ctx, b, update)
			}),
			bot.WithErrorsHandler(func(err error) {
				logger.Warn("Telegram error", zap.Error(err))
			}),
		)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		sender = notify.NewTelegramSender(b, store.Users(), cfg.Timezone, logger)
	} else {
		logger.Warn("TELEGRAM_TOKEN is empty, notifications go to the log only")
	}

	dispatcher := notify.NewDispatcher(sender, cfg.NotifyTimeout, logger)
	defer dispatcher.Wait()

	userService := service.NewUserService(store.Users(), cfg.AdminTelegramIDs, logger)
	calendarService := service.NewCalendarService(store, engine, policy, clk, logger)
	workflow := service.NewRequestWorkflow(service.NewChangeRequestService(store, policy, clk, logger), dispatcher)
	digest := service.NewDigestService(store, dispatcher, clk, logger)

	scheduler, err := app.NewScheduler(digest, cfg.ReminderCron, cfg.Timezone, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Start(gctx)
	})

	if b != nil {
		h := handlers.NewHandlers(userService, calendarService, workflow, state.NewManager(state.DefaultTTL), cfg.Timezone, logger)
		botController = controller.NewBotController(b, h, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			// меню команд не критично, бот работает и без него
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}
		g.Go(func() error {
			return botController.Start(gctx)
		})
	}

	return g.Wait()
}

// openStore PostgreSQL при заданном DB_DSN, иначе память (только для разработки)
func openStore(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *zap.Logger) (interfaces.Store, func(), error) {
	if cfg.UseMemoryStore() {
		logger.Warn("DB_DSN is empty, using in-memory store")
		return memory.NewStore(clk), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	return repository.NewStore(pool), pool.Close, nil
}
