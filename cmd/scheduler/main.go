package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/app"
	"github.com/Freeeeeet/lesson_scheduler/internal/attempt"
	"github.com/Freeeeeet/lesson_scheduler/internal/config"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/httpapi"
	"github.com/Freeeeeet/lesson_scheduler/internal/lock"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/Freeeeeet/lesson_scheduler/internal/schedule"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
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

	if err := run(cfg, logger); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	weekStart, err := schedule.ParseWeekday(cfg.WeekStart)
	if err != nil {
		return err
	}

	logger.Info("Starting lesson scheduler",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", loc.String()),
		zap.Stringer("week_start", weekStart))

	// База данных
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		migrator.Close()
		return err
	}
	migrator.Close()

	lessonRepo := repository.NewLessonRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)

	// Блокировки и незавершённые попытки: Redis, если настроен, иначе память процесса
	var (
		locker   lock.Locker
		attempts attempt.Store
	)
	if cfg.RedisAddr != "" {
		redisLock, err := lock.NewRedisLock(cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisLock.Close(); err != nil {
				logger.Error("Failed to close redis", zap.Error(err))
			}
		}()
		locker = redisLock
		attempts = attempt.NewRedisStore(redisLock.Client(), cfg.AttemptTTL)
		logger.Info("Using redis for locks and attempts", zap.String("addr", cfg.RedisAddr))
	} else {
		locker = lock.NewMemoryLocker()
		attempts = attempt.NewMemoryStore(cfg.AttemptTTL)
		logger.Warn("REDIS_ADDR is not set, locks are process-local")
	}

	lessonService := service.NewLessonService(lessonRepo, attempts, locker, attemptRepo, cfg.LockTTL, logger)

	// Фоновые задачи
	scheduler := app.NewScheduler(lessonRepo, cfg.StatusCron, logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	// Telegram бот
	if cfg.TelegramToken != "" {
		if err := startBot(ctx, cfg, lessonService, loc, weekStart, logger); err != nil {
			return err
		}
	} else {
		logger.Info("TELEGRAM_TOKEN is not set, bot is disabled")
	}

	// HTTP API
	handler := httpapi.NewHandler(lessonService, loc, weekStart, logger)
	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		if err != nil {
			logger.Error("HTTP server stopped unexpectedly", zap.Error(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	logger.Info("Shutting down HTTP server", zap.Duration("timeout", cfg.ShutdownTimeout))
	if err := serv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Shutdown finished")
	return nil
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	lessonService *service.LessonService,
	loc *time.Location,
	weekStart time.Weekday,
	logger *zap.Logger,
) error {
	var botController *controller.BotController

	b, err := bot.New(cfg.TelegramToken, bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		botController.HandleDefault(ctx, b, update)
	}))
	if err != nil {
		return err
	}

	botController = controller.NewBotController(b, lessonService, loc, weekStart, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		return err
	}

	go func() {
		if err := botController.Start(ctx); err != nil {
			logger.Error("Bot stopped with error", zap.Error(err))
		}
	}()
	return nil
}
