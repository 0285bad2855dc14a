package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StatusAdvancer переводит уроки по статусам в зависимости от текущего времени
type StatusAdvancer interface {
	AdvanceStatuses(ctx context.Context, now time.Time) (started, completed int64, err error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	cron    *cron.Cron
	lessons StatusAdvancer
	spec    string
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewScheduler создаёт новый планировщик; spec - cron выражение задачи статусов
func NewScheduler(lessons StatusAdvancer, spec string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		lessons: lessons,
		spec:    spec,
		timeout: 30 * time.Second,
		logger:  logger,
		now:     time.Now,
	}
}

// Start регистрирует задачи и запускает cron
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.advanceStatuses(ctx)
	})
	if err != nil {
		return fmt.Errorf("add status job %q: %w", s.spec, err)
	}

	s.logger.Info("Starting background scheduler", zap.String("status_cron", s.spec))

	// Первый запуск сразу при старте
	s.advanceStatuses(ctx)
	s.cron.Start()
	return nil
}

// Stop останавливает cron и ждёт завершения выполняющихся задач
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}

// advanceStatuses переводит scheduled -> in_progress -> completed; отменённые уроки не трогаются
func (s *Scheduler) advanceStatuses(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started, completed, err := s.lessons.AdvanceStatuses(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to advance lesson statuses", zap.Error(err))
		return
	}

	if started > 0 || completed > 0 {
		s.logger.Info("Lesson statuses advanced",
			zap.Int64("started", started),
			zap.Int64("completed", completed))
	}
}
