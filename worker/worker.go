// Package worker 后台任务：asynq 定时调度 + 任务处理（每日清理过期直播记录）。
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/cydxin/call-sdk/cons"
	"github.com/cydxin/call-sdk/service"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// DefaultCleanupCron 每天 00:00 UTC
const DefaultCleanupCron = "0 0 * * *"

// Cleaner CleanupService 实现
type Cleaner interface {
	Run(ctx context.Context) (service.CleanupResult, error)
}

// Config 后台任务配置
type Config struct {
	Redis       asynq.RedisClientOpt
	CleanupCron string
	Concurrency int
	Logger      *zap.Logger
}

// Worker 同时承担调度（Scheduler）和执行（Server）
type Worker struct {
	cfg       Config
	log       *zap.Logger
	scheduler *asynq.Scheduler
	server    *asynq.Server
	mux       *asynq.ServeMux
}

func New(cfg Config, cleaner Cleaner) *Worker {
	if cfg.CleanupCron == "" {
		cfg.CleanupCron = DefaultCleanupCron
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("worker")

	scheduler := asynq.NewScheduler(cfg.Redis, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   log.Sugar(),
	})
	server := asynq.NewServer(cfg.Redis, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{"default": 1},
		Logger:      log.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
	mux := asynq.NewServeMux()
	mux.Handle(cons.TaskLiveCleanup, NewCleanupHandler(cleaner, log))

	return &Worker{cfg: cfg, log: log, scheduler: scheduler, server: server, mux: mux}
}

// Run 注册定时任务并启动，阻塞到 ctx 结束后优雅退出
func (w *Worker) Run(ctx context.Context) error {
	entryID, err := w.scheduler.Register(w.cfg.CleanupCron, NewCleanupTask(), asynq.Unique(time.Hour))
	if err != nil {
		return fmt.Errorf("register cleanup schedule: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := w.server.Start(w.mux); err != nil {
		w.scheduler.Shutdown()
		return fmt.Errorf("start task server: %w", err)
	}
	w.log.Info("worker started", zap.String("cron", w.cfg.CleanupCron), zap.String("entry_id", entryID))

	<-ctx.Done()
	w.scheduler.Shutdown()
	w.server.Shutdown()
	w.log.Info("worker stopped")
	return nil
}

// NewCleanupTask 清理任务（无 payload，每次运行重新查询）
func NewCleanupTask() *asynq.Task {
	return asynq.NewTask(cons.TaskLiveCleanup, nil, asynq.MaxRetry(3), asynq.Timeout(30*time.Minute))
}

// CleanupHandler 处理 live:cleanup
type CleanupHandler struct {
	cleaner Cleaner
	log     *zap.Logger
}

func NewCleanupHandler(cleaner Cleaner, log *zap.Logger) *CleanupHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupHandler{cleaner: cleaner, log: log}
}

func (h *CleanupHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	res, err := h.cleaner.Run(ctx)
	if err != nil {
		return fmt.Errorf("live cleanup: %w", err)
	}
	h.log.Info("live cleanup task done", zap.Int("batches", res.Batches), zap.Int64("deleted", res.Deleted))
	return nil
}
