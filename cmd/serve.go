package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	call_sdk "github.com/cydxin/call-sdk"
	"github.com/cydxin/call-sdk/worker"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP + WebSocket API and the cleanup scheduler",
	RunE:  runServe,
}

var noWorker bool

func init() {
	serveCmd.Flags().BoolVar(&noWorker, "no-worker", false, "do not start the asynq cleanup scheduler/worker")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := loadDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	engine := d.newEngine(false)
	defer engine.Close()

	if d.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "callserver", "time": time.Now().Unix()})
	})
	if !d.cfg.IsProduction() {
		call_sdk.RegisterSwagger(r, "/swagger/*any")
	}
	engine.RegisterRoutes(r.Group("/api/v1"))

	srv := &http.Server{
		Addr:              d.cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		d.log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	if !noWorker {
		w := worker.New(worker.Config{
			Redis: asynq.RedisClientOpt{
				Addr:     d.cfg.Redis.Addr,
				Password: d.cfg.Redis.Password,
				DB:       d.cfg.Redis.DB,
			},
			CleanupCron: d.cfg.CleanupCron,
			Logger:      d.log,
		}, engine.CleanupService)
		go func() {
			if err := w.Run(ctx); err != nil {
				errCh <- fmt.Errorf("worker: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-errCh:
		d.log.Error("server stopped", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		return fmt.Errorf("http shutdown: %w", serr)
	}
	d.log.Info("http server stopped")
	return err
}
