package app

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"notifyd/internal/auth"
	"notifyd/internal/client"
	"notifyd/internal/config"
	"notifyd/internal/http/middleware"
	"notifyd/internal/queue"
	"notifyd/internal/repository"
	"notifyd/internal/service/notify"
	"notifyd/internal/sse"
)

type App struct {
	cfg      *config.Config
	hub      *sse.Hub
	manager  *client.Manager
	ingest   *notify.Ingest
	session  *auth.Session
	consumer queue.Consumer
	limiter  *middleware.RateLimiter
	archive  repository.NotificationRepository
	server   *http.Server
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewApp(
	cfg *config.Config,
	hub *sse.Hub,
	manager *client.Manager,
	ingest *notify.Ingest,
	session *auth.Session,
	consumer queue.Consumer,
	limiter *middleware.RateLimiter,
	archive repository.NotificationRepository,
	router *gin.Engine,
	logger *zap.Logger,
) *App {
	return &App{
		cfg:      cfg,
		hub:      hub,
		manager:  manager,
		ingest:   ingest,
		session:  session,
		consumer: consumer,
		limiter:  limiter,
		archive:  archive,
		server: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: router,
		},
		logger: logger,
	}
}

func (a *App) Run(ctx context.Context) error {
	a.goRun(func() { a.hub.Run(ctx) })
	a.goRun(func() { a.limiter.Sweep(ctx) })
	a.goRun(func() { a.ingest.Run(ctx) })

	a.goRun(func() {
		if err := a.manager.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("notification channel stopped", zap.Error(err))
		}
	})

	// The subscription replays the current token, so a token restored from
	// the keyring connects without any further call.
	tokens, unsubscribe := a.session.Subscribe()
	a.goRun(func() {
		defer unsubscribe()
		a.manager.Follow(ctx, tokens)
	})

	a.goRun(func() {
		if err := a.consumer.Start(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("consumer stopped", zap.Error(err))
		}
	})

	a.logger.Info("http server listening", zap.String("addr", a.cfg.HTTPAddr))
	return a.server.ListenAndServe()
}

func (a *App) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("graceful shutdown started")
	shutdownErr := a.server.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.closeArchive()
		a.logger.Info("graceful shutdown completed")
		return shutdownErr
	case <-ctx.Done():
		if shutdownErr != nil {
			return shutdownErr
		}
		return ctx.Err()
	}
}

// closeArchive runs after the ingest loop has stopped writing to it.
func (a *App) closeArchive() {
	closer, ok := a.archive.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		a.logger.Error("archive close failed", zap.Error(err))
	}
}

func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) Logger() *zap.Logger {
	return a.logger
}
