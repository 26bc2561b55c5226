// Package bootstrap: 게이트웨이 프로세스 실행과 종료 절차를 담당합니다.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// Worker: 서버와 같은 수명으로 동작하는 백그라운드 작업입니다. ctx 취소 시 종료해야 합니다.
type Worker func(ctx context.Context) error

// ServerApp: HTTP 서버와 백그라운드 워커를 묶은 실행 단위입니다.
type ServerApp struct {
	Name            string
	Logger          *slog.Logger
	Server          *http.Server
	ShutdownTimeout time.Duration

	TLSEnabled  bool
	TLSCertPath string
	TLSKeyPath  string

	workers []Worker
	cleanup []func()
}

// NewServerApp: 새로운 ServerApp 인스턴스를 생성합니다.
func NewServerApp(name string, logger *slog.Logger, server *http.Server, shutdownTimeout time.Duration) *ServerApp {
	return &ServerApp{
		Name:            name,
		Logger:          logger,
		Server:          server,
		ShutdownTimeout: shutdownTimeout,
	}
}

// WithTLS: TLS 설정을 추가합니다.
func (a *ServerApp) WithTLS(enabled bool, certPath, keyPath string) *ServerApp {
	a.TLSEnabled = enabled
	a.TLSCertPath = certPath
	a.TLSKeyPath = keyPath
	return a
}

// AddWorker: 백그라운드 워커를 등록합니다.
func (a *ServerApp) AddWorker(w Worker) *ServerApp {
	if w != nil {
		a.workers = append(a.workers, w)
	}
	return a
}

// OnShutdown: 서버 종료 후 역순(LIFO)으로 실행할 정리 함수를 등록합니다.
func (a *ServerApp) OnShutdown(fn func()) *ServerApp {
	if fn != nil {
		a.cleanup = append(a.cleanup, fn)
	}
	return a
}

// Run: SIGINT/SIGTERM 또는 ctx 취소까지 서버를 실행하고 우아하게 종료합니다.
func (a *ServerApp) Run(ctx context.Context) error {
	if a == nil {
		return nil
	}
	defer a.runCleanup()

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(signalCtx)

	protocol := "http"
	if a.TLSEnabled {
		protocol = "https (HTTP/2)"
	}
	a.Logger.Info("server_start",
		slog.String("name", a.Name),
		slog.String("addr", a.Server.Addr),
		slog.String("protocol", protocol),
		slog.Int("workers", len(a.workers)),
	)

	g.Go(func() error {
		var err error
		if a.TLSEnabled {
			err = a.Server.ListenAndServeTLS(a.TLSCertPath, a.TLSKeyPath)
		} else {
			err = a.Server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	for _, w := range a.workers {
		g.Go(func() error {
			if err := w(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("worker failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutdown_signal_received", slog.String("name", a.Name))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("server_shutdown_failed", slog.Any("error", err))
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		a.Logger.Info("server_stopped", slog.String("name", a.Name))
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("wait for goroutines: %w", err)
	}
	return nil
}

func (a *ServerApp) runCleanup() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
