package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/api"
	"github.com/alnah/go-html2pdf/internal/artifact"
	"github.com/alnah/go-html2pdf/internal/auth"
	"github.com/alnah/go-html2pdf/internal/config"
	"github.com/alnah/go-html2pdf/internal/metrics"
)

// listen opens the TCP listener for cfg.
func listen(cfg *config.Config) (net.Listener, error) {
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListen, err)
	}
	return ln, nil
}

// serve runs the HTTP server on ln until ctx is done, then shuts everything
// down in reverse order of construction. cfg must already be validated.
func serve(ctx context.Context, ln net.Listener, cfg *config.Config, logger *slog.Logger) error {
	defer ln.Close()

	var (
		m        metrics.Metrics = metrics.Noop{}
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.NewProm(reg)
		gatherer = reg
	}

	store, err := artifact.New(cfg.Storage.Dir,
		artifact.WithLogger(logger),
		artifact.WithRecorder(m),
	)
	if err != nil {
		return err
	}
	defer store.Close()

	guard, err := auth.NewGuard(cfg.Auth.BearerToken)
	if err != nil {
		return err
	}

	launcher, err := html2pdf.NewLauncher(cfg.Browser.Mode, cfg.Browser.Bin, cfg.Browser.NoSandbox)
	if err != nil {
		return err
	}

	poolSize := html2pdf.ResolvePoolSize(cfg.Browser.Workers)
	page := cfg.Page
	pool := html2pdf.NewConverterPool(poolSize,
		html2pdf.WithTimeout(cfg.Browser.RenderTimeout),
		html2pdf.WithIdleWindow(cfg.Browser.IdleWindow),
		html2pdf.WithPageSettings(&page),
		html2pdf.WithLauncher(launcher),
	)
	pool.SetAcquireTimeout(cfg.Browser.AcquireTimeout)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing converter pool", "error", err)
		}
	}()

	e := api.NewServer(&api.Dependencies{
		Renderer:      pool,
		Store:         store,
		Guard:         guard,
		TTL:           cfg.Storage.TTL,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		DefaultPage:   &page,
		BodyLimit:     cfg.Server.BodyLimit,
		Metrics:       m,
		Gatherer:      gatherer,
		Logger:        logger,
	})

	srv := &http.Server{
		Handler:           e,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      writeTimeout(cfg),
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		store.RunSweeper(sweepCtx, cfg.Storage.SweepInterval, cfg.Storage.TTL)
	}()
	defer func() {
		stopSweeper()
		<-sweeperDone
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	logger.Info("server listening",
		"addr", ln.Addr().String(),
		"storage_dir", store.Dir(),
		"ttl", cfg.Storage.TTL,
		"workers", poolSize,
		"body_limit_bytes", cfg.BodyLimitBytes(),
		"browser", launcher.Name(),
		"metrics", cfg.Metrics.Enabled,
	)

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %v", ErrListen, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-serveErr

	logger.Info("server stopped", "pending_deletions", store.Pending())
	return nil
}

// writeTimeout leaves room for a full render plus the wait for a free worker.
func writeTimeout(cfg *config.Config) time.Duration {
	return max(cfg.Server.WriteTimeout, cfg.Browser.RenderTimeout+cfg.Browser.AcquireTimeout)
}
