// Package main запускает HTTP-сервер маркетплейса пикеров.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/pickers-market/internal/auth"
	"github.com/mmeshcher/pickers-market/internal/clock"
	"github.com/mmeshcher/pickers-market/internal/config"
	"github.com/mmeshcher/pickers-market/internal/credstore"
	"github.com/mmeshcher/pickers-market/internal/handler"
	"github.com/mmeshcher/pickers-market/internal/mailer"
	"github.com/mmeshcher/pickers-market/internal/metrics"
	"github.com/mmeshcher/pickers-market/internal/middleware"
	"github.com/mmeshcher/pickers-market/internal/order"
	"github.com/mmeshcher/pickers-market/internal/reaper"
	"github.com/mmeshcher/pickers-market/internal/repository"
	"github.com/mmeshcher/pickers-market/internal/service"
	"github.com/mmeshcher/pickers-market/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		sugar.Warn("JWT_SECRET is not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	files, err := newArtifactStore(ctx, cfg)
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}

	clk := clock.Real()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	creds := credstore.New(clk)
	tokens := auth.NewEngine([]byte(cfg.JWTSecret), cfg.TokenTTL, clk)
	engine := order.NewEngine(repo, clk, cfg.PendingOrderTTL, logger.Named("order"), collector)

	svc := service.NewService(service.Deps{
		Repo:        repo,
		Orders:      engine,
		Credentials: creds,
		Tokens:      tokens,
		Files:       files,
		Mailer:      mailer.NewLogMailer(logger.Named("mailer")),
		Clock:       clk,
		Logger:      logger.Named("service"),
	}, service.Options{
		VerificationCodeTTL:    cfg.VerificationCodeTTL,
		DownloadTokenTTL:       cfg.DownloadTokenTTL,
		DownloadTokenSingleUse: cfg.DownloadTokenSingleUse,
	})
	defer svc.Close()

	orderLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		PerMinute: cfg.OrderRatePerMinute,
		Burst:     cfg.OrderRateBurst,
	}, clk, logger.Named("ratelimit"))
	defer orderLimiter.Stop()

	opts := handler.Options{
		OrderLimiter: orderLimiter,
		HTTPMetrics:  middleware.Metrics(collector),
	}
	metricsHandler := metrics.Handler(registry)
	if cfg.MetricsAddress == "" {
		opts.Metrics = metricsHandler
	}

	authMiddleware := middleware.NewAuthMiddleware(tokens, logger.Named("auth"))
	h := handler.NewHandler(svc, logger, authMiddleware, opts)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	servers := []*http.Server{server}
	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	g, ctx := errgroup.WithContext(ctx)

	// Чистка просроченных кодов и токенов
	g.Go(func() error {
		reaper.New(creds, cfg.ReaperInterval, clk, logger.Named("reaper"), collector).Run(ctx)
		return nil
	})

	for _, srv := range servers {
		g.Go(func() error {
			sugar.Infow("starting http server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s error: %w", srv.Addr, err)
			}
			return nil
		})
	}

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("application terminated with error", "error", err)
	}
}

// newArtifactStore выбирает S3, если задан бакет, иначе локальный каталог.
func newArtifactStore(ctx context.Context, cfg *config.Config) (storage.ArtifactStore, error) {
	if cfg.S3.Bucket == "" {
		return storage.NewLocalStore(cfg.StorageDir)
	}
	return storage.NewS3Store(ctx, storage.S3Config{
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
}
