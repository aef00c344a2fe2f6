package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soaringjerry/Quizbank/internal/api"
	"github.com/soaringjerry/Quizbank/internal/config"
	"github.com/soaringjerry/Quizbank/internal/middleware"
	"github.com/soaringjerry/Quizbank/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	backend, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if backend != nil && cfg.ImportFile != "" {
		if err := ImportPoolIfMissing(ctx, backend, cfg.QuestionsPath, cfg.ImportFile, logger); err != nil {
			return err
		}
	}

	store := api.NewDocumentStore(backend, cfg.StoreTimeout, logger)
	signer := middleware.NewSigner(cfg.JWTSecret)
	router := api.NewRouter(api.Options{
		Questions:     services.NewQuestionService(store, cfg.QuestionsPath, logger),
		Scores:        services.NewScoreService(store, cfg.ScoresPath, logger),
		Auth:          services.NewAuthService(cfg.AdminUser, []byte(cfg.AdminPassHash), signer.Sign, cfg.TokenTTL),
		Signer:        signer,
		RetryAttempts: cfg.RetryAttempts,
		Logger:        logger,
		Build:         api.BuildInfo{Commit: cfg.Commit, BuildTime: cfg.BuildTime, Backend: cfg.Backend},
	})

	mux := http.NewServeMux()
	router.Register(mux)

	var handler http.Handler = middleware.NoStore(middleware.SecureHeaders(mux))
	handler = middleware.LocaleMiddleware(handler)
	if cfg.EnableCORS {
		handler = middleware.CORS(handler)
	}
	handler = middleware.RequestID(middleware.RequestLogger(logger)(handler))

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Quizbank server listening",
			"addr", cfg.Addr,
			"backend", backendName(cfg.Backend),
			"admin", cfg.AdminEnabled(),
			"commit", cfg.Commit,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func backendName(b string) string {
	if b == "" {
		return "unconfigured"
	}
	return b
}
