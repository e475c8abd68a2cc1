package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-miniapp/internal/config"
	"quiz-miniapp/internal/logging"
	"quiz-miniapp/internal/metrics"
	"quiz-miniapp/internal/telegram"
	transport "quiz-miniapp/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log)
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "5000"
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	identity := transport.DevIdentity(cfg.DevUserID())
	if cfg.Telegram.BotToken != "" {
		maxAge := config.TTLDuration(cfg.Telegram.MaxAge, 24*time.Hour)
		identity = transport.TelegramIdentity(telegram.NewValidator(cfg.Telegram.BotToken, maxAge))
	} else {
		logger.Warn("telegram bot token not set, running in dev mode",
			zap.Int64("dev_user_id", cfg.DevUserID()))
	}

	handler := transport.NewHandler(b.service,
		transport.WithLogger(logger),
		transport.WithMetrics(metrics.New()),
		transport.WithIdentity(identity),
		transport.WithSubmitLimit(cfg.RateLimit.SubmitPerMinute, cfg.RateLimit.Burst),
		transport.WithQuestionTime(cfg.QuestionTime()),
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server...")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
