package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/auth"
	"mcq-quiz-service/internal/config"
	pgstore "mcq-quiz-service/internal/infra/postgres"
	transport "mcq-quiz-service/internal/transport/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", os.Getenv("PORT"), "port to listen on (overrides server.port)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	d, err := openDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	if d.db != nil {
		applied, err := pgstore.Migrate(ctx, d.db)
		if err != nil {
			return err
		}
		log.Info("migrations applied", zap.Strings("migrations", applied))
	}

	server, service, err := newHTTPServer(ctx, cfg, log, d, portFlag)
	if err != nil {
		return err
	}

	go func() {
		log.Info("starting quiz service",
			zap.String("addr", server.Addr),
			zap.String("questions", cfg.Quiz.Source),
			zap.String("results", cfg.Results.Store),
			zap.Duration("test_duration", service.TestDuration()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newHTTPServer wires the quiz service, the admin authenticator and the routes.
func newHTTPServer(ctx context.Context, cfg config.Config, log *zap.Logger, d *deps, portFlag string) (*http.Server, *app.QuizService, error) {
	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service, err := d.quizService(ctx)
	if err != nil {
		return nil, nil, err
	}

	authenticator, err := auth.NewAuthenticator(
		cfg.Admin.Password,
		cfg.Admin.PasswordHash,
		cfg.Admin.JWTSecret,
		config.TTLDuration(cfg.Admin.TokenTTL, 12*time.Hour),
	)
	if err != nil {
		return nil, nil, err
	}
	if !authenticator.Enabled() {
		log.Warn("admin password not configured, admin endpoints are disabled")
	}

	handler := transport.NewHandler(service, authenticator, log, transport.Options{
		StaticDir:  cfg.Server.StaticDir,
		TrustProxy: cfg.Server.TrustProxy,
	})

	return &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}, service, nil
}
