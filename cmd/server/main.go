package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agenthands/notalone/internal/auth"
	"github.com/agenthands/notalone/internal/config"
	"github.com/agenthands/notalone/internal/core"
	"github.com/agenthands/notalone/internal/core/community"
	"github.com/agenthands/notalone/internal/core/prompt"
	"github.com/agenthands/notalone/internal/llm"
	"github.com/agenthands/notalone/internal/logger"
	"github.com/agenthands/notalone/internal/server"
	"github.com/agenthands/notalone/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	initStore := &cobra.Command{
		Use:   "init-store",
		Short: "Create the indices or tables used by the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitStore(cmd.Context(), configPath)
		},
	}

	root := &cobra.Command{
		Use:          "notalone",
		Short:        "Relationship companion chat backend",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", envOr("CONFIG_PATH", "config/config.toml"), "path to the TOML config file")
	root.AddCommand(serve, initStore)
	return root
}

// setup loads .env, the config file and the logger.
func setup(configPath string) (*config.Config, *zap.Logger, error) {
	dotenvErr := godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if dotenvErr != nil {
		log.Debug("No .env file found, using environment and defaults")
	}
	return cfg, log, nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", zap.Error(err))
		return err
	}
	log.Info("Starting HTTP API server...",
		zap.String("env", cfg.Server.Env),
		zap.String("store", cfg.Store.Driver),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open store", zap.Error(err))
		return err
	}
	defer st.Close(context.Background())

	if err := st.Init(ctx); err != nil {
		log.Error("Failed to initialize store", zap.Error(err))
		return err
	}

	client, err := llm.NewClient(ctx, cfg.LLM, log)
	if err != nil {
		log.Error("Failed to initialize LLM client", zap.Error(err))
		return err
	}
	if c, ok := client.(io.Closer); ok {
		defer c.Close()
	}

	jwt, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, 0)
	if err != nil {
		return err
	}

	orch, err := newOrchestrator(cfg, st, client, log)
	if err != nil {
		log.Error("Failed to build orchestrator", zap.Error(err))
		return err
	}
	limiter := server.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.New(orch, jwt, limiter, log).Router()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Failed to start server", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
	return nil
}

// newOrchestrator applies the prompt and circle settings from cfg.
func newOrchestrator(cfg *config.Config, st store.Store, client llm.LLMClient, log *zap.Logger) (*core.Orchestrator, error) {
	detector, err := community.New(cfg.Circles.Algorithm)
	if err != nil {
		return nil, err
	}
	orch := core.NewOrchestrator(st, client, prompt.NewBuilder(cfg.Prompts), log)
	orch.Detector = detector
	return orch, nil
}

func runInitStore(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open store", zap.Error(err))
		return err
	}
	defer st.Close(ctx)

	if err := st.Init(ctx); err != nil {
		log.Error("Failed to initialize store", zap.Error(err))
		return err
	}
	log.Info("Store initialized", zap.String("driver", cfg.Store.Driver))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
