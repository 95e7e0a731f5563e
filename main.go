package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"projectpilot/internal/adapter/llm"
	"projectpilot/internal/agents"
	"projectpilot/internal/config"
	"projectpilot/internal/coordinator"
	"projectpilot/internal/executor"
	"projectpilot/internal/intent"
	"projectpilot/internal/logging"
	"projectpilot/internal/plan"
	"projectpilot/internal/policy"
	"projectpilot/internal/pruner"
	"projectpilot/internal/reconcile"
	store "projectpilot/internal/repository"
	handler "projectpilot/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Int("http_port", cfg.HTTPPort).
		Str("database", cfg.DatabaseURL).
		Str("llm_model", cfg.LLMModel).
		Msg("starting projectpilot")

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer db.Close()

	var llmClient llm.Client
	if cfg.LLMAPIKey == "" {
		log.Warn().Msg("LLM_API_KEY not set, using mock LLM client")
		llmClient = llm.NewMockClient(`{"message": "I'm running without a model backend.", "metadata": null}`)
	} else {
		llmClient = llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	}

	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize recording policy")
	}

	pr := pruner.New(pruner.DefaultConfig())
	registry := agents.NewDefaultRegistry(llmClient)
	classifier := intent.NewClassifier(llmClient, pr)
	selector := plan.NewSelector(nil)
	exec := executor.New(registry, pr, cfg.StepTimeout, log)
	reconciler := reconcile.New(db, policyEngine, log)
	facade := coordinator.New(db, classifier, selector, exec, reconciler, cfg.BackgroundTimeout, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h := handler.NewHandler(facade, log)
	h.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.HTTPPort).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server gracefully")
	}
	log.Info().Msg("stopped")
}
