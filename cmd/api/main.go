package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"nexture/internal/app"
	"nexture/internal/config"
	"nexture/internal/server"
	"nexture/internal/util"
	"nexture/pkg/ai"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	generator, err := buildGenerator(cfg)
	if err != nil {
		log.Fatalf("failed to init text generator: %v", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseDSN:    cfg.DatabaseDSN,
		SessionBackend: cfg.SessionBackend,
		SessionTTL:     cfg.SessionTTLOrDefault(),
		JWTSecret:      cfg.JWTSecret,
		JWTIssuer:      cfg.JWTIssuer,
		JWTAudience:    cfg.JWTAudience,
		JWTLeeway:      cfg.JWTLeewayOrDefault(),
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		RetryAttempts:  cfg.RetryAttemptsOrDefault(),
		RetryDelay:     cfg.RetryDelayOrDefault(),
		Generator:      generator,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	if cfg.CurriculumPath != "" {
		if err := appCore.SeedCurriculum(cfg.CurriculumPath); err != nil {
			log.Fatalf("failed to seed curriculum: %v", err)
		}
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		TrustedProxies: trusted,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("api server listening", "addr", addr, "provider", cfg.LLMProvider)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func buildGenerator(cfg config.FileConfig) (ai.TextGenerator, error) {
	switch cfg.LLMProvider {
	case "", "gemini":
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return ai.NewGeminiGenerator(client, cfg.GeminiModel), nil
	case "ollama":
		return ai.NewOllamaGenerator(ai.NewOllamaClient(cfg.OllamaBaseURL), cfg.OllamaModel), nil
	case "openai":
		return ai.NewOpenAICompatGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown llmProvider %q", cfg.LLMProvider)
	}
}
