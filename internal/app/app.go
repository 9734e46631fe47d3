package app

import (
	"fmt"
	"strings"
	"time"

	"nexture/pkg/ai"
	"nexture/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseDSN string

	SessionBackend string
	SessionTTL     time.Duration
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	JWTLeeway      time.Duration
	RedisAddr      string
	RedisPassword  string

	RetryAttempts int
	RetryDelay    time.Duration

	// Pre-built collaborators override the construction above; tests
	// inject these.
	Store     store.Store
	Sessions  store.SessionStore
	Generator ai.TextGenerator
}

// App is the core application service wiring together storage, sessions,
// and text generation.
type App struct {
	store    store.Store
	sessions store.SessionStore
	// gen is already wrapped with the shared retry policy; every
	// generation call in the app goes through it.
	gen        ai.TextGenerator
	retryCount int
	retryDelay time.Duration
}

// New constructs the application with database storage and session management.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("database DSN required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		switch cfg.SessionBackend {
		case "", "jwt":
			if strings.TrimSpace(cfg.JWTSecret) == "" {
				return nil, fmt.Errorf("jwtSecret is required for the jwt session backend")
			}
			var revoker store.TokenRevoker
			if strings.TrimSpace(cfg.RedisAddr) != "" {
				revoker = store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
			} else {
				revoker = store.NewMemoryTokenRevoker()
			}
			sessionStore = store.NewJWTSessionStoreWithOptions(cfg.JWTSecret, cfg.SessionTTL, revoker, store.JWTOptions{
				Issuer:   cfg.JWTIssuer,
				Audience: cfg.JWTAudience,
				Leeway:   cfg.JWTLeeway,
			})
		case "redis":
			if strings.TrimSpace(cfg.RedisAddr) == "" {
				return nil, fmt.Errorf("redisAddr is required for the redis session backend")
			}
			sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		default:
			return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
		}
	}

	if cfg.Generator == nil {
		return nil, fmt.Errorf("text generator required")
	}

	return &App{
		store:      dataStore,
		sessions:   sessionStore,
		gen:        ai.WithRetry(cfg.Generator, ai.RetryConfig{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}),
		retryCount: cfg.RetryAttempts,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Store exposes the data store for seeding and health checks.
func (a *App) Store() store.Store {
	return a.store
}
