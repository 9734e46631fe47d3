package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseDSN    string `yaml:"databaseDSN"`
	CurriculumPath string `yaml:"curriculumPath"`

	SessionBackend    string   `yaml:"sessionBackend"` // "jwt" or "redis"
	SessionTTL        string   `yaml:"sessionTTL"`
	JWTSecret         string   `yaml:"jwtSecret"`
	JWTIssuer         string   `yaml:"jwtIssuer"`
	JWTAudience       string   `yaml:"jwtAudience"`
	JWTLeeway         string   `yaml:"jwtLeeway"`
	RedisAddr         string   `yaml:"redisAddr"`
	RedisPassword     string   `yaml:"redisPassword"`
	TrustedProxyCIDRs []string `yaml:"trustedProxyCidrs"`

	LLMProvider   string `yaml:"llmProvider"` // "gemini", "ollama", or "openai"
	GeminiAPIKey  string `yaml:"geminiAPIKey"`
	GeminiModel   string `yaml:"geminiModel"`
	OllamaBaseURL string `yaml:"ollamaBaseURL"`
	OllamaModel   string `yaml:"ollamaModel"`
	OpenAIBaseURL string `yaml:"openaiBaseURL"`
	OpenAIAPIKey  string `yaml:"openaiAPIKey"`
	OpenAIModel   string `yaml:"openaiModel"`

	LLMRetryAttempts int    `yaml:"llmRetryAttempts"`
	LLMRetryDelay    string `yaml:"llmRetryDelay"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("CURRICULUM_PATH"); v != "" {
		cfg.CurriculumPath = strings.TrimSpace(v)
	}
	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		cfg.SessionBackend = strings.TrimSpace(v)
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		cfg.SessionTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		cfg.JWTAudience = v
	}
	if v := os.Getenv("JWT_LEEWAY"); v != "" {
		cfg.JWTLeeway = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLMProvider = strings.TrimSpace(v)
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = strings.TrimSpace(v)
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.OllamaBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = strings.TrimSpace(v)
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = strings.TrimSpace(v)
	}
	if v := os.Getenv("LLM_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.LLMRetryAttempts = n
		}
	}
	if v := os.Getenv("LLM_RETRY_DELAY"); v != "" {
		cfg.LLMRetryDelay = strings.TrimSpace(v)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return errors.New("config: databaseDSN is required (set in config.yaml or DATABASE_DSN)")
	}
	switch cfg.SessionBackend {
	case "", "jwt":
		if strings.TrimSpace(cfg.JWTSecret) == "" {
			return errors.New("config: jwtSecret is required for the jwt session backend")
		}
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for the redis session backend")
		}
	default:
		return fmt.Errorf("config: unknown sessionBackend %q", cfg.SessionBackend)
	}
	switch cfg.LLMProvider {
	case "", "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return errors.New("config: geminiAPIKey is required for the gemini provider")
		}
	case "ollama":
		if strings.TrimSpace(cfg.OllamaModel) == "" {
			return errors.New("config: ollamaModel is required for the ollama provider")
		}
	case "openai":
		if strings.TrimSpace(cfg.OpenAIBaseURL) == "" || strings.TrimSpace(cfg.OpenAIModel) == "" {
			return errors.New("config: openaiBaseURL and openaiModel are required for the openai provider")
		}
	default:
		return fmt.Errorf("config: unknown llmProvider %q", cfg.LLMProvider)
	}
	if cfg.LLMRetryAttempts < 0 {
		return errors.New("config: llmRetryAttempts must be >= 0")
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// SessionTTLOrDefault parses the session TTL, defaulting to 24h.
func (c FileConfig) SessionTTLOrDefault() time.Duration {
	if strings.TrimSpace(c.SessionTTL) == "" {
		return 24 * time.Hour
	}
	dur, err := time.ParseDuration(c.SessionTTL)
	if err != nil || dur <= 0 {
		return 24 * time.Hour
	}
	return dur
}

// JWTLeewayOrDefault parses the JWT leeway, defaulting to zero
// (the session store applies its own default).
func (c FileConfig) JWTLeewayOrDefault() time.Duration {
	if strings.TrimSpace(c.JWTLeeway) == "" {
		return 0
	}
	dur, err := time.ParseDuration(c.JWTLeeway)
	if err != nil || dur < 0 {
		return 0
	}
	return dur
}

// RetryDelayOrDefault parses the inter-attempt delay, defaulting to 1s.
func (c FileConfig) RetryDelayOrDefault() time.Duration {
	if strings.TrimSpace(c.LLMRetryDelay) == "" {
		return time.Second
	}
	dur, err := time.ParseDuration(c.LLMRetryDelay)
	if err != nil || dur < 0 {
		return time.Second
	}
	return dur
}

// RetryAttemptsOrDefault returns the attempt count, defaulting to 3.
func (c FileConfig) RetryAttemptsOrDefault() int {
	if c.LLMRetryAttempts <= 0 {
		return 3
	}
	return c.LLMRetryAttempts
}
