// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/honeypot/internal/agent"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	APIKey         string
	LogLevel       string
	AllowedOrigins []string
	DBPath         string
	PatternsFile   string

	Report          ReportConfig
	Session         SessionConfig
	Agent           agent.Config
	RateLimit       RateLimitConfig
	ConversationLog agent.ConversationLogConfig
}

// ReportConfig controls the terminal report gate and its transmission.
type ReportConfig struct {
	// URL is the report endpoint. Empty disables transmission; the gate and
	// latch still apply.
	URL         string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	MinTurns    int
	MaxTurns    int
}

// SessionConfig bounds the in-memory session store.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
	MaxSessions   int
	MaxReported   int
}

// RateLimitConfig controls per-client request throttling.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	agentCfg := agent.DefaultConfig()
	agentCfg.Provider = strings.ToLower(getEnv("AGENT_PROVIDER", agent.ProviderAuto))
	agentCfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	agentCfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", "")
	agentCfg.OpenAIModel = getEnv("OPENAI_MODEL", agentCfg.OpenAIModel)
	agentCfg.GRPCAddr = getEnv("AGENT_GRPC_ADDR", "")
	agentCfg.Timeout = getEnvDuration("AGENT_TIMEOUT", agentCfg.Timeout)

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		APIKey:         getEnv("HONEYPOT_API_KEY", ""),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		DBPath:         getEnv("DB_PATH", "./data/reports.db"),
		PatternsFile:   getEnv("PATTERNS_FILE", ""),
		Report: ReportConfig{
			URL:         getEnv("REPORT_URL", ""),
			Timeout:     getEnvDuration("REPORT_TIMEOUT", 10*time.Second),
			MaxAttempts: getEnvInt("REPORT_MAX_ATTEMPTS", 3),
			Backoff:     getEnvDuration("REPORT_BACKOFF", 500*time.Millisecond),
			MinTurns:    getEnvInt("MIN_TURNS_BEFORE_REPORT", 3),
			MaxTurns:    getEnvInt("MAX_CONVERSATION_TURNS", 10),
		},
		Session: SessionConfig{
			TTL:           getEnvDuration("SESSION_TTL", 60*time.Minute),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			MaxSessions:   getEnvInt("MAX_SESSIONS", 10000),
			MaxReported:   getEnvInt("MAX_REPORTED_SESSIONS", 100000),
		},
		Agent: agentCfg,
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
			Burst: getEnvInt("RATE_LIMIT_BURST", 20),
		},
		ConversationLog: agent.ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT cannot be empty"))
	}
	if c.APIKey == "" {
		errs = append(errs, errors.New("HONEYPOT_API_KEY is required"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH cannot be empty"))
	}
	if c.Report.MinTurns < 1 {
		errs = append(errs, errors.New("MIN_TURNS_BEFORE_REPORT must be >= 1"))
	}
	if c.Report.MaxTurns < c.Report.MinTurns {
		errs = append(errs, errors.New("MAX_CONVERSATION_TURNS must be >= MIN_TURNS_BEFORE_REPORT"))
	}
	if c.Report.Timeout <= 0 {
		errs = append(errs, errors.New("REPORT_TIMEOUT must be > 0"))
	}
	if c.Report.MaxAttempts < 1 {
		errs = append(errs, errors.New("REPORT_MAX_ATTEMPTS must be >= 1"))
	}
	if c.Agent.Timeout <= 0 {
		errs = append(errs, errors.New("AGENT_TIMEOUT must be > 0"))
	}
	switch c.Agent.Provider {
	case agent.ProviderAuto, agent.ProviderOpenAI, agent.ProviderGRPC, agent.ProviderFallback:
	default:
		errs = append(errs, fmt.Errorf("AGENT_PROVIDER %q is not one of auto, openai, grpc, fallback", c.Agent.Provider))
	}
	if c.Session.MaxSessions < 0 {
		errs = append(errs, errors.New("MAX_SESSIONS must be >= 0"))
	}
	if c.Session.MaxReported < 0 {
		errs = append(errs, errors.New("MAX_REPORTED_SESSIONS must be >= 0"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must be > 0 and RATE_LIMIT_BURST >= 1"))
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		errs = append(errs, errors.New("CONVERSATION_LOG_DIR cannot be empty"))
	}
	if c.ConversationLog.GlobalEnabled && c.ConversationLog.GlobalPath == "" {
		errs = append(errs, errors.New("CONVERSATION_LOG_GLOBAL_PATH cannot be empty"))
	}
	return errors.Join(errs...)
}

// ReportEnabled reports whether reports are transmitted.
func (c *Config) ReportEnabled() bool {
	return c.Report.URL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go duration strings ("90s") or bare seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
