package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HONEYPOT_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 3, cfg.Report.MinTurns)
	assert.Equal(t, 10, cfg.Report.MaxTurns)
	assert.Equal(t, 10*time.Second, cfg.Report.Timeout)
	assert.Equal(t, 3, cfg.Report.MaxAttempts)
	assert.False(t, cfg.ReportEnabled())
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10000, cfg.Session.MaxSessions)
	assert.Equal(t, 100000, cfg.Session.MaxReported)
	assert.Equal(t, "auto", cfg.Agent.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Agent.OpenAIModel)
	assert.True(t, cfg.ConversationLog.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HONEYPOT_API_KEY", "secret")
	t.Setenv("REPORT_URL", "https://reports.example/final")
	t.Setenv("REPORT_TIMEOUT", "3s")
	t.Setenv("SESSION_TTL", "90")
	t.Setenv("MIN_TURNS_BEFORE_REPORT", "2")
	t.Setenv("MAX_CONVERSATION_TURNS", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AGENT_PROVIDER", "FALLBACK")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CONVERSATION_LOG_ENABLED", "off")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.ReportEnabled())
	assert.Equal(t, 3*time.Second, cfg.Report.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Session.TTL)
	assert.Equal(t, 2, cfg.Report.MinTurns)
	assert.Equal(t, 4, cfg.Report.MaxTurns)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "fallback", cfg.Agent.Provider)
	assert.InDelta(t, 2.5, cfg.RateLimit.RPS, 1e-9)
	assert.False(t, cfg.ConversationLog.Enabled)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing api key":    {"HONEYPOT_API_KEY": ""},
		"min turns zero":     {"MIN_TURNS_BEFORE_REPORT": "0"},
		"max below min":      {"MIN_TURNS_BEFORE_REPORT": "5", "MAX_CONVERSATION_TURNS": "4"},
		"bad provider":       {"AGENT_PROVIDER": "gemini"},
		"bad log level":      {"LOG_LEVEL": "trace"},
		"zero attempts":      {"REPORT_MAX_ATTEMPTS": "0"},
		"zero agent timeout": {"AGENT_TIMEOUT": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("HONEYPOT_API_KEY", "secret")
			for k, v := range env {
				t.Setenv(k, v)
			}

			_, err := Load()

			assert.Error(t, err)
		})
	}
}

func TestGetEnvBoolFallsBackOnGarbage(t *testing.T) {
	t.Setenv("FLAG", "maybe")
	assert.True(t, getEnvBool("FLAG", true))
	assert.False(t, getEnvBool("FLAG", false))
}

func TestGetEnvDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("WAIT", "soon")
	assert.Equal(t, time.Minute, getEnvDuration("WAIT", time.Minute))
}
