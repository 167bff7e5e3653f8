// Package agent generates in-persona replies that keep a scammer talking.
package agent

import (
	"time"

	"github.com/ashureev/honeypot/internal/domain"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAuto     = "auto"
	ProviderOpenAI   = "openai"
	ProviderGRPC     = "grpc"
	ProviderFallback = "fallback"
)

// Reply sources reported alongside generated text.
const (
	SourceFallback = "fallback"
	SourceGuard    = "guard"
)

// Generation defaults.
const (
	defaultTemperature = 0.8
	defaultMaxTokens   = 150
	historyWindow      = 10
)

// Dialogue is the conversation context a reply is generated for.
type Dialogue struct {
	SessionID string
	Current   domain.Message
	History   []domain.Message
	Metadata  *domain.Metadata
}

// Reply is generated text and the generator that produced it.
type Reply struct {
	Text   string
	Source string
}

// Config holds agent configuration.
type Config struct {
	Provider      string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	GRPCAddr      string
	Timeout       time.Duration
	Temperature   float32
	MaxTokens     int
}

// DefaultConfig returns default agent configuration.
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderAuto,
		OpenAIModel: "gpt-4o-mini",
		Timeout:     15 * time.Second,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
}
