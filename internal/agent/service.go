package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/honeypot/internal/domain"
)

// Service produces persona replies. It never fails: any generator error or
// risky reply is replaced by a canned fallback.
type Service struct {
	generator Generator
	timeout   time.Duration
	convLog   ConversationLogger
	logger    *slog.Logger
}

// NewService creates a service around generator, which may be nil to use
// canned replies only. convLog may be nil.
func NewService(generator Generator, timeout time.Duration, convLog ConversationLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if convLog == nil {
		convLog = noopConversationLogger{}
	}
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Service{
		generator: generator,
		timeout:   timeout,
		convLog:   convLog,
		logger:    logger,
	}
}

// NewGenerator builds the generator selected by cfg.Provider. It returns a
// nil Generator for the fallback provider, and for auto when no backend is
// configured or reachable.
func NewGenerator(cfg Config, logger *slog.Logger) (Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case ProviderFallback:
		return nil, nil
	case ProviderOpenAI:
		return openAIGenerator(cfg, logger)
	case ProviderGRPC:
		return grpcGenerator(cfg, logger)
	case ProviderAuto, "":
		if cfg.OpenAIAPIKey != "" {
			return openAIGenerator(cfg, logger)
		}
		if cfg.GRPCAddr != "" {
			g, err := grpcGenerator(cfg, logger)
			if err != nil {
				logger.Warn("Persona service unreachable, using canned replies", "error", err)
				return nil, nil
			}
			return g, nil
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown agent provider %q", cfg.Provider)
	}
}

func openAIGenerator(cfg Config, logger *slog.Logger) (Generator, error) {
	g, err := NewOpenAIGenerator(cfg, logger)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func grpcGenerator(cfg Config, logger *slog.Logger) (Generator, error) {
	g, err := NewGrpcGenerator(cfg, logger)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Available reports whether a model-backed generator is configured.
func (s *Service) Available() bool {
	return s.generator != nil
}

// Provider names the active generator.
func (s *Service) Provider() string {
	if s.generator == nil {
		return SourceFallback
	}
	return s.generator.Name()
}

// Reply generates the persona's next message for d.
func (s *Service) Reply(ctx context.Context, d Dialogue) Reply {
	s.logInbound(d)
	reply := s.reply(ctx, d)
	s.convLog.Log(ConversationLogEvent{
		SessionID:  d.SessionID,
		Channel:    channelOf(d.Metadata),
		Direction:  DirectionOutbound,
		EventType:  EventAgentReply,
		Source:     reply.Source,
		ContentRaw: reply.Text,
	})
	return reply
}

func (s *Service) reply(ctx context.Context, d Dialogue) Reply {
	canned := Reply{Text: CannedReply(d.Current.Text), Source: SourceFallback}
	if s.generator == nil {
		return canned
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.generator.GenerateReply(ctx, Persona, d)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = ErrInvalidOutput
	}
	if err != nil {
		s.logger.Warn("Reply generation failed, using canned reply",
			"session_id", d.SessionID,
			"provider", s.generator.Name(),
			"reason", failureReason(ctx, err),
			"error", err,
			"duration", time.Since(start))
		return canned
	}

	if RevealsDetection(text) {
		s.logger.Warn("Generated reply discarded",
			"session_id", d.SessionID,
			"provider", s.generator.Name(),
			"error", ErrPersonaLeak)
		return Reply{Text: canned.Text, Source: SourceGuard}
	}

	s.logger.Debug("Reply generated",
		"session_id", d.SessionID,
		"provider", s.generator.Name(),
		"length", len(text),
		"duration", time.Since(start))
	return Reply{Text: text, Source: s.generator.Name()}
}

func (s *Service) logInbound(d Dialogue) {
	s.convLog.Log(ConversationLogEvent{
		SessionID:  d.SessionID,
		Channel:    channelOf(d.Metadata),
		Direction:  DirectionInbound,
		EventType:  EventScammerMessage,
		ContentRaw: d.Current.Text,
	})
}

// Close releases the generator connection and flushes the conversation log.
func (s *Service) Close() error {
	var errs []error
	if c, ok := s.generator.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.convLog.Close())
	return errors.Join(errs...)
}

func failureReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidOutput):
		return "invalid_output"
	default:
		return "unavailable"
	}
}

func channelOf(md *domain.Metadata) string {
	if md == nil {
		return ""
	}
	return md.Channel
}
