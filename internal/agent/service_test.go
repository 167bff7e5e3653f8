package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/honeypot/internal/domain"
)

type fakeGenerator struct {
	reply string
	err   error
	delay time.Duration

	mu      sync.Mutex
	persona string
	calls   int
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) GenerateReply(ctx context.Context, persona string, _ Dialogue) (string, error) {
	f.mu.Lock()
	f.calls++
	f.persona = persona
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	}
	return f.reply, f.err
}

type recordingConvLog struct {
	mu     sync.Mutex
	events []ConversationLogEvent
	closed bool
}

func (r *recordingConvLog) Log(ev ConversationLogEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingConvLog) Close() error {
	r.closed = true
	return nil
}

func blockedDialogue() Dialogue {
	return Dialogue{
		SessionID: "s1",
		Current:   domain.Message{Sender: domain.SenderScammer, Text: "Your account is blocked"},
		Metadata:  &domain.Metadata{Channel: "SMS"},
	}
}

func TestReplyUsesGenerator(t *testing.T) {
	gen := &fakeGenerator{reply: "  Oh dear, which bank is this?  "}
	convLog := &recordingConvLog{}
	svc := NewService(gen, time.Second, convLog, nil)

	got := svc.Reply(context.Background(), blockedDialogue())

	assert.Equal(t, Reply{Text: "Oh dear, which bank is this?", Source: "fake"}, got)
	assert.Equal(t, Persona, gen.persona)
	require.Len(t, convLog.events, 2)
	assert.Equal(t, DirectionInbound, convLog.events[0].Direction)
	assert.Equal(t, "Your account is blocked", convLog.events[0].ContentRaw)
	assert.Equal(t, DirectionOutbound, convLog.events[1].Direction)
	assert.Equal(t, "fake", convLog.events[1].Source)
	assert.Equal(t, "SMS", convLog.events[1].Channel)
}

func TestReplyFallsBackOnFailure(t *testing.T) {
	cases := map[string]*fakeGenerator{
		"error":        {err: ErrUnavailable},
		"rate limited": {err: ErrRateLimited},
		"empty":        {reply: "   "},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewService(gen, time.Second, nil, nil)

			got := svc.Reply(context.Background(), blockedDialogue())

			assert.Equal(t, SourceFallback, got.Source)
			assert.Equal(t, CannedReply("Your account is blocked"), got.Text)
		})
	}
}

func TestReplyFallsBackOnTimeout(t *testing.T) {
	gen := &fakeGenerator{reply: "late", delay: time.Second}
	svc := NewService(gen, 20*time.Millisecond, nil, nil)

	start := time.Now()
	got := svc.Reply(context.Background(), blockedDialogue())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, SourceFallback, got.Source)
}

func TestReplyDiscardsRevealingOutput(t *testing.T) {
	gen := &fakeGenerator{reply: "I know this is a scam, I'm calling the police"}
	svc := NewService(gen, time.Second, nil, nil)

	got := svc.Reply(context.Background(), blockedDialogue())

	assert.Equal(t, SourceGuard, got.Source)
	assert.Equal(t, CannedReply("Your account is blocked"), got.Text)
}

func TestReplyWithoutGenerator(t *testing.T) {
	svc := NewService(nil, 0, nil, nil)

	got := svc.Reply(context.Background(), blockedDialogue())

	assert.Equal(t, SourceFallback, got.Source)
	assert.False(t, svc.Available())
	assert.Equal(t, SourceFallback, svc.Provider())
}

func TestServiceCloseClosesConversationLog(t *testing.T) {
	convLog := &recordingConvLog{}
	svc := NewService(&fakeGenerator{}, time.Second, convLog, nil)

	require.NoError(t, svc.Close())
	assert.True(t, convLog.closed)
}

func TestFailureReason(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-expired.Done()

	assert.Equal(t, "timeout", failureReason(expired, ErrUnavailable))
	assert.Equal(t, "rate_limited", failureReason(context.Background(), fmt.Errorf("%w: 429", ErrRateLimited)))
	assert.Equal(t, "invalid_output", failureReason(context.Background(), ErrInvalidOutput))
	assert.Equal(t, "unavailable", failureReason(context.Background(), errors.New("boom")))
}

func TestNewGeneratorSelection(t *testing.T) {
	t.Run("fallback", func(t *testing.T) {
		g, err := NewGenerator(Config{Provider: ProviderFallback, OpenAIAPIKey: "sk"}, nil)
		require.NoError(t, err)
		assert.Nil(t, g)
	})
	t.Run("auto without backends", func(t *testing.T) {
		g, err := NewGenerator(Config{Provider: ProviderAuto}, nil)
		require.NoError(t, err)
		assert.Nil(t, g)
	})
	t.Run("auto prefers openai", func(t *testing.T) {
		g, err := NewGenerator(Config{Provider: ProviderAuto, OpenAIAPIKey: "sk", GRPCAddr: "127.0.0.1:1"}, nil)
		require.NoError(t, err)
		require.NotNil(t, g)
		assert.Equal(t, ProviderOpenAI, g.Name())
	})
	t.Run("explicit openai needs key", func(t *testing.T) {
		g, err := NewGenerator(Config{Provider: ProviderOpenAI}, nil)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Nil(t, g)
	})
	t.Run("explicit grpc needs address", func(t *testing.T) {
		g, err := NewGenerator(Config{Provider: ProviderGRPC}, nil)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Nil(t, g)
	})
	t.Run("unknown", func(t *testing.T) {
		_, err := NewGenerator(Config{Provider: "bogus"}, nil)
		assert.Error(t, err)
	})
}
