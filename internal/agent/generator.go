package agent

import (
	"context"
	"errors"
)

// Errors a Generator may return. The Service recovers from all of them by
// falling back to canned replies.
var (
	ErrUnavailable   = errors.New("reply generator unavailable")
	ErrRateLimited   = errors.New("reply generator rate limited")
	ErrInvalidOutput = errors.New("reply generator returned invalid output")
	ErrPersonaLeak   = errors.New("reply would reveal detection")
)

// Generator produces a persona reply for a dialogue.
type Generator interface {
	// GenerateReply returns reply text for d, spoken in the given persona.
	GenerateReply(ctx context.Context, persona string, d Dialogue) (string, error)

	// Name identifies the generator in logs and metrics.
	Name() string
}

// Ensure the generators implement Generator.
var (
	_ Generator = (*FallbackGenerator)(nil)
	_ Generator = (*OpenAIGenerator)(nil)
	_ Generator = (*GrpcGenerator)(nil)
)
