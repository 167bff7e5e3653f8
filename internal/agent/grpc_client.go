package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// PersonaService is the gRPC service the generator calls.
const (
	PersonaService      = "honeypot.agent.v1.PersonaService"
	generateReplyMethod = "/" + PersonaService + "/GenerateReply"
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// GrpcGenerator generates replies through a remote persona service. Requests
// and responses are google.protobuf.Struct messages.
type GrpcGenerator struct {
	conn        *grpc.ClientConn
	health      healthpb.HealthClient
	addr        string
	temperature float32
	maxTokens   int
	logger      *slog.Logger
}

// GrpcClientConfig holds configuration for the gRPC client.
type GrpcClientConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultGrpcClientConfig returns default configuration for addr.
func DefaultGrpcClientConfig(addr string) GrpcClientConfig {
	return GrpcClientConfig{
		Address:          addr,
		ConnectTimeout:   5 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// NewGrpcGenerator dials the persona service and waits until the connection
// is ready, failing fast on a bad endpoint.
func NewGrpcGenerator(cfg Config, logger *slog.Logger) (*GrpcGenerator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GRPCAddr == "" {
		return nil, fmt.Errorf("%w: AGENT_GRPC_ADDR not set", ErrUnavailable)
	}
	clientCfg := DefaultGrpcClientConfig(cfg.GRPCAddr)

	kacp := keepalive.ClientParameters{
		Time:                clientCfg.KeepaliveTime,
		Timeout:             clientCfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}

	// Build client connection (no network I/O yet).
	conn, err := grpc.NewClient(clientCfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	)
	if err != nil {
		return nil, fmt.Errorf("create persona client for %s: %w", clientCfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), clientCfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("persona service at %s not ready: %w", clientCfg.Address, err)
	}

	logger.Info("Connected to persona service", "address", clientCfg.Address)
	return newGrpcGenerator(conn, cfg, logger), nil
}

func newGrpcGenerator(conn *grpc.ClientConn, cfg Config, logger *slog.Logger) *GrpcGenerator {
	return &GrpcGenerator{
		conn:        conn,
		health:      healthpb.NewHealthClient(conn),
		addr:        conn.Target(),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Name implements Generator.
func (g *GrpcGenerator) Name() string { return ProviderGRPC }

// Close closes the gRPC connection.
func (g *GrpcGenerator) Close() error {
	if g.conn == nil {
		return nil
	}
	if err := g.conn.Close(); err != nil {
		g.logger.Warn("failed to close gRPC connection", "error", err)
		return err
	}
	return nil
}

// Health checks whether the persona service reports SERVING.
func (g *GrpcGenerator) Health(ctx context.Context) error {
	resp, err := g.health.Check(ctx, &healthpb.HealthCheckRequest{Service: PersonaService})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: status %s", ErrUnavailable, resp.GetStatus())
	}
	return nil
}

// GenerateReply implements Generator.
func (g *GrpcGenerator) GenerateReply(ctx context.Context, persona string, d Dialogue) (string, error) {
	req, err := structpb.NewStruct(replyRequestFields(persona, d, g.temperature, g.maxTokens))
	if err != nil {
		return "", fmt.Errorf("encode reply request: %w", err)
	}

	var resp structpb.Struct
	if err := g.conn.Invoke(ctx, generateReplyMethod, req, &resp); err != nil {
		return "", classifyGrpcError(err)
	}

	field, ok := resp.GetFields()["reply"]
	if !ok {
		return "", fmt.Errorf("%w: missing reply field", ErrInvalidOutput)
	}
	reply := strings.TrimSpace(field.GetStringValue())
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", ErrInvalidOutput)
	}
	return reply, nil
}

func replyRequestFields(persona string, d Dialogue, temperature float32, maxTokens int) map[string]any {
	history := make([]any, 0, historyWindow)
	for _, m := range recentHistory(d.History) {
		history = append(history, map[string]any{"sender": m.Sender, "text": m.Text})
	}
	fields := map[string]any{
		"session_id":  d.SessionID,
		"persona":     persona,
		"message":     d.Current.Text,
		"history":     history,
		"temperature": float64(temperature),
		"max_tokens":  maxTokens,
	}
	if d.Metadata != nil {
		fields["channel"] = d.Metadata.Channel
		fields["language"] = d.Metadata.Language
		fields["locale"] = d.Metadata.Locale
	}
	return fields
}

func classifyGrpcError(err error) error {
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case codes.InvalidArgument, codes.Internal, codes.DataLoss:
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
