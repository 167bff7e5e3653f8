package agent

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ashureev/honeypot/internal/domain"
)

type personaServer struct {
	reply string
	err   error
	last  *structpb.Struct
}

func (p *personaServer) generate(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p.last = in
	if p.err != nil {
		return nil, p.err
	}
	return structpb.NewStruct(map[string]any{"reply": p.reply})
}

var personaServiceDesc = grpc.ServiceDesc{
	ServiceName: PersonaService,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "GenerateReply",
		Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			return srv.(*personaServer).generate(ctx, in)
		},
	}},
}

func startPersonaServer(t *testing.T, impl *personaServer) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	srv.RegisterService(&personaServiceDesc, impl)
	hs := health.NewServer()
	hs.SetServingStatus(PersonaService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func TestGrpcGeneratorRoundTrip(t *testing.T) {
	impl := &personaServer{reply: "Hmm... which branch are you calling from?"}
	addr := startPersonaServer(t, impl)

	g, err := NewGrpcGenerator(Config{GRPCAddr: addr, Temperature: 0.8, MaxTokens: 150}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	require.NoError(t, g.Health(context.Background()))

	reply, err := g.GenerateReply(context.Background(), Persona, Dialogue{
		SessionID: "s1",
		Current:   domain.Message{Sender: domain.SenderScammer, Text: "Pay the fine"},
		History:   []domain.Message{{Sender: domain.SenderScammer, Text: "You are under investigation"}},
		Metadata:  &domain.Metadata{Channel: "WhatsApp"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Hmm... which branch are you calling from?", reply)
	fields := impl.last.AsMap()
	assert.Equal(t, "s1", fields["session_id"])
	assert.Equal(t, "Pay the fine", fields["message"])
	assert.Equal(t, "WhatsApp", fields["channel"])
	assert.Equal(t, float64(150), fields["max_tokens"])
	assert.Len(t, fields["history"], 1)
}

func TestGrpcGeneratorClassifiesStatus(t *testing.T) {
	cases := []struct {
		code codes.Code
		want error
	}{
		{codes.ResourceExhausted, ErrRateLimited},
		{codes.InvalidArgument, ErrInvalidOutput},
		{codes.Unavailable, ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.code.String(), func(t *testing.T) {
			addr := startPersonaServer(t, &personaServer{err: status.Error(tc.code, "nope")})
			g, err := NewGrpcGenerator(Config{GRPCAddr: addr}, nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = g.Close() })

			_, err = g.GenerateReply(context.Background(), Persona, Dialogue{Current: domain.Message{Text: "hi"}})

			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGrpcGeneratorEmptyReplyIsInvalid(t *testing.T) {
	addr := startPersonaServer(t, &personaServer{reply: "  "})
	g, err := NewGrpcGenerator(Config{GRPCAddr: addr}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	_, err = g.GenerateReply(context.Background(), Persona, Dialogue{Current: domain.Message{Text: "hi"}})

	assert.ErrorIs(t, err, ErrInvalidOutput)
}
