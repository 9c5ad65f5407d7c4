package server

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestClient(t *testing.T) *DogfightClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := NewGRPCServer(newTestLobby(t), zaptest.NewLogger(t))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewDogfightClient(conn)
}

func TestGRPCCreateJoinAndMove(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	out, err := c.CreateGame(ctx, "g1", "Alice", "German")
	require.NoError(t, err)
	assert.Equal(t, "g1", out.GetFields()["game_id"].GetStringValue())
	assert.Equal(t, "german", out.GetFields()["faction"].GetStringValue())

	out, err = c.ListGames(ctx)
	require.NoError(t, err)
	games := out.GetFields()["games"].GetListValue().GetValues()
	require.Len(t, games, 1)
	assert.Equal(t, "allies", games[0].GetStructValue().GetFields()["open_faction"].GetStringValue())

	out, err = c.JoinGame(ctx, "g1", "Bob")
	require.NoError(t, err)
	assert.Equal(t, "allies", out.GetFields()["faction"].GetStringValue())

	out, err = c.SubmitMove(ctx, "g1", "german", 0)
	require.NoError(t, err)
	assert.Equal(t, "waiting", out.GetFields()["outcome"].GetStringValue())

	// The german host's move index picks the result.
	out, err = c.SubmitMove(ctx, "g1", "allies", 4)
	require.NoError(t, err)
	assert.Equal(t, "resolved", out.GetFields()["outcome"].GetStringValue())
	assert.Equal(t, float64(1), out.GetFields()["page"].GetNumberValue())

	out, err = c.GetCurrentPage(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, float64(1), out.GetFields()["page"].GetNumberValue())

	out, err = c.GetStatus(ctx, "g1", "Bob")
	require.NoError(t, err)
	assert.Contains(t, out.GetFields()["status"].GetStringValue(), "Bob (Allies)")
}

func TestGRPCErrorCodes(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CreateGame(ctx, "g1", "Alice", "axis")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = c.CreateGame(ctx, "../g1", "Alice", "allies")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.JoinGame(ctx, "missing", "Bob")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.CreateGame(ctx, "g1", "Alice", "allies")
	require.NoError(t, err)
	_, err = c.CreateGame(ctx, "g1", "Alice", "allies")
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = c.SubmitMove(ctx, "g1", "allies", 0)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = c.JoinGame(ctx, "g1", "Bob")
	require.NoError(t, err)
	_, err = c.JoinGame(ctx, "g1", "Carol")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = c.Call(ctx, "SubmitMove", map[string]any{"game_id": "g1", "faction": "allies", "move_index": 1.5})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Call(ctx, "SubmitMove", map[string]any{"game_id": "g1", "faction": "allies"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.SubmitLostDecision(ctx, "g1", "allies", "flee")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/aoa.v1.Dogfight/SubmitMove"}

	_, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestChainUnaryInterceptorsOrder(t *testing.T) {
	var calls []string
	mark := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			calls = append(calls, name)
			return handler(ctx, req)
		}
	}
	chain := ChainUnaryInterceptors(mark("outer"), mark("inner"))

	resp, err := chain(context.Background(), "req", &grpc.UnaryServerInfo{}, func(context.Context, any) (any, error) {
		calls = append(calls, "handler")
		return "resp", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "resp", resp)
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestIntField(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"n": 7, "f": 2.5, "s": "7"})
	require.NoError(t, err)

	n, err := intField(s, "n")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = intField(s, "f")
	assert.Error(t, err)
	_, err = intField(s, "s")
	assert.Error(t, err)
	_, err = intField(s, "missing")
	assert.Error(t, err)
}
