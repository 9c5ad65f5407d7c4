package server

import (
	"context"
	"math"
	"net"
	"strings"

	apperrors "github.com/aceofaces/aoa-server/internal/errors"
	"github.com/aceofaces/aoa-server/internal/lobby"
	"github.com/aceofaces/aoa-server/internal/page"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the gRPC service.
const ServiceName = "aoa.v1.Dogfight"

// DogfightServer is the gRPC surface of the lobby. Every message is a
// google.protobuf.Struct.
type DogfightServer interface {
	CreateGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListGames(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitMove(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitLostDecision(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCurrentPage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type dogfightMethod func(DogfightServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call dogfightMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DogfightServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DogfightServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// DogfightServiceDesc describes the aoa.v1.Dogfight service for
// grpc.Server.RegisterService.
var DogfightServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DogfightServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreateGame", DogfightServer.CreateGame),
		unaryHandler("JoinGame", DogfightServer.JoinGame),
		unaryHandler("ListGames", DogfightServer.ListGames),
		unaryHandler("SubmitMove", DogfightServer.SubmitMove),
		unaryHandler("SubmitLostDecision", DogfightServer.SubmitLostDecision),
		unaryHandler("GetCurrentPage", DogfightServer.GetCurrentPage),
		unaryHandler("GetStatus", DogfightServer.GetStatus),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "aoa/v1/dogfight.proto",
}

// RegisterDogfightServer registers srv on s.
func RegisterDogfightServer(s grpc.ServiceRegistrar, srv DogfightServer) {
	s.RegisterService(&DogfightServiceDesc, srv)
}

// dogfightServer implements DogfightServer on top of the lobby.
type dogfightServer struct {
	lobby  *lobby.Manager
	logger *zap.Logger
}

// NewDogfightServer creates the gRPC service implementation.
func NewDogfightServer(l *lobby.Manager, logger *zap.Logger) DogfightServer {
	return &dogfightServer{lobby: l, logger: logger}
}

// NewGRPCServer builds a grpc.Server with the standard interceptor chain
// and the Dogfight service registered.
func NewGRPCServer(l *lobby.Manager, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.UnaryInterceptor(ChainUnaryInterceptors(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		)),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterDogfightServer(s, NewDogfightServer(l, logger))
	return s
}

func (s *dogfightServer) CreateGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	faction, err := page.ParseFaction(stringField(req, "faction"))
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	id, err := s.lobby.CreateGame(ctx, lobby.CreateGameRequest{
		GameID:   stringField(req, "game_id"),
		HostName: stringField(req, "player_name"),
		Faction:  string(faction),
		Password: stringField(req, "password"),
	})
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}

	s.logger.Debug("game created over grpc",
		zap.String("game_id", id),
		zap.String("peer", extractHostFromContext(ctx)),
	)
	return newStruct(map[string]any{
		"game_id": id,
		"faction": string(faction),
		"message": "Game " + id + " created. Waiting for an opponent.",
	})
}

func (s *dogfightServer) JoinGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := stringField(req, "player_name")
	faction, err := s.lobby.JoinGame(ctx, lobby.JoinGameRequest{
		GameID:    stringField(req, "game_id"),
		GuestName: name,
		Password:  stringField(req, "password"),
	})
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return newStruct(map[string]any{
		"faction": string(faction),
		"message": strings.TrimSpace(name) + " joined",
	})
}

func (s *dogfightServer) ListGames(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return newStruct(map[string]any{
		"games": summaryFields(s.lobby.ListAvailableGames(ctx)),
	})
}

func (s *dogfightServer) SubmitMove(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	index, err := intField(req, "move_index")
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	res, err := s.lobby.SubmitMove(ctx, stringField(req, "game_id"), stringField(req, "faction"), index)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return newStruct(resolutionFields(res))
}

func (s *dogfightServer) SubmitLostDecision(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.lobby.SubmitLostDecision(ctx,
		stringField(req, "game_id"),
		stringField(req, "faction"),
		stringField(req, "decision"),
	)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return newStruct(resolutionFields(res))
}

func (s *dogfightServer) GetCurrentPage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gameID := stringField(req, "game_id")
	number, err := s.lobby.CurrentPage(ctx, gameID)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return newStruct(map[string]any{"game_id": gameID, "page": number})
}

func (s *dogfightServer) GetStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text, err := s.lobby.Status(ctx, stringField(req, "game_id"), stringField(req, "player_name"))
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return newStruct(map[string]any{"status": text})
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return out, nil
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.GetFields()[key].GetStringValue())
}

func intField(s *structpb.Struct, key string) (int, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, apperrors.New(apperrors.CodeInvalidInput, "%s is required", key)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, apperrors.New(apperrors.CodeInvalidInput, "%s must be a number", key)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, apperrors.New(apperrors.CodeInvalidMoveIndex, "%s must be a whole number, got %v", key, n.NumberValue)
	}
	return int(n.NumberValue), nil
}

// extractHostFromContext returns the peer host of a call.
func extractHostFromContext(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != net.Addr(nil) {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
