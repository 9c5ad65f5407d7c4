package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// DogfightClient calls the aoa.v1.Dogfight service.
type DogfightClient struct {
	cc grpc.ClientConnInterface
}

// NewDogfightClient wraps a client connection.
func NewDogfightClient(cc grpc.ClientConnInterface) *DogfightClient {
	return &DogfightClient{cc: cc}
}

// Call invokes method with fields as the request struct.
func (c *DogfightClient) Call(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DogfightClient) CreateGame(ctx context.Context, gameID, playerName, faction string) (*structpb.Struct, error) {
	return c.Call(ctx, "CreateGame", map[string]any{"game_id": gameID, "player_name": playerName, "faction": faction})
}

func (c *DogfightClient) JoinGame(ctx context.Context, gameID, playerName string) (*structpb.Struct, error) {
	return c.Call(ctx, "JoinGame", map[string]any{"game_id": gameID, "player_name": playerName})
}

func (c *DogfightClient) ListGames(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "ListGames", map[string]any{})
}

func (c *DogfightClient) SubmitMove(ctx context.Context, gameID, faction string, moveIndex int) (*structpb.Struct, error) {
	return c.Call(ctx, "SubmitMove", map[string]any{"game_id": gameID, "faction": faction, "move_index": moveIndex})
}

func (c *DogfightClient) SubmitLostDecision(ctx context.Context, gameID, faction, decision string) (*structpb.Struct, error) {
	return c.Call(ctx, "SubmitLostDecision", map[string]any{"game_id": gameID, "faction": faction, "decision": decision})
}

func (c *DogfightClient) GetCurrentPage(ctx context.Context, gameID string) (*structpb.Struct, error) {
	return c.Call(ctx, "GetCurrentPage", map[string]any{"game_id": gameID})
}

func (c *DogfightClient) GetStatus(ctx context.Context, gameID, playerName string) (*structpb.Struct, error) {
	return c.Call(ctx, "GetStatus", map[string]any{"game_id": gameID, "player_name": playerName})
}
