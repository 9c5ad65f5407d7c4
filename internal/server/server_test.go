package server

import (
	"testing"

	"github.com/aceofaces/aoa-server/internal/game"
	"github.com/aceofaces/aoa-server/internal/lobby"
	"github.com/aceofaces/aoa-server/internal/page/pagetest"
	"go.uber.org/zap/zaptest"
)

type firstRandom struct{}

func (firstRandom) IntN(int) int { return 0 }

func newTestLobby(t *testing.T, options ...lobby.Option) *lobby.Manager {
	t.Helper()
	options = append([]lobby.Option{lobby.WithGameOptions(game.Options{Random: firstRandom{}})}, options...)
	return lobby.NewManager(zaptest.NewLogger(t), pagetest.Default(), options...)
}
