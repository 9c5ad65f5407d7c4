package server

import (
	"time"

	"github.com/aceofaces/aoa-server/internal/game"
	"github.com/aceofaces/aoa-server/internal/lobby"
	"github.com/aceofaces/aoa-server/internal/page"
)

// resolutionFields flattens a resolution into plain values shared by the
// JSON API and the gRPC structs.
func resolutionFields(res game.Resolution) map[string]any {
	out := map[string]any{
		"outcome":   string(res.Outcome),
		"message":   res.Message,
		"page":      res.Page,
		"game_over": res.GameOver,
		"damage":    factionValues(res.Damage),
		"health":    factionValues(res.Health),
	}
	if res.Winner != "" {
		out["winner"] = res.Winner
		out["loser"] = res.Loser
	}
	if res.Revealed != nil {
		out["revealed_direction"] = string(*res.Revealed)
	}
	return out
}

func factionValues(m map[page.Faction]float64) map[string]any {
	out := make(map[string]any, len(m))
	for f, v := range m {
		out[string(f)] = v
	}
	return out
}

func summaryFields(games []lobby.GameSummary) []any {
	out := make([]any, 0, len(games))
	for _, g := range games {
		out = append(out, map[string]any{
			"game_id":      g.ID,
			"host_name":    g.HostName,
			"host_faction": string(g.HostFaction),
			"open_faction": string(g.OpenFaction),
			"protected":    g.Protected,
			"created_at":   g.CreateTime.UTC().Format(time.RFC3339),
		})
	}
	return out
}
