package game

import (
	"strings"
	"testing"

	"github.com/aceofaces/aoa-server/internal/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDamageFloorsAtZero(t *testing.T) {
	c := NewCombatant("Alice", page.FactionAllies, StartingHealth)
	c.ApplyDamage(2)
	assert.Equal(t, 4.0, c.Health)
	assert.True(t, c.IsAlive())

	c.ApplyDamage(10)
	assert.Equal(t, 0.0, c.Health)
	assert.False(t, c.IsAlive())
}

func TestHealthBand(t *testing.T) {
	tests := []struct {
		health float64
		want   string
	}{
		{6, "undamaged"},
		{5.5, "lightly damaged"},
		{4, "lightly damaged"},
		{3, "badly damaged"},
		{2, "badly damaged"},
		{0.5, "critically damaged"},
		{0, "shot down"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HealthBand(tt.health), "health %.1f", tt.health)
	}
}

func TestFlavorVictory(t *testing.T) {
	f, err := LoadFlavor(strings.NewReader("victories:\n  - \"{winner} beats {loser}\"\n  - \"{loser} falls to {winner}\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "Alice beats Bob", f.Victory(fixedRandom(0), "Alice", "Bob"))
	assert.Equal(t, "Bob falls to Alice", f.Victory(fixedRandom(1), "Alice", "Bob"))
}

func TestLoadFlavorRequiresMessages(t *testing.T) {
	_, err := LoadFlavor(strings.NewReader("victories: []\n"))
	assert.Error(t, err)
}

func TestDefaultFlavorMentionsBothPilots(t *testing.T) {
	f := DefaultFlavor()
	require.NotEmpty(t, f.Victories)
	for i := range f.Victories {
		msg := f.Victory(fixedRandom(i), "Alice", "Bob")
		assert.Contains(t, msg, "Alice")
		assert.Contains(t, msg, "Bob")
	}
}
