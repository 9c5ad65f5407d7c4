package game

import (
	"fmt"

	"github.com/aceofaces/aoa-server/internal/page"
)

// DamageTable holds the damage dealt by one hit at each distance.
type DamageTable struct {
	Long   float64
	Medium float64
	Close  float64
}

// DefaultDamageTable returns the standard damage values.
func DefaultDamageTable() DamageTable {
	return DamageTable{Long: 0.5, Medium: 1.0, Close: 2.0}
}

// Validate checks that damage strictly grows as range closes.
func (t DamageTable) Validate() error {
	if t.Long <= 0 || t.Medium <= t.Long || t.Close <= t.Medium {
		return fmt.Errorf("damage table must satisfy 0 < long < medium < close, got %.2f/%.2f/%.2f",
			t.Long, t.Medium, t.Close)
	}
	return nil
}

// For returns the damage of a single hit at distance d.
func (t DamageTable) For(d page.Distance) float64 {
	switch d {
	case page.DistanceClose:
		return t.Close
	case page.DistanceMedium:
		return t.Medium
	case page.DistanceLong:
		return t.Long
	default:
		return 0
	}
}

// Exchange returns the damage taken by each side after both moved onto
// their new pages. Rules are cumulative:
//   - mutual fire on either page hits both sides
//   - a side firing out hits its opponent
//
// An "in" page is the mirror of the opponent's "out" and adds nothing on
// its own. Every hit scales with distance, the distance on the resolving
// side's new page.
func (t DamageTable) Exchange(a, b page.Page, distance page.Distance) (toA, toB float64) {
	var hitsA, hitsB int
	if a.Fire == page.FireMutual || b.Fire == page.FireMutual {
		hitsA++
		hitsB++
	}
	if a.Fire == page.FireOut {
		hitsB++
	}
	if b.Fire == page.FireOut {
		hitsA++
	}
	hit := t.For(distance)
	return float64(hitsA) * hit, float64(hitsB) * hit
}
