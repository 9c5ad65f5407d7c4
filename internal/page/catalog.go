package page

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed moves.yaml
var defaultCatalogYAML []byte

// MoveSpec is the page-independent description of a move.
type MoveSpec struct {
	Index     int       `yaml:"index"`
	Name      string    `yaml:"name"`
	Modifier  int       `yaml:"modifier"`
	Direction Direction `yaml:"direction"`
	Descent   bool      `yaml:"descent"`
	Flair     bool      `yaml:"flair"`
}

// Catalog is the fixed move menu, ordered by index.
type Catalog []MoveSpec

type catalogFile struct {
	Moves []MoveSpec `yaml:"moves"`
}

// LoadCatalog decodes a YAML move catalog.
func LoadCatalog(r io.Reader) (Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode move catalog: %w", err)
	}

	if len(file.Moves) != MoveCount {
		return nil, fmt.Errorf("move catalog has %d moves, want %d", len(file.Moves), MoveCount)
	}

	catalog := make(Catalog, MoveCount)
	seen := make(map[int]bool, MoveCount)
	for _, spec := range file.Moves {
		if spec.Index < 0 || spec.Index >= MoveCount {
			return nil, fmt.Errorf("move %q has index %d out of range", spec.Name, spec.Index)
		}
		if seen[spec.Index] {
			return nil, fmt.Errorf("duplicate move index %d", spec.Index)
		}
		if !spec.Direction.Valid() {
			return nil, fmt.Errorf("move %d has invalid direction %q", spec.Index, spec.Direction)
		}
		seen[spec.Index] = true
		catalog[spec.Index] = spec
	}
	return catalog, nil
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     Catalog
)

// DefaultCatalog returns the embedded move catalog.
func DefaultCatalog() Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := LoadCatalog(bytes.NewReader(defaultCatalogYAML))
		if err != nil {
			panic(fmt.Sprintf("embedded move catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// movements combines the catalog with one row's transitions.
func (c Catalog) movements(transitions [MoveCount]int) []Movement {
	moves := make([]Movement, len(c))
	for i, spec := range c {
		moves[i] = Movement{
			Index:     spec.Index,
			Name:      spec.Name,
			Modifier:  spec.Modifier,
			Direction: spec.Direction,
			Descent:   spec.Descent,
			Flair:     spec.Flair,
			NextPage:  transitions[spec.Index],
		}
	}
	return moves
}
