package game

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed flavor.yaml
var defaultFlavorYAML []byte

// RandomSource picks flavor text. *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// Flavor holds the victory messages announced when an aircraft goes down.
type Flavor struct {
	Victories []string `yaml:"victories"`
}

// LoadFlavor decodes flavor text from YAML.
func LoadFlavor(r io.Reader) (*Flavor, error) {
	var f Flavor
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode flavor text: %w", err)
	}
	if len(f.Victories) == 0 {
		return nil, fmt.Errorf("flavor text has no victory messages")
	}
	return &f, nil
}

var (
	defaultFlavorOnce sync.Once
	defaultFlavor     *Flavor
)

// DefaultFlavor returns the embedded flavor text.
func DefaultFlavor() *Flavor {
	defaultFlavorOnce.Do(func() {
		f, err := LoadFlavor(bytes.NewReader(defaultFlavorYAML))
		if err != nil {
			panic(fmt.Sprintf("embedded flavor text: %v", err))
		}
		defaultFlavor = f
	})
	return defaultFlavor
}

// Victory renders a randomly chosen victory message.
func (f *Flavor) Victory(rnd RandomSource, winner, loser string) string {
	tmpl := f.Victories[rnd.IntN(len(f.Victories))]
	return strings.NewReplacer("{winner}", winner, "{loser}", loser).Replace(tmpl)
}
