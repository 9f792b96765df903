package scape

import (
	"fmt"
	"math/rand"
	"sort"

	"gannet/internal/nn"
	"gannet/internal/scapeid"
)

// Case is one encoded test case: the features fed to the input layer and the
// expected output vector.
type Case struct {
	Features []float64 `json:"features"`
	Expected []bool    `json:"expected"`
	Label    string    `json:"label,omitempty"`
}

// Scape supplies test cases for one task together with the default topology
// whose input and output widths match the encoding.
type Scape interface {
	Name() string
	Description() string
	Topology() nn.Topology
	Cases(rng *rand.Rand) ([]Case, error)
}

var builtin = map[string]Scape{
	ParityScape{}.Name(): ParityScape{Bits: 3},
	XORScape{}.Name():    XORScape{},
	AdderScape{}.Name():  AdderScape{Bits: 3, Samples: 100},
}

func Lookup(name string) (Scape, error) {
	s, ok := builtin[scapeid.Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported scape: %s", name)
	}
	return s, nil
}

func Builtin() []Scape {
	out := make([]Scape, 0, len(builtin))
	for _, name := range Names() {
		out = append(out, builtin[name])
	}
	return out
}

func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EncodeBits decomposes value into width 0/1 features, most significant bit
// first.
func EncodeBits(value, width int) []float64 {
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		if value&(1<<(width-1-i)) != 0 {
			out[i] = 1
		}
	}
	return out
}

// OneHot returns a width-long vector with only index set.
func OneHot(index, width int) []bool {
	out := make([]bool, width)
	if index >= 0 && index < width {
		out[index] = true
	}
	return out
}
