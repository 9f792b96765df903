package scape

import (
	"fmt"
	"math/rand"

	"gannet/internal/nn"
)

// ParityScape enumerates every Bits-wide integer and expects true for even
// values.
type ParityScape struct {
	Bits int
}

func (ParityScape) Name() string {
	return "parity"
}

func (s ParityScape) Description() string {
	return fmt.Sprintf("classify %d-bit integers as even", s.bits())
}

func (s ParityScape) Topology() nn.Topology {
	return nn.Topology{Inputs: s.bits(), Hidden: []int{6}, Outputs: 1}
}

func (s ParityScape) Cases(_ *rand.Rand) ([]Case, error) {
	bits := s.bits()
	if bits > 16 {
		return nil, fmt.Errorf("parity bits must be <= 16, got %d", bits)
	}
	count := 1 << bits
	cases := make([]Case, 0, count)
	for v := 0; v < count; v++ {
		cases = append(cases, Case{
			Features: EncodeBits(v, bits),
			Expected: []bool{v%2 == 0},
			Label:    fmt.Sprintf("%d", v),
		})
	}
	return cases, nil
}

func (s ParityScape) bits() int {
	if s.Bits <= 0 {
		return 3
	}
	return s.Bits
}
