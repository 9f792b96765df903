package scape

import (
	"fmt"
	"math/rand"

	"gannet/internal/nn"
)

// AdderScape samples pairs of Bits-wide integers. Both operands are encoded
// side by side; the expected output is a one-hot vector over every possible
// sum.
type AdderScape struct {
	Bits    int
	Samples int
}

func (AdderScape) Name() string {
	return "adder"
}

func (s AdderScape) Description() string {
	return fmt.Sprintf("one-hot sum of two %d-bit integers over %d sampled cases", s.bits(), s.samples())
}

func (s AdderScape) Topology() nn.Topology {
	return nn.Topology{Inputs: 2 * s.bits(), Hidden: []int{4, 4}, Outputs: s.outputs()}
}

// Cases draws operands from rng; a nil rng enumerates every pair instead.
func (s AdderScape) Cases(rng *rand.Rand) ([]Case, error) {
	bits := s.bits()
	if bits > 8 {
		return nil, fmt.Errorf("adder bits must be <= 8, got %d", bits)
	}
	limit := 1 << bits
	if rng == nil {
		cases := make([]Case, 0, limit*limit)
		for a := 0; a < limit; a++ {
			for b := 0; b < limit; b++ {
				cases = append(cases, s.encode(a, b))
			}
		}
		return cases, nil
	}
	cases := make([]Case, 0, s.samples())
	for i := 0; i < s.samples(); i++ {
		cases = append(cases, s.encode(rng.Intn(limit), rng.Intn(limit)))
	}
	return cases, nil
}

func (s AdderScape) encode(a, b int) Case {
	bits := s.bits()
	features := append(EncodeBits(a, bits), EncodeBits(b, bits)...)
	return Case{
		Features: features,
		Expected: OneHot(a+b, s.outputs()),
		Label:    fmt.Sprintf("%d+%d", a, b),
	}
}

func (s AdderScape) outputs() int {
	return 2*((1<<s.bits())-1) + 1
}

func (s AdderScape) bits() int {
	if s.Bits <= 0 {
		return 3
	}
	return s.Bits
}

func (s AdderScape) samples() int {
	if s.Samples <= 0 {
		return 100
	}
	return s.Samples
}
