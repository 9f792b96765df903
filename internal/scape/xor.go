package scape

import (
	"math/rand"

	"gannet/internal/nn"
)

type XORScape struct{}

func (XORScape) Name() string {
	return "xor"
}

func (XORScape) Description() string {
	return "two-input exclusive or"
}

func (XORScape) Topology() nn.Topology {
	return nn.Topology{Inputs: 2, Hidden: []int{2}, Outputs: 1}
}

func (XORScape) Cases(_ *rand.Rand) ([]Case, error) {
	return []Case{
		{Features: []float64{0, 0}, Expected: []bool{false}, Label: "0^0"},
		{Features: []float64{0, 1}, Expected: []bool{true}, Label: "0^1"},
		{Features: []float64{1, 0}, Expected: []bool{true}, Label: "1^0"},
		{Features: []float64{1, 1}, Expected: []bool{false}, Label: "1^1"},
	}, nil
}
