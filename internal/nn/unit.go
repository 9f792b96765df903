package nn

import (
	"fmt"
	"math/rand"
)

const DefaultThreshold = 1.0

type SourceKind uint8

const (
	// ExternalFeature reads one raw feature value fed through SetInput.
	ExternalFeature SourceKind = iota
	// UpstreamUnit reads the boolean output of a unit in the previous layer.
	UpstreamUnit
)

func (k SourceKind) String() string {
	switch k {
	case ExternalFeature:
		return "feature"
	case UpstreamUnit:
		return "unit"
	default:
		return fmt.Sprintf("source(%d)", uint8(k))
	}
}

type InputSource struct {
	Kind  SourceKind
	Index int
}

// Unit is a hard-threshold node. Weights[i] applies to Inputs[i].
type Unit struct {
	Bias      float64
	Weights   []float64
	Threshold float64
	Inputs    []InputSource
	Output    bool
}

// NewUnit wires a unit to its sources. Weights are drawn from uniform(-1, 1)
// when rng is set and left at zero otherwise.
func NewUnit(inputs []InputSource, bias float64, rng *rand.Rand) (Unit, error) {
	if len(inputs) == 0 {
		return Unit{}, fmt.Errorf("%w: unit requires at least one input", ErrConfig)
	}
	weights := make([]float64, len(inputs))
	if rng != nil {
		for i := range weights {
			weights[i] = rng.Float64()*2 - 1
		}
	}
	return Unit{
		Bias:      bias,
		Weights:   weights,
		Threshold: DefaultThreshold,
		Inputs:    append([]InputSource(nil), inputs...),
	}, nil
}

func (u *Unit) SetWeights(weights []float64) error {
	if len(weights) != len(u.Inputs) {
		return fmt.Errorf("%w: unit has %d inputs, got %d weights", ErrInvalidLength, len(u.Inputs), len(weights))
	}
	copy(u.Weights, weights)
	return nil
}

func (u *Unit) SetBias(bias float64) {
	u.Bias = bias
}

func (u *Unit) activate(value func(InputSource) float64) {
	net := u.Bias
	for i, src := range u.Inputs {
		net += value(src) * u.Weights[i]
	}
	u.Output = net >= u.Threshold
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
