package nn

import (
	"fmt"
	"math/rand"
)

type Layer struct {
	Units []Unit
}

// Network is a strictly layered threshold network. Layer 0 holds one
// synthetic unit per external feature; every later unit reads all units of
// the layer before it.
type Network struct {
	topology Topology
	layers   []Layer
	features []float64
}

// New builds the topology. Trainable biases and weights are drawn from
// uniform(-1, 1) when rng is set; a nil rng leaves them at zero, which is what
// callers that immediately load a weight vector want.
func New(topology Topology, rng *rand.Rand) (*Network, error) {
	if err := topology.Validate(); err != nil {
		return nil, err
	}

	sizes := topology.LayerSizes()
	layers := make([]Layer, 0, len(sizes))

	input := Layer{Units: make([]Unit, 0, topology.Inputs)}
	for i := 0; i < topology.Inputs; i++ {
		unit, err := NewUnit([]InputSource{{Kind: ExternalFeature, Index: i}}, 0, nil)
		if err != nil {
			return nil, err
		}
		unit.Weights[0] = 1
		input.Units = append(input.Units, unit)
	}
	layers = append(layers, input)

	for l := 1; l < len(sizes); l++ {
		upstream := make([]InputSource, sizes[l-1])
		for j := range upstream {
			upstream[j] = InputSource{Kind: UpstreamUnit, Index: j}
		}
		layer := Layer{Units: make([]Unit, 0, sizes[l])}
		for u := 0; u < sizes[l]; u++ {
			bias := 0.0
			if rng != nil {
				bias = rng.Float64()*2 - 1
			}
			unit, err := NewUnit(upstream, bias, rng)
			if err != nil {
				return nil, fmt.Errorf("layer %d unit %d: %w", l, u, err)
			}
			layer.Units = append(layer.Units, unit)
		}
		layers = append(layers, layer)
	}

	return &Network{
		topology: topology,
		layers:   layers,
		features: make([]float64, topology.Inputs),
	}, nil
}

func (n *Network) Topology() Topology {
	return n.topology
}

func (n *Network) Layers() []Layer {
	return n.layers
}

// SetInput stores one feature value per input unit. Outputs are not updated
// until Recalculate runs.
func (n *Network) SetInput(values []float64) error {
	if len(values) != len(n.features) {
		return fmt.Errorf("%w: network has %d inputs, got %d values", ErrInvalidLength, len(n.features), len(values))
	}
	copy(n.features, values)
	return nil
}

// Recalculate sweeps every layer once in order. Each layer sees the outputs
// its predecessor produced earlier in the same sweep.
func (n *Network) Recalculate() {
	for l := range n.layers {
		var prev []Unit
		if l > 0 {
			prev = n.layers[l-1].Units
		}
		value := func(src InputSource) float64 {
			if src.Kind == ExternalFeature {
				return n.features[src.Index]
			}
			return boolValue(prev[src.Index].Output)
		}
		units := n.layers[l].Units
		for u := range units {
			units[u].activate(value)
		}
	}
}

func (n *Network) Output() []bool {
	units := n.layers[len(n.layers)-1].Units
	out := make([]bool, len(units))
	for i := range units {
		out[i] = units[i].Output
	}
	return out
}

// Evaluate runs SetInput, Recalculate and Output in one call.
func (n *Network) Evaluate(features []float64) ([]bool, error) {
	if err := n.SetInput(features); err != nil {
		return nil, err
	}
	n.Recalculate()
	return n.Output(), nil
}

// SetWeights loads a flat vector laid out layer by layer, unit by unit, as
// [bias, w0, w1, ...]. The input layer has no trainable parameters. The
// length is checked before any unit is touched.
func (n *Network) SetWeights(flat []float64) error {
	if want := n.topology.ParamCount(); len(flat) != want {
		return fmt.Errorf("%w: topology %s needs %d parameters, got %d", ErrInvalidLength, n.topology, want, len(flat))
	}
	at := 0
	for l := 1; l < len(n.layers); l++ {
		units := n.layers[l].Units
		for u := range units {
			width := len(units[u].Weights)
			units[u].SetBias(flat[at])
			if err := units[u].SetWeights(flat[at+1 : at+1+width]); err != nil {
				return err
			}
			at += 1 + width
		}
	}
	return nil
}

// Weights flattens the trainable parameters in the order SetWeights reads them.
func (n *Network) Weights() []float64 {
	flat := make([]float64, 0, n.topology.ParamCount())
	for l := 1; l < len(n.layers); l++ {
		for _, unit := range n.layers[l].Units {
			flat = append(flat, unit.Bias)
			flat = append(flat, unit.Weights...)
		}
	}
	return flat
}
