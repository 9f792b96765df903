package evo

import (
	"fmt"
	"strings"

	"gannet/internal/nn"
	"gannet/internal/scape"
)

// Aggregation selects how per-case results combine into one score. Every
// aggregation is higher-is-better.
type Aggregation string

const (
	// AggregateMean is the fraction of cases whose whole output vector matches.
	AggregateMean Aggregation = "mean"
	// AggregateSum is the count of cases whose whole output vector matches.
	AggregateSum Aggregation = "sum"
	// AggregateMargin rewards each matching output bit and penalizes each
	// mismatch symmetrically, normalized to [0, 1] per case, then averaged.
	AggregateMargin Aggregation = "margin"
)

func ParseAggregation(name string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mean":
		return AggregateMean, nil
	case "sum":
		return AggregateSum, nil
	case "margin":
		return AggregateMargin, nil
	default:
		return "", fmt.Errorf("unsupported fitness aggregation: %s", name)
	}
}

// Evaluator scores one gene vector. Implementations must be pure: the same
// data always yields the same score and the slice is never modified.
type Evaluator interface {
	Evaluate(data []float64) (float64, error)
}

// FitnessFunction scores a gene vector by loading it into a fresh network of
// Topology and running every case.
type FitnessFunction struct {
	Topology    nn.Topology
	Cases       []scape.Case
	Aggregation Aggregation
}

func (f FitnessFunction) ParamCount() int {
	return f.Topology.ParamCount()
}

// Validate checks that every case matches the topology's input and output
// widths.
func (f FitnessFunction) Validate() error {
	if err := f.Topology.Validate(); err != nil {
		return err
	}
	if len(f.Cases) == 0 {
		return fmt.Errorf("%w: at least one test case is required", ErrConfig)
	}
	for i, c := range f.Cases {
		if len(c.Features) != f.Topology.Inputs {
			return fmt.Errorf("%w: case %d has %d features, topology %s expects %d", ErrConfig, i, len(c.Features), f.Topology, f.Topology.Inputs)
		}
		if len(c.Expected) != f.Topology.Outputs {
			return fmt.Errorf("%w: case %d has %d expected outputs, topology %s produces %d", ErrConfig, i, len(c.Expected), f.Topology, f.Topology.Outputs)
		}
	}
	if _, err := ParseAggregation(string(f.Aggregation)); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}

func (f FitnessFunction) Evaluate(data []float64) (float64, error) {
	network, err := nn.New(f.Topology, nil)
	if err != nil {
		return 0, err
	}
	if err := network.SetWeights(data); err != nil {
		return 0, err
	}

	var total float64
	for i, c := range f.Cases {
		out, err := network.Evaluate(c.Features)
		if err != nil {
			return 0, fmt.Errorf("case %d: %w", i, err)
		}
		total += scoreCase(f.Aggregation, out, c.Expected)
	}
	if f.Aggregation == AggregateSum || len(f.Cases) == 0 {
		return total, nil
	}
	return total / float64(len(f.Cases)), nil
}

func scoreCase(aggregation Aggregation, out, expected []bool) float64 {
	if aggregation == AggregateMargin {
		if len(expected) == 0 {
			return 0
		}
		margin := 0
		for j := range expected {
			if j < len(out) && out[j] == expected[j] {
				margin++
			} else {
				margin--
			}
		}
		n := len(expected)
		return float64(margin+n) / float64(2*n)
	}
	if len(out) != len(expected) {
		return 0
	}
	for j := range expected {
		if out[j] != expected[j] {
			return 0
		}
	}
	return 1
}
