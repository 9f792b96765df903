package nn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrConfig        = errors.New("invalid network configuration")
	ErrInvalidLength = errors.New("invalid vector length")
)

// Topology fixes the layer sizes of a network. Hidden may be empty, in which
// case the output layer reads the input layer directly.
type Topology struct {
	Inputs  int   `json:"inputs" yaml:"inputs"`
	Hidden  []int `json:"hidden" yaml:"hidden"`
	Outputs int   `json:"outputs" yaml:"outputs"`
}

func (t Topology) Validate() error {
	if t.Inputs <= 0 {
		return fmt.Errorf("%w: input layer size must be > 0, got %d", ErrConfig, t.Inputs)
	}
	if t.Outputs <= 0 {
		return fmt.Errorf("%w: output layer size must be > 0, got %d", ErrConfig, t.Outputs)
	}
	for i, size := range t.Hidden {
		if size <= 0 {
			return fmt.Errorf("%w: hidden layer %d size must be > 0, got %d", ErrConfig, i, size)
		}
	}
	return nil
}

// LayerSizes returns [inputs, hidden..., outputs].
func (t Topology) LayerSizes() []int {
	sizes := make([]int, 0, len(t.Hidden)+2)
	sizes = append(sizes, t.Inputs)
	sizes = append(sizes, t.Hidden...)
	return append(sizes, t.Outputs)
}

// ParamCount is the number of trainable scalars (one bias plus one weight per
// upstream unit, for every unit past the input layer).
func (t Topology) ParamCount() int {
	sizes := t.LayerSizes()
	total := 0
	for i := 1; i < len(sizes); i++ {
		total += sizes[i] * (1 + sizes[i-1])
	}
	return total
}

func (t Topology) String() string {
	parts := make([]string, 0, len(t.Hidden)+2)
	for _, size := range t.LayerSizes() {
		parts = append(parts, strconv.Itoa(size))
	}
	return strings.Join(parts, "-")
}
