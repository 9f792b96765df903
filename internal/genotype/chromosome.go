package genotype

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrLengthMismatch = errors.New("chromosome length mismatch")

// nilRNGSeed seeds the source used when a caller passes a nil rng. Every such
// call starts a fresh source, so repeated nil calls draw the same values.
const nilRNGSeed = 1

// Chromosome is the flat parameter encoding of one candidate network plus the
// per-individual mutation rate (a percentage in [0, 100]) and age in
// generations.
type Chromosome struct {
	Data         []float64 `json:"data"`
	MutationRate float64   `json:"mutation_rate"`
	Age          int       `json:"age"`
}

// NewChromosome fills size genes with independent uniform(0, 1) draws. A nil
// rng falls back to a fixed-seed source.
func NewChromosome(size int, mutationRate float64, rng *rand.Rand) Chromosome {
	rng = ensureRNG(rng)
	data := make([]float64, size)
	for i := range data {
		data[i] = rng.Float64()
	}
	return Chromosome{Data: data, MutationRate: mutationRate}
}

// FromData adopts data without copying; crossover children own their slices.
func FromData(data []float64, mutationRate float64) Chromosome {
	return Chromosome{Data: data, MutationRate: mutationRate}
}

func (c Chromosome) Len() int {
	return len(c.Data)
}

func (c Chromosome) Clone() Chromosome {
	return Chromosome{
		Data:         append([]float64(nil), c.Data...),
		MutationRate: c.MutationRate,
		Age:          c.Age,
	}
}

// Crossover is uniform per-gene crossover. For every index one draw decides
// which parent feeds child1; child2 always receives the other parent's gene.
// A nil rng falls back to a fixed-seed source.
func (c Chromosome) Crossover(other Chromosome, rng *rand.Rand) ([]float64, []float64, error) {
	if len(c.Data) != len(other.Data) {
		return nil, nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(c.Data), len(other.Data))
	}
	rng = ensureRNG(rng)
	child1 := make([]float64, len(c.Data))
	child2 := make([]float64, len(c.Data))
	for i := range c.Data {
		if rng.Intn(101) < 50 {
			child1[i] = c.Data[i]
			child2[i] = other.Data[i]
		} else {
			child1[i] = other.Data[i]
			child2[i] = c.Data[i]
		}
	}
	return child1, child2, nil
}

func ensureRNG(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(nilRNGSeed))
}
