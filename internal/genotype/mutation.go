package genotype

import (
	"fmt"
	"math/rand"
	"strings"
)

type MutationPolicy string

const (
	// MutationGeometric keeps applying point mutations while trials succeed,
	// so a call yields p/(1-p) mutations on average.
	MutationGeometric MutationPolicy = "geometric"
	// MutationBernoulliSingle applies at most one point mutation per call.
	MutationBernoulliSingle MutationPolicy = "bernoulli_single"
)

func ParseMutationPolicy(name string) (MutationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "geometric":
		return MutationGeometric, nil
	case "bernoulli_single", "bernoulli-single", "single":
		return MutationBernoulliSingle, nil
	default:
		return "", fmt.Errorf("unsupported mutation policy: %s", name)
	}
}

// MutationCap bounds the trials of one geometric mutation call.
func MutationCap(length int) int {
	return 3 * length
}

// Mutate applies point mutations in place and reports how many were applied.
// Each point mutation adds uniform(-1, 1) to one uniformly chosen gene; each
// trial succeeds with probability MutationRate/100. A nil rng falls back to a
// fixed-seed source.
func (c *Chromosome) Mutate(rng *rand.Rand, policy MutationPolicy) int {
	if len(c.Data) == 0 || c.MutationRate <= 0 {
		return 0
	}
	rng = ensureRNG(rng)

	limit := MutationCap(len(c.Data))
	if policy == MutationBernoulliSingle {
		limit = 1
	}
	applied := 0
	for applied < limit && rng.Float64()*100 < c.MutationRate {
		idx := rng.Intn(len(c.Data))
		c.Data[idx] += rng.Float64()*2 - 1
		applied++
	}
	return applied
}
