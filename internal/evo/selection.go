package evo

import (
	"fmt"
	"sort"

	"gannet/internal/genotype"
)

// rankAndTruncate sorts by fitness, best first, and keeps at most limit
// individuals. The sort is stable so equal scores keep evaluation order.
func rankAndTruncate(scored []Scored, limit int) []Scored {
	ranked := make([]Scored, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// breedingPairs pairs adjacent ranks (0,1), (2,3), ... while the first index
// stays below n-exclude. Populations no larger than exclude produce no pairs.
func breedingPairs(n, exclude int) [][2]int {
	if n < 2 || n <= exclude {
		return nil
	}
	pairs := make([][2]int, 0, (n-exclude+1)/2)
	for i := 0; i < n-exclude && i+1 < n; i += 2 {
		pairs = append(pairs, [2]int{i, i + 1})
	}
	return pairs
}

// breed crosses every pair and mutates each child once.
func (e *Engine) breed(population []genotype.Chromosome) ([]genotype.Chromosome, int, error) {
	pairs := breedingPairs(len(population), e.cfg.BreedExclude)
	children := make([]genotype.Chromosome, 0, 2*len(pairs))
	mutations := 0
	for _, pair := range pairs {
		if pair[0] >= len(population) || pair[1] >= len(population) {
			return nil, 0, fmt.Errorf("%w: pair %v for population of %d", ErrIndexOutOfRange, pair, len(population))
		}
		data1, data2, err := population[pair[0]].Crossover(population[pair[1]], e.rng)
		if err != nil {
			return nil, 0, err
		}
		for _, data := range [][]float64{data1, data2} {
			child := genotype.FromData(data, e.cfg.MutationRate)
			mutations += child.Mutate(e.rng, e.cfg.MutationPolicy)
			children = append(children, child)
		}
	}
	return children, mutations, nil
}

// ageAndCull ages every individual and drops those past maxLifeTime. When
// nothing would survive, a clone of best is kept with its age clamped and
// every aged individual counts as culled. A population reduced to one
// individual has no breeding pairs, so it grows back only through elites.
func ageAndCull(population []genotype.Chromosome, maxLifeTime int, best genotype.Chromosome) ([]genotype.Chromosome, int) {
	kept := make([]genotype.Chromosome, 0, len(population))
	for _, c := range population {
		c.Age++
		if c.Age <= maxLifeTime {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 && len(population) > 0 {
		survivor := best.Clone()
		survivor.Age = maxLifeTime
		return []genotype.Chromosome{survivor}, len(population)
	}
	return kept, len(population) - len(kept)
}
