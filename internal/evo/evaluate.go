package evo

import (
	"context"
	"sync"

	"gannet/internal/genotype"
)

// evaluatePopulation scores every chromosome. Work is spread over the
// configured workers; results land at their input index so the outcome never
// depends on scheduling.
func (e *Engine) evaluatePopulation(ctx context.Context, population []genotype.Chromosome) ([]Scored, error) {
	scored := make([]Scored, len(population))
	workerCount := e.cfg.Workers
	if workerCount > len(population) {
		workerCount = len(population)
	}
	if workerCount <= 1 {
		for i := range population {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			fitness, err := e.fitness.Evaluate(population[i].Data)
			if err != nil {
				return nil, err
			}
			scored[i] = Scored{Chromosome: population[i], Fitness: fitness}
		}
		return scored, nil
	}

	type job struct {
		idx        int
		chromosome genotype.Chromosome
	}
	type result struct {
		idx    int
		scored Scored
		err    error
	}

	jobs := make(chan job)
	results := make(chan result, len(population))

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				fitness, err := e.fitness.Evaluate(j.chromosome.Data)
				if err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				results <- result{idx: j.idx, scored: Scored{Chromosome: j.chromosome, Fitness: fitness}}
			}
		}()
	}

	for i := range population {
		jobs <- job{idx: i, chromosome: population[i]}
	}
	close(jobs)

	wg.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		scored[res.idx] = res.scored
	}
	return scored, nil
}
