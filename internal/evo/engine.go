package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"gannet/internal/genotype"
	"gannet/internal/model"
)

var (
	ErrConfig          = errors.New("invalid engine configuration")
	ErrEmptyPopulation = errors.New("population is empty")
	ErrIndexOutOfRange = errors.New("breeding index out of range")
)

type Scored struct {
	Chromosome genotype.Chromosome
	Fitness    float64
}

// Engine runs the generation cycle over one population. It never stops on
// its own; drivers read BestEqualCount and decide when to stop.
type Engine struct {
	cfg        EngineConfig
	fitness    Evaluator
	rng        *rand.Rand
	paramCount int

	population     []genotype.Chromosome
	generation     int
	best           *Scored
	bestEqualCount int
}

// NewEngine validates cfg and seeds InitPopulationSize random chromosomes
// sized for cfg.Topology. All randomness of the run flows from cfg.Seed.
func NewEngine(cfg EngineConfig, fitness Evaluator) (*Engine, error) {
	if fitness == nil {
		return nil, fmt.Errorf("%w: fitness evaluator is required", ErrConfig)
	}
	cfg = cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	paramCount := cfg.Topology.ParamCount()
	if sized, ok := fitness.(interface{ ParamCount() int }); ok && sized.ParamCount() != paramCount {
		return nil, fmt.Errorf("%w: fitness expects %d parameters, topology %s has %d", ErrConfig, sized.ParamCount(), cfg.Topology, paramCount)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	population := make([]genotype.Chromosome, 0, cfg.InitPopulationSize)
	for i := 0; i < cfg.InitPopulationSize; i++ {
		population = append(population, genotype.NewChromosome(paramCount, cfg.MutationRate, rng))
	}

	return &Engine{
		cfg:        cfg,
		fitness:    fitness,
		rng:        rng,
		paramCount: paramCount,
		population: population,
	}, nil
}

// Step runs one generation: evaluate, rank and truncate, update convergence,
// breed, mutate everyone, carry elites over, then age and cull. Nothing is
// committed unless the whole step succeeds.
func (e *Engine) Step(ctx context.Context) (model.GenerationDiagnostics, error) {
	if len(e.population) == 0 {
		return model.GenerationDiagnostics{}, ErrEmptyPopulation
	}
	for i, c := range e.population {
		if c.Len() != e.paramCount {
			return model.GenerationDiagnostics{}, fmt.Errorf("%w: individual %d has %d genes, want %d", genotype.ErrLengthMismatch, i, c.Len(), e.paramCount)
		}
	}

	scored, err := e.evaluatePopulation(ctx, e.population)
	if err != nil {
		return model.GenerationDiagnostics{}, err
	}
	ranked := rankAndTruncate(scored, e.cfg.MaxPopulationSize)

	generation := e.generation + 1
	diag := summarizeRanked(ranked, generation)
	diag.Evaluated = len(scored)

	top := ranked[0]
	bestEqualCount := e.bestEqualCount
	best := e.best
	if best != nil && slices.Equal(best.Chromosome.Data, top.Chromosome.Data) {
		bestEqualCount++
		best = &Scored{Chromosome: best.Chromosome, Fitness: top.Fitness}
	} else {
		bestEqualCount = 0
		best = &Scored{Chromosome: top.Chromosome.Clone(), Fitness: top.Fitness}
	}

	working := make([]genotype.Chromosome, len(ranked))
	for i := range ranked {
		working[i] = ranked[i].Chromosome.Clone()
	}

	eliteCount := min(e.cfg.EliteCount, len(working))
	elites := make([]genotype.Chromosome, 0, eliteCount)
	for i := 0; i < eliteCount; i++ {
		elite := working[i].Clone()
		elite.Age = 0
		elites = append(elites, elite)
	}

	children, mutations, err := e.breed(working)
	if err != nil {
		return model.GenerationDiagnostics{}, err
	}
	working = append(working, children...)

	for i := range working {
		mutations += working[i].Mutate(e.rng, e.cfg.MutationPolicy)
	}
	working = append(working, elites...)

	survivors, culled := ageAndCull(working, e.cfg.MaxLifeTime, ranked[0].Chromosome)

	e.population = survivors
	e.generation = generation
	e.best = best
	e.bestEqualCount = bestEqualCount

	diag.Bred = len(children)
	diag.Mutations = mutations
	diag.Culled = culled
	diag.PopulationSize = len(survivors)
	diag.BestEqualCount = bestEqualCount
	return diag, nil
}

// Best returns the top individual of the most recent selection.
func (e *Engine) Best() (Scored, error) {
	if e.best == nil {
		return Scored{}, fmt.Errorf("%w: no generation has been evaluated", ErrEmptyPopulation)
	}
	return Scored{Chromosome: e.best.Chromosome.Clone(), Fitness: e.best.Fitness}, nil
}

// BestEqualCount is the number of consecutive generations whose top
// individual carried exactly the recorded best data.
func (e *Engine) BestEqualCount() int {
	return e.bestEqualCount
}

func (e *Engine) Generation() int {
	return e.generation
}

func (e *Engine) ParamCount() int {
	return e.paramCount
}

func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Population returns a deep copy of the current individuals.
func (e *Engine) Population() []genotype.Chromosome {
	out := make([]genotype.Chromosome, len(e.population))
	for i := range e.population {
		out[i] = e.population[i].Clone()
	}
	return out
}
