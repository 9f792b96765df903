package evo

import (
	"context"
	"errors"
	"slices"
	"testing"

	"gannet/internal/genotype"
	"gannet/internal/nn"
	"gannet/internal/scape"
)

type sumEvaluator struct{}

func (sumEvaluator) Evaluate(data []float64) (float64, error) {
	total := 0.0
	for _, v := range data {
		total += v
	}
	return total, nil
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(_ []float64) (float64, error) {
	return 0, errors.New("forced failure")
}

func parityFitness(t *testing.T) FitnessFunction {
	t.Helper()
	s := scape.ParityScape{Bits: 3}
	cases, err := s.Cases(nil)
	if err != nil {
		t.Fatalf("parity cases: %v", err)
	}
	f := FitnessFunction{Topology: s.Topology(), Cases: cases, Aggregation: AggregateMean}
	if err := f.Validate(); err != nil {
		t.Fatalf("validate fitness: %v", err)
	}
	return f
}

func parityConfig(seed int64) EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.Topology = nn.Topology{Inputs: 3, Hidden: []int{6}, Outputs: 1}
	cfg.Seed = seed
	return cfg
}

func TestNewEngineValidatesConfig(t *testing.T) {
	base := parityConfig(1)
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{name: "zero-input", mutate: func(c *EngineConfig) { c.Topology.Inputs = 0 }},
		{name: "zero-hidden", mutate: func(c *EngineConfig) { c.Topology.Hidden = []int{0} }},
		{name: "negative-init", mutate: func(c *EngineConfig) { c.InitPopulationSize = -1 }},
		{name: "rate-too-high", mutate: func(c *EngineConfig) { c.MutationRate = 150 }},
		{name: "negative-rate", mutate: func(c *EngineConfig) { c.MutationRate = -1 }},
		{name: "unknown-policy", mutate: func(c *EngineConfig) { c.MutationPolicy = "gaussian" }},
		{name: "elite-too-large", mutate: func(c *EngineConfig) { c.EliteCount = c.MaxPopulationSize + 1 }},
		{name: "negative-exclude", mutate: func(c *EngineConfig) { c.BreedExclude = -1 }},
		{name: "negative-lifetime", mutate: func(c *EngineConfig) { c.MaxLifeTime = -2 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.Topology.Hidden = append([]int(nil), base.Topology.Hidden...)
			tc.mutate(&cfg)
			if _, err := NewEngine(cfg, sumEvaluator{}); !errors.Is(err, ErrConfig) && !errors.Is(err, nn.ErrConfig) {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}

	if _, err := NewEngine(base, nil); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected nil fitness to be rejected, got %v", err)
	}

	mismatched := parityFitness(t)
	mismatched.Topology = nn.Topology{Inputs: 3, Hidden: []int{4}, Outputs: 1}
	if _, err := NewEngine(base, mismatched); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected fitness/topology mismatch to be rejected, got %v", err)
	}
}

func TestNewEngineNormalizesPolicyAlias(t *testing.T) {
	cfg := parityConfig(1)
	cfg.MutationPolicy = "bernoulli-single"
	engine, err := NewEngine(cfg, sumEvaluator{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if engine.Config().MutationPolicy != genotype.MutationBernoulliSingle {
		t.Fatalf("expected canonical policy, got %s", engine.Config().MutationPolicy)
	}
}

func TestEngineSeedsInitialPopulation(t *testing.T) {
	engine, err := NewEngine(parityConfig(3), parityFitness(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	population := engine.Population()
	if len(population) != DefaultInitPopulationSize {
		t.Fatalf("expected %d individuals, got %d", DefaultInitPopulationSize, len(population))
	}
	for _, c := range population {
		if c.Len() != engine.ParamCount() || c.Age != 0 || c.MutationRate != DefaultMutationRate {
			t.Fatalf("unexpected seed individual: len=%d age=%d rate=%f", c.Len(), c.Age, c.MutationRate)
		}
	}
	if _, err := engine.Best(); !errors.Is(err, ErrEmptyPopulation) {
		t.Fatalf("expected no best before the first step, got %v", err)
	}
}

func TestEngineLengthAndCullingInvariants(t *testing.T) {
	cfg := parityConfig(5)
	cfg.MutationRate = 30
	engine, err := NewEngine(cfg, parityFitness(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	for gen := 1; gen <= 40; gen++ {
		diag, err := engine.Step(context.Background())
		if err != nil {
			t.Fatalf("step %d: %v", gen, err)
		}
		if diag.Generation != gen || engine.Generation() != gen {
			t.Fatalf("generation counter: diag=%d engine=%d want=%d", diag.Generation, engine.Generation(), gen)
		}
		if diag.Ranked > cfg.MaxPopulationSize {
			t.Fatalf("step %d ranked %d individuals above the cap", gen, diag.Ranked)
		}
		population := engine.Population()
		if len(population) == 0 {
			t.Fatalf("step %d emptied the population", gen)
		}
		if diag.PopulationSize != len(population) {
			t.Fatalf("step %d population size %d, diagnostics report %d", gen, len(population), diag.PopulationSize)
		}
		for i, c := range population {
			if c.Len() != engine.ParamCount() {
				t.Fatalf("step %d individual %d has %d genes, want %d", gen, i, c.Len(), engine.ParamCount())
			}
			if c.Age > cfg.MaxLifeTime {
				t.Fatalf("step %d individual %d age %d exceeds %d", gen, i, c.Age, cfg.MaxLifeTime)
			}
		}
	}
}

func TestEngineDeterministicUnderSeed(t *testing.T) {
	sequential := parityConfig(42)
	parallel := parityConfig(42)
	parallel.Workers = 4

	a, err := NewEngine(sequential, parityFitness(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	b, err := NewEngine(parallel, parityFitness(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	for gen := 1; gen <= 30; gen++ {
		if _, err := a.Step(context.Background()); err != nil {
			t.Fatalf("step a %d: %v", gen, err)
		}
		if _, err := b.Step(context.Background()); err != nil {
			t.Fatalf("step b %d: %v", gen, err)
		}
		bestA, _ := a.Best()
		bestB, _ := b.Best()
		if bestA.Fitness != bestB.Fitness || !slices.Equal(bestA.Chromosome.Data, bestB.Chromosome.Data) {
			t.Fatalf("generation %d diverged under the same seed", gen)
		}
	}
}

func TestEngineBestFitnessNeverRegresses(t *testing.T) {
	engine, err := NewEngine(parityConfig(8), parityFitness(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	previous := -1.0
	for gen := 1; gen <= 60; gen++ {
		diag, err := engine.Step(context.Background())
		if err != nil {
			t.Fatalf("step %d: %v", gen, err)
		}
		if diag.BestFitness < previous {
			t.Fatalf("best fitness regressed at generation %d: %f < %f", gen, diag.BestFitness, previous)
		}
		previous = diag.BestFitness
	}
}

func TestEngineConvergenceCounterWithoutVariation(t *testing.T) {
	cfg := parityConfig(2)
	cfg.MutationRate = 0
	cfg.BreedExclude = 100
	engine, err := NewEngine(cfg, parityFitness(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	var first []float64
	for gen := 1; gen <= 12; gen++ {
		diag, err := engine.Step(context.Background())
		if err != nil {
			t.Fatalf("step %d: %v", gen, err)
		}
		if diag.Bred != 0 || diag.Mutations != 0 {
			t.Fatalf("step %d: expected no variation, bred=%d mutations=%d", gen, diag.Bred, diag.Mutations)
		}
		if engine.BestEqualCount() != gen-1 || diag.BestEqualCount != gen-1 {
			t.Fatalf("step %d: best equal count=%d want=%d", gen, engine.BestEqualCount(), gen-1)
		}
		best, err := engine.Best()
		if err != nil {
			t.Fatalf("best: %v", err)
		}
		if first == nil {
			first = best.Chromosome.Data
		} else if !slices.Equal(first, best.Chromosome.Data) {
			t.Fatalf("step %d: best data changed without variation", gen)
		}
	}
}

func TestEngineConvergenceCounterResetsOnNewBest(t *testing.T) {
	cfg := parityConfig(4)
	cfg.Topology = nn.Topology{Inputs: 1, Outputs: 1}
	cfg.MutationRate = 100
	cfg.EliteCount = 0
	engine, err := NewEngine(cfg, sumEvaluator{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	for gen := 1; gen <= 10; gen++ {
		if _, err := engine.Step(context.Background()); err != nil {
			t.Fatalf("step %d: %v", gen, err)
		}
		// Every individual is mutated each step, so the top data always changes.
		if engine.BestEqualCount() != 0 {
			t.Fatalf("step %d: expected counter reset, got %d", gen, engine.BestEqualCount())
		}
	}
}

func TestEngineSmallPopulationSkipsBreeding(t *testing.T) {
	cfg := parityConfig(6)
	cfg.InitPopulationSize = 3
	cfg.MutationRate = 0
	engine, err := NewEngine(cfg, parityFitness(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	diag, err := engine.Step(context.Background())
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if diag.Bred != 0 {
		t.Fatalf("expected no breeding below the exclusion count, bred=%d", diag.Bred)
	}
	if diag.PopulationSize != 3+DefaultEliteCount {
		t.Fatalf("expected survivors plus elite clone, got %d", diag.PopulationSize)
	}
}

func TestEngineBreedsPairsAboveExclusion(t *testing.T) {
	cfg := parityConfig(6)
	cfg.InitPopulationSize = 8
	engine, err := NewEngine(cfg, parityFitness(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	diag, err := engine.Step(context.Background())
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	// Ranks (0,1) and (2,3) breed; the last four are excluded.
	if diag.Bred != 4 {
		t.Fatalf("expected 4 children, got %d", diag.Bred)
	}
}

func TestEngineStepFailureLeavesStateUntouched(t *testing.T) {
	engine, err := NewEngine(parityConfig(1), failingEvaluator{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	before := engine.Population()
	if _, err := engine.Step(context.Background()); err == nil {
		t.Fatal("expected evaluator failure")
	}
	after := engine.Population()
	if len(before) != len(after) || engine.Generation() != 0 {
		t.Fatalf("state changed after failed step: before=%d after=%d generation=%d", len(before), len(after), engine.Generation())
	}
	for i := range before {
		if !slices.Equal(before[i].Data, after[i].Data) || before[i].Age != after[i].Age {
			t.Fatalf("individual %d changed after failed step", i)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := NewEngine(parityConfig(1), sumEvaluator{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if _, err := ok.Step(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

// solveParity runs one seeded parity engine for up to maxGenerations and
// reports whether it reached fitness 1.0. A solved network is checked against
// every input.
func solveParity(t *testing.T, seed int64, maxGenerations int) bool {
	t.Helper()
	cfg := parityConfig(seed)
	cfg.MutationRate = 20
	engine, err := NewEngine(cfg, parityFitness(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	for gen := 0; gen < maxGenerations; gen++ {
		diag, err := engine.Step(context.Background())
		if err != nil {
			t.Fatalf("seed %d step %d: %v", seed, gen, err)
		}
		if diag.BestFitness == 1.0 {
			break
		}
	}
	best, err := engine.Best()
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if best.Fitness < 1.0 {
		return false
	}

	network, err := nn.New(cfg.Topology, nil)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	if err := network.SetWeights(best.Chromosome.Data); err != nil {
		t.Fatalf("set weights: %v", err)
	}
	for v := 0; v < 8; v++ {
		out, err := network.Evaluate(scape.EncodeBits(v, 3))
		if err != nil {
			t.Fatalf("evaluate %d: %v", v, err)
		}
		if out[0] != (v%2 == 0) {
			t.Fatalf("seed %d: solved network misclassifies %d", seed, v)
		}
	}
	return true
}

// Every seed is run and counted; the floor sits well under the observed
// solve rate of roughly four in five at this mutation rate.
func TestEngineSolvesParityScenario(t *testing.T) {
	const seeds, floor = 10, 5
	solved := 0
	for seed := int64(1); seed <= seeds; seed++ {
		if solveParity(t, seed, 100) {
			solved++
		}
	}
	if solved < floor {
		t.Fatalf("parity solved by %d of %d seeds within 100 generations, want at least %d", solved, seeds, floor)
	}
}

func TestEngineCullGuardKeepsRankedBest(t *testing.T) {
	cfg := parityConfig(3)
	cfg.InitPopulationSize = 4
	cfg.BreedExclude = 4
	cfg.EliteCount = 0
	cfg.MaxLifeTime = 1
	cfg.MutationRate = 100
	cfg.MutationPolicy = genotype.MutationBernoulliSingle
	engine, err := NewEngine(cfg, sumEvaluator{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	ctx := context.Background()

	diag, err := engine.Step(ctx)
	if err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if diag.PopulationSize != 4 || diag.Culled != 0 {
		t.Fatalf("step 1: population=%d culled=%d", diag.PopulationSize, diag.Culled)
	}

	diag, err = engine.Step(ctx)
	if err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if diag.PopulationSize != 1 || diag.Culled != 4 {
		t.Fatalf("step 2: expected forced survivor, population=%d culled=%d", diag.PopulationSize, diag.Culled)
	}
	best, err := engine.Best()
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	population := engine.Population()
	if !slices.Equal(population[0].Data, best.Chromosome.Data) || population[0].Age != 1 {
		t.Fatalf("survivor is not the unmutated ranked best: %+v vs %v", population[0], best.Chromosome.Data)
	}

	diag, err = engine.Step(ctx)
	if err != nil {
		t.Fatalf("step 3: %v", err)
	}
	if diag.PopulationSize != 1 {
		t.Fatalf("step 3: a lone survivor without elites cannot breed, population=%d", diag.PopulationSize)
	}
}
