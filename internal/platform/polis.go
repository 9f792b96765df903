package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gannet/internal/evo"
	"gannet/internal/model"
	"gannet/internal/nn"
	"gannet/internal/scape"
	"gannet/internal/scapeid"
	"gannet/internal/storage"
)

const (
	DefaultMaxGenerations       = 1000
	DefaultConvergenceThreshold = 99
)

var ErrNotInitialized = errors.New("polis is not initialized")

type Config struct {
	Store  storage.Store
	Logger *slog.Logger
}

type StopReason string

const (
	StopReasonConverged      StopReason = "converged"
	StopReasonFitnessGoal    StopReason = "fitness_goal"
	StopReasonMaxGenerations StopReason = "max_generations"
)

// EvolutionConfig describes one run. Engine.Topology is ignored: the network
// shape comes from the scape, with Hidden replacing its hidden layers when
// set.
type EvolutionConfig struct {
	RunID     string
	ScapeName string
	Hidden    []int

	Aggregation evo.Aggregation
	Engine      evo.EngineConfig

	MaxGenerations       int
	ConvergenceThreshold int
	// FitnessGoal stops the run once the best fitness reaches it. Zero
	// disables the check.
	FitnessGoal float64

	OnGeneration func(model.GenerationDiagnostics)
}

type EvolutionResult struct {
	RunID            string
	Scape            string
	Topology         nn.Topology
	BestData         []float64
	BestFitness      float64
	Generations      int
	Evaluations      int
	Converged        bool
	StopReason       StopReason
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
	Duration         time.Duration
}

// Polis owns the scape registry and drives evolution runs against a store.
type Polis struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	scapes  map[string]scape.Scape
	started bool
}

func NewPolis(cfg Config) *Polis {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Polis{
		store:  cfg.Store,
		logger: logger,
		now:    time.Now,
		scapes: make(map[string]scape.Scape),
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

// Reset clears the stored run history. Registered scapes are kept.
func (p *Polis) Reset(ctx context.Context) error {
	if err := p.Init(ctx); err != nil {
		return err
	}
	return p.store.Reset(ctx)
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) RegisterScape(s scape.Scape) error {
	if s == nil {
		return fmt.Errorf("scape is required")
	}
	name := scapeid.Normalize(s.Name())
	if name == "" {
		return fmt.Errorf("scape name is required")
	}
	if err := s.Topology().Validate(); err != nil {
		return fmt.Errorf("scape %s: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.scapes[name]; exists {
		return fmt.Errorf("scape already registered: %s", name)
	}
	p.scapes[name] = s
	return nil
}

func (p *Polis) GetScape(name string) (scape.Scape, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.scapes[scapeid.Normalize(name)]
	return s, ok
}

func (p *Polis) RegisteredScapes() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.scapes))
	for name := range p.scapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunEvolution steps a fresh engine until the best individual has been
// unchanged for ConvergenceThreshold generations, the fitness goal is met or
// MaxGenerations is reached, then records the run in the store.
func (p *Polis) RunEvolution(ctx context.Context, cfg EvolutionConfig) (EvolutionResult, error) {
	if cfg.ScapeName == "" {
		return EvolutionResult{}, fmt.Errorf("scape name is required")
	}
	if cfg.MaxGenerations == 0 {
		cfg.MaxGenerations = DefaultMaxGenerations
	}
	if cfg.ConvergenceThreshold == 0 {
		cfg.ConvergenceThreshold = DefaultConvergenceThreshold
	}
	if cfg.MaxGenerations < 0 {
		return EvolutionResult{}, fmt.Errorf("%w: max generations must be > 0", evo.ErrConfig)
	}
	if cfg.ConvergenceThreshold < 0 {
		return EvolutionResult{}, fmt.Errorf("%w: convergence threshold must be > 0", evo.ErrConfig)
	}
	aggregation, err := evo.ParseAggregation(string(cfg.Aggregation))
	if err != nil {
		return EvolutionResult{}, fmt.Errorf("%w: %v", evo.ErrConfig, err)
	}

	p.mu.RLock()
	target, ok := p.scapes[scapeid.Normalize(cfg.ScapeName)]
	started := p.started
	p.mu.RUnlock()
	if !started {
		return EvolutionResult{}, ErrNotInitialized
	}
	if !ok {
		return EvolutionResult{}, fmt.Errorf("scape not registered: %s", cfg.ScapeName)
	}

	topology := target.Topology()
	if len(cfg.Hidden) > 0 {
		topology.Hidden = append([]int(nil), cfg.Hidden...)
	}

	// Cases draw from their own stream so sampled scapes do not shift the
	// engine's randomness.
	cases, err := target.Cases(rand.New(rand.NewSource(cfg.Engine.Seed)))
	if err != nil {
		return EvolutionResult{}, fmt.Errorf("generate %s cases: %w", cfg.ScapeName, err)
	}
	fitness := evo.FitnessFunction{Topology: topology, Cases: cases, Aggregation: aggregation}
	if err := fitness.Validate(); err != nil {
		return EvolutionResult{}, err
	}

	engineCfg := cfg.Engine
	engineCfg.Topology = topology
	engine, err := evo.NewEngine(engineCfg, fitness)
	if err != nil {
		return EvolutionResult{}, err
	}
	engineCfg = engine.Config()

	runID := cfg.RunID
	if runID == "" {
		runID = newRunID()
	}
	logger := p.logger.With("run_id", runID, "scape", target.Name())
	logger.Info("evolution started",
		"topology", topology.String(),
		"params", engine.ParamCount(),
		"cases", len(cases),
		"seed", engineCfg.Seed,
	)

	startedAt := p.now()
	result := EvolutionResult{
		RunID:      runID,
		Scape:      target.Name(),
		Topology:   topology,
		StopReason: StopReasonMaxGenerations,
	}
	for engine.Generation() < cfg.MaxGenerations && engine.BestEqualCount() < cfg.ConvergenceThreshold {
		diag, err := engine.Step(ctx)
		if err != nil {
			logger.Warn("evolution aborted", "generation", engine.Generation()+1, "error", err)
			return EvolutionResult{}, fmt.Errorf("run %s generation %d: %w", runID, engine.Generation()+1, err)
		}
		result.BestByGeneration = append(result.BestByGeneration, diag.BestFitness)
		result.Diagnostics = append(result.Diagnostics, diag)
		result.Evaluations += diag.Evaluated
		logger.Debug("generation",
			"generation", diag.Generation,
			"best", diag.BestFitness,
			"mean", diag.MeanFitness,
			"population", diag.PopulationSize,
			"best_equal", diag.BestEqualCount,
		)
		if cfg.OnGeneration != nil {
			cfg.OnGeneration(diag)
		}
		if cfg.FitnessGoal > 0 && diag.BestFitness >= cfg.FitnessGoal {
			result.StopReason = StopReasonFitnessGoal
			break
		}
	}
	if engine.BestEqualCount() >= cfg.ConvergenceThreshold {
		result.Converged = true
		result.StopReason = StopReasonConverged
	}

	best, err := engine.Best()
	if err != nil {
		return EvolutionResult{}, err
	}
	result.BestData = best.Chromosome.Data
	result.BestFitness = best.Fitness
	result.Generations = engine.Generation()
	result.Duration = p.now().Sub(startedAt)

	record := model.RunRecord{
		VersionedRecord:      storage.Versioned(),
		ID:                   runID,
		Scape:                target.Name(),
		Topology:             topology.String(),
		ParamCount:           engine.ParamCount(),
		Seed:                 engineCfg.Seed,
		Aggregation:          string(aggregation),
		MutationPolicy:       string(engineCfg.MutationPolicy),
		MutationRate:         engineCfg.MutationRate,
		InitPopulationSize:   engineCfg.InitPopulationSize,
		MaxPopulationSize:    engineCfg.MaxPopulationSize,
		MaxLifeTime:          engineCfg.MaxLifeTime,
		MaxGenerations:       cfg.MaxGenerations,
		ConvergenceThreshold: cfg.ConvergenceThreshold,
		Generations:          result.Generations,
		Evaluations:          result.Evaluations,
		StopReason:           string(result.StopReason),
		BestFitness:          result.BestFitness,
		CreatedAtUnixNano:    startedAt.UnixNano(),
		DurationMillis:       result.Duration.Milliseconds(),
	}
	if err := p.persist(ctx, record, result); err != nil {
		return EvolutionResult{}, err
	}

	logger.Info("evolution finished",
		"generations", result.Generations,
		"best", result.BestFitness,
		"stop_reason", result.StopReason,
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Polis) persist(ctx context.Context, record model.RunRecord, result EvolutionResult) error {
	if err := p.store.SaveRun(ctx, record); err != nil {
		return fmt.Errorf("save run %s: %w", record.ID, err)
	}
	if err := p.store.SaveFitnessHistory(ctx, record.ID, result.BestByGeneration); err != nil {
		return fmt.Errorf("save fitness history %s: %w", record.ID, err)
	}
	if err := p.store.SaveGenerationDiagnostics(ctx, record.ID, result.Diagnostics); err != nil {
		return fmt.Errorf("save diagnostics %s: %w", record.ID, err)
	}
	return nil
}

func newRunID() string {
	return uuid.NewString()
}
