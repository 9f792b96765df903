package gannet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gannet/internal/evo"
	"gannet/internal/genotype"
	"gannet/internal/model"
	"gannet/internal/platform"
	"gannet/internal/scape"
	"gannet/internal/stats"
	"gannet/internal/storage"
)

const (
	defaultDBPath     = "gannet.db"
	defaultExportsDir = "exports"
	defaultScape      = "parity"
	defaultRunsLimit  = 20
)

type Options struct {
	StoreKind  string
	DBPath     string
	ExportsDir string
	Logger     *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger
	polis  *platform.Polis

	exportsDir string
}

// RunRequest configures one run. Fields are used as given, so start from
// DefaultRunRequest: a zero MutationRate, EliteCount or BreedExclude is a
// real setting. Zero population sizes, lifetime, generation cap and
// convergence threshold fall back to their defaults.
type RunRequest struct {
	RunID                string
	Scape                string
	Hidden               []int
	Aggregation          string
	InitPopulation       int
	MaxPopulation        int
	MaxLifeTime          int
	MutationRate         float64
	MutationPolicy       string
	EliteCount           int
	BreedExclude         int
	Workers              int
	Seed                 int64
	MaxGenerations       int
	ConvergenceThreshold int
	FitnessGoal          float64

	OnGeneration func(model.GenerationDiagnostics)
}

type RunSummary struct {
	RunID            string
	Scape            string
	Topology         string
	BestData         []float64
	BestFitness      float64
	Generations      int
	Evaluations      int
	Converged        bool
	StopReason       string
	BestByGeneration []float64
	Duration         time.Duration
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Scape        string
	Topology     string
	Seed         int64
	Generations  int
	Evaluations  int
	StopReason   string
	BestFitness  float64
	Duration     time.Duration
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type ScapeItem struct {
	Name        string
	Description string
	Topology    string
	ParamCount  int
}

func DefaultRunRequest() RunRequest {
	engine := evo.DefaultEngineConfig()
	return RunRequest{
		Scape:                defaultScape,
		Aggregation:          string(evo.AggregateMean),
		InitPopulation:       engine.InitPopulationSize,
		MaxPopulation:        engine.MaxPopulationSize,
		MaxLifeTime:          engine.MaxLifeTime,
		MutationRate:         engine.MutationRate,
		MutationPolicy:       string(engine.MutationPolicy),
		EliteCount:           engine.EliteCount,
		BreedExclude:         engine.BreedExclude,
		Workers:              engine.Workers,
		MaxGenerations:       platform.DefaultMaxGenerations,
		ConvergenceThreshold: platform.DefaultConvergenceThreshold,
	}
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		logger:     logger,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

// Reset drops every stored run.
func (c *Client) Reset(ctx context.Context) error {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return err
	}
	return p.Reset(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Scape == "" {
		req.Scape = defaultScape
	}
	policy, err := genotype.ParseMutationPolicy(req.MutationPolicy)
	if err != nil {
		return RunSummary{}, err
	}
	aggregation, err := evo.ParseAggregation(req.Aggregation)
	if err != nil {
		return RunSummary{}, err
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	result, err := p.RunEvolution(ctx, platform.EvolutionConfig{
		RunID:       req.RunID,
		ScapeName:   req.Scape,
		Hidden:      req.Hidden,
		Aggregation: aggregation,
		Engine: evo.EngineConfig{
			InitPopulationSize: req.InitPopulation,
			MaxPopulationSize:  req.MaxPopulation,
			MaxLifeTime:        req.MaxLifeTime,
			MutationRate:       req.MutationRate,
			MutationPolicy:     policy,
			EliteCount:         req.EliteCount,
			BreedExclude:       req.BreedExclude,
			Workers:            req.Workers,
			Seed:               req.Seed,
		},
		MaxGenerations:       req.MaxGenerations,
		ConvergenceThreshold: req.ConvergenceThreshold,
		FitnessGoal:          req.FitnessGoal,
		OnGeneration:         req.OnGeneration,
	})
	if err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            result.RunID,
		Scape:            result.Scape,
		Topology:         result.Topology.String(),
		BestData:         result.BestData,
		BestFitness:      result.BestFitness,
		Generations:      result.Generations,
		Evaluations:      result.Evaluations,
		Converged:        result.Converged,
		StopReason:       string(result.StopReason),
		BestByGeneration: result.BestByGeneration,
		Duration:         result.Duration,
	}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}

	runs, err := c.store.ListRuns(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunItem{
			RunID:        run.ID,
			CreatedAtUTC: time.Unix(0, run.CreatedAtUnixNano).UTC().Format(time.RFC3339),
			Scape:        run.Scape,
			Topology:     run.Topology,
			Seed:         run.Seed,
			Generations:  run.Generations,
			Evaluations:  run.Evaluations,
			StopReason:   run.StopReason,
			BestFitness:  run.BestFitness,
			Duration:     time.Duration(run.DurationMillis) * time.Millisecond,
		})
	}
	return out, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, req.Limit, "fitness history")
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, req.Limit, "diagnostics")
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

// Export writes a stored run's record, fitness history and diagnostics to
// OutDir/<run id>.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, 0, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return ExportSummary{}, err
	}
	if !ok {
		return ExportSummary{}, fmt.Errorf("run not found: %s", runID)
	}
	history, _, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return ExportSummary{}, err
	}
	diagnostics, _, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return ExportSummary{}, err
	}

	dir, err := stats.WriteRunArtifacts(req.OutDir, stats.RunArtifacts{
		Run:              run,
		BestByGeneration: history,
		Diagnostics:      diagnostics,
	})
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: dir}, nil
}

func (c *Client) Scapes(ctx context.Context) ([]ScapeItem, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return nil, err
	}
	names := p.RegisteredScapes()
	out := make([]ScapeItem, 0, len(names))
	for _, name := range names {
		s, ok := p.GetScape(name)
		if !ok {
			continue
		}
		topology := s.Topology()
		out = append(out, ScapeItem{
			Name:        name,
			Description: s.Description(),
			Topology:    topology.String(),
			ParamCount:  topology.ParamCount(),
		})
	}
	return out, nil
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool, limit int, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if limit < 0 {
		return "", errors.New("limit must be >= 0")
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return "", err
	}
	if latest {
		runs, err := c.store.ListRuns(ctx, 1)
		if err != nil {
			return "", err
		}
		if len(runs) == 0 {
			return "", errors.New("no runs available")
		}
		return runs[0].ID, nil
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	return runID, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store, Logger: c.logger})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	if err := registerDefaultScapes(p); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}

func registerDefaultScapes(p *platform.Polis) error {
	for _, s := range scape.Builtin() {
		if err := p.RegisterScape(s); err != nil {
			return err
		}
	}
	return nil
}
