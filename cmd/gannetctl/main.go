package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/cpuid/v2"

	"gannet/internal/storage"
	"gannet/pkg/gannet"
)

const defaultDBPath = "gannet.db"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "scapes":
		return runScapes(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type storeFlags struct {
	kind   *string
	dbPath *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:   fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath: fs.String("db-path", defaultDBPath, "sqlite database path"),
	}
}

func (s storeFlags) client(opts gannet.Options) (*gannet.Client, error) {
	opts.StoreKind = *s.kind
	opts.DBPath = *s.dbPath
	return gannet.New(opts)
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := store.client(gannet.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *store.kind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := store.client(gannet.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *store.kind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	defaults := gannet.DefaultRunRequest()

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config file (.json, .yaml or .yml)")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	scapeName := fs.String("scape", defaults.Scape, "scape name: adder|parity|xor")
	hidden := fs.String("hidden", "", "comma separated hidden layer sizes (default: the scape's own)")
	aggregation := fs.String("aggregation", defaults.Aggregation, "fitness aggregation: mean|sum|margin")
	initPop := fs.Int("init-pop", defaults.InitPopulation, "initial population size")
	maxPop := fs.Int("max-pop", defaults.MaxPopulation, "population size kept after selection")
	maxLifeTime := fs.Int("max-lifetime", defaults.MaxLifeTime, "generations an individual may survive")
	mutationRate := fs.Float64("mutation-rate", defaults.MutationRate, "per-trial mutation probability in percent")
	mutationPolicy := fs.String("mutation-policy", defaults.MutationPolicy, "mutation count policy: geometric|bernoulli_single")
	eliteCount := fs.Int("elite", defaults.EliteCount, "unmutated best individuals carried into the next generation")
	breedExclude := fs.Int("breed-exclude", defaults.BreedExclude, "lowest ranked survivors left out of breeding")
	workers := fs.Int("workers", defaultWorkers(), "fitness evaluation workers")
	seed := fs.Int64("seed", 1, "rng seed")
	maxGenerations := fs.Int("gens", defaults.MaxGenerations, "generation cap")
	convergence := fs.Int("convergence", defaults.ConvergenceThreshold, "stop after the best individual is unchanged for this many generations")
	fitnessGoal := fs.Float64("fitness-goal", 0, "early-stop best fitness goal (0 disables)")
	printWeights := fs.Bool("print-weights", false, "print the best gene vector")
	quiet := fs.Bool("quiet", false, "suppress per-generation progress")
	jsonOut := fs.Bool("json", false, "emit run summary as JSON")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	logJSON := fs.Bool("log-json", false, "emit logs as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req := defaults
	req.Workers = *workers
	req.Seed = *seed
	if *configPath != "" {
		if err := loadRunConfig(*configPath, &req); err != nil {
			return fmt.Errorf("load config %s: %w", *configPath, err)
		}
	}
	hiddenSizes, err := parseHidden(*hidden)
	if err != nil {
		return err
	}
	overrideFromFlags(&req, setFlags, map[string]any{
		"run-id":          *runID,
		"scape":           *scapeName,
		"hidden":          hiddenSizes,
		"aggregation":     *aggregation,
		"init-pop":        *initPop,
		"max-pop":         *maxPop,
		"max-lifetime":    *maxLifeTime,
		"mutation-rate":   *mutationRate,
		"mutation-policy": *mutationPolicy,
		"elite":           *eliteCount,
		"breed-exclude":   *breedExclude,
		"workers":         *workers,
		"seed":            *seed,
		"gens":            *maxGenerations,
		"convergence":     *convergence,
		"fitness-goal":    *fitnessGoal,
	})

	logger, err := newLogger(os.Stderr, *logLevel, *logJSON)
	if err != nil {
		return err
	}
	if !*quiet && !*jsonOut {
		progress := newProgress(os.Stderr)
		req.OnGeneration = progress.Report
		defer progress.Done()
	}

	client, err := store.client(gannet.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	if *jsonOut {
		out := map[string]any{
			"run_id":             summary.RunID,
			"scape":              summary.Scape,
			"topology":           summary.Topology,
			"generations":        summary.Generations,
			"evaluations":        summary.Evaluations,
			"converged":          summary.Converged,
			"stop_reason":        summary.StopReason,
			"best_fitness":       summary.BestFitness,
			"best_by_generation": summary.BestByGeneration,
			"duration_ms":        summary.Duration.Milliseconds(),
		}
		if *printWeights {
			out["best_weights"] = summary.BestData
		}
		return writeJSON(out)
	}

	fmt.Printf("run_id=%s scape=%s topology=%s generations=%d evaluations=%s best=%.6f stop=%s duration=%s\n",
		summary.RunID,
		summary.Scape,
		summary.Topology,
		summary.Generations,
		humanize.Comma(int64(summary.Evaluations)),
		summary.BestFitness,
		summary.StopReason,
		summary.Duration.Round(time.Millisecond),
	)
	if *printWeights {
		fmt.Printf("weights=%s\n", formatWeights(summary.BestData))
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := store.client(gannet.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, gannet.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		type runsItem struct {
			RunID        string  `json:"run_id"`
			CreatedAtUTC string  `json:"created_at_utc"`
			Scape        string  `json:"scape"`
			Topology     string  `json:"topology"`
			Seed         int64   `json:"seed"`
			Generations  int     `json:"generations"`
			Evaluations  int     `json:"evaluations"`
			StopReason   string  `json:"stop_reason"`
			BestFitness  float64 `json:"best_fitness"`
			DurationMS   int64   `json:"duration_ms"`
		}
		items := make([]runsItem, 0, len(runs))
		for _, r := range runs {
			items = append(items, runsItem{
				RunID:        r.RunID,
				CreatedAtUTC: r.CreatedAtUTC,
				Scape:        r.Scape,
				Topology:     r.Topology,
				Seed:         r.Seed,
				Generations:  r.Generations,
				Evaluations:  r.Evaluations,
				StopReason:   r.StopReason,
				BestFitness:  r.BestFitness,
				DurationMS:   r.Duration.Milliseconds(),
			})
		}
		return writeJSON(items)
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("run_id=%s created=%s scape=%s topology=%s seed=%d generations=%d evaluations=%s best=%.6f stop=%s\n",
			r.RunID,
			humanCreated(r.CreatedAtUTC),
			r.Scape,
			r.Topology,
			r.Seed,
			r.Generations,
			humanize.Comma(int64(r.Evaluations)),
			r.BestFitness,
			r.StopReason,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("fitness requires --run-id or --latest")
	}

	client, err := store.client(gannet.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, gannet.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(history)
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	for i, best := range history {
		fmt.Printf("generation=%d best=%.6f\n", i+1, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("diagnostics requires --run-id or --latest")
	}

	client, err := store.client(gannet.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, gannet.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(diagnostics)
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f mean=%.6f min=%.6f stddev=%.6f population=%d bred=%d mutations=%d culled=%d diversity=%d best_equal=%d\n",
			d.Generation,
			d.BestFitness,
			d.MeanFitness,
			d.MinFitness,
			d.StdDevFitness,
			d.PopulationSize,
			d.Bred,
			d.Mutations,
			d.Culled,
			d.Diversity,
			d.BestEqualCount,
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "exports", "output directory")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := store.client(gannet.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, gannet.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runScapes(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scapes", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit scapes as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := gannet.New(gannet.Options{StoreKind: storage.StoreMemory})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	scapes, err := client.Scapes(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(scapes)
	}
	for _, s := range scapes {
		fmt.Printf("scape=%s topology=%s params=%d description=%q\n", s.Name, s.Topology, s.ParamCount, s.Description)
	}
	return nil
}

func defaultWorkers() int {
	if cores := cpuid.CPU.LogicalCores; cores > 0 {
		return cores
	}
	return 1
}

func parseHidden(value string) ([]int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	sizes := make([]int, 0, len(parts))
	for _, part := range parts {
		size, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid hidden layer size %q: %w", part, err)
		}
		if size <= 0 {
			return nil, fmt.Errorf("hidden layer size must be > 0, got %d", size)
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

func formatWeights(data []float64) string {
	parts := make([]string, len(data))
	for i, v := range data {
		parts[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func humanCreated(createdAtUTC string) string {
	created, err := time.Parse(time.RFC3339, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return strings.ReplaceAll(humanize.Time(created), " ", "_")
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: gannetctl <init|reset|run|runs|fitness|diagnostics|export|scapes> [flags]", msg)
}
