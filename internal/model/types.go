package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarizes one evolution run. Gene data is deliberately absent:
// stores keep run history, not trained networks.
type RunRecord struct {
	VersionedRecord
	ID                   string  `json:"id"`
	Scape                string  `json:"scape"`
	Topology             string  `json:"topology"`
	ParamCount           int     `json:"param_count"`
	Seed                 int64   `json:"seed"`
	Aggregation          string  `json:"aggregation"`
	MutationPolicy       string  `json:"mutation_policy"`
	MutationRate         float64 `json:"mutation_rate"`
	InitPopulationSize   int     `json:"init_population_size"`
	MaxPopulationSize    int     `json:"max_population_size"`
	MaxLifeTime          int     `json:"max_life_time"`
	MaxGenerations       int     `json:"max_generations"`
	ConvergenceThreshold int     `json:"convergence_threshold"`
	Generations          int     `json:"generations"`
	Evaluations          int     `json:"evaluations"`
	StopReason           string  `json:"stop_reason"`
	BestFitness          float64 `json:"best_fitness"`
	CreatedAtUnixNano    int64   `json:"created_at_unix_nano"`
	DurationMillis       int64   `json:"duration_ms"`
}

// GenerationDiagnostics describes one completed generation step. Fitness
// statistics are taken over the ranked population right after selection;
// the counts describe what breeding, mutation and culling did afterwards.
type GenerationDiagnostics struct {
	Generation     int     `json:"generation"`
	BestFitness    float64 `json:"best_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	MinFitness     float64 `json:"min_fitness"`
	StdDevFitness  float64 `json:"stddev_fitness"`
	Evaluated      int     `json:"evaluated"`
	Ranked         int     `json:"ranked"`
	Diversity      int     `json:"diversity"`
	Bred           int     `json:"bred"`
	Mutations      int     `json:"mutations"`
	Culled         int     `json:"culled"`
	PopulationSize int     `json:"population_size"`
	BestEqualCount int     `json:"best_equal_count"`
}
