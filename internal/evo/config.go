package evo

import (
	"fmt"

	"gannet/internal/genotype"
	"gannet/internal/nn"
)

const (
	DefaultInitPopulationSize = 5
	DefaultMaxPopulationSize  = 20
	DefaultMaxLifeTime        = 5
	DefaultMutationRate       = 10.0
	DefaultEliteCount         = 1
	DefaultBreedExclude       = 4
)

// EngineConfig is fixed at engine construction.
//
// EliteCount unmutated copies of the best ranked individuals are carried into
// each next generation with age 0, which keeps the best fitness from
// regressing. BreedExclude is the number of lowest-ranked survivors left out
// of pairing.
type EngineConfig struct {
	Topology           nn.Topology             `json:"topology" yaml:"topology"`
	InitPopulationSize int                     `json:"init_population_size" yaml:"init_population_size"`
	MaxPopulationSize  int                     `json:"max_population_size" yaml:"max_population_size"`
	MaxLifeTime        int                     `json:"max_life_time" yaml:"max_life_time"`
	MutationRate       float64                 `json:"mutation_rate" yaml:"mutation_rate"`
	MutationPolicy     genotype.MutationPolicy `json:"mutation_policy" yaml:"mutation_policy"`
	EliteCount         int                     `json:"elite_count" yaml:"elite_count"`
	BreedExclude       int                     `json:"breed_exclude" yaml:"breed_exclude"`
	Workers            int                     `json:"workers" yaml:"workers"`
	Seed               int64                   `json:"seed" yaml:"seed"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		InitPopulationSize: DefaultInitPopulationSize,
		MaxPopulationSize:  DefaultMaxPopulationSize,
		MaxLifeTime:        DefaultMaxLifeTime,
		MutationRate:       DefaultMutationRate,
		MutationPolicy:     genotype.MutationGeometric,
		EliteCount:         DefaultEliteCount,
		BreedExclude:       DefaultBreedExclude,
		Workers:            1,
	}
}

// normalize fills zero sizes with defaults. Rates and counts where zero is a
// meaningful setting are left alone.
func (c EngineConfig) normalize() EngineConfig {
	if c.InitPopulationSize == 0 {
		c.InitPopulationSize = DefaultInitPopulationSize
	}
	if c.MaxPopulationSize == 0 {
		c.MaxPopulationSize = DefaultMaxPopulationSize
	}
	if c.MaxLifeTime == 0 {
		c.MaxLifeTime = DefaultMaxLifeTime
	}
	if policy, err := genotype.ParseMutationPolicy(string(c.MutationPolicy)); err == nil {
		c.MutationPolicy = policy
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c
}

func (c EngineConfig) Validate() error {
	if err := c.Topology.Validate(); err != nil {
		return err
	}
	if c.InitPopulationSize <= 0 {
		return fmt.Errorf("%w: initial population size must be > 0", ErrConfig)
	}
	if c.MaxPopulationSize <= 0 {
		return fmt.Errorf("%w: max population size must be > 0", ErrConfig)
	}
	if c.MaxLifeTime < 1 {
		return fmt.Errorf("%w: max life time must be >= 1", ErrConfig)
	}
	if c.MutationRate < 0 || c.MutationRate > 100 {
		return fmt.Errorf("%w: mutation rate must be in [0, 100], got %g", ErrConfig, c.MutationRate)
	}
	if _, err := genotype.ParseMutationPolicy(string(c.MutationPolicy)); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if c.EliteCount < 0 || c.EliteCount > c.MaxPopulationSize {
		return fmt.Errorf("%w: elite count must be in [0, max population size]", ErrConfig)
	}
	if c.BreedExclude < 0 {
		return fmt.Errorf("%w: breed exclude must be >= 0", ErrConfig)
	}
	return nil
}
