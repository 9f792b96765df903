package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gannet/pkg/gannet"
)

// runFileConfig mirrors gannet.RunRequest for config files. Pointers tell an
// absent key from an explicit zero.
type runFileConfig struct {
	RunID                *string  `json:"run_id" yaml:"run_id"`
	Scape                *string  `json:"scape" yaml:"scape"`
	Hidden               []int    `json:"hidden" yaml:"hidden"`
	Aggregation          *string  `json:"aggregation" yaml:"aggregation"`
	InitPopulation       *int     `json:"init_population" yaml:"init_population"`
	MaxPopulation        *int     `json:"max_population" yaml:"max_population"`
	MaxLifeTime          *int     `json:"max_lifetime" yaml:"max_lifetime"`
	MutationRate         *float64 `json:"mutation_rate" yaml:"mutation_rate"`
	MutationPolicy       *string  `json:"mutation_policy" yaml:"mutation_policy"`
	EliteCount           *int     `json:"elite_count" yaml:"elite_count"`
	BreedExclude         *int     `json:"breed_exclude" yaml:"breed_exclude"`
	Workers              *int     `json:"workers" yaml:"workers"`
	Seed                 *int64   `json:"seed" yaml:"seed"`
	MaxGenerations       *int     `json:"max_generations" yaml:"max_generations"`
	ConvergenceThreshold *int     `json:"convergence_threshold" yaml:"convergence_threshold"`
	FitnessGoal          *float64 `json:"fitness_goal" yaml:"fitness_goal"`
}

func loadRunConfig(path string, req *gannet.RunRequest) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg runFileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return err
		}
	case ".json", "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}

	cfg.apply(req)
	return nil
}

func (c runFileConfig) apply(req *gannet.RunRequest) {
	if c.RunID != nil {
		req.RunID = *c.RunID
	}
	if c.Scape != nil {
		req.Scape = *c.Scape
	}
	if c.Hidden != nil {
		req.Hidden = append([]int(nil), c.Hidden...)
	}
	if c.Aggregation != nil {
		req.Aggregation = *c.Aggregation
	}
	if c.InitPopulation != nil {
		req.InitPopulation = *c.InitPopulation
	}
	if c.MaxPopulation != nil {
		req.MaxPopulation = *c.MaxPopulation
	}
	if c.MaxLifeTime != nil {
		req.MaxLifeTime = *c.MaxLifeTime
	}
	if c.MutationRate != nil {
		req.MutationRate = *c.MutationRate
	}
	if c.MutationPolicy != nil {
		req.MutationPolicy = *c.MutationPolicy
	}
	if c.EliteCount != nil {
		req.EliteCount = *c.EliteCount
	}
	if c.BreedExclude != nil {
		req.BreedExclude = *c.BreedExclude
	}
	if c.Workers != nil {
		req.Workers = *c.Workers
	}
	if c.Seed != nil {
		req.Seed = *c.Seed
	}
	if c.MaxGenerations != nil {
		req.MaxGenerations = *c.MaxGenerations
	}
	if c.ConvergenceThreshold != nil {
		req.ConvergenceThreshold = *c.ConvergenceThreshold
	}
	if c.FitnessGoal != nil {
		req.FitnessGoal = *c.FitnessGoal
	}
}

// overrideFromFlags applies only the flags present on the command line, so a
// config file value survives an untouched flag default.
func overrideFromFlags(req *gannet.RunRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "scape":
			req.Scape = v.(string)
		case "hidden":
			req.Hidden = v.([]int)
		case "aggregation":
			req.Aggregation = v.(string)
		case "init-pop":
			req.InitPopulation = v.(int)
		case "max-pop":
			req.MaxPopulation = v.(int)
		case "max-lifetime":
			req.MaxLifeTime = v.(int)
		case "mutation-rate":
			req.MutationRate = v.(float64)
		case "mutation-policy":
			req.MutationPolicy = v.(string)
		case "elite":
			req.EliteCount = v.(int)
		case "breed-exclude":
			req.BreedExclude = v.(int)
		case "workers":
			req.Workers = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "gens":
			req.MaxGenerations = v.(int)
		case "convergence":
			req.ConvergenceThreshold = v.(int)
		case "fitness-goal":
			req.FitnessGoal = v.(float64)
		}
	}
}
