package evo

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gannet/internal/genotype"
	"gannet/internal/model"
)

func summarizeRanked(ranked []Scored, generation int) model.GenerationDiagnostics {
	diag := model.GenerationDiagnostics{Generation: generation, Ranked: len(ranked)}
	if len(ranked) == 0 {
		return diag
	}

	fitness := make([]float64, len(ranked))
	chromosomes := make([]genotype.Chromosome, len(ranked))
	for i, item := range ranked {
		fitness[i] = item.Fitness
		chromosomes[i] = item.Chromosome
	}

	diag.BestFitness = floats.Max(fitness)
	diag.MinFitness = floats.Min(fitness)
	if len(fitness) > 1 {
		diag.MeanFitness, diag.StdDevFitness = stat.MeanStdDev(fitness, nil)
	} else {
		diag.MeanFitness = fitness[0]
	}
	diag.Diversity = genotype.Diversity(chromosomes)
	return diag
}
