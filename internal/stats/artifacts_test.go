package stats

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"gannet/internal/model"
)

func TestWriteRunArtifactsRoundTrip(t *testing.T) {
	base := t.TempDir()
	artifacts := RunArtifacts{
		Run:              model.RunRecord{ID: "r1", Scape: "parity", Generations: 3, BestFitness: 1},
		BestByGeneration: []float64{0.5, 0.75, 1},
		Diagnostics: []model.GenerationDiagnostics{
			{Generation: 1}, {Generation: 2}, {Generation: 3},
		},
	}

	runDir, err := WriteRunArtifacts(base, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if runDir != filepath.Join(base, "r1") {
		t.Fatalf("unexpected run dir: %s", runDir)
	}
	for _, file := range []string{runFile, fitnessHistoryFile, diagnosticsFile, benchmarkSeriesFile} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected artifact %s: %v", file, err)
		}
	}

	run, ok, err := ReadRun(base, "r1")
	if err != nil || !ok {
		t.Fatalf("read run: ok=%t err=%v", ok, err)
	}
	if run.Scape != "parity" || run.Generations != 3 {
		t.Fatalf("unexpected run: %+v", run)
	}

	series, ok, err := ReadBenchmarkSeries(base, "r1")
	if err != nil || !ok {
		t.Fatalf("read series: ok=%t err=%v", ok, err)
	}
	if !slices.Equal(series, artifacts.BestByGeneration) {
		t.Fatalf("unexpected series: %v", series)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestReadMissingArtifacts(t *testing.T) {
	base := t.TempDir()
	if _, ok, err := ReadRun(base, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, got ok=%t err=%v", ok, err)
	}
	if _, ok, err := ReadBenchmarkSeries(base, "missing"); err != nil || ok {
		t.Fatalf("expected missing series, got ok=%t err=%v", ok, err)
	}
}

func TestReadBenchmarkSeriesRejectsBadRows(t *testing.T) {
	base := t.TempDir()
	runDir := filepath.Join(base, "bad")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := strings.Join([]string{"generation,best_fitness", "1,not-a-number", ""}, "\n")
	if err := os.WriteFile(filepath.Join(runDir, benchmarkSeriesFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write series: %v", err)
	}
	if _, _, err := ReadBenchmarkSeries(base, "bad"); err == nil {
		t.Fatal("expected parse error")
	}
}
