package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunCommandPersistsAndLists(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "gannet.db")
	store := []string{"--store", "sqlite", "--db-path", dbPath}

	out, err := captureStdout(func() error {
		return run(ctx, append([]string{
			"run",
			"--run-id", "cli-run",
			"--scape", "xor",
			"--gens", "3",
			"--seed", "11",
			"--workers", "2",
			"--quiet",
			"--print-weights",
		}, store...))
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "run_id=cli-run") || !strings.Contains(out, "topology=2-2-1") || !strings.Contains(out, "weights=[") {
		t.Fatalf("unexpected run output: %q", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"runs"}, store...))
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(out, "run_id=cli-run") || !strings.Contains(out, "generations=3") {
		t.Fatalf("unexpected runs output: %q", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"fitness", "--latest", "--json"}, store...))
	})
	if err != nil {
		t.Fatalf("fitness command: %v", err)
	}
	var history []float64
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("decode fitness json %q: %v", out, err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 generations of history, got %v", history)
	}

	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"diagnostics", "--run-id", "cli-run"}, store...))
	})
	if err != nil {
		t.Fatalf("diagnostics command: %v", err)
	}
	if strings.Count(out, "generation=") != 3 {
		t.Fatalf("unexpected diagnostics output: %q", out)
	}

	exportDir := t.TempDir()
	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"export", "--run-id", "cli-run", "--out", exportDir}, store...))
	})
	if err != nil {
		t.Fatalf("export command: %v", err)
	}
	if !strings.Contains(out, "exported run_id=cli-run") {
		t.Fatalf("unexpected export output: %q", out)
	}
	if _, err := os.Stat(filepath.Join(exportDir, "cli-run", "run.json")); err != nil {
		t.Fatalf("expected exported run record: %v", err)
	}

	if _, err := captureStdout(func() error {
		return run(ctx, append([]string{"reset"}, store...))
	}); err != nil {
		t.Fatalf("reset command: %v", err)
	}
	out, err = captureStdout(func() error {
		return run(ctx, append([]string{"runs"}, store...))
	})
	if err != nil {
		t.Fatalf("runs after reset: %v", err)
	}
	if !strings.Contains(out, "no runs found") {
		t.Fatalf("expected empty run list after reset, got %q", out)
	}
}

func TestRunCommandConfigFileWithFlagOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "run.yaml")
	config := "scape: parity\nmax_generations: 40\nconvergence_threshold: 1000\nseed: 3\n"
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"run",
			"--store", "memory",
			"--config", configPath,
			"--gens", "2",
			"--json",
		})
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	var summary struct {
		Scape       string `json:"scape"`
		Generations int    `json:"generations"`
		StopReason  string `json:"stop_reason"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode run json %q: %v", out, err)
	}
	if summary.Scape != "parity" || summary.Generations != 2 || summary.StopReason != "max_generations" {
		t.Fatalf("expected config scape with flag generation override, got %+v", summary)
	}
}

func TestScapesCommand(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"scapes"})
	})
	if err != nil {
		t.Fatalf("scapes command: %v", err)
	}
	for _, name := range []string{"scape=adder", "scape=parity", "scape=xor"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in %q", name, out)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	ctx := context.Background()
	cases := [][]string{
		nil,
		{"bogus"},
		{"fitness", "--store", "memory"},
		{"diagnostics", "--store", "memory", "--run-id", "x", "--latest"},
		{"runs", "--store", "memory", "--limit", "0"},
		{"export", "--store", "memory"},
		{"run", "--store", "memory", "--hidden", "3,zero"},
		{"run", "--store", "memory", "--log-level", "loud"},
		{"run", "--store", "memory", "--scape", "unknown", "--quiet"},
	}
	for _, args := range cases {
		if _, err := captureStdout(func() error { return run(ctx, args) }); err == nil {
			t.Fatalf("expected error for args %v", args)
		}
	}
}

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}
