package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"gannet/internal/model"
)

// nonInteractiveEvery is the generation stride for progress lines when
// stderr is not a terminal.
const nonInteractiveEvery = 10

// progress prints one status line per generation. On a terminal the line is
// redrawn in place; otherwise every nonInteractiveEvery-th generation gets
// its own line.
type progress struct {
	w           io.Writer
	interactive bool
	last        *model.GenerationDiagnostics
	printedLast bool
}

func newProgress(f *os.File) *progress {
	fd := f.Fd()
	return &progress{
		w:           f,
		interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

func (p *progress) Report(d model.GenerationDiagnostics) {
	p.last = &d
	p.printedLast = false
	if p.interactive {
		fmt.Fprintf(p.w, "\r\033[K%s", formatProgress(d))
		p.printedLast = true
		return
	}
	if d.Generation == 1 || d.Generation%nonInteractiveEvery == 0 {
		fmt.Fprintln(p.w, formatProgress(d))
		p.printedLast = true
	}
}

// Done finishes the progress output, emitting the final generation if it
// has not been shown yet.
func (p *progress) Done() {
	if p.last == nil {
		return
	}
	if p.interactive {
		fmt.Fprintln(p.w)
		return
	}
	if !p.printedLast {
		fmt.Fprintln(p.w, formatProgress(*p.last))
	}
}

func formatProgress(d model.GenerationDiagnostics) string {
	return fmt.Sprintf("generation=%d best=%.4f mean=%.4f population=%d best_equal=%d",
		d.Generation, d.BestFitness, d.MeanFitness, d.PopulationSize, d.BestEqualCount)
}
