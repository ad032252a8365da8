package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// ProgressPrinter prints one line per attempted batch index and keeps the
// running tallies shown in the final status line
type ProgressPrinter struct {
	mu        sync.Mutex
	out       io.Writer
	total     int
	attempted int
	inserted  int
	skipped   int
	start     time.Time
}

// NewProgressPrinter creates a printer for a batch of total indices
func NewProgressPrinter(out io.Writer, total int) *ProgressPrinter {
	return &ProgressPrinter{out: out, total: total, start: time.Now()}
}

// Attempted records the outcome of index and prints its progress line.
// The printed number is index+1.
func (p *ProgressPrinter) Attempted(index int, inserted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attempted++
	if inserted {
		p.inserted++
	} else {
		p.skipped++
	}

	line := fmt.Sprintf("Fetching data %d...", index+1)
	if !inserted {
		line += " " + Yellow("skipped")
	}
	fmt.Fprintln(p.out, line)
}

// Bar renders a fixed-width bar of attempted/total
func (p *ProgressPrinter) Bar() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	const width = 20
	filled := 0
	if p.total > 0 {
		filled = p.attempted * width / p.total
	}
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s] %d/%d",
		strings.Repeat(ProgressBar, filled)+strings.Repeat(ProgressEmpty, width-filled),
		p.attempted, p.total)
}

// Counts returns inserted and skipped tallies
func (p *ProgressPrinter) Counts() (inserted, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inserted, p.skipped
}

// Rate returns inserted rows per minute since the printer was created
func (p *ProgressPrinter) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.start).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(p.inserted) / elapsed
}

// PrintSummary prints the closing status line
func (p *ProgressPrinter) PrintSummary() {
	inserted, skipped := p.Counts()
	fmt.Fprintf(p.out, "%s %s inserted=%d skipped=%d rate=%.1f/min elapsed=%s\n",
		Green("[DONE]"),
		p.Bar(),
		inserted,
		skipped,
		p.Rate(),
		time.Since(p.start).Round(time.Second))
}
