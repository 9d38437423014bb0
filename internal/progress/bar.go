package progress

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"
)

const barWidth = 40

// Bar renders a single-line transport bar that is redrawn in place.
type Bar struct {
	out       io.Writer
	mu        sync.Mutex
	lastPrint time.Time
	minPeriod time.Duration
	active    bool
}

// New creates a transport bar writing to out
func New(out io.Writer) *Bar {
	return &Bar{
		out:       out,
		minPeriod: 250 * time.Millisecond,
	}
}

// Update redraws the bar. fraction is clamped to [0,1]; left and right are
// the elapsed and remaining labels. Redraws closer together than the minimum
// period are skipped unless force is set.
func (b *Bar) Update(label string, fraction float64, left, right string, force bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if !force && b.active && now.Sub(b.lastPrint) < b.minPeriod {
		return
	}
	fmt.Fprintf(b.out, "\r%s   ", Line(label, fraction, left, right))
	b.lastPrint = now
	b.active = true
}

// Finish ends the current line so other output starts on a fresh one
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		fmt.Fprintln(b.out)
		b.active = false
	}
}

// Active reports whether a line is currently drawn.
func (b *Bar) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Line formats one transport line: label, bar, elapsed and remaining.
func Line(label string, fraction float64, left, right string) string {
	switch {
	case fraction < 0 || math.IsNaN(fraction):
		fraction = 0
	case fraction > 1:
		fraction = 1
	}
	filled := int(float64(barWidth) * fraction)

	var sb strings.Builder
	if label != "" {
		sb.WriteString(label)
		sb.WriteString(" ")
	}
	sb.WriteString("[")
	sb.WriteString(strings.Repeat("█", filled))
	sb.WriteString(strings.Repeat("░", barWidth-filled))
	sb.WriteString("] ")
	sb.WriteString(left)
	sb.WriteString(" / -")
	sb.WriteString(right)
	return sb.String()
}
