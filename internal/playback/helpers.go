package playback

import (
	"fmt"
	"math"
	"time"
)

// NextIndex returns the index after i, wrapping to 0 past the end.
func NextIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	return (i + 1) % n
}

// PreviousIndex returns the index before i, wrapping to n-1 before the start.
func PreviousIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	return (i - 1 + n) % n
}

// Fraction returns elapsed/duration clamped to [0,1]. It is 0 while the
// duration is unknown.
func Fraction(elapsed, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	return clamp(float64(elapsed) / float64(duration))
}

// FormatTime renders d as m:ss.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func clamp(f float64) float64 {
	switch {
	case f < 0 || math.IsNaN(f):
		return 0
	case f > 1:
		return 1
	}
	return f
}
