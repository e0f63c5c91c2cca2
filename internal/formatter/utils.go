package formatter

import (
	"fmt"
	"math"
	"time"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/recsvd/internal/predictor"
)

// formatNumber formats numbers with commas for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return addCommas(fmt.Sprintf("%d", n))
}

// addCommas adds commas to number strings
func addCommas(s string) string {
	if len(s) <= 3 {
		return s
	}
	return addCommas(s[:len(s)-3]) + "," + s[len(s)-3:]
}

func formatScore(score float64) string {
	if math.IsNaN(score) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", score)
}

// formatDuration rounds durations for display
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}

// relativeScores scales scores into [0, 1] against the best and worst item shown
func relativeScores(recs []predictor.Recommendation) []float64 {
	out := make([]float64, len(recs))
	if len(recs) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range recs {
		if math.IsNaN(r.Score) {
			continue
		}
		lo = math.Min(lo, r.Score)
		hi = math.Max(hi, r.Score)
	}
	for i, r := range recs {
		switch {
		case math.IsNaN(r.Score):
			out[i] = 0
		case hi == lo:
			out[i] = 1
		default:
			out[i] = (r.Score - lo) / (hi - lo)
		}
	}
	return out
}

// createScoreBar renders a relative score using go-termfmt
func createScoreBar(relative float64, opts *termfmt.TerminalOptions) string {
	return termfmt.CreateConfidenceBar(relative, opts)
}
