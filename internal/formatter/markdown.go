package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/recsvd/internal/pipeline"
	"github.com/yildizm/recsvd/internal/predictor"
)

// markdownFormatter formats output as Markdown
type markdownFormatter struct{}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{}
}

func (f *markdownFormatter) Format(outcome *pipeline.Outcome) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Recommendations for user %s\n\n", outcome.UserID)
	fmt.Fprintf(&b, "Generated: %s\n\n", outcome.StartedAt.Format("2006-01-02 15:04:05"))

	f.writeSummaryTable(&b, outcome)

	if outcome.Result != nil {
		f.writeRecommendationTable(&b, outcome.Result.Recommendations)
	}

	if len(outcome.Stages) > 0 {
		f.writeStageSection(&b, outcome.Stages)
	}

	b.WriteString("\n---\n")
	b.WriteString("*Report generated by recsvd*\n")

	return []byte(b.String()), nil
}

// writeSummaryTable writes the run summary
func (f *markdownFormatter) writeSummaryTable(b *strings.Builder, outcome *pipeline.Outcome) {
	b.WriteString("## Summary\n\n")

	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(b, "| Run ID | `%s` |\n", outcome.RunID)
	if outcome.Result != nil {
		fmt.Fprintf(b, "| Recommended | %d |\n", len(outcome.Result.Recommendations))
		fmt.Fprintf(b, "| Eligible Items | %s |\n", formatNumber(outcome.Result.Eligible))
		fmt.Fprintf(b, "| Already Consumed | %s |\n", formatNumber(outcome.Result.Excluded))
	}
	fmt.Fprintf(b, "| Duration | %s |\n", formatDuration(outcome.Duration))
	if outcome.RecordPath != "" {
		fmt.Fprintf(b, "| Record | `%s` |\n", outcome.RecordPath)
	}
	b.WriteString("\n")
}

// writeRecommendationTable writes the ranked items with a relative score bar
func (f *markdownFormatter) writeRecommendationTable(b *strings.Builder, recs []predictor.Recommendation) {
	b.WriteString("## Recommendations\n\n")
	if len(recs) == 0 {
		b.WriteString("No eligible items left to recommend.\n\n")
		return
	}

	opts := termfmt.DefaultOptions()
	opts.Color = false
	opts.Emoji = false

	relative := relativeScores(recs)
	b.WriteString("| # | Item | Name | Score | |\n")
	b.WriteString("|---|------|------|-------|---|\n")
	for i, rec := range recs {
		fmt.Fprintf(b, "| %d | %s | %s | %s | `%s` |\n",
			i+1, rec.ItemID, escapeMarkdownCell(rec.Name), formatScore(rec.Score), createScoreBar(relative[i], opts))
	}
	b.WriteString("\n")
}

// writeStageSection writes stage timings
func (f *markdownFormatter) writeStageSection(b *strings.Builder, stages []pipeline.StageTiming) {
	b.WriteString("## Stage Timings\n\n")
	b.WriteString("```\n")
	for _, s := range stages {
		fmt.Fprintf(b, "%-12s %s\n", s.Stage, formatDuration(s.Duration))
	}
	b.WriteString("```\n")
}

func escapeMarkdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
