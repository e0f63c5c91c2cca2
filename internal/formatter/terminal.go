package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/recsvd/internal/emoji"
	"github.com/yildizm/recsvd/internal/pipeline"
	"github.com/yildizm/recsvd/internal/predictor"
)

// terminalFormatter formats output as plain text for terminal display using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = !emoji.IsEmojiDisabled()
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(outcome *pipeline.Outcome) ([]byte, error) {
	var b strings.Builder

	f.writeHeader(&b, outcome.UserID)
	f.writeSummary(&b, outcome)

	if outcome.Result != nil {
		f.writeRecommendations(&b, outcome.Result.Recommendations)
	}

	if len(outcome.Stages) > 0 {
		f.writeStages(&b, outcome.Stages)
	}

	return []byte(b.String()), nil
}

// writeHeader writes a box-drawn header
func (f *terminalFormatter) writeHeader(b *strings.Builder, userID string) {
	header := "Recommendations for user " + userID
	headerLen := len([]rune(header))

	b.WriteString("╔" + strings.Repeat("═", headerLen+2) + "╗\n")
	b.WriteString("║ " + header + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", headerLen+2) + "╝\n\n")
}

// writeSummary writes run statistics as a tree
func (f *terminalFormatter) writeSummary(b *strings.Builder, outcome *pipeline.Outcome) {
	symbol := termfmt.GetEmoji("statistics", f.opts)
	b.WriteString(symbol + " Summary\n")

	var items []termfmt.TreeItem
	if outcome.Result != nil {
		items = append(items,
			termfmt.TreeItem{Label: "Recommended", Value: fmt.Sprintf("%d", len(outcome.Result.Recommendations))},
			termfmt.TreeItem{Label: "Eligible Items", Value: formatNumber(outcome.Result.Eligible)},
			termfmt.TreeItem{Label: "Already Consumed", Value: formatNumber(outcome.Result.Excluded)},
		)
	}
	items = append(items, termfmt.TreeItem{Label: "Duration", Value: formatDuration(outcome.Duration)})
	if outcome.RecordPath != "" {
		items = append(items, termfmt.TreeItem{Label: "Record", Value: outcome.RecordPath})
	}
	items[len(items)-1].Last = true

	tree := termfmt.TreeViewWithOptions(items, f.opts)
	b.WriteString(tree + "\n\n")
}

// writeRecommendations writes the ranked items with relative score bars
func (f *terminalFormatter) writeRecommendations(b *strings.Builder, recs []predictor.Recommendation) {
	symbol := termfmt.GetEmoji("recommendations", f.opts)
	b.WriteString(symbol + " Top Items\n")

	if len(recs) == 0 {
		b.WriteString("└─ no eligible items left to recommend\n\n")
		return
	}

	relative := relativeScores(recs)
	for i, rec := range recs {
		branch := "├─"
		if i == len(recs)-1 {
			branch = "└─"
		}
		fmt.Fprintf(b, "%s %2d. %s %s %s (item %s)\n",
			branch, i+1, createScoreBar(relative[i], f.opts), formatScore(rec.Score), rec.Name, rec.ItemID)
	}
	b.WriteString("\n")
}

// writeStages writes per-stage timings
func (f *terminalFormatter) writeStages(b *strings.Builder, stages []pipeline.StageTiming) {
	symbol := termfmt.GetEmoji("insights", f.opts)
	b.WriteString(symbol + " Stages\n")

	items := make([]termfmt.TreeItem, 0, len(stages))
	for i, s := range stages {
		items = append(items, termfmt.TreeItem{
			Label: s.Stage,
			Value: formatDuration(s.Duration),
			Last:  i == len(stages)-1,
		})
	}

	tree := termfmt.TreeViewWithOptions(items, f.opts)
	b.WriteString(tree + "\n")
}
