package formatter

import (
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/yildizm/recsvd/internal/pipeline"
)

// jsonFormatter formats output as JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

func (f *jsonFormatter) Format(outcome *pipeline.Outcome) ([]byte, error) {
	output := &RunOutput{
		RunID:      outcome.RunID,
		User:       outcome.UserID,
		StartedAt:  outcome.StartedAt,
		Duration:   outcome.Duration.String(),
		RecordPath: outcome.RecordPath,
		Stages:     createStageOutputs(outcome.Stages),
	}
	if outcome.Result != nil {
		output.Summary = &SummaryOutput{
			Returned: len(outcome.Result.Recommendations),
			Eligible: outcome.Result.Eligible,
			Excluded: outcome.Result.Excluded,
		}
		output.Recommendations = createRecommendationOutputs(outcome)
	}

	return json.MarshalIndent(output, "", "  ")
}

// RunOutput is the JSON rendering of a pipeline run
type RunOutput struct {
	RunID           string                  `json:"run_id"`
	User            string                  `json:"user"`
	StartedAt       time.Time               `json:"started_at"`
	Duration        string                  `json:"duration"`
	RecordPath      string                  `json:"record_path"`
	Summary         *SummaryOutput          `json:"summary,omitempty"`
	Recommendations []*RecommendationOutput `json:"recommendations"`
	Stages          []*StageOutput          `json:"stages,omitempty"`
}

// SummaryOutput represents the summary section
type SummaryOutput struct {
	Returned int `json:"returned"`
	Eligible int `json:"eligible"`
	Excluded int `json:"excluded"`
}

// RecommendationOutput is one ranked item. Score is nil for NaN scores.
type RecommendationOutput struct {
	Rank   int      `json:"rank"`
	ItemID string   `json:"item_id"`
	Name   string   `json:"name"`
	Score  *float64 `json:"score"`
}

// StageOutput is the timing of one pipeline stage
type StageOutput struct {
	Stage      string  `json:"stage"`
	DurationMS float64 `json:"duration_ms"`
}

func createRecommendationOutputs(outcome *pipeline.Outcome) []*RecommendationOutput {
	recs := outcome.Result.Recommendations
	outputs := make([]*RecommendationOutput, 0, len(recs))
	for i, rec := range recs {
		out := &RecommendationOutput{Rank: i + 1, ItemID: rec.ItemID, Name: rec.Name}
		if !math.IsNaN(rec.Score) && !math.IsInf(rec.Score, 0) {
			score := rec.Score
			out.Score = &score
		}
		outputs = append(outputs, out)
	}
	return outputs
}

func createStageOutputs(stages []pipeline.StageTiming) []*StageOutput {
	outputs := make([]*StageOutput, 0, len(stages))
	for _, s := range stages {
		outputs = append(outputs, &StageOutput{
			Stage:      s.Stage,
			DurationMS: float64(s.Duration) / float64(time.Millisecond),
		})
	}
	return outputs
}
