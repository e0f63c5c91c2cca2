// Package pipeline runs the predictor stages for one user and persists the
// result as a timestamped JSON record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yildizm/recsvd/internal/dataset"
	"github.com/yildizm/recsvd/internal/logger"
	"github.com/yildizm/recsvd/internal/metrics"
	"github.com/yildizm/recsvd/internal/predictor"
)

// Stage names used for timing and logs
const (
	StageLoad        = "load"
	StageValidate    = "validate"
	StageProject     = "project"
	StageReconstruct = "reconstruct"
	StageScore       = "score"
	StageRank        = "rank"
	StageWrite       = "write"
)

// ErrInvalidInput wraps validator failures
var ErrInvalidInput = errors.New("invalid interaction vector")

// InputValidator checks a vector before it reaches the predictor
type InputValidator interface {
	ValidateVector(v dataset.InteractionVector) error
}

// Options configures a pipeline
type Options struct {
	OutputDir string
	Metrics   *metrics.Metrics
	Validator InputValidator
	Clock     func() time.Time
}

// Pipeline sequences the predictor for single-user runs
type Pipeline struct {
	predictor *predictor.Predictor
	opts      Options
	log       logger.Sink
}

// StageTiming is the duration of one stage
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Outcome describes a successful run
type Outcome struct {
	RunID      string            `json:"run_id"`
	UserID     string            `json:"user"`
	Result     *predictor.Result `json:"result"`
	RecordPath string            `json:"record_path"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Stages     []StageTiming     `json:"stages"`
}

// New creates a pipeline around p
func New(p *predictor.Predictor, opts Options, log logger.Sink) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "recomendaciones"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{predictor: p, opts: opts, log: log}
}

// Reload loads the model again, for example after it was retrained
func (pl *Pipeline) Reload(ctx context.Context) error {
	if err := pl.predictor.LoadModel(ctx); err != nil {
		return err
	}
	pl.recordModel()
	return nil
}

// Run produces recommendations for one user and writes the record file.
// Errors and panics are logged and returned; nothing is retried.
func (pl *Pipeline) Run(ctx context.Context, vector dataset.InteractionVector, catalog dataset.Catalog, topN int) (outcome *Outcome, err error) {
	started := pl.opts.Clock()
	runID := uuid.NewString()
	run := &Outcome{RunID: runID, UserID: vector.UserID, StartedAt: started}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recommendation pipeline panicked: %v", r)
		}
		if err != nil {
			pl.log.ErrorWithFields("Recommendation pipeline failed", []logger.Field{
				logger.F("run_id", runID),
				logger.F("user", vector.UserID),
				logger.Error(err),
			})
			pl.opts.Metrics.RunFailed(errorType(err), pl.opts.Clock())
			outcome = nil
		}
	}()

	if !pl.predictor.Loaded() {
		if err := pl.stage(ctx, run, StageLoad, func() error { return pl.Reload(ctx) }); err != nil {
			return nil, err
		}
	}

	if pl.opts.Validator != nil {
		if err := pl.stage(ctx, run, StageValidate, func() error { return pl.opts.Validator.ValidateVector(vector) }); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	var proj *predictor.Projection
	if err := pl.stage(ctx, run, StageProject, func() (err error) {
		proj, err = pl.predictor.Project(vector)
		return err
	}); err != nil {
		return nil, err
	}

	var rec *predictor.Reconstruction
	if err := pl.stage(ctx, run, StageReconstruct, func() (err error) {
		rec, err = pl.predictor.Reconstruct(proj)
		return err
	}); err != nil {
		return nil, err
	}

	var row *predictor.ScoredRow
	if err := pl.stage(ctx, run, StageScore, func() (err error) {
		row, err = pl.predictor.ToScoredRow(rec, vector)
		return err
	}); err != nil {
		return nil, err
	}

	if err := pl.stage(ctx, run, StageRank, func() (err error) {
		run.Result, err = pl.predictor.Rank(vector, row, catalog, topN)
		return err
	}); err != nil {
		return nil, err
	}

	if err := pl.stage(ctx, run, StageWrite, func() (err error) {
		record := Record{User: vector.UserID, Recommendations: run.Result.Recommendations}
		run.RecordPath, err = WriteRecord(pl.opts.OutputDir, record, started)
		return err
	}); err != nil {
		return nil, err
	}

	finished := pl.opts.Clock()
	run.Duration = finished.Sub(started)
	pl.opts.Metrics.RunSucceeded(len(run.Result.Recommendations), run.Result.Eligible, finished)

	pl.log.InfoWithFields("Recommendation saved to %s", []logger.Field{
		logger.F("run_id", runID),
		logger.F("user", vector.UserID),
		logger.Count(len(run.Result.Recommendations)),
		logger.Duration(run.Duration),
	}, run.RecordPath)

	return run, nil
}

// stage runs fn after checking ctx and records its duration
func (pl *Pipeline) stage(ctx context.Context, run *Outcome, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before %s: %w", name, err)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	pl.opts.Metrics.ObserveStage(name, elapsed)
	run.Stages = append(run.Stages, StageTiming{Stage: name, Duration: elapsed})
	pl.log.DebugWithFields("Stage %s finished", []logger.Field{
		logger.F("run_id", run.RunID),
		logger.F("stage", name),
		logger.Duration(elapsed),
	}, name)
	return err
}

func (pl *Pipeline) recordModel() {
	if f, _ := pl.predictor.Model(); f != nil {
		pl.opts.Metrics.ModelLoaded(f.Rank, f.Features)
	}
}

func errorType(err error) string {
	if t := predictor.TypeOf(err); t != "" {
		return string(t)
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "validation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "pipeline"
	}
}
