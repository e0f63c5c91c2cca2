package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/yildizm/recsvd/internal/config"
	"github.com/yildizm/recsvd/internal/dataset"
	"github.com/yildizm/recsvd/internal/logger"
	"github.com/yildizm/recsvd/internal/metrics"
	"github.com/yildizm/recsvd/internal/model"
	"github.com/yildizm/recsvd/internal/pipeline"
	"github.com/yildizm/recsvd/internal/predictor"
	"github.com/yildizm/recsvd/internal/preprocess"
)

// userSelector picks the user to recommend for: by id when set, else by row
type userSelector struct {
	UserID string
	Row    int
}

func (s userSelector) String() string {
	if s.UserID != "" {
		return "user " + s.UserID
	}
	return fmt.Sprintf("row %d", s.Row)
}

func (s userSelector) pick(m *dataset.Matrix) (dataset.InteractionVector, error) {
	if s.UserID != "" {
		return m.User(s.UserID)
	}
	return m.Row(s.Row)
}

// session wires loggers, metrics, the predictor and the pipeline for one command
type session struct {
	cfg      *config.Config
	log      *logger.Logger
	predLog  *logger.Logger
	metrics  *metrics.Metrics
	pipeline *pipeline.Pipeline
}

func newSession(cfg *config.Config, console io.Writer) (*session, error) {
	mainLog, predLog, err := newLoggers(cfg, console)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	s := &session{
		cfg:     cfg,
		log:     mainLog,
		predLog: predLog,
		metrics: metrics.New(),
	}

	p := predictor.New(model.NewStore(cfg.Model.Path), predLog)
	opts := pipeline.Options{
		OutputDir: cfg.Output.Dir,
		Metrics:   s.metrics,
	}
	if cfg.Recommender.StrictInput {
		opts.Validator = featureValidator{p: p}
	}
	s.pipeline = pipeline.New(p, opts, mainLog)

	return s, nil
}

// loadInputs reads the interaction matrix and the catalog from configured paths
func (s *session) loadInputs(sel userSelector) (dataset.InteractionVector, dataset.Catalog, error) {
	matrix, err := dataset.ReadInteractions(s.cfg.Data.InteractionsPath)
	if err != nil {
		return dataset.InteractionVector{}, nil, err
	}
	vector, err := sel.pick(matrix)
	if err != nil {
		return dataset.InteractionVector{}, nil, err
	}

	catalog, err := dataset.LoadCatalog(s.cfg.Data.Products)
	if err != nil {
		return dataset.InteractionVector{}, nil, err
	}
	s.log.Debug("Loaded %d users, %d items, %d catalog entries", len(matrix.Users), len(matrix.Items), len(catalog))
	return vector, catalog, nil
}

// run loads inputs for sel and executes one pipeline run
func (s *session) run(ctx context.Context, sel userSelector, topN int) (*pipeline.Outcome, error) {
	vector, catalog, err := s.loadInputs(sel)
	if err != nil {
		s.log.ErrorWithFields("Failed to load inputs", []logger.Field{
			logger.F("selector", sel.String()),
			logger.Error(err),
		})
		return nil, err
	}
	outcome, err := s.pipeline.Run(ctx, vector, catalog, topN)
	s.flushMetrics()
	return outcome, err
}

// flushMetrics writes the textfile export, logging instead of failing
func (s *session) flushMetrics() {
	if err := s.metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
		s.log.Warn("Failed to write metrics: %v", err)
	}
}

func (s *session) Close() {
	_ = s.predLog.Close()
	_ = s.log.Close()
}

// featureValidator checks strict binary input against the loaded model's width
type featureValidator struct {
	p *predictor.Predictor
}

func (v featureValidator) ValidateVector(vec dataset.InteractionVector) error {
	return preprocess.NewValidator(v.p.Features()).ValidateVector(vec)
}
