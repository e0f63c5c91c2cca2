// Package predictor turns one user's interaction vector into a ranked list
// of unseen items using a truncated SVD factorization.
//
// Every stage returns a value that the next stage consumes:
//
//	proj, err := p.Project(vector)
//	rec, err := p.Reconstruct(proj)
//	row, err := p.ToScoredRow(rec, vector)
//	result, err := p.Rank(vector, row, catalog, topN)
//
// Stage values are immutable, so a loaded Predictor can serve concurrent callers.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/yildizm/recsvd/internal/dataset"
	"github.com/yildizm/recsvd/internal/logger"
	"github.com/yildizm/recsvd/internal/model"
)

// ModelSource loads a factorization. *model.Store satisfies it.
type ModelSource interface {
	Load(ctx context.Context) (*model.Factorization, *model.Metadata, error)
	Path() string
}

// Predictor owns a loaded factorization
type Predictor struct {
	source ModelSource
	log    logger.Sink

	mu    sync.RWMutex
	model *model.Factorization
	meta  *model.Metadata
}

// Projection is the output of Project: U (1 x K), S (K x K) and Vt (K x L)
type Projection struct {
	UserID string
	U      *mat.Dense
	S      *mat.DiagDense
	Vt     *mat.Dense
}

// Reconstruction is the dense 1 x L prediction U*Vt
type Reconstruction struct {
	UserID string
	Scores []float64
}

// ScoredRow is a prediction row keyed by item id and labeled with its user
type ScoredRow struct {
	UserID string
	Items  []string
	Scores []float64
}

// New creates a predictor that loads its model from source
func New(source ModelSource, log logger.Sink) *Predictor {
	if log == nil {
		log = logger.Nop()
	}
	return &Predictor{source: source, log: log}
}

// LoadModel reads the factorization from the model source. Calling it again
// replaces the current model.
func (p *Predictor) LoadModel(ctx context.Context) error {
	const op = "load_model"
	path := p.source.Path()
	p.log.Info("Loading SVD model from %s", path)

	f, meta, err := p.source.Load(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p.fail(newError(ErrTypeNotFound, op, fmt.Sprintf("model file %s does not exist", path), err), "")
		}
		return p.fail(newError(ErrTypeLoad, op, fmt.Sprintf("failed to load model %s", path), err), "")
	}

	p.mu.Lock()
	p.model = f
	p.meta = meta
	p.mu.Unlock()

	p.log.InfoWithFields("Model loaded", []logger.Field{
		logger.F("rank", f.Rank),
		logger.F("features", f.Features),
	})
	return nil
}

// Loaded reports whether a model is available
func (p *Predictor) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model != nil
}

// Model returns the loaded factorization and its metadata, or nils
func (p *Predictor) Model() (*model.Factorization, *model.Metadata) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model, p.meta
}

// Features returns the item dimensionality of the loaded model, or 0
func (p *Predictor) Features() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.model == nil {
		return 0
	}
	return p.model.Features
}

// Project maps the vector into latent space and returns U, S and Vt.
// It may be called any number of times, once per user.
func (p *Predictor) Project(vector dataset.InteractionVector) (*Projection, error) {
	const op = "project"
	f, _ := p.Model()
	if f == nil {
		return nil, p.fail(newError(ErrTypeNotLoaded, op, "model must be loaded first", nil), vector.UserID)
	}
	if vector.Len() != f.Features {
		return nil, p.fail(newError(ErrTypeShape, op,
			fmt.Sprintf("vector has %d items, model expects %d", vector.Len(), f.Features), nil), vector.UserID)
	}

	if col, ok := firstItemMismatch(f.Items, vector.Items); !ok {
		return nil, p.fail(newError(ErrTypeShape, op,
			fmt.Sprintf("item %q in column %d does not match model item %q", vector.Items[col], col, f.Items[col]), nil), vector.UserID)
	}

	values := make([]float64, len(vector.Values))
	copy(values, vector.Values)

	u, err := f.Transform(mat.NewDense(1, f.Features, values))
	if err != nil {
		return nil, p.fail(newError(ErrTypeShape, op, "projection failed", err), vector.UserID)
	}

	p.log.Debug("Projected user %s into %d latent dimensions", vector.UserID, f.Rank)
	return &Projection{
		UserID: vector.UserID,
		U:      u,
		S:      f.SingularDiag(),
		Vt:     f.ComponentMatrix(),
	}, nil
}

// Reconstruct computes U*Vt. S is not applied: Transform already scales U
// by the singular values.
func (p *Predictor) Reconstruct(proj *Projection) (*Reconstruction, error) {
	const op = "reconstruct"
	if proj == nil || proj.U == nil || proj.Vt == nil {
		return nil, p.fail(newError(ErrTypeState, op, "project must run before reconstruct", nil), "")
	}
	_, k := proj.U.Dims()
	rk, _ := proj.Vt.Dims()
	if k != rk {
		return nil, p.fail(newError(ErrTypeShape, op,
			fmt.Sprintf("latent vector has %d dimensions, components have %d", k, rk), nil), proj.UserID)
	}

	var r mat.Dense
	r.Mul(proj.U, proj.Vt)

	p.log.Debug("Reconstructed prediction row for user %s", proj.UserID)
	return &Reconstruction{
		UserID: proj.UserID,
		Scores: mat.Row(nil, 0, &r),
	}, nil
}

// ToScoredRow keys the reconstruction by the vector's item ids and labels it
// with the vector's user id.
func (p *Predictor) ToScoredRow(rec *Reconstruction, vector dataset.InteractionVector) (*ScoredRow, error) {
	const op = "to_scored_row"
	if rec == nil {
		return nil, p.fail(newError(ErrTypeState, op, "reconstruct must run before to_scored_row", nil), vector.UserID)
	}
	if vector.UserID == "" {
		return nil, p.fail(newError(ErrTypeInput, op, "interaction vector has no user id", nil), "")
	}
	if len(vector.Items) != len(rec.Scores) {
		return nil, p.fail(newError(ErrTypeShape, op,
			fmt.Sprintf("vector has %d item ids, reconstruction has %d scores", len(vector.Items), len(rec.Scores)), nil), vector.UserID)
	}

	items := make([]string, len(vector.Items))
	copy(items, vector.Items)
	scores := make([]float64, len(rec.Scores))
	copy(scores, rec.Scores)

	return &ScoredRow{UserID: vector.UserID, Items: items, Scores: scores}, nil
}

// firstItemMismatch compares item ids column by column. Models saved without
// item ids, and vectors without them, are not checked.
func firstItemMismatch(modelItems, vectorItems []string) (int, bool) {
	if len(modelItems) == 0 || len(vectorItems) == 0 {
		return 0, true
	}
	for i := range min(len(modelItems), len(vectorItems)) {
		if modelItems[i] != vectorItems[i] {
			return i, false
		}
	}
	return 0, true
}

// fail logs err with context and returns it
func (p *Predictor) fail(err *Error, userID string) error {
	fields := []logger.Field{logger.F("op", err.Op), logger.F("error_type", string(err.Type))}
	if userID != "" {
		fields = append(fields, logger.F("user", userID))
	}
	if err.Cause != nil {
		fields = append(fields, logger.Error(err.Cause))
	}
	p.log.ErrorWithFields(err.Message, fields)
	return err
}
