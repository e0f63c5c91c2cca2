// Package model holds the truncated SVD factorization used by the predictor,
// the offline fit that produces it, and its on-disk store.
package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Factorization is a fitted truncated SVD of a users x items matrix.
// Components is the K x L matrix Vt stored row-major.
type Factorization struct {
	Rank                   int
	Features               int
	SingularValues         []float64
	Components             []float64
	ExplainedVarianceRatio []float64
	Items                  []string
	Params                 FitParams
}

// Validate checks that the stored slices agree with Rank and Features
func (f *Factorization) Validate() error {
	if f.Rank < 1 || f.Features < 1 {
		return fmt.Errorf("invalid dimensions %dx%d", f.Rank, f.Features)
	}
	if len(f.SingularValues) != f.Rank {
		return fmt.Errorf("expected %d singular values, got %d", f.Rank, len(f.SingularValues))
	}
	if len(f.Components) != f.Rank*f.Features {
		return fmt.Errorf("expected %d component entries, got %d", f.Rank*f.Features, len(f.Components))
	}
	if len(f.Items) != 0 && len(f.Items) != f.Features {
		return fmt.Errorf("expected %d item ids, got %d", f.Features, len(f.Items))
	}
	return nil
}

// ComponentMatrix returns a copy of Vt (K x L)
func (f *Factorization) ComponentMatrix() *mat.Dense {
	data := make([]float64, len(f.Components))
	copy(data, f.Components)
	return mat.NewDense(f.Rank, f.Features, data)
}

// SingularDiag returns the singular values as a K x K diagonal matrix
func (f *Factorization) SingularDiag() *mat.DiagDense {
	data := make([]float64, len(f.SingularValues))
	copy(data, f.SingularValues)
	return mat.NewDiagDense(f.Rank, data)
}

// Transform projects rows (n x L) into latent space (n x K).
// The result is rows * Vt^T, which already carries the singular value scaling.
func (f *Factorization) Transform(rows mat.Matrix) (*mat.Dense, error) {
	_, c := rows.Dims()
	if c != f.Features {
		return nil, fmt.Errorf("input has %d features, model expects %d", c, f.Features)
	}
	if len(f.Components) != f.Rank*f.Features {
		return nil, fmt.Errorf("component matrix has %d entries, expected %d", len(f.Components), f.Rank*f.Features)
	}
	components := mat.NewDense(f.Rank, f.Features, f.Components)

	var out mat.Dense
	out.Mul(rows, components.T())
	return &out, nil
}

// TotalExplainedVariance sums the explained variance ratio of all components
func (f *Factorization) TotalExplainedVariance() float64 {
	total := 0.0
	for _, r := range f.ExplainedVarianceRatio {
		total += r
	}
	return total
}
