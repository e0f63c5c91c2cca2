package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Fit algorithms
const (
	AlgorithmRandomized = "randomized"
	AlgorithmExact      = "exact"
)

// ErrInvalidParams is returned when fit parameters do not match the input matrix
var ErrInvalidParams = errors.New("invalid fit parameters")

// FitParams controls the truncated SVD fit
type FitParams struct {
	Algorithm   string
	Components  int
	Iterations  int
	Oversamples int
	RandomState int64
}

// DefaultFitParams returns the parameters used when nothing is configured
func DefaultFitParams() FitParams {
	return FitParams{
		Algorithm:   AlgorithmRandomized,
		Components:  443,
		Iterations:  7,
		Oversamples: 13,
		RandomState: 42,
	}
}

const orthTolerance = 1e-12

// Fit computes a rank-K truncated SVD of a (users x items).
func Fit(ctx context.Context, a *mat.Dense, params FitParams) (*Factorization, error) {
	users, items := a.Dims()
	k := params.Components
	switch {
	case k < 1:
		return nil, fmt.Errorf("%w: n_components must be at least 1, got %d", ErrInvalidParams, k)
	case k >= items:
		return nil, fmt.Errorf("%w: n_components (%d) must be lower than the number of items (%d)", ErrInvalidParams, k, items)
	case k > users:
		return nil, fmt.Errorf("%w: n_components (%d) exceeds the number of users (%d)", ErrInvalidParams, k, users)
	case params.Iterations < 0 || params.Oversamples < 0:
		return nil, fmt.Errorf("%w: n_iter and n_oversamples must not be negative", ErrInvalidParams)
	}

	var (
		values     []float64
		components []float64
		err        error
	)
	switch params.Algorithm {
	case AlgorithmRandomized, "":
		params.Algorithm = AlgorithmRandomized
		values, components, err = randomizedSVD(ctx, a, params)
	case AlgorithmExact:
		values, components, err = exactSVD(a, k)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidParams, params.Algorithm)
	}
	if err != nil {
		return nil, err
	}

	flipSigns(components, k, items)

	f := &Factorization{
		Rank:           k,
		Features:       items,
		SingularValues: values,
		Components:     components,
		Params:         params,
	}
	f.ExplainedVarianceRatio = explainedVarianceRatio(a, f)
	return f, nil
}

// randomizedSVD follows Halko, Martinsson and Tropp: sample the range of a
// with a seeded Gaussian test matrix, refine it with power iterations and
// take the exact SVD of the small projected matrix.
func randomizedSVD(ctx context.Context, a *mat.Dense, params FitParams) ([]float64, []float64, error) {
	users, items := a.Dims()
	k := params.Components
	size := min(k+params.Oversamples, users, items)

	rng := rand.New(rand.NewPCG(uint64(params.RandomState), 0)) // #nosec G404 - reproducible sampling, not security
	omega := make([]float64, size*items)
	for i := range omega {
		omega[i] = rng.NormFloat64()
	}
	omegaT := mat.NewDense(size, items, omega)

	// Basis vectors are kept as rows so they can be orthonormalized in place.
	var q mat.Dense
	q.Mul(omegaT, a.T())
	orthonormalizeRows(&q)

	for i := 0; i < params.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("fit cancelled after %d power iterations: %w", i, err)
		}
		var z mat.Dense
		z.Mul(&q, a)
		orthonormalizeRows(&z)

		q.Reset()
		q.Mul(&z, a.T())
		orthonormalizeRows(&q)
	}

	var b mat.Dense
	b.Mul(&q, a)
	return thinSVD(&b, k)
}

func exactSVD(a *mat.Dense, k int) ([]float64, []float64, error) {
	return thinSVD(a, k)
}

// thinSVD returns the top k singular values and right singular vectors (k x cols, row-major)
func thinSVD(m mat.Matrix, k int) ([]float64, []float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return nil, nil, errors.New("SVD factorization did not converge")
	}

	all := svd.Values(nil)
	if len(all) < k {
		return nil, nil, fmt.Errorf("SVD produced %d singular values, need %d", len(all), k)
	}

	var v mat.Dense
	svd.VTo(&v)
	cols, _ := v.Dims()

	values := make([]float64, k)
	copy(values, all[:k])

	components := make([]float64, k*cols)
	for i := 0; i < k; i++ {
		for j := 0; j < cols; j++ {
			components[i*cols+j] = v.At(j, i)
		}
	}
	return values, components, nil
}

// orthonormalizeRows runs modified Gram-Schmidt with one re-orthogonalization
// pass over the rows of d. Rows that collapse to zero are left as zero.
func orthonormalizeRows(d *mat.Dense) {
	rows, _ := d.Dims()
	for i := 0; i < rows; i++ {
		row := d.RawRowView(i)
		for pass := 0; pass < 2; pass++ {
			for j := 0; j < i; j++ {
				prev := d.RawRowView(j)
				floats.AddScaled(row, -floats.Dot(row, prev), prev)
			}
		}
		norm := floats.Norm(row, 2)
		if norm < orthTolerance {
			for c := range row {
				row[c] = 0
			}
			continue
		}
		floats.Scale(1/norm, row)
	}
}

// flipSigns makes the largest-magnitude entry of every component row positive
func flipSigns(components []float64, k, cols int) {
	for i := 0; i < k; i++ {
		row := components[i*cols : (i+1)*cols]
		best := 0
		for j := range row {
			if math.Abs(row[j]) > math.Abs(row[best]) {
				best = j
			}
		}
		if row[best] < 0 {
			floats.Scale(-1, row)
		}
	}
}

// explainedVarianceRatio is the variance of each projected column over the
// total variance of a.
func explainedVarianceRatio(a *mat.Dense, f *Factorization) []float64 {
	ratios := make([]float64, f.Rank)

	total := 0.0
	_, cols := a.Dims()
	for j := 0; j < cols; j++ {
		total += columnVariance(a, j)
	}
	if total == 0 {
		return ratios
	}

	projected, err := f.Transform(a)
	if err != nil {
		return ratios
	}
	for i := range ratios {
		ratios[i] = columnVariance(projected, i) / total
	}
	return ratios
}

func columnVariance(m *mat.Dense, j int) float64 {
	rows, _ := m.Dims()
	if rows == 0 {
		return 0
	}
	col := mat.Col(nil, j, m)
	mean := floats.Sum(col) / float64(rows)
	variance := 0.0
	for _, v := range col {
		d := v - mean
		variance += d * d
	}
	return variance / float64(rows)
}
