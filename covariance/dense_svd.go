package covariance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/maravelle/lsqcov/parallel"
)

// assembleDense scatters the evaluated block Jacobians into one dense
// numRows×numCols matrix.
func assembleDense(jacs []blockJacobian, numRows, numCols int) *mat.Dense {
	j := mat.NewDense(numRows, numCols, nil)
	for _, bj := range jacs {
		for _, t := range bj.terms {
			for r := 0; r < bj.numRows; r++ {
				for k := 0; k < t.tan; k++ {
					j.Set(bj.rowBegin+r, t.begin+k, t.vals[r*t.tan+k])
				}
			}
		}
	}

	return j
}

// denseSVDCovariance computes the pattern entries of the Moore-Penrose
// pseudo-inverse of JᵗJ: with J = U·S·Vᵗ, pinv(JᵗJ) = V·S⁻²·Vᵗ over the
// retained singular values.
//
// Retention follows Options: NullSpaceRank ≥ 0 keeps all but that many of
// the smallest singular values and rejects the problem when a kept value
// falls below sqrt(MinReciprocalCondition)·s_max; NullSpaceRank = -1
// truncates at that threshold automatically.
func denseSVDCovariance(jacs []blockJacobian, numRows int, pl *plan, opts Options, out []float64) error {
	j := assembleDense(jacs, numRows, pl.numCols)

	var svd mat.SVD
	if !svd.Factorize(j, mat.SVDThin) {
		return fmt.Errorf("svd of %dx%d jacobian: %w", numRows, pl.numCols, ErrFactorizationFailed)
	}
	s := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	n := len(s)
	maxRank := n
	automatic := opts.NullSpaceRank < 0
	if !automatic {
		maxRank = n - opts.NullSpaceRank
		if maxRank < 0 {
			maxRank = 0
		}
	}

	minRatio := math.Sqrt(opts.MinReciprocalCondition)
	invSq := make([]float64, n)
	rank := 0
	for i := 0; i < maxRank; i++ {
		// Singular values arrive in decreasing order.
		if s[i] <= minRatio*s[0] {
			if !automatic {
				return fmt.Errorf(
					"singular value ratio %g below %g at index %d; increase NullSpaceRank or use automatic truncation: %w",
					s[i]/s[0], minRatio, i, ErrRankDeficient)
			}
			break
		}
		invSq[i] = 1 / (s[i] * s[i])
		rank++
	}
	if rank == 0 {
		return fmt.Errorf("no singular values retained: %w", ErrRankDeficient)
	}

	// out[p] = Σ_k V[ri][k]·S⁻²[k]·V[cj][k] for each pattern slot; rows are
	// disjoint across workers.
	return parallel.For(pl.numPatternRows(), opts.Workers, func(lo, hi int) error {
		for t := lo; t < hi; t++ {
			ri := pl.rowCol[t]
			for p := pl.rowStart[t]; p < pl.rowStart[t+1]; p++ {
				cj := pl.cols[p]
				sum := 0.0
				for k := 0; k < rank; k++ {
					sum += v.At(ri, k) * invSq[k] * v.At(cj, k)
				}
				out[p] = sum
			}
		}
		return nil
	})
}
