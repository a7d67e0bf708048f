package covariance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/maravelle/lsqcov/parallel"
	"github.com/maravelle/lsqcov/sparse"
)

// sparseQRCovariance computes the pattern entries of (JᵗJ)⁻¹ = R⁻¹·R⁻ᵗ
// from a triangular factor R with RᵗR = JᵗJ. The factor comes from either
// the built-in sparse factorization of the normal equations or gonum's
// dense QR of J; the two agree up to per-row signs, which cancel in the
// product. Requires J to have full column rank.
func sparseQRCovariance(jacs []blockJacobian, numRows int, pl *plan, opts Options, out []float64) error {
	var (
		r   *sparse.CSR
		err error
	)
	switch opts.Backend {
	case BackendCSR:
		r, err = factorNormalEquations(jacs, pl.numCols)
	case BackendGonum:
		r, err = factorDenseQR(jacs, numRows, pl.numCols)
	default:
		return fmt.Errorf("%v/%v: %w", SparseQR, opts.Backend, ErrUnsupportedBackend)
	}
	if err != nil {
		return err
	}

	if err := checkConditioning(r, opts.MinReciprocalCondition); err != nil {
		return err
	}

	return solvePattern(r, pl, opts.Workers, out)
}

// factorNormalEquations assembles the upper triangle of JᵗJ from the block
// Jacobians and factors it.
func factorNormalEquations(jacs []blockJacobian, numCols int) (*sparse.CSR, error) {
	var ts []sparse.Triplet
	for _, bj := range jacs {
		for ui, u := range bj.terms {
			// Terms are in ascending column order, so every cross product
			// lands in the upper triangle.
			for _, v := range bj.terms[ui:] {
				for i := 0; i < u.tan; i++ {
					for j := 0; j < v.tan; j++ {
						if u.begin == v.begin && j < i {
							continue
						}
						sum := 0.0
						for row := 0; row < bj.numRows; row++ {
							sum += u.vals[row*u.tan+i] * v.vals[row*v.tan+j]
						}
						ts = append(ts, sparse.Triplet{Row: u.begin + i, Col: v.begin + j, Val: sum})
					}
				}
			}
		}
	}

	a, err := sparse.NewCSRFromTriplets(numCols, numCols, ts)
	if err != nil {
		return nil, err
	}
	r, err := sparse.CholeskyUpper(a)
	if err != nil {
		if errors.Is(err, sparse.ErrNotPositiveDefinite) {
			return nil, fmt.Errorf("%v: %w", err, ErrRankDeficient)
		}
		return nil, err
	}

	return r, nil
}

// factorDenseQR routes through gonum's dense Householder QR and converts
// the top numCols rows of R to sparse form. gonum requires
// numRows ≥ numCols; fewer rows cannot yield full column rank anyway.
func factorDenseQR(jacs []blockJacobian, numRows, numCols int) (*sparse.CSR, error) {
	if numRows < numCols {
		return nil, fmt.Errorf("%d residuals for %d columns: %w", numRows, numCols, ErrRankDeficient)
	}
	j := assembleDense(jacs, numRows, numCols)

	var qr mat.QR
	qr.Factorize(j)
	var rd mat.Dense
	qr.RTo(&rd)

	var ts []sparse.Triplet
	for i := 0; i < numCols; i++ {
		for k := i; k < numCols; k++ {
			v := rd.At(i, k)
			// Keep zero diagonals so the conditioning check sees them.
			if v != 0 || k == i {
				ts = append(ts, sparse.Triplet{Row: i, Col: k, Val: v})
			}
		}
	}

	return sparse.NewCSRFromTriplets(numCols, numCols, ts)
}

// checkConditioning rejects factors whose extreme diagonal magnitudes
// indicate a (numerically) rank-deficient Jacobian.
func checkConditioning(r *sparse.CSR, minReciprocalCondition float64) error {
	diag := r.Diagonal()
	rmin, rmax := math.Inf(1), 0.0
	for _, d := range diag {
		a := math.Abs(d)
		if a < rmin {
			rmin = a
		}
		if a > rmax {
			rmax = a
		}
	}
	if rmax == 0 || rmin/rmax <= math.Sqrt(minReciprocalCondition) {
		return fmt.Errorf("reciprocal condition %g below %g: %w",
			rmin/rmax, math.Sqrt(minReciprocalCondition), ErrRankDeficient)
	}

	return nil
}

// solvePattern fills out with the requested entries of (RᵗR)⁻¹. For each
// pattern row with global column c it solves Rᵗy = e_c then Rw = y and
// reads w at the pattern columns. Rows are partitioned across workers with
// per-worker scratch, and each worker writes only its own slots of out, so
// the result is independent of the worker count.
func solvePattern(r *sparse.CSR, pl *plan, workers int, out []float64) error {
	n := r.NumRows()

	return parallel.For(pl.numPatternRows(), workers, func(lo, hi int) error {
		y := make([]float64, n)
		w := make([]float64, n)
		for t := lo; t < hi; t++ {
			c := pl.rowCol[t]

			// Forward: Rᵗy = e_c. Rows of R are columns of Rᵗ, so finalize
			// y[k] in ascending k and scatter its contribution forward.
			// y[k] = 0 for k < c.
			for k := c; k < n; k++ {
				y[k] = 0
			}
			y[c] = 1
			for k := c; k < n; k++ {
				v := y[k]
				if v == 0 {
					continue
				}
				cols, vals := r.Row(k) // diagonal first
				v /= vals[0]
				y[k] = v
				for p := 1; p < len(cols); p++ {
					y[cols[p]] -= vals[p] * v
				}
			}

			// Backward: Rw = y. y[k] is zero for k < c by construction.
			for k := n - 1; k >= 0; k-- {
				cols, vals := r.Row(k)
				sum := 0.0
				if k >= c {
					sum = y[k]
				}
				for p := 1; p < len(cols); p++ {
					sum -= vals[p] * w[cols[p]]
				}
				w[k] = sum / vals[0]
			}

			for p := pl.rowStart[t]; p < pl.rowStart[t+1]; p++ {
				out[p] = w[pl.cols[p]]
			}
		}
		return nil
	})
}
