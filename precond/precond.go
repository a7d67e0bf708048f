// Package precond defines the preconditioner capability surface consumed
// by iterative linear solvers: apply as a linear operator, report the
// dimension, and refresh from a new system matrix.
//
// Only the minimal contract lives here. MatrixWrapper adapts an
// already-assembled sparse matrix into a no-op-update preconditioner, and
// Jacobi provides the one concrete kind every Schur-style variant degrades
// to when the problem has no e-block structure (see ForZeroEBlocks).
package precond

import (
	"errors"
	"fmt"

	"github.com/maravelle/lsqcov/sparse"
)

var (
	// ErrNilMatrix indicates a nil sparse matrix where one is required.
	ErrNilMatrix = errors.New("precond: nil matrix")

	// ErrDimensionMismatch indicates operand sizes that do not conform.
	ErrDimensionMismatch = errors.New("precond: dimension mismatch")

	// ErrNotUpdated indicates an apply before the first successful Update.
	ErrNotUpdated = errors.New("precond: preconditioner not updated")
)

// Kind enumerates the preconditioner family.
type Kind int

const (
	// Identity applies M = I.
	Identity Kind = iota

	// Jacobi applies the inverted diagonal of the normal equations.
	Jacobi

	// SchurJacobi applies block Jacobi to the Schur complement.
	SchurJacobi

	// ClusterJacobi applies clustered block Jacobi to the Schur complement.
	ClusterJacobi

	// ClusterTridiagonal applies a clustered tridiagonal approximation to
	// the Schur complement.
	ClusterTridiagonal

	// SchurPowerSeries applies a truncated power-series expansion of the
	// Schur complement inverse.
	SchurPowerSeries

	// Subset applies a preconditioner built from a subset of residuals.
	Subset
)

// String names the kind for diagnostics.
func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case Jacobi:
		return "jacobi"
	case SchurJacobi:
		return "schur_jacobi"
	case ClusterJacobi:
		return "cluster_jacobi"
	case ClusterTridiagonal:
		return "cluster_tridiagonal"
	case SchurPowerSeries:
		return "schur_power_series"
	case Subset:
		return "subset"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ForZeroEBlocks maps a requested kind to the kind actually usable when the
// problem has no e-blocks: the Schur-complement variants have nothing to
// eliminate and degrade to plain Jacobi; every other kind is returned
// unchanged. The mapping is total and pure.
func ForZeroEBlocks(k Kind) Kind {
	switch k {
	case SchurJacobi, ClusterJacobi, ClusterTridiagonal:
		return Jacobi
	default:
		return k
	}
}

// Preconditioner is the capability interface: y += M·x, dimension report,
// and refresh from the current system matrix a with diagonal damping diag
// (may be nil for no damping).
type Preconditioner interface {
	RightMultiplyAndAccumulate(x, y []float64) error
	NumRows() int
	Update(a *sparse.CSR, diag []float64) error
}

// MatrixWrapper treats an already-assembled sparse matrix as a
// preconditioner: Update is a no-op that always succeeds, and
// multiplication delegates to the matrix's threaded multiply.
type MatrixWrapper struct {
	m       *sparse.CSR
	workers int
}

// NewMatrixWrapper wraps m. workers controls the threaded multiply;
// values below 1 run serially.
func NewMatrixWrapper(m *sparse.CSR, workers int) (*MatrixWrapper, error) {
	if m == nil {
		return nil, ErrNilMatrix
	}
	if workers < 1 {
		workers = 1
	}

	return &MatrixWrapper{m: m, workers: workers}, nil
}

func (w *MatrixWrapper) RightMultiplyAndAccumulate(x, y []float64) error {
	return w.m.RightMultiplyAndAccumulateParallel(x, y, w.workers)
}

func (w *MatrixWrapper) NumRows() int { return w.m.NumRows() }

// Update ignores its arguments; the wrapped matrix is already the
// preconditioner.
func (w *MatrixWrapper) Update(_ *sparse.CSR, _ []float64) error { return nil }

// JacobiPreconditioner is the scalar Jacobi preconditioner of the normal
// equations: M = diag(AᵗA + DᵗD)⁻¹ where A is the Jacobian handed to
// Update and D the optional damping diagonal.
type JacobiPreconditioner struct {
	inv []float64
}

// NewJacobi returns an empty Jacobi preconditioner; it must be Updated
// before the first apply.
func NewJacobi() *JacobiPreconditioner { return &JacobiPreconditioner{} }

func (j *JacobiPreconditioner) NumRows() int { return len(j.inv) }

func (j *JacobiPreconditioner) RightMultiplyAndAccumulate(x, y []float64) error {
	if j.inv == nil {
		return ErrNotUpdated
	}
	if len(x) != len(j.inv) || len(y) != len(j.inv) {
		return fmt.Errorf("x %d, y %d vs %d: %w", len(x), len(y), len(j.inv), ErrDimensionMismatch)
	}
	for i, v := range x {
		y[i] += j.inv[i] * v
	}

	return nil
}

// Update recomputes the inverted diagonal of AᵗA + DᵗD. Columns with a
// zero diagonal (unobserved parameters) map to zero rather than infinity.
func (j *JacobiPreconditioner) Update(a *sparse.CSR, diag []float64) error {
	if a == nil {
		return ErrNilMatrix
	}
	n := a.NumCols()
	if diag != nil && len(diag) != n {
		return fmt.Errorf("diag %d vs %d cols: %w", len(diag), n, ErrDimensionMismatch)
	}

	d := make([]float64, n)
	for i := 0; i < a.NumRows(); i++ {
		cols, vals := a.Row(i)
		for p, c := range cols {
			d[c] += vals[p] * vals[p]
		}
	}
	if diag != nil {
		for i, v := range diag {
			d[i] += v * v
		}
	}
	for i, v := range d {
		if v > 0 {
			d[i] = 1 / v
		}
	}
	j.inv = d

	return nil
}
