package covariance

import "fmt"

// Algorithm selects the numeric core used to invert JᵗJ.
type Algorithm int

const (
	// SparseQR computes the triangular factor R with JᵗJ = RᵗR and fills
	// only the planned sparsity pattern. Fast and memory-frugal, but it
	// requires the Jacobian to have full column rank.
	SparseQR Algorithm = iota

	// DenseSVD assembles the Jacobian densely and forms the Moore-Penrose
	// pseudo-inverse of JᵗJ, truncating small singular values. Tolerant of
	// rank deficiency, O(numResiduals · numCols²) and dense, so only
	// suitable for small problems.
	DenseSVD
)

// String names the algorithm for diagnostics.
func (a Algorithm) String() string {
	switch a {
	case SparseQR:
		return "sparse_qr"
	case DenseSVD:
		return "dense_svd"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// Backend selects the implementation serving a given algorithm.
type Backend int

const (
	// BackendCSR uses the built-in compressed-sparse-row factorization.
	BackendCSR Backend = iota

	// BackendGonum routes the factorization through gonum's dense QR. It
	// exists for cross-checking the sparse path and requires
	// numResiduals ≥ numCols.
	BackendGonum
)

// String names the backend for diagnostics.
func (b Backend) String() string {
	switch b {
	case BackendCSR:
		return "csr"
	case BackendGonum:
		return "gonum"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// Options configures a Covariance instance. The zero value is not valid;
// start from DefaultOptions.
type Options struct {
	// Algorithm selects the numeric core. Default SparseQR.
	Algorithm Algorithm

	// Backend selects the implementation of the chosen algorithm. DenseSVD
	// ignores it. Default BackendCSR.
	Backend Backend

	// NullSpaceRank applies only to DenseSVD. When ≥ 0, exactly that many
	// of the smallest singular values are treated as zero. When -1, the
	// rank is determined automatically: singular values below
	// sqrt(MinReciprocalCondition) times the largest are dropped.
	NullSpaceRank int

	// MinReciprocalCondition bounds the acceptable conditioning. SparseQR
	// rejects factors whose extreme diagonal ratio falls below its square
	// root; DenseSVD with automatic truncation uses it as the drop
	// threshold. Must be positive. Default 1e-14.
	MinReciprocalCondition float64

	// Workers bounds the goroutines used by the parallel phases. Values
	// below 1 run serially. Results are identical for every setting.
	Workers int
}

// DefaultOptions mirrors the conventional solver defaults: sparse QR on
// the built-in backend, no forced null space, reciprocal condition floor
// 1e-14, serial execution.
func DefaultOptions() Options {
	return Options{
		Algorithm:              SparseQR,
		Backend:                BackendCSR,
		NullSpaceRank:          0,
		MinReciprocalCondition: 1e-14,
		Workers:                1,
	}
}

func (o Options) validate() error {
	if o.Algorithm != SparseQR && o.Algorithm != DenseSVD {
		return fmt.Errorf("algorithm %v: %w", o.Algorithm, ErrBadOptions)
	}
	if o.Algorithm == SparseQR && o.Backend != BackendCSR && o.Backend != BackendGonum {
		return fmt.Errorf("algorithm %v with backend %v: %w", o.Algorithm, o.Backend, ErrUnsupportedBackend)
	}
	if o.NullSpaceRank < -1 {
		return fmt.Errorf("null space rank %d: %w", o.NullSpaceRank, ErrBadOptions)
	}
	if !(o.MinReciprocalCondition > 0) {
		return fmt.Errorf("min reciprocal condition %g: %w", o.MinReciprocalCondition, ErrBadOptions)
	}

	return nil
}
