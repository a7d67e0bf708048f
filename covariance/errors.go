package covariance

import "errors"

// Sentinel error set for the covariance engine. Usage errors (duplicate
// pairs, unplanned queries, bad buffers) point at the caller; numerical
// failures (rank deficiency, empty Jacobians) describe the problem
// instance. All are matched with errors.Is; outer wrapping only adds
// context.
var (
	// ErrDuplicatePair is returned by Compute when two requested entries
	// describe the same unordered parameter-block pair. The error text
	// names every conflicting index pair.
	ErrDuplicatePair = errors.New("covariance: duplicate parameter block pairs requested")

	// ErrNotComputed is returned by every query before a successful
	// Compute, or after a failed one.
	ErrNotComputed = errors.New("covariance: covariance has not been computed")

	// ErrPairNotRequested is returned when a queried pair was not part of
	// the originally requested set; the engine never computes blocks on
	// demand.
	ErrPairNotRequested = errors.New("covariance: block pair was not requested in Compute")

	// ErrEmptyJacobian indicates a problem with no residuals or no free
	// parameter columns; there is nothing to invert.
	ErrEmptyJacobian = errors.New("covariance: Jacobian is empty")

	// ErrRankDeficient indicates a Jacobian whose rank (or conditioning)
	// does not support the selected algorithm. The sparse QR path requires
	// full column rank; DenseSVD with rank truncation handles deficiency.
	ErrRankDeficient = errors.New("covariance: Jacobian is rank deficient")

	// ErrFactorizationFailed indicates the underlying factorization did
	// not converge or could not be formed.
	ErrFactorizationFailed = errors.New("covariance: factorization failed")

	// ErrUnsupportedBackend names an algorithm/backend combination that is
	// not available in this build.
	ErrUnsupportedBackend = errors.New("covariance: unsupported algorithm/backend combination")

	// ErrBufferSize indicates a caller-provided output buffer too small
	// for the requested block or matrix.
	ErrBufferSize = errors.New("covariance: output buffer too small")

	// ErrBadOptions indicates option values outside their documented
	// domains.
	ErrBadOptions = errors.New("covariance: invalid options")
)
