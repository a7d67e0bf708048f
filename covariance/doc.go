// Package covariance estimates the asymptotic covariance of parameter
// blocks at the solution of a nonlinear least-squares problem: blocks of
// (JᵗJ)⁻¹, where J is the Jacobian of the stacked residuals evaluated at
// the optimum.
//
// Pipeline:
//
//  1. Sparsity planning — the requested (blockA, blockB) pairs are
//     expanded into a compressed-row pattern over the free tangent-space
//     columns. Duplicate pairs are rejected; constant blocks, blocks with
//     zero-sized tangent spaces and blocks referenced by no residual get
//     zero-size column ranges.
//  2. Numeric core — either a dense SVD pseudo-inverse with rank
//     truncation (tolerant of rank-deficient problems) or a sparse-QR
//     style selective inversion that computes R with JᵗJ = RᵗR and fills
//     only the planned pattern entries (requires full column rank).
//  3. Queries — GetCovarianceBlock and friends serve point lookups,
//     optionally lifting tangent-space blocks into ambient space through
//     each block's PlusJacobian.
//
// Typical use:
//
//	cov := covariance.New(covariance.DefaultOptions())
//	if err := cov.ComputeForBlocks([]problem.BlockID{x, y, z}, prob); err != nil {
//		// rank-deficient or empty problem; no queries will succeed
//	}
//	block := make([]float64, 2*3)
//	err := cov.GetCovarianceBlock(x, y, block) // ambient space, row-major
//
// Determinism: for fixed inputs and options the computed values are
// identical for any Workers setting — parallel phases write exclusively
// into disjoint row ranges fixed during planning.
package covariance
