// Package lsqcov estimates parameter covariances for solved nonlinear
// least-squares problems: given the residual Jacobians at an optimum, it
// computes requested blocks of (JᵗJ)⁻¹ without ever materializing the full
// dense inverse.
//
// What lsqcov provides:
//
//   - problem/    — parameter-block arena with stable integer handles,
//     residual blocks and Jacobian evaluation contracts
//   - manifold/   — local parameterizations (ambient vs tangent space),
//     with Euclidean and Subset implementations
//   - covariance/ — sparsity planning over requested block pairs, dense-SVD
//     pseudo-inverse and sparse-QR selective inversion, block queries with
//     tangent→ambient lifting
//   - sparse/     — CSR matrices, threaded mat-vec, sparse Cholesky
//   - precond/    — preconditioner capability interface and wrappers
//   - parallel/   — deterministic fixed-partition fork-join driver
//
// Design guarantees:
//
//   - Deterministic — results are independent of worker count and dispatch
//     order; planning walks blocks in a single stable order
//   - Status returns — no panics cross the API boundary; every failure is a
//     sentinel error matched with errors.Is
//   - Identity, not value — parameter blocks are referenced by handle; the
//     engine reads sizes and Jacobians, never copies parameter data
//
// Dense linear algebra is delegated to gonum.org/v1/gonum/mat; the sparse
// factorization kernels live in sparse/.
//
//	go get github.com/maravelle/lsqcov
package lsqcov
