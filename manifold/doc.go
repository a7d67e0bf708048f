// Package manifold defines local parameterizations for parameter blocks.
//
// A manifold maps a small tangent-space perturbation delta onto a change of
// the ambient parameter vector x via Plus(x, delta), and exposes the
// Jacobian of that map at x. Covariance estimation uses only the sizes and
// PlusJacobian: the tangent-space covariance is lifted into ambient space
// through J_plus · Cov · J_plusᵗ.
//
// Two implementations ship with the package:
//
//   - Euclidean — the trivial manifold; tangent size equals ambient size
//     and PlusJacobian is the identity.
//   - Subset — holds a chosen set of coordinates constant; the tangent
//     space is the ambient space with those coordinates removed. A Subset
//     holding every coordinate constant has tangent size zero, which is a
//     legal, fully degenerate parameterization.
//
// All buffers are caller-provided row-major []float64 slices; methods
// return sentinel errors on size mismatches and never panic on
// user-triggered conditions.
package manifold
