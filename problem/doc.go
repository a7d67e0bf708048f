// Package problem models a solved least-squares problem for covariance
// estimation: a set of parameter blocks plus the residual blocks that
// connect them.
//
// Parameter blocks live in an arena and are referenced by stable integer
// handles (BlockID). A handle preserves "identity, not value" semantics —
// the engine never copies parameter data, it only reads sizes, flags and
// Jacobians — while avoiding the aliasing hazards of raw-pointer keys.
//
// A residual block pairs a CostFunction with the ordered handles of the
// parameter blocks it depends on. Covariance estimation evaluates each
// residual block's Jacobians once, at the stored parameter values (assumed
// to be the optimum), and never calls back afterwards.
//
// Blocks may be marked constant (SetConstant) or given a local
// parameterization (SetManifold); both affect how many columns the block
// contributes to the assembled Jacobian.
package problem
