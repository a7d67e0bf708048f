// Package sparse provides the compressed-sparse-row matrix type and the
// sparse factorization kernel used by covariance estimation.
//
// CSR stores a rows×cols float64 matrix as row offsets, column indices and
// values, with columns strictly ascending inside each row. Construction
// goes through NewCSRFromTriplets, which sorts and merges duplicate
// coordinates by summation; once built, a CSR is read-only and safe for
// concurrent reads.
//
// RightMultiplyAndAccumulate computes y += A·x; the Parallel variant
// partitions rows across workers and is bitwise-identical to the serial
// result, because each output row is owned by exactly one worker.
//
// CholeskyUpper factorizes a symmetric positive-definite matrix, given by
// its upper triangle, into the upper factor R with A = RᵗR. It is an
// up-looking algorithm driven by the elimination tree, so the cost is
// proportional to the factor's fill rather than to n².
package sparse
