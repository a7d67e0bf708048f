package precond_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maravelle/lsqcov/precond"
	"github.com/maravelle/lsqcov/sparse"
)

// TestForZeroEBlocks_Total checks the degradation table over every kind:
// the Schur-complement variants fall back to Jacobi, everything else maps
// to itself.
func TestForZeroEBlocks_Total(t *testing.T) {
	all := []precond.Kind{
		precond.Identity,
		precond.Jacobi,
		precond.SchurJacobi,
		precond.ClusterJacobi,
		precond.ClusterTridiagonal,
		precond.SchurPowerSeries,
		precond.Subset,
	}
	degrades := map[precond.Kind]bool{
		precond.SchurJacobi:        true,
		precond.ClusterJacobi:      true,
		precond.ClusterTridiagonal: true,
	}

	for _, k := range all {
		got := precond.ForZeroEBlocks(k)
		if degrades[k] {
			assert.Equal(t, precond.Jacobi, got, "%v must degrade to jacobi", k)
		} else {
			assert.Equal(t, k, got, "%v must map to itself", k)
		}
	}

	// Total even over values outside the enum.
	assert.Equal(t, precond.Kind(99), precond.ForZeroEBlocks(precond.Kind(99)))
}

// TestKind_String names every kind distinctly.
func TestKind_String(t *testing.T) {
	seen := map[string]bool{}
	for k := precond.Identity; k <= precond.Subset; k++ {
		s := k.String()
		assert.False(t, seen[s], "duplicate name %q", s)
		seen[s] = true
	}
	assert.Equal(t, "jacobi", precond.Jacobi.String())
}

// TestMatrixWrapper_DelegatesMultiply binds a CSR and checks y += M·x plus
// the no-op Update contract.
func TestMatrixWrapper_DelegatesMultiply(t *testing.T) {
	m, err := sparse.NewCSRFromTriplets(2, 2, []sparse.Triplet{
		{Row: 0, Col: 0, Val: 2},
		{Row: 1, Col: 1, Val: 3},
	})
	require.NoError(t, err)

	w, err := precond.NewMatrixWrapper(m, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, w.NumRows())

	// Update is a no-op and always succeeds, even with nil arguments.
	require.NoError(t, w.Update(nil, nil))

	x := []float64{1, 10}
	y := []float64{5, 5}
	require.NoError(t, w.RightMultiplyAndAccumulate(x, y))
	assert.Equal(t, []float64{7, 35}, y)
}

// TestMatrixWrapper_NilMatrix rejects construction without a matrix.
func TestMatrixWrapper_NilMatrix(t *testing.T) {
	_, err := precond.NewMatrixWrapper(nil, 1)
	assert.ErrorIs(t, err, precond.ErrNilMatrix)
}

// TestJacobi_Update builds diag(AᵗA + DᵗD)⁻¹ for a small Jacobian and
// checks the apply.
func TestJacobi_Update(t *testing.T) {
	// A = | 1 0 |
	//     | 2 0 |   → diag(AᵗA) = (5, 9); col 1 observed only via row 2.
	//     | 0 3 |
	a, err := sparse.NewCSRFromTriplets(3, 2, []sparse.Triplet{
		{Row: 0, Col: 0, Val: 1},
		{Row: 1, Col: 0, Val: 2},
		{Row: 2, Col: 1, Val: 3},
	})
	require.NoError(t, err)

	j := precond.NewJacobi()
	assert.ErrorIs(t, j.RightMultiplyAndAccumulate([]float64{1}, []float64{0}), precond.ErrNotUpdated)

	require.NoError(t, j.Update(a, nil))
	assert.Equal(t, 2, j.NumRows())

	y := make([]float64, 2)
	require.NoError(t, j.RightMultiplyAndAccumulate([]float64{5, 18}, y))
	assert.InDelta(t, 1.0, y[0], 1e-15)
	assert.InDelta(t, 2.0, y[1], 1e-15)

	// Damping: diag(AᵗA + DᵗD) with D = (1, 3) → (6, 18).
	require.NoError(t, j.Update(a, []float64{1, 3}))
	y = make([]float64, 2)
	require.NoError(t, j.RightMultiplyAndAccumulate([]float64{6, 36}, y))
	assert.InDelta(t, 1.0, y[0], 1e-15)
	assert.InDelta(t, 2.0, y[1], 1e-15)
}

// TestJacobi_ZeroColumn maps unobserved columns to zero, not infinity.
func TestJacobi_ZeroColumn(t *testing.T) {
	a, err := sparse.NewCSRFromTriplets(1, 2, []sparse.Triplet{
		{Row: 0, Col: 0, Val: 2},
	})
	require.NoError(t, err)

	j := precond.NewJacobi()
	require.NoError(t, j.Update(a, nil))

	y := make([]float64, 2)
	require.NoError(t, j.RightMultiplyAndAccumulate([]float64{4, 7}, y))
	assert.InDelta(t, 1.0, y[0], 1e-15)
	assert.Equal(t, 0.0, y[1])
}
