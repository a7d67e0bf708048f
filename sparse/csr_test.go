package sparse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maravelle/lsqcov/sparse"
)

// TestNewCSRFromTriplets_Basic builds a small matrix and checks layout,
// At lookups and duplicate merging.
func TestNewCSRFromTriplets_Basic(t *testing.T) {
	m, err := sparse.NewCSRFromTriplets(3, 4, []sparse.Triplet{
		{Row: 2, Col: 1, Val: 5},
		{Row: 0, Col: 0, Val: 1},
		{Row: 0, Col: 3, Val: 2},
		{Row: 0, Col: 0, Val: 0.5}, // duplicate of (0,0), merged by summation
	})
	require.NoError(t, err)

	assert.Equal(t, 3, m.NumRows())
	assert.Equal(t, 4, m.NumCols())
	assert.Equal(t, 3, m.NNZ())
	assert.Equal(t, []int{0, 2, 2, 3}, m.RowStarts())

	v, err := m.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
	v, err = m.At(0, 3)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	v, err = m.At(1, 2) // empty row
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	cols, vals := m.Row(0)
	assert.Equal(t, []int{0, 3}, cols)
	assert.Equal(t, []float64{1.5, 2}, vals)

	_, err = m.At(3, 0)
	assert.ErrorIs(t, err, sparse.ErrOutOfRange)
}

// TestNewCSRFromTriplets_Invalid rejects bad shapes and out-of-range entries.
func TestNewCSRFromTriplets_Invalid(t *testing.T) {
	_, err := sparse.NewCSRFromTriplets(0, 3, nil)
	assert.ErrorIs(t, err, sparse.ErrBadShape)

	_, err = sparse.NewCSRFromTriplets(2, 2, []sparse.Triplet{{Row: 2, Col: 0, Val: 1}})
	assert.ErrorIs(t, err, sparse.ErrOutOfRange)
}

// TestCSR_Diagonal extracts the main diagonal of a rectangular matrix.
func TestCSR_Diagonal(t *testing.T) {
	m, err := sparse.NewCSRFromTriplets(2, 3, []sparse.Triplet{
		{Row: 0, Col: 0, Val: 3},
		{Row: 1, Col: 2, Val: 9},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0}, m.Diagonal())
}

// TestCSR_RightMultiplyAndAccumulate checks y += A·x and the accumulate
// semantics.
func TestCSR_RightMultiplyAndAccumulate(t *testing.T) {
	// | 1 0 2 |
	// | 0 3 0 |
	m, err := sparse.NewCSRFromTriplets(2, 3, []sparse.Triplet{
		{Row: 0, Col: 0, Val: 1},
		{Row: 0, Col: 2, Val: 2},
		{Row: 1, Col: 1, Val: 3},
	})
	require.NoError(t, err)

	x := []float64{1, 2, 3}
	y := []float64{10, 20}
	require.NoError(t, m.RightMultiplyAndAccumulate(x, y))
	assert.Equal(t, []float64{17, 26}, y)

	assert.ErrorIs(t, m.RightMultiplyAndAccumulate(x[:2], y), sparse.ErrDimensionMismatch)
}

// TestCSR_ParallelMultiplyMatchesSerial verifies the parallel multiply is
// identical to the serial result for several worker counts.
func TestCSR_ParallelMultiplyMatchesSerial(t *testing.T) {
	const n = 200
	ts := make([]sparse.Triplet, 0, 3*n)
	for i := 0; i < n; i++ {
		ts = append(ts, sparse.Triplet{Row: i, Col: i, Val: float64(i + 1)})
		ts = append(ts, sparse.Triplet{Row: i, Col: (i * 7) % n, Val: 0.5})
		ts = append(ts, sparse.Triplet{Row: i, Col: (i*13 + 3) % n, Val: -1.25})
	}
	m, err := sparse.NewCSRFromTriplets(n, n, ts)
	require.NoError(t, err)

	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i%17) - 8
	}

	want := make([]float64, n)
	require.NoError(t, m.RightMultiplyAndAccumulate(x, want))

	for _, workers := range []int{2, 4, 16} {
		got := make([]float64, n)
		require.NoError(t, m.RightMultiplyAndAccumulateParallel(x, got, workers))
		assert.Equal(t, want, got, "workers=%d", workers)
	}
}
