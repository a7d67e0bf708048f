package sparse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maravelle/lsqcov/sparse"
)

// upperTriplets converts a dense symmetric matrix to its upper-triangle
// triplet list, skipping zeros.
func upperTriplets(a [][]float64) []sparse.Triplet {
	var ts []sparse.Triplet
	for i := range a {
		for j := i; j < len(a); j++ {
			if a[i][j] != 0 {
				ts = append(ts, sparse.Triplet{Row: i, Col: j, Val: a[i][j]})
			}
		}
	}
	return ts
}

// reconstruct computes RᵗR densely from a sparse upper factor.
func reconstruct(r *sparse.CSR) [][]float64 {
	n := r.NumRows()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for k := 0; k < n; k++ {
		cols, vals := r.Row(k)
		for a, i := range cols {
			for b, j := range cols {
				out[i][j] += vals[a] * vals[b]
			}
		}
	}
	return out
}

// TestCholeskyUpper_Reconstructs factors a dense-ish SPD matrix and checks
// RᵗR reproduces it. The matrix is the Gram matrix of the 8×6 fixture used
// throughout the covariance tests.
func TestCholeskyUpper_Reconstructs(t *testing.T) {
	jtj := [][]float64{
		{35, 24, -5, -10, -15, 6},
		{24, 41, -6, -12, -18, -4},
		{-5, -6, 5, 2, 3, 0},
		{-10, -12, 2, 8, 6, 0},
		{-15, -18, 3, 6, 13, 0},
		{6, -4, 0, 0, 0, 29},
	}
	a, err := sparse.NewCSRFromTriplets(6, 6, upperTriplets(jtj))
	require.NoError(t, err)

	r, err := sparse.CholeskyUpper(a)
	require.NoError(t, err)
	require.Equal(t, 6, r.NumRows())

	// Upper triangular with positive diagonal first in each row.
	for i := 0; i < 6; i++ {
		cols, vals := r.Row(i)
		require.NotEmpty(t, cols)
		assert.Equal(t, i, cols[0], "diagonal first in row %d", i)
		assert.Greater(t, vals[0], 0.0)
		for _, c := range cols {
			assert.GreaterOrEqual(t, c, i)
		}
	}

	got := reconstruct(r)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			assert.InDelta(t, jtj[i][j], got[i][j], 1e-10, "(%d,%d)", i, j)
		}
	}
}

// TestCholeskyUpper_BlockDiagonal factors a block-diagonal SPD matrix and
// checks the factor keeps the block structure (no spurious fill).
func TestCholeskyUpper_BlockDiagonal(t *testing.T) {
	const blocks = 40
	const bs = 3
	n := blocks * bs
	var ts []sparse.Triplet
	for b := 0; b < blocks; b++ {
		base := b * bs
		scale := float64(b + 1)
		// scale * (I + ones/10): SPD with off-diagonal coupling inside the block.
		for i := 0; i < bs; i++ {
			for j := i; j < bs; j++ {
				v := scale * 0.1
				if i == j {
					v = scale * 1.1
				}
				ts = append(ts, sparse.Triplet{Row: base + i, Col: base + j, Val: v})
			}
		}
	}
	a, err := sparse.NewCSRFromTriplets(n, n, ts)
	require.NoError(t, err)

	r, err := sparse.CholeskyUpper(a)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		cols, _ := r.Row(i)
		blockEnd := (i/bs + 1) * bs
		for _, c := range cols {
			assert.Less(t, c, blockEnd, "row %d must stay inside its block", i)
		}
	}

	got := reconstruct(r)
	want := make([][]float64, n)
	for i := range want {
		want[i] = make([]float64, n)
	}
	for _, tr := range ts {
		want[tr.Row][tr.Col] = tr.Val
		want[tr.Col][tr.Row] = tr.Val
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			require.InDelta(t, want[i][j], got[i][j], 1e-10, "(%d,%d)", i, j)
		}
	}
}

// TestCholeskyUpper_Fill checks a matrix whose factor has fill-in beyond
// the input pattern (arrowhead structure).
func TestCholeskyUpper_Fill(t *testing.T) {
	// Arrowhead: dense last row/column, diagonal elsewhere.
	a := [][]float64{
		{4, 0, 0, 1},
		{0, 5, 0, 1},
		{0, 0, 6, 1},
		{1, 1, 1, 7},
	}
	m, err := sparse.NewCSRFromTriplets(4, 4, upperTriplets(a))
	require.NoError(t, err)

	r, err := sparse.CholeskyUpper(m)
	require.NoError(t, err)

	got := reconstruct(r)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.InDelta(t, a[i][j], got[i][j], 1e-12, "(%d,%d)", i, j)
		}
	}
}

// TestCholeskyUpper_NotPositiveDefinite fails cleanly on a singular input.
func TestCholeskyUpper_NotPositiveDefinite(t *testing.T) {
	a, err := sparse.NewCSRFromTriplets(3, 3, []sparse.Triplet{
		{Row: 0, Col: 0, Val: 1},
		{Row: 1, Col: 1, Val: 1},
		// row/col 2 is identically zero: rank deficient.
	})
	require.NoError(t, err)

	_, err = sparse.CholeskyUpper(a)
	assert.ErrorIs(t, err, sparse.ErrNotPositiveDefinite)
}

// TestCholeskyUpper_InputValidation rejects non-square and lower-triangle
// inputs.
func TestCholeskyUpper_InputValidation(t *testing.T) {
	rect, err := sparse.NewCSRFromTriplets(2, 3, nil)
	require.NoError(t, err)
	_, err = sparse.CholeskyUpper(rect)
	assert.ErrorIs(t, err, sparse.ErrBadShape)

	lower, err := sparse.NewCSRFromTriplets(2, 2, []sparse.Triplet{
		{Row: 1, Col: 0, Val: 1},
		{Row: 0, Col: 0, Val: 1},
		{Row: 1, Col: 1, Val: 1},
	})
	require.NoError(t, err)
	_, err = sparse.CholeskyUpper(lower)
	assert.ErrorIs(t, err, sparse.ErrNotUpper)
}
