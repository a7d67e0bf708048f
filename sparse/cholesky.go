package sparse

import (
	"fmt"
	"math"
)

// CholeskyUpper factorizes a symmetric positive-definite n×n matrix,
// supplied as its upper triangle (diagonal included), into the upper
// triangular factor R with A = RᵗR.
//
// The returned CSR stores each row of R with the diagonal entry first and
// the remaining columns ascending. The algorithm is the classic up-looking
// sparse Cholesky: the elimination tree of A determines the pattern of
// each factor row (ereach), and a sparse triangular solve fills in the
// values, so work and fill are proportional to nnz(R), not n².
//
// A non-positive pivot aborts with ErrNotPositiveDefinite: the input is
// rank deficient (or indefinite) and no factor exists.
func CholeskyUpper(a *CSR) (*CSR, error) {
	n := a.NumRows()
	if n != a.NumCols() {
		return nil, fmt.Errorf("%dx%d: %w", a.NumRows(), a.NumCols(), ErrBadShape)
	}
	for i := 0; i < n; i++ {
		cols, _ := a.Row(i)
		if len(cols) > 0 && cols[0] < i {
			return nil, fmt.Errorf("entry (%d,%d): %w", i, cols[0], ErrNotUpper)
		}
	}

	// Column-wise view of the upper triangle: col k holds rows i <= k.
	colPtr := make([]int, n+1)
	for i := 0; i < n; i++ {
		cols, _ := a.Row(i)
		for _, j := range cols {
			colPtr[j+1]++
		}
	}
	for j := 0; j < n; j++ {
		colPtr[j+1] += colPtr[j]
	}
	colRow := make([]int, a.NNZ())
	colVal := make([]float64, a.NNZ())
	fill := make([]int, n)
	copy(fill, colPtr[:n])
	for i := 0; i < n; i++ {
		cols, vals := a.Row(i)
		for p, j := range cols {
			colRow[fill[j]] = i
			colVal[fill[j]] = vals[p]
			fill[j]++
		}
	}

	parent := etree(n, colPtr, colRow)

	// Factor columns of L = Rᵗ, grown row by row; lRows[j] holds the row
	// indices k > j with L(k,j) != 0, ascending because k only increases.
	lRows := make([][]int32, n)
	lVals := make([][]float64, n)
	diag := make([]float64, n)

	x := make([]float64, n)     // dense accumulator, all-zero between rows
	visited := make([]int, n)   // stamped with k+1 during ereach of row k
	stack := make([]int, n)     // ereach output, topological order
	path := make([]int, n)      // scratch for one etree path

	for k := 0; k < n; k++ {
		// Load column k of A and compute the reach of its row indices.
		top := n
		visited[k] = k + 1
		d := 0.0
		for p := colPtr[k]; p < colPtr[k+1]; p++ {
			i := colRow[p]
			if i == k {
				d = colVal[p]
				continue
			}
			x[i] = colVal[p]
			plen := 0
			for j := i; j != -1 && j < k && visited[j] != k+1; j = parent[j] {
				path[plen] = j
				plen++
				visited[j] = k + 1
			}
			for plen > 0 {
				plen--
				top--
				stack[top] = path[plen]
			}
		}

		// Sparse triangular solve over the reach, leaves first.
		for p := top; p < n; p++ {
			j := stack[p]
			lkj := x[j] / diag[j]
			x[j] = 0
			rows, vals := lRows[j], lVals[j]
			for q, r := range rows {
				x[r] -= vals[q] * lkj
			}
			d -= lkj * lkj
			lRows[j] = append(rows, int32(k))
			lVals[j] = append(vals, lkj)
		}

		if d <= 0 {
			return nil, fmt.Errorf("pivot %d (value %g): %w", k, d, ErrNotPositiveDefinite)
		}
		diag[k] = math.Sqrt(d)
	}

	// Column j of L is row j of R; diagonal first.
	nnz := n
	for j := 0; j < n; j++ {
		nnz += len(lRows[j])
	}
	r := &CSR{
		rows:     n,
		cols:     n,
		rowStart: make([]int, n+1),
		colInd:   make([]int, 0, nnz),
		val:      make([]float64, 0, nnz),
	}
	for j := 0; j < n; j++ {
		r.colInd = append(r.colInd, j)
		r.val = append(r.val, diag[j])
		for q, row := range lRows[j] {
			r.colInd = append(r.colInd, int(row))
			r.val = append(r.val, lVals[j][q])
		}
		r.rowStart[j+1] = len(r.colInd)
	}

	return r, nil
}

// etree computes the elimination tree of a symmetric matrix given the
// column-wise upper triangle, with path compression through ancestors.
func etree(n int, colPtr, colRow []int) []int {
	parent := make([]int, n)
	ancestor := make([]int, n)
	for k := 0; k < n; k++ {
		parent[k] = -1
		ancestor[k] = -1
		for p := colPtr[k]; p < colPtr[k+1]; p++ {
			for j := colRow[p]; j != -1 && j < k; {
				next := ancestor[j]
				ancestor[j] = k
				if next == -1 {
					parent[j] = k
				}
				j = next
			}
		}
	}

	return parent
}
