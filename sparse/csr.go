package sparse

import (
	"errors"
	"fmt"
	"sort"

	"github.com/maravelle/lsqcov/parallel"
)

var (
	// ErrBadShape indicates non-positive matrix dimensions.
	ErrBadShape = errors.New("sparse: invalid shape")

	// ErrOutOfRange indicates a row or column index outside the matrix.
	ErrOutOfRange = errors.New("sparse: index out of range")

	// ErrDimensionMismatch indicates operand vectors or matrices whose
	// sizes do not conform.
	ErrDimensionMismatch = errors.New("sparse: dimension mismatch")

	// ErrNotPositiveDefinite is returned by CholeskyUpper when a pivot is
	// not strictly positive; the input is rank deficient or indefinite.
	ErrNotPositiveDefinite = errors.New("sparse: matrix is not positive definite")

	// ErrNotUpper is returned by CholeskyUpper when the input carries an
	// entry below the diagonal; it expects the upper triangle only.
	ErrNotUpper = errors.New("sparse: entry below the diagonal")
)

// Triplet is one (row, col, value) coordinate entry.
type Triplet struct {
	Row, Col int
	Val      float64
}

// CSR is a read-only compressed-sparse-row matrix. Column indices are
// strictly ascending within each row.
type CSR struct {
	rows, cols int
	rowStart   []int // len rows+1
	colInd     []int // len nnz
	val        []float64
}

// NewCSRFromTriplets builds a rows×cols CSR from coordinate entries.
// Duplicate coordinates are merged by summation; explicit zeros are kept.
// The input slice is not modified.
func NewCSRFromTriplets(rows, cols int, ts []Triplet) (*CSR, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%dx%d: %w", rows, cols, ErrBadShape)
	}
	for _, t := range ts {
		if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
			return nil, fmt.Errorf("entry (%d,%d) outside %dx%d: %w", t.Row, t.Col, rows, cols, ErrOutOfRange)
		}
	}

	sorted := make([]Triplet, len(ts))
	copy(sorted, ts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})

	m := &CSR{
		rows:     rows,
		cols:     cols,
		rowStart: make([]int, rows+1),
		colInd:   make([]int, 0, len(sorted)),
		val:      make([]float64, 0, len(sorted)),
	}
	prevRow, prevCol := -1, -1
	for _, t := range sorted {
		if t.Row == prevRow && t.Col == prevCol {
			m.val[len(m.val)-1] += t.Val // merge duplicate coordinate
			continue
		}
		m.colInd = append(m.colInd, t.Col)
		m.val = append(m.val, t.Val)
		m.rowStart[t.Row+1]++ // per-row count, prefix-summed below
		prevRow, prevCol = t.Row, t.Col
	}
	for r := 0; r < rows; r++ {
		m.rowStart[r+1] += m.rowStart[r]
	}

	return m, nil
}

// NumRows reports the row count.
func (m *CSR) NumRows() int { return m.rows }

// NumCols reports the column count.
func (m *CSR) NumCols() int { return m.cols }

// NNZ reports the stored entry count.
func (m *CSR) NNZ() int { return len(m.colInd) }

// RowStarts returns the row offset array (len NumRows+1). Shared; callers
// must not mutate.
func (m *CSR) RowStarts() []int { return m.rowStart }

// ColIndices returns the column index array. Shared; callers must not
// mutate.
func (m *CSR) ColIndices() []int { return m.colInd }

// Row returns the column indices and values of row i as shared subslices.
func (m *CSR) Row(i int) (cols []int, vals []float64) {
	lo, hi := m.rowStart[i], m.rowStart[i+1]
	return m.colInd[lo:hi], m.val[lo:hi]
}

// At returns the entry at (i, j), zero when the coordinate is not stored.
func (m *CSR) At(i, j int) (float64, error) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		return 0, fmt.Errorf("(%d,%d) of %dx%d: %w", i, j, m.rows, m.cols, ErrOutOfRange)
	}
	cols, vals := m.Row(i)
	k := sort.SearchInts(cols, j)
	if k < len(cols) && cols[k] == j {
		return vals[k], nil
	}

	return 0, nil
}

// Diagonal returns a fresh slice with the main-diagonal entries,
// length min(rows, cols).
func (m *CSR) Diagonal() []float64 {
	n := m.rows
	if m.cols < n {
		n = m.cols
	}
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		v, _ := m.At(i, i)
		d[i] = v
	}

	return d
}

// RightMultiplyAndAccumulate computes y += A·x.
func (m *CSR) RightMultiplyAndAccumulate(x, y []float64) error {
	if len(x) != m.cols || len(y) != m.rows {
		return fmt.Errorf("x %d, y %d vs %dx%d: %w", len(x), len(y), m.rows, m.cols, ErrDimensionMismatch)
	}
	m.mulRange(x, y, 0, m.rows)

	return nil
}

// RightMultiplyAndAccumulateParallel computes y += A·x with rows
// partitioned across workers. Each output row is owned by exactly one
// worker, so the result is identical to the serial multiply.
func (m *CSR) RightMultiplyAndAccumulateParallel(x, y []float64, workers int) error {
	if len(x) != m.cols || len(y) != m.rows {
		return fmt.Errorf("x %d, y %d vs %dx%d: %w", len(x), len(y), m.rows, m.cols, ErrDimensionMismatch)
	}

	return parallel.For(m.rows, workers, func(lo, hi int) error {
		m.mulRange(x, y, lo, hi)
		return nil
	})
}

func (m *CSR) mulRange(x, y []float64, lo, hi int) {
	for i := lo; i < hi; i++ {
		sum := 0.0
		for p := m.rowStart[i]; p < m.rowStart[i+1]; p++ {
			sum += m.val[p] * x[m.colInd[p]]
		}
		y[i] += sum
	}
}
