package covariance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maravelle/lsqcov/problem"
)

// BlockPair names one requested covariance block. Order does not matter:
// cov(A, B) and cov(B, A) are the same request, and queries for either
// orientation succeed after Compute.
type BlockPair struct {
	A, B problem.BlockID
}

// pairKey is the orientation-free identity of a pair.
type pairKey struct {
	lo, hi problem.BlockID
}

func keyOf(p BlockPair) pairKey {
	if p.A <= p.B {
		return pairKey{p.A, p.B}
	}

	return pairKey{p.B, p.A}
}

// colRange is one block's span of tangent columns. Zero-size ranges
// (begin == end) mark blocks that contribute no Jacobian columns.
type colRange struct {
	begin, end int
}

func (r colRange) size() int { return r.end - r.begin }

// plan is the frozen sparsity layout shared by the numeric core and the
// queries. Pattern rows cover the tangent columns of every block that acts
// as the row side of at least one nonzero pair; all tangent rows of one
// block carry an identical column layout, so a (row, col) lookup resolves
// with one binary search on the block's first row.
type plan struct {
	ranges  []colRange // per BlockID, insertion order
	numCols int

	requested map[pairKey]struct{}

	rowStart []int // pattern CRS offsets, len numPatternRows+1
	cols     []int // pattern column indices, ascending per row
	rowCol   []int // global tangent column of each pattern row
	blockRow map[problem.BlockID]int
}

// planSparsity validates the request, assigns tangent column bounds in
// block insertion order, and lays out the compressed-row pattern holding
// every requested covariance entry.
func planSparsity(pairs []BlockPair, p *problem.Problem) (*plan, error) {
	if err := rejectDuplicates(pairs); err != nil {
		return nil, err
	}

	n := p.NumParameterBlocks()
	pl := &plan{
		ranges:    make([]colRange, n),
		requested: make(map[pairKey]struct{}, len(pairs)),
		blockRow:  make(map[problem.BlockID]int),
	}

	// Column bounds: one ascending walk over the arena. Constant blocks,
	// orphan blocks and zero-tangent manifolds occupy zero columns.
	cursor := 0
	for id := problem.BlockID(0); int(id) < n; id++ {
		pl.ranges[id] = colRange{cursor, cursor}
		if constant, _ := p.IsConstant(id); constant {
			continue
		}
		if orphan, _ := p.IsOrphan(id); orphan {
			continue
		}
		tan, _ := p.TangentSize(id)
		pl.ranges[id] = colRange{cursor, cursor + tan}
		cursor += tan
	}
	pl.numCols = cursor

	// Partner ranges per row block. The pair is oriented so the lower
	// column range owns the rows; self pairs are legal.
	partners := make(map[problem.BlockID][]colRange)
	for _, pr := range pairs {
		if err := checkBlock(p, pr.A); err != nil {
			return nil, err
		}
		if err := checkBlock(p, pr.B); err != nil {
			return nil, err
		}
		k := keyOf(pr)
		if _, ok := pl.requested[k]; ok {
			continue // both orientations requested; one stored block
		}
		pl.requested[k] = struct{}{}
		ra, rb := pl.ranges[k.lo], pl.ranges[k.hi]
		if ra.size() == 0 || rb.size() == 0 {
			continue // served as zeros, never stored
		}
		partners[k.lo] = append(partners[k.lo], rb)
	}

	// Pattern rows in block insertion order; partner columns ascending.
	pl.rowStart = append(pl.rowStart, 0)
	for id := problem.BlockID(0); int(id) < n; id++ {
		spans := partners[id]
		if len(spans) == 0 {
			continue
		}
		sort.Slice(spans, func(i, j int) bool { return spans[i].begin < spans[j].begin })

		rowCols := make([]int, 0)
		for _, s := range spans {
			for c := s.begin; c < s.end; c++ {
				rowCols = append(rowCols, c)
			}
		}
		pl.blockRow[id] = len(pl.rowStart) - 1
		for r := 0; r < pl.ranges[id].size(); r++ {
			pl.cols = append(pl.cols, rowCols...)
			pl.rowStart = append(pl.rowStart, len(pl.cols))
			pl.rowCol = append(pl.rowCol, pl.ranges[id].begin+r)
		}
	}

	return pl, nil
}

func checkBlock(p *problem.Problem, id problem.BlockID) error {
	_, err := p.Size(id)

	return err
}

// rejectDuplicates scans the request for repeated pairs and reports every
// conflict by its positions in the request list. Orientation matters here:
// requesting both (a, b) and (b, a) is legal and stores one block.
func rejectDuplicates(pairs []BlockPair) error {
	first := make(map[BlockPair]int, len(pairs))
	var conflicts []string
	for i, pr := range pairs {
		k := pr
		if j, ok := first[k]; ok {
			conflicts = append(conflicts, fmt.Sprintf("(%d, %d)", j, i))
			continue
		}
		first[k] = i
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: indices %s", ErrDuplicatePair, strings.Join(conflicts, " and "))
	}

	return nil
}

// numPatternRows reports the row count of the pattern.
func (pl *plan) numPatternRows() int { return len(pl.rowStart) - 1 }

// locate resolves the storage of pair (a, b) in the pattern: the first
// pattern row of the row block, the per-row value offset of the column
// block, and the two range sizes. transposed reports that the stored
// orientation is (b, a). ok is false for zero-size pairs, which are valid
// requests served as zeros.
func (pl *plan) locate(a, b problem.BlockID) (row, off, rows, cols int, transposed, ok bool) {
	k := keyOf(BlockPair{a, b})
	transposed = a != k.lo
	ra, rb := pl.ranges[k.lo], pl.ranges[k.hi]
	if ra.size() == 0 || rb.size() == 0 {
		return 0, 0, 0, 0, transposed, false
	}

	row = pl.blockRow[k.lo]
	lo, hi := pl.rowStart[row], pl.rowStart[row+1]
	rowCols := pl.cols[lo:hi]
	off = sort.SearchInts(rowCols, rb.begin)

	return row, off, ra.size(), rb.size(), transposed, true
}
