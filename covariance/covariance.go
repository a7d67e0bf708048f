package covariance

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/maravelle/lsqcov/parallel"
	"github.com/maravelle/lsqcov/problem"
)

// Covariance estimates blocks of (JᵗJ)⁻¹ for a problem at its solution.
// Construct with New, call Compute (or ComputeForBlocks) once per
// estimation, then query. A Covariance must not be shared across
// goroutines during Compute; queries after a successful Compute are
// read-only and safe to run concurrently.
type Covariance struct {
	opts Options

	prob *problem.Problem
	pl   *plan
	vals []float64 // pattern values, aligned with pl.cols

	lift     map[problem.BlockID]*mat.Dense // PlusJacobian per manifold block
	computed bool
}

// New returns a Covariance configured by opts. Option validation happens
// in Compute.
func New(opts Options) *Covariance { return &Covariance{opts: opts} }

// Compute evaluates the covariance of every requested pair. On failure the
// instance reverts to the not-computed state and every query returns
// ErrNotComputed.
//
// The problem must be fully constructed and is only read. Parameter values
// are read at their current state, which is assumed to be the optimum.
func (c *Covariance) Compute(pairs []BlockPair, p *problem.Problem) error {
	c.computed = false

	if err := c.opts.validate(); err != nil {
		return err
	}
	pl, err := planSparsity(pairs, p)
	if err != nil {
		return err
	}
	if p.NumResiduals() == 0 || pl.numCols == 0 {
		return fmt.Errorf("%d residuals, %d free columns: %w",
			p.NumResiduals(), pl.numCols, ErrEmptyJacobian)
	}

	jacs, err := evaluateJacobians(p, pl, c.opts.Workers)
	if err != nil {
		return err
	}

	vals := make([]float64, len(pl.cols))
	switch c.opts.Algorithm {
	case DenseSVD:
		err = denseSVDCovariance(jacs, p.NumResiduals(), pl, c.opts, vals)
	case SparseQR:
		err = sparseQRCovariance(jacs, p.NumResiduals(), pl, c.opts, vals)
	}
	if err != nil {
		return err
	}

	lift, err := liftJacobians(p, pl)
	if err != nil {
		return err
	}

	c.prob, c.pl, c.vals, c.lift = p, pl, vals, lift
	c.computed = true

	return nil
}

// ComputeForBlocks requests the covariance of every pair drawn from ids,
// self pairs included. Repeated handles are rejected with the positions of
// each conflict.
func (c *Covariance) ComputeForBlocks(ids []problem.BlockID, p *problem.Problem) error {
	c.computed = false

	first := make(map[problem.BlockID]int, len(ids))
	var conflicts []string
	for i, id := range ids {
		if j, ok := first[id]; ok {
			conflicts = append(conflicts, fmt.Sprintf("(%d, %d)", j, i))
			continue
		}
		first[id] = i
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: indices %s", ErrDuplicatePair, strings.Join(conflicts, " and "))
	}

	pairs := make([]BlockPair, 0, len(ids)*(len(ids)+1)/2)
	for i := range ids {
		for j := i; j < len(ids); j++ {
			pairs = append(pairs, BlockPair{ids[i], ids[j]})
		}
	}

	return c.Compute(pairs, p)
}

// GetCovarianceBlockInTangentSpace writes the tangent-space covariance of
// (a, b) into dst, row-major with TangentSize(a) rows and TangentSize(b)
// columns. Blocks holding no Jacobian columns (constant, orphan) yield
// zeros; a zero tangent size on either side makes the block empty and dst
// is left untouched.
func (c *Covariance) GetCovarianceBlockInTangentSpace(a, b problem.BlockID, dst []float64) error {
	ta, tb, err := c.queryDims(a, b, true)
	if err != nil {
		return err
	}
	if len(dst) < ta*tb {
		return fmt.Errorf("need %d, got %d: %w", ta*tb, len(dst), ErrBufferSize)
	}
	c.tangentBlock(a, b, dst)

	return nil
}

// GetCovarianceBlock writes the ambient-space covariance of (a, b) into
// dst, row-major with Size(a) rows and Size(b) columns. Blocks with
// manifolds are lifted through their PlusJacobian; blocks holding no
// Jacobian columns yield zeros.
func (c *Covariance) GetCovarianceBlock(a, b problem.BlockID, dst []float64) error {
	sa, sb, err := c.queryDims(a, b, false)
	if err != nil {
		return err
	}
	if len(dst) < sa*sb {
		return fmt.Errorf("need %d, got %d: %w", sa*sb, len(dst), ErrBufferSize)
	}
	c.ambientBlock(a, b, sa, sb, dst)

	return nil
}

// GetCovarianceMatrix assembles the dense ambient-space covariance of the
// listed blocks into dst, row-major and square of side ΣSize(ids[i]).
// Every pair drawn from ids must have been requested.
func (c *Covariance) GetCovarianceMatrix(ids []problem.BlockID, dst []float64) error {
	return c.assemble(ids, dst, false)
}

// GetCovarianceMatrixInTangentSpace assembles the dense tangent-space
// covariance of the listed blocks into dst, row-major and square of side
// ΣTangentSize(ids[i]). Every pair drawn from ids must have been requested.
func (c *Covariance) GetCovarianceMatrixInTangentSpace(ids []problem.BlockID, dst []float64) error {
	return c.assemble(ids, dst, true)
}

// queryDims runs the shared query validation and reports the output block
// dimensions, tangent or ambient.
func (c *Covariance) queryDims(a, b problem.BlockID, tangent bool) (int, int, error) {
	if !c.computed {
		return 0, 0, ErrNotComputed
	}
	if err := checkBlock(c.prob, a); err != nil {
		return 0, 0, err
	}
	if err := checkBlock(c.prob, b); err != nil {
		return 0, 0, err
	}
	if _, ok := c.pl.requested[keyOf(BlockPair{a, b})]; !ok {
		return 0, 0, fmt.Errorf("blocks %d and %d: %w", a, b, ErrPairNotRequested)
	}

	da, db := 0, 0
	if tangent {
		da, _ = c.prob.TangentSize(a)
		db, _ = c.prob.TangentSize(b)
	} else {
		da, _ = c.prob.Size(a)
		db, _ = c.prob.Size(b)
	}

	return da, db, nil
}

// tangentBlock writes the stored tangent-space block for (a, b), handling
// orientation and zero-column pairs. dst must hold tan(a)·tan(b) values.
func (c *Covariance) tangentBlock(a, b problem.BlockID, dst []float64) {
	row, off, rows, cols, transposed, ok := c.pl.locate(a, b)
	if !ok {
		ta, _ := c.prob.TangentSize(a)
		tb, _ := c.prob.TangentSize(b)
		for i := 0; i < ta*tb; i++ {
			dst[i] = 0
		}
		return
	}
	for r := 0; r < rows; r++ {
		base := c.pl.rowStart[row+r] + off
		for k := 0; k < cols; k++ {
			if transposed {
				// Stored orientation is (b, a); (JᵗJ)⁻¹ is symmetric.
				dst[k*rows+r] = c.vals[base+k]
			} else {
				dst[r*cols+k] = c.vals[base+k]
			}
		}
	}
}

// ambientBlock lifts the tangent block of (a, b) through the blocks'
// PlusJacobians into dst (sa×sb row-major). Zero-column pairs, including
// zero tangent sizes, yield ambient zeros.
func (c *Covariance) ambientBlock(a, b problem.BlockID, sa, sb int, dst []float64) {
	if c.pl.ranges[a].size() == 0 || c.pl.ranges[b].size() == 0 {
		for i := 0; i < sa*sb; i++ {
			dst[i] = 0
		}
		return
	}

	ta, _ := c.prob.TangentSize(a)
	tb, _ := c.prob.TangentSize(b)
	tan := make([]float64, ta*tb)
	c.tangentBlock(a, b, tan)

	la, lb := c.lift[a], c.lift[b]
	if la == nil && lb == nil {
		copy(dst[:sa*sb], tan)
		return
	}

	block := mat.NewDense(ta, tb, tan)
	var lifted mat.Dense
	switch {
	case la != nil && lb != nil:
		var tmp mat.Dense
		tmp.Mul(la, block)
		lifted.Mul(&tmp, lb.T())
	case la != nil:
		lifted.Mul(la, block)
	default:
		lifted.Mul(block, lb.T())
	}
	for i := 0; i < sa; i++ {
		for j := 0; j < sb; j++ {
			dst[i*sb+j] = lifted.At(i, j)
		}
	}
}

func (c *Covariance) assemble(ids []problem.BlockID, dst []float64, tangent bool) error {
	if !c.computed {
		return ErrNotComputed
	}

	offsets := make([]int, len(ids)+1)
	for i, id := range ids {
		if err := checkBlock(c.prob, id); err != nil {
			return err
		}
		var d int
		if tangent {
			d, _ = c.prob.TangentSize(id)
		} else {
			d, _ = c.prob.Size(id)
		}
		offsets[i+1] = offsets[i] + d
	}
	total := offsets[len(ids)]
	if len(dst) < total*total {
		return fmt.Errorf("need %d, got %d: %w", total*total, len(dst), ErrBufferSize)
	}

	block := make([]float64, 0)
	for i, a := range ids {
		for j, b := range ids {
			da, db, err := c.queryDims(a, b, tangent)
			if err != nil {
				return err
			}
			if cap(block) < da*db {
				block = make([]float64, da*db)
			}
			block = block[:da*db]
			if tangent {
				c.tangentBlock(a, b, block)
			} else {
				c.ambientBlock(a, b, da, db, block)
			}
			for r := 0; r < da; r++ {
				copy(dst[(offsets[i]+r)*total+offsets[j]:], block[r*db:(r+1)*db])
			}
		}
	}

	return nil
}

// jacTerm is one parameter block's slice of a residual block Jacobian,
// already projected into tangent space.
type jacTerm struct {
	begin int       // first global tangent column
	tan   int       // tangent size
	vals  []float64 // numRows×tan, row-major
}

// blockJacobian is one residual block's evaluated Jacobian, terms in
// ascending column order, zero-column blocks omitted.
type blockJacobian struct {
	rowBegin int
	numRows  int
	terms    []jacTerm
}

// evaluateJacobians evaluates every residual block at the current
// parameter values and projects each per-block Jacobian into tangent space
// through the block's PlusJacobian. Residual blocks are independent, so
// evaluation is parallel; each worker writes only its own output slots.
func evaluateJacobians(p *problem.Problem, pl *plan, workers int) ([]blockJacobian, error) {
	rbs := p.ResidualBlocks()
	out := make([]blockJacobian, len(rbs))
	offsets := make([]int, len(rbs))
	row := 0
	for i, rb := range rbs {
		offsets[i] = row
		row += rb.Cost.NumResiduals()
	}

	err := parallel.For(len(rbs), workers, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			bj, err := evaluateResidualBlock(p, pl, rbs[i], offsets[i])
			if err != nil {
				return fmt.Errorf("residual block %d: %w", i, err)
			}
			out[i] = bj
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func evaluateResidualBlock(p *problem.Problem, pl *plan, rb problem.ResidualBlock, rowBegin int) (blockJacobian, error) {
	numRows := rb.Cost.NumResiduals()
	params := make([][]float64, len(rb.Blocks))
	jacs := make([][]float64, len(rb.Blocks))
	for i, id := range rb.Blocks {
		params[i], _ = p.Values(id)
		if pl.ranges[id].size() == 0 {
			continue // constant block: Jacobian not needed
		}
		jacs[i] = make([]float64, numRows*len(params[i]))
	}

	residuals := make([]float64, numRows)
	if err := rb.Cost.Evaluate(params, residuals, jacs); err != nil {
		return blockJacobian{}, err
	}

	bj := blockJacobian{rowBegin: rowBegin, numRows: numRows}
	for i, id := range rb.Blocks {
		if jacs[i] == nil {
			continue
		}
		rng := pl.ranges[id]
		term := jacTerm{begin: rng.begin, tan: rng.size()}
		m, _ := p.ManifoldOf(id)
		if m == nil {
			term.vals = jacs[i]
		} else {
			// Project ambient columns onto the tangent space.
			amb := m.AmbientSize()
			pj := make([]float64, amb*term.tan)
			if err := m.PlusJacobian(params[i], pj); err != nil {
				return blockJacobian{}, err
			}
			var t mat.Dense
			t.Mul(mat.NewDense(numRows, amb, jacs[i]), mat.NewDense(amb, term.tan, pj))
			term.vals = make([]float64, numRows*term.tan)
			for r := 0; r < numRows; r++ {
				copy(term.vals[r*term.tan:(r+1)*term.tan], t.RawRowView(r))
			}
		}
		bj.terms = append(bj.terms, term)
	}
	sort.Slice(bj.terms, func(a, b int) bool { return bj.terms[a].begin < bj.terms[b].begin })

	return bj, nil
}

// liftJacobians captures the PlusJacobian of every manifold block holding
// Jacobian columns, for lifting tangent blocks into ambient space.
func liftJacobians(p *problem.Problem, pl *plan) (map[problem.BlockID]*mat.Dense, error) {
	out := make(map[problem.BlockID]*mat.Dense)
	for id := problem.BlockID(0); int(id) < p.NumParameterBlocks(); id++ {
		m, _ := p.ManifoldOf(id)
		if m == nil || pl.ranges[id].size() == 0 {
			continue
		}
		x, _ := p.Values(id)
		j := make([]float64, m.AmbientSize()*m.TangentSize())
		if err := m.PlusJacobian(x, j); err != nil {
			return nil, fmt.Errorf("block %d: %w", id, err)
		}
		out[id] = mat.NewDense(m.AmbientSize(), m.TangentSize(), j)
	}

	return out, nil
}
