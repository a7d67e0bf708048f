package problem

import (
	"errors"
	"fmt"

	"github.com/maravelle/lsqcov/manifold"
)

var (
	// ErrUnknownBlock indicates a BlockID outside the arena.
	ErrUnknownBlock = errors.New("problem: unknown parameter block handle")

	// ErrSizeMismatch indicates a size disagreement between a parameter
	// block and a cost function or manifold bound to it.
	ErrSizeMismatch = errors.New("problem: size mismatch")

	// ErrEmptyBlock indicates an attempt to add a zero-length parameter block.
	ErrEmptyBlock = errors.New("problem: parameter block must be non-empty")

	// ErrRepeatedBlock indicates a residual block listing the same parameter
	// block more than once.
	ErrRepeatedBlock = errors.New("problem: parameter block repeated within a residual block")
)

// BlockID is a stable handle into the parameter-block arena. Handles are
// assigned in insertion order and never reused or renumbered.
type BlockID int

// CostFunction evaluates residuals and Jacobians for one residual block.
//
// Evaluate receives one parameter slice per dependent block (in the order
// the block was added), writes NumResiduals residual values, and, when
// jacobians is non-nil, writes one row-major NumResiduals×size Jacobian per
// block. jacobians[i] may individually be nil when that block's Jacobian is
// not needed.
type CostFunction interface {
	NumResiduals() int
	ParameterBlockSizes() []int
	Evaluate(params [][]float64, residuals []float64, jacobians [][]float64) error
}

// ResidualBlock is one evaluated term of the objective: a cost function
// plus the handles of the parameter blocks it depends on.
type ResidualBlock struct {
	Cost   CostFunction
	Blocks []BlockID
}

type paramBlock struct {
	values   []float64
	mani     manifold.Manifold
	constant bool
	refs     int // number of residual blocks referencing this block
}

// Problem is the arena of parameter blocks and the list of residual blocks.
// It is not safe for concurrent mutation; covariance estimation reads it
// concurrently only after construction is complete.
type Problem struct {
	blocks    []paramBlock
	residuals []ResidualBlock
	numRes    int // total residual count across blocks
}

// New returns an empty problem.
func New() *Problem { return &Problem{} }

// AddParameterBlock registers values as a new parameter block and returns
// its handle. The arena aliases the caller's slice; it does not copy.
func (p *Problem) AddParameterBlock(values []float64) (BlockID, error) {
	if len(values) == 0 {
		return -1, ErrEmptyBlock
	}
	p.blocks = append(p.blocks, paramBlock{values: values})

	return BlockID(len(p.blocks) - 1), nil
}

// SetConstant marks the block as held fixed: it contributes no Jacobian
// columns and every covariance entry touching it is zero by definition.
func (p *Problem) SetConstant(id BlockID) error {
	if !p.valid(id) {
		return fmt.Errorf("block %d: %w", id, ErrUnknownBlock)
	}
	p.blocks[id].constant = true

	return nil
}

// SetManifold attaches a local parameterization to the block. The
// manifold's ambient size must match the block size.
func (p *Problem) SetManifold(id BlockID, m manifold.Manifold) error {
	if !p.valid(id) {
		return fmt.Errorf("block %d: %w", id, ErrUnknownBlock)
	}
	if m.AmbientSize() != len(p.blocks[id].values) {
		return fmt.Errorf("manifold ambient %d vs block size %d: %w",
			m.AmbientSize(), len(p.blocks[id].values), ErrSizeMismatch)
	}
	p.blocks[id].mani = m

	return nil
}

// AddResidualBlock registers cost over the given parameter blocks. Block
// count and sizes must match cost.ParameterBlockSizes exactly, and a block
// may appear at most once per residual block.
func (p *Problem) AddResidualBlock(cost CostFunction, ids ...BlockID) error {
	sizes := cost.ParameterBlockSizes()
	if len(sizes) != len(ids) {
		return fmt.Errorf("cost expects %d blocks, got %d: %w", len(sizes), len(ids), ErrSizeMismatch)
	}
	for i, id := range ids {
		if !p.valid(id) {
			return fmt.Errorf("block %d: %w", id, ErrUnknownBlock)
		}
		if sizes[i] != len(p.blocks[id].values) {
			return fmt.Errorf("block %d size %d vs cost size %d: %w",
				id, len(p.blocks[id].values), sizes[i], ErrSizeMismatch)
		}
		for j := 0; j < i; j++ {
			if ids[j] == id {
				return fmt.Errorf("block %d at positions %d and %d: %w", id, j, i, ErrRepeatedBlock)
			}
		}
	}
	for _, id := range ids {
		p.blocks[id].refs++
	}
	own := make([]BlockID, len(ids))
	copy(own, ids)
	p.residuals = append(p.residuals, ResidualBlock{Cost: cost, Blocks: own})
	p.numRes += cost.NumResiduals()

	return nil
}

// NumParameterBlocks reports the arena size.
func (p *Problem) NumParameterBlocks() int { return len(p.blocks) }

// NumResiduals reports the total residual count across all residual blocks.
func (p *Problem) NumResiduals() int { return p.numRes }

// ResidualBlocks returns the residual blocks in insertion order. The slice
// is shared; callers must not mutate it.
func (p *Problem) ResidualBlocks() []ResidualBlock { return p.residuals }

// Size reports the ambient size of the block.
func (p *Problem) Size(id BlockID) (int, error) {
	if !p.valid(id) {
		return 0, fmt.Errorf("block %d: %w", id, ErrUnknownBlock)
	}

	return len(p.blocks[id].values), nil
}

// TangentSize reports the tangent size: the manifold's tangent size when
// one is attached, the ambient size otherwise.
func (p *Problem) TangentSize(id BlockID) (int, error) {
	if !p.valid(id) {
		return 0, fmt.Errorf("block %d: %w", id, ErrUnknownBlock)
	}
	if m := p.blocks[id].mani; m != nil {
		return m.TangentSize(), nil
	}

	return len(p.blocks[id].values), nil
}

// IsConstant reports whether the block was marked constant.
func (p *Problem) IsConstant(id BlockID) (bool, error) {
	if !p.valid(id) {
		return false, fmt.Errorf("block %d: %w", id, ErrUnknownBlock)
	}

	return p.blocks[id].constant, nil
}

// IsOrphan reports whether no residual block references the block. Orphan
// blocks carry no Jacobian columns, like constant blocks.
func (p *Problem) IsOrphan(id BlockID) (bool, error) {
	if !p.valid(id) {
		return false, fmt.Errorf("block %d: %w", id, ErrUnknownBlock)
	}

	return p.blocks[id].refs == 0, nil
}

// ManifoldOf returns the attached manifold, or nil when the block is
// plainly Euclidean.
func (p *Problem) ManifoldOf(id BlockID) (manifold.Manifold, error) {
	if !p.valid(id) {
		return nil, fmt.Errorf("block %d: %w", id, ErrUnknownBlock)
	}

	return p.blocks[id].mani, nil
}

// Values returns the parameter slice of the block. The slice aliases the
// caller's storage passed to AddParameterBlock.
func (p *Problem) Values(id BlockID) ([]float64, error) {
	if !p.valid(id) {
		return nil, fmt.Errorf("block %d: %w", id, ErrUnknownBlock)
	}

	return p.blocks[id].values, nil
}

func (p *Problem) valid(id BlockID) bool {
	return id >= 0 && int(id) < len(p.blocks)
}
