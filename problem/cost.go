package problem

import "fmt"

// FixedJacobianCost is a linear residual block: its Jacobians are constant
// matrices supplied at construction and its residuals are zero. This is the
// natural cost function for covariance estimation at a known optimum, where
// only the Jacobian values matter, and it doubles as a convenient fixture
// for synthetic problems.
type FixedJacobianCost struct {
	numResiduals int
	sizes        []int
	jacobians    [][]float64 // one row-major numResiduals×sizes[i] matrix per block
}

// NewFixedJacobianCost builds a FixedJacobianCost over one or more
// parameter blocks. Each jacobians[i] is row-major with numResiduals rows;
// the block size is inferred from its length.
func NewFixedJacobianCost(numResiduals int, jacobians ...[]float64) (*FixedJacobianCost, error) {
	if numResiduals <= 0 {
		return nil, fmt.Errorf("numResiduals %d: %w", numResiduals, ErrSizeMismatch)
	}
	if len(jacobians) == 0 {
		return nil, fmt.Errorf("no parameter blocks: %w", ErrSizeMismatch)
	}
	c := &FixedJacobianCost{
		numResiduals: numResiduals,
		sizes:        make([]int, len(jacobians)),
		jacobians:    make([][]float64, len(jacobians)),
	}
	for i, j := range jacobians {
		if len(j) == 0 || len(j)%numResiduals != 0 {
			return nil, fmt.Errorf("jacobian %d length %d not divisible by %d residuals: %w",
				i, len(j), numResiduals, ErrSizeMismatch)
		}
		c.sizes[i] = len(j) / numResiduals
		own := make([]float64, len(j))
		copy(own, j)
		c.jacobians[i] = own
	}

	return c, nil
}

func (c *FixedJacobianCost) NumResiduals() int { return c.numResiduals }

func (c *FixedJacobianCost) ParameterBlockSizes() []int { return c.sizes }

// Evaluate writes zero residuals and copies the stored Jacobians.
func (c *FixedJacobianCost) Evaluate(params [][]float64, residuals []float64, jacobians [][]float64) error {
	if len(params) != len(c.sizes) {
		return fmt.Errorf("got %d parameter blocks, want %d: %w", len(params), len(c.sizes), ErrSizeMismatch)
	}
	for i := range residuals {
		residuals[i] = 0
	}
	if jacobians == nil {
		return nil
	}
	if len(jacobians) != len(c.jacobians) {
		return fmt.Errorf("got %d jacobian buffers, want %d: %w", len(jacobians), len(c.jacobians), ErrSizeMismatch)
	}
	for i, dst := range jacobians {
		if dst == nil {
			continue
		}
		if len(dst) != len(c.jacobians[i]) {
			return fmt.Errorf("jacobian %d buffer length %d, want %d: %w",
				i, len(dst), len(c.jacobians[i]), ErrSizeMismatch)
		}
		copy(dst, c.jacobians[i])
	}

	return nil
}
