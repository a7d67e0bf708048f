package manifold

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferSize indicates a caller-provided slice whose length does not
	// match the size contract of the method (x, delta, xPlusDelta or
	// jacobian).
	ErrBufferSize = errors.New("manifold: buffer length mismatch")

	// ErrBadSubset indicates a Subset construction with an out-of-range or
	// repeated constant coordinate index.
	ErrBadSubset = errors.New("manifold: invalid constant coordinate set")
)

// Manifold is the local-parameterization capability consumed by covariance
// estimation. AmbientSize is the raw stored size of the parameter block;
// TangentSize is the (possibly smaller) dimension actually optimized over.
//
// PlusJacobian writes the ambient×tangent Jacobian of Plus(x, ·) at
// delta = 0 into jacobian, row-major. TangentSize may be zero, in which
// case PlusJacobian writes nothing.
type Manifold interface {
	AmbientSize() int
	TangentSize() int

	// Plus computes xPlusDelta = x ⊞ delta.
	// len(x) == len(xPlusDelta) == AmbientSize, len(delta) == TangentSize.
	Plus(x, delta, xPlusDelta []float64) error

	// PlusJacobian writes ∂(x ⊞ delta)/∂delta at delta = 0 into jacobian,
	// row-major with AmbientSize rows and TangentSize columns.
	PlusJacobian(x, jacobian []float64) error
}

// Euclidean is the identity manifold: tangent space equals ambient space
// and Plus is plain vector addition.
type Euclidean struct {
	size int
}

// NewEuclidean returns the trivial manifold of the given ambient size.
func NewEuclidean(size int) *Euclidean {
	return &Euclidean{size: size}
}

func (e *Euclidean) AmbientSize() int { return e.size }

func (e *Euclidean) TangentSize() int { return e.size }

func (e *Euclidean) Plus(x, delta, xPlusDelta []float64) error {
	if len(x) != e.size || len(delta) != e.size || len(xPlusDelta) != e.size {
		return ErrBufferSize
	}
	for i := range x {
		xPlusDelta[i] = x[i] + delta[i]
	}

	return nil
}

func (e *Euclidean) PlusJacobian(x, jacobian []float64) error {
	if len(x) != e.size || len(jacobian) != e.size*e.size {
		return ErrBufferSize
	}
	for i := range jacobian {
		jacobian[i] = 0
	}
	for i := 0; i < e.size; i++ {
		jacobian[i*e.size+i] = 1
	}

	return nil
}

// Subset holds a fixed set of ambient coordinates constant. The tangent
// space is the ambient space with the constant coordinates removed, so
// TangentSize = AmbientSize - len(constant). Holding every coordinate
// constant yields a zero-sized tangent space.
type Subset struct {
	size     int
	constant []bool // constant[i] reports whether ambient coordinate i is held
	tangent  int
}

// NewSubset builds a Subset manifold of the given ambient size holding the
// listed coordinates constant. Indices must be unique and in [0, size).
func NewSubset(size int, constant ...int) (*Subset, error) {
	if size <= 0 {
		return nil, fmt.Errorf("ambient size %d: %w", size, ErrBadSubset)
	}
	held := make([]bool, size)
	for _, c := range constant {
		if c < 0 || c >= size {
			return nil, fmt.Errorf("coordinate %d out of [0,%d): %w", c, size, ErrBadSubset)
		}
		if held[c] {
			return nil, fmt.Errorf("coordinate %d repeated: %w", c, ErrBadSubset)
		}
		held[c] = true
	}

	return &Subset{size: size, constant: held, tangent: size - len(constant)}, nil
}

func (s *Subset) AmbientSize() int { return s.size }

func (s *Subset) TangentSize() int { return s.tangent }

func (s *Subset) Plus(x, delta, xPlusDelta []float64) error {
	if len(x) != s.size || len(delta) != s.tangent || len(xPlusDelta) != s.size {
		return ErrBufferSize
	}
	j := 0
	for i := 0; i < s.size; i++ {
		if s.constant[i] {
			xPlusDelta[i] = x[i]
			continue
		}
		xPlusDelta[i] = x[i] + delta[j]
		j++
	}

	return nil
}

func (s *Subset) PlusJacobian(x, jacobian []float64) error {
	if len(x) != s.size || len(jacobian) != s.size*s.tangent {
		return ErrBufferSize
	}
	for i := range jacobian {
		jacobian[i] = 0
	}
	// Identity with constant columns removed: free ambient row i maps to
	// tangent column j in ascending order.
	j := 0
	for i := 0; i < s.size; i++ {
		if s.constant[i] {
			continue
		}
		jacobian[i*s.tangent+j] = 1
		j++
	}

	return nil
}
