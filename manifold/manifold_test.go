package manifold_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maravelle/lsqcov/manifold"
)

// TestEuclidean_PlusAndJacobian verifies the identity manifold: plain
// vector addition and an identity PlusJacobian.
func TestEuclidean_PlusAndJacobian(t *testing.T) {
	e := manifold.NewEuclidean(3)
	assert.Equal(t, 3, e.AmbientSize())
	assert.Equal(t, 3, e.TangentSize())

	x := []float64{1, 2, 3}
	delta := []float64{0.5, -1, 2}
	out := make([]float64, 3)
	require.NoError(t, e.Plus(x, delta, out))
	assert.Equal(t, []float64{1.5, 1, 5}, out)

	jac := make([]float64, 9)
	require.NoError(t, e.PlusJacobian(x, jac))
	assert.Equal(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, jac)
}

// TestEuclidean_BufferSize checks the size contract on both methods.
func TestEuclidean_BufferSize(t *testing.T) {
	e := manifold.NewEuclidean(2)
	assert.ErrorIs(t, e.Plus([]float64{1}, []float64{1, 2}, make([]float64, 2)), manifold.ErrBufferSize)
	assert.ErrorIs(t, e.PlusJacobian([]float64{1, 2}, make([]float64, 3)), manifold.ErrBufferSize)
}

// TestSubset_PlusAndJacobian holds coordinate 2 of a size-3 block constant
// and checks that the tangent space is the remaining two coordinates.
func TestSubset_PlusAndJacobian(t *testing.T) {
	s, err := manifold.NewSubset(3, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, s.AmbientSize())
	assert.Equal(t, 2, s.TangentSize())

	x := []float64{2, 2, 2}
	out := make([]float64, 3)
	require.NoError(t, s.Plus(x, []float64{1, -1}, out))
	assert.Equal(t, []float64{3, 1, 2}, out)

	jac := make([]float64, 3*2)
	require.NoError(t, s.PlusJacobian(x, jac))
	assert.Equal(t, []float64{
		1, 0,
		0, 1,
		0, 0,
	}, jac)
}

// TestSubset_ZeroTangent builds a fully-constant subset: the tangent space
// is empty and PlusJacobian writes nothing.
func TestSubset_ZeroTangent(t *testing.T) {
	s, err := manifold.NewSubset(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, s.TangentSize())

	x := []float64{7}
	out := make([]float64, 1)
	require.NoError(t, s.Plus(x, nil, out))
	assert.Equal(t, []float64{7}, out)
	require.NoError(t, s.PlusJacobian(x, nil))
}

// TestSubset_Invalid rejects out-of-range and repeated constant indices.
func TestSubset_Invalid(t *testing.T) {
	_, err := manifold.NewSubset(3, 3)
	assert.ErrorIs(t, err, manifold.ErrBadSubset)

	_, err = manifold.NewSubset(3, 1, 1)
	assert.ErrorIs(t, err, manifold.ErrBadSubset)

	_, err = manifold.NewSubset(0)
	assert.ErrorIs(t, err, manifold.ErrBadSubset)
}
