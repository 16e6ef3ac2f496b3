package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestNormalize_UnitRows(t *testing.T) {
	x := blobs(11, 10, 5, []float64{1, -2, 3, 0.5})
	out, err := Normalize(x)
	require.NoError(t, err)

	n, _ := out.Dims()
	for i := 0; i < n; i++ {
		assert.InDelta(t, 1.0, floats.Norm(out.RawRowView(i), 2), 1e-12)
	}
	// input is untouched
	assert.NotEqual(t, 1.0, floats.Norm(x.RawRowView(0), 2))
}

func TestNormalize_Idempotent(t *testing.T) {
	x := blobs(12, 8, 3, []float64{4, 4, -1})
	once, err := Normalize(x)
	require.NoError(t, err)
	twice, err := Normalize(once)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(once, twice, 1e-12))
}

func TestNormalize_ZeroRowStaysZero(t *testing.T) {
	x := mat.NewDense(2, 3, []float64{
		0, 0, 0,
		2, 0, 0,
	})
	out, err := Normalize(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, out.RawRowView(0))
	assert.Equal(t, []float64{1, 0, 0}, out.RawRowView(1))
}

func TestNormalize_TinyRowIsScaledUp(t *testing.T) {
	x := mat.NewDense(1, 2, []float64{3e-9, 4e-9})
	out, err := Normalize(x)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, out.At(0, 0), 1e-9)
	assert.InDelta(t, 0.8, out.At(0, 1), 1e-9)
}

func TestNormalize_RejectsEmpty(t *testing.T) {
	_, err := Normalize(nil)
	assert.ErrorIs(t, err, ErrInputShape)

	_, err = Normalize(&mat.Dense{})
	assert.ErrorIs(t, err, ErrInputShape)
}
