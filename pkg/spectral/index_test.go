package spectral

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"waterseg/internal/models"
)

func TestNormalizedDifference(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{0.8, 0.2, 0, 1})
	b := mat.NewDense(2, 2, []float64{0.2, 0.6, 0, 0})

	index, err := NormalizedDifference(a, b)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, index.At(0, 0), 1e-12)
	assert.InDelta(t, -0.5, index.At(0, 1), 1e-12)
	assert.Equal(t, 0.0, index.At(1, 0), "zero denominator must give 0")
	assert.Equal(t, 1.0, index.At(1, 1))
}

func TestNormalizedDifferenceNonFinite(t *testing.T) {
	a := mat.NewDense(1, 3, []float64{math.NaN(), math.Inf(1), 0.5})
	b := mat.NewDense(1, 3, []float64{0.3, 0.1, -0.5})

	index, err := NormalizedDifference(a, b)
	require.NoError(t, err)

	for j := 0; j < 3; j++ {
		v := index.At(0, j)
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "pixel %d is not finite: %v", j, v)
		assert.Equal(t, 0.0, v)
	}
}

func TestNormalizedDifferenceShapeMismatch(t *testing.T) {
	_, err := NormalizedDifference(mat.NewDense(2, 2, nil), mat.NewDense(2, 3, nil))

	var mismatch *models.ShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Len(t, mismatch.Bands, 2)
}

func TestIndexBound(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows, cols := 32, 32
	a := mat.NewDense(rows, cols, nil)
	b := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			// Include exact zeros so the zero-denominator path is exercised
			if rng.Intn(10) > 0 {
				a.Set(i, j, rng.Float64()*10000)
			}
			if rng.Intn(10) > 0 {
				b.Set(i, j, rng.Float64()*10000)
			}
		}
	}

	for name, fn := range map[string]func(x, y *mat.Dense) (*mat.Dense, error){"NDWI": NDWI, "MNDWI": MNDWI} {
		t.Run(name, func(t *testing.T) {
			index, err := fn(a, b)
			require.NoError(t, err)
			lo, hi := Range(index)
			assert.GreaterOrEqual(t, lo, -1.0)
			assert.LessOrEqual(t, hi, 1.0)
		})
	}
}

func TestValuesIsRowMajorCopy(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	values := Values(m)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, values)

	values[0] = 100
	assert.Equal(t, 1.0, m.At(0, 0))
}
