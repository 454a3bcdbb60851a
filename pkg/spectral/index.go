// Package spectral computes normalized-difference spectral indices from
// reflectance bands.
package spectral

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"waterseg/internal/models"
)

// NormalizedDifference returns (a - b) / (a + b) for every pixel of two
// equally shaped bands.
//
// Pixels where a + b == 0 have no usable signal and are set to 0, which the
// water indices read as non-water. Non-finite inputs are handled the same way
// so that the result is always finite and safe to histogram and compare.
func NormalizedDifference(a, b *mat.Dense) (*mat.Dense, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return nil, models.NewShapeMismatchError("a", ar, ac, "b", br, bc)
	}

	index := mat.NewDense(ar, ac, nil)
	index.Apply(func(i, j int, _ float64) float64 {
		return normalizedDifference(a.At(i, j), b.At(i, j))
	}, index)

	return index, nil
}

func normalizedDifference(a, b float64) float64 {
	sum := a + b
	if sum == 0 {
		return 0
	}
	v := (a - b) / sum
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NDWI is the Normalized Difference Water Index (green vs near-infrared)
func NDWI(green, nir *mat.Dense) (*mat.Dense, error) {
	return NormalizedDifference(green, nir)
}

// MNDWI is the Modified NDWI (green vs short-wave-infrared)
func MNDWI(green, swir *mat.Dense) (*mat.Dense, error) {
	return NormalizedDifference(green, swir)
}

// Values returns the index values as a row-major slice. The slice is a copy.
func Values(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}

// Range returns the minimum and maximum value of an index
func Range(m *mat.Dense) (lo, hi float64) {
	values := Values(m)
	if len(values) == 0 {
		return 0, 0
	}
	return floats.Min(values), floats.Max(values)
}
