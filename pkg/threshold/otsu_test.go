package threshold

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestOtsuBimodal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var low, high []float64
	for i := 0; i < 1000; i++ {
		low = append(low, -0.5+rng.NormFloat64()*0.05)
		high = append(high, 0.5+rng.NormFloat64()*0.05)
	}
	values := append(append([]float64(nil), low...), high...)

	th, err := Otsu(values)
	require.NoError(t, err)

	// Splits inside the gap tie, so the threshold is the centre of the bin
	// holding the largest low value.
	width := (floats.Max(values) - floats.Min(values)) / DefaultBins
	assert.Less(t, th, floats.Min(high))
	assert.InDelta(t, floats.Max(low), th, width)
}

func TestThresholdTieKeepsFirstSplit(t *testing.T) {
	// 8 bins over [0, 1]: 0.2 falls in bin 1 and 0.9 in bin 7, leaving bins
	// 2-6 empty. Every split from bin 1 to bin 6 has the same variance.
	th, err := NewSelector(8).Threshold([]float64{0, 0.2, 0.9, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.1875, th, 1e-12)
}

func TestThresholdHugeRange(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"symmetric", []float64{-1.7e308, 1.7e308}},
		{"skewed", []float64{-1.7e308, -1.7e308, 1.7e308}},
		{"extremes", []float64{-math.MaxFloat64, 0, math.MaxFloat64}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, err := Otsu(tt.values)
			require.NoError(t, err)
			assert.False(t, math.IsInf(th, 0) || math.IsNaN(th))
			assert.Greater(t, th, floats.Min(tt.values))
			assert.Less(t, th, floats.Max(tt.values))
		})
	}
}

func TestOtsuTwoValues(t *testing.T) {
	values := []float64{-0.5, -0.5, -0.5, 0.6}

	th, err := Otsu(values)
	require.NoError(t, err)

	// Every split separates the two values equally well; the first wins.
	width := 1.1 / DefaultBins
	assert.InDelta(t, -0.5+width/2, th, 1e-12)
	assert.Greater(t, 0.6, th)
}

func TestThresholdStrictlyInsideRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(500)
		values := make([]float64, n)
		for i := range values {
			values[i] = rng.Float64()*2 - 1
		}
		values[0], values[1] = -0.25, 0.75 // at least two distinct values

		th, err := Otsu(values)
		require.NoError(t, err)
		assert.Greater(t, th, floats.Min(values), "trial %d", trial)
		assert.Less(t, th, floats.Max(values), "trial %d", trial)
	}
}

func TestThresholdIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	values := make([]float64, 4096)
	for i := range values {
		values[i] = rng.Float64()
	}

	first, err := Otsu(values)
	require.NoError(t, err)

	// Order must not matter either
	shuffled := append([]float64(nil), values...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	for i := 0; i < 5; i++ {
		again, err := Otsu(shuffled)
		require.NoError(t, err)
		assert.Equal(t, math.Float64bits(first), math.Float64bits(again))
	}
}

func TestThresholdDegenerate(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		distinct int
	}{
		{"empty", nil, 0},
		{"constant", []float64{0.3, 0.3, 0.3, 0.3}, 1},
		{"all NaN", []float64{math.NaN(), math.NaN()}, 0},
		{"constant with non-finite", []float64{0.1, math.Inf(1), 0.1, math.NaN()}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Otsu(tt.values)

			var degenerate *DegenerateInputError
			require.True(t, errors.As(err, &degenerate), "expected DegenerateInputError, got %v", err)
			assert.Equal(t, tt.distinct, degenerate.Distinct)
		})
	}
}

func TestThresholdIgnoresNonFinite(t *testing.T) {
	clean := []float64{0, 0, 0, 1, 1, 1}
	dirty := append([]float64{math.NaN(), math.Inf(-1)}, clean...)
	dirty = append(dirty, math.Inf(1))

	want, err := Otsu(clean)
	require.NoError(t, err)
	got, err := Otsu(dirty)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSelectorBins(t *testing.T) {
	assert.Equal(t, DefaultBins, NewSelector(0).Bins)
	assert.Equal(t, 64, NewSelector(64).Bins)

	_, err := (&Selector{Bins: 1}).Threshold([]float64{0, 1})
	require.Error(t, err)

	th, err := NewSelector(2).Threshold([]float64{0, 0, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, th, 1e-12)
}
