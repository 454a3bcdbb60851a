// Package threshold selects adaptive decision boundaries for spectral indices.
//
// The Otsu selector builds a fixed-resolution histogram over the value range
// of its input and picks the bin centre that maximizes the between-class
// variance of the two classes it induces.
package threshold

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBins is the histogram resolution used by Otsu. It is fixed so that
// the same input always yields the same threshold.
const DefaultBins = 256

// DegenerateInputError is returned when the input has fewer than two distinct
// finite values, for example a uniform scene or a fully masked tile.
type DegenerateInputError struct {
	// Distinct is the number of distinct finite values found (0 or 1)
	Distinct int

	// Finite is the number of finite values in the input
	Finite int
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: %d distinct finite values among %d", e.Distinct, e.Finite)
}

// Selector computes Otsu thresholds with a configurable bin count
type Selector struct {
	Bins int
}

// NewSelector creates a selector; bins <= 0 selects DefaultBins
func NewSelector(bins int) *Selector {
	if bins <= 0 {
		bins = DefaultBins
	}
	return &Selector{Bins: bins}
}

// Otsu returns the Otsu threshold of values using DefaultBins
func Otsu(values []float64) (float64, error) {
	return NewSelector(DefaultBins).Threshold(values)
}

// Threshold returns the value that splits values into two classes with maximal
// between-class variance. NaN and infinite values are ignored. The result lies
// strictly between the minimum and maximum finite value.
func (s *Selector) Threshold(values []float64) (float64, error) {
	if s.Bins < 2 {
		return 0, fmt.Errorf("otsu needs at least 2 histogram bins, got %d", s.Bins)
	}

	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}

	if len(finite) == 0 {
		return 0, &DegenerateInputError{Distinct: 0, Finite: 0}
	}
	lo, hi := floats.Min(finite), floats.Max(finite)
	if lo == hi {
		return 0, &DegenerateInputError{Distinct: 1, Finite: len(finite)}
	}

	// Work on positions in [0, 1]. Ranges wider than MaxFloat64 are halved
	// first so that hi-lo stays finite.
	scale := 1.0
	if math.IsInf(hi-lo, 0) {
		scale = 0.5
	}
	base := lo * scale
	span := hi*scale - base

	hist := s.histogram(finite, base, span, scale)
	centre := func(i int) float64 {
		return (float64(i) + 0.5) / float64(s.Bins)
	}

	var totalCount, totalMass float64
	for i, n := range hist {
		totalCount += n
		totalMass += n * centre(i)
	}

	best := -1
	bestVariance := math.Inf(-1)
	var lowCount, lowMass float64
	for i := 0; i < s.Bins-1; i++ {
		lowCount += hist[i]
		lowMass += hist[i] * centre(i)

		highCount := totalCount - lowCount
		if lowCount == 0 || highCount == 0 {
			continue
		}

		lowMean := lowMass / lowCount
		highMean := (totalMass - lowMass) / highCount
		diff := lowMean - highMean

		variance := lowCount * highCount * diff * diff
		if variance > bestVariance {
			bestVariance = variance
			best = i
		}
	}

	// The first bin holds the minimum and the last the maximum, so both
	// classes are non-empty for every split and best is always set.
	t := (base + centre(best)*span) / scale
	if t <= lo {
		t = math.Nextafter(lo, hi)
	}
	if t >= hi {
		t = math.Nextafter(hi, lo)
	}
	return t, nil
}

// histogram counts values into s.Bins equal-width bins over [0, 1] after
// mapping each value v to (v*scale - base) / span. The last bin is closed on
// the right so the maximum is counted.
func (s *Selector) histogram(values []float64, base, span, scale float64) []float64 {
	positions := make([]float64, len(values))
	for i, v := range values {
		positions[i] = (v*scale - base) / span
	}
	sort.Float64s(positions)

	dividers := make([]float64, s.Bins+1)
	floats.Span(dividers, 0, 1)
	dividers[s.Bins] = math.Nextafter(1, math.Inf(1))

	return stat.Histogram(nil, dividers, positions, nil)
}
