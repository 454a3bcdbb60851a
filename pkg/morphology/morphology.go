// Package morphology implements binary morphological operators on masks.
//
// The raster is treated as embedded in an unbounded background: pixels outside
// it are false for every operator. Close runs on a canvas padded by the
// element radius, so it equals the closing on that unbounded background. A
// closing therefore never removes a set pixel, and closing a
// closed mask leaves it unchanged, including water that touches the edge.
package morphology

import (
	"fmt"

	"waterseg/pkg/mask"
)

// DefaultSize is the side of the default square structuring element
const DefaultSize = 3

// StructuringElement is a square, all-true neighbourhood of odd side Size
type StructuringElement struct {
	Size int
}

// Square returns a square structuring element of the given side
func Square(size int) (StructuringElement, error) {
	se := StructuringElement{Size: size}
	if err := se.Validate(); err != nil {
		return StructuringElement{}, err
	}
	return se, nil
}

// Validate checks that the element has a positive odd side
func (se StructuringElement) Validate() error {
	if se.Size < 1 || se.Size%2 == 0 {
		return fmt.Errorf("structuring element size must be a positive odd number, got %d", se.Size)
	}
	return nil
}

func (se StructuringElement) radius() int {
	return se.Size / 2
}

// Dilate sets every pixel that has at least one set pixel in its neighbourhood
func Dilate(m *mask.Mask, se StructuringElement) (*mask.Mask, error) {
	return apply(m, se, false)
}

// Erode keeps only pixels whose whole neighbourhood is set
func Erode(m *mask.Mask, se StructuringElement) (*mask.Mask, error) {
	return apply(m, se, true)
}

// Close dilates then erodes. It fills gaps and merges fragments closer than
// the element size.
func Close(m *mask.Mask, se StructuringElement) (*mask.Mask, error) {
	if err := se.Validate(); err != nil {
		return nil, err
	}

	// The dilation may spill past the edge; the erosion has to see that spill
	// or it would eat into edge pixels.
	r := se.radius()
	dilated, err := Dilate(pad(m, r), se)
	if err != nil {
		return nil, err
	}
	closed, err := Erode(dilated, se)
	if err != nil {
		return nil, err
	}
	return crop(closed, r), nil
}

// Open erodes then dilates. It removes fragments smaller than the element and
// is not a substitute for Close.
func Open(m *mask.Mask, se StructuringElement) (*mask.Mask, error) {
	eroded, err := Erode(m, se)
	if err != nil {
		return nil, err
	}
	return Dilate(eroded, se)
}

// apply runs dilation (erode == false) or erosion (erode == true).
// A separable pass over rows then columns is exact for square elements.
func apply(m *mask.Mask, se StructuringElement, erode bool) (*mask.Mask, error) {
	if err := se.Validate(); err != nil {
		return nil, err
	}

	r := se.radius()
	rows, cols := m.Rows, m.Cols

	horizontal := mask.New(rows, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			horizontal.Set(y, x, reduce(erode, x, r, cols, func(k int) bool {
				return m.At(y, k)
			}))
		}
	}

	out := mask.New(rows, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out.Set(y, x, reduce(erode, y, r, rows, func(k int) bool {
				return horizontal.At(k, x)
			}))
		}
	}

	return out, nil
}

// reduce folds the window [centre-r, centre+r] along one axis with AND for
// erosion or OR for dilation. Positions outside [0, n) are background.
func reduce(erode bool, centre, r, n int, at func(k int) bool) bool {
	for k := centre - r; k <= centre+r; k++ {
		if k < 0 || k >= n {
			if erode {
				return false
			}
			continue
		}
		if at(k) != erode {
			return !erode
		}
	}
	return erode
}

// pad surrounds m with r background pixels on every side
func pad(m *mask.Mask, r int) *mask.Mask {
	out := mask.New(m.Rows+2*r, m.Cols+2*r)
	for y := 0; y < m.Rows; y++ {
		copy(out.Bits[(y+r)*out.Cols+r:], m.Bits[y*m.Cols:(y+1)*m.Cols])
	}
	return out
}

// crop removes an r pixel border added by pad
func crop(m *mask.Mask, r int) *mask.Mask {
	out := mask.New(m.Rows-2*r, m.Cols-2*r)
	for y := 0; y < out.Rows; y++ {
		copy(out.Bits[y*out.Cols:(y+1)*out.Cols], m.Bits[(y+r)*m.Cols+r:])
	}
	return out
}
