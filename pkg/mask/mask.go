// Package mask provides boolean raster masks and the fusion of index-derived
// water masks with a validity region.
package mask

import (
	"gonum.org/v1/gonum/mat"

	"waterseg/internal/models"
)

// Mask is a row-major boolean raster
type Mask struct {
	Rows int
	Cols int
	Bits []bool
}

// New returns an all-false mask
func New(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, Bits: make([]bool, rows*cols)}
}

// At reports whether the pixel at row r, column c is set
func (m *Mask) At(r, c int) bool {
	return m.Bits[r*m.Cols+c]
}

// Set sets the pixel at row r, column c
func (m *Mask) Set(r, c int, v bool) {
	m.Bits[r*m.Cols+c] = v
}

// Count returns the number of set pixels
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns an independent copy
func (m *Mask) Clone() *Mask {
	out := New(m.Rows, m.Cols)
	copy(out.Bits, m.Bits)
	return out
}

// Equal reports whether two masks have the same shape and pixels
func (m *Mask) Equal(o *Mask) bool {
	if m.Rows != o.Rows || m.Cols != o.Cols {
		return false
	}
	for i := range m.Bits {
		if m.Bits[i] != o.Bits[i] {
			return false
		}
	}
	return true
}

// ToUint8 scales the mask to {0, on}
func (m *Mask) ToUint8(on uint8) []uint8 {
	out := make([]uint8, len(m.Bits))
	for i, b := range m.Bits {
		if b {
			out[i] = on
		}
	}
	return out
}

// Above returns a mask set where index > t
func Above(index *mat.Dense, t float64) *Mask {
	rows, cols := index.Dims()
	m := New(rows, cols)
	for i := 0; i < rows; i++ {
		for j, v := range index.RawRowView(i) {
			m.Bits[i*cols+j] = v > t
		}
	}
	return m
}

// Valid returns a mask set where the validity band equals exactly 1
func Valid(validity *mat.Dense) *Mask {
	rows, cols := validity.Dims()
	m := New(rows, cols)
	for i := 0; i < rows; i++ {
		for j, v := range validity.RawRowView(i) {
			m.Bits[i*cols+j] = v == 1
		}
	}
	return m
}

// Restrict clears every pixel of m outside valid and returns m
func Restrict(m, valid *Mask) (*Mask, error) {
	if m.Rows != valid.Rows || m.Cols != valid.Cols {
		return nil, models.NewShapeMismatchError("mask", m.Rows, m.Cols, "validity", valid.Rows, valid.Cols)
	}
	for i := range m.Bits {
		m.Bits[i] = m.Bits[i] && valid.Bits[i]
	}
	return m, nil
}

// Combine returns (a OR b) AND (validity == 1) as a new mask
func Combine(a, b *Mask, validity *mat.Dense) (*Mask, error) {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return nil, models.NewShapeMismatchError("mask_a", a.Rows, a.Cols, "mask_b", b.Rows, b.Cols)
	}
	vr, vc := validity.Dims()
	if vr != a.Rows || vc != a.Cols {
		return nil, models.NewShapeMismatchError("mask", a.Rows, a.Cols, "validity", vr, vc)
	}

	out := New(a.Rows, a.Cols)
	for i := range out.Bits {
		out.Bits[i] = a.Bits[i] || b.Bits[i]
	}
	return Restrict(out, Valid(validity))
}
