package models

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Band indices of the expected input raster (1-based, as GDAL numbers them)
const (
	GreenBand    = 1
	NIRBand      = 2
	SWIRBand     = 3
	ValidityBand = 4

	// MinBands is the minimum number of bands an input raster must carry
	MinBands = 4
)

// GeoReference holds the georeferencing metadata propagated from input to output
type GeoReference struct {
	// Projection is the coordinate reference system as WKT
	Projection string

	// GeoTransform is the GDAL-style affine transform:
	// originX, pixelWidth, rowRotation, originY, colRotation, pixelHeight
	GeoTransform [6]float64
}

// SpectralRaster represents the four co-registered bands needed for water detection
type SpectralRaster struct {
	// Green is the green reflectance band (Sentinel-2 B03)
	Green *mat.Dense

	// NIR is the near-infrared reflectance band (Sentinel-2 B08)
	NIR *mat.Dense

	// SWIR is the short-wave-infrared reflectance band (Sentinel-2 B11)
	SWIR *mat.Dense

	// Validity restricts the analysis region; 1 is valid, anything else is not
	Validity *mat.Dense

	// Geo is copied unchanged to the output raster
	Geo GeoReference
}

// Dims returns the shape shared by all bands. It is only meaningful after
// Validate succeeded.
func (r *SpectralRaster) Dims() (rows, cols int) {
	if r.Green == nil {
		return 0, 0
	}
	return r.Green.Dims()
}

// Validate checks that all four bands are present and share the same shape
func (r *SpectralRaster) Validate() error {
	bands := []struct {
		name string
		m    *mat.Dense
	}{
		{"green", r.Green},
		{"nir", r.NIR},
		{"swir", r.SWIR},
		{"validity", r.Validity},
	}

	for _, b := range bands {
		if b.m == nil {
			return fmt.Errorf("band %s is missing", b.name)
		}
	}

	rows, cols := r.Green.Dims()
	mismatch := &ShapeMismatchError{}
	for _, b := range bands {
		br, bc := b.m.Dims()
		mismatch.Bands = append(mismatch.Bands, BandShape{Name: b.name, Rows: br, Cols: bc})
		if br != rows || bc != cols {
			mismatch.mismatched = true
		}
	}
	if mismatch.mismatched {
		return mismatch
	}

	return nil
}

// BandShape is the name and dimensions of one band
type BandShape struct {
	Name string
	Rows int
	Cols int
}

// ShapeMismatchError is returned before any computation when bands do not
// share identical dimensions
type ShapeMismatchError struct {
	Bands      []BandShape
	mismatched bool
}

func (e *ShapeMismatchError) Error() string {
	parts := make([]string, len(e.Bands))
	for i, b := range e.Bands {
		parts[i] = fmt.Sprintf("%s=%dx%d", b.Name, b.Rows, b.Cols)
	}
	return "band shape mismatch: " + strings.Join(parts, ", ")
}

// NewShapeMismatchError builds a mismatch error for a pair of named arrays
func NewShapeMismatchError(nameA string, rowsA, colsA int, nameB string, rowsB, colsB int) *ShapeMismatchError {
	return &ShapeMismatchError{
		Bands: []BandShape{
			{Name: nameA, Rows: rowsA, Cols: colsA},
			{Name: nameB, Rows: rowsB, Cols: colsB},
		},
		mismatched: true,
	}
}

// RGBA is a display color of a color table entry
type RGBA struct {
	R, G, B, A uint8
}

// Pixel values of the output raster
const (
	BackgroundValue uint8 = 0
	WaterValue      uint8 = 255
)

// ColorTable maps output pixel values to display colors.
// The output raster carries exactly two entries: background and water.
type ColorTable map[uint8]RGBA

// NewColorTable returns the two-entry table for background and water
func NewColorTable(background, water RGBA) ColorTable {
	return ColorTable{
		BackgroundValue: background,
		WaterValue:      water,
	}
}

// OutputRaster is the single-band water mask handed to a raster writer
type OutputRaster struct {
	// Data holds Rows*Cols values in row-major order, each 0 or 255
	Data []uint8

	Rows int
	Cols int

	Colors ColorTable

	// Geo is copied unchanged from the input
	Geo GeoReference
}

// At returns the value at row r, column c
func (o *OutputRaster) At(r, c int) uint8 {
	return o.Data[r*o.Cols+c]
}

// Expand returns a full 256-entry palette. Values without an entry are
// transparent black.
func (c ColorTable) Expand() [256]RGBA {
	var palette [256]RGBA
	for v, rgba := range c {
		palette[v] = rgba
	}
	return palette
}
