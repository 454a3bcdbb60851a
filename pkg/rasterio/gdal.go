// Package rasterio reads multi-band input rasters and writes water masks
// through GDAL.
package rasterio

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/airbusgeo/godal"
	"gonum.org/v1/gonum/mat"

	"waterseg/internal/models"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// Reader loads the green, NIR, SWIR and validity bands of a raster file
type Reader struct{}

// NewReader registers the GDAL drivers and returns a reader
func NewReader() *Reader {
	register()
	return &Reader{}
}

// Read opens path and loads bands 1-4 as float64 matrices. The projection
// and geotransform must be present.
func (r *Reader) Read(path string) (*models.SpectralRaster, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster: %w", err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands < models.MinBands {
		return nil, fmt.Errorf("raster has %d bands, need at least %d", st.NBands, models.MinBands)
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("failed to get geotransform: %w", err)
	}

	raster := &models.SpectralRaster{
		Geo: models.GeoReference{
			Projection:   ds.Projection(),
			GeoTransform: gt,
		},
	}

	bands := ds.Bands()
	targets := []struct {
		index int
		dst   **mat.Dense
	}{
		{models.GreenBand, &raster.Green},
		{models.NIRBand, &raster.NIR},
		{models.SWIRBand, &raster.SWIR},
		{models.ValidityBand, &raster.Validity},
	}
	for _, t := range targets {
		m, err := readBand(bands[t.index-1])
		if err != nil {
			return nil, fmt.Errorf("failed to read band %d: %w", t.index, err)
		}
		*t.dst = m
	}

	return raster, nil
}

func readBand(band godal.Band) (*mat.Dense, error) {
	bs := band.Structure()
	if bs.SizeX == 0 || bs.SizeY == 0 {
		return nil, errors.New("band is empty")
	}
	buf := make([]float64, bs.SizeX*bs.SizeY)
	if err := band.Read(0, 0, buf, bs.SizeX, bs.SizeY); err != nil {
		return nil, err
	}
	return mat.NewDense(bs.SizeY, bs.SizeX, buf), nil
}

// Writer stores an OutputRaster as a single-band Byte GeoTIFF with a palette
type Writer struct {
	// CreationOptions are passed to the GTiff driver, e.g. "COMPRESS=LZW"
	CreationOptions []string
}

// NewWriter registers the GDAL drivers and returns a writer
func NewWriter(creationOptions ...string) *Writer {
	register()
	return &Writer{CreationOptions: creationOptions}
}

// Write creates path and stores the mask, georeferencing and color table.
// A partially written file is removed on failure.
func (w *Writer) Write(path string, out *models.OutputRaster) (err error) {
	if len(out.Data) != out.Rows*out.Cols {
		return fmt.Errorf("output holds %d values for a %dx%d raster", len(out.Data), out.Rows, out.Cols)
	}

	var opts []godal.DatasetCreateOption
	if len(w.CreationOptions) > 0 {
		opts = append(opts, godal.CreationOption(w.CreationOptions...))
	}

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Byte, out.Cols, out.Rows, opts...)
	if err != nil {
		return fmt.Errorf("failed to create raster: %w", err)
	}

	closed := false
	defer func() {
		if !closed {
			ds.Close()
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if err = ds.SetGeoTransform(out.Geo.GeoTransform); err != nil {
		return fmt.Errorf("failed to set geotransform: %w", err)
	}
	if out.Geo.Projection != "" {
		if err = ds.SetProjection(out.Geo.Projection); err != nil {
			return fmt.Errorf("failed to set projection: %w", err)
		}
	}

	band := ds.Bands()[0]
	if err = band.Write(0, 0, out.Data, out.Cols, out.Rows); err != nil {
		return fmt.Errorf("failed to write band: %w", err)
	}
	if err = band.SetColorInterp(godal.CIPalette); err != nil {
		return fmt.Errorf("failed to set color interpretation: %w", err)
	}
	if err = band.SetColorTable(colorTable(out.Colors)); err != nil {
		return fmt.Errorf("failed to set color table: %w", err)
	}

	closed = true
	if err = ds.Close(); err != nil {
		return fmt.Errorf("failed to close raster: %w", err)
	}
	return nil
}

func colorTable(ct models.ColorTable) godal.ColorTable {
	palette := ct.Expand()
	entries := make([][4]int16, len(palette))
	for i, c := range palette {
		entries[i] = [4]int16{int16(c.R), int16(c.G), int16(c.B), int16(c.A)}
	}
	return godal.ColorTable{
		PaletteInterp: godal.RGBPalette,
		Entries:       entries,
	}
}
