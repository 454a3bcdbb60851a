package segmentation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"waterseg/internal/log"
	"waterseg/internal/models"
	"waterseg/pkg/mask"
	"waterseg/pkg/morphology"
	"waterseg/pkg/spectral"
	"waterseg/pkg/threshold"
)

// SceneStats holds the diagnostics of one segmentation: index ranges, the
// selected thresholds and how much of the valid area was classified as water.
type SceneStats struct {
	NDWIMin, NDWIMax   float64
	MNDWIMin, MNDWIMax float64

	NDWIThreshold  float64
	MNDWIThreshold float64

	// ValidPixels is the number of pixels whose validity value is 1
	ValidPixels int

	// WaterPixels is the number of pixels set in the final mask
	WaterPixels int

	// WaterFraction is WaterPixels / ValidPixels, 0 when nothing is valid
	WaterFraction float64

	Elapsed time.Duration
}

// Params holds the segmentation parameters
type Params struct {
	// HistogramBins is the Otsu histogram resolution
	HistogramBins int

	// KernelSize is the side of the square structuring element of the closing
	KernelSize int

	// Background and Water are the display colors of the output color table
	Background models.RGBA
	Water      models.RGBA
}

// DefaultParams returns 256 Otsu bins, a 3x3 closing and blue water on black
func DefaultParams() Params {
	return Params{
		HistogramBins: threshold.DefaultBins,
		KernelSize:    morphology.DefaultSize,
		Background:    models.RGBA{R: 0, G: 0, B: 0, A: 255},
		Water:         models.RGBA{R: 0, G: 0, B: 255, A: 255},
	}
}

// Segmenter detects water in a SpectralRaster. It holds only parameters, so a
// single Segmenter may be used for many independent rasters.
type Segmenter struct {
	params   Params
	selector *threshold.Selector
	element  morphology.StructuringElement
	log      zerolog.Logger
}

// NewSegmenter creates a segmenter, validating the parameters
func NewSegmenter(params Params) (*Segmenter, error) {
	if params.HistogramBins < 2 {
		return nil, fmt.Errorf("histogram bins must be at least 2, got %d", params.HistogramBins)
	}
	se, err := morphology.Square(params.KernelSize)
	if err != nil {
		return nil, err
	}

	return &Segmenter{
		params:   params,
		selector: threshold.NewSelector(params.HistogramBins),
		element:  se,
		log:      log.Component("segmentation"),
	}, nil
}

// Segment runs the water detection pipeline on an in-memory raster:
// NDWI and MNDWI are thresholded with Otsu, the two masks are fused and
// restricted to the validity band, closed, and scaled to {0, 255}.
//
// Shapes are checked before any computation. Nothing is written anywhere.
func (s *Segmenter) Segment(raster *models.SpectralRaster) (*models.OutputRaster, *SceneStats, error) {
	start := time.Now()

	if err := raster.Validate(); err != nil {
		return nil, nil, err
	}
	rows, cols := raster.Dims()

	ndwi, err := spectral.NDWI(raster.Green, raster.NIR)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute NDWI: %w", err)
	}
	mndwi, err := spectral.MNDWI(raster.Green, raster.SWIR)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute MNDWI: %w", err)
	}

	stats := &SceneStats{}
	stats.NDWIMin, stats.NDWIMax = spectral.Range(ndwi)
	stats.MNDWIMin, stats.MNDWIMax = spectral.Range(mndwi)
	s.log.Debug().
		Float64("min", stats.NDWIMin).Float64("max", stats.NDWIMax).
		Msg("NDWI range")
	s.log.Debug().
		Float64("min", stats.MNDWIMin).Float64("max", stats.MNDWIMax).
		Msg("MNDWI range")

	ndwiMask, t, err := s.detect("NDWI", ndwi)
	if err != nil {
		return nil, nil, err
	}
	stats.NDWIThreshold = t

	mndwiMask, t, err := s.detect("MNDWI", mndwi)
	if err != nil {
		return nil, nil, err
	}
	stats.MNDWIThreshold = t

	fused, err := mask.Combine(ndwiMask, mndwiMask, raster.Validity)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to combine masks: %w", err)
	}

	refined, err := morphology.Close(fused, s.element)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to refine mask: %w", err)
	}

	// The closing can fill gaps that lie outside the validity region.
	valid := mask.Valid(raster.Validity)
	if _, err := mask.Restrict(refined, valid); err != nil {
		return nil, nil, fmt.Errorf("failed to restrict refined mask: %w", err)
	}

	stats.ValidPixels = valid.Count()
	stats.WaterPixels = refined.Count()
	if stats.ValidPixels > 0 {
		stats.WaterFraction = float64(stats.WaterPixels) / float64(stats.ValidPixels)
	}
	stats.Elapsed = time.Since(start)

	s.log.Debug().
		Int("valid", stats.ValidPixels).
		Int("water", stats.WaterPixels).
		Float64("fraction", stats.WaterFraction).
		Msg("segmentation complete")

	out := &models.OutputRaster{
		Data:   refined.ToUint8(models.WaterValue),
		Rows:   rows,
		Cols:   cols,
		Colors: models.NewColorTable(s.params.Background, s.params.Water),
		Geo:    raster.Geo,
	}
	return out, stats, nil
}

// detect thresholds one index with Otsu and returns the pixels above it
func (s *Segmenter) detect(name string, index *mat.Dense) (*mask.Mask, float64, error) {
	t, err := s.selector.Threshold(spectral.Values(index))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to threshold %s: %w", name, err)
	}
	s.log.Debug().Str("index", name).Float64("threshold", t).Msg("otsu threshold")
	return mask.Above(index, t), t, nil
}

// Reader loads a SpectralRaster from a path
type Reader interface {
	Read(path string) (*models.SpectralRaster, error)
}

// Writer persists an OutputRaster to a path
type Writer interface {
	Write(path string, out *models.OutputRaster) error
}

// Pipeline brackets a Segmenter with a raster reader and writer
type Pipeline struct {
	Segmenter *Segmenter
	Reader    Reader
	Writer    Writer
}

// Run reads inputPath, segments it and writes the mask to outputPath.
// The writer is only called after segmentation succeeded, so a failed run
// produces no output file.
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string) (*models.OutputRaster, *SceneStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	raster, err := p.Reader.Read(inputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	out, stats, err := p.Segmenter.Segment(raster)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to segment %s: %w", inputPath, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if err := p.Writer.Write(outputPath, out); err != nil {
		return nil, nil, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	return out, stats, nil
}
