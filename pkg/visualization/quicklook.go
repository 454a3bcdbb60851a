package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"waterseg/internal/models"
)

// MaskImage renders an output raster as a paletted image using its color table
func MaskImage(out *models.OutputRaster) (*image.Paletted, error) {
	if len(out.Data) != out.Rows*out.Cols {
		return nil, fmt.Errorf("output holds %d values for a %dx%d raster", len(out.Data), out.Rows, out.Cols)
	}

	expanded := out.Colors.Expand()
	palette := make(color.Palette, len(expanded))
	for i, c := range expanded {
		palette[i] = color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
	}

	img := image.NewPaletted(image.Rect(0, 0, out.Cols, out.Rows), palette)
	for y := 0; y < out.Rows; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+out.Cols], out.Data[y*out.Cols:(y+1)*out.Cols])
	}
	return img, nil
}

// SavePNG saves an image as PNG, creating the parent directory
func SavePNG(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveQuicklook renders the mask and saves it as PNG
func SaveQuicklook(out *models.OutputRaster, filename string) error {
	img, err := MaskImage(out)
	if err != nil {
		return err
	}
	if err := SavePNG(img, filename); err != nil {
		return fmt.Errorf("failed to save quicklook: %w", err)
	}
	return nil
}

// QuicklookPath derives the preview path of a raster output: out.tif -> out.png
func QuicklookPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".png"
}
