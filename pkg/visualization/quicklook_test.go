package visualization

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waterseg/internal/models"
)

func createTestOutput() *models.OutputRaster {
	return &models.OutputRaster{
		Rows: 2,
		Cols: 3,
		Data: []uint8{0, 255, 0, 255, 255, 0},
		Colors: models.NewColorTable(
			models.RGBA{A: 255},
			models.RGBA{B: 255, A: 255},
		),
	}
}

func TestMaskImage(t *testing.T) {
	img, err := MaskImage(createTestOutput())
	require.NoError(t, err)

	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.Len(t, img.Palette, 256)

	assert.Equal(t, uint8(255), img.ColorIndexAt(1, 0))
	assert.Equal(t, uint8(0), img.ColorIndexAt(2, 1))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.At(0, 1))
	assert.Equal(t, color.NRGBA{A: 255}, img.At(0, 0))
}

func TestMaskImageSizeMismatch(t *testing.T) {
	out := createTestOutput()
	out.Data = out.Data[:4]

	_, err := MaskImage(out)
	assert.Error(t, err)
}

func TestSaveQuicklook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "previews", "scene.png")
	require.NoError(t, SaveQuicklook(createTestOutput(), path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	_, _, b, _ := img.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), b)
}

func TestQuicklookPath(t *testing.T) {
	assert.Equal(t, "out/scene.png", QuicklookPath("out/scene.tif"))
	assert.Equal(t, "mask.png", QuicklookPath("mask"))
}
