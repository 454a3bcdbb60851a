package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 256, cfg.Segmentation.HistogramBins)
	assert.Equal(t, 3, cfg.Segmentation.KernelSize)
	assert.GreaterOrEqual(t, cfg.Processing.NumCores, 1)
	assert.Equal(t, Color{B: 255, A: 255}, cfg.Output.WaterColor)
	assert.Equal(t, Color{A: 255}, cfg.Output.BackgroundColor)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Segmentation, cfg.Segmentation)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "waterseg.yaml")

	cfg := DefaultConfig()
	cfg.Segmentation.KernelSize = 5
	cfg.Output.CatalogPath = "runs.db"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waterseg.yaml")
	data := []byte("segmentation:\n  histogramBins: 128\noutput:\n  waterColor: {r: 10, g: 20, b: 30, a: 255}\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Segmentation.HistogramBins)
	assert.Equal(t, 3, cfg.Segmentation.KernelSize, "unset values keep their defaults")
	assert.Equal(t, Color{R: 10, G: 20, B: 30, A: 255}, cfg.Output.WaterColor)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"even kernel": "segmentation:\n  kernelSize: 4\n",
		"one bin":     "segmentation:\n  histogramBins: 1\n",
		"no cores":    "processing:\n  numCores: 0\n",
		"bad yaml":    "segmentation: [",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "waterseg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waterseg.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}
