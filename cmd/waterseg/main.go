package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"waterseg/internal/log"
	"waterseg/internal/models"
	"waterseg/pkg/batch"
	"waterseg/pkg/catalog"
	"waterseg/pkg/config"
	"waterseg/pkg/rasterio"
	"waterseg/pkg/segmentation"
	"waterseg/pkg/visualization"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Parse command line arguments
	flags := flag.NewFlagSet("waterseg", flag.ContinueOnError)
	inputPath := flags.String("input", "", "Input raster with bands green, NIR, SWIR, validity")
	outputPath := flags.String("output", "", "Output water mask GeoTIFF")
	inputDir := flags.String("input-dir", "", "Directory of input rasters (batch mode)")
	outputDir := flags.String("output-dir", "", "Directory for output masks (batch mode)")
	configPath := flags.String("config", "waterseg.yaml", "YAML configuration file")
	initConfig := flags.Bool("init-config", false, "Write the default configuration to -config and exit")
	numCores := flags.Int("cores", 0, "Number of files processed concurrently (default: from config)")
	quicklook := flags.Bool("quicklook", false, "Also save a PNG preview next to each output")
	catalogPath := flags.String("catalog", "", "SQLite file recording run statistics")
	debug := flags.Bool("debug", false, "Enable debug logging")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			return 1
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return 0
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	applyFlags(cfg, *numCores, *quicklook, *catalogPath, *debug)

	log.Init(cfg.Output.Verbose)

	var jobs []batch.Job
	switch {
	case *inputPath != "" && *outputPath != "":
		jobs = []batch.Job{{Input: *inputPath, Output: *outputPath}}
	case *inputDir != "" && *outputDir != "":
		jobs, err = batch.Jobs(*inputDir, *outputDir)
		if err != nil {
			log.Errorf("Failed to list inputs: %v", err)
			return 1
		}
	default:
		flags.Usage()
		return 1
	}

	segmenter, err := segmentation.NewSegmenter(segmentation.Params{
		HistogramBins: cfg.Segmentation.HistogramBins,
		KernelSize:    cfg.Segmentation.KernelSize,
		Background:    toRGBA(cfg.Output.BackgroundColor),
		Water:         toRGBA(cfg.Output.WaterColor),
	})
	if err != nil {
		log.Errorf("Invalid segmentation parameters: %v", err)
		return 1
	}

	pipeline := &segmentation.Pipeline{
		Segmenter: segmenter,
		Reader:    rasterio.NewReader(),
		Writer:    rasterio.NewWriter(cfg.Output.CreationOptions...),
	}

	var after []batch.AfterFunc
	if cfg.Output.Quicklook {
		after = append(after, func(_ uuid.UUID, job batch.Job, out *models.OutputRaster, _ *segmentation.SceneStats) error {
			return visualization.SaveQuicklook(out, visualization.QuicklookPath(job.Output))
		})
	}
	if cfg.Output.CatalogPath != "" {
		cat, err := catalog.Open(cfg.Output.CatalogPath)
		if err != nil {
			log.Errorf("Failed to open catalog: %v", err)
			return 1
		}
		defer cat.Close()
		after = append(after, func(runID uuid.UUID, job batch.Job, _ *models.OutputRaster, stats *segmentation.SceneStats) error {
			return cat.Record(catalog.Entry{RunID: runID, Input: job.Input, Output: job.Output, Stats: *stats})
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	processor := batch.NewProcessor(pipeline, batch.Params{
		NumCores: cfg.Processing.NumCores,
		FailFast: cfg.Processing.FailFast,
	}, after...)

	log.Infof("Segmenting %d file(s) with %d worker(s), run %s", len(jobs), cfg.Processing.NumCores, processor.RunID())
	startTime := time.Now()
	results, err := processor.Process(ctx, jobs)
	processingTime := time.Since(startTime)

	for _, r := range results {
		if r.Err != nil {
			log.Errorf("%s: %v", r.Job.Input, r.Err)
			continue
		}
		s := r.Stats
		log.Infof("%s: NDWI threshold %.4f, MNDWI threshold %.4f, water %d/%d valid pixels (%.2f%%)",
			r.Job.Output, s.NDWIThreshold, s.MNDWIThreshold, s.WaterPixels, s.ValidPixels, s.WaterFraction*100)
		if r.HookErr != nil {
			log.Errorf("%s: post-processing: %v", r.Job.Output, r.HookErr)
		}
	}

	succeeded, failed, hookFailed := batch.Summarize(results)
	log.Infof("Completed in %.2f seconds: %d succeeded, %d failed, %d with post-processing errors",
		processingTime.Seconds(), succeeded, failed, hookFailed)

	if err != nil || failed > 0 || hookFailed > 0 {
		return 1
	}
	return 0
}

// applyFlags overrides configuration values with explicitly set flags
func applyFlags(cfg *config.Config, numCores int, quicklook bool, catalogPath string, debug bool) {
	if numCores > 0 {
		cfg.Processing.NumCores = numCores
	}
	if quicklook {
		cfg.Output.Quicklook = true
	}
	if catalogPath != "" {
		cfg.Output.CatalogPath = catalogPath
	}
	if debug {
		cfg.Output.Verbose = true
	}
}

func toRGBA(c config.Color) models.RGBA {
	return models.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}
