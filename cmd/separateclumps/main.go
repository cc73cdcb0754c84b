package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"separateclumps/internal/models"
	"separateclumps/pkg/config"
	"separateclumps/pkg/imageio"
	"separateclumps/pkg/separation"
	"separateclumps/pkg/visualization"
)

// figureScale is the upscaling factor of debug figures
const figureScale = 4

func main() {
	// Parse command line arguments
	maskPath := flag.String("mask", "", "Segmentation mask or label image (PNG, TIFF, BMP, GIF, JPEG)")
	intensityPath := flag.String("intensity", "", "Optional grey-level intensity image matching the mask")
	outputPath := flag.String("output", "separated.png", "Output label image (.png or .tif)")
	configPath := flag.String("config", "separateclumps.yaml", "YAML configuration file (defaults are used when missing)")
	writeConfig := flag.String("write-config", "", "Write the default configuration to this path and exit")
	passes := flag.Int("passes", 0, "Number of cutting passes (overrides the config file)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: all available cores)")
	lineMode := flag.String("line-mode", "", "Cut line mode: straight or watershed")
	debugDir := flag.String("debug-dir", "", "Directory receiving debug figures")
	figureFormat := flag.String("figure-format", "", "Debug figure format: png or webp")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "", "Log format: text or json")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *writeConfig)
		return
	}

	// Validate inputs
	if *maskPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Resolve(config.Flags{
		Passes:       *passes,
		Workers:      *workers,
		LineMode:     *lineMode,
		DebugDir:     *debugDir,
		FigureFormat: *figureFormat,
		LogLevel:     *logLevel,
		LogFormat:    *logFormat,
	})

	logger := initLogger(cfg.Output.LogLevel, cfg.Output.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	params, err := cfg.Params()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, params, *maskPath, *intensityPath, *outputPath); err != nil {
		logger.WithError(err).Fatal("Separation failed")
	}
}

// initLogger configures logrus from the level name and output format
func initLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	if err != nil && level != "" {
		logger.WithField("level", level).Warn("Unknown log level, using info")
	}
	return logger
}

func run(ctx context.Context, logger *logrus.Logger, cfg *config.Config, params separation.Params, maskPath, intensityPath, outputPath string) error {
	mask, err := imageio.LoadMask(maskPath)
	if err != nil {
		return fmt.Errorf("error loading mask: %w", err)
	}

	var intensity *models.IntensityImage
	if intensityPath != "" {
		intensity, err = imageio.LoadIntensity(intensityPath)
		if err != nil {
			return fmt.Errorf("error loading intensity image: %w", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"mask":      maskPath,
		"intensity": intensityPath,
		"width":     mask.Width,
		"height":    mask.Height,
		"passes":    params.Passes,
		"workers":   params.Workers,
		"lineMode":  params.LineMode,
	}).Info("Starting clump separation")

	separator, err := separation.New(params, logger)
	if err != nil {
		return err
	}

	startTime := time.Now()
	res, err := separator.Process(ctx, mask, intensity)
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		logger.Warn(w)
	}
	cuts := 0
	for _, p := range res.Passes {
		cuts += p.Cuts
	}

	if err := imageio.SaveLabels(outputPath, res.Labels); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"objects":  res.Count,
		"cuts":     cuts,
		"output":   outputPath,
		"duration": time.Since(startTime).Round(time.Millisecond),
	}).Info("Separation completed")

	if res.Debug != nil {
		format := cfg.Output.FigureFormat
		if format == "" {
			format = "png"
		}
		viewer := visualization.NewViewer(res.Debug, figureScale)
		written, err := viewer.SaveAll(cfg.Output.DebugDir, format)
		if err != nil {
			logger.WithError(err).Warn("Failed to save debug figures")
		} else {
			logger.WithFields(logrus.Fields{
				"dir":     cfg.Output.DebugDir,
				"figures": len(written),
			}).Info("Debug figures saved")
		}
	}
	return nil
}
