package main

import (
	"fmt"
	"os"

	"github.com/piwi3910/RoiPair/internal/engine"
	"github.com/piwi3910/RoiPair/internal/export"
	"github.com/piwi3910/RoiPair/internal/importer"
	"github.com/piwi3910/RoiPair/internal/model"
	"go.uber.org/zap"
)

// runPairing creates the output directories, pairs the regions found in
// inputDir and copies each pair out under its index.
func runPairing(inputDir string, opts *options, cfg model.AppConfig, log *zap.Logger) error {
	info, err := os.Stat(inputDir)
	if err != nil {
		return fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input is not a directory: %s", inputDir)
	}

	layout := export.NewLayout(inputDir, opts.outputDir)
	log.Info("RoiPair", zap.String("version", version),
		zap.String("in", inputDir), zap.String("out", layout.Out))
	if opts.dryRun {
		log.Warn("DRY RUN")
	} else if err := layout.EnsureDirs(log); err != nil {
		return err
	}

	imported := importer.LoadDir(inputDir, cfg.Extensions)
	for _, w := range imported.Warnings {
		log.Warn(w)
	}
	for _, e := range imported.Errors {
		log.Warn("Skipping region file", zap.String("reason", e))
	}
	if cfg.Strict && len(imported.Errors) > 0 {
		return fmt.Errorf("%d region file(s) could not be decoded", len(imported.Errors))
	}
	log.Info("Found region files", zap.Int("count", len(imported.Regions)))

	result, err := engine.New(log).Pair(imported.Regions)
	if err != nil {
		return err
	}

	if n := len(result.Unpaired); n > 0 {
		log.Warn("Regions left unpaired", zap.Int("count", n))
		for _, u := range result.Unpaired {
			log.Info("Unpaired region", zap.String("region", u.ID), zap.Float64("area", u.Area))
		}
	}

	report := export.NewReport(inputDir, layout, result)
	if err := export.CopyPairs(report.Plans, opts.dryRun, log); err != nil {
		return err
	}

	if opts.dryRun {
		for _, f := range cfg.Reports {
			log.Info("Would write report", zap.String("file", layout.ReportPath(f)))
		}
		log.Info("Done", zap.Int("pairs", len(result.Pairs)), zap.String("run", report.RunID))
		return nil
	}

	if _, err := export.WriteReports(cfg.Reports, report, log); err != nil {
		return err
	}
	if cfg.Archive {
		for _, d := range []string{layout.Cell, layout.Nucleus} {
			path, err := export.ArchiveDir(d)
			if err != nil {
				return fmt.Errorf("archive %s: %w", d, err)
			}
			log.Info("Created new file", zap.String("file", path))
		}
	}

	log.Info("Done", zap.Int("pairs", len(result.Pairs)), zap.String("run", report.RunID))
	return nil
}
