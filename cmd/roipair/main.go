// RoiPair pairs whole-cell ROI files with their nucleus ROI files.
//
// Every region file in a directory is decoded to a polygon. The largest
// region claims the first region, in file-name order, whose centroid it
// contains; the pair is then copied out as c01_<cell> / n01_<nucleus> into
// <stem>_wholecell and <stem>_nucleus next to the input directory.
//
// Build:
//   go build -o roipair ./cmd/roipair
//
// Usage:
//   roipair path/to/rois [-o out] [--report json,xlsx,pdf,dxf] [--archive]
//   roipair config init

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/piwi3910/RoiPair/internal/logging"
	"github.com/piwi3910/RoiPair/internal/model"
	"github.com/piwi3910/RoiPair/internal/project"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "0.1.0-dev"

// options holds the raw flag values. Only flags the user actually set
// override the config file.
type options struct {
	outputDir  string
	reports    []string
	exts       []string
	archive    bool
	strict     bool
	dryRun     bool
	configPath string
	logFile    string
	verbose    bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command line and returns the process exit code.
func run(args []string) int {
	cmd := newRootCmd(&options{})
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "roipair: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roipair <rois_dir>",
		Short: "Pair whole-cell and nucleus ROI files",
		Long: `For the region files inside the given directory, finds which ones are cell
or nucleus ROIs and copies them with a shared index:

  <stem>_wholecell/c01_*.roi   <stem>_nucleus/n01_*.roi
  <stem>_wholecell/c02_*.roi   <stem>_nucleus/n02_*.roi

The largest remaining region is always taken as the next cell, and its
nucleus is the first remaining region (in file-name order) whose centroid
lies inside it.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Config{Verbose: opts.verbose, File: opts.logFile})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return runPairing(args[0], opts, cfg, log)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "", "output directory (default: parent of rois_dir)")
	flags.StringSliceVar(&opts.reports, "report", nil,
		"reports to write into the output directory ("+strings.Join(model.ReportFormats, ", ")+")")
	flags.StringSliceVar(&opts.exts, "ext", nil, "region file extensions to scan (default .roi)")
	flags.BoolVar(&opts.archive, "archive", false, "zip the wholecell and nucleus directories")
	flags.BoolVar(&opts.strict, "strict", false, "abort when a region file cannot be decoded")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "log the planned copies without writing anything")
	flags.StringVar(&opts.logFile, "log-file", "", "also write the log to this file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.roipair/config.yaml)")

	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(opts)
			if err := project.SaveAppConfig(path, model.DefaultAppConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})
	return configCmd
}

func configPath(opts *options) string {
	if opts.configPath != "" {
		return opts.configPath
	}
	return project.DefaultConfigPath()
}

// resolveConfig layers defaults, the config file and explicitly set flags.
func resolveConfig(cmd *cobra.Command, opts *options) (model.AppConfig, error) {
	cfg, err := project.LoadAppConfig(configPath(opts))
	if err != nil {
		return model.AppConfig{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("ext") {
		cfg.Extensions = opts.exts
	}
	if flags.Changed("report") {
		cfg.Reports = opts.reports
	}
	if flags.Changed("archive") {
		cfg.Archive = opts.archive
	}
	if flags.Changed("strict") {
		cfg.Strict = opts.strict
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return model.AppConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
