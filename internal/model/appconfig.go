package model

import (
	"fmt"
	"strings"
)

// Report formats understood by the export package.
const (
	ReportJSON = "json"
	ReportXLSX = "xlsx"
	ReportPDF  = "pdf"
	ReportDXF  = "dxf"
)

// ReportFormats lists every supported report format.
var ReportFormats = []string{ReportJSON, ReportXLSX, ReportPDF, ReportDXF}

// AppConfig holds application-wide preferences. It is persisted as YAML and
// overridden by command-line flags.
type AppConfig struct {
	Extensions []string `yaml:"extensions"` // region file extensions, with leading dot
	Reports    []string `yaml:"reports"`    // report formats written next to the output dirs
	Archive    bool     `yaml:"archive"`    // zip the wholecell and nucleus dirs after copying
	Strict     bool     `yaml:"strict"`     // abort when a region file cannot be decoded
}

// DefaultAppConfig returns an AppConfig populated with the defaults: ImageJ
// ROI files only, no reports, no archives, lenient decoding.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Extensions: []string{".roi"},
		Reports:    []string{},
		Archive:    false,
		Strict:     false,
	}
}

// Normalize lowercases extensions and report names and adds missing dots.
func (c *AppConfig) Normalize() {
	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}
	for i, r := range c.Reports {
		c.Reports[i] = strings.ToLower(strings.TrimSpace(r))
	}
	if c.Reports == nil {
		c.Reports = []string{}
	}
}

// Validate checks that at least one extension is set and that every report
// format is known.
func (c AppConfig) Validate() error {
	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one region file extension is required")
	}
	for _, ext := range c.Extensions {
		if ext == "" || ext == "." {
			return fmt.Errorf("invalid region file extension %q", ext)
		}
	}
	for _, r := range c.Reports {
		if !isReportFormat(r) {
			return fmt.Errorf("unknown report format %q (use %s)", r, strings.Join(ReportFormats, ", "))
		}
	}
	return nil
}

func isReportFormat(name string) bool {
	for _, f := range ReportFormats {
		if f == name {
			return true
		}
	}
	return false
}
