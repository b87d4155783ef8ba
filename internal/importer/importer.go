// Package importer turns a directory of per-region geometry files into
// model.Regions. It decodes ImageJ .roi files and DXF outlines, derives area
// and centroid, and collects per-file problems instead of failing the batch.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/piwi3910/RoiPair/internal/model"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Regions  []model.Region
	Errors   []string
	Warnings []string
}

// Discover lists the regular files directly inside dir whose extension is in
// exts (case-insensitive). Paths are returned in lexicographic order of their
// names, which is the pending order used by the pairing engine.
func Discover(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read region directory: %w", err)
	}

	wanted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		wanted[strings.ToLower(ext)] = true
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if wanted[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// LoadFile decodes one geometry file into an outline, choosing the decoder by
// extension. Anything that is not DXF is read as an ImageJ ROI.
func LoadFile(path string) (model.Outline, error) {
	if strings.EqualFold(filepath.Ext(path), ".dxf") {
		return LoadDXF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open ROI file: %w", err)
	}
	return DecodeImageJ(data)
}

// LoadDir discovers and decodes every region file in dir. Files that fail to
// decode are reported in Errors and left out of Regions.
func LoadDir(dir string, exts []string) ImportResult {
	result := ImportResult{}

	files, err := Discover(dir, exts)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	if len(files) == 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("No files with extension %s found", strings.Join(exts, ", ")))
		return result
	}

	for _, path := range files {
		name := filepath.Base(path)
		outline, err := LoadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		region := model.NewRegion(name, path, outline)
		if region.Area == 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: polygon encloses no area", name))
		}
		result.Regions = append(result.Regions, region)
	}

	return result
}
