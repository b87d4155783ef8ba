// Package export turns a pairing result into files: indexed copies of the
// region files in a wholecell and a nucleus directory, optional reports and
// optional zip archives.
package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	cellSuffix    = "_wholecell"
	nucleusSuffix = "_nucleus"
)

// Layout is the set of output paths for one input directory.
type Layout struct {
	Stem    string // input directory base name without extension
	Out     string // output root
	Cell    string // Out/<stem>_wholecell
	Nucleus string // Out/<stem>_nucleus
}

// NewLayout derives the output paths. An empty outputDir means the parent of
// inputDir.
func NewLayout(inputDir, outputDir string) Layout {
	in := filepath.Clean(inputDir)
	out := outputDir
	if out == "" {
		out = filepath.Dir(in)
	}
	stem := dirStem(in)
	return Layout{
		Stem:    stem,
		Out:     out,
		Cell:    filepath.Join(out, stem+cellSuffix),
		Nucleus: filepath.Join(out, stem+nucleusSuffix),
	}
}

func dirStem(dir string) string {
	base := filepath.Base(dir)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return base
	}
	return stem
}

// EnsureDirs creates Out, Cell and Nucleus in that order. A directory that
// already exists is logged and kept.
func (l Layout) EnsureDirs(log *zap.Logger) error {
	for _, d := range []string{l.Out, l.Cell, l.Nucleus} {
		info, err := os.Stat(d)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("output path is not a directory: %s", d)
			}
			log.Info("Directory already exists", zap.String("dir", d))
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to inspect output directory: %w", err)
		}
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		log.Debug("Created directory", zap.String("dir", d))
	}
	return nil
}

// ReportPath returns the path of the report with the given file extension.
func (l Layout) ReportPath(ext string) string {
	return filepath.Join(l.Out, l.Stem+"_pairs."+ext)
}
