package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/piwi3910/RoiPair/internal/model"
	"go.uber.org/zap"
)

// CellFileName returns the wholecell name for the pair with 1-based index i.
func CellFileName(i int, name string) string {
	return fmt.Sprintf("c%02d_%s", i, name)
}

// NucleusFileName returns the nucleus name for the pair with 1-based index i.
func NucleusFileName(i int, name string) string {
	return fmt.Sprintf("n%02d_%s", i, name)
}

// CopyPlan is one indexed pair mapped onto its destination files.
type CopyPlan struct {
	Index      int
	CellSrc    string
	CellDst    string
	NucleusSrc string
	NucleusDst string
	CellID     string
	NucleusID  string
}

// Plan assigns each pair, in engine order, its 1-based index and output paths.
func Plan(result model.PairingResult, layout Layout) []CopyPlan {
	plans := make([]CopyPlan, 0, len(result.Pairs))
	for i, p := range result.Pairs {
		idx := i + 1
		plans = append(plans, CopyPlan{
			Index:      idx,
			CellSrc:    p.Container.Path,
			CellDst:    filepath.Join(layout.Cell, CellFileName(idx, p.Container.ID)),
			NucleusSrc: p.Contained.Path,
			NucleusDst: filepath.Join(layout.Nucleus, NucleusFileName(idx, p.Contained.ID)),
			CellID:     p.Container.ID,
			NucleusID:  p.Contained.ID,
		})
	}
	return plans
}

// CopyPairs copies every planned pair, one at a time in index order. The first
// failure stops the run. With dryRun set nothing is written.
func CopyPairs(plans []CopyPlan, dryRun bool, log *zap.Logger) error {
	for _, p := range plans {
		if dryRun {
			log.Info("Would create",
				zap.Int("index", p.Index),
				zap.String("cell", p.CellDst),
				zap.String("nucleus", p.NucleusDst))
			continue
		}
		if err := copyFile(p.CellSrc, p.CellDst); err != nil {
			return fmt.Errorf("pair %d: %w", p.Index, err)
		}
		log.Info("Created new file", zap.String("file", p.CellDst))
		if err := copyFile(p.NucleusSrc, p.NucleusDst); err != nil {
			return fmt.Errorf("pair %d: %w", p.Index, err)
		}
		log.Info("Created new file", zap.String("file", p.NucleusDst))
	}
	return nil
}

// copyFile copies src to dst, replacing dst and keeping src's permission bits.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", filepath.Base(src), err)
	}
	return nil
}
