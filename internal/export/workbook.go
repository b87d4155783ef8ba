package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	pairsSheet    = "Pairs"
	unpairedSheet = "Unpaired"
	runSheet      = "Run"
)

// ExportXLSX writes the pairing as a workbook with a Pairs sheet, an
// Unpaired sheet and a Run sheet holding the run metadata.
func ExportXLSX(path string, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), pairsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	pairRows := [][]interface{}{
		{"Index", "Cell", "Cell area", "Cell centroid X", "Cell centroid Y", "Cell output",
			"Nucleus", "Nucleus area", "Nucleus centroid X", "Nucleus centroid Y", "Nucleus output"},
	}
	for i, p := range r.Result.Pairs {
		plan := r.Plans[i]
		c, n := p.Container, p.Contained
		pairRows = append(pairRows, []interface{}{
			plan.Index, c.ID, c.Area, c.Centroid.X, c.Centroid.Y, plan.CellDst,
			n.ID, n.Area, n.Centroid.X, n.Centroid.Y, plan.NucleusDst,
		})
	}
	if err := writeRows(f, pairsSheet, pairRows); err != nil {
		return err
	}

	if _, err := f.NewSheet(unpairedSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	unpairedRows := [][]interface{}{{"Region", "Area", "Centroid X", "Centroid Y", "Source"}}
	for _, u := range r.Result.Unpaired {
		unpairedRows = append(unpairedRows, []interface{}{u.ID, u.Area, u.Centroid.X, u.Centroid.Y, u.Path})
	}
	if err := writeRows(f, unpairedSheet, unpairedRows); err != nil {
		return err
	}

	if _, err := f.NewSheet(runSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	runRows := [][]interface{}{
		{"Run ID", r.RunID},
		{"Created", r.CreatedAt.Format(time.RFC3339)},
		{"Input", r.InputDir},
		{"Wholecell dir", r.Layout.Cell},
		{"Nucleus dir", r.Layout.Nucleus},
		{"Regions", r.Result.RegionCount()},
		{"Pairs", len(r.Result.Pairs)},
		{"Unpaired", len(r.Result.Unpaired)},
	}
	if err := writeRows(f, runSheet, runRows); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to create cell reference: %w", err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
