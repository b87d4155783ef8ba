package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// PairLabel holds the data encoded into each pair label's QR code.
type PairLabel struct {
	RunID         string  `json:"run"`
	Index         int     `json:"index"`
	Cell          string  `json:"cell"`
	Nucleus       string  `json:"nucleus"`
	CellOutput    string  `json:"cell_file"`
	NucleusOutput string  `json:"nucleus_file"`
	CentroidX     float64 `json:"x"`
	CentroidY     float64 `json:"y"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelPageWidth  = 215.9 // US Letter width in mm
	labelPageHeight = 279.4 // US Letter height in mm
	labelMarginTop  = 12.7  // mm
	labelMarginLeft = 4.8   // mm
	labelWidth      = 66.7  // mm per label
	labelHeight     = 25.4  // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// CollectPairLabels builds one label per pair in index order.
func CollectPairLabels(r Report) []PairLabel {
	labels := make([]PairLabel, 0, len(r.Plans))
	for i, plan := range r.Plans {
		c := r.Result.Pairs[i].Container.Centroid
		labels = append(labels, PairLabel{
			RunID:         r.RunID,
			Index:         plan.Index,
			Cell:          plan.CellID,
			Nucleus:       plan.NucleusID,
			CellOutput:    filepath.Base(plan.CellDst),
			NucleusOutput: filepath.Base(plan.NucleusDst),
			CentroidX:     c.X,
			CentroidY:     c.Y,
		})
	}
	return labels
}

// renderPairLabels appends Letter portrait pages of labels. Nothing is added
// when there are no pairs.
func renderPairLabels(pdf *fpdf.Fpdf, labels []PairLabel) error {
	size := fpdf.SizeType{Wd: labelPageWidth, Ht: labelPageHeight}
	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPageFormat("P", size)
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for pair %d: %w", label.Index, err)
		}
	}
	return nil
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info PairLabel) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_pair_%d", info.Index)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 4.5, fmt.Sprintf("Pair %02d", info.Index), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	pdf.CellFormat(textW, 3.5, truncate(pdf, info.CellOutput, textW), "", 1, "L", false, 0, "")
	pdf.SetXY(textX, y+labelPadding+9)
	pdf.CellFormat(textW, 3.5, truncate(pdf, info.NucleusOutput, textW), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+13)
	pdf.CellFormat(textW, 3, fmt.Sprintf("@ (%.0f, %.0f) px", info.CentroidX, info.CentroidY), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// truncate shortens s with an ellipsis until it fits in w.
func truncate(pdf *fpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > w {
		s = s[:len(s)-1]
	}
	return s + "..."
}
