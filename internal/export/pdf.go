package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/RoiPair/internal/model"
	qrcode "github.com/skip2/go-qrcode"
)

// pairColor represents an RGB color for one pair.
type pairColor struct {
	R, G, B int
}

var pairColors = []pairColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	runQRSize    = 28.0
	drawAreaTop  = marginTop + headerHeight + 5.0
	tableRowH    = 6.0
)

// runSummary is the payload of the overview page QR code.
type runSummary struct {
	RunID    string `json:"run_id"`
	Input    string `json:"input"`
	Created  string `json:"created"`
	Regions  int    `json:"regions"`
	Pairs    int    `json:"pairs"`
	Unpaired int    `json:"unpaired"`
}

// ExportPDF renders an overview page with every region drawn in image
// coordinates, a pair table and a sheet of QR-coded pair labels.
func ExportPDF(path string, r Report) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	pdf.AddPage()
	if err := renderOverviewPage(pdf, r); err != nil {
		return err
	}

	renderPairTable(pdf, r)

	if err := renderPairLabels(pdf, CollectPairLabels(r)); err != nil {
		return err
	}

	return pdf.OutputFileAndClose(path)
}

func renderOverviewPage(pdf *fpdf.Fpdf, r Report) error {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Region pairing: %s", r.Layout.Stem)
	pdf.CellFormat(pageWidth-marginLeft-marginRight-runQRSize, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Regions: %d | Pairs: %d | Unpaired: %d",
		r.Result.RegionCount(), len(r.Result.Pairs), len(r.Result.Unpaired))
	pdf.CellFormat(pageWidth-marginLeft-marginRight-runQRSize, 5, stats, "", 0, "L", false, 0, "")

	summary, err := json.Marshal(runSummary{
		RunID:    r.RunID,
		Input:    r.InputDir,
		Created:  r.CreatedAt.Format(time.RFC3339),
		Regions:  r.Result.RegionCount(),
		Pairs:    len(r.Result.Pairs),
		Unpaired: len(r.Result.Unpaired),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	qrPNG, err := qrcode.Encode(string(summary), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}
	pdf.RegisterImageOptionsReader("qr_run", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr_run", pageWidth-marginRight-runQRSize, marginTop, runQRSize, runQRSize,
		false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	min, max, ok := resultBounds(r.Result)
	if !ok {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetXY(marginLeft, drawAreaTop+10)
		pdf.CellFormat(100, 6, "No regions found.", "", 0, "L", false, 0, "")
		return nil
	}

	drawTop := marginTop + runQRSize + 4
	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawTop - marginBottom
	spanX := math.Max(max.X-min.X, 1)
	spanY := math.Max(max.Y-min.Y, 1)
	scale := math.Min(drawWidth/spanX, drawHeight/spanY)
	offsetX := marginLeft + (drawWidth-spanX*scale)/2
	offsetY := drawTop

	toPage := func(o model.Outline) []fpdf.PointType {
		return pageOutline(o, min, scale, offsetX, offsetY)
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.2)
	pdf.Rect(offsetX, offsetY, spanX*scale, spanY*scale, "D")

	// Unpaired regions, dashed grey.
	pdf.SetDrawColor(150, 150, 150)
	pdf.SetDashPattern([]float64{1, 1}, 0)
	for _, u := range r.Result.Unpaired {
		if len(u.Outline) >= 3 {
			pdf.Polygon(toPage(u.Outline), "D")
		}
	}
	pdf.SetDashPattern([]float64{}, 0)

	for i, p := range r.Result.Pairs {
		col := pairColors[i%len(pairColors)]
		pdf.SetDrawColor(col.R, col.G, col.B)
		pdf.SetLineWidth(0.4)
		if len(p.Container.Outline) >= 3 {
			pdf.Polygon(toPage(p.Container.Outline), "D")
		}
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetLineWidth(0.2)
		if len(p.Contained.Outline) >= 3 {
			pdf.Polygon(toPage(p.Contained.Outline), "FD")
		}

		label := fmt.Sprintf("%02d", i+1)
		pdf.SetFont("Helvetica", "B", 6)
		pdf.SetTextColor(0, 0, 0)
		lw := pdf.GetStringWidth(label)
		cx := offsetX + (p.Container.Centroid.X-min.X)*scale
		cy := offsetY + (p.Container.Centroid.Y-min.Y)*scale
		pdf.SetXY(cx-lw/2, cy-5)
		pdf.CellFormat(lw, 3, label, "", 0, "C", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	return nil
}

// pageOutline moves o so that origin sits at the page offset, then scales it
// into page millimetres.
func pageOutline(o model.Outline, origin model.Point2D, scale, offsetX, offsetY float64) []fpdf.PointType {
	local := o.Translate(-origin.X, -origin.Y)
	pts := make([]fpdf.PointType, len(local))
	for i, p := range local {
		pts[i] = fpdf.PointType{X: offsetX + p.X*scale, Y: offsetY + p.Y*scale}
	}
	return pts
}

// resultBounds returns the bounding box over every region in the result.
func resultBounds(res model.PairingResult) (min, max model.Point2D, ok bool) {
	var all []model.Region
	for _, p := range res.Pairs {
		all = append(all, p.Container, p.Contained)
	}
	all = append(all, res.Unpaired...)

	for _, reg := range all {
		if len(reg.Outline) == 0 {
			continue
		}
		lo, hi := reg.Outline.BoundingBox()
		if !ok {
			min, max, ok = lo, hi, true
			continue
		}
		min.X = math.Min(min.X, lo.X)
		min.Y = math.Min(min.Y, lo.Y)
		max.X = math.Max(max.X, hi.X)
		max.Y = math.Max(max.Y, hi.Y)
	}
	return min, max, ok
}

// renderPairTable lists pairs and then unpaired regions, adding pages as
// rows run out.
func renderPairTable(pdf *fpdf.Fpdf, r Report) {
	colWidths := []float64{15, 65, 30, 65, 30, 62}
	headers := []string{"Index", "Cell", "Cell area", "Nucleus", "Nucleus area", "Cell centroid"}

	var y float64
	newPage := func() {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetXY(marginLeft, marginTop)
		pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Pairs", "", 0, "L", false, 0, "")
		y = marginTop + 12

		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		x := marginLeft
		for i, h := range headers {
			pdf.SetXY(x, y)
			pdf.CellFormat(colWidths[i], tableRowH, h, "1", 0, "C", true, 0, "")
			x += colWidths[i]
		}
		y += tableRowH
		pdf.SetFont("Helvetica", "", 9)
	}
	newPage()

	for i, p := range r.Result.Pairs {
		if y+tableRowH > pageHeight-marginBottom {
			newPage()
		}
		row := []string{
			fmt.Sprintf("%02d", r.Plans[i].Index),
			p.Container.ID,
			fmt.Sprintf("%.1f", p.Container.Area),
			p.Contained.ID,
			fmt.Sprintf("%.1f", p.Contained.Area),
			fmt.Sprintf("(%.1f, %.1f)", p.Container.Centroid.X, p.Container.Centroid.Y),
		}
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		x := marginLeft
		for j, cell := range row {
			pdf.SetXY(x, y)
			pdf.CellFormat(colWidths[j], tableRowH, cell, "1", 0, "C", true, 0, "")
			x += colWidths[j]
		}
		y += tableRowH
	}

	if len(r.Result.Unpaired) == 0 {
		return
	}

	y += 8
	if y+2*tableRowH > pageHeight-marginBottom {
		newPage()
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(200, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(200, 7, fmt.Sprintf("Unpaired regions (%d)", len(r.Result.Unpaired)), "", 0, "L", false, 0, "")
	y += 8

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, u := range r.Result.Unpaired {
		if y+5 > pageHeight-marginBottom {
			newPage()
		}
		pdf.SetXY(marginLeft+5, y)
		text := fmt.Sprintf("- %s: area %.1f, centroid (%.1f, %.1f)", u.ID, u.Area, u.Centroid.X, u.Centroid.Y)
		pdf.CellFormat(250, 5, text, "", 0, "L", false, 0, "")
		y += 5
	}
}
