package export

import (
	"fmt"

	"github.com/piwi3910/RoiPair/internal/model"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
)

// Overlay layer names.
const (
	LayerWholeCell = "WHOLECELL"
	LayerNucleus   = "NUCLEUS"
	LayerUnpaired  = "UNPAIRED"
	LayerLabels    = "LABELS"
)

const dxfTextHeight = 4.0

// ExportDXF writes every region as a closed LWPOLYLINE on a layer for its
// role, plus the pair index at each container centroid. Y is negated so the
// image appears upright in CAD viewers.
func ExportDXF(path string, r Report) error {
	d := dxf.NewDrawing()

	layers := []struct {
		name string
		col  color.ColorNumber
	}{
		{LayerWholeCell, color.Green},
		{LayerNucleus, color.Red},
		{LayerUnpaired, color.White},
		{LayerLabels, color.Cyan},
	}
	for _, l := range layers {
		if _, err := d.AddLayer(l.name, l.col, dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("failed to add layer %s: %w", l.name, err)
		}
	}

	for i, p := range r.Result.Pairs {
		if err := addOutline(d, LayerWholeCell, p.Container.Outline); err != nil {
			return err
		}
		if err := addOutline(d, LayerNucleus, p.Contained.Outline); err != nil {
			return err
		}
		if err := d.ChangeLayer(LayerLabels); err != nil {
			return fmt.Errorf("failed to select layer %s: %w", LayerLabels, err)
		}
		c := p.Container.Centroid
		if _, err := d.Text(fmt.Sprintf("%02d", i+1), c.X, -c.Y, 0, dxfTextHeight); err != nil {
			return fmt.Errorf("failed to add label: %w", err)
		}
	}
	for _, u := range r.Result.Unpaired {
		if err := addOutline(d, LayerUnpaired, u.Outline); err != nil {
			return err
		}
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save DXF: %w", err)
	}
	return nil
}

func addOutline(d *drawing.Drawing, layer string, o model.Outline) error {
	if len(o) < 3 {
		return nil
	}
	if err := d.ChangeLayer(layer); err != nil {
		return fmt.Errorf("failed to select layer %s: %w", layer, err)
	}
	vertices := make([][]float64, len(o))
	for i, p := range o {
		vertices[i] = []float64{p.X, -p.Y}
	}
	if _, err := d.LwPolyline(true, vertices...); err != nil {
		return fmt.Errorf("failed to add polyline: %w", err)
	}
	return nil
}
