package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/piwi3910/RoiPair/internal/model"
	"go.uber.org/zap"
)

// Report is everything a report writer needs about one run.
type Report struct {
	RunID     string
	CreatedAt time.Time
	InputDir  string
	Layout    Layout
	Result    model.PairingResult
	Plans     []CopyPlan
}

// NewReport stamps a run with a fresh identifier and the current time.
func NewReport(inputDir string, layout Layout, result model.PairingResult) Report {
	return Report{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		InputDir:  inputDir,
		Layout:    layout,
		Result:    result,
		Plans:     Plan(result, layout),
	}
}

// ManifestRegion is one region as it appears in the JSON manifest.
type ManifestRegion struct {
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Area      float64 `json:"area"`
	CentroidX float64 `json:"centroid_x"`
	CentroidY float64 `json:"centroid_y"`
}

// ManifestPair is one indexed pair in the JSON manifest.
type ManifestPair struct {
	Index         int            `json:"index"`
	Cell          ManifestRegion `json:"cell"`
	CellOutput    string         `json:"cell_output"`
	Nucleus       ManifestRegion `json:"nucleus"`
	NucleusOutput string         `json:"nucleus_output"`
}

// Manifest is the machine-readable record of a run.
type Manifest struct {
	RunID      string           `json:"run_id"`
	CreatedAt  string           `json:"created_at"`
	InputDir   string           `json:"input_dir"`
	CellDir    string           `json:"cell_dir"`
	NucleusDir string           `json:"nucleus_dir"`
	Regions    int              `json:"regions"`
	Pairs      []ManifestPair   `json:"pairs"`
	Unpaired   []ManifestRegion `json:"unpaired"`
}

func manifestRegion(r model.Region) ManifestRegion {
	return ManifestRegion{
		ID:        r.ID,
		Source:    r.Path,
		Area:      r.Area,
		CentroidX: r.Centroid.X,
		CentroidY: r.Centroid.Y,
	}
}

// BuildManifest converts a report into its manifest form.
func BuildManifest(r Report) Manifest {
	m := Manifest{
		RunID:      r.RunID,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		InputDir:   r.InputDir,
		CellDir:    r.Layout.Cell,
		NucleusDir: r.Layout.Nucleus,
		Regions:    r.Result.RegionCount(),
		Pairs:      make([]ManifestPair, 0, len(r.Plans)),
		Unpaired:   make([]ManifestRegion, 0, len(r.Result.Unpaired)),
	}
	for i, p := range r.Result.Pairs {
		plan := r.Plans[i]
		m.Pairs = append(m.Pairs, ManifestPair{
			Index:         plan.Index,
			Cell:          manifestRegion(p.Container),
			CellOutput:    plan.CellDst,
			Nucleus:       manifestRegion(p.Contained),
			NucleusOutput: plan.NucleusDst,
		})
	}
	for _, u := range r.Result.Unpaired {
		m.Unpaired = append(m.Unpaired, manifestRegion(u))
	}
	return m
}

// ExportJSON writes the run manifest as indented JSON.
func ExportJSON(path string, r Report) error {
	data, err := json.MarshalIndent(BuildManifest(r), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// WriteReports writes one report per requested format into the layout's
// output root and returns the written paths in request order.
func WriteReports(formats []string, r Report, log *zap.Logger) ([]string, error) {
	var written []string
	for _, format := range formats {
		path := r.Layout.ReportPath(format)
		var err error
		switch format {
		case model.ReportJSON:
			err = ExportJSON(path, r)
		case model.ReportXLSX:
			err = ExportXLSX(path, r)
		case model.ReportPDF:
			err = ExportPDF(path, r)
		case model.ReportDXF:
			err = ExportDXF(path, r)
		default:
			err = fmt.Errorf("unknown report format %q", format)
		}
		if err != nil {
			return written, fmt.Errorf("%s report: %w", format, err)
		}
		log.Info("Wrote report", zap.String("format", format), zap.String("file", path))
		written = append(written, path)
	}
	return written, nil
}
