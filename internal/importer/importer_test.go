package importer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piwi3910/RoiPair/internal/model"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"
)

func squareOutline(x, y, side float64) model.Outline {
	return model.Outline{
		{X: x, Y: y},
		{X: x + side, Y: y},
		{X: x + side, Y: y + side},
		{X: x, Y: y + side},
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// boundsROI builds a header-only ROI of the given type and integer bounds.
func boundsROI(typ RoiType, left, top, right, bottom int) []byte {
	data := make([]byte, roiHeaderSize)
	copy(data, roiMagic)
	be := binary.BigEndian
	be.PutUint16(data[offVersion:], 228)
	data[offType] = byte(typ)
	be.PutUint16(data[offTop:], uint16(top))
	be.PutUint16(data[offLeft:], uint16(left))
	be.PutUint16(data[offBottom:], uint16(bottom))
	be.PutUint16(data[offRight:], uint16(right))
	return data
}

// ─── DecodeImageJ Tests ────────────────────────────────────

func TestDecodeImageJ_IntegerPolygon(t *testing.T) {
	want := model.Outline{{X: 12, Y: 30}, {X: 40, Y: 31}, {X: 25, Y: 55}}
	got, err := DecodeImageJ(EncodeImageJPolygon(want, false))
	if err != nil {
		t.Fatalf("DecodeImageJ failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestDecodeImageJ_HandBuiltPolygon(t *testing.T) {
	// Laid out byte by byte as ImageJ's RoiEncoder writes a polygon.
	data := make([]byte, 64+4*3)
	copy(data[0:4], "Iout")
	binary.BigEndian.PutUint16(data[4:], 228) // version
	data[6] = 0                               // polygon
	binary.BigEndian.PutUint16(data[8:], 30)  // top
	binary.BigEndian.PutUint16(data[10:], 12) // left
	binary.BigEndian.PutUint16(data[12:], 55) // bottom
	binary.BigEndian.PutUint16(data[14:], 40) // right
	binary.BigEndian.PutUint16(data[16:], 3)  // n coordinates
	for i, x := range []uint16{0, 28, 13} {
		binary.BigEndian.PutUint16(data[64+2*i:], x)
	}
	for i, y := range []uint16{0, 1, 25} {
		binary.BigEndian.PutUint16(data[70+2*i:], y)
	}

	got, err := DecodeImageJ(data)
	if err != nil {
		t.Fatalf("DecodeImageJ failed: %v", err)
	}
	want := model.Outline{{X: 12, Y: 30}, {X: 40, Y: 31}, {X: 25, Y: 55}}
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if enc := EncodeImageJPolygon(want, false); !bytes.Equal(enc, data) {
		t.Error("EncodeImageJPolygon does not match the hand-built layout")
	}
}

func TestDecodeImageJ_SubPixelPolygon(t *testing.T) {
	want := model.Outline{{X: 10.25, Y: 20.5}, {X: 30.75, Y: 20.5}, {X: 30.75, Y: 44.125}, {X: 10.25, Y: 44.125}}
	got, err := DecodeImageJ(EncodeImageJPolygon(want, true))
	if err != nil {
		t.Fatalf("DecodeImageJ failed: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestDecodeImageJ_IntegerRoundsSubPixelInput(t *testing.T) {
	in := model.Outline{{X: 10.4, Y: 20.6}, {X: 30.5, Y: 20.6}, {X: 30.5, Y: 44.2}}
	got, err := DecodeImageJ(EncodeImageJPolygon(in, false))
	if err != nil {
		t.Fatalf("DecodeImageJ failed: %v", err)
	}
	if got[0] != (model.Point2D{X: 10, Y: 21}) {
		t.Errorf("expected first point rounded to (10, 21), got %v", got[0])
	}
}

func TestDecodeImageJ_Rect(t *testing.T) {
	got, err := DecodeImageJ(boundsROI(RoiRect, 5, 10, 25, 20))
	if err != nil {
		t.Fatalf("DecodeImageJ failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 corners, got %d", len(got))
	}
	if a := got.Area(); math.Abs(a-200) > 1e-9 {
		t.Errorf("expected area 200, got %f", a)
	}
}

func TestDecodeImageJ_Oval(t *testing.T) {
	got, err := DecodeImageJ(boundsROI(RoiOval, 0, 0, 20, 10))
	if err != nil {
		t.Fatalf("DecodeImageJ failed: %v", err)
	}
	if len(got) != ovalSegments {
		t.Fatalf("expected %d points, got %d", ovalSegments, len(got))
	}
	ellipse := math.Pi * 10 * 5
	if a := got.Area(); a > ellipse || a < 0.99*ellipse {
		t.Errorf("oval area %f not within 1%% below ellipse area %f", a, ellipse)
	}
	c := got.Centroid()
	if math.Abs(c.X-10) > 1e-6 || math.Abs(c.Y-5) > 1e-6 {
		t.Errorf("expected centroid (10, 5), got %v", c)
	}
}

func TestDecodeImageJ_BadMagic(t *testing.T) {
	data := boundsROI(RoiRect, 0, 0, 10, 10)
	copy(data, "PK\x03\x04")
	_, err := DecodeImageJ(data)
	if !errors.Is(err, ErrNotROI) {
		t.Errorf("expected ErrNotROI, got %v", err)
	}
}

func TestDecodeImageJ_ShortData(t *testing.T) {
	_, err := DecodeImageJ([]byte("Iout"))
	if !errors.Is(err, ErrNotROI) {
		t.Errorf("expected ErrNotROI, got %v", err)
	}
}

func TestDecodeImageJ_UnsupportedTypes(t *testing.T) {
	for _, typ := range []RoiType{RoiLine, RoiPolyLine, RoiFreeLine, RoiAngle, RoiPoint, RoiNoRoi} {
		t.Run(typ.String(), func(t *testing.T) {
			_, err := DecodeImageJ(boundsROI(typ, 0, 0, 10, 10))
			if !errors.Is(err, ErrUnsupportedType) {
				t.Errorf("expected ErrUnsupportedType, got %v", err)
			}
		})
	}
}

func TestDecodeImageJ_CompositeRejected(t *testing.T) {
	data := boundsROI(RoiRect, 0, 0, 10, 10)
	binary.BigEndian.PutUint32(data[offShapeRoiSize:], 12)
	_, err := DecodeImageJ(data)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestDecodeImageJ_TooFewVertices(t *testing.T) {
	line := model.Outline{{X: 0, Y: 0}, {X: 5, Y: 5}}
	_, err := DecodeImageJ(EncodeImageJPolygon(line, false))
	if !errors.Is(err, ErrTooFewVertices) {
		t.Errorf("expected ErrTooFewVertices, got %v", err)
	}
}

func TestDecodeImageJ_Truncated(t *testing.T) {
	data := EncodeImageJPolygon(squareOutline(0, 0, 10), false)
	if _, err := DecodeImageJ(data[:roiHeaderSize+6]); err == nil {
		t.Error("expected error for truncated coordinates")
	}
}

// ─── DXF Tests ─────────────────────────────────────────────

func TestLoadDXF_LwPolyline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cell.dxf")
	d := dxf.NewDrawing()
	if _, err := d.LwPolyline(true, []float64{0, 0}, []float64{10, 0}, []float64{10, 10}, []float64{0, 10}); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	outline, err := LoadDXF(path)
	if err != nil {
		t.Fatalf("LoadDXF failed: %v", err)
	}
	if len(outline) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(outline))
	}
	if a := outline.Area(); math.Abs(a-100) > 1e-6 {
		t.Errorf("expected area 100, got %f", a)
	}
}

func TestLoadDXF_CircleFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nucleus.dxf")
	d := dxf.NewDrawing()
	if _, err := d.Circle(50, 50, 0, 5); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	outline, err := LoadDXF(path)
	if err != nil {
		t.Fatalf("LoadDXF failed: %v", err)
	}
	if len(outline) != circleSegments {
		t.Errorf("expected %d vertices, got %d", circleSegments, len(outline))
	}
	c := outline.Centroid()
	if math.Abs(c.X-50) > 1e-6 || math.Abs(c.Y-50) > 1e-6 {
		t.Errorf("expected centroid (50, 50), got %v", c)
	}
}

func TestLoadDXF_MissingFile(t *testing.T) {
	if _, err := LoadDXF(filepath.Join(t.TempDir(), "nope.dxf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBulgeArcPoints_Semicircle(t *testing.T) {
	// A bulge of 1 is a half circle.
	pts := bulgeArcPoints(model.Point2D{X: 0, Y: 0}, model.Point2D{X: 10, Y: 0}, 1, 16)
	for _, p := range pts {
		r := math.Hypot(p.X-5, p.Y)
		if math.Abs(r-5) > 1e-9 {
			t.Fatalf("point %v is %f from center, expected 5", p, r)
		}
	}
}

func TestBulgeArcPoints_QuarterArcStaysOnCircle(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 model.Point2D
		bulge  float64
	}{
		{"counter-clockwise", model.Point2D{X: 1, Y: 0}, model.Point2D{X: 0, Y: 1}, math.Tan(math.Pi / 8)},
		{"clockwise", model.Point2D{X: 0, Y: 1}, model.Point2D{X: 1, Y: 0}, -math.Tan(math.Pi / 8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := bulgeArcPoints(tt.p1, tt.p2, tt.bulge, 16)
			for _, p := range pts {
				if r := math.Hypot(p.X, p.Y); math.Abs(r-1) > 1e-9 {
					t.Fatalf("point %v is %f from the origin, expected 1", p, r)
				}
			}
			mid := pts[8]
			want := math.Sqrt2 / 2
			if math.Abs(mid.X-want) > 1e-9 || math.Abs(mid.Y-want) > 1e-9 {
				t.Errorf("expected arc midpoint (%f, %f), got %v", want, want, mid)
			}
		})
	}
}

func TestBulgeArcPoints_MajorArc(t *testing.T) {
	// Three quarters of the unit circle, counter-clockwise from (1,0) to (0,-1).
	pts := bulgeArcPoints(model.Point2D{X: 1, Y: 0}, model.Point2D{X: 0, Y: -1}, math.Tan(3*math.Pi/8), 24)
	for _, p := range pts {
		if r := math.Hypot(p.X, p.Y); math.Abs(r-1) > 1e-9 {
			t.Fatalf("point %v is %f from the origin, expected 1", p, r)
		}
	}
	// Passes through (-1, 0) halfway along the sweep.
	if mid := pts[16]; math.Abs(mid.X+1) > 1e-9 || math.Abs(mid.Y) > 1e-9 {
		t.Errorf("expected (-1, 0) on the arc, got %v", mid)
	}
}

func TestLwPolylineToOutline_QuarterDisk(t *testing.T) {
	lw := entity.NewLwPolyline(3)
	lw.Vertices = [][]float64{{0, 0}, {10, 0}, {0, 10}}
	lw.Bulges = []float64{0, math.Tan(math.Pi / 8), 0}

	r := model.NewRegion("quarter.dxf", "quarter.dxf", lwPolylineToOutline(lw))

	if want := 25 * math.Pi; math.Abs(r.Area-want) > 0.1 {
		t.Errorf("expected area ~%f, got %f", want, r.Area)
	}
	want := 40 / (3 * math.Pi)
	if math.Abs(r.Centroid.X-want) > 0.02 || math.Abs(r.Centroid.Y-want) > 0.02 {
		t.Errorf("expected centroid ~(%f, %f), got %v", want, want, r.Centroid)
	}
}

// ─── Discover / LoadDir Tests ──────────────────────────────

func TestDiscover_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.roi", "a.ROI", "c.txt", "d.roi"} {
		writeFile(t, dir, name, []byte("x"))
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.roi"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := Discover(dir, []string{".roi"})
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	if strings.Join(names, ",") != "a.ROI,b.roi,d.roi" {
		t.Errorf("unexpected files %v", names)
	}
}

func TestDiscover_MissingDir(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "missing"), []string{".roi"}); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoadDir_SkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cell.roi", EncodeImageJPolygon(squareOutline(0, 0, 10), false))
	writeFile(t, dir, "broken.roi", []byte("not a roi at all"))
	writeFile(t, dir, "nucleus.roi", EncodeImageJPolygon(squareOutline(3, 3, 2), false))

	result := LoadDir(dir, []string{".roi"})

	if len(result.Regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(result.Regions))
	}
	if result.Regions[0].ID != "cell.roi" || result.Regions[1].ID != "nucleus.roi" {
		t.Errorf("unexpected region order %s, %s", result.Regions[0].ID, result.Regions[1].ID)
	}
	if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], "broken.roi:") {
		t.Errorf("expected one error for broken.roi, got %v", result.Errors)
	}
	if math.Abs(result.Regions[0].Area-100) > 1e-9 {
		t.Errorf("expected area 100, got %f", result.Regions[0].Area)
	}
}

func TestLoadDir_MixedFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.roi", EncodeImageJPolygon(squareOutline(0, 0, 10), false))
	d := dxf.NewDrawing()
	if _, err := d.Circle(5, 5, 0, 1); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveAs(filepath.Join(dir, "b.dxf")); err != nil {
		t.Fatal(err)
	}

	result := LoadDir(dir, []string{".roi", ".dxf"})
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	if len(result.Regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(result.Regions))
	}
}

func TestLoadDir_Empty(t *testing.T) {
	result := LoadDir(t.TempDir(), []string{".roi"})
	if len(result.Regions) != 0 || len(result.Errors) != 0 {
		t.Errorf("expected nothing, got %+v", result)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", result.Warnings)
	}
}

func TestLoadDir_ZeroAreaWarning(t *testing.T) {
	dir := t.TempDir()
	collinear := model.Outline{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}}
	writeFile(t, dir, "flat.roi", EncodeImageJPolygon(collinear, false))

	result := LoadDir(dir, []string{".roi"})
	if len(result.Regions) != 1 {
		t.Fatalf("expected region to be kept, got %d", len(result.Regions))
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "no area") {
		t.Errorf("expected zero-area warning, got %v", result.Warnings)
	}
}
