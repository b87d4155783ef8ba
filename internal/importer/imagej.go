package importer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/piwi3910/RoiPair/internal/model"
)

// RoiType is the shape code stored at byte 6 of an ImageJ ROI header.
type RoiType uint8

const (
	RoiPolygon RoiType = iota
	RoiRect
	RoiOval
	RoiLine
	RoiFreeLine
	RoiPolyLine
	RoiNoRoi
	RoiFreehand
	RoiTraced
	RoiAngle
	RoiPoint
)

func (t RoiType) String() string {
	names := [...]string{"polygon", "rect", "oval", "line", "freeline", "polyline",
		"noroi", "freehand", "traced", "angle", "point"}
	if int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("type%d", uint8(t))
}

// Header field offsets (big-endian), as written by ImageJ's RoiEncoder.
const (
	roiMagic         = "Iout"
	roiHeaderSize    = 64
	offVersion       = 4
	offType          = 6
	offTop           = 8
	offLeft          = 10
	offBottom        = 12
	offRight         = 14
	offNCoordinates  = 16
	offSize          = 18 // int32 point count when NCoordinates overflows
	offXD            = 18 // sub-pixel rect: x, y, width, height as float32
	offYD            = 22
	offWidthD        = 26
	offHeightD       = 30
	offShapeRoiSize  = 36
	offOptions       = 50
	optionSubPixel   = 128
	subPixelVersion  = 222
	subPixelRectVers = 223
	ovalSegments     = 64
)

var (
	// ErrNotROI is returned when the data does not start with the ImageJ magic.
	ErrNotROI = errors.New("not an ImageJ ROI")
	// ErrUnsupportedType is returned for ROI shapes that do not enclose an area.
	ErrUnsupportedType = errors.New("unsupported ROI type")
	// ErrTooFewVertices is returned for outlines with fewer than 3 points.
	ErrTooFewVertices = errors.New("polygon has fewer than 3 vertices")
)

// roiHeader is the subset of the ImageJ header needed to rebuild an outline.
type roiHeader struct {
	version int
	typ     RoiType
	top     int
	left    int
	bottom  int
	right   int
	n       int
	options int
}

func (h roiHeader) subPixel() bool {
	return h.version >= subPixelVersion && h.options&optionSubPixel != 0
}

// DecodeImageJ decodes a single ImageJ .roi file into a closed outline.
// Polygon, freehand and traced ROIs yield their vertices; rect yields its four
// corners and oval a 64-gon inscribed in its bounds.
func DecodeImageJ(data []byte) (model.Outline, error) {
	if len(data) < roiHeaderSize || string(data[:4]) != roiMagic {
		return nil, ErrNotROI
	}
	be := binary.BigEndian
	h := roiHeader{
		version: int(be.Uint16(data[offVersion:])),
		typ:     RoiType(data[offType]),
		top:     int(int16(be.Uint16(data[offTop:]))),
		left:    int(int16(be.Uint16(data[offLeft:]))),
		bottom:  int(int16(be.Uint16(data[offBottom:]))),
		right:   int(int16(be.Uint16(data[offRight:]))),
		n:       int(be.Uint16(data[offNCoordinates:])),
		options: int(be.Uint16(data[offOptions:])),
	}
	if be.Uint32(data[offShapeRoiSize:]) > 0 {
		return nil, fmt.Errorf("%w: composite shape", ErrUnsupportedType)
	}

	var outline model.Outline
	switch h.typ {
	case RoiPolygon, RoiFreehand, RoiTraced:
		if h.n == 0 {
			h.n = int(be.Uint32(data[offSize:]))
		}
		pts, err := decodePoints(data, h)
		if err != nil {
			return nil, err
		}
		outline = pts
	case RoiRect:
		outline = rectOutline(data, h)
	case RoiOval:
		outline = ovalOutline(data, h)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, h.typ)
	}

	if len(outline) < 3 {
		return nil, ErrTooFewVertices
	}
	return outline, nil
}

// decodePoints reads the coordinate block that follows the header. Integer
// coordinates are stored relative to the bounding box; sub-pixel coordinates,
// when present, follow them as absolute float32 values.
func decodePoints(data []byte, h roiHeader) (model.Outline, error) {
	be := binary.BigEndian
	intBlock := roiHeaderSize + 4*h.n
	if len(data) < intBlock {
		return nil, fmt.Errorf("truncated coordinates: need %d bytes, have %d", intBlock, len(data))
	}

	if h.subPixel() && h.n > 0 {
		floatBlock := intBlock + 8*h.n
		if len(data) < floatBlock {
			return nil, fmt.Errorf("truncated sub-pixel coordinates: need %d bytes, have %d", floatBlock, len(data))
		}
		outline := make(model.Outline, h.n)
		for i := 0; i < h.n; i++ {
			x := math.Float32frombits(be.Uint32(data[intBlock+4*i:]))
			y := math.Float32frombits(be.Uint32(data[intBlock+4*h.n+4*i:]))
			outline[i] = model.Point2D{X: float64(x), Y: float64(y)}
		}
		return outline, nil
	}

	outline := make(model.Outline, h.n)
	for i := 0; i < h.n; i++ {
		x := int16(be.Uint16(data[roiHeaderSize+2*i:]))
		y := int16(be.Uint16(data[roiHeaderSize+2*h.n+2*i:]))
		outline[i] = model.Point2D{X: float64(h.left + int(x)), Y: float64(h.top + int(y))}
	}
	return outline, nil
}

// roiBounds returns x, y, width, height, honouring sub-pixel rect bounds.
func roiBounds(data []byte, h roiHeader) (x, y, w, hgt float64) {
	if h.version >= subPixelRectVers && h.options&optionSubPixel != 0 {
		be := binary.BigEndian
		return float64(math.Float32frombits(be.Uint32(data[offXD:]))),
			float64(math.Float32frombits(be.Uint32(data[offYD:]))),
			float64(math.Float32frombits(be.Uint32(data[offWidthD:]))),
			float64(math.Float32frombits(be.Uint32(data[offHeightD:])))
	}
	return float64(h.left), float64(h.top), float64(h.right - h.left), float64(h.bottom - h.top)
}

func rectOutline(data []byte, h roiHeader) model.Outline {
	x, y, w, hgt := roiBounds(data, h)
	if w <= 0 || hgt <= 0 {
		return nil
	}
	return model.Outline{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + hgt},
		{X: x, Y: y + hgt},
	}
}

// ovalOutline approximates the ellipse inscribed in the ROI bounds.
func ovalOutline(data []byte, h roiHeader) model.Outline {
	x, y, w, hgt := roiBounds(data, h)
	if w <= 0 || hgt <= 0 {
		return nil
	}
	cx, cy := x+w/2, y+hgt/2
	rx, ry := w/2, hgt/2
	outline := make(model.Outline, ovalSegments)
	for i := 0; i < ovalSegments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(ovalSegments)
		outline[i] = model.Point2D{
			X: cx + rx*math.Cos(angle),
			Y: cy + ry*math.Sin(angle),
		}
	}
	return outline
}

// EncodeImageJPolygon writes outline as an ImageJ polygon ROI. With subPixel
// set the float coordinates are stored as well; otherwise vertices are
// rounded to whole pixels.
func EncodeImageJPolygon(outline model.Outline, subPixel bool) []byte {
	n := len(outline)
	min, max := outline.BoundingBox()
	left, top := int(math.Floor(min.X)), int(math.Floor(min.Y))
	right, bottom := int(math.Ceil(max.X)), int(math.Ceil(max.Y))

	size := roiHeaderSize + 4*n
	if subPixel {
		size += 8 * n
	}
	data := make([]byte, size)
	be := binary.BigEndian

	copy(data, roiMagic)
	be.PutUint16(data[offVersion:], 228)
	data[offType] = byte(RoiPolygon)
	be.PutUint16(data[offTop:], uint16(int16(top)))
	be.PutUint16(data[offLeft:], uint16(int16(left)))
	be.PutUint16(data[offBottom:], uint16(int16(bottom)))
	be.PutUint16(data[offRight:], uint16(int16(right)))
	be.PutUint16(data[offNCoordinates:], uint16(n))
	if subPixel {
		be.PutUint16(data[offOptions:], optionSubPixel)
	}

	for i, p := range outline {
		x := int(math.Round(p.X)) - left
		y := int(math.Round(p.Y)) - top
		be.PutUint16(data[roiHeaderSize+2*i:], uint16(int16(x)))
		be.PutUint16(data[roiHeaderSize+2*n+2*i:], uint16(int16(y)))
	}
	if subPixel {
		base := roiHeaderSize + 4*n
		for i, p := range outline {
			be.PutUint32(data[base+4*i:], math.Float32bits(float32(p.X)))
			be.PutUint32(data[base+4*n+4*i:], math.Float32bits(float32(p.Y)))
		}
	}
	return data
}
