package geometry

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidBoundingBox is returned, never panicked, when a bounding box's
// corners are inverted (lon_min>lon_max or lat_min>lat_max) — including when
// propagation across the limb would invert it.
var ErrInvalidBoundingBox = errors.New("geometry: invalid bounding box")

// InvalidBoundingBoxError carries the offending corners for diagnostics.
type InvalidBoundingBoxError struct {
	LonMin, LonMax, LatMin, LatMax float64
}

func (e *InvalidBoundingBoxError) Error() string {
	return fmt.Sprintf("geometry: invalid bounding box lon=[%g,%g] lat=[%g,%g]",
		e.LonMin, e.LonMax, e.LatMin, e.LatMax)
}

func (e *InvalidBoundingBoxError) Unwrap() error { return ErrInvalidBoundingBox }

// RotateMode selects how RotateBBoxTo carries a bbox forward in time.
type RotateMode int

const (
	// ModeCorners rotates each corner of the box independently.
	ModeCorners RotateMode = iota
	// ModeKeepShape rotates the centre and preserves width/height.
	ModeKeepShape
)

// BoundingBox is an axis-aligned rectangle in heliographic longitude/latitude
// degrees, valid at a single timestamp.
type BoundingBox struct {
	Ts                             time.Time
	LonMin, LonMax, LatMin, LatMax float64
}

// NewBoundingBox validates and constructs a BoundingBox.
func NewBoundingBox(ts time.Time, lonMin, latMin, lonMax, latMax float64) (BoundingBox, error) {
	if lonMin > lonMax || latMin > latMax {
		return BoundingBox{}, &InvalidBoundingBoxError{lonMin, lonMax, latMin, latMax}
	}
	return BoundingBox{Ts: ts, LonMin: lonMin, LonMax: lonMax, LatMin: latMin, LatMax: latMax}, nil
}

// Centre returns the midpoint of the box as a Point.
func (b BoundingBox) Centre() Point {
	return NewPoint(b.Ts, (b.LonMin+b.LonMax)/2, (b.LatMin+b.LatMax)/2)
}

// PositionAngle returns the position angle of the box's centre.
func (b BoundingBox) PositionAngle() float64 {
	return b.Centre().PositionAngle()
}

// DistanceToSunCentre returns the sky-plane distance of the box's centre.
func (b BoundingBox) DistanceToSunCentre() float64 {
	return b.Centre().DistanceToSunCentre()
}

// RotateBBoxTo propagates the box to ts using differential rotation.
// ModeCorners rotates each corner independently; ModeKeepShape rotates the
// centre and reattaches the original width/height. The result can be an
// invalid (inverted) box if propagation across the limb inverts it — this is
// returned as ErrInvalidBoundingBox, not panicked.
func (b BoundingBox) RotateBBoxTo(ts time.Time, mode RotateMode) (BoundingBox, error) {
	if mode == ModeKeepShape {
		width := b.LonMax - b.LonMin
		height := b.LatMax - b.LatMin
		newCentre := b.Centre().RotateCoords(ts)
		lonMin := newCentre.Lon.Deg() - width/2
		lonMax := newCentre.Lon.Deg() + width/2
		latMin := newCentre.Lat.Deg() - height/2
		latMax := newCentre.Lat.Deg() + height/2
		return NewBoundingBox(ts, lonMin, latMin, lonMax, latMax)
	}

	ll := NewPoint(b.Ts, b.LonMin, b.LatMin).RotateCoords(ts)
	ur := NewPoint(b.Ts, b.LonMax, b.LatMax).RotateCoords(ts)
	return NewBoundingBox(ts, ll.Lon.Deg(), ll.Lat.Deg(), ur.Lon.Deg(), ur.Lat.Deg())
}

// IsPointInside reports whether a point lies within the box, rotating the
// box to the point's timestamp first if they differ by more than an hour.
func (b BoundingBox) IsPointInside(p Point) bool {
	box := b
	if math.Abs(p.Ts.Sub(b.Ts).Hours()) > 1 {
		rotated, err := b.RotateBBoxTo(p.Ts, ModeCorners)
		if err != nil {
			return false
		}
		box = rotated
	}
	lon, lat := p.Lon.Deg(), p.Lat.Deg()
	return box.LonMin <= lon && lon <= box.LonMax && box.LatMin <= lat && lat <= box.LatMax
}

// angularPointDistance returns the signed lon/lat offset from the box's
// nearest edge/corner to the point, in degrees, following the same
// octant case analysis as the reference implementation.
func (b BoundingBox) angularPointDistance(p Point) (dLon, dLat float64) {
	box := b
	if math.Abs(p.Ts.Sub(b.Ts).Hours()) > 1 {
		if rotated, err := b.RotateBBoxTo(p.Ts, ModeCorners); err == nil {
			box = rotated
		}
	}

	lon, lat := p.Lon.Deg(), p.Lat.Deg()

	switch {
	case lon < box.LonMin:
		switch {
		case lat < box.LatMin:
			return box.LonMin - lon, box.LatMin - lat
		case lat > box.LatMax:
			return box.LonMin - lon, box.LatMax - lat
		default:
			return box.LonMin - lon, 0
		}
	case lon > box.LonMax:
		switch {
		case lat < box.LatMin:
			return box.LonMax - lon, box.LatMin - lat
		case lat > box.LatMax:
			return box.LonMax - lon, box.LatMax - lat
		default:
			return lon - box.LonMax, 0
		}
	case lat > box.LatMax:
		return 0, lat - box.LatMax
	default:
		return 0, box.LatMin - lat
	}
}

// SphericalPointToBBoxDistance returns the great-circle angular distance, in
// radians, from p to the closest edge of the box. Zero if p lies inside.
func (b BoundingBox) SphericalPointToBBoxDistance(p Point) float64 {
	if b.IsPointInside(p) {
		return 0
	}

	dLon, dLat := b.angularPointDistance(p)

	pointLon := p.Lon.Rad()
	pointLat := p.Lat.Rad()
	edgeLon := pointLon + dLon*math.Pi/180
	edgeLat := pointLat + dLat*math.Pi/180

	cosC := math.Sin(pointLat)*math.Sin(edgeLat) +
		math.Cos(pointLat)*math.Cos(edgeLat)*math.Cos(dLon*math.Pi/180)
	cosC = math.Max(-1, math.Min(1, cosC))
	return math.Acos(cosC)
}

// SphericalPointToBBoxDistance is the free-function form.
func SphericalPointToBBoxDistance(p Point, b BoundingBox) float64 {
	return b.SphericalPointToBBoxDistance(p)
}
