// Package geometry implements the pure, stateless bounding-box and
// position-angle arithmetic used to track solar active regions across
// time. It has no persistence or logging dependency: every operation is a
// function of its explicit inputs.
package geometry

import (
	"math"
	"time"

	"github.com/soniakeys/unit"
)

// Point is a heliographic longitude/latitude pair at a given instant.
type Point struct {
	Ts  time.Time
	Lon unit.Angle
	Lat unit.Angle
}

// NewPoint builds a Point from longitude/latitude given in degrees.
func NewPoint(ts time.Time, lonDeg, latDeg float64) Point {
	return Point{Ts: ts, Lon: unit.AngleFromDeg(lonDeg), Lat: unit.AngleFromDeg(latDeg)}
}

// cartesian projects the point onto the sky plane: (sin(lon)cos(lat), sin(lat)).
func (p Point) cartesian() (x, y float64) {
	return p.Lon.Sin() * p.Lat.Cos(), p.Lat.Sin()
}

// PositionAngle returns the clockwise angle from solar north to the
// projection of the point onto the sky plane, in degrees, range [0,360).
// At the north pole it returns 0, as it does at the disc centre (cartesian
// origin).
func (p Point) PositionAngle() float64 {
	return PositionAngle(p.Lon.Deg(), p.Lat.Deg())
}

// PositionAngle is the free-function form of Point.PositionAngle, taking
// longitude/latitude in degrees.
func PositionAngle(lonDeg, latDeg float64) float64 {
	lon := unit.AngleFromDeg(lonDeg)
	lat := unit.AngleFromDeg(latDeg)
	x := lon.Sin() * lat.Cos()
	y := lat.Sin()

	if x == 0 && y == 0 {
		return 0
	}

	pa := math.Atan2(y, x) * 180 / math.Pi

	switch {
	case pa >= 0 && pa < 90:
		pa += 270
	case pa >= 90 && pa <= 180:
		pa -= 90
	case pa < 0:
		pa += 270
	}
	return pa
}

// DistanceToSunCentre returns the 2-D radius of the point's sky-plane
// projection, in [0,1].
func (p Point) DistanceToSunCentre() float64 {
	x, y := p.cartesian()
	return math.Hypot(x, y)
}

// DistanceToSunCentre is the free-function form, taking degrees.
func DistanceToSunCentre(lonDeg, latDeg float64) float64 {
	return NewPoint(time.Time{}, lonDeg, latDeg).DistanceToSunCentre()
}

// rotationRateDegPerDay implements the Snodgrass & Ulrich (1990) synodic
// differential-rotation law: longitude advances fastest at the equator and
// slows with latitude; latitude itself is invariant under propagation.
func rotationRateDegPerDay(latDeg float64) float64 {
	s := math.Sin(latDeg * math.Pi / 180)
	s2 := s * s
	return 14.71 - 2.39*s2 - 1.70*s2*s2
}

// RotateCoords propagates a point to a new timestamp by differential
// rotation: latitude is unchanged, longitude advances by the
// latitude-dependent rotation rate integrated over the elapsed time.
func (p Point) RotateCoords(newTs time.Time) Point {
	days := newTs.Sub(p.Ts).Hours() / 24
	rate := rotationRateDegPerDay(p.Lat.Deg())
	newLon := p.Lon.Deg() + rate*days
	return NewPoint(newTs, newLon, p.Lat.Deg())
}
