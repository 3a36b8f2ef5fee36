package geometry

import (
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// RotationStamp records the Julian day of a propagated bbox's source and
// target timestamps, so callers can log/assert on the rotation age without
// re-deriving it from the raw time.Time values.
type RotationStamp struct {
	SourceJD float64
	TargetJD float64
}

// Stamp computes the Julian-day pair for a rotation from b.Ts to target.
func (b BoundingBox) Stamp(target time.Time) RotationStamp {
	return RotationStamp{
		SourceJD: julian.TimeToJD(b.Ts),
		TargetJD: julian.TimeToJD(target),
	}
}

// ElapsedDays returns the rotation interval in days as implied by the
// Julian-day stamps, independent of time.Time's own subtraction — used in
// tests to cross-check RotateBBoxTo's elapsed-time arithmetic.
func (s RotationStamp) ElapsedDays() float64 {
	return s.TargetJD - s.SourceJD
}
