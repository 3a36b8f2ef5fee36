// Package matcher implements the spatial/temporal candidate search (§4.D):
// temporal bracketing by binary search over region lifetimes, bbox snapshot
// lookup with rotation to event time, and the CME/dimming/flare spatial
// tests.
package matcher

import (
	"math"
	"sort"
	"time"

	"github.com/jhc00/cmesrc/internal/geometry"
	"github.com/jhc00/cmesrc/internal/log"
	"github.com/jhc00/cmesrc/internal/types"
)

// RegionLifetime is the sorted-array entry temporal bracketing binary
// searches over.
type RegionLifetime struct {
	RegionID int
	Start    time.Time
	End      time.Time
}

// byStart and byEnd sort RegionLifetime slices by start and end time.
// TemporalBracket uses byStart only.
type byStart []RegionLifetime
type byEnd []RegionLifetime

func (b byStart) Len() int           { return len(b) }
func (b byStart) Less(i, j int) bool { return b[i].Start.Before(b[j].Start) }
func (b byStart) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

func (b byEnd) Len() int           { return len(b) }
func (b byEnd) Less(i, j int) bool { return b[i].End.Before(b[j].End) }
func (b byEnd) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

// TemporalBracket returns every region whose lifetime contains t
// (start_ts <= t <= end_ts), ascending by RegionID. It sorts the lifetimes
// by start, binary-searches for the regions with start_ts <= t, then filters
// those on end_ts with a linear scan; there is no binary search over end.
func TemporalBracket(lifetimes []RegionLifetime, t time.Time) []RegionLifetime {
	byStartSorted := make(byStart, len(lifetimes))
	copy(byStartSorted, lifetimes)
	sort.Sort(byStartSorted)

	// every region with start_ts <= t
	startIdx := sort.Search(len(byStartSorted), func(i int) bool {
		return byStartSorted[i].Start.After(t)
	})
	candidates := byStartSorted[:startIdx]

	out := make([]RegionLifetime, 0, len(candidates))
	for _, c := range candidates {
		if !c.End.Before(t) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegionID < out[j].RegionID })
	return out
}

// BBoxSnapshot returns the region's bbox as of eventTs: the nearest-
// timestamp sample (by absolute delta), rotated to eventTs when the delta
// exceeds 12 minutes.
func BBoxSnapshot(nearest types.ProcessedBBoxSample, eventTs time.Time) (geometry.BoundingBox, error) {
	box, err := geometry.NewBoundingBox(nearest.Ts, nearest.LonMin, nearest.LatMin, nearest.LonMax, nearest.LatMax)
	if err != nil {
		return geometry.BoundingBox{}, err
	}

	delta := eventTs.Sub(nearest.Ts)
	if delta < 0 {
		delta = -delta
	}
	if delta <= 12*time.Minute {
		return box, nil
	}
	log.Debugf("matcher: region %d rotating bbox %.2f days to event time", nearest.RegionID, box.Stamp(eventTs).ElapsedDays())
	return box.RotateBBoxTo(eventTs, geometry.ModeKeepShape)
}

// CMESpatialMatch implements §4.D's CME spatial test.
func CMESpatialMatch(box geometry.BoundingBox, cme types.CME) bool {
	if cme.Halo {
		return box.DistanceToSunCentre() < 1.0
	}
	if cme.PA == nil {
		return false
	}
	diff := math.Mod(math.Abs(box.PositionAngle()-*cme.PA), 360)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff < cme.Width/2+10
}

// d_half/d_zero radii, in degrees, for dimming and flare spatial scoring.
const (
	dimmingHalfDeg = 5
	dimmingZeroDeg = 10
	flareHalfDeg   = 10
	flareZeroDeg   = 15
)

// EventSpatialScore implements the §4.D piecewise score:
//
//	score(d) = 100 * exp(-ln2 * (d/d_half)^2)   for d <= d_zero
//	score(d) = 0                                 for d > d_zero
//
// distRad is the great-circle distance in radians; dHalfDeg/dZeroDeg name
// the degree-valued constants above (converted to radians internally).
func EventSpatialScore(distRad, dHalfDeg, dZeroDeg float64) float64 {
	dZeroRad := dZeroDeg * math.Pi / 180
	if distRad > dZeroRad {
		return 0
	}
	dHalfRad := dHalfDeg * math.Pi / 180
	ratio := distRad / dHalfRad
	return 100 * math.Exp(-math.Ln2*ratio*ratio)
}

// DimmingSpatialScore scores a dimming-to-bbox distance.
func DimmingSpatialScore(distRad float64) float64 {
	return EventSpatialScore(distRad, dimmingHalfDeg, dimmingZeroDeg)
}

// FlareSpatialScore scores a flare-to-bbox distance.
func FlareSpatialScore(distRad float64) float64 {
	return EventSpatialScore(distRad, flareHalfDeg, flareZeroDeg)
}

// BestMatch picks the highest-scoring candidate region id for an event;
// zero score means unmatched. Ties break on lower region_id (documented
// tie-break, §8 S6).
func BestMatch(scores map[int]float64) (regionID int, score float64, matched bool) {
	ids := make([]int, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	best := -1.0
	bestID := 0
	for _, id := range ids {
		s := scores[id]
		if s > best {
			best = s
			bestID = id
		}
	}
	if best <= 0 {
		return 0, 0, false
	}
	return bestID, best, true
}
