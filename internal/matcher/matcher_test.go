package matcher

import (
	"math"
	"testing"
	"time"

	"github.com/jhc00/cmesrc/internal/types"
)

func ts(minute int) time.Time {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(minute) * time.Minute)
}

func TestTemporalBracketContainsOnlyOverlapping(t *testing.T) {
	lifetimes := []RegionLifetime{
		{RegionID: 1, Start: ts(0), End: ts(100)},
		{RegionID: 2, Start: ts(50), End: ts(60)},
		{RegionID: 3, Start: ts(200), End: ts(300)},
	}

	got := TemporalBracket(lifetimes, ts(55))
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].RegionID != 1 || got[1].RegionID != 2 {
		t.Errorf("got = %+v, want region ids [1,2]", got)
	}
}

func TestTemporalBracketEmptyOutsideAllLifetimes(t *testing.T) {
	lifetimes := []RegionLifetime{{RegionID: 1, Start: ts(0), End: ts(10)}}
	got := TemporalBracket(lifetimes, ts(100))
	if len(got) != 0 {
		t.Errorf("len(got) = %d, want 0", len(got))
	}
}

func TestBBoxSnapshotSkipsRotationWithinWindow(t *testing.T) {
	sample := types.ProcessedBBoxSample{BBoxSample: types.BBoxSample{
		Ts: ts(0), LonMin: -5, LonMax: 5, LatMin: -5, LatMax: 5,
	}}
	box, err := BBoxSnapshot(sample, ts(10))
	if err != nil {
		t.Fatalf("BBoxSnapshot: %v", err)
	}
	if box.LonMin != -5 || box.LonMax != 5 {
		t.Errorf("box rotated unexpectedly within 12min window: %+v", box)
	}
}

func TestBBoxSnapshotRotatesBeyondWindow(t *testing.T) {
	sample := types.ProcessedBBoxSample{BBoxSample: types.BBoxSample{
		Ts: ts(0), LonMin: -5, LonMax: 5, LatMin: -5, LatMax: 5,
	}}
	box, err := BBoxSnapshot(sample, ts(60))
	if err != nil {
		t.Fatalf("BBoxSnapshot: %v", err)
	}
	if box.LonMin == -5 && box.LonMax == 5 {
		t.Errorf("expected box rotated away from source position after 60min, got %+v", box)
	}
}

func TestCMESpatialMatchHalo(t *testing.T) {
	sample := types.ProcessedBBoxSample{BBoxSample: types.BBoxSample{
		Ts: ts(0), LonMin: -5, LonMax: 5, LatMin: -5, LatMax: 5,
	}}
	box, _ := BBoxSnapshot(sample, ts(0))
	halo := types.CME{Halo: true}
	if !CMESpatialMatch(box, halo) {
		t.Errorf("halo CME near disk centre should match")
	}
}

func TestCMESpatialMatchNonHaloRequiresPA(t *testing.T) {
	sample := types.ProcessedBBoxSample{BBoxSample: types.BBoxSample{
		Ts: ts(0), LonMin: -5, LonMax: 5, LatMin: -5, LatMax: 5,
	}}
	box, _ := BBoxSnapshot(sample, ts(0))
	noPA := types.CME{Halo: false, Width: 60}
	if CMESpatialMatch(box, noPA) {
		t.Errorf("non-halo CME with nil PA must never match")
	}
}

func TestEventSpatialScoreZeroBeyondThreshold(t *testing.T) {
	zeroRad := (dimmingZeroDeg + 1) * math.Pi / 180
	if got := DimmingSpatialScore(zeroRad); got != 0 {
		t.Errorf("DimmingSpatialScore(beyond zero) = %g, want 0", got)
	}
}

func TestEventSpatialScoreMaxAtZeroDistance(t *testing.T) {
	if got := FlareSpatialScore(0); got != 100 {
		t.Errorf("FlareSpatialScore(0) = %g, want 100", got)
	}
}

func TestEventSpatialScoreHalfAtDHalf(t *testing.T) {
	halfRad := dimmingHalfDeg * math.Pi / 180
	got := DimmingSpatialScore(halfRad)
	if math.Abs(got-50) > 1e-9 {
		t.Errorf("DimmingSpatialScore(d_half) = %g, want 50", got)
	}
}

func TestBestMatchPicksHighestScore(t *testing.T) {
	scores := map[int]float64{100: 40, 101: 90, 102: 10}
	id, score, matched := BestMatch(scores)
	if !matched || id != 101 || score != 90 {
		t.Errorf("BestMatch = (%d,%g,%v), want (101,90,true)", id, score, matched)
	}
}

func TestBestMatchUnmatchedWhenAllZero(t *testing.T) {
	scores := map[int]float64{100: 0, 101: 0}
	_, _, matched := BestMatch(scores)
	if matched {
		t.Errorf("BestMatch should be unmatched when all scores are zero")
	}
}

func TestBestMatchTieBreaksOnLowerRegionID(t *testing.T) {
	scores := map[int]float64{200: 75, 150: 75}
	id, _, matched := BestMatch(scores)
	if !matched || id != 150 {
		t.Errorf("BestMatch tie = %d, want 150 (lower region id)", id)
	}
}
