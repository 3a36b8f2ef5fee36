package catalogue

import (
	"math"
	"testing"
	"time"

	"github.com/jhc00/cmesrc/internal/ingest"
)

func ts(minute int) time.Time {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(minute) * time.Minute)
}

func TestFillGapsInterpolatesMissingSamples(t *testing.T) {
	rows := []ingest.RegionRow{
		{Ts: ts(0), LonMin: -5, LonMax: 5, LatMin: -5, LatMax: 5, TrustedField: true},
		{Ts: ts(36), LonMin: -3, LonMax: 7, LatMin: -5, LatMax: 5, TrustedField: true}, // 2 samples missing at 12, 24
	}

	samples, err := FillGaps(100, rows)
	if err != nil {
		t.Fatalf("FillGaps: %v", err)
	}
	if len(samples) != 4 {
		t.Fatalf("len(samples) = %d, want 4", len(samples))
	}
	for i, s := range samples {
		wantInterp := i == 1 || i == 2
		if s.Interpolated != wantInterp {
			t.Errorf("sample %d Interpolated = %v, want %v", i, s.Interpolated, wantInterp)
		}
	}
}

func TestFillGapsNoGap(t *testing.T) {
	rows := []ingest.RegionRow{
		{Ts: ts(0), LonMin: -5, LonMax: 5, LatMin: -5, LatMax: 5},
		{Ts: ts(12), LonMin: -5, LonMax: 5, LatMin: -5, LatMax: 5},
	}
	samples, err := FillGaps(100, rows)
	if err != nil {
		t.Fatalf("FillGaps: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}
	for _, s := range samples {
		if s.Interpolated {
			t.Errorf("sample at %v should not be interpolated", s.Ts)
		}
	}
}

func TestTrimBeyondLimbDropsAndClamps(t *testing.T) {
	rows := []ingest.RegionRow{
		{Ts: ts(0), LonMin: -95, LonMax: -92, LatMin: -5, LatMax: 5},   // fully beyond west limb: dropped
		{Ts: ts(12), LonMin: -95, LonMax: 10, LatMin: -5, LatMax: 5},   // straddles limb: clamped
	}
	samples, err := FillGaps(100, rows)
	if err != nil {
		t.Fatalf("FillGaps: %v", err)
	}
	trimmed := TrimBeyondLimb(samples)
	if len(trimmed) != 1 {
		t.Fatalf("len(trimmed) = %d, want 1", len(trimmed))
	}
	if trimmed[0].LonMin != -90 {
		t.Errorf("LonMin = %g, want clamped to -90", trimmed[0].LonMin)
	}
}

func TestMeanAreaZeroForEmpty(t *testing.T) {
	if got := MeanArea(nil); got != 0 {
		t.Errorf("MeanArea(nil) = %g, want 0", got)
	}
}

func TestLifetimeEmptyReturnsZeroTimes(t *testing.T) {
	start, end := Lifetime(nil)
	if !start.IsZero() || !end.IsZero() {
		t.Errorf("Lifetime(nil) = (%v,%v), want zero times", start, end)
	}
}

func TestBuildRegionNoBBoxData(t *testing.T) {
	rows := []ingest.RegionRow{
		{Ts: ts(0), LonMin: -95, LonMax: -92, LatMin: -5, LatMax: 5},
	}
	_, err := BuildRegion(100, rows)
	if err != ErrNoBBoxData {
		t.Fatalf("BuildRegion() err = %v, want ErrNoBBoxData", err)
	}
}

func TestBuildRegionHappyPath(t *testing.T) {
	rows := []ingest.RegionRow{
		{Ts: ts(0), LonMin: -5, LonMax: 5, LatMin: -5, LatMax: 5, TrustedField: true},
		{Ts: ts(12), LonMin: -4, LonMax: 6, LatMin: -5, LatMax: 5, TrustedField: true},
	}
	result, err := BuildRegion(100, rows)
	if err != nil {
		t.Fatalf("BuildRegion: %v", err)
	}
	if len(result.Samples) != 2 {
		t.Fatalf("len(Samples) = %d, want 2", len(result.Samples))
	}
	if math.IsNaN(result.MeanArea) {
		t.Errorf("MeanArea is NaN")
	}
	if !result.StartTs.Equal(ts(0)) || !result.EndTs.Equal(ts(12)) {
		t.Errorf("lifetime = [%v,%v], want [%v,%v]", result.StartTs, result.EndTs, ts(0), ts(12))
	}
}
