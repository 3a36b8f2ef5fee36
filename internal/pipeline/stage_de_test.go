package pipeline

import (
	"testing"
	"time"

	"github.com/jhc00/cmesrc/internal/store"
	"github.com/jhc00/cmesrc/internal/types"
	"github.com/jhc00/cmesrc/pkg/config"
)

func newDETestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(&config.DatabaseData{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func deTs(minute int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(minute) * time.Minute)
}

func TestRunStageDEAssociatesHaloCMEWithDiskCentreRegion(t *testing.T) {
	st := newDETestStore(t)

	if err := st.InsertRegions([]types.Region{
		{RegionID: 1, Start: deTs(0), End: deTs(60)},
	}); err != nil {
		t.Fatalf("InsertRegions: %v", err)
	}
	samples := []types.ProcessedBBoxSample{
		{BBoxSample: types.BBoxSample{RegionID: 1, Ts: deTs(0), LonMin: -2, LonMax: 2, LatMin: -2, LatMax: 2}},
	}
	if err := st.InsertProcessedBBoxSamples(samples); err != nil {
		t.Fatalf("InsertProcessedBBoxSamples: %v", err)
	}
	if err := st.InsertCMEs([]types.CME{
		{CMEID: 100, DetectionTs: deTs(0), Halo: true, Width: 360, Quality: "good"},
	}); err != nil {
		t.Fatalf("InsertCMEs: %v", err)
	}
	if err := st.InsertDimmings([]types.Dimming{
		{DimmingID: 1, Ts: deTs(0).Add(-5 * time.Minute), Lon: 0, Lat: 0},
	}); err != nil {
		t.Fatalf("InsertDimmings: %v", err)
	}

	params := config.DefaultPipelineParams()
	report := NewReport()
	if err := runStageDE(st, &params, report); err != nil {
		t.Fatalf("runStageDE: %v", err)
	}

	if report.CMEs.Matched != 1 {
		t.Errorf("CMEs.Matched = %d, want 1", report.CMEs.Matched)
	}
	assocs, err := st.AssociationsForRegion(1)
	if err != nil {
		t.Fatalf("AssociationsForRegion: %v", err)
	}
	if len(assocs) != 1 || assocs[0].CMEID != 100 {
		t.Fatalf("assocs = %+v, want one association to cme 100", assocs)
	}
	if assocs[0].VerificationTier != 5 {
		t.Errorf("VerificationTier = %d, want 5 (dimming-only)", assocs[0].VerificationTier)
	}
}

func TestRunStageDELeavesUnmatchedCMEOutsideAnyRegionLifetime(t *testing.T) {
	st := newDETestStore(t)

	if err := st.InsertRegions([]types.Region{
		{RegionID: 1, Start: deTs(1000), End: deTs(2000)},
	}); err != nil {
		t.Fatalf("InsertRegions: %v", err)
	}
	if err := st.InsertCMEs([]types.CME{
		{CMEID: 200, DetectionTs: deTs(0), Halo: true, Width: 360, Quality: "good"},
	}); err != nil {
		t.Fatalf("InsertCMEs: %v", err)
	}

	params := config.DefaultPipelineParams()
	report := NewReport()
	if err := runStageDE(st, &params, report); err != nil {
		t.Fatalf("runStageDE: %v", err)
	}
	if report.CMEs.Unmatched != 1 {
		t.Errorf("CMEs.Unmatched = %d, want 1", report.CMEs.Unmatched)
	}
}
