package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/jhc00/cmesrc/internal/store"
	"github.com/jhc00/cmesrc/internal/types"
	"github.com/jhc00/cmesrc/internal/workerpool"
	"github.com/jhc00/cmesrc/pkg/config"
)

func newFTestStore(t *testing.T) *store.Store {
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

func fTs(hour int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(hour) * time.Hour)
}

func TestRunStageFWalksRegionAndPersistsSlices(t *testing.T) {
	st := newFTestStore(t)

	if err := st.InsertRegions([]types.Region{
		{RegionID: 1, Start: fTs(0), End: fTs(5), Area: 10},
	}); err != nil {
		t.Fatalf("InsertRegions: %v", err)
	}

	var samples []types.ProcessedBBoxSample
	for h := 0; h <= 5; h++ {
		samples = append(samples, types.ProcessedBBoxSample{BBoxSample: types.BBoxSample{
			RegionID: 1, Ts: fTs(h), LonMin: -5, LonMax: 5, LatMin: -5, LatMax: 5,
		}})
	}
	if err := st.InsertProcessedBBoxSamples(samples); err != nil {
		t.Fatalf("InsertProcessedBBoxSamples: %v", err)
	}

	params := config.DefaultPipelineParams()
	params.ObsLenHours = 1
	params.StepHours = 1
	params.AreaLimit = 18

	pool := workerpool.New(1)
	report := NewReport()
	if err := runStageF(context.Background(), st, pool, &params, report); err != nil {
		t.Fatalf("runStageF: %v", err)
	}

	if report.AcceptedSlices+report.RejectedSlices == 0 {
		t.Fatal("expected at least one slice to be produced")
	}
}

func TestRunStageFSkipsRegionsOverAreaLimit(t *testing.T) {
	st := newFTestStore(t)
	if err := st.InsertRegions([]types.Region{
		{RegionID: 1, Start: fTs(0), End: fTs(5), Area: 25},
	}); err != nil {
		t.Fatalf("InsertRegions: %v", err)
	}

	params := config.DefaultPipelineParams()
	pool := workerpool.New(1)
	report := NewReport()
	if err := runStageF(context.Background(), st, pool, &params, report); err != nil {
		t.Fatalf("runStageF: %v", err)
	}
	if report.AcceptedSlices != 0 || report.RejectedSlices != 0 {
		t.Errorf("expected no slices for an over-limit region, got accepted=%d rejected=%d", report.AcceptedSlices, report.RejectedSlices)
	}
}
