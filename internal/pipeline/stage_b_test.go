package pipeline

import (
	"testing"
	"time"

	"github.com/jhc00/cmesrc/internal/types"
)

func TestToProcessedWrapsEverySample(t *testing.T) {
	samples := []types.BBoxSample{
		{RegionID: 1, Ts: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), LonMin: -5, LonMax: 5},
		{RegionID: 1, Ts: time.Date(2020, 1, 1, 0, 12, 0, 0, time.UTC), LonMin: -4, LonMax: 6},
	}
	got := toProcessed(samples)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	for i, s := range got {
		if s.BBoxSample != samples[i] {
			t.Errorf("got[%d] = %+v, want %+v", i, s.BBoxSample, samples[i])
		}
	}
}
