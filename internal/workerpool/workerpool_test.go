package workerpool

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRunProcessesEveryRegion(t *testing.T) {
	p := New(4)
	regions := []int{1, 2, 3, 4, 5, 6, 7, 8}

	var mu sync.Mutex
	seen := map[int]bool{}

	results := p.Run(context.Background(), regions, func(ctx context.Context, regionID int) error {
		mu.Lock()
		seen[regionID] = true
		mu.Unlock()
		return nil
	})

	if len(results) != len(regions) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(regions))
	}
	for _, r := range regions {
		if !seen[r] {
			t.Errorf("region %d was never processed", r)
		}
	}
}

func TestRunCollectsErrors(t *testing.T) {
	p := New(2)
	regions := []int{1, 2, 3}

	results := p.Run(context.Background(), regions, func(ctx context.Context, regionID int) error {
		if regionID == 2 {
			return errors.New("boom")
		}
		return nil
	})

	sort.Slice(results, func(i, j int) bool { return results[i].RegionID < results[j].RegionID })
	if results[1].Err == nil {
		t.Errorf("expected region 2 to report an error")
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("expected regions 1 and 3 to succeed, got %+v", results)
	}
}

func TestRunHonorsConcurrencyFloor(t *testing.T) {
	p := New(0)
	if p.concurrency != 1 {
		t.Errorf("concurrency = %d, want clamped to 1", p.concurrency)
	}
}

func TestRunStopsPullingAfterCancellation(t *testing.T) {
	p := New(1)
	ctx, cancel := context.WithCancel(context.Background())

	var processed int32
	regions := []int{1, 2, 3, 4, 5}
	_ = p.Run(ctx, regions, func(ctx context.Context, regionID int) error {
		if regionID == 1 {
			cancel()
		}
		atomic.AddInt32(&processed, 1)
		return nil
	})

	if atomic.LoadInt32(&processed) == int32(len(regions)) {
		t.Errorf("expected cancellation to stop draining before all regions processed")
	}
}
