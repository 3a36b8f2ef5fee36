package association

import "testing"

func TestTierTable(t *testing.T) {
	tests := []struct {
		name           string
		c              Candidate
		wantTier       int
		wantOK         bool
	}{
		{"dimming+strong flare", Candidate{HasDimming: true, HasFlare: true, FlareClassScore: 31.5}, 1, true},
		{"strong flare only", Candidate{HasDimming: false, HasFlare: true, FlareClassScore: 30}, 2, true},
		{"dimming+weak flare", Candidate{HasDimming: true, HasFlare: true, FlareClassScore: 12}, 3, true},
		{"weak flare only", Candidate{HasDimming: false, HasFlare: true, FlareClassScore: 12}, 4, true},
		{"dimming only", Candidate{HasDimming: true, HasFlare: false}, 5, true},
		{"neither", Candidate{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, ok := Tier(tt.c)
			if tier != tt.wantTier || ok != tt.wantOK {
				t.Errorf("Tier() = (%d,%v), want (%d,%v)", tier, ok, tt.wantTier, tt.wantOK)
			}
		})
	}
}

func TestResolvePicksLowestTier(t *testing.T) {
	candidates := []Candidate{
		{RegionID: 100, HasDimming: true, HasFlare: false, DimmingID: 1},
		{RegionID: 101, HasDimming: true, HasFlare: true, FlareClassScore: 31.5, FlareID: 1, DimmingID: 2},
	}
	p := NewPool()
	assoc, ok := Resolve(5000, candidates, p)
	if !ok {
		t.Fatal("Resolve() ok = false, want true")
	}
	if assoc.RegionID != 101 || assoc.VerificationTier != 1 {
		t.Errorf("assoc = %+v, want region 101 tier 1", assoc)
	}
}

func TestResolveRejectsWhenNoEvidence(t *testing.T) {
	candidates := []Candidate{{RegionID: 100}}
	_, ok := Resolve(5000, candidates, NewPool())
	if ok {
		t.Error("Resolve() ok = true, want false (no dimming or flare)")
	}
}

func TestResolveTieBreakHigherFlareScoreWins(t *testing.T) {
	candidates := []Candidate{
		{RegionID: 100, HasFlare: true, FlareClassScore: 12, FlareID: 1},
		{RegionID: 101, HasFlare: true, FlareClassScore: 20, FlareID: 2},
	}
	assoc, ok := Resolve(5000, candidates, NewPool())
	if !ok || assoc.RegionID != 101 {
		t.Errorf("assoc = %+v, ok=%v, want region 101", assoc, ok)
	}
}

func TestResolveTieBreakCloserDimmingWins(t *testing.T) {
	candidates := []Candidate{
		{RegionID: 100, HasDimming: true, DimmingID: 1, DimmingHoursDiff: 2.9},
		{RegionID: 101, HasDimming: true, DimmingID: 2, DimmingHoursDiff: 0.5},
	}
	assoc, ok := Resolve(5000, candidates, NewPool())
	if !ok || assoc.RegionID != 101 {
		t.Errorf("assoc = %+v, ok=%v, want region 101 (closer dimming)", assoc, ok)
	}
}

func TestPoolPreventsDoubleAllocation(t *testing.T) {
	p := NewPool()
	first := []Candidate{{RegionID: 100, HasDimming: true, DimmingID: 9}}
	_, ok := Resolve(1, first, p)
	if !ok {
		t.Fatal("first Resolve should succeed")
	}

	second := []Candidate{{RegionID: 100, HasDimming: true, DimmingID: 9}}
	_, ok = Resolve(2, second, p)
	if ok {
		t.Error("second CME should not be able to reuse dimming 9 already claimed")
	}
}
