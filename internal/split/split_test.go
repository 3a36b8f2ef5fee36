package split

import "testing"

func TestBuildGroupsConnectsByEdges(t *testing.T) {
	regions := []int{1, 2, 3, 4}
	edges := []Edge{{RegionA: 1, RegionB: 2}}
	groups := BuildGroups(regions, edges, nil)
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3 (one pair + two singletons)", len(groups))
	}
	foundPair := false
	for _, g := range groups {
		if len(g.RegionIDs) == 2 {
			foundPair = true
			if g.RegionIDs[0] != 1 || g.RegionIDs[1] != 2 {
				t.Errorf("pair group = %+v, want [1 2]", g.RegionIDs)
			}
		}
	}
	if !foundPair {
		t.Errorf("expected a merged pair group for regions 1,2")
	}
}

func TestBuildGroupsAggregatesTierCounts(t *testing.T) {
	regions := []int{1, 2}
	edges := []Edge{{RegionA: 1, RegionB: 2}}
	counts := map[int][5]int{
		1: {1, 0, 0, 0, 0},
		2: {2, 0, 0, 0, 0},
	}
	groups := BuildGroups(regions, edges, counts)
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	if groups[0].TierCounts[0] != 3 {
		t.Errorf("TierCounts[0] = %d, want 3", groups[0].TierCounts[0])
	}
}

func TestAssignBalancesBySize(t *testing.T) {
	groups := []Group{
		{RegionIDs: []int{1, 2, 3}},
		{RegionIDs: []int{4}},
		{RegionIDs: []int{5}},
		{RegionIDs: []int{6}},
	}
	assigned := Assign(groups, 2)
	if len(assigned) != 4 {
		t.Fatalf("len(assigned) = %d, want 4", len(assigned))
	}
	sums := map[int]int{}
	for i, s := range assigned {
		sums[s] += groups[i].Size()
	}
	if sums[0] == 0 || sums[1] == 0 {
		t.Errorf("expected both splits populated, got sums=%v", sums)
	}
}

func TestAssignPrioritizesHigherTiersFirst(t *testing.T) {
	groups := []Group{
		{RegionIDs: []int{1}, TierCounts: [5]int{5, 0, 0, 0, 0}},
		{RegionIDs: []int{2}, TierCounts: [5]int{0, 0, 0, 0, 0}},
	}
	assigned := Assign(groups, 2)
	if assigned[0] == assigned[1] {
		t.Errorf("expected the tier-1-heavy group and the empty group on different splits, got %v", assigned)
	}
}

func TestFoldOfCollapsesPairsOfTenSplits(t *testing.T) {
	fold, sub := FoldOf(7)
	if fold != 3 || sub != 1 {
		t.Errorf("FoldOf(7) = (%d,%d), want (3,1)", fold, sub)
	}
}
