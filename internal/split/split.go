// Package split implements the §4.G partitioner: connected-component
// grouping on the region overlap graph, followed by a greedy priority-order
// balanced assignment of groups to K splits, collapsed into folds.
package split

import "sort"

// Edge is a relaxed-overlap connection between two regions: mean_overlap>5
// AND co_occurrence_pct>5 (the relaxed threshold, distinct from the
// duplicate-detection thresholds in internal/catalogue).
type Edge struct {
	RegionA, RegionB int
}

// unionFind is a standard disjoint-set structure over region ids.
type unionFind struct {
	parent map[int]int
}

func newUnionFind(regions []int) *unionFind {
	uf := &unionFind{parent: make(map[int]int, len(regions))}
	for _, r := range regions {
		uf.parent[r] = r
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[ra] = rb
	}
}

// Group is one connected component of the overlap graph (or a singleton
// isolated region).
type Group struct {
	RegionIDs []int

	// TierCounts[i] is the total count of tier-(i+1) associated CMEs across
	// every region in this group.
	TierCounts [5]int
}

// Size returns the group's total region count, the final priority
// attribute.
func (g Group) Size() int { return len(g.RegionIDs) }

// BuildGroups computes connected components over all regions given the
// relaxed-overlap edges, then attaches each group's tier CME counts from
// perRegionTierCounts (region_id -> [5]int, tier1..tier5).
func BuildGroups(regions []int, edges []Edge, perRegionTierCounts map[int][5]int) []Group {
	uf := newUnionFind(regions)
	for _, e := range edges {
		uf.union(e.RegionA, e.RegionB)
	}

	byRoot := make(map[int][]int)
	for _, r := range regions {
		root := uf.find(r)
		byRoot[root] = append(byRoot[root], r)
	}

	groups := make([]Group, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Ints(members)
		var tiers [5]int
		for _, r := range members {
			counts := perRegionTierCounts[r]
			for i := 0; i < 5; i++ {
				tiers[i] += counts[i]
			}
		}
		groups = append(groups, Group{RegionIDs: members, TierCounts: tiers})
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].RegionIDs[0] < groups[j].RegionIDs[0] })
	return groups
}

// priorityValue returns a group's value for priority attribute index
// 0..4 (tier1..tier5) or 5 (total size).
func priorityValue(g Group, attr int) int {
	if attr < 5 {
		return g.TierCounts[attr]
	}
	return g.Size()
}

// Assign implements §4.G's greedy balanced assignment: for each priority
// attribute in turn (tier-1..tier-5, then total size), groups with a
// non-zero value are sorted descending by that value and placed, one at a
// time, into the split whose cumulative sum of the attribute is currently
// lowest (ties broken by ascending split index). Returns group index ->
// split index (0..k-1).
func Assign(groups []Group, k int) []int {
	assigned := make([]int, len(groups))
	for i := range assigned {
		assigned[i] = -1
	}
	placed := make([]bool, len(groups))

	cumulative := make([][6]int, k) // cumulative[split][attr]

	for attr := 0; attr < 6; attr++ {
		order := make([]int, 0, len(groups))
		for i, g := range groups {
			if !placed[i] && priorityValue(g, attr) > 0 {
				order = append(order, i)
			}
		}
		sort.SliceStable(order, func(a, b int) bool {
			return priorityValue(groups[order[a]], attr) > priorityValue(groups[order[b]], attr)
		})

		for _, idx := range order {
			if placed[idx] {
				continue
			}
			best := 0
			for s := 1; s < k; s++ {
				if cumulative[s][attr] < cumulative[best][attr] {
					best = s
				}
			}
			assigned[idx] = best
			placed[idx] = true
			for a := 0; a < 6; a++ {
				cumulative[best][a] += priorityValue(groups[idx], a)
			}
		}
	}

	// Any group with every priority attribute at zero (shouldn't occur since
	// size>=1 always) falls back to lowest-total-size split.
	for i, s := range assigned {
		if s == -1 {
			best := 0
			for c := 1; c < k; c++ {
				if cumulative[c][5] < cumulative[best][5] {
					best = c
				}
			}
			assigned[i] = best
			cumulative[best][5] += priorityValue(groups[i], 5)
		}
	}

	return assigned
}

// FoldOf collapses a K=10 split index into one of 5 folds with 2 sub-folds
// each: fold = split/2, subFold = split%2.
func FoldOf(splitIdx int) (fold, subFold int) {
	return splitIdx / 2, splitIdx % 2
}
