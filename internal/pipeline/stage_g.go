package pipeline

import (
	"fmt"

	"github.com/jhc00/cmesrc/internal/log"
	"github.com/jhc00/cmesrc/internal/split"
	"github.com/jhc00/cmesrc/internal/store"
	"github.com/jhc00/cmesrc/internal/types"
	"github.com/jhc00/cmesrc/pkg/config"
)

// runStageG implements §4.G: group regions connected by a relaxed overlap
// edge, then greedily balance the groups across K splits by tier-weighted
// CME counts, collapsing the K splits into 5 folds of 2 sub-folds each.
func runStageG(st *store.Store, params *config.PipelineParams, report *Report) error {
	regions, err := st.AllRegions()
	if err != nil {
		return fmt.Errorf("pipeline: stage G loading regions: %w", err)
	}
	regionIDs := make([]int, len(regions))
	for i, r := range regions {
		regionIDs[i] = r.RegionID
	}

	overlaps, err := st.AllOverlaps()
	if err != nil {
		return fmt.Errorf("pipeline: stage G loading overlaps: %w", err)
	}
	var edges []split.Edge
	for _, o := range overlaps {
		if o.MeanOverlap > params.SplitMeanOverlapPct && o.CoOccurrencePct > params.SplitCoOccurrencePct {
			edges = append(edges, split.Edge{RegionA: o.RegionIDA, RegionB: o.RegionIDB})
		}
	}

	tierCounts := make(map[int][5]int, len(regionIDs))
	for _, regionID := range regionIDs {
		assocs, err := st.AssociationsForRegion(regionID)
		if err != nil {
			return fmt.Errorf("pipeline: stage G loading associations for region %d: %w", regionID, err)
		}
		var counts [5]int
		for _, a := range assocs {
			if a.VerificationTier >= 1 && a.VerificationTier <= 5 {
				counts[a.VerificationTier-1]++
			}
		}
		tierCounts[regionID] = counts
	}

	groups := split.BuildGroups(regionIDs, edges, tierCounts)
	assignment := split.Assign(groups, params.Splits)

	var rows []types.SplitAssignment
	for groupID, g := range groups {
		splitIdx := assignment[groupID]
		fold, subFold := split.FoldOf(splitIdx)
		for _, regionID := range g.RegionIDs {
			rows = append(rows, types.SplitAssignment{
				RegionID: regionID, GroupID: groupID, Split: splitIdx, Fold: fold, SubFold: subFold,
			})
		}
	}
	if err := st.InsertSplitAssignments(rows); err != nil {
		return fmt.Errorf("pipeline: stage G persisting assignments: %w", err)
	}

	log.Infof("pipeline: stage G complete, %d groups across %d splits", len(groups), params.Splits)
	return nil
}
