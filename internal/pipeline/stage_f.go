package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jhc00/cmesrc/internal/log"
	"github.com/jhc00/cmesrc/internal/slicer"
	"github.com/jhc00/cmesrc/internal/store"
	"github.com/jhc00/cmesrc/internal/types"
	"github.com/jhc00/cmesrc/internal/workerpool"
	"github.com/jhc00/cmesrc/pkg/config"
)

// runStageF implements §4.F: for every region under the area limit (§3),
// walk the window slicer state machine over its lifetime via the worker
// pool, persisting one accepted or rejected row per step.
func runStageF(ctx context.Context, st *store.Store, pool *workerpool.Pool, params *config.PipelineParams, report *Report) error {
	regions, err := st.RegionsUnderAreaLimit(params.AreaLimit)
	if err != nil {
		return fmt.Errorf("pipeline: stage F listing regions: %w", err)
	}
	log.Infof("pipeline: stage F starting over %d regions", len(regions))

	regionIDs := make([]int, len(regions))
	for i, r := range regions {
		regionIDs[i] = r.RegionID
	}

	type tally struct{ accepted, rejected, labelOnes int }
	tallies := make(chan tally, len(regionIDs))

	results := pool.Run(ctx, regionIDs, func(ctx context.Context, regionID int) error {
		full, err := st.ProcessedBBoxSamplesForRegion(regionID, false)
		if err != nil {
			return fmt.Errorf("region %d: loading full lifetime: %w", regionID, err)
		}
		if len(full) == 0 {
			return nil
		}
		restricted, err := st.ProcessedBBoxSamplesForRegion(regionID, true)
		if err != nil {
			return fmt.Errorf("region %d: loading on-disk lifetime: %w", regionID, err)
		}

		trueStart, trueEnd := full[0].Ts, full[len(full)-1].Ts
		hourlyStart, hourlyEnd := trueStart, trueEnd
		lastOnDisk := trueEnd
		if len(restricted) > 0 {
			hourlyStart, hourlyEnd = restricted[0].Ts, restricted[len(restricted)-1].Ts
			lastOnDisk = hourlyEnd
		}

		assocs, err := st.AssociationsForRegion(regionID)
		if err != nil {
			return fmt.Errorf("region %d: loading associations: %w", regionID, err)
		}
		associated := make([]slicer.AssociatedCME, 0, len(assocs))
		for _, a := range assocs {
			cme, err := st.CMEByID(a.CMEID)
			if err != nil {
				return fmt.Errorf("region %d: loading cme %d: %w", regionID, a.CMEID, err)
			}
			associated = append(associated, slicer.AssociatedCME{CMEID: a.CMEID, DetectionTs: cme.DetectionTs, Tier: a.VerificationTier})
		}

		state := slicer.NewState(regionID, params.ObsLenHours, params.StepHours, params.Strict, trueStart, trueEnd, hourlyStart, hourlyEnd, lastOnDisk)

		t := tally{}
		for !state.Finished {
			_, obs, _ := state.Periods()
			obsCMEs, err := obsEvidence(st, regionID, obs.Start, obs.End, assocs)
			if err != nil {
				return fmt.Errorf("region %d: loading obs-window evidence: %w", regionID, err)
			}

			result := state.Step(obsCMEs, associated, associated)
			if result.Accepted {
				if err := st.InsertSlice(result.Slice); err != nil {
					return fmt.Errorf("region %d: persisting slice: %w", regionID, err)
				}
				t.accepted++
				t.labelOnes += result.Slice.Label
			} else {
				if err := st.InsertRejectedSlice(result.Rejected); err != nil {
					return fmt.Errorf("region %d: persisting rejected slice: %w", regionID, err)
				}
				t.rejected++
			}
		}
		tallies <- t
		return nil
	})
	close(tallies)

	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("pipeline: stage F aborted: %w", r.Err)
		}
	}

	var accepted, rejected, labelOnes []int
	for t := range tallies {
		accepted = append(accepted, t.accepted)
		rejected = append(rejected, t.rejected)
		labelOnes = append(labelOnes, t.labelOnes)
	}
	report.AcceptedSlices += sumCounts(accepted)
	report.RejectedSlices += sumCounts(rejected)
	report.Finalize(sumCounts(labelOnes), report.AcceptedSlices)

	log.Info("pipeline: stage F complete")
	return nil
}

// obsEvidence loads the §4.F step-1 validity evidence for one region's obs
// window: every CME detected in [start,end) along with whether it is
// spatially consistent with, already associated to, or has a dimming/flare
// matched to this region.
func obsEvidence(st *store.Store, regionID int, start, end time.Time, assocs []types.Association) ([]slicer.CMEObsEvidence, error) {
	cmes, err := st.CMEsInTimeRange(start, end)
	if err != nil {
		return nil, err
	}

	out := make([]slicer.CMEObsEvidence, 0, len(cmes))
	for _, cme := range cmes {
		ev := slicer.CMEObsEvidence{CMEID: cme.CMEID, DetectionTs: cme.DetectionTs}

		candidates, err := st.SpatiallyConsistentForCME(cme.CMEID)
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			if c.RegionID == regionID {
				ev.SpatiallyConsistentHere = true
				break
			}
		}

		matched, err := st.MatchedEventsForCME(cme.CMEID)
		if err != nil {
			return nil, err
		}
		for _, m := range matched {
			if m.RegionID == regionID && (m.DimmingID != nil || m.FlareID != nil) {
				ev.HasDimmingOrFlareHere = true
				break
			}
		}

		for _, a := range assocs {
			if a.CMEID == cme.CMEID {
				ev.IsFinalAssocHere = true
				break
			}
		}

		out = append(out, ev)
	}
	return out, nil
}
