package pipeline

import (
	"fmt"
	"time"

	"github.com/jhc00/cmesrc/internal/association"
	"github.com/jhc00/cmesrc/internal/geometry"
	"github.com/jhc00/cmesrc/internal/ingest"
	"github.com/jhc00/cmesrc/internal/log"
	"github.com/jhc00/cmesrc/internal/matcher"
	"github.com/jhc00/cmesrc/internal/store"
	"github.com/jhc00/cmesrc/internal/types"
	"github.com/jhc00/cmesrc/pkg/config"
)

// runStageDE implements §4.D+§4.E together: for every CME (ascending
// detection time, the run's deterministic order), the spatial/temporal
// matcher finds spatially-consistent candidate regions, each candidate's
// dimming/flare evidence is matched to the same region within the
// association window, and the resolver picks the unique winner. CMEs whose
// quality is not "good" are skipped. A single association.Pool spans the
// whole run, so a dimming or flare claimed by one association is not offered
// to any later association, in any region.
func runStageDE(st *store.Store, params *config.PipelineParams, report *Report) error {
	regions, err := st.AllRegions()
	if err != nil {
		return fmt.Errorf("pipeline: stage D loading regions: %w", err)
	}
	lifetimes := make([]matcher.RegionLifetime, len(regions))
	for i, r := range regions {
		lifetimes[i] = matcher.RegionLifetime{RegionID: r.RegionID, Start: r.Start, End: r.End}
	}

	cmes, err := st.AllCMEsAscending()
	if err != nil {
		return fmt.Errorf("pipeline: stage D loading CMEs: %w", err)
	}
	log.Infof("pipeline: stage D/E starting over %d CMEs", len(cmes))

	window := time.Duration(params.AssociationWindowHours * float64(time.Hour))
	pool := association.NewPool()

	for _, cme := range cmes {
		if !ingest.IsGoodQuality(cme) {
			continue
		}
		bracket := matcher.TemporalBracket(lifetimes, cme.DetectionTs)
		bracketIDs := make([]int, len(bracket))
		for i, b := range bracket {
			bracketIDs[i] = b.RegionID
		}

		var candidates []association.Candidate
		for _, region := range bracket {
			box, ok := snapshotAt(st, region.RegionID, cme.DetectionTs)
			if !ok {
				continue
			}
			if !matcher.CMESpatialMatch(box, cme) {
				continue
			}

			if err := st.InsertSpatiallyConsistent([]types.SpatiallyConsistent{
				{RegionID: region.RegionID, CMEID: cme.CMEID},
			}); err != nil {
				return fmt.Errorf("pipeline: stage D persisting candidate region=%d cme=%d: %w", region.RegionID, cme.CMEID, err)
			}

			cand := association.Candidate{RegionID: region.RegionID, CMEID: cme.CMEID}

			if dimmingID, diffH, ok := matchNearestDimming(st, cme.DetectionTs, window, bracketIDs, region.RegionID); ok {
				cand.HasDimming = true
				cand.DimmingID = dimmingID
				cand.DimmingHoursDiff = diffH
			}
			if flareID, diffH, score, ok := matchNearestFlare(st, cme.DetectionTs, window, bracketIDs, region.RegionID); ok {
				cand.HasFlare = true
				cand.FlareID = flareID
				cand.FlareHoursDiff = diffH
				cand.FlareClassScore = score
			}

			var me types.MatchedEvent
			me.RegionID, me.CMEID = region.RegionID, cme.CMEID
			if cand.HasDimming {
				id, diff := cand.DimmingID, cand.DimmingHoursDiff
				me.DimmingID, me.DimmingHoursDiff = &id, &diff
			}
			if cand.HasFlare {
				id, diff := cand.FlareID, cand.FlareHoursDiff
				me.FlareID, me.FlareHoursDiff = &id, &diff
			}
			if err := st.InsertMatchedEvent(me); err != nil {
				return fmt.Errorf("pipeline: stage D persisting matched event region=%d cme=%d: %w", region.RegionID, cme.CMEID, err)
			}

			candidates = append(candidates, cand)
		}

		assoc, ok := association.Resolve(cme.CMEID, candidates, pool)
		if !ok {
			report.CMEs.Unmatched++
			continue
		}
		report.CMEs.Matched++
		if err := st.InsertAssociation(assoc); err != nil {
			return fmt.Errorf("pipeline: stage E persisting association cme=%d: %w", cme.CMEID, err)
		}
	}

	log.Info("pipeline: stage D/E complete")
	return nil
}

// snapshotAt wraps matcher.BBoxSnapshot with the nearest-sample lookup,
// logging and skipping (never aborting) a region with no bbox coverage or
// an invalid geometry at this timestamp.
func snapshotAt(st *store.Store, regionID int, ts time.Time) (geometry.BoundingBox, bool) {
	nearest, err := st.NearestBBoxSample(regionID, ts)
	if err != nil {
		return geometry.BoundingBox{}, false
	}
	box, err := matcher.BBoxSnapshot(nearest, ts)
	if err != nil {
		log.Warnf("pipeline: region %d invalid bbox snapshot at %s: %v", regionID, ts, err)
		return geometry.BoundingBox{}, false
	}
	return box, true
}

// matchNearestDimming matches the dimmings inside [cmeTs-window, cmeTs] to
// the best-scoring region among candidateRegionIDs, returning whether
// targetRegionID was the winner.
func matchNearestDimming(st *store.Store, cmeTs time.Time, window time.Duration, candidateRegionIDs []int, targetRegionID int) (dimmingID int, diffH float64, matched bool) {
	dimmings, err := st.DimmingsNear(cmeTs, window)
	if err != nil || len(dimmings) == 0 {
		return 0, 0, false
	}

	for _, d := range dimmings {
		scores := make(map[int]float64, len(candidateRegionIDs))
		for _, rid := range candidateRegionIDs {
			box, ok := snapshotAt(st, rid, d.Ts)
			if !ok {
				continue
			}
			pt := geometry.NewPoint(d.Ts, d.Lon, d.Lat)
			dist := box.SphericalPointToBBoxDistance(pt)
			scores[rid] = matcher.DimmingSpatialScore(dist)
		}
		winner, _, ok := matcher.BestMatch(scores)
		if ok && winner == targetRegionID {
			return d.DimmingID, cmeTs.Sub(d.Ts).Hours(), true
		}
	}
	return 0, 0, false
}

// matchNearestFlare is matchNearestDimming's flare counterpart; flares carry a
// class score the dimming table has no equivalent of.
func matchNearestFlare(st *store.Store, cmeTs time.Time, window time.Duration, candidateRegionIDs []int, targetRegionID int) (flareID int, diffH, classScore float64, matched bool) {
	flares, err := st.FlaresNear(cmeTs, window)
	if err != nil || len(flares) == 0 {
		return 0, 0, 0, false
	}

	for _, f := range flares {
		scores := make(map[int]float64, len(candidateRegionIDs))
		for _, rid := range candidateRegionIDs {
			box, ok := snapshotAt(st, rid, f.Ts)
			if !ok {
				continue
			}
			pt := geometry.NewPoint(f.Ts, f.Lon, f.Lat)
			dist := box.SphericalPointToBBoxDistance(pt)
			scores[rid] = matcher.FlareSpatialScore(dist)
		}
		winner, _, ok := matcher.BestMatch(scores)
		if ok && winner == targetRegionID {
			return f.FlareID, cmeTs.Sub(f.Ts).Hours(), f.ClassScore, true
		}
	}
	return 0, 0, 0, false
}
