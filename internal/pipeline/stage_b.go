package pipeline

import (
	"context"
	"fmt"

	"github.com/jhc00/cmesrc/internal/catalogue"
	"github.com/jhc00/cmesrc/internal/ingest"
	"github.com/jhc00/cmesrc/internal/log"
	"github.com/jhc00/cmesrc/internal/store"
	"github.com/jhc00/cmesrc/internal/types"
	"github.com/jhc00/cmesrc/internal/workerpool"
	"github.com/jhc00/cmesrc/pkg/config"
)

// buildOutcome pairs a region id with the catalogue stage B materialised
// for it, handed off from the worker pool to the overlap pass.
type buildOutcome struct {
	regionID int
	result   catalogue.BuildResult
}

// runStageB builds the cleaned region catalogue (§4.B): per-region gap
// fill/trim/lifetime/area via the workerpool, then a pairwise overlap pass
// that records bad-overlap decisions, finally dropping the processed samples
// of every suppressed region and every region with area >= params.AreaLimit.
func runStageB(ctx context.Context, st *store.Store, pool *workerpool.Pool, params *config.PipelineParams, report *Report) error {
	regionIDs, err := st.DistinctRawRegionIDs()
	if err != nil {
		return fmt.Errorf("pipeline: stage B listing regions: %w", err)
	}
	log.Infof("pipeline: stage B starting over %d regions", len(regionIDs))

	outcomes := make(chan buildOutcome, len(regionIDs))

	results := pool.Run(ctx, regionIDs, func(ctx context.Context, regionID int) error {
		raw, err := st.RawBBoxSamplesForRegion(regionID)
		if err != nil {
			return fmt.Errorf("region %d: loading raw samples: %w", regionID, err)
		}
		rows := make([]ingest.RegionRow, len(raw))
		for i, s := range raw {
			rows[i] = ingest.RegionRow{
				Ts: s.Ts, LonMin: s.LonMin, LonMax: s.LonMax, LatMin: s.LatMin, LatMax: s.LatMax,
				TrustedField: s.TrustedField,
			}
		}

		result, err := catalogue.BuildRegion(regionID, rows)
		if err == catalogue.ErrNoBBoxData {
			report.Warn(fmt.Sprintf("region %d: no bbox data remains after trimming", regionID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("region %d: building catalogue: %w", regionID, err)
		}

		if err := st.InsertProcessedBBoxSamples(toProcessed(result.Samples)); err != nil {
			return fmt.Errorf("region %d: persisting processed samples: %w", regionID, err)
		}
		if err := st.InsertRegions([]types.Region{{
			RegionID: regionID, Start: result.StartTs, End: result.EndTs, Area: result.MeanArea,
		}}); err != nil {
			return fmt.Errorf("region %d: persisting region row: %w", regionID, err)
		}
		outcomes <- buildOutcome{regionID: regionID, result: result}
		return nil
	})
	close(outcomes)

	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("pipeline: stage B aborted: %w", r.Err)
		}
	}

	if err := detectDuplicateRegions(outcomes, st, params); err != nil {
		return fmt.Errorf("pipeline: stage B overlap pass: %w", err)
	}

	suppressed, err := st.SuppressedRegionIDs()
	if err != nil {
		return fmt.Errorf("pipeline: stage B loading suppressed regions: %w", err)
	}
	built, err := st.AllRegions()
	if err != nil {
		return fmt.Errorf("pipeline: stage B listing built regions: %w", err)
	}
	for _, r := range built {
		if r.Area < params.AreaLimit && !suppressed[r.RegionID] {
			continue
		}
		if err := st.DB.Where("region_id = ?", r.RegionID).Delete(&types.ProcessedBBoxSample{}).Error; err != nil {
			return fmt.Errorf("pipeline: stage B dropping processed samples of region %d: %w", r.RegionID, err)
		}
	}

	log.Info("pipeline: stage B complete")
	return nil
}

func toProcessed(samples []types.BBoxSample) []types.ProcessedBBoxSample {
	out := make([]types.ProcessedBBoxSample, len(samples))
	for i, s := range samples {
		out[i] = types.ProcessedBBoxSample{BBoxSample: s}
	}
	return out
}

// detectDuplicateRegions implements §4.B.6: every co-existing region pair is
// scored and bad pairs are recorded as merge/delete decisions.
func detectDuplicateRegions(outcomesCh <-chan buildOutcome, st *store.Store, params *config.PipelineParams) error {
	type regionSamples struct {
		regionID int
		area     float64
		samples  []types.BBoxSample
	}
	var all []regionSamples
	for o := range outcomesCh {
		all = append(all, regionSamples{regionID: o.regionID, area: o.result.MeanArea, samples: o.result.Samples})
	}

	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			// §4.B.6 requires the policy test run with a = the smaller-area
			// region, regardless of the order the worker pool finished the
			// pair in: pick it explicitly rather than trusting slice order.
			a, b := all[i], all[j]
			if b.area < a.area {
				a, b = b, a
			}
			stats := catalogue.ComputePairStats(a.regionID, b.regionID, a.area, b.area, a.samples, b.samples)
			if err := st.UpsertOverlap(types.Overlap{
				RegionIDA: a.regionID, RegionIDB: b.regionID,
				MeanOverlap: stats.MeanOverlap, OverlapStddev: stats.OverlapStddev,
				CoOccurrencePct: stats.CoOccurrencePct, RegionAreaA: a.area, RegionAreaB: b.area,
			}); err != nil {
				return err
			}

			decision := catalogue.ClassifyOverlap(stats,
				params.DuplicateMeanOverlapPct, params.DuplicateCoOccurrencePct,
				params.MergeCoOccurrencePct, params.MergeMeanOverlapPct)
			if decision == catalogue.DecisionNone {
				continue
			}
			if err := st.InsertOverlapRecord(stats.ToOverlapRecord(decision)); err != nil {
				return err
			}
		}
	}
	return nil
}
