package store

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm/clause"

	"github.com/jhc00/cmesrc/internal/types"
)

// InsertRawBBoxSamples bulk-inserts the raw, ungapped region time series.
func (s *Store) InsertRawBBoxSamples(samples []types.RawBBoxSample) error {
	if len(samples) == 0 {
		return nil
	}
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(samples, 500).Error
}

// InsertProcessedBBoxSamples bulk-inserts the gap-filled, limb-trimmed
// samples stage B materialises.
func (s *Store) InsertProcessedBBoxSamples(samples []types.ProcessedBBoxSample) error {
	if len(samples) == 0 {
		return nil
	}
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(samples, 500).Error
}

// InsertCMEs bulk-inserts the normalised CME catalogue (stage C).
func (s *Store) InsertCMEs(rows []types.CME) error {
	if len(rows) == 0 {
		return nil
	}
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 500).Error
}

// InsertDimmings bulk-inserts the normalised dimming catalogue (stage C).
func (s *Store) InsertDimmings(rows []types.Dimming) error {
	if len(rows) == 0 {
		return nil
	}
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 500).Error
}

// InsertFlares bulk-inserts the normalised flare catalogue (stage C).
func (s *Store) InsertFlares(rows []types.Flare) error {
	if len(rows) == 0 {
		return nil
	}
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 500).Error
}

// InsertRegions bulk-inserts the region catalogue computed by stage B.
func (s *Store) InsertRegions(rows []types.Region) error {
	if len(rows) == 0 {
		return nil
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "region_id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 500).Error
}

// CMEByID loads a single CME by id, used to resolve detection timestamps
// for associations pinned to a region.
func (s *Store) CMEByID(cmeID int) (types.CME, error) {
	var c types.CME
	err := s.DB.Where("cme_id = ?", cmeID).First(&c).Error
	return c, err
}

// RawBBoxSamplesForRegion returns a region's raw samples in ascending
// timestamp order.
func (s *Store) RawBBoxSamplesForRegion(regionID int) ([]types.RawBBoxSample, error) {
	var rows []types.RawBBoxSample
	err := s.DB.Where("region_id = ?", regionID).Order("timestamp ASC").Find(&rows).Error
	return rows, err
}

// ProcessedBBoxSamplesForRegion returns a region's processed samples in
// ascending timestamp order, restricted to the on-disk population
// (|lon_min|<70 AND |lon_max|<70) when onDiskOnly is true — this is the
// `table` parameter's |lon|<=70 selection from §6.
func (s *Store) ProcessedBBoxSamplesForRegion(regionID int, onDiskOnly bool) ([]types.ProcessedBBoxSample, error) {
	q := s.DB.Where("region_id = ?", regionID)
	if onDiskOnly {
		q = q.Where("lon_min > -70 AND lon_max < 70")
	}
	var rows []types.ProcessedBBoxSample
	err := q.Order("timestamp ASC").Find(&rows).Error
	return rows, err
}

// NearestBBoxSample finds the processed sample closest in time to ts for a
// region, used by the matcher's bbox-snapshot lookup (§4.D).
func (s *Store) NearestBBoxSample(regionID int, ts time.Time) (types.ProcessedBBoxSample, error) {
	var before, after types.ProcessedBBoxSample
	errBefore := s.DB.Where("region_id = ? AND timestamp <= ?", regionID, ts).
		Order("timestamp DESC").Limit(1).Find(&before).Error
	errAfter := s.DB.Where("region_id = ? AND timestamp >= ?", regionID, ts).
		Order("timestamp ASC").Limit(1).Find(&after).Error
	if errBefore != nil {
		return types.ProcessedBBoxSample{}, errBefore
	}
	if errAfter != nil {
		return types.ProcessedBBoxSample{}, errAfter
	}

	haveBefore := !before.Ts.IsZero()
	haveAfter := !after.Ts.IsZero()
	switch {
	case haveBefore && haveAfter:
		if ts.Sub(before.Ts).Abs() <= after.Ts.Sub(ts).Abs() {
			return before, nil
		}
		return after, nil
	case haveBefore:
		return before, nil
	case haveAfter:
		return after, nil
	default:
		return types.ProcessedBBoxSample{}, fmt.Errorf("store: no bbox samples for region %d", regionID)
	}
}

// DistinctRawRegionIDs returns every region id with at least one raw bbox
// sample, ascending, the population stage B iterates over.
func (s *Store) DistinctRawRegionIDs() ([]int, error) {
	var ids []int
	err := s.DB.Model(&types.RawBBoxSample{}).Distinct().Order("region_id ASC").Pluck("region_id", &ids).Error
	return ids, err
}

// RegionsUnderAreaLimit returns regions whose mean area is below limit
// (the §3 area >= 18 exclusion).
func (s *Store) RegionsUnderAreaLimit(limit float64) ([]types.Region, error) {
	var regions []types.Region
	err := s.DB.Where("area < ?", limit).Order("region_id ASC").Find(&regions).Error
	return regions, err
}

// AllRegions returns every region ordered by ascending id, the deterministic
// iteration order §5 requires.
func (s *Store) AllRegions() ([]types.Region, error) {
	var regions []types.Region
	err := s.DB.Order("region_id ASC").Find(&regions).Error
	return regions, err
}

// UpsertOverlap records the raw pairwise statistics for a region pair.
func (s *Store) UpsertOverlap(o types.Overlap) error {
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "region_id_a"}, {Name: "region_id_b"}},
		UpdateAll: true,
	}).Create(&o).Error
}

// InsertOverlapRecord records a bad-overlap merge/delete decision.
func (s *Store) InsertOverlapRecord(r types.OverlapRecord) error {
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&r).Error
}

// SuppressedRegionIDs returns every region_id_a appearing in a bad-overlap
// record — excluded from PROCESSED_HARPS_BBOX per §4.B.7.
func (s *Store) SuppressedRegionIDs() (map[int]bool, error) {
	var rows []types.OverlapRecord
	if err := s.DB.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[int]bool, len(rows))
	for _, r := range rows {
		out[r.RegionIDA] = true
	}
	return out, nil
}

// AllCMEsAscending returns every CME ordered by detection time, the
// deterministic processing order stage D/E iterate in.
func (s *Store) AllCMEsAscending() ([]types.CME, error) {
	var rows []types.CME
	err := s.DB.Order("detection_ts ASC").Find(&rows).Error
	return rows, err
}

// CMEsInTimeRange returns CMEs with detection_ts in [start,end), ascending.
func (s *Store) CMEsInTimeRange(start, end time.Time) ([]types.CME, error) {
	var rows []types.CME
	err := s.DB.Where("detection_ts >= ? AND detection_ts < ?", start, end).
		Order("detection_ts ASC").Find(&rows).Error
	return rows, err
}

// FlaresNear returns flares within window of ts, ascending by time.
func (s *Store) FlaresNear(ts time.Time, window time.Duration) ([]types.Flare, error) {
	var rows []types.Flare
	err := s.DB.Where("peak_ts BETWEEN ? AND ?", ts.Add(-window), ts).
		Order("peak_ts ASC").Find(&rows).Error
	return rows, err
}

// DimmingsNear returns dimmings within window of ts, ascending by time.
func (s *Store) DimmingsNear(ts time.Time, window time.Duration) ([]types.Dimming, error) {
	var rows []types.Dimming
	err := s.DB.Where("peak_ts BETWEEN ? AND ?", ts.Add(-window), ts).
		Order("peak_ts ASC").Find(&rows).Error
	return rows, err
}

// InsertSpatiallyConsistent records a (region, CME) candidate pair.
func (s *Store) InsertSpatiallyConsistent(rows []types.SpatiallyConsistent) error {
	if len(rows) == 0 {
		return nil
	}
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 500).Error
}

// SpatiallyConsistentForCME returns every region candidate for a CME,
// ascending by region_id (the §5 tie-break floor).
func (s *Store) SpatiallyConsistentForCME(cmeID int) ([]types.SpatiallyConsistent, error) {
	var rows []types.SpatiallyConsistent
	err := s.DB.Where("cme_id = ?", cmeID).Order("region_id ASC").Find(&rows).Error
	return rows, err
}

// InsertMatchedEvent records the dimming/flare pairing the matcher found for
// a spatially-consistent (region, CME) candidate.
func (s *Store) InsertMatchedEvent(e types.MatchedEvent) error {
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "region_id"}, {Name: "cme_id"}},
		UpdateAll: true,
	}).Create(&e).Error
}

// MatchedEventsForCME returns every matched-event row for a CME, ascending
// by region_id.
func (s *Store) MatchedEventsForCME(cmeID int) ([]types.MatchedEvent, error) {
	var rows []types.MatchedEvent
	err := s.DB.Where("cme_id = ?", cmeID).Order("region_id ASC").Find(&rows).Error
	return rows, err
}

// InsertAssociation records the resolver's unique winner for a CME.
func (s *Store) InsertAssociation(a types.Association) error {
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cme_id"}},
		UpdateAll: true,
	}).Create(&a).Error
}

// AssociationsForRegion returns every association pinned to a region,
// ascending by cme_id — used by the slicer's history and
// label queries (§4.F).
func (s *Store) AssociationsForRegion(regionID int) ([]types.Association, error) {
	var rows []types.Association
	err := s.DB.Where("region_id = ?", regionID).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CMEID < rows[j].CMEID })
	return rows, nil
}

// InsertSlice persists one accepted dataset row.
func (s *Store) InsertSlice(row types.Slice) error {
	return s.DB.Create(&row).Error
}

// InsertRejectedSlice persists one rejected-window row.
func (s *Store) InsertRejectedSlice(row types.RejectedSlice) error {
	return s.DB.Create(&row).Error
}

// AllOverlaps returns every pairwise overlap statistic row, used by the §4.G
// partitioner to build its relaxed-overlap grouping graph.
func (s *Store) AllOverlaps() ([]types.Overlap, error) {
	var rows []types.Overlap
	err := s.DB.Find(&rows).Error
	return rows, err
}

// InsertSplitAssignments persists the §4.G partitioner's final region→split
// mapping.
func (s *Store) InsertSplitAssignments(rows []types.SplitAssignment) error {
	if len(rows) == 0 {
		return nil
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "region_id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 500).Error
}
