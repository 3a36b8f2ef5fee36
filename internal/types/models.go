// Package types defines the gorm-mapped persistence records for every table
// named in the external interfaces: regions (HARPs), bbox samples, the three
// event catalogues, associations, overlap records, and dataset slices.
package types

import "time"

// Region is a magnetically distinct photospheric patch tracked over time
// (source term: HARP). Created once from the raw bbox stream; immutable
// thereafter.
type Region struct {
	RegionID int       `gorm:"primaryKey;column:region_id"`
	Start    time.Time `gorm:"column:start_ts;not null"`
	End      time.Time `gorm:"column:end_ts;not null"`
	Area     float64   `gorm:"column:area"` // % of visible-hemisphere area
	NNOAAs   int        `gorm:"column:n_noaas"`
}

func (Region) TableName() string { return "harps" }

// NOAAMapping records the legacy NOAA active-region numbers a Region overlaps.
type NOAAMapping struct {
	RegionID int `gorm:"primaryKey;column:region_id"`
	NOAA     int `gorm:"primaryKey;column:noaa"`
}

func (NOAAMapping) TableName() string { return "noaa_harpnum_mapping" }

// BBoxSample is a region's bounding box at a single 12-minute-grid timestamp.
type BBoxSample struct {
	RegionID     int       `gorm:"primaryKey;column:region_id"`
	Ts           time.Time `gorm:"primaryKey;column:timestamp"`
	LonMin       float64   `gorm:"column:lon_min"`
	LonMax       float64   `gorm:"column:lon_max"`
	LatMin       float64   `gorm:"column:lat_min"`
	LatMax       float64   `gorm:"column:lat_max"`
	Interpolated bool      `gorm:"column:interpolated"`
	TrustedField bool      `gorm:"column:trusted_field"`
}

// RawBBoxSample is the un-gap-filled, un-trimmed raw input table.
type RawBBoxSample struct {
	BBoxSample
}

func (RawBBoxSample) TableName() string { return "raw_harps_bbox" }

// ProcessedBBoxSample is the gap-filled, limb-trimmed, duplicate-free table
// stage B materialises; it is read-only once stage B completes (§5).
type ProcessedBBoxSample struct {
	BBoxSample
}

func (ProcessedBBoxSample) TableName() string { return "processed_harps_bbox" }

// CME is a coronal mass ejection detection.
type CME struct {
	CMEID       int       `gorm:"primaryKey;column:cme_id"`
	DetectionTs time.Time `gorm:"column:detection_ts;not null"`
	PA          *float64  `gorm:"column:pa"` // nil iff Halo
	Width       float64   `gorm:"column:width_deg;not null"`
	Halo        bool      `gorm:"column:halo"`
	Quality     string    `gorm:"column:quality"`
	SeenIn      string    `gorm:"column:seen_in"` // inner/outer coronagraph
}

func (CME) TableName() string { return "cmes" }

// Dimming is an EUV dimming detection.
type Dimming struct {
	DimmingID int       `gorm:"primaryKey;column:dimming_id"`
	Ts        time.Time `gorm:"column:peak_ts;not null"`
	Lon       float64   `gorm:"column:lon"`
	Lat       float64   `gorm:"column:lat"`
	OffDiskX  *float64  `gorm:"column:off_disk_x"`
	OffDiskY  *float64  `gorm:"column:off_disk_y"`
	OffDiskR  *float64  `gorm:"column:off_disk_r"`
}

func (Dimming) TableName() string { return "dimmings" }

// Flare is an X-ray flare detection. ClassScore follows A=0,B=10,C=20,M=30,
// X=40 plus fractional magnitude (e.g. M1.5 -> 31.5).
type Flare struct {
	FlareID      int       `gorm:"primaryKey;column:flare_id"`
	Ts           time.Time `gorm:"column:peak_ts;not null"`
	Lon          float64   `gorm:"column:lon"`
	Lat          float64   `gorm:"column:lat"`
	ClassScore   float64   `gorm:"column:class_score;not null"`
	ClassLabel   string    `gorm:"column:class_label"`
	Verification string    `gorm:"column:verification"`
}

func (Flare) TableName() string { return "flares" }

// SpatiallyConsistent records a (region, CME) candidate pair the matcher
// found spatially consistent, ahead of the resolver's tier/greedy pass.
type SpatiallyConsistent struct {
	RegionID int `gorm:"primaryKey;column:region_id"`
	CMEID    int `gorm:"primaryKey;column:cme_id"`
}

func (SpatiallyConsistent) TableName() string { return "cmes_harps_spatially_consist" }

// MatchedEvent records the dimming and/or flare the matcher paired with a
// spatially-consistent (region, CME) candidate, plus the signed hour offset
// (§9: positive when the event precedes the CME).
type MatchedEvent struct {
	RegionID        int      `gorm:"primaryKey;column:region_id"`
	CMEID           int      `gorm:"primaryKey;column:cme_id"`
	FlareID         *int     `gorm:"column:flare_id"`
	FlareHoursDiff  *float64 `gorm:"column:flare_hours_diff"`
	DimmingID       *int     `gorm:"column:dimming_id"`
	DimmingHoursDiff *float64 `gorm:"column:dimming_hours_diff"`
}

func (MatchedEvent) TableName() string { return "cmes_harps_events" }

// Association is the resolver's unique (region, CME) winner, at most one row
// per CME.
type Association struct {
	CMEID                int     `gorm:"primaryKey;column:cme_id"`
	RegionID             int     `gorm:"column:region_id;not null"`
	VerificationTier     int     `gorm:"column:verification_tier;not null"`
	VerificationScore    float64 `gorm:"column:verification_score"`
	Method               string  `gorm:"column:method"` // automatic|manual
	ExternallyVerified   bool    `gorm:"column:externally_verified"`
}

func (Association) TableName() string { return "final_cme_harp_associations" }

// Overlap holds the raw pairwise statistics stage B.6 computes for every
// co-existing region pair, prior to the bad-overlap policy decision.
type Overlap struct {
	RegionIDA        int     `gorm:"primaryKey;column:region_id_a"`
	RegionIDB        int     `gorm:"primaryKey;column:region_id_b"`
	MeanOverlap      float64 `gorm:"column:mean_overlap"`
	OverlapStddev    float64 `gorm:"column:overlap_stddev"`
	CoOccurrencePct  float64 `gorm:"column:co_occurrence_pct"`
	RegionAreaA      float64 `gorm:"column:region_area_a"`
	RegionAreaB      float64 `gorm:"column:region_area_b"`
}

func (Overlap) TableName() string { return "overlaps" }

// OverlapRecord is the §4.B.6 bad-overlap decision: merged or deleted, with
// the convention area(a) < area(b).
type OverlapRecord struct {
	RegionIDA       int     `gorm:"primaryKey;column:region_id_a"`
	RegionIDB       int     `gorm:"primaryKey;column:region_id_b"`
	Decision        string  `gorm:"column:decision"` // merged|deleted
	MeanOverlap     float64 `gorm:"column:mean_overlap"`
	StdOverlap      float64 `gorm:"column:std_overlap"`
	CoOccurrencePct float64 `gorm:"column:co_occurrence_pct"`
	AreaA           float64 `gorm:"column:area_a"`
	AreaB           float64 `gorm:"column:area_b"`
}

func (OverlapRecord) TableName() string { return "overlap_records" }

// RejectReason enumerates the tagged failure values a slice step can return
// in place of an accepted row (§7).
type RejectReason string

const (
	RejectNone                  RejectReason = ""
	RejectUnclearCMEPresent     RejectReason = "unclear_cme_present"
	RejectFinalCMEAssociation   RejectReason = "final_cme_association"
	RejectMissingImages         RejectReason = "missing_images"
	RejectNoBBoxData            RejectReason = "no_bbox_data"
)

// Slice is one labelled training window (§3, §4.F).
type Slice struct {
	SliceID      int64     `gorm:"primaryKey;autoIncrement;column:slice_id"`
	RegionID     int       `gorm:"column:region_id;not null;index"`
	LeadInStart  time.Time `gorm:"column:lead_in_start"`
	LeadInEnd    time.Time `gorm:"column:lead_in_end"`
	ObsStart     time.Time `gorm:"column:obs_start"`
	ObsEnd       time.Time `gorm:"column:obs_end"`
	PredStart    time.Time `gorm:"column:pred_start"`
	PredEnd      time.Time `gorm:"column:pred_end"`

	NCMEsBefore      int `gorm:"column:n_cmes_before"`
	NCMEsBeforeTier1 int `gorm:"column:n_cmes_before_tier1"`
	NCMEsBeforeTier2 int `gorm:"column:n_cmes_before_tier2"`
	NCMEsBeforeTier3 int `gorm:"column:n_cmes_before_tier3"`
	NCMEsBeforeTier4 int `gorm:"column:n_cmes_before_tier4"`
	NCMEsBeforeTier5 int `gorm:"column:n_cmes_before_tier5"`

	PrevCMEID     *int     `gorm:"column:prev_cme_id"`
	PrevCMEDiffH  *float64 `gorm:"column:prev_cme_diff_h"`

	Label int `gorm:"column:label;not null"` // 0 or 1

	NextCMEID         *int     `gorm:"column:next_cme_id"`
	NextCMEDiffH      *float64 `gorm:"column:next_cme_diff_h"`
	NextVerificationTier *int  `gorm:"column:next_verification_tier"`
}

func (Slice) TableName() string { return "general_dataset" }

// RejectedSlice is the §7 recovery row emitted when a slicer step fails its
// validity check instead of producing an accepted Slice.
type RejectedSlice struct {
	SliceID      int64        `gorm:"primaryKey;autoIncrement;column:slice_id"`
	RegionID     int          `gorm:"column:region_id;not null;index"`
	ObsStart     time.Time    `gorm:"column:obs_start"`
	ObsEnd       time.Time    `gorm:"column:obs_end"`
	RejectReason RejectReason `gorm:"column:reject_reason;not null"`
}

func (RejectedSlice) TableName() string { return "general_dataset_rejected" }

// SplitAssignment records the final split/fold a region was placed into by
// the §4.G partitioner.
type SplitAssignment struct {
	RegionID  int `gorm:"primaryKey;column:region_id"`
	GroupID   int `gorm:"column:group_id;not null"`
	Split     int `gorm:"column:split;not null"`
	Fold      int `gorm:"column:fold"`
	SubFold   int `gorm:"column:sub_fold"`
}

func (SplitAssignment) TableName() string { return "split_assignments" }
