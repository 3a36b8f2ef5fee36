// Package catalogue builds the cleaned region bbox catalogue: gap-filling by
// rotation, lifetime/area computation, beyond-limb trimming, and pairwise
// duplicate-region detection (§4.B).
package catalogue

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jhc00/cmesrc/internal/geometry"
	"github.com/jhc00/cmesrc/internal/ingest"
	"github.com/jhc00/cmesrc/internal/log"
	"github.com/jhc00/cmesrc/internal/types"
)

const sampleGrid = 12 * time.Minute

// ErrNoBBoxData is returned when a region has zero samples remaining after
// trimming (§7).
var ErrNoBBoxData = fmt.Errorf("catalogue: no bbox data remains for region")

// FillGaps implements §4.B.1: any run of consecutive missing samples between
// two present samples is filled by rotating the earlier sample forward for
// the first half of the gap and the later sample backward for the second
// half, mode=keep_shape. Only gaps between two present rows are filled: no
// samples are synthesised before the first row or after the last, so the
// output starts and ends at the input's first and last timestamps. rows must
// already be sorted ascending by Ts.
func FillGaps(regionID int, rows []ingest.RegionRow) ([]types.BBoxSample, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	samples := make([]types.BBoxSample, 0, len(rows))
	toSample := func(r ingest.RegionRow, interpolated bool) types.BBoxSample {
		return types.BBoxSample{
			RegionID:     regionID,
			Ts:           r.Ts,
			LonMin:       r.LonMin,
			LonMax:       r.LonMax,
			LatMin:       r.LatMin,
			LatMax:       r.LatMax,
			Interpolated: interpolated,
			TrustedField: r.TrustedField,
		}
	}

	for i := 0; i < len(rows); i++ {
		samples = append(samples, toSample(rows[i], rows[i].IsRotated))

		if i == len(rows)-1 {
			break
		}
		gap := rows[i+1].Ts.Sub(rows[i].Ts)
		steps := int(gap / sampleGrid)
		if steps <= 1 {
			continue
		}

		missing := steps - 1
		before := toSample(rows[i], rows[i].IsRotated)
		after := toSample(rows[i+1], rows[i+1].IsRotated)

		beforeBox, err := bboxFromSample(before)
		if err != nil {
			log.Warnf("catalogue: region %d skipping gap fill from %s: %v", regionID, before.Ts, err)
			continue
		}
		afterBox, err := bboxFromSample(after)
		if err != nil {
			log.Warnf("catalogue: region %d skipping gap fill to %s: %v", regionID, after.Ts, err)
			continue
		}

		half := (missing + 1) / 2
		for step := 1; step <= missing; step++ {
			ts := rows[i].Ts.Add(time.Duration(step) * sampleGrid)
			var filled geometry.BoundingBox
			var rotErr error
			if step <= half {
				filled, rotErr = beforeBox.RotateBBoxTo(ts, geometry.ModeKeepShape)
			} else {
				filled, rotErr = afterBox.RotateBBoxTo(ts, geometry.ModeKeepShape)
			}
			if rotErr != nil {
				log.Warnf("catalogue: region %d gap fill at %s produced invalid bbox: %v", regionID, ts, rotErr)
				continue
			}
			samples = append(samples, types.BBoxSample{
				RegionID:     regionID,
				Ts:           ts,
				LonMin:       filled.LonMin,
				LonMax:       filled.LonMax,
				LatMin:       filled.LatMin,
				LatMax:       filled.LatMax,
				Interpolated: true,
				TrustedField: before.TrustedField && after.TrustedField,
			})
		}
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].Ts.Before(samples[j].Ts) })
	return samples, nil
}

func bboxFromSample(s types.BBoxSample) (geometry.BoundingBox, error) {
	return geometry.NewBoundingBox(s.Ts, s.LonMin, s.LatMin, s.LonMax, s.LatMax)
}

// Lifetime returns (start_ts, end_ts) per §4.B.3.
func Lifetime(samples []types.BBoxSample) (start, end time.Time) {
	if len(samples) == 0 {
		return time.Time{}, time.Time{}
	}
	start, end = samples[0].Ts, samples[0].Ts
	for _, s := range samples[1:] {
		if s.Ts.Before(start) {
			start = s.Ts
		}
		if s.Ts.After(end) {
			end = s.Ts
		}
	}
	return start, end
}

// MeanArea implements §4.B.4: the arithmetic mean of each sample's
// fractional hemisphere area A = (Δlon · |sin(lat_max) − sin(lat_min)|) /
// (2π), expressed as a percentage. NULL/invalid samples contribute zero.
func MeanArea(samples []types.BBoxSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		dLon := (s.LonMax - s.LonMin) * math.Pi / 180
		sinDiff := math.Abs(math.Sin(s.LatMax*math.Pi/180) - math.Sin(s.LatMin*math.Pi/180))
		area := (dLon * sinDiff) / (2 * math.Pi) * 100
		if !math.IsNaN(area) && area >= 0 {
			sum += area
		}
	}
	return sum / float64(len(samples))
}

// TrimBeyondLimb implements §4.B.5: drop samples entirely beyond the limb on
// one side, clamp the rest to |lon|<=90.
func TrimBeyondLimb(samples []types.BBoxSample) []types.BBoxSample {
	out := make([]types.BBoxSample, 0, len(samples))
	for _, s := range samples {
		if (s.LonMin < -90 && s.LonMax < -90) || (s.LonMin > 90 && s.LonMax > 90) {
			continue
		}
		s.LonMin = math.Max(s.LonMin, -90)
		s.LonMax = math.Min(s.LonMax, 90)
		out = append(out, s)
	}
	return out
}

// BuildResult is the output of processing a single region's raw time series.
type BuildResult struct {
	Samples  []types.BBoxSample
	StartTs  time.Time
	EndTs    time.Time
	MeanArea float64
}

// BuildRegion runs steps 1-5 of §4.B for a single region's raw rows
// (already sorted ascending by timestamp). An entirely empty result after
// trimming returns ErrNoBBoxData.
func BuildRegion(regionID int, rows []ingest.RegionRow) (BuildResult, error) {
	filled, err := FillGaps(regionID, rows)
	if err != nil {
		return BuildResult{}, err
	}

	trimmed := TrimBeyondLimb(filled)
	if len(trimmed) == 0 {
		return BuildResult{}, ErrNoBBoxData
	}

	start, end := Lifetime(trimmed)
	return BuildResult{
		Samples:  trimmed,
		StartTs:  start,
		EndTs:    end,
		MeanArea: MeanArea(rawSamples(regionID, rows)),
	}, nil
}

// rawSamples converts raw input rows straight to BBoxSamples, with no gap
// fill or limb trim — step 4's area is computed over RAW_HARPS_BBOX, ahead
// of step 5's trim.
func rawSamples(regionID int, rows []ingest.RegionRow) []types.BBoxSample {
	out := make([]types.BBoxSample, len(rows))
	for i, r := range rows {
		out[i] = types.BBoxSample{
			RegionID: regionID, Ts: r.Ts,
			LonMin: r.LonMin, LonMax: r.LonMax, LatMin: r.LatMin, LatMax: r.LatMax,
			TrustedField: r.TrustedField,
		}
	}
	return out
}
