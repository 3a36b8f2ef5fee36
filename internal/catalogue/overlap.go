package catalogue

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/jhc00/cmesrc/internal/types"
)

// PairStats holds the §4.B.6 pairwise statistics for two co-existing
// regions: MeanOverlap/OverlapStddev are computed over their shared
// timestamps, CoOccurrencePct over region a's full lifetime.
type PairStats struct {
	RegionA, RegionB int
	AreaA, AreaB     float64
	MeanOverlap      float64
	OverlapStddev    float64
	CoOccurrencePct  float64
}

// rectOverlapPct returns the lon/lat rectangular overlap of a against b, as
// a percentage of a's area.
func rectOverlapPct(a, b types.BBoxSample) float64 {
	lonOverlap := math.Min(a.LonMax, b.LonMax) - math.Max(a.LonMin, b.LonMin)
	latOverlap := math.Min(a.LatMax, b.LatMax) - math.Max(a.LatMin, b.LatMin)
	if lonOverlap <= 0 || latOverlap <= 0 {
		return 0
	}

	aArea := (a.LonMax - a.LonMin) * (a.LatMax - a.LatMin)
	if aArea <= 0 {
		return 0
	}
	overlapArea := lonOverlap * latOverlap
	return overlapArea / aArea * 100
}

// ComputePairStats implements §4.B.6's per-timestamp overlap statistics for
// one ordered region pair (a,b), using gonum/stat for the mean/stddev
// aggregation over the per-step overlap percentages.
func ComputePairStats(regionA, regionB int, areaA, areaB float64, samplesA, samplesB []types.BBoxSample) PairStats {
	byTsB := make(map[time.Time]types.BBoxSample, len(samplesB))
	for _, s := range samplesB {
		byTsB[s.Ts] = s
	}

	var overlaps []float64
	coOccurring := 0
	for _, a := range samplesA {
		b, ok := byTsB[a.Ts]
		if !ok {
			continue
		}
		pct := rectOverlapPct(a, b)
		overlaps = append(overlaps, pct)
		if pct > 0 {
			coOccurring++
		}
	}

	if len(overlaps) == 0 {
		return PairStats{RegionA: regionA, RegionB: regionB, AreaA: areaA, AreaB: areaB}
	}

	mean, std := stat.MeanStdDev(overlaps, nil)
	// co_occurrence_pct is the fraction of a's own lifetime (not the shared
	// timestamp count) during which b overlaps it at all.
	coOccurrencePct := float64(coOccurring) / float64(len(samplesA)) * 100

	return PairStats{
		RegionA:         regionA,
		RegionB:         regionB,
		AreaA:           areaA,
		AreaB:           areaB,
		MeanOverlap:     mean,
		OverlapStddev:   std,
		CoOccurrencePct: coOccurrencePct,
	}
}

// OrderByArea returns the pair swapped so that AreaA < AreaB, the §4.B.6
// ordering convention.
func (p PairStats) OrderByArea() PairStats {
	if p.AreaA < p.AreaB {
		return p
	}
	return PairStats{
		RegionA:         p.RegionB,
		RegionB:         p.RegionA,
		AreaA:           p.AreaB,
		AreaB:           p.AreaA,
		MeanOverlap:     p.MeanOverlap,
		OverlapStddev:   p.OverlapStddev,
		CoOccurrencePct: p.CoOccurrencePct,
	}
}

// OverlapDecision is the §4.B.6 bad-overlap policy outcome.
type OverlapDecision string

const (
	DecisionNone   OverlapDecision = ""
	DecisionMerged OverlapDecision = "merged"
	DecisionDeleted OverlapDecision = "deleted"
)

// ClassifyOverlap applies the duplicate-detection policy thresholds (default
// 50/50 for "bad", 70/90 for merge-vs-delete, per pkg/config defaults).
func ClassifyOverlap(p PairStats, badMeanOverlap, badCoOccurrence, mergeCoOccurrence, mergeMeanOverlap float64) OverlapDecision {
	bad := p.MeanOverlap == 100 || (p.MeanOverlap > badMeanOverlap && p.CoOccurrencePct > badCoOccurrence)
	if !bad {
		return DecisionNone
	}
	if p.CoOccurrencePct > mergeCoOccurrence && p.MeanOverlap > mergeMeanOverlap {
		return DecisionMerged
	}
	return DecisionDeleted
}

// ToOverlapRecord converts a classified bad-overlap pair into the persisted
// record shape, using the OrderByArea-ordered pair.
func (p PairStats) ToOverlapRecord(decision OverlapDecision) types.OverlapRecord {
	ordered := p.OrderByArea()
	return types.OverlapRecord{
		RegionIDA:       ordered.RegionA,
		RegionIDB:       ordered.RegionB,
		Decision:        string(decision),
		MeanOverlap:     ordered.MeanOverlap,
		StdOverlap:      ordered.OverlapStddev,
		CoOccurrencePct: ordered.CoOccurrencePct,
		AreaA:           ordered.AreaA,
		AreaB:           ordered.AreaB,
	}
}
