// Package slicer implements the §4.F window slicer: a per-region state
// machine that walks the region's lifetime at a fixed cadence, emitting one
// accepted or rejected training-window row per step.
package slicer

import (
	"time"

	"github.com/jhc00/cmesrc/internal/types"
)

// Period is a half-open [Start, End) time window.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls in [Start, End).
func (p Period) Contains(ts time.Time) bool {
	return !ts.Before(p.Start) && ts.Before(p.End)
}

// State is the slicer's walk position for one region.
type State struct {
	RegionID int

	ObsLen  time.Duration
	StepLen time.Duration
	Strict  bool

	CurrentTs time.Time
	Finished  bool

	// TrueStart/TrueEnd are the region's unrestricted lifetime;
	// HourlyStart/HourlyEnd are restricted to on-disk (|lon|<=70) samples.
	TrueStart, TrueEnd     time.Time
	HourlyStart, HourlyEnd time.Time
	LastOnDiskTs           time.Time
}

// snapToHalfPastHour returns the first half-past-the-hour timestamp at or
// after t.
func snapToHalfPastHour(t time.Time) time.Time {
	halfPast := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 30, 0, 0, t.Location())
	if halfPast.Before(t) {
		halfPast = halfPast.Add(time.Hour)
	}
	return halfPast
}

// NewState builds the initial slicer state for a region: current_ts starts
// at the region's true_start snapped to half-past-the-hour.
func NewState(regionID int, obsLenH, stepH int, strict bool, trueStart, trueEnd, hourlyStart, hourlyEnd, lastOnDiskTs time.Time) *State {
	return &State{
		RegionID:     regionID,
		ObsLen:       time.Duration(obsLenH) * time.Hour,
		StepLen:      time.Duration(stepH) * time.Hour,
		Strict:       strict,
		CurrentTs:    snapToHalfPastHour(trueStart),
		TrueStart:    trueStart,
		TrueEnd:      trueEnd,
		HourlyStart:  hourlyStart,
		HourlyEnd:    hourlyEnd,
		LastOnDiskTs: lastOnDiskTs,
	}
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// Periods computes the three windows for the current position (§4.F).
func (s *State) Periods() (leadIn, obs, pred Period) {
	leadIn = Period{Start: minTime(s.TrueStart, s.HourlyStart), End: s.CurrentTs}
	obs = Period{Start: s.CurrentTs, End: s.CurrentTs.Add(s.ObsLen)}
	pred = Period{Start: obs.End, End: maxTime(s.TrueEnd, s.HourlyEnd)}
	return leadIn, obs, pred
}

// CMEObsEvidence describes one CME whose detection falls in the obs window,
// carrying the per-region evidence needed for the validity check.
type CMEObsEvidence struct {
	CMEID                   int
	DetectionTs             time.Time
	SpatiallyConsistentHere bool
	HasDimmingOrFlareHere   bool
	IsFinalAssocHere        bool
}

// AssociatedCME is one final association whose CME detection falls in a
// lead-in or pred window, used by the history and label queries.
type AssociatedCME struct {
	CMEID       int
	DetectionTs time.Time
	Tier        int
}

// checkValidity implements §4.F step 1. Order: the final-association reject
// is unconditional and checked first since it always applies; the strict
// unclear-CME-present check only runs when Strict is set.
func (s *State) checkValidity(obsCMEs []CMEObsEvidence) types.RejectReason {
	for _, c := range obsCMEs {
		if c.IsFinalAssocHere {
			return types.RejectFinalCMEAssociation
		}
	}
	if s.Strict {
		for _, c := range obsCMEs {
			if c.SpatiallyConsistentHere && c.HasDimmingOrFlareHere && !c.IsFinalAssocHere {
				return types.RejectUnclearCMEPresent
			}
		}
	}
	return types.RejectNone
}

// hoursDiff applies the §9 sign convention: positive when eventTs precedes
// cmeTs.
func hoursDiff(cmeTs, eventTs time.Time) float64 {
	return cmeTs.Sub(eventTs).Hours()
}

// history implements §4.F step 2: the latest associated CME in lead_in plus
// per-tier counts.
func history(leadIn Period, assocs []AssociatedCME, currentTs time.Time) (prevID *int, prevDiffH *float64, nBefore int, byTier [5]int) {
	var latest *AssociatedCME
	for i := range assocs {
		a := assocs[i]
		if !leadIn.Contains(a.DetectionTs) {
			continue
		}
		nBefore++
		if a.Tier >= 1 && a.Tier <= 5 {
			byTier[a.Tier-1]++
		}
		if latest == nil || a.DetectionTs.After(latest.DetectionTs) {
			latest = &a
		}
	}
	if latest == nil {
		return nil, nil, nBefore, byTier
	}
	id := latest.CMEID
	diff := hoursDiff(currentTs, latest.DetectionTs)
	return &id, &diff, nBefore, byTier
}

// label implements §4.F step 3: the earliest associated CME in pred, its
// hours-ahead diff and tier; absence means label=0.
func label(pred Period, assocs []AssociatedCME) (lbl int, nextID *int, nextDiffH *float64, nextTier *int) {
	var earliest *AssociatedCME
	for i := range assocs {
		a := assocs[i]
		if !pred.Contains(a.DetectionTs) {
			continue
		}
		if earliest == nil || a.DetectionTs.Before(earliest.DetectionTs) {
			earliest = &a
		}
	}
	if earliest == nil {
		return 0, nil, nil, nil
	}
	id := earliest.CMEID
	diff := hoursDiff(earliest.DetectionTs, pred.Start)
	tier := earliest.Tier
	return 1, &id, &diff, &tier
}

// StepResult is the outcome of one Step call.
type StepResult struct {
	Accepted bool
	Slice    types.Slice
	Rejected types.RejectedSlice
}

// Step runs one iteration of the §4.F state machine at the current position,
// then advances CurrentTs and updates Finished. leadInAssocs and predAssocs
// must already be restricted to this region's final associations.
func (s *State) Step(obsCMEs []CMEObsEvidence, leadInAssocs, predAssocs []AssociatedCME) StepResult {
	leadIn, obs, pred := s.Periods()

	var result StepResult
	if reason := s.checkValidity(obsCMEs); reason != types.RejectNone {
		result = StepResult{
			Accepted: false,
			Rejected: types.RejectedSlice{
				RegionID:     s.RegionID,
				ObsStart:     obs.Start,
				ObsEnd:       obs.End,
				RejectReason: reason,
			},
		}
	} else {
		prevID, prevDiffH, nBefore, byTier := history(leadIn, leadInAssocs, s.CurrentTs)
		lbl, nextID, nextDiffH, nextTier := label(pred, predAssocs)

		result = StepResult{
			Accepted: true,
			Slice: types.Slice{
				RegionID:             s.RegionID,
				LeadInStart:          leadIn.Start,
				LeadInEnd:            leadIn.End,
				ObsStart:             obs.Start,
				ObsEnd:               obs.End,
				PredStart:            pred.Start,
				PredEnd:              pred.End,
				NCMEsBefore:          nBefore,
				NCMEsBeforeTier1:     byTier[0],
				NCMEsBeforeTier2:     byTier[1],
				NCMEsBeforeTier3:     byTier[2],
				NCMEsBeforeTier4:     byTier[3],
				NCMEsBeforeTier5:     byTier[4],
				PrevCMEID:            prevID,
				PrevCMEDiffH:         prevDiffH,
				Label:                lbl,
				NextCMEID:            nextID,
				NextCMEDiffH:         nextDiffH,
				NextVerificationTier: nextTier,
			},
		}
	}

	s.CurrentTs = s.CurrentTs.Add(s.StepLen)
	s.Finished = obs.End.Add(s.StepLen).After(s.LastOnDiskTs)
	return result
}
