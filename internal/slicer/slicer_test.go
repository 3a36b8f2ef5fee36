package slicer

import (
	"testing"
	"time"

	"github.com/jhc00/cmesrc/internal/types"
)

func day(d int, h, m int) time.Time {
	return time.Date(2020, 1, 1+d, h, m, 0, 0, time.UTC)
}

func TestSnapToHalfPastHour(t *testing.T) {
	got := snapToHalfPastHour(day(0, 3, 10))
	want := day(0, 3, 30)
	if !got.Equal(want) {
		t.Errorf("snapToHalfPastHour = %v, want %v", got, want)
	}

	got2 := snapToHalfPastHour(day(0, 3, 45))
	want2 := day(0, 4, 30)
	if !got2.Equal(want2) {
		t.Errorf("snapToHalfPastHour(after half-past) = %v, want %v", got2, want2)
	}
}

func TestPeriodsSplitsLeadInObsPred(t *testing.T) {
	s := NewState(100, 6, 1, false, day(0, 0, 30), day(2, 0, 30), day(0, 1, 30), day(1, 23, 30), day(2, 0, 30))
	leadIn, obs, pred := s.Periods()
	if !obs.Start.Equal(s.CurrentTs) {
		t.Errorf("obs.Start = %v, want %v", obs.Start, s.CurrentTs)
	}
	if obs.End.Sub(obs.Start) != 6*time.Hour {
		t.Errorf("obs length = %v, want 6h", obs.End.Sub(obs.Start))
	}
	if !leadIn.End.Equal(s.CurrentTs) {
		t.Errorf("leadIn.End = %v, want %v", leadIn.End, s.CurrentTs)
	}
	if !pred.Start.Equal(obs.End) {
		t.Errorf("pred.Start = %v, want %v", pred.Start, obs.End)
	}
}

func TestCheckValidityFinalAssocAlwaysRejects(t *testing.T) {
	s := NewState(100, 6, 1, false, day(0, 0, 30), day(2, 0, 30), day(0, 0, 30), day(2, 0, 30), day(2, 0, 30))
	obsCMEs := []CMEObsEvidence{{CMEID: 1, DetectionTs: day(0, 2, 30), IsFinalAssocHere: true}}
	reason := s.checkValidity(obsCMEs)
	if reason != types.RejectFinalCMEAssociation {
		t.Errorf("checkValidity = %v, want RejectFinalCMEAssociation", reason)
	}
}

func TestCheckValidityStrictUnclearCME(t *testing.T) {
	s := NewState(100, 6, 1, true, day(0, 0, 30), day(2, 0, 30), day(0, 0, 30), day(2, 0, 30), day(2, 0, 30))
	obsCMEs := []CMEObsEvidence{{CMEID: 1, DetectionTs: day(0, 2, 30), SpatiallyConsistentHere: true, HasDimmingOrFlareHere: true}}
	reason := s.checkValidity(obsCMEs)
	if reason != types.RejectUnclearCMEPresent {
		t.Errorf("checkValidity = %v, want RejectUnclearCMEPresent", reason)
	}
}

func TestCheckValidityNonStrictIgnoresUnclearCME(t *testing.T) {
	s := NewState(100, 6, 1, false, day(0, 0, 30), day(2, 0, 30), day(0, 0, 30), day(2, 0, 30), day(2, 0, 30))
	obsCMEs := []CMEObsEvidence{{CMEID: 1, DetectionTs: day(0, 2, 30), SpatiallyConsistentHere: true, HasDimmingOrFlareHere: true}}
	reason := s.checkValidity(obsCMEs)
	if reason != types.RejectNone {
		t.Errorf("checkValidity = %v, want RejectNone", reason)
	}
}

func TestStepAcceptedWithHistoryAndLabel(t *testing.T) {
	s := NewState(100, 6, 1, false, day(0, 0, 0), day(2, 0, 30), day(0, 0, 30), day(2, 0, 30), day(2, 0, 30))
	leadInAssocs := []AssociatedCME{{CMEID: 42, DetectionTs: day(0, 0, 15), Tier: 2}}
	predAssocs := []AssociatedCME{{CMEID: 43, DetectionTs: day(0, 10, 0), Tier: 1}}

	result := s.Step(nil, leadInAssocs, predAssocs)
	if !result.Accepted {
		t.Fatalf("Step().Accepted = false, want true")
	}
	if result.Slice.Label != 1 || result.Slice.NextCMEID == nil || *result.Slice.NextCMEID != 43 {
		t.Errorf("Slice label/next mismatch: %+v", result.Slice)
	}
	if result.Slice.PrevCMEID == nil {
		t.Errorf("expected history to find the lead-in CME")
	}
}

func TestStepRejectedProducesRejectedSlice(t *testing.T) {
	s := NewState(100, 6, 1, false, day(0, 0, 30), day(2, 0, 30), day(0, 0, 30), day(2, 0, 30), day(2, 0, 30))
	obsCMEs := []CMEObsEvidence{{CMEID: 1, DetectionTs: day(0, 2, 30), IsFinalAssocHere: true}}
	result := s.Step(obsCMEs, nil, nil)
	if result.Accepted {
		t.Fatal("Step().Accepted = true, want false")
	}
	if result.Rejected.RejectReason != types.RejectFinalCMEAssociation {
		t.Errorf("Rejected.RejectReason = %v, want RejectFinalCMEAssociation", result.Rejected.RejectReason)
	}
}

func TestStepAdvancesAndSetsFinished(t *testing.T) {
	s := NewState(100, 6, 1, false, day(0, 0, 30), day(0, 7, 0), day(0, 0, 30), day(0, 7, 0), day(0, 7, 0))
	before := s.CurrentTs
	s.Step(nil, nil, nil)
	if !s.CurrentTs.Equal(before.Add(time.Hour)) {
		t.Errorf("CurrentTs after Step = %v, want %v", s.CurrentTs, before.Add(time.Hour))
	}
	if !s.Finished {
		t.Errorf("Finished = false, want true since next obs.End would exceed last on-disk ts")
	}
}
