// Package association implements the §4.E resolver: it collapses every
// spatially-consistent (region, CME) candidate down to at most one
// association per CME, assigning a verification tier from which dimming
// and/or flare signatures were independently matched to that region.
package association

import (
	"sort"

	"github.com/jhc00/cmesrc/internal/types"
)

// Candidate is one spatially-consistent (region, CME) pair carrying the
// independently-matched dimming/flare evidence the matcher produced for it.
type Candidate struct {
	RegionID int
	CMEID    int

	HasDimming       bool
	DimmingID        int
	DimmingHoursDiff float64 // §9 sign convention: positive = dimming precedes CME

	HasFlare        bool
	FlareID         int
	FlareHoursDiff  float64 // §9 sign convention: positive = flare precedes CME
	FlareClassScore float64
}

// Tier assigns the §4.E verification tier; ok is false when neither a
// dimming nor a flare was matched (reject).
func Tier(c Candidate) (tier int, ok bool) {
	strongFlare := c.HasFlare && c.FlareClassScore > 25
	switch {
	case c.HasDimming && c.HasFlare && strongFlare:
		return 1, true
	case !c.HasDimming && c.HasFlare && strongFlare:
		return 2, true
	case c.HasDimming && c.HasFlare && !strongFlare:
		return 3, true
	case !c.HasDimming && c.HasFlare && !strongFlare:
		return 4, true
	case c.HasDimming && !c.HasFlare:
		return 5, true
	default:
		return 0, false
	}
}

// rankedCandidate pairs a candidate with its resolved tier for sorting.
type rankedCandidate struct {
	c    Candidate
	tier int
}

// byRank implements the §4.E tie-break: ascending tier, then higher flare
// score, then dimming time closer to the CME (smaller absolute hours diff),
// then ascending region id for full determinism.
type byRank []rankedCandidate

func (b byRank) Len() int      { return len(b) }
func (b byRank) Swap(i, j int) { b[i], b[j] = b[j], b[i] }
func (b byRank) Less(i, j int) bool {
	a, c := b[i], b[j]
	if a.tier != c.tier {
		return a.tier < c.tier
	}
	if a.c.FlareClassScore != c.c.FlareClassScore {
		return a.c.FlareClassScore > c.c.FlareClassScore
	}
	aAbs, cAbs := absHours(a.c.DimmingHoursDiff), absHours(c.c.DimmingHoursDiff)
	if aAbs != cAbs {
		return aAbs < cAbs
	}
	return a.c.RegionID < c.c.RegionID
}

func absHours(h float64) float64 {
	if h < 0 {
		return -h
	}
	return h
}

// Pool tracks dimmings/flares already claimed by a resolved association, so
// neither participates in a second association (§4.E's greedy allocation).
// Claims are keyed by event id alone, not by region.
type Pool struct {
	usedDimmings map[int]bool
	usedFlares   map[int]bool
}

// NewPool returns an empty allocation pool.
func NewPool() *Pool {
	return &Pool{usedDimmings: map[int]bool{}, usedFlares: map[int]bool{}}
}

// available reports whether c's dimming/flare evidence is still free to
// claim, stripping evidence already claimed by an earlier association
// resolved against p.
func (p *Pool) available(c Candidate) Candidate {
	if c.HasDimming && p.usedDimmings[c.DimmingID] {
		c.HasDimming = false
	}
	if c.HasFlare && p.usedFlares[c.FlareID] {
		c.HasFlare = false
	}
	return c
}

func (p *Pool) claim(c Candidate) {
	if c.HasDimming {
		p.usedDimmings[c.DimmingID] = true
	}
	if c.HasFlare {
		p.usedFlares[c.FlareID] = true
	}
}

// Resolve picks the unique winning candidate for one CME out of its
// spatially-consistent candidates, applying p's greedy dimming/flare
// allocation. Returns ok=false when every candidate rejects
// (no dimming and no flare available).
func Resolve(cmeID int, candidates []Candidate, p *Pool) (types.Association, bool) {
	ranked := make([]rankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		c = p.available(c)
		tier, ok := Tier(c)
		if !ok {
			continue
		}
		ranked = append(ranked, rankedCandidate{c: c, tier: tier})
	}
	if len(ranked) == 0 {
		return types.Association{}, false
	}

	sort.Sort(byRank(ranked))
	winner := ranked[0]
	p.claim(winner.c)

	return types.Association{
		CMEID:            cmeID,
		RegionID:         winner.c.RegionID,
		VerificationTier: winner.tier,
		VerificationScore: winner.c.FlareClassScore,
		Method:           "automatic",
	}, true
}
