package engine

import (
	"sort"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/agents"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/economy"
)

// decide runs the decision passes in ascending id order:
//  1. drop stale claims
//  2. rank partners and claim the best forage cell
//  3. pair agents that are each other's top choice
//  4. greedily pair what is left by discounted surplus
//  5. send unmatched agents foraging or idle
func (s *Simulation) decide(views []Perception) {
	s.clearStaleClaims()

	searched := make([]bool, len(s.Agents))
	forageScore := make([]float64, len(s.Agents))

	for _, a := range s.Agents {
		a.ResetScratch()
		if a.IsPaired() {
			a.Decision = agents.DecisionPaired
			continue
		}
		if a.ForageCommitted {
			if s.keepForageCommitment(a) {
				a.Decision = agents.DecisionForage
				continue
			}
		}
		s.releaseClaim(a)
		a.ClearForage()
		searched[a.ID] = true

		if s.Mode.AllowsTrade() {
			a.Preferences = s.rankPartners(a, views[a.ID])
		}
		if s.Mode.AllowsForage() {
			if r, score, ok := s.bestForage(a, views[a.ID]); ok {
				s.Claims[r.Pos] = a.ID
				t := r.Pos
				a.ForageTarget = &t
				forageScore[a.ID] = score
			}
		}
		if len(a.Preferences) > 0 {
			a.Decision = agents.DecisionTradeUnmatched
		}
	}

	s.pairMutual(searched)
	s.pairGreedy(searched)
	s.cleanupUnmatched(searched)
	s.recordDecisions(forageScore)
}

// clearStaleClaims removes claims whose claimant no longer targets the cell
// or already stands on it.
func (s *Simulation) clearStaleClaims() {
	for pos, id := range s.Claims {
		a := s.AgentIndex[id]
		if a == nil || a.ForageTarget == nil || *a.ForageTarget != pos || a.Pos == pos {
			delete(s.Claims, pos)
		}
	}
}

// keepForageCommitment renews a committed forager's target while it is
// still stocked and nobody else holds it.
func (s *Simulation) keepForageCommitment(a *agents.Agent) bool {
	if !s.Mode.AllowsForage() || a.ForageTarget == nil {
		return false
	}
	pos := *a.ForageTarget
	c := s.Grid.Cell(pos)
	if c == nil || !c.Stocked() {
		return false
	}
	if owner, ok := s.Claims[pos]; ok && owner != a.ID {
		return false
	}
	if a.Pos != pos {
		s.Claims[pos] = a.ID
	}
	a.CommitForage(pos)
	return true
}

func (s *Simulation) releaseClaim(a *agents.Agent) {
	if a.ForageTarget == nil {
		return
	}
	if owner, ok := s.Claims[*a.ForageTarget]; ok && owner == a.ID {
		delete(s.Claims, *a.ForageTarget)
	}
}

// rankPartners scores every visible, available neighbor by quote overlap
// discounted by distance.
func (s *Simulation) rankPartners(a *agents.Agent, view Perception) []agents.Preference {
	var prefs []agents.Preference
	self := a.Trader()
	for _, n := range view.Neighbors {
		if n.Paired || n.Foraging {
			continue
		}
		if a.InCooldown(n.ID, s.Tick) || s.Agents[n.ID].InCooldown(a.ID, s.Tick) {
			continue
		}
		est, ok := economy.EstimateSurplus(self, n.Trader, s.pairs)
		if !ok {
			continue
		}
		prefs = append(prefs, agents.Preference{
			Partner:    n.ID,
			Surplus:    est.Surplus,
			Discounted: agents.Discount(est.Surplus, s.Params.Beta, n.Distance),
			Distance:   n.Distance,
			Pair:       est.Pair,
		})
	}
	agents.SortPreferences(prefs)
	return prefs
}

// bestForage picks the visible unclaimed cell with the highest discounted
// arrival gain. Ties go to the nearer cell, then row-major order.
func (s *Simulation) bestForage(a *agents.Agent, view Perception) (ResourceView, float64, bool) {
	var best ResourceView
	bestScore := 0.0
	found := false
	for _, r := range view.Resources {
		if owner, ok := s.Claims[r.Pos]; ok && owner != a.ID {
			continue
		}
		gain := a.ForageGain(r.Type, r.Amount, s.Params.ForageRate)
		score := agents.Discount(gain, s.Params.Beta, r.Distance)
		if score <= 0 {
			continue
		}
		if !found || score > bestScore ||
			(score == bestScore && (r.Distance < best.Distance ||
				(r.Distance == best.Distance && r.Pos.Less(best.Pos)))) {
			best, bestScore, found = r, score, true
		}
	}
	return best, bestScore, found
}

func (s *Simulation) available(searched []bool, id agents.AgentID) bool {
	return searched[id] && !s.Agents[id].IsPaired()
}

func (s *Simulation) pairMutual(searched []bool) {
	for _, a := range s.Agents {
		if !s.available(searched, a.ID) || len(a.Preferences) == 0 {
			continue
		}
		b := s.Agents[a.Preferences[0].Partner]
		if !s.available(searched, b.ID) || len(b.Preferences) == 0 {
			continue
		}
		if b.Preferences[0].Partner == a.ID {
			s.pair(a, b, ReasonMutualConsent)
		}
	}
}

type pairCandidate struct {
	lo, hi     agents.AgentID
	discounted float64
}

func (s *Simulation) pairGreedy(searched []bool) {
	best := make(map[[2]agents.AgentID]float64)
	for _, a := range s.Agents {
		if !s.available(searched, a.ID) {
			continue
		}
		for _, p := range a.Preferences {
			if !s.available(searched, p.Partner) {
				continue
			}
			key := [2]agents.AgentID{min(a.ID, p.Partner), max(a.ID, p.Partner)}
			if cur, ok := best[key]; !ok || p.Discounted > cur {
				best[key] = p.Discounted
			}
		}
	}
	cands := make([]pairCandidate, 0, len(best))
	for k, v := range best {
		cands = append(cands, pairCandidate{lo: k[0], hi: k[1], discounted: v})
	}
	sort.Slice(cands, func(i, j int) bool {
		ci, cj := cands[i], cands[j]
		if ci.discounted != cj.discounted {
			return ci.discounted > cj.discounted
		}
		if ci.lo != cj.lo {
			return ci.lo < cj.lo
		}
		return ci.hi < cj.hi
	})
	for _, c := range cands {
		a, b := s.Agents[c.lo], s.Agents[c.hi]
		if a.IsPaired() || b.IsPaired() {
			continue
		}
		s.pair(a, b, ReasonGreedyFallback)
	}
}

func (s *Simulation) pair(a, b *agents.Agent, reason string) {
	for _, x := range []*agents.Agent{a, b} {
		s.releaseClaim(x)
		x.ClearForage()
	}
	a.PairWith(b.ID)
	b.PairWith(a.ID)
	a.Decision = agents.DecisionPaired
	b.Decision = agents.DecisionPaired
	s.recordPairing(EventPair, a.ID, b.ID, reason)
	s.log.Debug("paired", "tick", s.Tick, "a", a.ID, "b", b.ID, "reason", reason)
}

// cleanupUnmatched commits unmatched searchers to the forage target they
// claimed, or leaves them idle with no dangling target.
func (s *Simulation) cleanupUnmatched(searched []bool) {
	for _, a := range s.Agents {
		if !s.available(searched, a.ID) {
			continue
		}
		if a.ForageTarget != nil && s.Mode.AllowsForage() {
			a.CommitForage(*a.ForageTarget)
			a.Decision = agents.DecisionForage
			continue
		}
		s.releaseClaim(a)
		a.ClearForage()
		a.Decision = agents.DecisionIdle
	}
}

func (s *Simulation) recordDecisions(forageScore []float64) {
	for _, a := range s.Agents {
		rec := DecisionRecord{
			Tick:        s.Tick,
			AgentID:     int(a.ID),
			Kind:        a.Decision.String(),
			Candidates:  len(a.Preferences),
			ForageScore: forageScore[a.ID],
		}
		if len(a.Preferences) > 0 {
			rec.TopSurplus = a.Preferences[0].Discounted
		}
		if p, ok := a.Partner(); ok {
			id := int(p)
			rec.Partner = &id
		}
		if a.Target != nil {
			t := *a.Target
			rec.Target = &t
		}
		s.report.Decisions = append(s.report.Decisions, rec)
	}
}
