package engine

import (
	"testing"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/agents"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/scenario"
)

func lineScenario(t *testing.T, xs ...int) scenario.Scenario {
	t.Helper()
	sc := mustScenario(t, twoAgentYAML)
	sc.Agents = len(xs)
	sc.Positions = make([][2]int, len(xs))
	for i, x := range xs {
		sc.Positions[i] = [2]int{x, 0}
	}
	sc.InitialInventories.A = scenario.Fixed(5)
	sc.InitialInventories.B = scenario.Fixed(5)
	return sc
}

func TestDecide_GreedyPairsLeftovers(t *testing.T) {
	// 1 and 2 are each other's nearest trader; 0 and 3 each lose their
	// top choice and only meet through the greedy pass.
	s := mustSim(t, lineScenario(t, 0, 2, 3, 5), 1)
	setLinear(s, 0, 1, 2)
	setLinear(s, 1, 2, 1)
	setLinear(s, 2, 1, 2)
	setLinear(s, 3, 2, 1)

	r := mustStep(t, s)
	want := []PairingEvent{
		{Tick: 1, Kind: EventPair, A: 1, B: 2, Reason: ReasonMutualConsent},
		{Tick: 1, Kind: EventPair, A: 0, B: 3, Reason: ReasonGreedyFallback},
	}
	if len(r.Pairings) != len(want) {
		t.Fatalf("pairings = %+v", r.Pairings)
	}
	for i := range want {
		if r.Pairings[i] != want[i] {
			t.Fatalf("pairing %d = %+v, want %+v", i, r.Pairings[i], want[i])
		}
	}
	checkPairingSymmetry(t, s)
}

func TestPairGreedy_Order(t *testing.T) {
	s := mustSim(t, lineScenario(t, 0, 1, 2, 3, 4), 1)
	s.Tick = 1
	s.report = &TickReport{Tick: 1}

	prefs := map[agents.AgentID][]agents.Preference{
		0: {{Partner: 1, Discounted: 2}, {Partner: 3, Discounted: 1}, {Partner: 4, Discounted: 1}},
		1: {{Partner: 2, Discounted: 3}, {Partner: 0, Discounted: 2}},
		2: {{Partner: 3, Discounted: 2}},
		// The stronger side of a pair sets its score.
		3: {{Partner: 0, Discounted: 0.5}, {Partner: 4, Discounted: 1}},
		4: {{Partner: 0, Discounted: 1}},
	}
	searched := make([]bool, len(s.Agents))
	for id, p := range prefs {
		s.Agents[id].Preferences = p
		searched[id] = true
	}

	s.pairGreedy(searched)

	// (1,2) scores highest; (0,1) and (2,3) are then blocked; the ties at 1
	// resolve by lower id and then higher id, so 0 takes 3 and 4 is left.
	want := [][2]int{{1, 2}, {0, 3}}
	if len(s.report.Pairings) != len(want) {
		t.Fatalf("pairings = %+v", s.report.Pairings)
	}
	for i, ev := range s.report.Pairings {
		if ev.A != want[i][0] || ev.B != want[i][1] || ev.Reason != ReasonGreedyFallback {
			t.Fatalf("pairing %d = %+v, want %v", i, ev, want[i])
		}
	}
	if s.Agents[4].IsPaired() {
		t.Fatalf("agent 4 should stay unpaired")
	}
}
