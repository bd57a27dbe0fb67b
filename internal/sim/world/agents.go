package world

import (
	"math/rand"

	"cityloom.ai/internal/sim/tuning"
)

// AgentSystem turns the agent roster into at most ActionLimit intents per
// tick. It is a pure function of (world state, RNG stream position): two
// streams seeded identically yield identical intent sequences.
type AgentSystem struct {
	cfg tuning.Agents
}

func NewAgentSystem(cfg tuning.Agents) AgentSystem {
	return AgentSystem{cfg: cfg}
}

func (s AgentSystem) Tick(w *World, rng *rand.Rand) []AgentIntent {
	limit := s.cfg.ActionLimit
	if limit <= 0 || len(w.Agents) == 0 {
		return []AgentIntent{}
	}
	out := make([]AgentIntent, 0, min(limit, len(w.Agents)))
	factionIDs := sortedFactionIDs(w.Factions)
	for _, a := range w.Agents {
		if len(out) >= limit {
			break
		}
		// Drive gates activity. Roster order fixes the draw order, so the
		// same stream position always yields the same intents.
		active := rng.Float64() < a.Drive
		if !active {
			continue
		}
		target := s.pickDistrict(w, a, rng)
		if target == "" {
			continue
		}
		in := AgentIntent{Agent: a.ID, District: target}
		switch s.pickKind(a, rng) {
		case IntentInspect:
			in.Kind = IntentInspect
		case IntentNegotiate:
			in.Kind = IntentNegotiate
			if len(factionIDs) > 0 {
				in.Faction = factionIDs[rng.Intn(len(factionIDs))]
			} else {
				in.Kind = IntentInspect
			}
		case IntentDeployResource:
			in.Kind = IntentDeployResource
			in.Resource = scarcestResource(w.District(target))
			if in.Resource == "" {
				in.Kind = IntentInspect
			}
		}
		out = append(out, in)
	}
	return out
}

// pickKind weighs intent kinds by archetype. The draw count per agent is
// constant so replays stay aligned.
func (s AgentSystem) pickKind(a *Agent, rng *rand.Rand) IntentKind {
	roll := rng.Float64()
	switch a.Archetype {
	case "broker":
		if roll < 0.55 {
			return IntentNegotiate
		}
		if roll < 0.85 {
			return IntentDeployResource
		}
		return IntentInspect
	case "courier":
		if roll < 0.6 {
			return IntentDeployResource
		}
		if roll < 0.85 {
			return IntentInspect
		}
		return IntentNegotiate
	default: // inspector and anything unrecognized
		if roll < 0.65 {
			return IntentInspect
		}
		if roll < 0.85 {
			return IntentNegotiate
		}
		return IntentDeployResource
	}
}

// pickDistrict keeps agents near home: their own district or one of its
// neighbors, chosen uniformly.
func (s AgentSystem) pickDistrict(w *World, a *Agent, rng *rand.Rand) string {
	home := a.District
	if w.District(home) == nil {
		if len(w.City.Districts) == 0 {
			return ""
		}
		home = w.City.Districts[0].ID
	}
	neighbors := w.Neighbors(home)
	idx := rng.Intn(len(neighbors) + 1)
	if idx == 0 {
		return home
	}
	return neighbors[idx-1]
}

// scarcestResource picks the lowest fill-ratio stock of a district, sorted
// name as tie-break. Empty when the district tracks no stocks.
func scarcestResource(d *District) string {
	if d == nil {
		return ""
	}
	best := ""
	bestRatio := 0.0
	for _, name := range sortedStockNames(d) {
		st := d.Stocks[name]
		if st == nil || st.Capacity <= 0 {
			continue
		}
		ratio := st.Current / st.Capacity
		if best == "" || ratio < bestRatio {
			best = name
			bestRatio = ratio
		}
	}
	return best
}
