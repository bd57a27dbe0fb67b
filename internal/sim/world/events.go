package world

import "fmt"

// Event scopes. FocusBudget weighs them via tuning.Focus.ScopeWeights and the
// narrative director matches them against seed trigger scopes.
const (
	ScopeDistrict    = "district"
	ScopeEnvironment = "environment"
	ScopeAgent       = "agent"
	ScopeFaction     = "faction"
	ScopeEconomy     = "economy"
)

// Event is a raw narrative beat produced by a system during the tick, before
// ranking. District is empty for city-wide beats.
type Event struct {
	Message  string   `json:"message"`
	Scope    string   `json:"scope"`
	Severity float64  `json:"severity"`
	District string   `json:"district_id,omitempty"`
	Agents   []string `json:"agents,omitempty"`
}

// RankedEvent is an Event after focus scoring. FocusDistance is the hop count
// from the focus district; city-wide beats carry distance 0 and never count
// as in-ring.
type RankedEvent struct {
	Event
	Score         float64 `json:"score"`
	FocusDistance int     `json:"focus_distance"`
	InFocusRing   bool    `json:"in_focus_ring"`
}

func (w *World) districtName(id string) string {
	if d := w.District(id); d != nil {
		return d.Name
	}
	return id
}

func (w *World) factionName(id string) string {
	if f := w.Factions[id]; f != nil {
		return f.Name
	}
	return id
}

func (w *World) agentName(id string) string {
	for _, a := range w.Agents {
		if a.ID == id {
			return a.Name
		}
	}
	return id
}

// intentEvents narrates this tick's agent intents. Message wording is stable;
// story-seed triggers match on substrings of these lines.
func (w *World) intentEvents(intents []AgentIntent) []Event {
	events := make([]Event, 0, len(intents))
	for _, in := range intents {
		ev := Event{
			Scope:    ScopeAgent,
			District: in.District,
			Agents:   []string{in.Agent},
		}
		switch in.Kind {
		case IntentInspect:
			ev.Message = fmt.Sprintf("%s inspects %s", w.agentName(in.Agent), w.districtName(in.District))
			ev.Severity = 0.2
		case IntentNegotiate:
			ev.Message = fmt.Sprintf("%s negotiates with %s in %s",
				w.agentName(in.Agent), w.factionName(in.Faction), w.districtName(in.District))
			ev.Severity = 0.3
		case IntentDeployResource:
			ev.Message = fmt.Sprintf("%s deploys %s into %s",
				w.agentName(in.Agent), in.Resource, w.districtName(in.District))
			ev.Severity = 0.35
		default:
			continue
		}
		events = append(events, ev)
	}
	return events
}

// economyEvents narrates warning-level shortages. Severity grows with the
// streak so long-running shortages outrank fresh ones.
func (w *World) economyEvents(report EconomyReport) []Event {
	events := make([]Event, 0, len(report.Shortages))
	for _, s := range report.Shortages {
		sev := clamp01(0.4 + 0.05*float64(s.Streak))
		events = append(events, Event{
			Message:  fmt.Sprintf("shortage of %s deepens in %s", s.Resource, w.districtName(s.District)),
			Scope:    ScopeEconomy,
			Severity: sev,
			District: s.District,
		})
	}
	return events
}
