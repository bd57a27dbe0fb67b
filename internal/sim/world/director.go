package world

import (
	"fmt"
	"strings"

	"cityloom.ai/internal/sim/tuning"
)

// SeedMatch records a trigger hit that activated a story seed this tick.
type SeedMatch struct {
	Seed     string   `json:"seed_id"`
	Title    string   `json:"title"`
	District string   `json:"district_id,omitempty"`
	Pattern  string   `json:"pattern"`
	Message  string   `json:"message"`
	Agents   []string `json:"agents,omitempty"`
}

// SeedReport is the tracked status of a non-dormant seed.
type SeedReport struct {
	Seed              string `json:"seed_id"`
	Title             string `json:"title"`
	Phase             string `json:"phase"`
	CooldownRemaining int    `json:"cooldown_remaining"`
	EnteredTick       uint64 `json:"entered_tick"`
}

// DirectorEvent is the narrative beat emitted when a seed turns active.
type DirectorEvent struct {
	Seed     string   `json:"seed_id"`
	Title    string   `json:"title"`
	District string   `json:"district_id,omitempty"`
	Reason   string   `json:"reason"`
	Tick     uint64   `json:"tick"`
	Agents   []string `json:"matched_agents,omitempty"`
}

// DirectorAnalysis is what the director concluded from one snapshot.
type DirectorAnalysis struct {
	Tick    uint64       `json:"tick"`
	Matched []SeedMatch  `json:"matched"`
	Seeds   []SeedReport `json:"seeds"`
	Routes  []RoutePlan  `json:"routes"`
}

// NarrativeDirector drives the story-seed state machine against recorded
// snapshots. Transitions happen only in Evaluate:
// dormant/primed -> (trigger match) -> active -> (cooldown elapses) ->
// archived with followups primed, or back to dormant.
type NarrativeDirector struct {
	cfg tuning.Director
}

func NewNarrativeDirector(cfg tuning.Director) NarrativeDirector {
	return NarrativeDirector{cfg: cfg}
}

// Evaluate matches the snapshot's top-ranked messages against seed triggers.
// An absent or empty snapshot clears the stored analysis entirely so a stale
// one cannot outlive its focus feed; cooldown bookkeeping then waits for the
// next populated snapshot and catches up by elapsed ticks.
func (n NarrativeDirector) Evaluate(w *World, snap *DirectorSnapshot) (*DirectorAnalysis, []DirectorEvent) {
	if snap == nil || len(snap.TopRanked) == 0 {
		w.Director.Analysis = nil
		return nil, []DirectorEvent{}
	}

	elapsed := int(w.Tick - w.Director.LastEvalTick)
	w.Director.LastEvalTick = w.Tick

	n.advanceCooldowns(w, elapsed)
	analysis := &DirectorAnalysis{
		Tick:    w.Tick,
		Matched: []SeedMatch{},
		Seeds:   []SeedReport{},
		Routes:  []RoutePlan{},
	}
	events := n.matchSeeds(w, snap, analysis)

	for _, id := range sortedSeedIDs(w.Seeds) {
		st := w.SeedStates[id]
		if st == nil || st.Phase == SeedDormant {
			continue
		}
		seed := w.Seeds[id]
		analysis.Seeds = append(analysis.Seeds, SeedReport{
			Seed:              id,
			Title:             seed.Title,
			Phase:             st.Phase.String(),
			CooldownRemaining: st.CooldownRemaining,
			EnteredTick:       st.EnteredTick,
		})
		if st.Phase == SeedActive && seed.TravelHint != "" {
			analysis.Routes = append(analysis.Routes, n.PlanRoute(w, snap.Focus.District, seed.TravelHint))
		}
	}

	w.Director.Analysis = analysis
	return analysis, events
}

// advanceCooldowns walks active seeds forward. Reaching zero either archives
// the seed and primes its followups, or returns it to dormancy when it has
// none. Archived is terminal and already sits at zero cooldown.
func (n NarrativeDirector) advanceCooldowns(w *World, elapsed int) {
	if elapsed <= 0 {
		return
	}
	for _, id := range sortedSeedIDs(w.Seeds) {
		st := w.SeedStates[id]
		if st == nil || st.Phase != SeedActive {
			continue
		}
		st.CooldownRemaining -= elapsed
		if st.CooldownRemaining > 0 {
			continue
		}
		st.CooldownRemaining = 0
		seed := w.Seeds[id]
		if len(seed.Followups) == 0 {
			st.Phase = SeedDormant
			continue
		}
		st.Phase = SeedArchived
		st.EnteredTick = w.Tick
		for _, fid := range seed.Followups {
			fs := w.SeedStates[fid]
			if fs != nil && fs.Phase == SeedDormant {
				fs.Phase = SeedPrimed
				fs.EnteredTick = w.Tick
			}
		}
	}
}

// matchSeeds activates eligible seeds whose trigger patterns hit a top-ranked
// message. Primed seeds are tried before dormant ones; within a group, seed
// id order keeps replays aligned.
func (n NarrativeDirector) matchSeeds(w *World, snap *DirectorSnapshot, analysis *DirectorAnalysis) []DirectorEvent {
	events := []DirectorEvent{}
	for _, phase := range []SeedPhase{SeedPrimed, SeedDormant} {
		for _, id := range sortedSeedIDs(w.Seeds) {
			st := w.SeedStates[id]
			if st == nil || st.Phase != phase || st.CooldownRemaining > 0 {
				continue
			}
			seed := w.Seeds[id]
			pat, ev, ok := firstTriggerHit(seed, snap.TopRanked)
			if !ok {
				continue
			}
			st.Phase = SeedActive
			st.EnteredTick = w.Tick
			st.CooldownRemaining = seed.CooldownTicks
			district := ev.District
			if district == "" {
				district = seed.TravelHint
			}
			analysis.Matched = append(analysis.Matched, SeedMatch{
				Seed:     id,
				Title:    seed.Title,
				District: district,
				Pattern:  pat.Contains,
				Message:  ev.Message,
				Agents:   cloneStrings(ev.Agents),
			})
			events = append(events, DirectorEvent{
				Seed:     id,
				Title:    seed.Title,
				District: district,
				Reason:   fmt.Sprintf("trigger %q matched %q", pat.Contains, ev.Message),
				Tick:     w.Tick,
				Agents:   cloneStrings(ev.Agents),
			})
		}
	}
	return events
}

// firstTriggerHit scans ranked events in order against each trigger pattern.
// Matching is case-insensitive on the message substring; an empty scope on
// the pattern matches any scope.
func firstTriggerHit(seed *StorySeed, ranked []RankedEvent) (TriggerPattern, RankedEvent, bool) {
	for _, ev := range ranked {
		msg := strings.ToLower(ev.Message)
		for _, pat := range seed.Triggers {
			if pat.Contains == "" {
				continue
			}
			if pat.Scope != "" && pat.Scope != ev.Scope {
				continue
			}
			if strings.Contains(msg, strings.ToLower(pat.Contains)) {
				return pat, ev, true
			}
		}
	}
	return TriggerPattern{}, RankedEvent{}, false
}
