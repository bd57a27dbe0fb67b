package world

import (
	"fmt"
	"math/rand"
	"sort"

	"cityloom.ai/internal/sim/tuning"
)

// DiffusionSample records what the diffusion pass did to one district: the
// applied pollution delta and the neighbor average that produced it.
type DiffusionSample struct {
	District        string  `json:"district_id"`
	Delta           float64 `json:"delta"`
	NeighborAverage float64 `json:"neighbor_average"`
}

// FactionEffect is the environmental footprint of one faction action.
type FactionEffect struct {
	Faction   string  `json:"faction_id"`
	Action    string  `json:"action"`
	District  string  `json:"district_id"`
	Pollution float64 `json:"pollution"`
	Unrest    float64 `json:"unrest"`
}

type PollutionExtremes struct {
	MinDistrict  string  `json:"min_district"`
	MinPollution float64 `json:"min_pollution"`
	MaxDistrict  string  `json:"max_district"`
	MaxPollution float64 `json:"max_pollution"`
}

type EnvironmentImpact struct {
	ScarcityPressure float64           `json:"scarcity_pressure"`
	UnrestDelta      float64           `json:"unrest_delta"`
	PollutionDelta   float64           `json:"pollution_delta"`
	FactionEffects   []FactionEffect   `json:"faction_effects"`
	Events           []Event           `json:"events"`
	DiffusionApplied bool              `json:"diffusion_applied"`
	DistrictDeltas   []DiffusionSample `json:"district_deltas"`
	Extremes         PollutionExtremes `json:"extremes"`
	AveragePollution float64           `json:"average_pollution"`
}

// EnvironmentSystem converts shortages and faction actions into unrest and
// pollution movement, then diffuses pollution across district adjacency.
// With no shortages and zero weights a tick is a pure no-op: the environment
// is untouched, no events, no diffusion.
type EnvironmentSystem struct {
	cfg tuning.Environment
}

func NewEnvironmentSystem(cfg tuning.Environment) EnvironmentSystem {
	return EnvironmentSystem{cfg: cfg}
}

func (s EnvironmentSystem) Tick(w *World, rng *rand.Rand, econ EconomyReport, actions []FactionAction) EnvironmentImpact {
	impact := EnvironmentImpact{
		FactionEffects: []FactionEffect{},
		Events:         []Event{},
		DistrictDeltas: []DiffusionSample{},
	}

	preUnrest := w.Env.Unrest
	prePollution := w.Env.Pollution

	impact.ScarcityPressure = clamp01(float64(len(econ.Shortages)) / s.cfg.ScarcityThreshold)
	if impact.ScarcityPressure > 0 {
		s.applyScarcity(w, impact.ScarcityPressure, econ.Shortages)
		impact.Events = append(impact.Events, Event{
			Message:  fmt.Sprintf("scarcity pressure weighs on %s", w.City.Name),
			Scope:    ScopeEnvironment,
			Severity: impact.ScarcityPressure,
		})
	}

	impact.FactionEffects, impact.Events = s.applyFactionActions(w, actions, impact.Events)

	if s.cfg.DiffusionRate > 0 {
		impact.DiffusionApplied = true
		impact.DistrictDeltas = s.diffuse(w)
	}

	impact.UnrestDelta = w.Env.Unrest - preUnrest
	impact.PollutionDelta = w.Env.Pollution - prePollution
	if delta := impact.UnrestDelta + impact.PollutionDelta; delta != 0 {
		w.Env.Stability = clamp01(w.Env.Stability - s.cfg.StabilityWeight*delta)
	}

	impact.Extremes, impact.AveragePollution = pollutionStats(w)
	return impact
}

// applyScarcity raises global unrest/pollution by pressure-weighted steps and
// nudges the modifiers of every district in shortage.
func (s EnvironmentSystem) applyScarcity(w *World, pressure float64, shortages []Shortage) {
	w.Env.Unrest = clamp01(w.Env.Unrest + pressure*s.cfg.ScarcityUnrestWeight)
	w.Env.Pollution = clamp01(w.Env.Pollution + pressure*s.cfg.ScarcityPollutionWeight)

	affected := map[string]bool{}
	for _, sh := range shortages {
		affected[sh.District] = true
	}
	ids := make([]string, 0, len(affected))
	for id := range affected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		d := w.District(id)
		if d == nil {
			continue
		}
		d.Unrest = clamp01(d.Unrest + pressure*s.cfg.DistrictUnrestWeight)
		d.Pollution = clamp01(d.Pollution + pressure*s.cfg.DistrictPollutionWeight)
	}
}

// applyFactionActions lands the district side effects of this tick's faction
// actions and narrates them.
func (s EnvironmentSystem) applyFactionActions(w *World, actions []FactionAction, events []Event) ([]FactionEffect, []Event) {
	effects := []FactionEffect{}
	for _, act := range actions {
		switch act.Kind {
		case ActionSabotageRival:
			d := w.District(act.District)
			if d == nil {
				continue
			}
			d.Pollution = clamp01(d.Pollution + s.cfg.SabotagePollution)
			d.Unrest = clamp01(d.Unrest + s.cfg.SabotageUnrest)
			effects = append(effects, FactionEffect{
				Faction:   act.Faction,
				Action:    act.Kind.String(),
				District:  act.District,
				Pollution: s.cfg.SabotagePollution,
				Unrest:    s.cfg.SabotageUnrest,
			})
			events = append(events, Event{
				Message:  fmt.Sprintf("saboteurs strike %s under cover of unrest", w.districtName(act.District)),
				Scope:    ScopeFaction,
				Severity: 0.6,
				District: act.District,
			})
		case ActionLobbyCouncil:
			events = append(events, Event{
				Message:  fmt.Sprintf("%s lobbies the council for standing", w.factionName(act.Faction)),
				Scope:    ScopeFaction,
				Severity: 0.3,
				District: act.District,
			})
		}
	}
	return effects, events
}

// diffuse runs one pollution diffusion pass over district adjacency. Each
// district with neighbors moves toward its neighbor average, scaled by rate
// and bias, with the per-district delta clamped to [min_delta, max_delta].
// All deltas are computed from the pre-pass values.
func (s EnvironmentSystem) diffuse(w *World) []DiffusionSample {
	pre := make(map[string]float64, len(w.City.Districts))
	for _, d := range w.City.Districts {
		pre[d.ID] = d.Pollution
	}
	samples := []DiffusionSample{}
	for _, d := range w.City.Districts {
		neighbors := w.Neighbors(d.ID)
		if len(neighbors) == 0 {
			continue
		}
		sum := 0.0
		for _, n := range neighbors {
			sum += pre[n]
		}
		avg := sum / float64(len(neighbors))
		delta := s.cfg.DiffusionRate * s.cfg.DiffusionNeighborBias * (avg - pre[d.ID])
		delta = clampF(delta, s.cfg.DiffusionMinDelta, s.cfg.DiffusionMaxDelta)
		d.Pollution = clamp01(pre[d.ID] + delta)
		samples = append(samples, DiffusionSample{
			District:        d.ID,
			Delta:           delta,
			NeighborAverage: avg,
		})
	}
	return samples
}

func pollutionStats(w *World) (PollutionExtremes, float64) {
	var ex PollutionExtremes
	if len(w.City.Districts) == 0 {
		return ex, 0
	}
	sum := 0.0
	for i, d := range w.City.Districts {
		sum += d.Pollution
		if i == 0 || d.Pollution < ex.MinPollution {
			ex.MinDistrict = d.ID
			ex.MinPollution = d.Pollution
		}
		if i == 0 || d.Pollution > ex.MaxPollution {
			ex.MaxDistrict = d.ID
			ex.MaxPollution = d.Pollution
		}
	}
	return ex, sum / float64(len(w.City.Districts))
}
