package world

import (
	"sort"

	"cityloom.ai/internal/sim/tuning"
)

// DistrictWeight is a spatial attention weight derived from hop distance to
// the focus district.
type DistrictWeight struct {
	District string  `json:"district_id"`
	Weight   float64 `json:"weight"`
	Distance int     `json:"distance"`
}

// Allocation describes the budget and spatial inputs that decided this tick's
// visibility partition.
type Allocation struct {
	VisibleBudget int              `json:"visible_budget"`
	RingRadius    int              `json:"ring_radius"`
	RankedLimit   int              `json:"ranked_limit"`
	Ring          []string         `json:"ring"`
	Weights       []DistrictWeight `json:"weights"`
}

// FocusState is the spatial component of a focus result.
type FocusState struct {
	District string           `json:"district_id"`
	Ring     []string         `json:"ring"`
	Weights  []DistrictWeight `json:"weights"`
}

// FocusBudgetResult partitions a tick's events into what is shown, what is
// retained, and what is dropped. Every slice is an independent copy; callers
// can mutate a result without reaching engine state.
type FocusBudgetResult struct {
	Visible       []RankedEvent `json:"visible"`
	Archive       []RankedEvent `json:"archive"`
	Suppressed    []RankedEvent `json:"suppressed"`
	Allocation    Allocation    `json:"allocation"`
	FocusState    FocusState    `json:"focus_state"`
	RankedArchive []RankedEvent `json:"ranked_archive"`
}

// FocusBudget ranks raw events around the focus district and allocates the
// bounded visibility window. Score weights come from configuration; only the
// ordering properties (monotonic in severity, ring bonus) are contractual.
type FocusBudget struct {
	cfg         tuning.Focus
	rankedLimit int
}

func NewFocusBudget(cfg tuning.Focus, rankedLimit int) FocusBudget {
	return FocusBudget{cfg: cfg, rankedLimit: rankedLimit}
}

func (f FocusBudget) Allocate(w *World, events []Event) FocusBudgetResult {
	focus := ""
	if w.Focus != nil {
		focus = w.Focus.District
	}
	if w.District(focus) == nil {
		focus = ""
	}

	var distances map[string]int
	ring := []string{}
	weights := []DistrictWeight{}
	if focus != "" {
		distances = w.hopDistances(focus, -1)
		ring, weights = f.spatial(w, distances)
	}

	ranked := f.score(w, events, focus, distances, ring)
	sortRanked(ranked)

	res := FocusBudgetResult{
		Visible:       []RankedEvent{},
		Archive:       []RankedEvent{},
		Suppressed:    []RankedEvent{},
		RankedArchive: []RankedEvent{},
		Allocation: Allocation{
			VisibleBudget: f.cfg.VisibleBudget,
			RingRadius:    f.cfg.RingRadius,
			RankedLimit:   f.rankedLimit,
			Ring:          cloneStrings(ring),
			Weights:       cloneWeights(weights),
		},
		FocusState: FocusState{
			District: focus,
			Ring:     cloneStrings(ring),
			Weights:  cloneWeights(weights),
		},
	}

	visEnd := min(f.cfg.VisibleBudget, len(ranked))
	arcEnd := min(visEnd+f.rankedLimit, len(ranked))
	res.Visible = cloneRankedEvents(ranked[:visEnd])
	res.Archive = cloneRankedEvents(ranked[visEnd:arcEnd])
	res.Suppressed = cloneRankedEvents(ranked[arcEnd:])
	res.RankedArchive = cloneRankedEvents(ranked[:min(f.rankedLimit, len(ranked))])

	if w.Focus == nil {
		w.Focus = &FocusDigest{}
	}
	w.Focus.District = focus
	w.Focus.Ring = cloneStrings(ring)
	w.Focus.Weights = cloneWeights(weights)
	return res
}

// spatial derives the focus ring (districts within the radius, nearest first)
// and their attention weights.
func (f FocusBudget) spatial(w *World, distances map[string]int) ([]string, []DistrictWeight) {
	ring := []string{}
	for _, d := range w.City.Districts {
		hops, ok := distances[d.ID]
		if !ok || hops > f.cfg.RingRadius {
			continue
		}
		ring = append(ring, d.ID)
	}
	sort.SliceStable(ring, func(i, j int) bool {
		di, dj := distances[ring[i]], distances[ring[j]]
		if di != dj {
			return di < dj
		}
		return ring[i] < ring[j]
	})
	weights := make([]DistrictWeight, 0, len(ring))
	for _, id := range ring {
		hops := distances[id]
		weights = append(weights, DistrictWeight{
			District: id,
			Weight:   round3(1.0 / float64(1+hops)),
			Distance: hops,
		})
	}
	return ring, weights
}

// score ranks every event. City-wide events (no district) are neutral: zero
// focus distance, never in-ring. District events unreachable from the focus
// are pushed past the ring by the district count, a finite worst case.
func (f FocusBudget) score(w *World, events []Event, focus string, distances map[string]int, ring []string) []RankedEvent {
	inRing := make(map[string]bool, len(ring))
	for _, id := range ring {
		inRing[id] = true
	}
	ranked := make([]RankedEvent, 0, len(events))
	for _, ev := range events {
		dist := 0
		ringHit := false
		if focus != "" && ev.District != "" {
			if d, ok := distances[ev.District]; ok {
				dist = d
			} else {
				dist = len(w.City.Districts)
			}
			ringHit = inRing[ev.District]
		}
		score := ev.Severity*f.cfg.SeverityWeight + f.cfg.ScopeWeights[ev.Scope] - f.cfg.DistancePenalty*float64(dist)
		if ringHit {
			score += f.cfg.RingBonus
		}
		ranked = append(ranked, RankedEvent{
			Event:         cloneEvent(ev),
			Score:         round3(score),
			FocusDistance: dist,
			InFocusRing:   ringHit,
		})
	}
	return ranked
}

// sortRanked orders by score descending; ties prefer the event closer to the
// focus, then earlier insertion. The stable sort preserves insertion order
// for full ties.
func sortRanked(events []RankedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Score != events[j].Score {
			return events[i].Score > events[j].Score
		}
		return events[i].FocusDistance < events[j].FocusDistance
	})
}
