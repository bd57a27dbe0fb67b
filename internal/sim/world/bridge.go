package world

import (
	"cityloom.ai/internal/sim/tuning"
)

// FocusRef is the focus view recorded into a snapshot.
type FocusRef struct {
	District string   `json:"district_id"`
	Ring     []string `json:"ring"`
}

// EnvReading is the rounded environment triple stored in snapshots.
type EnvReading struct {
	Stability float64 `json:"stability"`
	Unrest    float64 `json:"unrest"`
	Pollution float64 `json:"pollution"`
}

// DirectorSnapshot is a clipped, deep-cloned view of one tick's focus and
// market state, sized for the history ring: top_ranked holds at most the
// ranked limit, spatial_weights at most the spatial preview, and every
// recorded number is rounded to 3 decimals for stable diffing.
type DirectorSnapshot struct {
	Tick           uint64             `json:"tick"`
	Focus          FocusRef           `json:"focus"`
	TopRanked      []RankedEvent      `json:"top_ranked"`
	SpatialWeights []DistrictWeight   `json:"spatial_weights"`
	Prices         map[string]float64 `json:"prices"`
	ShortageCount  int                `json:"shortage_count"`
	Environment    EnvReading         `json:"environment"`
}

// DirectorBridge records per-tick snapshots into the world's bounded history
// ring. Oldest entries are evicted first; the ring never grows past the
// configured history limit no matter how many ticks run.
type DirectorBridge struct {
	cfg tuning.Director
}

func NewDirectorBridge(cfg tuning.Director) DirectorBridge {
	return DirectorBridge{cfg: cfg}
}

func (b DirectorBridge) Record(w *World, tick uint64, focus FocusBudgetResult) DirectorSnapshot {
	top := cloneRankedEvents(focus.RankedArchive)
	sortRanked(top)
	if len(top) > b.cfg.RankedLimit {
		top = top[:b.cfg.RankedLimit]
	}
	for i := range top {
		top[i].Score = round3(top[i].Score)
		top[i].Severity = round3(top[i].Severity)
	}

	weights := cloneWeights(focus.FocusState.Weights)
	if len(weights) > b.cfg.SpatialPreview {
		weights = weights[:b.cfg.SpatialPreview]
	}
	for i := range weights {
		weights[i].Weight = round3(weights[i].Weight)
	}

	snap := DirectorSnapshot{
		Tick: tick,
		Focus: FocusRef{
			District: focus.FocusState.District,
			Ring:     cloneStrings(focus.FocusState.Ring),
		},
		TopRanked:      top,
		SpatialWeights: weights,
		Prices:         roundedFloatMap(w.Market.Prices),
		ShortageCount:  len(w.Market.LastShortages),
		Environment: EnvReading{
			Stability: round3(w.Env.Stability),
			Unrest:    round3(w.Env.Unrest),
			Pollution: round3(w.Env.Pollution),
		},
	}

	w.Director.History = append(w.Director.History, cloneDirectorSnapshot(snap))
	for len(w.Director.History) > b.cfg.HistoryLimit {
		w.Director.History = w.Director.History[1:]
	}
	return snap
}
