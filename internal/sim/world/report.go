package world

// StockSnapshot is one resource stock as reported.
type StockSnapshot struct {
	Current  float64 `json:"current"`
	Capacity float64 `json:"capacity"`
}

// DistrictSnapshot is the per-district view inside a TickReport.
type DistrictSnapshot struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Population int                      `json:"population"`
	Pollution  float64                  `json:"pollution"`
	Unrest     float64                  `json:"unrest"`
	Security   float64                  `json:"security"`
	Adjacent   []string                 `json:"adjacent"`
	Coord      Vec3                     `json:"coord"`
	HasCoord   bool                     `json:"has_coord"`
	Stocks     map[string]StockSnapshot `json:"stocks"`
}

// TickReport is the engine's per-tick output contract. Every field is filled
// on every tick; consumers check for emptiness, never for presence.
// director_analysis is the one nullable field: null whenever the focus feed
// produced no ranked events. Timings and profiling carry wall-clock numbers
// and are excluded from replay comparison; state_digest is the canonical
// hash used instead.
type TickReport struct {
	Tick             uint64             `json:"tick"`
	Environment      Environment        `json:"environment"`
	Districts        []DistrictSnapshot `json:"districts"`
	AgentActions     []AgentIntent      `json:"agent_actions"`
	FactionActions   []FactionAction    `json:"faction_actions"`
	Economy          EconomyReport      `json:"economy"`
	Impact           EnvironmentImpact  `json:"environment_impact"`
	Timings          map[string]float64 `json:"timings"`
	FocusBudget      FocusBudgetResult  `json:"focus_budget"`
	EventArchive     []RankedEvent      `json:"event_archive"`
	DirectorSnapshot DirectorSnapshot   `json:"director_snapshot"`
	DirectorAnalysis *DirectorAnalysis  `json:"director_analysis"`
	DirectorEvents   []DirectorEvent    `json:"director_events"`
	Profiling        ProfileSummary     `json:"profiling"`
	StateDigest      string             `json:"state_digest"`
}

func snapshotDistricts(w *World) []DistrictSnapshot {
	out := make([]DistrictSnapshot, 0, len(w.City.Districts))
	for _, d := range w.City.Districts {
		stocks := make(map[string]StockSnapshot, len(d.Stocks))
		for name, st := range d.Stocks {
			stocks[name] = StockSnapshot{Current: st.Current, Capacity: st.Capacity}
		}
		out = append(out, DistrictSnapshot{
			ID:         d.ID,
			Name:       d.Name,
			Population: d.Population,
			Pollution:  d.Pollution,
			Unrest:     d.Unrest,
			Security:   d.Security,
			Adjacent:   cloneStrings(d.Adjacent),
			Coord:      d.Coord,
			HasCoord:   d.HasCoord,
			Stocks:     stocks,
		})
	}
	return out
}
