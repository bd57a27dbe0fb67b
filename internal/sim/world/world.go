package world

import (
	"sort"
)

// World is the complete simulation state. It is owned by a single Engine and
// mutated in place by the system pipeline; nothing else may hold a mutable
// reference while the engine is live. Derived cross-tick state is typed and
// held directly on the struct; Meta is the only open key/value surface and
// its keys are documented where they are written.
type World struct {
	Tick uint64
	// Seed is the RNG seed the world was created with. Reseeding a running
	// engine does not rewrite it.
	Seed int64

	City     *City
	Factions map[string]*Faction
	Agents   []*Agent
	Env      Environment

	// Seeds is immutable after load; SeedStates carries the per-seed
	// lifecycle driven by the narrative director.
	Seeds      map[string]*StorySeed
	SeedStates map[string]*SeedState

	Market   *MarketState
	Director *DirectorState
	Focus    *FocusDigest
	Profile  *ProfileWindow

	Meta map[string]string

	districts map[string]*District
}

// New wires an empty world around a city. Callers populate Factions, Agents
// and Seeds and then call Reindex before handing the world to an engine.
func New(seed int64, city *City) *World {
	w := &World{
		Seed:       seed,
		City:       city,
		Factions:   map[string]*Faction{},
		Seeds:      map[string]*StorySeed{},
		SeedStates: map[string]*SeedState{},
		Market:     NewMarketState(),
		Director:   &DirectorState{},
		Focus:      &FocusDigest{},
		Meta:       map[string]string{},
	}
	w.Reindex()
	return w
}

// Reindex rebuilds the district lookup and normalizes derived-state
// containers. It is called after construction and after a snapshot restore;
// it never invents simulation values, only empty containers.
func (w *World) Reindex() {
	w.districts = make(map[string]*District, 0)
	if w.City != nil {
		w.districts = make(map[string]*District, len(w.City.Districts))
		for _, d := range w.City.Districts {
			if d == nil {
				continue
			}
			if d.Stocks == nil {
				d.Stocks = map[string]*Stock{}
			}
			w.districts[d.ID] = d
		}
	}
	if w.Factions == nil {
		w.Factions = map[string]*Faction{}
	}
	for _, f := range w.Factions {
		if f.Resources == nil {
			f.Resources = map[string]int{}
		}
		if f.Cooldowns == nil {
			f.Cooldowns = map[ActionKind]int{}
		}
	}
	if w.Seeds == nil {
		w.Seeds = map[string]*StorySeed{}
	}
	if w.SeedStates == nil {
		w.SeedStates = map[string]*SeedState{}
	}
	for id := range w.Seeds {
		if _, ok := w.SeedStates[id]; !ok {
			w.SeedStates[id] = &SeedState{Phase: SeedDormant}
		}
	}
	if w.Market == nil {
		w.Market = NewMarketState()
	}
	if w.Market.Prices == nil {
		w.Market.Prices = map[string]float64{}
	}
	if w.Market.Streaks == nil {
		w.Market.Streaks = map[string]int{}
	}
	if w.Director == nil {
		w.Director = &DirectorState{}
	}
	if w.Focus == nil {
		w.Focus = &FocusDigest{}
	}
	if w.Meta == nil {
		w.Meta = map[string]string{}
	}
}

// District resolves a district id; nil when unknown.
func (w *World) District(id string) *District {
	return w.districts[id]
}

// Neighbors returns the ids adjacent to a district, filtered to ids that
// resolve. Order follows the authored adjacency list.
func (w *World) Neighbors(id string) []string {
	d := w.districts[id]
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Adjacent))
	for _, n := range d.Adjacent {
		if _, ok := w.districts[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// ResourceNames is the sorted union of resource names across all districts.
func (w *World) ResourceNames() []string {
	seen := map[string]bool{}
	for _, d := range w.City.Districts {
		for name := range d.Stocks {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedFactionIDs(m map[string]*Faction) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedSeedIDs(m map[string]*StorySeed) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedStockNames(d *District) []string {
	names := make([]string, 0, len(d.Stocks))
	for name := range d.Stocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
