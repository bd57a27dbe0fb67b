package worldtest

import (
	"testing"

	"cityloom.ai/internal/sim/tuning"
	world "cityloom.ai/internal/sim/world"
)

// Harness drives a fully populated world through the exported engine API so
// integration tests stay outside the world package. It intentionally avoids
// touching world internals beyond what the engine exposes.
type Harness struct {
	T   *testing.T
	Cfg *tuning.Tuning
	Eng *world.Engine
}

func NewHarness(t *testing.T, seed int64) *Harness {
	t.Helper()
	cfg := tuning.Defaults()
	return NewHarnessWithTuning(t, seed, &cfg)
}

func NewHarnessWithTuning(t *testing.T, seed int64, cfg *tuning.Tuning) *Harness {
	t.Helper()
	return &Harness{
		T:   t,
		Cfg: cfg,
		Eng: world.NewEngine(BuildWorld(seed), cfg),
	}
}

// Advance steps the engine and fails the test on any error.
func (h *Harness) Advance(n int) []world.TickReport {
	h.T.Helper()
	reports, err := h.Eng.AdvanceTicks(n, nil)
	if err != nil {
		h.T.Fatalf("advance %d ticks: %v", n, err)
	}
	return reports
}

// BuildWorld assembles the shared integration city: six districts in a ring
// with one spur, three factions, five agents, and a chained pair of story
// seeds. The gasworks starts deep in a fuel shortage so economy and director
// activity appears within the first few ticks.
func BuildWorld(seed int64) *world.World {
	city := &world.City{
		ID:   "graymarsh",
		Name: "Graymarsh",
		Districts: []*world.District{
			{
				ID: "docklands", Name: "Docklands", Population: 3200,
				Stocks: map[string]*world.Stock{
					"grain": {Current: 140, Capacity: 160},
					"fuel":  {Current: 90, Capacity: 110},
				},
				Security: 0.6, Unrest: 0.15,
				Adjacent: []string{"exchange", "gasworks"},
				Coord:    world.Vec3{X: 0, Y: 0, Z: 0}, HasCoord: true,
			},
			{
				ID: "exchange", Name: "The Exchange", Population: 2100,
				Stocks: map[string]*world.Stock{
					"grain": {Current: 100, Capacity: 120},
					"fuel":  {Current: 60, Capacity: 80},
				},
				Security: 0.7, Unrest: 0.1,
				Adjacent: []string{"docklands", "foundry"},
				Coord:    world.Vec3{X: 4, Y: 0, Z: 0}, HasCoord: true,
			},
			{
				ID: "foundry", Name: "Foundry Rows", Population: 1800,
				Stocks: map[string]*world.Stock{
					"grain": {Current: 70, Capacity: 100},
					"fuel":  {Current: 85, Capacity: 90},
				},
				Security: 0.4, Unrest: 0.3, Pollution: 0.25,
				Adjacent: []string{"exchange", "gasworks", "terrace_row"},
				Coord:    world.Vec3{X: 8, Y: 0, Z: 0}, HasCoord: true,
			},
			{
				ID: "gasworks", Name: "Gasworks", Population: 900,
				Stocks: map[string]*world.Stock{
					"grain": {Current: 40, Capacity: 70},
					"fuel":  {Current: 4, Capacity: 100},
				},
				Security: 0.3, Unrest: 0.55, Pollution: 0.4,
				Adjacent: []string{"docklands", "foundry"},
				Coord:    world.Vec3{X: 4, Y: 0, Z: 4}, HasCoord: true,
			},
			{
				ID: "terrace_row", Name: "Terrace Row", Population: 2600,
				Stocks: map[string]*world.Stock{
					"grain": {Current: 110, Capacity: 130},
				},
				Security: 0.8,
				Adjacent: []string{"foundry"},
				Coord:    world.Vec3{X: 12, Y: 0, Z: 0}, HasCoord: true,
			},
			{
				ID: "the_stacks", Name: "The Stacks", Population: 500,
				Stocks: map[string]*world.Stock{
					"grain": {Current: 30, Capacity: 50},
				},
				Security: 0.5,
				Coord:    world.Vec3{X: -6, Y: 1, Z: -4}, HasCoord: true,
			},
		},
	}

	w := world.New(seed, city)
	w.Factions["harbor_combine"] = &world.Faction{
		ID: "harbor_combine", Name: "Harbor Combine",
		Legitimacy: 0.85, HomeDistrict: "docklands",
		Resources: map[string]int{"influence": 9},
	}
	w.Factions["lamplighters"] = &world.Faction{
		ID: "lamplighters", Name: "Lamplighters Guild",
		Legitimacy: 0.45, HomeDistrict: "gasworks",
		Resources: map[string]int{"influence": 3},
	}
	w.Factions["ledger_court"] = &world.Faction{
		ID: "ledger_court", Name: "Ledger Court",
		Legitimacy: 0.7, HomeDistrict: "exchange",
		Resources: map[string]int{"influence": 6},
	}
	w.Agents = []*world.Agent{
		{ID: "ag_serra", Name: "Serra Quill", Archetype: "inspector", District: "exchange", Drive: 0.85},
		{ID: "ag_bilt", Name: "Bilt Harrow", Archetype: "broker", District: "docklands", Drive: 0.75},
		{ID: "ag_onna", Name: "Onna Reed", Archetype: "courier", District: "gasworks", Drive: 0.9},
		{ID: "ag_vex", Name: "Vex Calder", Archetype: "inspector", District: "foundry", Drive: 0.6},
		{ID: "ag_mori", Name: "Mori Plume", Archetype: "broker", District: "terrace_row", Drive: 0.5},
	}
	w.Seeds["gas_famine"] = &world.StorySeed{
		ID: "gas_famine", Title: "The Gas Famine",
		Triggers: []world.TriggerPattern{
			{Contains: "shortage of fuel", Scope: world.ScopeEconomy},
		},
		Stakes:        "the gasworks cannot feed the lamps",
		Resolution:    world.Resolution{Success: "the lamps hold", Failure: "the quarter goes dark"},
		TravelHint:    "gasworks",
		Followups:     []string{"cold_furnaces"},
		CooldownTicks: 4,
	}
	w.Seeds["cold_furnaces"] = &world.StorySeed{
		ID: "cold_furnaces", Title: "Cold Furnaces",
		Triggers: []world.TriggerPattern{
			{Contains: "deploys fuel", Scope: world.ScopeAgent},
			{Contains: "shortage", Scope: world.ScopeEconomy},
		},
		TravelHint:    "foundry",
		CooldownTicks: 3,
	}
	w.Env = world.Environment{Stability: 0.85, Unrest: 0.2, Pollution: 0.2}
	w.Focus.District = "gasworks"
	w.Reindex()
	return w
}
