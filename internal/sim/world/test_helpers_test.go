package world

import (
	"math/rand"
	"testing"

	"cityloom.ai/internal/sim/tuning"
)

// testCity builds a five-district city: harbor-market-terraces in a chain,
// mills off harbor, and outlook disconnected from everything. Coordinates are
// set everywhere so route fallbacks are computable.
func testCity() *City {
	return &City{
		ID:   "rivermouth",
		Name: "Rivermouth",
		Districts: []*District{
			{
				ID: "harbor", Name: "Harbor Ward", Population: 1200,
				Stocks: map[string]*Stock{
					"grain": {Current: 80, Capacity: 100},
					"fuel":  {Current: 40, Capacity: 60},
				},
				Security: 0.7,
				Adjacent: []string{"market", "mills"},
				Coord:    Vec3{X: 0, Y: 0, Z: 0}, HasCoord: true,
			},
			{
				ID: "market", Name: "Market Row", Population: 2400,
				Stocks: map[string]*Stock{
					"grain": {Current: 90, Capacity: 120},
					"fuel":  {Current: 30, Capacity: 50},
				},
				Security: 0.5,
				Adjacent: []string{"harbor", "terraces"},
				Coord:    Vec3{X: 3, Y: 0, Z: 0}, HasCoord: true,
			},
			{
				ID: "mills", Name: "Old Mills", Population: 800,
				Stocks: map[string]*Stock{
					"grain": {Current: 50, Capacity: 80},
					"fuel":  {Current: 45, Capacity: 70},
				},
				Security: 0.3, Unrest: 0.2,
				Adjacent: []string{"harbor"},
				Coord:    Vec3{X: 0, Y: 0, Z: 4}, HasCoord: true,
			},
			{
				ID: "terraces", Name: "The Terraces", Population: 1600,
				Stocks: map[string]*Stock{
					"grain": {Current: 70, Capacity: 90},
				},
				Security: 0.6,
				Adjacent: []string{"market"},
				Coord:    Vec3{X: 6, Y: 0, Z: 0}, HasCoord: true,
			},
			{
				ID: "outlook", Name: "The Outlook", Population: 300,
				Stocks: map[string]*Stock{
					"grain": {Current: 20, Capacity: 40},
				},
				Security: 0.8,
				Coord:    Vec3{X: 10, Y: 2, Z: 0}, HasCoord: true,
			},
		},
	}
}

func testWorld(t *testing.T) *World {
	t.Helper()
	w := New(42, testCity())
	w.Factions["civic_union"] = &Faction{
		ID: "civic_union", Name: "Civic Union",
		Legitimacy: 0.65, HomeDistrict: "market",
		Resources: map[string]int{"influence": 5},
	}
	w.Factions["tide_syndicate"] = &Faction{
		ID: "tide_syndicate", Name: "Tide Syndicate",
		Legitimacy: 0.9, HomeDistrict: "harbor",
		Resources: map[string]int{"influence": 8},
	}
	w.Agents = []*Agent{
		{ID: "a1", Name: "Ava Strand", Archetype: "inspector", District: "harbor", Drive: 0.9},
		{ID: "a2", Name: "Bram Holt", Archetype: "broker", District: "market", Drive: 0.8},
		{ID: "a3", Name: "Cleo Marsh", Archetype: "courier", District: "mills", Drive: 0.7},
	}
	w.Seeds["blackout"] = &StorySeed{
		ID: "blackout", Title: "Blackout in the Mills",
		Triggers:      []TriggerPattern{{Contains: "shortage", Scope: ScopeEconomy}},
		Stakes:        "the mills go dark",
		Resolution:    Resolution{Success: "lights return", Failure: "the dark spreads"},
		TravelHint:    "mills",
		Followups:     []string{"aftermath"},
		CooldownTicks: 3,
	}
	w.Seeds["aftermath"] = &StorySeed{
		ID: "aftermath", Title: "Aftermath",
		Triggers:      []TriggerPattern{{Contains: "saboteurs", Scope: ScopeFaction}},
		CooldownTicks: 2,
	}
	w.Env = Environment{Stability: 0.8, Unrest: 0.1, Pollution: 0.1}
	w.Reindex()
	return w
}

func testRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func testTuning() *tuning.Tuning {
	cfg := tuning.Defaults()
	return &cfg
}

func int64Ptr(v int64) *int64 { return &v }
