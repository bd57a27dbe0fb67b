package world

import "testing"

func lowLegitimacyWorld(t *testing.T) *World {
	t.Helper()
	w := New(7, testCity())
	w.Factions["civic_union"] = &Faction{
		ID: "civic_union", Name: "Civic Union",
		Legitimacy: 0.4, HomeDistrict: "market",
		Resources: map[string]int{"influence": 5},
	}
	w.Reindex()
	return w
}

func sabotageWorld(t *testing.T) *World {
	t.Helper()
	w := New(7, testCity())
	w.Factions["tide_syndicate"] = &Faction{
		ID: "tide_syndicate", Name: "Tide Syndicate",
		Legitimacy: 0.9, HomeDistrict: "harbor",
		Resources: map[string]int{"influence": 8},
	}
	w.Factions["gray_choir"] = &Faction{
		ID: "gray_choir", Name: "Gray Choir",
		Legitimacy: 0.55, HomeDistrict: "mills",
		Resources: map[string]int{"influence": 1},
	}
	// Make the rival's home district vulnerable.
	mills := w.District("mills")
	mills.Security = 0.2
	mills.Unrest = 0.7
	w.Reindex()
	return w
}

func TestFactionSystem_LobbyBelowThreshold(t *testing.T) {
	sys := NewFactionSystem(testTuning().Factions)
	w := lowLegitimacyWorld(t)

	actions := sys.Tick(w, testRand(1))
	if len(actions) != 1 {
		t.Fatalf("got %d actions want 1", len(actions))
	}
	act := actions[0]
	if act.Kind != ActionLobbyCouncil {
		t.Fatalf("kind: got %v want %v", act.Kind, ActionLobbyCouncil)
	}
	if act.Faction != "civic_union" || act.District != "market" {
		t.Fatalf("unexpected action fields: %+v", act)
	}
	if act.LegitimacyDelta <= 0 {
		t.Fatalf("legitimacy delta: got %f want > 0", act.LegitimacyDelta)
	}
	f := w.Factions["civic_union"]
	if f.Legitimacy <= 0.4 {
		t.Fatalf("legitimacy after lobby: got %f want > 0.4", f.Legitimacy)
	}
	if got := f.Cooldowns[ActionLobbyCouncil]; got != testTuning().Factions.CooldownTicks {
		t.Fatalf("cooldown after lobby: got %d want %d", got, testTuning().Factions.CooldownTicks)
	}
}

func TestFactionSystem_CooldownBlocksRepeatLobby(t *testing.T) {
	sys := NewFactionSystem(testTuning().Factions)
	w := lowLegitimacyWorld(t)

	if got := sys.Tick(w, testRand(1)); len(got) != 1 {
		t.Fatalf("first tick: got %d actions want 1", len(got))
	}
	if got := sys.Tick(w, testRand(2)); len(got) != 0 {
		t.Fatalf("second tick: got %d actions want 0 (on cooldown)", len(got))
	}
	if got := w.Factions["civic_union"].Cooldowns[ActionLobbyCouncil]; got != testTuning().Factions.CooldownTicks-1 {
		t.Fatalf("cooldown after decrement: got %d want %d", got, testTuning().Factions.CooldownTicks-1)
	}
}

func TestFactionSystem_CooldownNeverNegative(t *testing.T) {
	sys := NewFactionSystem(testTuning().Factions)
	w := lowLegitimacyWorld(t)

	for tick := 0; tick < 30; tick++ {
		sys.Tick(w, testRand(int64(tick)))
		for _, f := range w.Factions {
			for kind, left := range f.Cooldowns {
				if left < 0 {
					t.Fatalf("tick %d: cooldown %v went negative: %d", tick, kind, left)
				}
			}
		}
	}
}

func TestFactionSystem_SabotageVulnerableRival(t *testing.T) {
	sys := NewFactionSystem(testTuning().Factions)
	w := sabotageWorld(t)

	actions := sys.Tick(w, testRand(1))
	var sab *FactionAction
	for i := range actions {
		if actions[i].Kind == ActionSabotageRival {
			sab = &actions[i]
		}
	}
	if sab == nil {
		t.Fatalf("no sabotage produced, actions: %+v", actions)
	}
	if sab.Faction != "tide_syndicate" || sab.Target != "gray_choir" {
		t.Fatalf("unexpected sabotage pairing: %+v", sab)
	}
	if sab.District != "mills" {
		t.Fatalf("sabotage district: got %q want %q", sab.District, "mills")
	}
	if sab.LegitimacyDelta >= 0 {
		t.Fatalf("legitimacy delta: got %f want < 0", sab.LegitimacyDelta)
	}

	cost := testTuning().Factions.SabotageInfluenceCost
	if sab.InfluenceSpent != cost {
		t.Fatalf("influence spent: got %d want %d", sab.InfluenceSpent, cost)
	}
	if got := w.Factions["tide_syndicate"].Resources["influence"]; got != 8-cost {
		t.Fatalf("influence after sabotage: got %d want %d", got, 8-cost)
	}
	if got := w.Factions["gray_choir"].Legitimacy; got >= 0.55 {
		t.Fatalf("rival legitimacy: got %f want < 0.55", got)
	}
}

func TestFactionSystem_SabotageNeedsInfluence(t *testing.T) {
	sys := NewFactionSystem(testTuning().Factions)
	w := sabotageWorld(t)
	w.Factions["tide_syndicate"].Resources["influence"] = 0

	for _, act := range sys.Tick(w, testRand(1)) {
		if act.Kind == ActionSabotageRival {
			t.Fatalf("sabotage fired without influence: %+v", act)
		}
	}
}

func TestFactionSystem_SabotageNeedsVulnerableDistrict(t *testing.T) {
	sys := NewFactionSystem(testTuning().Factions)
	w := sabotageWorld(t)
	w.District("mills").Security = 0.9

	for _, act := range sys.Tick(w, testRand(1)) {
		if act.Kind == ActionSabotageRival {
			t.Fatalf("sabotage fired against secure district: %+v", act)
		}
	}
}

func TestFactionSystem_LoneFactionNeverSabotages(t *testing.T) {
	sys := NewFactionSystem(testTuning().Factions)
	w := New(7, testCity())
	w.Factions["tide_syndicate"] = &Faction{
		ID: "tide_syndicate", Name: "Tide Syndicate",
		Legitimacy: 0.9, HomeDistrict: "harbor",
		Resources: map[string]int{"influence": 100},
	}
	w.Reindex()

	for tick := 0; tick < 20; tick++ {
		for _, act := range sys.Tick(w, testRand(int64(tick))) {
			if act.Kind == ActionSabotageRival {
				t.Fatalf("lone faction sabotaged at tick %d: %+v", tick, act)
			}
		}
	}
}

func TestFactionSystem_LegitimacyStaysInRange(t *testing.T) {
	sys := NewFactionSystem(testTuning().Factions)
	w := sabotageWorld(t)
	w.Factions["gray_choir"].Legitimacy = 0.02

	for tick := 0; tick < 40; tick++ {
		sys.Tick(w, testRand(int64(tick)))
		for id, f := range w.Factions {
			if f.Legitimacy < 0 || f.Legitimacy > 1 {
				t.Fatalf("tick %d: faction %s legitimacy out of range: %f", tick, id, f.Legitimacy)
			}
		}
	}
}
