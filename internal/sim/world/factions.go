package world

import (
	"math/rand"

	"cityloom.ai/internal/sim/tuning"
)

// FactionSystem produces at most one action per faction per tick. Legitimacy
// mutations happen here; district side effects of an action are applied by
// EnvironmentSystem from the returned list.
type FactionSystem struct {
	cfg tuning.Factions
}

func NewFactionSystem(cfg tuning.Factions) FactionSystem {
	return FactionSystem{cfg: cfg}
}

const influenceResource = "influence"

func (s FactionSystem) Tick(w *World, rng *rand.Rand) []FactionAction {
	ids := sortedFactionIDs(w.Factions)
	for _, id := range ids {
		f := w.Factions[id]
		for kind, left := range f.Cooldowns {
			if left > 0 {
				f.Cooldowns[kind] = left - 1
			}
		}
	}

	actions := []FactionAction{}
	for _, id := range ids {
		f := w.Factions[id]
		if act, ok := s.lobby(w, f); ok {
			actions = append(actions, act)
			continue
		}
		if act, ok := s.sabotage(w, f, ids, rng); ok {
			actions = append(actions, act)
		}
	}
	return actions
}

// lobby fires when the faction's own legitimacy has sunk below the council
// threshold and the action is off cooldown.
func (s FactionSystem) lobby(w *World, f *Faction) (FactionAction, bool) {
	if f.Legitimacy >= s.cfg.LowLegitimacy {
		return FactionAction{}, false
	}
	if f.Cooldowns[ActionLobbyCouncil] > 0 {
		return FactionAction{}, false
	}
	before := f.Legitimacy
	f.Legitimacy = clamp01(f.Legitimacy + s.cfg.LobbyBoost)
	f.Cooldowns[ActionLobbyCouncil] = s.cfg.CooldownTicks
	return FactionAction{
		Faction:         f.ID,
		Kind:            ActionLobbyCouncil,
		District:        f.HomeDistrict,
		LegitimacyDelta: f.Legitimacy - before,
	}, true
}

// sabotage fires against a rival whose legitimacy trails by at least the
// configured gap and whose home district is vulnerable (low security,
// elevated unrest). Costs influence; a lone faction can never sabotage.
func (s FactionSystem) sabotage(w *World, f *Faction, ids []string, rng *rand.Rand) (FactionAction, bool) {
	if len(ids) < 2 {
		return FactionAction{}, false
	}
	if f.Cooldowns[ActionSabotageRival] > 0 {
		return FactionAction{}, false
	}
	if f.Resources[influenceResource] < s.cfg.SabotageInfluenceCost {
		return FactionAction{}, false
	}
	candidates := make([]string, 0, len(ids)-1)
	for _, id := range ids {
		if id == f.ID {
			continue
		}
		r := w.Factions[id]
		if f.Legitimacy-r.Legitimacy < s.cfg.SabotageGap {
			continue
		}
		d := w.District(r.HomeDistrict)
		if d == nil {
			continue
		}
		if d.Security >= s.cfg.VulnerableSecurity || d.Unrest <= s.cfg.VulnerableUnrest {
			continue
		}
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return FactionAction{}, false
	}
	target := w.Factions[candidates[rng.Intn(len(candidates))]]

	before := target.Legitimacy
	target.Legitimacy = clamp01(target.Legitimacy - s.cfg.SabotageDrop)
	f.Resources[influenceResource] -= s.cfg.SabotageInfluenceCost
	f.Cooldowns[ActionSabotageRival] = s.cfg.CooldownTicks
	return FactionAction{
		Faction:         f.ID,
		Kind:            ActionSabotageRival,
		Target:          target.ID,
		District:        target.HomeDistrict,
		LegitimacyDelta: target.Legitimacy - before,
		InfluenceSpent:  s.cfg.SabotageInfluenceCost,
	}, true
}
