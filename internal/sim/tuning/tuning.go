package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning carries one settings struct per simulation system. The engine takes
// a Tuning at construction and never substitutes its own values afterwards;
// Defaults() exists for tools and tests that have no settings file.
type Tuning struct {
	Engine      Engine      `yaml:"engine"`
	Agents      Agents      `yaml:"agents"`
	Factions    Factions    `yaml:"factions"`
	Economy     Economy     `yaml:"economy"`
	Environment Environment `yaml:"environment"`
	Focus       Focus       `yaml:"focus"`
	Director    Director    `yaml:"director"`
}

type Engine struct {
	MaxTicksPerCall int     `yaml:"max_ticks_per_call"`
	ProfileWindow   int     `yaml:"profile_window"`
	AnomalyFactor   float64 `yaml:"anomaly_factor"`
}

type Agents struct {
	ActionLimit int `yaml:"action_limit"`
}

type Factions struct {
	CooldownTicks         int     `yaml:"cooldown_ticks"`
	LowLegitimacy         float64 `yaml:"low_legitimacy"`
	LobbyBoost            float64 `yaml:"lobby_boost"`
	SabotageGap           float64 `yaml:"sabotage_gap"`
	SabotageDrop          float64 `yaml:"sabotage_drop"`
	SabotageInfluenceCost int     `yaml:"sabotage_influence_cost"`
	VulnerableSecurity    float64 `yaml:"vulnerable_security"`
	VulnerableUnrest      float64 `yaml:"vulnerable_unrest"`
}

type Economy struct {
	ShortageThreshold    float64 `yaml:"shortage_threshold"`
	ShortageWarningTicks int     `yaml:"shortage_warning_ticks"`
	BasePrice            float64 `yaml:"base_price"`
	PriceIncreaseStep    float64 `yaml:"price_increase_step"`
	PriceMaxBoost        float64 `yaml:"price_max_boost"`
	PriceDecay           float64 `yaml:"price_decay"`
	PriceFloor           float64 `yaml:"price_floor"`
	// RebalanceStep and ProductionRate are fractions of a stock's capacity
	// moved or produced per tick during the rebalancing pass.
	RebalanceStep  float64 `yaml:"rebalance_step"`
	ProductionRate float64 `yaml:"production_rate"`
}

type Environment struct {
	ScarcityThreshold       float64 `yaml:"scarcity_threshold"`
	ScarcityUnrestWeight    float64 `yaml:"scarcity_unrest_weight"`
	ScarcityPollutionWeight float64 `yaml:"scarcity_pollution_weight"`
	DistrictUnrestWeight    float64 `yaml:"district_unrest_weight"`
	DistrictPollutionWeight float64 `yaml:"district_pollution_weight"`
	StabilityWeight         float64 `yaml:"stability_weight"`
	SabotagePollution       float64 `yaml:"sabotage_pollution"`
	SabotageUnrest          float64 `yaml:"sabotage_unrest"`
	DiffusionRate           float64 `yaml:"diffusion_rate"`
	DiffusionNeighborBias   float64 `yaml:"diffusion_neighbor_bias"`
	DiffusionMinDelta       float64 `yaml:"diffusion_min_delta"`
	DiffusionMaxDelta       float64 `yaml:"diffusion_max_delta"`
}

type Focus struct {
	RingRadius      int                `yaml:"ring_radius"`
	VisibleBudget   int                `yaml:"visible_budget"`
	SeverityWeight  float64            `yaml:"severity_weight"`
	DistancePenalty float64            `yaml:"distance_penalty"`
	RingBonus       float64            `yaml:"ring_bonus"`
	ScopeWeights    map[string]float64 `yaml:"scope_weights"`
}

type Director struct {
	HistoryLimit          int     `yaml:"history_limit"`
	RankedLimit           int     `yaml:"ranked_limit"`
	SpatialPreview        int     `yaml:"spatial_preview"`
	TravelTimePerDistance float64 `yaml:"travel_time_per_distance"`
	TravelTimePerHop      float64 `yaml:"travel_time_per_hop"`
}

func Defaults() Tuning {
	return Tuning{
		Engine: Engine{
			MaxTicksPerCall: 500,
			ProfileWindow:   64,
			AnomalyFactor:   4.0,
		},
		Agents: Agents{
			ActionLimit: 6,
		},
		Factions: Factions{
			CooldownTicks:         5,
			LowLegitimacy:         0.5,
			LobbyBoost:            0.05,
			SabotageGap:           0.2,
			SabotageDrop:          0.08,
			SabotageInfluenceCost: 2,
			VulnerableSecurity:    0.4,
			VulnerableUnrest:      0.5,
		},
		Economy: Economy{
			ShortageThreshold:    0.25,
			ShortageWarningTicks: 2,
			BasePrice:            10.0,
			PriceIncreaseStep:    0.5,
			PriceMaxBoost:        8.0,
			PriceDecay:           0.25,
			PriceFloor:           4.0,
			RebalanceStep:        0.05,
			ProductionRate:       0.02,
		},
		Environment: Environment{
			ScarcityThreshold:       4,
			ScarcityUnrestWeight:    0.04,
			ScarcityPollutionWeight: 0.02,
			DistrictUnrestWeight:    0.06,
			DistrictPollutionWeight: 0.03,
			StabilityWeight:         0.5,
			SabotagePollution:       0.08,
			SabotageUnrest:          0.06,
			DiffusionRate:           0.2,
			DiffusionNeighborBias:   1.0,
			DiffusionMinDelta:       -0.05,
			DiffusionMaxDelta:       0.05,
		},
		Focus: Focus{
			RingRadius:      1,
			VisibleBudget:   5,
			SeverityWeight:  1.0,
			DistancePenalty: 0.15,
			RingBonus:       0.5,
			ScopeWeights: map[string]float64{
				"district":    0.3,
				"environment": 0.2,
				"agent":       0.1,
				"faction":     0.25,
				"economy":     0.2,
			},
		},
		Director: Director{
			HistoryLimit:          20,
			RankedLimit:           8,
			SpatialPreview:        4,
			TravelTimePerDistance: 0.5,
			TravelTimePerHop:      2.0,
		},
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("settings %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("settings %s: %w", path, err)
	}
	return t, nil
}

// Validate rejects settings the engine cannot run under. It checks ordering
// constraints between related knobs, not taste.
func (t Tuning) Validate() error {
	if t.Engine.MaxTicksPerCall < 1 {
		return fmt.Errorf("engine.max_ticks_per_call must be >= 1, got %d", t.Engine.MaxTicksPerCall)
	}
	if t.Engine.ProfileWindow < 1 {
		return fmt.Errorf("engine.profile_window must be >= 1, got %d", t.Engine.ProfileWindow)
	}
	if t.Agents.ActionLimit < 0 {
		return fmt.Errorf("agents.action_limit must be >= 0, got %d", t.Agents.ActionLimit)
	}
	if t.Factions.CooldownTicks < 0 {
		return fmt.Errorf("factions.cooldown_ticks must be >= 0, got %d", t.Factions.CooldownTicks)
	}
	if t.Economy.ShortageWarningTicks < 1 {
		return fmt.Errorf("economy.shortage_warning_ticks must be >= 1, got %d", t.Economy.ShortageWarningTicks)
	}
	if t.Economy.PriceFloor > t.Economy.BasePrice {
		return fmt.Errorf("economy.price_floor %.3f exceeds base_price %.3f", t.Economy.PriceFloor, t.Economy.BasePrice)
	}
	if t.Economy.PriceMaxBoost < 0 {
		return fmt.Errorf("economy.price_max_boost must be >= 0, got %.3f", t.Economy.PriceMaxBoost)
	}
	if t.Environment.ScarcityThreshold <= 0 {
		return fmt.Errorf("environment.scarcity_threshold must be > 0, got %.3f", t.Environment.ScarcityThreshold)
	}
	if t.Environment.DiffusionMinDelta > t.Environment.DiffusionMaxDelta {
		return fmt.Errorf("environment.diffusion_min_delta %.3f exceeds diffusion_max_delta %.3f",
			t.Environment.DiffusionMinDelta, t.Environment.DiffusionMaxDelta)
	}
	if t.Focus.RingRadius < 0 {
		return fmt.Errorf("focus.ring_radius must be >= 0, got %d", t.Focus.RingRadius)
	}
	if t.Focus.VisibleBudget < 0 {
		return fmt.Errorf("focus.visible_budget must be >= 0, got %d", t.Focus.VisibleBudget)
	}
	if t.Director.HistoryLimit < 1 {
		return fmt.Errorf("director.history_limit must be >= 1, got %d", t.Director.HistoryLimit)
	}
	if t.Director.RankedLimit < 1 {
		return fmt.Errorf("director.ranked_limit must be >= 1, got %d", t.Director.RankedLimit)
	}
	if t.Director.SpatialPreview < 0 {
		return fmt.Errorf("director.spatial_preview must be >= 0, got %d", t.Director.SpatialPreview)
	}
	return nil
}
