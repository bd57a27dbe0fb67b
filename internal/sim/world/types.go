package world

import (
	"fmt"
	"math"
)

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func Euclidean(a, b Vec3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Stock tracks one resource in one district. Current may drift outside
// [0, Capacity] between ticks when set externally; EconomySystem restores the
// bound on its next pass.
type Stock struct {
	Current  float64
	Capacity float64
}

// District is the spatial unit of the simulation. Adjacent holds district ids
// only, never pointers, so graph passes can traverse without ownership cycles.
type District struct {
	ID         string
	Name       string
	Population int
	Stocks     map[string]*Stock
	Pollution  float64
	Unrest     float64
	Security   float64
	Adjacent   []string
	Coord      Vec3
	HasCoord   bool
}

type City struct {
	ID        string
	Name      string
	Districts []*District
}

type Faction struct {
	ID           string
	Name         string
	Legitimacy   float64
	Resources    map[string]int
	HomeDistrict string
	// Cooldowns holds remaining ticks per action kind; an action cannot recur
	// for this faction until its entry reaches 0.
	Cooldowns map[ActionKind]int
}

type Agent struct {
	ID        string
	Name      string
	Archetype string
	District  string
	Drive     float64
}

// Environment is the global mood of the city. All three values stay in [0,1];
// stability moves opposite to the unrest/pollution deltas applied in a tick.
type Environment struct {
	Stability float64 `json:"stability"`
	Unrest    float64 `json:"unrest"`
	Pollution float64 `json:"pollution"`
}

type TriggerPattern struct {
	Contains string
	Scope    string
}

type Resolution struct {
	Success string
	Failure string
}

// StorySeed is an authored narrative hook. Seeds are registered at load time
// and never mutated; per-seed lifecycle lives in SeedState.
type StorySeed struct {
	ID            string
	Title         string
	Triggers      []TriggerPattern
	Stakes        string
	Resolution    Resolution
	TravelHint    string
	Followups     []string
	CooldownTicks int
}

type SeedPhase uint8

const (
	SeedDormant SeedPhase = iota
	SeedPrimed
	SeedActive
	SeedArchived
)

func (p SeedPhase) String() string {
	switch p {
	case SeedDormant:
		return "dormant"
	case SeedPrimed:
		return "primed"
	case SeedActive:
		return "active"
	case SeedArchived:
		return "archived"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

func (p SeedPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *SeedPhase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "dormant":
		*p = SeedDormant
	case "primed":
		*p = SeedPrimed
	case "active":
		*p = SeedActive
	case "archived":
		*p = SeedArchived
	default:
		return fmt.Errorf("unknown seed phase %q", string(b))
	}
	return nil
}

// SeedState is the mutable lifecycle of one story seed. Transitions happen
// only inside NarrativeDirector.Evaluate.
type SeedState struct {
	Phase             SeedPhase
	EnteredTick       uint64
	CooldownRemaining int
}

// MarketState is cross-tick economy state: one price per resource, shortage
// streak counters keyed by district/resource, and the previous tick's
// warning-level shortages for downstream consumers.
type MarketState struct {
	Prices        map[string]float64
	Streaks       map[string]int
	LastShortages []Shortage
}

func NewMarketState() *MarketState {
	return &MarketState{
		Prices:  map[string]float64{},
		Streaks: map[string]int{},
	}
}

func streakKey(district, resource string) string {
	return district + "/" + resource
}

// DirectorState holds the bounded snapshot history ring, the latest analysis
// (nil when the focus feed was empty), and the tick Evaluate last ran on.
type DirectorState struct {
	History      []DirectorSnapshot
	Analysis     *DirectorAnalysis
	LastEvalTick uint64
}

// FocusDigest is the last focus allocation's spatial state, kept on the world
// so snapshots and the bridge can reuse it without re-deriving the ring.
type FocusDigest struct {
	District string
	Ring     []string
	Weights  []DistrictWeight
}
