// Package snapshot defines the versioned on-disk document for a captured
// world and its file I/O. Conversion to and from live state lives in the
// world package; this package stays a leaf so any tool can read snapshots
// without pulling in the simulation.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const Version = 1

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

type Header struct {
	Version int    `json:"version"`
	CityID  string `json:"city_id"`
	Tick    uint64 `json:"tick"`
	// Digest is the state digest at capture time. A restore that does not
	// reproduce it is not the same world.
	Digest string `json:"digest"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed        int64             `json:"seed"`
	City        CityV1            `json:"city"`
	Factions    []FactionV1       `json:"factions"`
	Agents      []AgentV1         `json:"agents"`
	Environment EnvironmentV1     `json:"environment"`
	StorySeeds  []StorySeedV1     `json:"story_seeds"`
	SeedStates  []SeedStateV1     `json:"seed_states"`
	Market      MarketV1          `json:"market"`
	Director    DirectorV1        `json:"director"`
	Focus       FocusV1           `json:"focus"`
	Profile     *ProfileV1        `json:"profile,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type CityV1 struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Districts []DistrictV1 `json:"districts"`
}

type DistrictV1 struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Population int                `json:"population"`
	Pollution  float64            `json:"pollution"`
	Unrest     float64            `json:"unrest"`
	Security   float64            `json:"security"`
	Adjacent   []string           `json:"adjacent,omitempty"`
	Coord      [3]float64         `json:"coord"`
	HasCoord   bool               `json:"has_coord"`
	Stocks     map[string]StockV1 `json:"stocks"`
}

type StockV1 struct {
	Current  float64 `json:"current"`
	Capacity float64 `json:"capacity"`
}

type FactionV1 struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Legitimacy   float64        `json:"legitimacy"`
	HomeDistrict string         `json:"home_district"`
	Resources    map[string]int `json:"resources,omitempty"`
	Cooldowns    map[string]int `json:"cooldowns,omitempty"`
}

type AgentV1 struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Archetype string  `json:"archetype"`
	District  string  `json:"district"`
	Drive     float64 `json:"drive"`
}

type EnvironmentV1 struct {
	Stability float64 `json:"stability"`
	Unrest    float64 `json:"unrest"`
	Pollution float64 `json:"pollution"`
}

type StorySeedV1 struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Triggers      []TriggerV1  `json:"triggers,omitempty"`
	Stakes        string       `json:"stakes,omitempty"`
	Resolution    ResolutionV1 `json:"resolution"`
	TravelHint    string       `json:"travel_hint,omitempty"`
	Followups     []string     `json:"followups,omitempty"`
	CooldownTicks int          `json:"cooldown_ticks"`
}

type TriggerV1 struct {
	Contains string `json:"contains"`
	Scope    string `json:"scope"`
}

type ResolutionV1 struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
}

type SeedStateV1 struct {
	Seed              string `json:"seed_id"`
	Phase             string `json:"phase"`
	EnteredTick       uint64 `json:"entered_tick"`
	CooldownRemaining int    `json:"cooldown_remaining"`
}

type MarketV1 struct {
	Prices        map[string]float64 `json:"prices"`
	Streaks       map[string]int     `json:"streaks,omitempty"`
	LastShortages []ShortageV1       `json:"last_shortages,omitempty"`
}

type ShortageV1 struct {
	District string  `json:"district_id"`
	Resource string  `json:"resource"`
	Ratio    float64 `json:"ratio"`
	Streak   int     `json:"streak"`
}

type DirectorV1 struct {
	LastEvalTick uint64               `json:"last_eval_tick"`
	History      []DirectorSnapshotV1 `json:"history"`
	Analysis     *AnalysisV1          `json:"analysis,omitempty"`
}

type DirectorSnapshotV1 struct {
	Tick           uint64             `json:"tick"`
	FocusDistrict  string             `json:"focus_district"`
	FocusRing      []string           `json:"focus_ring,omitempty"`
	TopRanked      []RankedEventV1    `json:"top_ranked"`
	SpatialWeights []DistrictWeightV1 `json:"spatial_weights"`
	Prices         map[string]float64 `json:"prices"`
	ShortageCount  int                `json:"shortage_count"`
	Environment    EnvironmentV1      `json:"environment"`
}

type RankedEventV1 struct {
	Message       string   `json:"message"`
	Scope         string   `json:"scope"`
	Severity      float64  `json:"severity"`
	District      string   `json:"district_id,omitempty"`
	Agents        []string `json:"agents,omitempty"`
	Score         float64  `json:"score"`
	FocusDistance int      `json:"focus_distance"`
	InFocusRing   bool     `json:"in_focus_ring"`
}

type DistrictWeightV1 struct {
	District string  `json:"district_id"`
	Weight   float64 `json:"weight"`
	Distance int     `json:"distance"`
}

type AnalysisV1 struct {
	Tick    uint64         `json:"tick"`
	Matched []SeedMatchV1  `json:"matched"`
	Seeds   []SeedReportV1 `json:"seeds"`
	Routes  []RoutePlanV1  `json:"routes"`
}

type SeedMatchV1 struct {
	Seed     string   `json:"seed_id"`
	Title    string   `json:"title"`
	District string   `json:"district_id,omitempty"`
	Pattern  string   `json:"pattern"`
	Message  string   `json:"message"`
	Agents   []string `json:"agents,omitempty"`
}

type SeedReportV1 struct {
	Seed              string `json:"seed_id"`
	Title             string `json:"title"`
	Phase             string `json:"phase"`
	CooldownRemaining int    `json:"cooldown_remaining"`
	EnteredTick       uint64 `json:"entered_tick"`
}

type RoutePlanV1 struct {
	Origin           string   `json:"origin,omitempty"`
	Target           string   `json:"target"`
	Reachable        bool     `json:"reachable"`
	Reason           string   `json:"reason,omitempty"`
	Hops             int      `json:"hops"`
	Distance         *float64 `json:"distance"`
	FallbackDistance float64  `json:"fallback_distance,omitempty"`
	TravelTime       float64  `json:"travel_time"`
}

type FocusV1 struct {
	District string             `json:"district_id"`
	Ring     []string           `json:"ring,omitempty"`
	Weights  []DistrictWeightV1 `json:"weights,omitempty"`
}

type ProfileV1 struct {
	Size    int            `json:"size"`
	Samples []TickTimingV1 `json:"samples"`
	Next    int            `json:"next"`
	Count   int            `json:"count"`
}

type TickTimingV1 struct {
	Tick        uint64  `json:"tick"`
	Agents      float64 `json:"agents_ms"`
	Factions    float64 `json:"factions_ms"`
	Economy     float64 `json:"economy_ms"`
	Environment float64 `json:"environment_ms"`
	Focus       float64 `json:"focus_ms"`
	Director    float64 `json:"director_ms"`
	Total       float64 `json:"total_ms"`
}

// Write marshals the snapshot and lands it atomically: the bytes go to a
// temp file that is renamed over the target, so a crash mid-write never
// leaves a truncated snapshot at path.
func Write(path string, snap SnapshotV1) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Read loads and version-checks a snapshot document.
func Read(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	raw, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot %s: %w", filepath.Base(path), err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot %s: version %d: %w",
			filepath.Base(path), snap.Header.Version, ErrUnsupportedVersion)
	}
	return snap, nil
}
