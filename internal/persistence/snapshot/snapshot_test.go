package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// sampleSnapshot populates every section of the document so the round trip
// exercises optional fields, pointers and map keys, not just the header.
func sampleSnapshot() SnapshotV1 {
	dist := 2.75
	return SnapshotV1{
		Header: Header{Version: Version, CityID: "kilnport", Tick: 42, Digest: strings.Repeat("4b", 32)},
		Seed:   9001,
		City: CityV1{
			ID:   "kilnport",
			Name: "Kilnport",
			Districts: []DistrictV1{
				{
					ID: "kiln", Name: "The Kiln", Population: 1200,
					Pollution: 0.3, Unrest: 0.4, Security: 0.5,
					Adjacent: []string{"port"},
					Coord:    [3]float64{0, 0, 0}, HasCoord: true,
					Stocks: map[string]StockV1{"grain": {Current: 12, Capacity: 100}},
				},
				{
					ID: "port", Name: "Saltside Port", Population: 800,
					Security: 0.7,
					Adjacent: []string{"kiln"},
					Coord:    [3]float64{3, 0, 1}, HasCoord: true,
					Stocks: map[string]StockV1{"grain": {Current: 70, Capacity: 90}},
				},
			},
		},
		Factions: []FactionV1{{
			ID: "kiln_union", Name: "Kiln Union", Legitimacy: 0.6, HomeDistrict: "kiln",
			Resources: map[string]int{"influence": 4},
			Cooldowns: map[string]int{"LOBBY_COUNCIL": 2},
		}},
		Agents: []AgentV1{
			{ID: "a1", Name: "Pell Marrow", Archetype: "courier", District: "port", Drive: 0.8},
		},
		Environment: EnvironmentV1{Stability: 0.7, Unrest: 0.25, Pollution: 0.2},
		StorySeeds: []StorySeedV1{{
			ID: "grain_run", Title: "The Grain Run",
			Triggers:      []TriggerV1{{Contains: "shortage of grain", Scope: "economy"}},
			Stakes:        "the kiln ovens go cold",
			Resolution:    ResolutionV1{Success: "the run arrives", Failure: "the ovens die"},
			TravelHint:    "kiln",
			Followups:     []string{"ash_market"},
			CooldownTicks: 3,
		}},
		SeedStates: []SeedStateV1{
			{Seed: "grain_run", Phase: "active", EnteredTick: 40, CooldownRemaining: 1},
		},
		Market: MarketV1{
			Prices:        map[string]float64{"grain": 14.5},
			Streaks:       map[string]int{"kiln/grain": 3},
			LastShortages: []ShortageV1{{District: "kiln", Resource: "grain", Ratio: 0.12, Streak: 3}},
		},
		Director: DirectorV1{
			LastEvalTick: 42,
			History: []DirectorSnapshotV1{{
				Tick:          42,
				FocusDistrict: "kiln",
				FocusRing:     []string{"kiln", "port"},
				TopRanked: []RankedEventV1{{
					Message: "shortage of grain deepens in The Kiln", Scope: "economy",
					Severity: 0.55, District: "kiln",
					Score: 1.4, FocusDistance: 0, InFocusRing: true,
				}},
				SpatialWeights: []DistrictWeightV1{{District: "kiln", Weight: 1, Distance: 0}},
				Prices:         map[string]float64{"grain": 14.5},
				ShortageCount:  1,
				Environment:    EnvironmentV1{Stability: 0.7, Unrest: 0.25, Pollution: 0.2},
			}},
			Analysis: &AnalysisV1{
				Tick: 42,
				Matched: []SeedMatchV1{{
					Seed: "grain_run", Title: "The Grain Run", District: "kiln",
					Pattern: "shortage of grain", Message: "shortage of grain deepens in The Kiln",
				}},
				Seeds: []SeedReportV1{{
					Seed: "grain_run", Title: "The Grain Run", Phase: "active",
					CooldownRemaining: 1, EnteredTick: 40,
				}},
				Routes: []RoutePlanV1{{
					Origin: "kiln", Target: "kiln", Reachable: true,
					Hops: 0, Distance: &dist, TravelTime: 0.5,
				}},
			},
		},
		Focus: FocusV1{
			District: "kiln",
			Ring:     []string{"kiln", "port"},
			Weights:  []DistrictWeightV1{{District: "kiln", Weight: 1}},
		},
		Profile: &ProfileV1{
			Size:    2,
			Samples: []TickTimingV1{{Tick: 41, Total: 0.8}, {Tick: 42, Total: 0.9}},
			Next:    0,
			Count:   2,
		},
		Meta: map[string]string{"content.digest": strings.Repeat("9c", 32)},
	}
}

func TestWriteRead_RoundTripsDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "kilnport", "snap_000042.json")
	want := sampleSnapshot()
	if err := Write(path, want); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("document changed across write/read:\n got %+v\nwant %+v", got, want)
	}
}

func TestWrite_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	first := sampleSnapshot()
	if err := Write(path, first); err != nil {
		t.Fatalf("write first: %v", err)
	}
	second := sampleSnapshot()
	second.Header.Tick = 43
	if err := Write(path, second); err != nil {
		t.Fatalf("write second: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if got.Header.Tick != 43 {
		t.Fatalf("read tick %d after overwrite, want 43", got.Header.Tick)
	}
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.json"))
	if !os.IsNotExist(err) {
		t.Fatalf("want a not-exist error, got %v", err)
	}
}

func TestRead_RejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"header": nope`), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	_, err := Read(path)
	if err == nil || !strings.Contains(err.Error(), "decode snapshot") {
		t.Fatalf("want decode error, got %v", err)
	}
}

func TestRead_RejectsUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.json")
	snap := sampleSnapshot()
	snap.Header.Version = Version + 1
	if err := Write(path, snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if _, err := Read(path); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("want ErrUnsupportedVersion, got %v", err)
	}
}
