package world

import (
	"reflect"
	"testing"
)

func TestWorld_NeighborsFollowAuthoredOrder(t *testing.T) {
	w := testWorld(t)
	if got := w.Neighbors("harbor"); !reflect.DeepEqual(got, []string{"market", "mills"}) {
		t.Fatalf("harbor neighbors: %v", got)
	}
	if got := w.Neighbors("outlook"); len(got) != 0 {
		t.Fatalf("outlook neighbors: %v", got)
	}
	if got := w.Neighbors("atlantis"); got != nil {
		t.Fatalf("unknown district neighbors: %v", got)
	}
}

func TestWorld_NeighborsDropUnresolvableIDs(t *testing.T) {
	w := testWorld(t)
	w.District("harbor").Adjacent = append(w.District("harbor").Adjacent, "sunken_ward")
	w.Reindex()
	for _, id := range w.Neighbors("harbor") {
		if id == "sunken_ward" {
			t.Fatalf("unresolvable adjacency survived: %v", w.Neighbors("harbor"))
		}
	}
}

func TestWorld_ResourceNamesSortedUnion(t *testing.T) {
	w := testWorld(t)
	want := []string{"fuel", "grain"}
	if got := w.ResourceNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("resource names: got %v want %v", got, want)
	}
}

func TestWorld_ReindexCreatesSeedStates(t *testing.T) {
	w := testWorld(t)
	for id := range w.Seeds {
		st, ok := w.SeedStates[id]
		if !ok || st == nil {
			t.Fatalf("seed %s has no lifecycle state", id)
		}
		if st.Phase != SeedDormant {
			t.Fatalf("seed %s starts in %v, want dormant", id, st.Phase)
		}
	}
}

func TestWorld_HopDistances(t *testing.T) {
	w := testWorld(t)
	dist := w.hopDistances("harbor", -1)
	want := map[string]int{"harbor": 0, "market": 1, "mills": 1, "terraces": 2}
	if !reflect.DeepEqual(dist, want) {
		t.Fatalf("hop distances: got %v want %v", dist, want)
	}

	capped := w.hopDistances("harbor", 1)
	if _, ok := capped["terraces"]; ok {
		t.Fatalf("depth limit ignored: %v", capped)
	}
	if len(w.hopDistances("atlantis", -1)) != 0 {
		t.Fatalf("unknown origin should reach nothing")
	}
}

func TestSeedPhase_TextRoundTrip(t *testing.T) {
	for _, phase := range []SeedPhase{SeedDormant, SeedPrimed, SeedActive, SeedArchived} {
		raw, err := phase.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", phase, err)
		}
		var back SeedPhase
		if err := back.UnmarshalText(raw); err != nil {
			t.Fatalf("unmarshal %q: %v", raw, err)
		}
		if back != phase {
			t.Fatalf("round trip: got %v want %v", back, phase)
		}
	}
	var p SeedPhase
	if err := p.UnmarshalText([]byte("smoldering")); err == nil {
		t.Fatalf("unknown phase accepted")
	}
}
