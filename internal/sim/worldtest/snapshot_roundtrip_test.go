package worldtest

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"cityloom.ai/internal/persistence/snapshot"
	world "cityloom.ai/internal/sim/world"
)

// A snapshot written to disk and restored must reproduce the captured state
// digest exactly, and re-exporting the restored world must yield the same
// document byte for byte.
func TestSnapshot_RoundTripRestoresDigest(t *testing.T) {
	h := NewHarness(t, 99)
	h.Advance(6)
	w := h.Eng.World()

	snap := w.ExportSnapshot()
	if snap.Header.Tick != 6 {
		t.Fatalf("captured tick %d, want 6", snap.Header.Tick)
	}
	if snap.Header.Digest != w.StateDigest() {
		t.Fatalf("captured digest %s does not match live digest %s", snap.Header.Digest, w.StateDigest())
	}

	path := filepath.Join(t.TempDir(), "snaps", "tick_000006.json")
	if err := snapshot.Write(path, snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	loaded, err := snapshot.Read(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	restored, err := world.FromSnapshot(loaded)
	if err != nil {
		t.Fatalf("restore snapshot: %v", err)
	}
	if got := restored.StateDigest(); got != snap.Header.Digest {
		t.Fatalf("restored digest %s, captured %s", got, snap.Header.Digest)
	}
	if restored.Tick != 6 {
		t.Fatalf("restored tick %d, want 6", restored.Tick)
	}
	if !reflect.DeepEqual(restored.ExportSnapshot(), snap) {
		t.Fatalf("re-exported snapshot differs from the captured document")
	}
}

// Restoring a snapshot and reseeding both runs with the same stream must make
// the restored engine walk in lockstep with the original.
func TestSnapshot_RestoredRunContinuesIdentically(t *testing.T) {
	h := NewHarness(t, 4242)
	h.Advance(5)

	snap := h.Eng.World().ExportSnapshot()
	restored, err := world.FromSnapshot(snap)
	if err != nil {
		t.Fatalf("restore snapshot: %v", err)
	}
	resumed := world.NewEngine(restored, h.Cfg)

	reseedA := int64(777)
	wantReps, err := h.Eng.AdvanceTicks(10, &reseedA)
	if err != nil {
		t.Fatalf("advance original: %v", err)
	}
	reseedB := int64(777)
	gotReps, err := resumed.AdvanceTicks(10, &reseedB)
	if err != nil {
		t.Fatalf("advance restored: %v", err)
	}

	for i := range wantReps {
		if wantReps[i].StateDigest != gotReps[i].StateDigest {
			t.Fatalf("tick %d: restored digest %s, original %s",
				wantReps[i].Tick, gotReps[i].StateDigest, wantReps[i].StateDigest)
		}
	}
	last := len(wantReps) - 1
	if !reflect.DeepEqual(wantReps[last].Economy.Prices, gotReps[last].Economy.Prices) {
		t.Fatalf("final prices diverged: original %v, restored %v",
			wantReps[last].Economy.Prices, gotReps[last].Economy.Prices)
	}
	if wantReps[last].DirectorSnapshot.Focus.District != gotReps[last].DirectorSnapshot.Focus.District {
		t.Fatalf("final focus diverged: original %s, restored %s",
			wantReps[last].DirectorSnapshot.Focus.District, gotReps[last].DirectorSnapshot.Focus.District)
	}
}

func TestSnapshot_RestoreRejectsBadDocuments(t *testing.T) {
	h := NewHarness(t, 7)
	h.Advance(3)

	t.Run("unknown seed phase", func(t *testing.T) {
		snap := h.Eng.World().ExportSnapshot()
		snap.SeedStates[0].Phase = "molten"
		if _, err := world.FromSnapshot(snap); err == nil || !strings.Contains(err.Error(), "unknown seed phase") {
			t.Fatalf("want phase parse error, got %v", err)
		}
	})

	t.Run("unknown action kind", func(t *testing.T) {
		snap := h.Eng.World().ExportSnapshot()
		snap.Factions[0].Cooldowns = map[string]int{"BRIBE_HARBORMASTER": 2}
		if _, err := world.FromSnapshot(snap); err == nil || !strings.Contains(err.Error(), "unknown action kind") {
			t.Fatalf("want action kind parse error, got %v", err)
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		snap := h.Eng.World().ExportSnapshot()
		snap.Header.Version = 99
		if _, err := world.FromSnapshot(snap); !errors.Is(err, snapshot.ErrUnsupportedVersion) {
			t.Fatalf("want ErrUnsupportedVersion, got %v", err)
		}
	})
}
