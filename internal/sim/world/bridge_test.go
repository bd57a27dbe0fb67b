package world

import (
	"testing"

	"cityloom.ai/internal/sim/tuning"
)

func bridgeFixture(t *testing.T) (*World, FocusBudget, DirectorBridge, tuning.Director) {
	t.Helper()
	cfg := testTuning()
	cfg.Director.HistoryLimit = 5
	cfg.Director.RankedLimit = 3
	cfg.Director.SpatialPreview = 2
	w := testWorld(t)
	w.Focus.District = "harbor"
	fb := NewFocusBudget(cfg.Focus, cfg.Director.RankedLimit)
	br := NewDirectorBridge(cfg.Director)
	return w, fb, br, cfg.Director
}

func TestDirectorBridge_HistoryRingBound(t *testing.T) {
	w, fb, br, cfg := bridgeFixture(t)

	for tick := uint64(1); tick <= 50; tick++ {
		res := fb.Allocate(w, eventBatch(4, 0.5))
		br.Record(w, tick, res)
		if got := len(w.Director.History); got > cfg.HistoryLimit {
			t.Fatalf("tick %d: history grew to %d, limit %d", tick, got, cfg.HistoryLimit)
		}
	}
	if got := len(w.Director.History); got != cfg.HistoryLimit {
		t.Fatalf("history length: got %d want %d", got, cfg.HistoryLimit)
	}
	// FIFO: the oldest surviving snapshot is tick 46.
	if got := w.Director.History[0].Tick; got != 46 {
		t.Fatalf("oldest snapshot tick: got %d want 46", got)
	}
	if got := w.Director.History[cfg.HistoryLimit-1].Tick; got != 50 {
		t.Fatalf("newest snapshot tick: got %d want 50", got)
	}
}

func TestDirectorBridge_ClipsRankedAndWeights(t *testing.T) {
	w, fb, br, cfg := bridgeFixture(t)

	res := fb.Allocate(w, eventBatch(10, 0.5))
	snap := br.Record(w, 1, res)
	if got := len(snap.TopRanked); got != cfg.RankedLimit {
		t.Fatalf("top ranked: got %d want %d", got, cfg.RankedLimit)
	}
	// harbor's ring has 3 districts and the preview allows 2.
	if got := len(snap.SpatialWeights); got != cfg.SpatialPreview {
		t.Fatalf("spatial weights: got %d want %d", got, cfg.SpatialPreview)
	}
}

func TestDirectorBridge_SnapshotIsolation(t *testing.T) {
	w, fb, br, _ := bridgeFixture(t)

	res := fb.Allocate(w, eventBatch(4, 0.5))
	snap := br.Record(w, 1, res)

	res.RankedArchive[0].Message = "tampered"
	res.FocusState.Ring[0] = "tampered"
	snap.TopRanked[0].Message = "tampered too"
	snap.Prices["grain"] = -1

	stored := w.Director.History[0]
	if stored.TopRanked[0].Message == "tampered" || stored.TopRanked[0].Message == "tampered too" {
		t.Fatalf("stored snapshot aliases caller-held data: %q", stored.TopRanked[0].Message)
	}
	if stored.Focus.Ring[0] == "tampered" {
		t.Fatalf("stored ring aliases the focus result")
	}
	if v, ok := stored.Prices["grain"]; ok && v == -1 {
		t.Fatalf("stored prices alias the returned snapshot")
	}
}

func TestDirectorBridge_RoundsRecordedNumbers(t *testing.T) {
	w, fb, br, _ := bridgeFixture(t)
	w.Market.Prices["grain"] = 10.123456
	w.Env.Pollution = 0.333333333

	res := fb.Allocate(w, eventBatch(2, 0.123456))
	snap := br.Record(w, 1, res)
	if got := snap.Prices["grain"]; got != 10.123 {
		t.Fatalf("price rounding: got %v want 10.123", got)
	}
	if got := snap.Environment.Pollution; got != 0.333 {
		t.Fatalf("environment rounding: got %v want 0.333", got)
	}
	for _, ev := range snap.TopRanked {
		if ev.Severity != 0.123 {
			t.Fatalf("severity rounding: got %v want 0.123", ev.Severity)
		}
	}
}

func TestDirectorBridge_TieBreakPrefersCloserEvent(t *testing.T) {
	cfg := testTuning()
	cfg.Focus.DistancePenalty = 0 // keep scores identical across distances
	cfg.Focus.RingBonus = 0
	w := testWorld(t)
	w.Focus.District = "harbor"
	fb := NewFocusBudget(cfg.Focus, cfg.Director.RankedLimit)
	br := NewDirectorBridge(cfg.Director)

	events := []Event{
		{Message: "two hops out", Scope: ScopeDistrict, Severity: 0.5, District: "terraces"},
		{Message: "at the focus", Scope: ScopeDistrict, Severity: 0.5, District: "harbor"},
	}
	res := fb.Allocate(w, events)
	snap := br.Record(w, 1, res)
	if snap.TopRanked[0].Message != "at the focus" {
		t.Fatalf("tie not broken by focus distance: %+v", snap.TopRanked)
	}
}

func TestDirectorBridge_ShortageCountAndEnvCopied(t *testing.T) {
	w, fb, br, _ := bridgeFixture(t)
	w.Market.LastShortages = []Shortage{
		{District: "mills", Resource: "grain", Ratio: 0.1, Streak: 3},
		{District: "harbor", Resource: "fuel", Ratio: 0.2, Streak: 2},
	}
	w.Env = Environment{Stability: 0.75, Unrest: 0.25, Pollution: 0.5}

	res := fb.Allocate(w, nil)
	snap := br.Record(w, 9, res)
	if snap.ShortageCount != 2 {
		t.Fatalf("shortage count: got %d want 2", snap.ShortageCount)
	}
	if snap.Environment != (EnvReading{Stability: 0.75, Unrest: 0.25, Pollution: 0.5}) {
		t.Fatalf("environment reading: %+v", snap.Environment)
	}
	if snap.Tick != 9 {
		t.Fatalf("snapshot tick: got %d want 9", snap.Tick)
	}
}
