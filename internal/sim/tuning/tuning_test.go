package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	doc := `
engine:
  max_ticks_per_call: 120
  profile_window: 16
  anomaly_factor: 3.0
agents:
  action_limit: 4
economy:
  shortage_threshold: 0.3
  shortage_warning_ticks: 3
  base_price: 12
  price_increase_step: 0.4
  price_max_boost: 6
  price_decay: 0.2
  price_floor: 5
  rebalance_step: 0.1
  production_rate: 0.01
environment:
  scarcity_threshold: 6
director:
  history_limit: 10
  ranked_limit: 5
  spatial_preview: 3
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.MaxTicksPerCall != 120 {
		t.Fatalf("max_ticks_per_call: got %d want 120", cfg.Engine.MaxTicksPerCall)
	}
	if cfg.Economy.PriceFloor != 5 {
		t.Fatalf("price_floor: got %f want 5", cfg.Economy.PriceFloor)
	}
	if cfg.Director.HistoryLimit != 10 {
		t.Fatalf("history_limit: got %d want 10", cfg.Director.HistoryLimit)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing file did not error")
	}
}

func TestLoadRejectsMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("- just\n- a\n- list\n"), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("non-mapping document accepted")
	}
}

func TestValidateOrderingConstraints(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Tuning)
		wantSub string
	}{
		{"tick ceiling", func(c *Tuning) { c.Engine.MaxTicksPerCall = 0 }, "max_ticks_per_call"},
		{"profile window", func(c *Tuning) { c.Engine.ProfileWindow = 0 }, "profile_window"},
		{"floor above base", func(c *Tuning) { c.Economy.PriceFloor = 99 }, "price_floor"},
		{"warning ticks", func(c *Tuning) { c.Economy.ShortageWarningTicks = 0 }, "shortage_warning_ticks"},
		{"scarcity threshold", func(c *Tuning) { c.Environment.ScarcityThreshold = 0 }, "scarcity_threshold"},
		{"diffusion bounds", func(c *Tuning) { c.Environment.DiffusionMinDelta = 1 }, "diffusion_min_delta"},
		{"history limit", func(c *Tuning) { c.Director.HistoryLimit = 0 }, "history_limit"},
		{"ranked limit", func(c *Tuning) { c.Director.RankedLimit = 0 }, "ranked_limit"},
	}
	for _, tc := range cases {
		cfg := Defaults()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: invalid settings accepted", tc.name)
		}
		if !strings.Contains(err.Error(), tc.wantSub) {
			t.Fatalf("%s: error %q does not name %q", tc.name, err, tc.wantSub)
		}
	}
}
