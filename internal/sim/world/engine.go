package world

import (
	"fmt"
	"math/rand"
	"time"

	"cityloom.ai/internal/sim/tuning"
)

// Engine owns a World and the single RNG stream that drives it. Every system
// draws from that one stream, so a seed plus a tick count fully determines
// the run. The engine is not safe for concurrent use.
type Engine struct {
	w   *World
	cfg *tuning.Tuning
	rng *rand.Rand

	agents      AgentSystem
	factions    FactionSystem
	economy     EconomySystem
	environment EnvironmentSystem
	focus       FocusBudget
	bridge      DirectorBridge
	director    NarrativeDirector
}

// NewEngine takes ownership of w. The RNG stream starts from w.Seed; a
// profile window is attached when the world does not already carry one of
// the configured size (a restored snapshot keeps its samples).
func NewEngine(w *World, cfg *tuning.Tuning) *Engine {
	w.Reindex()
	if w.Profile == nil || w.Profile.Size != cfg.Engine.ProfileWindow {
		w.Profile = NewProfileWindow(cfg.Engine.ProfileWindow)
	}
	return &Engine{
		w:           w,
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(w.Seed)),
		agents:      NewAgentSystem(cfg.Agents),
		factions:    NewFactionSystem(cfg.Factions),
		economy:     NewEconomySystem(cfg.Economy),
		environment: NewEnvironmentSystem(cfg.Environment),
		focus:       NewFocusBudget(cfg.Focus, cfg.Director.RankedLimit),
		bridge:      NewDirectorBridge(cfg.Director),
		director:    NewNarrativeDirector(cfg.Director),
	}
}

// World returns the live state. Callers must not mutate it while the engine
// is in use; reports are the mutation-safe view.
func (e *Engine) World() *World { return e.w }

// AdvanceTicks runs count full pipeline passes and returns one report per
// tick. A non-nil seed replaces the RNG stream before the first pass; the
// world's creation seed is untouched. Arguments are validated before any
// state mutation, so a rejected call leaves the world exactly as it was.
func (e *Engine) AdvanceTicks(count int, seed *int64) ([]TickReport, error) {
	if count < 1 {
		return nil, fmt.Errorf("advance %d ticks: %w", count, ErrTickCount)
	}
	if limit := e.cfg.Engine.MaxTicksPerCall; count > limit {
		return nil, fmt.Errorf("advance %d ticks, per-call limit %d: %w", count, limit, ErrTickLimit)
	}
	if seed != nil {
		e.rng = rand.New(rand.NewSource(*seed))
	}
	reports := make([]TickReport, 0, count)
	for i := 0; i < count; i++ {
		reports = append(reports, e.step())
	}
	return reports, nil
}

func (e *Engine) step() TickReport {
	w := e.w
	w.Tick++
	tickStart := time.Now()

	start := time.Now()
	intents := e.agents.Tick(w, e.rng)
	agentsMS := sinceMS(start)

	start = time.Now()
	actions := e.factions.Tick(w, e.rng)
	factionsMS := sinceMS(start)

	start = time.Now()
	econ := e.economy.Tick(w, e.rng)
	economyMS := sinceMS(start)

	start = time.Now()
	impact := e.environment.Tick(w, e.rng, econ, actions)
	environmentMS := sinceMS(start)

	events := make([]Event, 0, len(intents)+len(econ.Shortages)+len(impact.Events))
	events = append(events, w.intentEvents(intents)...)
	events = append(events, w.economyEvents(econ)...)
	events = append(events, impact.Events...)

	start = time.Now()
	focusRes := e.focus.Allocate(w, events)
	focusMS := sinceMS(start)

	start = time.Now()
	snap := e.bridge.Record(w, w.Tick, focusRes)
	analysis, directorEvents := e.director.Evaluate(w, &snap)
	directorMS := sinceMS(start)

	totalMS := sinceMS(tickStart)
	w.Profile.Observe(TickTiming{
		Tick:        w.Tick,
		Agents:      agentsMS,
		Factions:    factionsMS,
		Economy:     economyMS,
		Environment: environmentMS,
		Focus:       focusMS,
		Director:    directorMS,
		Total:       totalMS,
	})

	return TickReport{
		Tick:           w.Tick,
		Environment:    w.Env,
		Districts:      snapshotDistricts(w),
		AgentActions:   intents,
		FactionActions: actions,
		Economy:        econ,
		Impact:         impact,
		Timings: map[string]float64{
			"agents_ms":      agentsMS,
			"factions_ms":    factionsMS,
			"economy_ms":     economyMS,
			"environment_ms": environmentMS,
			"focus_ms":       focusMS,
			"director_ms":    directorMS,
			"total_ms":       totalMS,
		},
		FocusBudget:      focusRes,
		EventArchive:     cloneRankedEvents(focusRes.Archive),
		DirectorSnapshot: snap,
		DirectorAnalysis: cloneDirectorAnalysis(analysis),
		DirectorEvents:   cloneDirectorEvents(directorEvents),
		Profiling:        w.Profile.Summary(e.cfg.Engine.AnomalyFactor),
		StateDigest:      w.StateDigest(),
	}
}

func sinceMS(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
