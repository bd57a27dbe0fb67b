package world

import (
	"fmt"
	"sort"

	"cityloom.ai/internal/persistence/snapshot"
)

// ExportSnapshot captures the full world into the versioned snapshot
// document. Everything is copied; advancing the engine afterwards cannot
// reach into a snapshot already taken. Collections with map backing are
// exported in sorted key order so equal worlds export equal documents.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			CityID:  w.City.ID,
			Tick:    w.Tick,
			Digest:  w.StateDigest(),
		},
		Seed: w.Seed,
		City: snapshot.CityV1{
			ID:        w.City.ID,
			Name:      w.City.Name,
			Districts: make([]snapshot.DistrictV1, 0, len(w.City.Districts)),
		},
		Environment: snapshot.EnvironmentV1{
			Stability: w.Env.Stability,
			Unrest:    w.Env.Unrest,
			Pollution: w.Env.Pollution,
		},
		Market: snapshot.MarketV1{
			Prices:        cloneFloatMap(w.Market.Prices),
			Streaks:       cloneIntMap(w.Market.Streaks),
			LastShortages: exportShortages(w.Market.LastShortages),
		},
		Director: snapshot.DirectorV1{
			LastEvalTick: w.Director.LastEvalTick,
			History:      make([]snapshot.DirectorSnapshotV1, 0, len(w.Director.History)),
			Analysis:     exportAnalysis(w.Director.Analysis),
		},
		Focus: snapshot.FocusV1{
			District: w.Focus.District,
			Ring:     cloneStrings(w.Focus.Ring),
			Weights:  exportWeights(w.Focus.Weights),
		},
		Profile: exportProfile(w.Profile),
		Meta:    cloneStringMap(w.Meta),
	}

	for _, d := range w.City.Districts {
		dv := snapshot.DistrictV1{
			ID:         d.ID,
			Name:       d.Name,
			Population: d.Population,
			Pollution:  d.Pollution,
			Unrest:     d.Unrest,
			Security:   d.Security,
			Adjacent:   cloneStrings(d.Adjacent),
			Coord:      [3]float64{d.Coord.X, d.Coord.Y, d.Coord.Z},
			HasCoord:   d.HasCoord,
			Stocks:     make(map[string]snapshot.StockV1, len(d.Stocks)),
		}
		for name, st := range d.Stocks {
			dv.Stocks[name] = snapshot.StockV1{Current: st.Current, Capacity: st.Capacity}
		}
		snap.City.Districts = append(snap.City.Districts, dv)
	}

	for _, id := range sortedFactionIDs(w.Factions) {
		f := w.Factions[id]
		fv := snapshot.FactionV1{
			ID:           f.ID,
			Name:         f.Name,
			Legitimacy:   f.Legitimacy,
			HomeDistrict: f.HomeDistrict,
			Resources:    cloneIntMap(f.Resources),
			Cooldowns:    make(map[string]int, len(f.Cooldowns)),
		}
		for kind, left := range f.Cooldowns {
			fv.Cooldowns[kind.String()] = left
		}
		snap.Factions = append(snap.Factions, fv)
	}

	for _, a := range w.Agents {
		snap.Agents = append(snap.Agents, snapshot.AgentV1{
			ID: a.ID, Name: a.Name, Archetype: a.Archetype,
			District: a.District, Drive: a.Drive,
		})
	}

	for _, id := range sortedSeedIDs(w.Seeds) {
		s := w.Seeds[id]
		sv := snapshot.StorySeedV1{
			ID:            s.ID,
			Title:         s.Title,
			Stakes:        s.Stakes,
			Resolution:    snapshot.ResolutionV1{Success: s.Resolution.Success, Failure: s.Resolution.Failure},
			TravelHint:    s.TravelHint,
			Followups:     cloneStrings(s.Followups),
			CooldownTicks: s.CooldownTicks,
		}
		for _, tr := range s.Triggers {
			sv.Triggers = append(sv.Triggers, snapshot.TriggerV1{Contains: tr.Contains, Scope: tr.Scope})
		}
		snap.StorySeeds = append(snap.StorySeeds, sv)
	}

	stateIDs := make([]string, 0, len(w.SeedStates))
	for id := range w.SeedStates {
		stateIDs = append(stateIDs, id)
	}
	sort.Strings(stateIDs)
	for _, id := range stateIDs {
		st := w.SeedStates[id]
		snap.SeedStates = append(snap.SeedStates, snapshot.SeedStateV1{
			Seed:              id,
			Phase:             st.Phase.String(),
			EnteredTick:       st.EnteredTick,
			CooldownRemaining: st.CooldownRemaining,
		})
	}

	for i := range w.Director.History {
		snap.Director.History = append(snap.Director.History, exportDirectorSnapshot(&w.Director.History[i]))
	}
	return snap
}

// FromSnapshot rebuilds a live world from a snapshot document. The returned
// world reproduces the captured state digest; callers that care should
// compare StateDigest against the header.
func FromSnapshot(s snapshot.SnapshotV1) (*World, error) {
	if s.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("restore snapshot: version %d: %w", s.Header.Version, snapshot.ErrUnsupportedVersion)
	}

	city := &City{
		ID:        s.City.ID,
		Name:      s.City.Name,
		Districts: make([]*District, 0, len(s.City.Districts)),
	}
	for _, dv := range s.City.Districts {
		d := &District{
			ID:         dv.ID,
			Name:       dv.Name,
			Population: dv.Population,
			Pollution:  dv.Pollution,
			Unrest:     dv.Unrest,
			Security:   dv.Security,
			Adjacent:   cloneStrings(dv.Adjacent),
			Coord:      Vec3{X: dv.Coord[0], Y: dv.Coord[1], Z: dv.Coord[2]},
			HasCoord:   dv.HasCoord,
			Stocks:     make(map[string]*Stock, len(dv.Stocks)),
		}
		for name, st := range dv.Stocks {
			d.Stocks[name] = &Stock{Current: st.Current, Capacity: st.Capacity}
		}
		city.Districts = append(city.Districts, d)
	}

	w := New(s.Seed, city)
	w.Tick = s.Header.Tick

	for _, fv := range s.Factions {
		f := &Faction{
			ID:           fv.ID,
			Name:         fv.Name,
			Legitimacy:   fv.Legitimacy,
			HomeDistrict: fv.HomeDistrict,
			Resources:    cloneIntMap(fv.Resources),
			Cooldowns:    make(map[ActionKind]int, len(fv.Cooldowns)),
		}
		for name, left := range fv.Cooldowns {
			var kind ActionKind
			if err := kind.UnmarshalText([]byte(name)); err != nil {
				return nil, fmt.Errorf("restore faction %s: %w", fv.ID, err)
			}
			f.Cooldowns[kind] = left
		}
		w.Factions[fv.ID] = f
	}

	for _, av := range s.Agents {
		w.Agents = append(w.Agents, &Agent{
			ID: av.ID, Name: av.Name, Archetype: av.Archetype,
			District: av.District, Drive: av.Drive,
		})
	}

	for _, sv := range s.StorySeeds {
		seed := &StorySeed{
			ID:            sv.ID,
			Title:         sv.Title,
			Stakes:        sv.Stakes,
			Resolution:    Resolution{Success: sv.Resolution.Success, Failure: sv.Resolution.Failure},
			TravelHint:    sv.TravelHint,
			Followups:     cloneStrings(sv.Followups),
			CooldownTicks: sv.CooldownTicks,
		}
		for _, tr := range sv.Triggers {
			seed.Triggers = append(seed.Triggers, TriggerPattern{Contains: tr.Contains, Scope: tr.Scope})
		}
		w.Seeds[sv.ID] = seed
	}

	for _, st := range s.SeedStates {
		var phase SeedPhase
		if err := phase.UnmarshalText([]byte(st.Phase)); err != nil {
			return nil, fmt.Errorf("restore seed %s: %w", st.Seed, err)
		}
		w.SeedStates[st.Seed] = &SeedState{
			Phase:             phase,
			EnteredTick:       st.EnteredTick,
			CooldownRemaining: st.CooldownRemaining,
		}
	}

	w.Env = Environment{
		Stability: s.Environment.Stability,
		Unrest:    s.Environment.Unrest,
		Pollution: s.Environment.Pollution,
	}
	w.Market = &MarketState{
		Prices:        cloneFloatMap(s.Market.Prices),
		Streaks:       cloneIntMap(s.Market.Streaks),
		LastShortages: importShortages(s.Market.LastShortages),
	}
	w.Director = &DirectorState{
		LastEvalTick: s.Director.LastEvalTick,
		Analysis:     importAnalysis(s.Director.Analysis),
	}
	for i := range s.Director.History {
		w.Director.History = append(w.Director.History, importDirectorSnapshot(&s.Director.History[i]))
	}
	w.Focus = &FocusDigest{
		District: s.Focus.District,
		Ring:     cloneStrings(s.Focus.Ring),
		Weights:  importWeights(s.Focus.Weights),
	}
	w.Profile = importProfile(s.Profile)
	for k, v := range s.Meta {
		w.Meta[k] = v
	}
	w.Reindex()
	return w, nil
}

func cloneIntMap(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func exportShortages(in []Shortage) []snapshot.ShortageV1 {
	out := make([]snapshot.ShortageV1, 0, len(in))
	for _, sh := range in {
		out = append(out, snapshot.ShortageV1{
			District: sh.District, Resource: sh.Resource, Ratio: sh.Ratio, Streak: sh.Streak,
		})
	}
	return out
}

func importShortages(in []snapshot.ShortageV1) []Shortage {
	if len(in) == 0 {
		return nil
	}
	out := make([]Shortage, 0, len(in))
	for _, sh := range in {
		out = append(out, Shortage{
			District: sh.District, Resource: sh.Resource, Ratio: sh.Ratio, Streak: sh.Streak,
		})
	}
	return out
}

func exportWeights(in []DistrictWeight) []snapshot.DistrictWeightV1 {
	out := make([]snapshot.DistrictWeightV1, 0, len(in))
	for _, wgt := range in {
		out = append(out, snapshot.DistrictWeightV1{
			District: wgt.District, Weight: wgt.Weight, Distance: wgt.Distance,
		})
	}
	return out
}

func importWeights(in []snapshot.DistrictWeightV1) []DistrictWeight {
	out := make([]DistrictWeight, 0, len(in))
	for _, wgt := range in {
		out = append(out, DistrictWeight{
			District: wgt.District, Weight: wgt.Weight, Distance: wgt.Distance,
		})
	}
	return out
}

func exportRanked(in []RankedEvent) []snapshot.RankedEventV1 {
	out := make([]snapshot.RankedEventV1, 0, len(in))
	for _, ev := range in {
		out = append(out, snapshot.RankedEventV1{
			Message:       ev.Message,
			Scope:         ev.Scope,
			Severity:      ev.Severity,
			District:      ev.District,
			Agents:        cloneStrings(ev.Agents),
			Score:         ev.Score,
			FocusDistance: ev.FocusDistance,
			InFocusRing:   ev.InFocusRing,
		})
	}
	return out
}

func importRanked(in []snapshot.RankedEventV1) []RankedEvent {
	out := make([]RankedEvent, 0, len(in))
	for _, ev := range in {
		out = append(out, RankedEvent{
			Event: Event{
				Message:  ev.Message,
				Scope:    ev.Scope,
				Severity: ev.Severity,
				District: ev.District,
				Agents:   cloneStrings(ev.Agents),
			},
			Score:         ev.Score,
			FocusDistance: ev.FocusDistance,
			InFocusRing:   ev.InFocusRing,
		})
	}
	return out
}

func exportDirectorSnapshot(in *DirectorSnapshot) snapshot.DirectorSnapshotV1 {
	return snapshot.DirectorSnapshotV1{
		Tick:           in.Tick,
		FocusDistrict:  in.Focus.District,
		FocusRing:      cloneStrings(in.Focus.Ring),
		TopRanked:      exportRanked(in.TopRanked),
		SpatialWeights: exportWeights(in.SpatialWeights),
		Prices:         cloneFloatMap(in.Prices),
		ShortageCount:  in.ShortageCount,
		Environment: snapshot.EnvironmentV1{
			Stability: in.Environment.Stability,
			Unrest:    in.Environment.Unrest,
			Pollution: in.Environment.Pollution,
		},
	}
}

func importDirectorSnapshot(in *snapshot.DirectorSnapshotV1) DirectorSnapshot {
	return DirectorSnapshot{
		Tick:           in.Tick,
		Focus:          FocusRef{District: in.FocusDistrict, Ring: cloneStrings(in.FocusRing)},
		TopRanked:      importRanked(in.TopRanked),
		SpatialWeights: importWeights(in.SpatialWeights),
		Prices:         cloneFloatMap(in.Prices),
		ShortageCount:  in.ShortageCount,
		Environment: EnvReading{
			Stability: in.Environment.Stability,
			Unrest:    in.Environment.Unrest,
			Pollution: in.Environment.Pollution,
		},
	}
}

func exportAnalysis(in *DirectorAnalysis) *snapshot.AnalysisV1 {
	if in == nil {
		return nil
	}
	out := &snapshot.AnalysisV1{Tick: in.Tick}
	for _, m := range in.Matched {
		out.Matched = append(out.Matched, snapshot.SeedMatchV1{
			Seed: m.Seed, Title: m.Title, District: m.District,
			Pattern: m.Pattern, Message: m.Message, Agents: cloneStrings(m.Agents),
		})
	}
	for _, s := range in.Seeds {
		out.Seeds = append(out.Seeds, snapshot.SeedReportV1{
			Seed: s.Seed, Title: s.Title, Phase: s.Phase,
			CooldownRemaining: s.CooldownRemaining, EnteredTick: s.EnteredTick,
		})
	}
	for _, r := range in.Routes {
		rv := snapshot.RoutePlanV1{
			Origin: r.Origin, Target: r.Target, Reachable: r.Reachable,
			Reason: r.Reason, Hops: r.Hops,
			FallbackDistance: r.FallbackDistance, TravelTime: r.TravelTime,
		}
		if r.Distance != nil {
			d := *r.Distance
			rv.Distance = &d
		}
		out.Routes = append(out.Routes, rv)
	}
	return out
}

func importAnalysis(in *snapshot.AnalysisV1) *DirectorAnalysis {
	if in == nil {
		return nil
	}
	out := &DirectorAnalysis{
		Tick:    in.Tick,
		Matched: []SeedMatch{},
		Seeds:   []SeedReport{},
		Routes:  []RoutePlan{},
	}
	for _, m := range in.Matched {
		out.Matched = append(out.Matched, SeedMatch{
			Seed: m.Seed, Title: m.Title, District: m.District,
			Pattern: m.Pattern, Message: m.Message, Agents: cloneStrings(m.Agents),
		})
	}
	for _, s := range in.Seeds {
		out.Seeds = append(out.Seeds, SeedReport{
			Seed: s.Seed, Title: s.Title, Phase: s.Phase,
			CooldownRemaining: s.CooldownRemaining, EnteredTick: s.EnteredTick,
		})
	}
	for _, r := range in.Routes {
		plan := RoutePlan{
			Origin: r.Origin, Target: r.Target, Reachable: r.Reachable,
			Reason: r.Reason, Hops: r.Hops,
			FallbackDistance: r.FallbackDistance, TravelTime: r.TravelTime,
		}
		if r.Distance != nil {
			d := *r.Distance
			plan.Distance = &d
		}
		out.Routes = append(out.Routes, plan)
	}
	return out
}

func exportProfile(in *ProfileWindow) *snapshot.ProfileV1 {
	if in == nil {
		return nil
	}
	out := &snapshot.ProfileV1{
		Size:    in.Size,
		Samples: make([]snapshot.TickTimingV1, len(in.Samples)),
		Next:    in.Next,
		Count:   in.Count,
	}
	for i, s := range in.Samples {
		out.Samples[i] = snapshot.TickTimingV1(s)
	}
	return out
}

func importProfile(in *snapshot.ProfileV1) *ProfileWindow {
	if in == nil {
		return nil
	}
	out := &ProfileWindow{
		Size:    in.Size,
		Samples: make([]TickTiming, len(in.Samples)),
		Next:    in.Next,
		Count:   in.Count,
	}
	for i, s := range in.Samples {
		out.Samples[i] = TickTiming(s)
	}
	return out
}
