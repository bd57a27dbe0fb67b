package world

// Explicit typed copies. Everything that crosses the engine boundary (reports,
// recorded snapshots) goes through these so later mutation of live state can
// never reach a previously returned value, and vice versa.

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneEvent(in Event) Event {
	out := in
	out.Agents = cloneStrings(in.Agents)
	if in.Agents == nil {
		out.Agents = nil
	}
	return out
}

func cloneRankedEvent(in RankedEvent) RankedEvent {
	out := in
	out.Event = cloneEvent(in.Event)
	return out
}

func cloneRankedEvents(in []RankedEvent) []RankedEvent {
	out := make([]RankedEvent, len(in))
	for i := range in {
		out[i] = cloneRankedEvent(in[i])
	}
	return out
}

func cloneEvents(in []Event) []Event {
	out := make([]Event, len(in))
	for i := range in {
		out[i] = cloneEvent(in[i])
	}
	return out
}

func cloneWeights(in []DistrictWeight) []DistrictWeight {
	out := make([]DistrictWeight, len(in))
	copy(out, in)
	return out
}

func cloneFloatMap(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// roundedFloatMap copies with 3-decimal rounding applied to every value.
func roundedFloatMap(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = round3(v)
	}
	return out
}

func cloneShortages(in []Shortage) []Shortage {
	out := make([]Shortage, len(in))
	copy(out, in)
	return out
}

func cloneDirectorSnapshot(in DirectorSnapshot) DirectorSnapshot {
	out := in
	out.Focus.Ring = cloneStrings(in.Focus.Ring)
	out.TopRanked = cloneRankedEvents(in.TopRanked)
	out.SpatialWeights = cloneWeights(in.SpatialWeights)
	out.Prices = cloneFloatMap(in.Prices)
	return out
}

func cloneRoutePlan(in RoutePlan) RoutePlan {
	out := in
	if in.Distance != nil {
		d := *in.Distance
		out.Distance = &d
	}
	return out
}

func cloneDirectorAnalysis(in *DirectorAnalysis) *DirectorAnalysis {
	if in == nil {
		return nil
	}
	out := &DirectorAnalysis{
		Tick:    in.Tick,
		Matched: make([]SeedMatch, len(in.Matched)),
		Seeds:   make([]SeedReport, len(in.Seeds)),
		Routes:  make([]RoutePlan, len(in.Routes)),
	}
	for i, m := range in.Matched {
		m.Agents = cloneStrings(m.Agents)
		out.Matched[i] = m
	}
	copy(out.Seeds, in.Seeds)
	for i := range in.Routes {
		out.Routes[i] = cloneRoutePlan(in.Routes[i])
	}
	return out
}

func cloneDirectorEvents(in []DirectorEvent) []DirectorEvent {
	out := make([]DirectorEvent, len(in))
	for i, ev := range in {
		ev.Agents = cloneStrings(ev.Agents)
		out[i] = ev
	}
	return out
}
