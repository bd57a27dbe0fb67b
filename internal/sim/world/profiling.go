package world

import "sort"

// TickTiming is one tick's per-subsystem wall time in milliseconds.
type TickTiming struct {
	Tick        uint64  `json:"tick"`
	Agents      float64 `json:"agents_ms"`
	Factions    float64 `json:"factions_ms"`
	Economy     float64 `json:"economy_ms"`
	Environment float64 `json:"environment_ms"`
	Focus       float64 `json:"focus_ms"`
	Director    float64 `json:"director_ms"`
	Total       float64 `json:"total_ms"`
}

// ProfileWindow is a fixed-size ring of recent tick timings. It backs the
// rolling percentiles and anomaly detection in ProfileSummary; it carries no
// simulation state and is excluded from state digests.
type ProfileWindow struct {
	Size    int          `json:"size"`
	Samples []TickTiming `json:"samples"`
	Next    int          `json:"next"`
	Count   int          `json:"count"`
}

func NewProfileWindow(size int) *ProfileWindow {
	if size < 1 {
		size = 1
	}
	return &ProfileWindow{
		Size:    size,
		Samples: make([]TickTiming, size),
	}
}

func (p *ProfileWindow) Observe(t TickTiming) {
	if p == nil {
		return
	}
	p.Samples[p.Next] = t
	p.Next = (p.Next + 1) % p.Size
	if p.Count < p.Size {
		p.Count++
	}
}

// ProfileSummary is the rolling view over the window: total-duration
// percentiles, the subsystem with the highest mean share, and whether the
// latest tick ran anomalously long against the window median.
type ProfileSummary struct {
	Ticks         int     `json:"ticks"`
	P50Ms         float64 `json:"p50_ms"`
	P95Ms         float64 `json:"p95_ms"`
	MaxMs         float64 `json:"max_ms"`
	SlowestSystem string  `json:"slowest_system"`
	Anomaly       bool    `json:"anomaly"`
}

func (p *ProfileWindow) Summary(anomalyFactor float64) ProfileSummary {
	if p == nil || p.Count == 0 {
		return ProfileSummary{}
	}
	totals := make([]float64, 0, p.Count)
	var sums [6]float64
	last := TickTiming{}
	lastIdx := (p.Next - 1 + p.Size) % p.Size
	for i := 0; i < p.Count; i++ {
		s := p.Samples[i]
		totals = append(totals, s.Total)
		sums[0] += s.Agents
		sums[1] += s.Factions
		sums[2] += s.Economy
		sums[3] += s.Environment
		sums[4] += s.Focus
		sums[5] += s.Director
		if i == lastIdx {
			last = s
		}
	}
	sort.Float64s(totals)

	names := [6]string{"agents", "factions", "economy", "environment", "focus", "director"}
	slowest := 0
	for i := 1; i < len(sums); i++ {
		if sums[i] > sums[slowest] {
			slowest = i
		}
	}

	out := ProfileSummary{
		Ticks:         p.Count,
		P50Ms:         percentile(totals, 0.50),
		P95Ms:         percentile(totals, 0.95),
		MaxMs:         totals[len(totals)-1],
		SlowestSystem: names[slowest],
	}
	if median := out.P50Ms; anomalyFactor > 0 && median > 0 {
		out.Anomaly = last.Total > anomalyFactor*median
	}
	return out
}

// percentile uses nearest-rank on an ascending slice.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q*float64(len(sorted)-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
