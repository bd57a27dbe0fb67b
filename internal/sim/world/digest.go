package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// StateDigest hashes the simulation state in a canonical order: map keys
// sorted, floats by bit pattern. Two worlds with equal digests replay
// identically. Wall-clock profiling is deliberately outside the digest.
func (w *World) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	w.digestHeader(h, &tmp)
	w.digestDistricts(h, &tmp)
	w.digestFactions(h, &tmp)
	w.digestAgents(h, &tmp)
	w.digestEnvironment(h, &tmp)
	w.digestSeeds(h, &tmp)
	w.digestMarket(h, &tmp)
	w.digestDirector(h, &tmp)
	w.digestFocus(h, &tmp)
	w.digestMeta(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (w *World) digestHeader(h hashWriter, tmp *[8]byte) {
	digestWriteU64(h, tmp, w.Tick)
	digestWriteI64(h, tmp, w.Seed)
	digestWriteString(h, tmp, w.City.ID)
	digestWriteString(h, tmp, w.City.Name)
}

func (w *World) digestDistricts(h hashWriter, tmp *[8]byte) {
	for _, d := range w.City.Districts {
		digestWriteString(h, tmp, d.ID)
		digestWriteString(h, tmp, d.Name)
		digestWriteI64(h, tmp, int64(d.Population))
		digestWriteF64(h, tmp, d.Pollution)
		digestWriteF64(h, tmp, d.Unrest)
		digestWriteF64(h, tmp, d.Security)
		h.Write([]byte{boolByte(d.HasCoord)})
		digestWriteF64(h, tmp, d.Coord.X)
		digestWriteF64(h, tmp, d.Coord.Y)
		digestWriteF64(h, tmp, d.Coord.Z)
		for _, adj := range d.Adjacent {
			digestWriteString(h, tmp, adj)
		}
		for _, name := range sortedStockNames(d) {
			st := d.Stocks[name]
			digestWriteString(h, tmp, name)
			digestWriteF64(h, tmp, st.Current)
			digestWriteF64(h, tmp, st.Capacity)
		}
	}
}

func (w *World) digestFactions(h hashWriter, tmp *[8]byte) {
	for _, id := range sortedFactionIDs(w.Factions) {
		f := w.Factions[id]
		digestWriteString(h, tmp, f.ID)
		digestWriteString(h, tmp, f.Name)
		digestWriteF64(h, tmp, f.Legitimacy)
		digestWriteString(h, tmp, f.HomeDistrict)
		resNames := make([]string, 0, len(f.Resources))
		for name := range f.Resources {
			resNames = append(resNames, name)
		}
		sort.Strings(resNames)
		for _, name := range resNames {
			digestWriteString(h, tmp, name)
			digestWriteI64(h, tmp, int64(f.Resources[name]))
		}
		kinds := make([]int, 0, len(f.Cooldowns))
		for k := range f.Cooldowns {
			kinds = append(kinds, int(k))
		}
		sort.Ints(kinds)
		for _, k := range kinds {
			digestWriteI64(h, tmp, int64(k))
			digestWriteI64(h, tmp, int64(f.Cooldowns[ActionKind(k)]))
		}
	}
}

func (w *World) digestAgents(h hashWriter, tmp *[8]byte) {
	for _, a := range w.Agents {
		digestWriteString(h, tmp, a.ID)
		digestWriteString(h, tmp, a.Name)
		digestWriteString(h, tmp, a.Archetype)
		digestWriteString(h, tmp, a.District)
		digestWriteF64(h, tmp, a.Drive)
	}
}

func (w *World) digestEnvironment(h hashWriter, tmp *[8]byte) {
	digestWriteF64(h, tmp, w.Env.Stability)
	digestWriteF64(h, tmp, w.Env.Unrest)
	digestWriteF64(h, tmp, w.Env.Pollution)
}

func (w *World) digestSeeds(h hashWriter, tmp *[8]byte) {
	for _, id := range sortedSeedIDs(w.Seeds) {
		st := w.SeedStates[id]
		digestWriteString(h, tmp, id)
		if st == nil {
			h.Write([]byte{0xff})
			continue
		}
		h.Write([]byte{byte(st.Phase)})
		digestWriteU64(h, tmp, st.EnteredTick)
		digestWriteI64(h, tmp, int64(st.CooldownRemaining))
	}
}

func (w *World) digestMarket(h hashWriter, tmp *[8]byte) {
	m := w.Market
	if m == nil {
		m = NewMarketState()
	}
	prices := make([]string, 0, len(m.Prices))
	for name := range m.Prices {
		prices = append(prices, name)
	}
	sort.Strings(prices)
	for _, name := range prices {
		digestWriteString(h, tmp, name)
		digestWriteF64(h, tmp, m.Prices[name])
	}
	streaks := make([]string, 0, len(m.Streaks))
	for key := range m.Streaks {
		streaks = append(streaks, key)
	}
	sort.Strings(streaks)
	for _, key := range streaks {
		digestWriteString(h, tmp, key)
		digestWriteI64(h, tmp, int64(m.Streaks[key]))
	}
	for _, sh := range m.LastShortages {
		digestWriteString(h, tmp, sh.District)
		digestWriteString(h, tmp, sh.Resource)
		digestWriteF64(h, tmp, sh.Ratio)
		digestWriteI64(h, tmp, int64(sh.Streak))
	}
}

func (w *World) digestDirector(h hashWriter, tmp *[8]byte) {
	d := w.Director
	if d == nil {
		d = &DirectorState{}
	}
	digestWriteU64(h, tmp, d.LastEvalTick)
	digestWriteU64(h, tmp, uint64(len(d.History)))
	for i := range d.History {
		digestSnapshot(h, tmp, &d.History[i])
	}
	if d.Analysis == nil {
		h.Write([]byte{0})
		return
	}
	h.Write([]byte{1})
	digestWriteU64(h, tmp, d.Analysis.Tick)
	digestWriteU64(h, tmp, uint64(len(d.Analysis.Matched)))
	for _, m := range d.Analysis.Matched {
		digestWriteString(h, tmp, m.Seed)
		digestWriteString(h, tmp, m.Pattern)
		digestWriteString(h, tmp, m.Message)
	}
	digestWriteU64(h, tmp, uint64(len(d.Analysis.Seeds)))
	for _, s := range d.Analysis.Seeds {
		digestWriteString(h, tmp, s.Seed)
		digestWriteString(h, tmp, s.Phase)
		digestWriteI64(h, tmp, int64(s.CooldownRemaining))
	}
	digestWriteU64(h, tmp, uint64(len(d.Analysis.Routes)))
	for _, r := range d.Analysis.Routes {
		digestWriteString(h, tmp, r.Origin)
		digestWriteString(h, tmp, r.Target)
		h.Write([]byte{boolByte(r.Reachable)})
		digestWriteI64(h, tmp, int64(r.Hops))
		digestWriteF64(h, tmp, r.TravelTime)
	}
}

func digestSnapshot(h hashWriter, tmp *[8]byte, s *DirectorSnapshot) {
	digestWriteU64(h, tmp, s.Tick)
	digestWriteString(h, tmp, s.Focus.District)
	for _, id := range s.Focus.Ring {
		digestWriteString(h, tmp, id)
	}
	for _, ev := range s.TopRanked {
		digestWriteString(h, tmp, ev.Message)
		digestWriteString(h, tmp, ev.Scope)
		digestWriteF64(h, tmp, ev.Severity)
		digestWriteString(h, tmp, ev.District)
		digestWriteF64(h, tmp, ev.Score)
		digestWriteI64(h, tmp, int64(ev.FocusDistance))
		h.Write([]byte{boolByte(ev.InFocusRing)})
		for _, a := range ev.Agents {
			digestWriteString(h, tmp, a)
		}
	}
	for _, wgt := range s.SpatialWeights {
		digestWriteString(h, tmp, wgt.District)
		digestWriteF64(h, tmp, wgt.Weight)
		digestWriteI64(h, tmp, int64(wgt.Distance))
	}
	prices := make([]string, 0, len(s.Prices))
	for name := range s.Prices {
		prices = append(prices, name)
	}
	sort.Strings(prices)
	for _, name := range prices {
		digestWriteString(h, tmp, name)
		digestWriteF64(h, tmp, s.Prices[name])
	}
	digestWriteI64(h, tmp, int64(s.ShortageCount))
	digestWriteF64(h, tmp, s.Environment.Stability)
	digestWriteF64(h, tmp, s.Environment.Unrest)
	digestWriteF64(h, tmp, s.Environment.Pollution)
}

func (w *World) digestFocus(h hashWriter, tmp *[8]byte) {
	f := w.Focus
	if f == nil {
		f = &FocusDigest{}
	}
	digestWriteString(h, tmp, f.District)
	for _, id := range f.Ring {
		digestWriteString(h, tmp, id)
	}
	for _, wgt := range f.Weights {
		digestWriteString(h, tmp, wgt.District)
		digestWriteF64(h, tmp, wgt.Weight)
		digestWriteI64(h, tmp, int64(wgt.Distance))
	}
}

func (w *World) digestMeta(h hashWriter, tmp *[8]byte) {
	keys := make([]string, 0, len(w.Meta))
	for k := range w.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		digestWriteString(h, tmp, k)
		digestWriteString(h, tmp, w.Meta[k])
	}
}
