package world

import (
	"math/rand"

	"cityloom.ai/internal/sim/tuning"
)

// Shortage is one district/resource pair that has been under the shortage
// threshold for at least the warning streak.
type Shortage struct {
	District string  `json:"district_id"`
	Resource string  `json:"resource"`
	Ratio    float64 `json:"ratio"`
	Streak   int     `json:"streak"`
}

type EconomyReport struct {
	Prices    map[string]float64 `json:"prices"`
	Shortages []Shortage         `json:"shortages"`
}

// EconomySystem tracks shortage streaks, moves prices, and rebalances stock.
// After every tick each stock satisfies 0 <= Current <= Capacity, including
// stocks that drifted out of range between ticks.
type EconomySystem struct {
	cfg tuning.Economy
}

func NewEconomySystem(cfg tuning.Economy) EconomySystem {
	return EconomySystem{cfg: cfg}
}

func (s EconomySystem) Tick(w *World, rng *rand.Rand) EconomyReport {
	m := w.Market
	shortages := s.trackShortages(w)
	s.movePrices(w, shortages)
	s.rebalance(w, shortages)

	m.LastShortages = cloneShortages(shortages)
	return EconomyReport{
		Prices:    cloneFloatMap(m.Prices),
		Shortages: shortages,
	}
}

// trackShortages advances the per-district streak counters and returns the
// pairs at or past the warning streak. Negative drift is corrected here so
// every later pass sees sane stock. A stock without capacity is never short.
func (s EconomySystem) trackShortages(w *World) []Shortage {
	m := w.Market
	shortages := []Shortage{}
	for _, d := range w.City.Districts {
		for _, name := range sortedStockNames(d) {
			st := d.Stocks[name]
			if st == nil {
				continue
			}
			if st.Current < 0 {
				st.Current = 0
			}
			key := streakKey(d.ID, name)
			if st.Capacity <= 0 || st.Current/st.Capacity >= s.cfg.ShortageThreshold {
				delete(m.Streaks, key)
				continue
			}
			m.Streaks[key]++
			if streak := m.Streaks[key]; streak >= s.cfg.ShortageWarningTicks {
				shortages = append(shortages, Shortage{
					District: d.ID,
					Resource: name,
					Ratio:    st.Current / st.Capacity,
					Streak:   streak,
				})
			}
		}
	}
	return shortages
}

// movePrices raises the price of every resource with a warning-level shortage
// this tick and decays the rest toward the floor. Prices stay inside
// [floor, base+boost] for all reachable states.
func (s EconomySystem) movePrices(w *World, shortages []Shortage) {
	m := w.Market
	short := map[string]bool{}
	for _, sh := range shortages {
		short[sh.Resource] = true
	}
	ceiling := s.cfg.BasePrice + s.cfg.PriceMaxBoost
	for _, name := range w.ResourceNames() {
		price, ok := m.Prices[name]
		if !ok {
			price = s.cfg.BasePrice
		}
		if short[name] {
			price += s.cfg.PriceIncreaseStep
		} else {
			price -= s.cfg.PriceDecay
		}
		m.Prices[name] = clampF(price, s.cfg.PriceFloor, ceiling)
	}
}

// rebalance moves over-capacity excess toward shortage districts, lets short
// districts produce a little, and finally clamps everything back into
// [0, capacity]. Transient over-capacity inside the pass is allowed; the
// post-tick bound is not negotiable.
func (s EconomySystem) rebalance(w *World, shortages []Shortage) {
	for _, sh := range shortages {
		dst := w.District(sh.District)
		if dst == nil {
			continue
		}
		st := dst.Stocks[sh.Resource]
		if st == nil || st.Capacity <= 0 {
			continue
		}
		room := st.Capacity - st.Current
		if room <= 0 {
			continue
		}
		moved := s.pullExcess(w, sh.District, sh.Resource, room)
		st.Current += moved
		st.Current += s.cfg.ProductionRate * st.Capacity
		if st.Current > st.Capacity {
			st.Current = st.Capacity
		}
	}
	for _, d := range w.City.Districts {
		for _, name := range sortedStockNames(d) {
			st := d.Stocks[name]
			if st == nil {
				continue
			}
			if st.Current < 0 {
				st.Current = 0
			}
			if st.Capacity >= 0 && st.Current > st.Capacity {
				st.Current = st.Capacity
			}
		}
	}
}

// pullExcess drains over-capacity stock of a resource from other districts,
// up to want, and returns the amount gathered. Donors are visited in city
// order; each donation also respects the per-tick rebalance step.
func (s EconomySystem) pullExcess(w *World, into, resource string, want float64) float64 {
	gathered := 0.0
	for _, d := range w.City.Districts {
		if gathered >= want {
			break
		}
		if d.ID == into {
			continue
		}
		st := d.Stocks[resource]
		if st == nil || st.Capacity <= 0 {
			continue
		}
		excess := st.Current - st.Capacity
		if excess <= 0 {
			continue
		}
		give := min(excess, want-gathered)
		give = min(give, s.cfg.RebalanceStep*st.Capacity)
		if give <= 0 {
			continue
		}
		st.Current -= give
		gathered += give
	}
	return gathered
}
