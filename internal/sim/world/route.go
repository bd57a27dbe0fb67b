package world

// RoutePlan is the director's travel estimate between two points of interest.
// Distance is null when either endpoint has no coordinates; travel time is
// still computable from hop count alone in that case.
type RoutePlan struct {
	Origin           string   `json:"origin,omitempty"`
	Target           string   `json:"target"`
	Reachable        bool     `json:"reachable"`
	Reason           string   `json:"reason,omitempty"`
	Hops             int      `json:"hops"`
	Distance         *float64 `json:"distance"`
	FallbackDistance float64  `json:"fallback_distance,omitempty"`
	TravelTime       float64  `json:"travel_time"`
}

// PlanRoute searches the adjacency graph for a hop path from origin to
// target. No origin (no focus district) and no path are reported as distinct
// unreachable reasons; the disconnected case still carries the straight-line
// distance as a fallback when both endpoints have coordinates.
func (n NarrativeDirector) PlanRoute(w *World, origin, target string) RoutePlan {
	if origin == "" {
		return RoutePlan{Target: target, Reachable: false, Reason: "no_focus"}
	}
	plan := RoutePlan{Origin: origin, Target: target}
	hops, ok := w.hopDistances(origin, -1)[target]
	if !ok {
		plan.Reachable = false
		plan.Reason = "disconnected"
		if d, has := coordDistance(w, origin, target); has {
			plan.FallbackDistance = d
		}
		return plan
	}
	plan.Reachable = true
	plan.Hops = hops
	dist := 0.0
	if d, has := coordDistance(w, origin, target); has {
		dist = d
		plan.Distance = &dist
	}
	plan.TravelTime = dist*n.cfg.TravelTimePerDistance + float64(hops)*n.cfg.TravelTimePerHop
	return plan
}

func coordDistance(w *World, a, b string) (float64, bool) {
	da, db := w.District(a), w.District(b)
	if da == nil || db == nil || !da.HasCoord || !db.HasCoord {
		return 0, false
	}
	return Euclidean(da.Coord, db.Coord), true
}
