package world

import (
	"math"
	"testing"
)

func TestPlanRoute_ReachableWithCoordinates(t *testing.T) {
	nd := NewNarrativeDirector(testTuning().Director)
	w := testWorld(t)

	plan := nd.PlanRoute(w, "harbor", "terraces")
	if !plan.Reachable || plan.Reason != "" {
		t.Fatalf("route should be reachable: %+v", plan)
	}
	if plan.Hops != 2 {
		t.Fatalf("hops: got %d want 2", plan.Hops)
	}
	if plan.Distance == nil {
		t.Fatalf("distance missing with coordinates on both ends")
	}
	if want := 6.0; math.Abs(*plan.Distance-want) > 1e-9 {
		t.Fatalf("distance: got %f want %f", *plan.Distance, want)
	}
	cfg := testTuning().Director
	want := 6.0*cfg.TravelTimePerDistance + 2*cfg.TravelTimePerHop
	if math.Abs(plan.TravelTime-want) > 1e-9 {
		t.Fatalf("travel time: got %f want %f", plan.TravelTime, want)
	}
}

func TestPlanRoute_Disconnected(t *testing.T) {
	nd := NewNarrativeDirector(testTuning().Director)
	w := testWorld(t)

	plan := nd.PlanRoute(w, "harbor", "outlook")
	if plan.Reachable {
		t.Fatalf("outlook should be unreachable: %+v", plan)
	}
	if plan.Reason != "disconnected" {
		t.Fatalf("reason: got %q want %q", plan.Reason, "disconnected")
	}
	if plan.FallbackDistance <= 0 {
		t.Fatalf("fallback distance: got %f want > 0", plan.FallbackDistance)
	}
}

func TestPlanRoute_NoFocus(t *testing.T) {
	nd := NewNarrativeDirector(testTuning().Director)
	w := testWorld(t)

	plan := nd.PlanRoute(w, "", "mills")
	if plan.Reachable {
		t.Fatalf("route without origin should be unreachable")
	}
	if plan.Reason != "no_focus" {
		t.Fatalf("reason: got %q want %q", plan.Reason, "no_focus")
	}
}

func TestPlanRoute_HopsOnlyWithoutCoordinates(t *testing.T) {
	nd := NewNarrativeDirector(testTuning().Director)
	w := testWorld(t)
	w.District("harbor").HasCoord = false

	plan := nd.PlanRoute(w, "harbor", "market")
	if !plan.Reachable || plan.Hops != 1 {
		t.Fatalf("route: %+v", plan)
	}
	if plan.Distance != nil {
		t.Fatalf("distance should be absent without coordinates: %f", *plan.Distance)
	}
	cfg := testTuning().Director
	if want := 1 * cfg.TravelTimePerHop; plan.TravelTime != want {
		t.Fatalf("hop-only travel time: got %f want %f", plan.TravelTime, want)
	}
}

func TestPlanRoute_SameOriginAndTarget(t *testing.T) {
	nd := NewNarrativeDirector(testTuning().Director)
	w := testWorld(t)

	plan := nd.PlanRoute(w, "harbor", "harbor")
	if !plan.Reachable || plan.Hops != 0 || plan.TravelTime != 0 {
		t.Fatalf("self route: %+v", plan)
	}
}
