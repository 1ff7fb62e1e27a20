package movement

import "testing"

func flatWorld(blocked map[Pos]bool) Walkable {
	return func(p Pos) bool {
		return p.Y == 0 && !blocked[p]
	}
}

func TestPlanPath_Straight(t *testing.T) {
	path, ok := PlanPath(Pos{}, Pos{X: 4}, 1000, flatWorld(nil))
	if !ok {
		t.Fatalf("expected a path")
	}
	if len(path) != 5 || path[0] != (Pos{}) || path[4] != (Pos{X: 4}) {
		t.Fatalf("unexpected path %v", path)
	}
}

func TestPlanPath_AroundWall(t *testing.T) {
	blocked := map[Pos]bool{{X: 1, Z: -1}: true, {X: 1}: true, {X: 1, Z: 1}: true}
	path, ok := PlanPath(Pos{}, Pos{X: 3}, 1000, flatWorld(blocked))
	if !ok {
		t.Fatalf("expected a path")
	}
	if path[len(path)-1] != (Pos{X: 3}) {
		t.Fatalf("path ends at %v", path[len(path)-1])
	}
	for _, p := range path {
		if blocked[p] {
			t.Fatalf("path crosses wall at %v: %v", p, path)
		}
	}
}

func TestPlanPath_Deterministic(t *testing.T) {
	blocked := map[Pos]bool{{X: 2}: true}
	a, _ := PlanPath(Pos{}, Pos{X: 5, Z: 3}, 1000, flatWorld(blocked))
	b, _ := PlanPath(Pos{}, Pos{X: 5, Z: 3}, 1000, flatWorld(blocked))
	if len(a) != len(b) {
		t.Fatalf("path lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("paths differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestPlanPath_EnclosedReturnsFalse(t *testing.T) {
	blocked := map[Pos]bool{{X: 1}: true, {X: -1}: true, {Z: 1}: true, {Z: -1}: true}
	if _, ok := PlanPath(Pos{}, Pos{X: 5}, 1000, flatWorld(blocked)); ok {
		t.Fatalf("expected no path out of an enclosed cell")
	}
}

func TestPlanPath_PartialWhenTargetUnreachable(t *testing.T) {
	// A full wall at X=3 keeps the agent on the near side.
	walk := func(p Pos) bool { return p.Y == 0 && p.X != 3 && p.X > -5 && p.X < 8 && p.Z > -5 && p.Z < 5 }
	path, ok := PlanPath(Pos{}, Pos{X: 6}, 1000, walk)
	if !ok {
		t.Fatalf("expected a partial path")
	}
	if end := path[len(path)-1]; end != (Pos{X: 2}) {
		t.Fatalf("partial path ends at %v want {2 0 0}", end)
	}
}

func TestPlanPath_ClimbsOneStep(t *testing.T) {
	walk := func(p Pos) bool {
		if p.X >= 2 {
			return p.Y == 1
		}
		return p.Y == 0
	}
	path, ok := PlanPath(Pos{}, Pos{X: 4, Y: 1}, 1000, walk)
	if !ok {
		t.Fatalf("expected a path")
	}
	if end := path[len(path)-1]; end != (Pos{X: 4, Y: 1}) {
		t.Fatalf("ends at %v", end)
	}
}

func TestPlanPath_NegativeQuadrant(t *testing.T) {
	path, ok := PlanPath(Pos{}, Pos{X: -3, Z: -2}, 1000, flatWorld(nil))
	if !ok {
		t.Fatalf("expected a path")
	}
	if len(path) != 6 || path[len(path)-1] != (Pos{X: -3, Z: -2}) {
		t.Fatalf("unexpected path %v", path)
	}
}
