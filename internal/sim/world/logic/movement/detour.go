package movement

import "voxelnav.ai/internal/sim/world/logic/mathx"

type Pos struct {
	X int
	Y int
	Z int
}

func distXZ(a, b Pos) int {
	return mathx.AbsInt(a.X-b.X) + mathx.AbsInt(a.Z-b.Z)
}

// Walkable reports whether an agent two cells tall can stand at p.
type Walkable func(p Pos) bool

// PlanPath runs a breadth-first search from start toward target over walkable
// cells, stepping one cell horizontally and at most one cell up or down. The
// neighbour order is fixed so the same world always yields the same path.
//
// The returned nodes begin at start and end at the reached cell closest to
// target; ok is false when nothing closer than start is reachable within
// maxVisited cells.
func PlanPath(start, target Pos, maxVisited int, walkable Walkable) ([]Pos, bool) {
	if maxVisited <= 0 || walkable == nil {
		return nil, false
	}
	if start == target {
		return []Pos{start}, true
	}

	dirs := []Pos{{X: 1}, {X: -1}, {Z: 1}, {Z: -1}}
	climbs := []int{0, 1, -1}

	prev := make(map[Pos]Pos, 256)
	visited := map[Pos]bool{start: true}
	queue := []Pos{start}

	best := start
	bestDist := distXZ(start, target)*4 + mathx.AbsInt(start.Y-target.Y)

	for head := 0; head < len(queue) && len(visited) < maxVisited; head++ {
		cur := queue[head]
		if cur == target {
			best = cur
			break
		}
		for _, d := range dirs {
			for _, dy := range climbs {
				np := Pos{X: cur.X + d.X, Y: cur.Y + dy, Z: cur.Z + d.Z}
				if visited[np] || !walkable(np) {
					continue
				}
				visited[np] = true
				prev[np] = cur
				queue = append(queue, np)

				if dist := distXZ(np, target)*4 + mathx.AbsInt(np.Y-target.Y); dist < bestDist {
					bestDist = dist
					best = np
				}
				break
			}
		}
	}

	if best == start {
		return nil, false
	}
	var rev []Pos
	for p := best; p != start; p = prev[p] {
		rev = append(rev, p)
	}
	rev = append(rev, start)
	out := make([]Pos, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out, true
}
