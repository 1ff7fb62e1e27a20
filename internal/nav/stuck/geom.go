package stuck

import "math"

type GridPos struct {
	X int
	Y int
	Z int
}

func (p GridPos) Add(o GridPos) GridPos {
	return GridPos{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

func (p GridPos) Above(n int) GridPos {
	return GridPos{X: p.X, Y: p.Y + n, Z: p.Z}
}

// Relative steps n cells along dir.
func (p GridPos) Relative(dir Direction, n int) GridPos {
	v := dir.Normal()
	return GridPos{X: p.X + v.X*n, Y: p.Y + v.Y*n, Z: p.Z + v.Z*n}
}

func (p GridPos) DistSq(o GridPos) int {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// Center is the horizontal center of the cell at floor height.
func (p GridPos) Center() Vec3 {
	return Vec3{X: float64(p.X) + 0.5, Y: float64(p.Y), Z: float64(p.Z) + 0.5}
}

func (p GridPos) Vec() Vec3 {
	return Vec3{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3) DistanceTo(o Vec3) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Cell floors each coordinate to the containing grid cell.
func (v Vec3) Cell() GridPos {
	return GridPos{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y)), Z: int(math.Floor(v.Z))}
}

type Direction uint8

const (
	Down Direction = iota
	Up
	North
	South
	West
	East
)

// Horizontal is the scan order used when looking for a gap next to the destination.
var Horizontal = [4]Direction{North, South, East, West}

var allDirections = [6]Direction{Down, Up, North, South, West, East}

func (d Direction) Normal() GridPos {
	switch d {
	case Down:
		return GridPos{Y: -1}
	case Up:
		return GridPos{Y: 1}
	case North:
		return GridPos{Z: -1}
	case South:
		return GridPos{Z: 1}
	case West:
		return GridPos{X: -1}
	case East:
		return GridPos{X: 1}
	default:
		return GridPos{}
	}
}

func (d Direction) String() string {
	switch d {
	case Down:
		return "DOWN"
	case Up:
		return "UP"
	case North:
		return "NORTH"
	case South:
		return "SOUTH"
	case West:
		return "WEST"
	case East:
		return "EAST"
	default:
		return "UNKNOWN"
	}
}

// Nearest returns the axis direction with the largest positive dot product
// against (x, y, z). Ties keep the earlier direction in Down, Up, North, South,
// West, East order; a vector with no positive component yields North.
func Nearest(x, y, z float64) Direction {
	best := North
	bestDot := 0.0
	for _, d := range allDirections {
		n := d.Normal()
		dot := x*float64(n.X) + y*float64(n.Y) + z*float64(n.Z)
		if dot > bestDot {
			bestDot = dot
			best = d
		}
	}
	return best
}

// Facing is the direction used to aim block clearing from pos toward target.
// The depth axis is negated, so a target at +Z resolves to North.
func Facing(pos, target GridPos) Direction {
	return Nearest(float64(target.X-pos.X), float64(target.Y-pos.Y), float64(-(target.Z - pos.Z)))
}
