// Package hex provides the arena geometry shared by the whole runtime: the
// answer-vertex layout, 2D vector math, sector lookup and the position codec
// used on the wire.
package hex

import "math"

// Vec is a 2D point or displacement. Screen convention: y grows downwards.
type Vec struct {
	X float64
	Y float64
}

func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

func (v Vec) Scale(s float64) Vec { return Vec{v.X * s, v.Y * s} }

// Norm returns the Euclidean length of v.
func (v Vec) Norm() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the Euclidean distance between v and o.
func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Norm() }

// Rotate rotates v by angle radians.
func (v Vec) Rotate(angle float64) Vec {
	sin, cos := math.Sincos(angle)
	return Vec{
		X: cos*v.X - sin*v.Y,
		Y: sin*v.X + cos*v.Y,
	}
}

// Lerp interpolates linearly between a and b. t is not clamped, so values
// outside [0, 1] extrapolate.
func Lerp(a, b Vec, t float64) Vec {
	return a.Scale(1 - t).Add(b.Scale(t))
}

// Layout returns the positions of n answer vertices on a circle of the given
// radius. The first vertex sits at -pi/2 (top of the screen) and the rest
// follow clockwise in screen coordinates. Each coordinate is truncated toward
// zero to match the platform's own layout.
func Layout(n int, radius float64) []Vec {
	vertices := make([]Vec, n)
	for k := 0; k < n; k++ {
		angle := -math.Pi/2 + 2*math.Pi*float64(k)/float64(n)
		vertices[k] = Vec{
			X: math.Trunc(radius * math.Cos(angle)),
			Y: math.Trunc(radius * math.Sin(angle)),
		}
	}
	return vertices
}

// Sector returns the index of the vertex closest to p and of the ring
// neighbor (next or previous) that is second closest. Together they delimit
// the triangular sector of the polygon containing p.
func Sector(p Vec, vertices []Vec) (closest, second int) {
	n := len(vertices)
	closest = 0
	best := vertices[0].Dist(p)
	for i := 1; i < n; i++ {
		if d := vertices[i].Dist(p); d < best {
			best = d
			closest = i
		}
	}

	next := (closest + 1) % n
	prev := (closest - 1 + n) % n
	if vertices[next].Dist(p) < vertices[prev].Dist(p) {
		return closest, next
	}
	return closest, prev
}
