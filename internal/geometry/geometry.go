// Package geometry provides the coordinate primitives shared by the
// interaction core: points, sizes, rectangles, and the snapping and
// clamping helpers the state machines apply to them.
package geometry

import "math"

// Point represents a position in logical pixels.
type Point struct {
	X float64
	Y float64
}

// Delta represents a displacement between two points.
type Delta struct {
	DX float64
	DY float64
}

// Sub returns the displacement from other to p.
func (p Point) Sub(other Point) Delta {
	return Delta{DX: p.X - other.X, DY: p.Y - other.Y}
}

// Add returns the point displaced by d.
func (p Point) Add(d Delta) Point {
	return Point{X: p.X + d.DX, Y: p.Y + d.DY}
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Hypot(dx, dy)
}

// Equal returns true if two points are exactly equal.
func (p Point) Equal(other Point) bool {
	return p.X == other.X && p.Y == other.Y
}

// Length returns the Euclidean magnitude of the delta.
func (d Delta) Length() float64 {
	return math.Hypot(d.DX, d.DY)
}

// Size represents a width and height in logical pixels.
type Size struct {
	Width  float64
	Height float64
}

// Rect represents a position and size in logical pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Origin returns the rect's top-left corner.
func (r Rect) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// Size returns the rect's dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Center returns the rect's center point.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains returns true if the point lies within the rect.
// The right and bottom edges are exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width &&
		p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Translated returns the rect displaced by d.
func (r Rect) Translated(d Delta) Rect {
	r.X += d.DX
	r.Y += d.DY
	return r
}

// Equal returns true if two rects are exactly equal.
func (r Rect) Equal(other Rect) bool {
	return r.X == other.X && r.Y == other.Y &&
		r.Width == other.Width && r.Height == other.Height
}

// Snap rounds v to the nearest multiple of grid using round-half-away-from-zero.
// A grid of zero or less leaves v unchanged.
func Snap(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	n := v / grid
	if n >= 0 {
		return math.Floor(n+0.5) * grid
	}
	return math.Ceil(n-0.5) * grid
}

// Clamp restricts v to [lo, hi]. A hi of zero or less means unbounded
// above, matching the max-size convention where zero disables the cap.
// Boundary clamps with genuine upper bounds want ClampRange.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

// ClampRange restricts v to [lo, hi] unconditionally. When hi < lo the
// range is empty and the lower bound wins.
func ClampRange(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampPoint restricts p to lie within bounds. A nil bounds is a no-op.
func ClampPoint(p Point, bounds *Rect) Point {
	if bounds == nil {
		return p
	}
	if p.X < bounds.X {
		p.X = bounds.X
	}
	if p.X > bounds.X+bounds.Width {
		p.X = bounds.X + bounds.Width
	}
	if p.Y < bounds.Y {
		p.Y = bounds.Y
	}
	if p.Y > bounds.Y+bounds.Height {
		p.Y = bounds.Y + bounds.Height
	}
	return p
}
