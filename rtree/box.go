package rtree

import "math"

// Box is an axis-aligned bounding rectangle in 2D, stored as the four f64
// fields that appear verbatim in an on-disk node record.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// EmptyBox is the identity element for Expand: unioning it with any box
// yields that box unchanged.
var EmptyBox = Box{
	MinX: math.Inf(1), MinY: math.Inf(1),
	MaxX: math.Inf(-1), MaxY: math.Inf(-1),
}

// Expand grows b in place to also cover other.
func (b *Box) Expand(other Box) {
	b.MinX = math.Min(b.MinX, other.MinX)
	b.MinY = math.Min(b.MinY, other.MinY)
	b.MaxX = math.Max(b.MaxX, other.MaxX)
	b.MaxY = math.Max(b.MaxY, other.MaxY)
}

// Intersects reports whether b and other share at least one point.
func (b Box) Intersects(other Box) bool {
	return b.MinX <= other.MaxX && b.MaxX >= other.MinX &&
		b.MinY <= other.MaxY && b.MaxY >= other.MinY
}

// Center returns the box's midpoint, used as the Hilbert-sort key.
func (b Box) Center() (float64, float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}
