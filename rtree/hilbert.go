package rtree

// hilbertOrder is the side length of the Hilbert curve's square grid: a
// standard 32-bit curve (2^16 per axis gives 32 bits of code, matching the
// spec's "32-bit Hilbert curve on the unit square").
const hilbertOrder = 1 << 16

// hilbertD2XY-style encode: xy2d maps a grid coordinate (x, y), each in
// [0, hilbertOrder), to its distance along the Hilbert curve.
func hilbertXY2D(x, y uint32) uint32 {
	var rx, ry, d uint32

	for s := uint32(hilbertOrder) / 2; s > 0; s /= 2 {
		if (x & s) > 0 {
			rx = 1
		} else {
			rx = 0
		}

		if (y & s) > 0 {
			ry = 1
		} else {
			ry = 0
		}

		d += s * s * ((3 * rx) ^ ry)

		x, y = hilbertRotate(s, x, y, rx, ry)
	}

	return d
}

func hilbertRotate(s, x, y, rx, ry uint32) (uint32, uint32) {
	if ry == 0 {
		if rx == 1 {
			x = s - 1 - x
			y = s - 1 - y
		}

		x, y = y, x
	}

	return x, y
}

// hilbertCode projects a box's center into the curve's grid relative to
// extent and returns its Hilbert distance. Points outside extent are
// clamped to the grid boundary.
func hilbertCode(extent Box, b Box) uint32 {
	cx, cy := b.Center()

	width := extent.MaxX - extent.MinX
	height := extent.MaxY - extent.MinY

	x := gridCoord(cx, extent.MinX, width)
	y := gridCoord(cy, extent.MinY, height)

	return hilbertXY2D(x, y)
}

func gridCoord(v, min, span float64) uint32 {
	if span <= 0 {
		return 0
	}

	scaled := (v - min) / span * float64(hilbertOrder-1)
	if scaled < 0 {
		return 0
	}

	if scaled > float64(hilbertOrder-1) {
		return hilbertOrder - 1
	}

	return uint32(scaled)
}
