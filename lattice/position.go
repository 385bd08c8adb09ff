// Package lattice defines the 3D integer addressing used by the rest of the
// engine: cell positions and the six axis-aligned directions that connect
// them.
package lattice

// Position is an integer coordinate on the 3D lattice.
type Position struct {
	X, Y, Z int32
}

// Add returns p translated by the unit offset of d.
func (p Position) Add(d Direction) Position {
	off := offsets[d]
	return Position{p.X + off.X, p.Y + off.Y, p.Z + off.Z}
}

// Direction indexes one of the six axis-aligned neighbor directions.
// The inverse of d is always (d+3)%6 — see Direction.Inverse.
type Direction uint8

const (
	PlusX  Direction = 0
	PlusY  Direction = 1
	PlusZ  Direction = 2
	MinusX Direction = 3
	MinusY Direction = 4
	MinusZ Direction = 5

	DirCount = 6
)

var offsets = [DirCount]Position{
	PlusX:  {X: 1},
	PlusY:  {Y: 1},
	PlusZ:  {Z: 1},
	MinusX: {X: -1},
	MinusY: {Y: -1},
	MinusZ: {Z: -1},
}

// Directions enumerates all six directions in a stable, fixed order.
var Directions = [DirCount]Direction{PlusX, PlusY, PlusZ, MinusX, MinusY, MinusZ}

// Inverse returns the opposite direction: d' = (d+3) mod 6.
func (d Direction) Inverse() Direction {
	return (d + 3) % DirCount
}

// String renders a direction name, used for diagnostics and catalog errors.
func (d Direction) String() string {
	switch d {
	case PlusX:
		return "+x"
	case PlusY:
		return "+y"
	case PlusZ:
		return "+z"
	case MinusX:
		return "-x"
	case MinusY:
		return "-y"
	case MinusZ:
		return "-z"
	default:
		return "invalid"
	}
}

// Box describes an axis-aligned range of positions, origin inclusive,
// origin+size exclusive on each axis.
type Box struct {
	Origin Position
	Size   Position
}

// Contains reports whether pos falls within the box (origin inclusive,
// origin+size exclusive on each axis).
func (b Box) Contains(pos Position) bool {
	return pos.X >= b.Origin.X && pos.X < b.Origin.X+b.Size.X &&
		pos.Y >= b.Origin.Y && pos.Y < b.Origin.Y+b.Size.Y &&
		pos.Z >= b.Origin.Z && pos.Z < b.Origin.Z+b.Size.Z
}

// Positions returns every position contained in the box. Iteration order is
// X fastest, then Y, then Z — used by Collapser's box-expansion overload.
func (b Box) Positions() []Position {
	if b.Size.X <= 0 || b.Size.Y <= 0 || b.Size.Z <= 0 {
		return nil
	}
	out := make([]Position, 0, int(b.Size.X)*int(b.Size.Y)*int(b.Size.Z))
	for z := int32(0); z < b.Size.Z; z++ {
		for y := int32(0); y < b.Size.Y; y++ {
			for x := int32(0); x < b.Size.X; x++ {
				out = append(out, Position{
					X: b.Origin.X + x,
					Y: b.Origin.Y + y,
					Z: b.Origin.Z + z,
				})
			}
		}
	}
	return out
}
