package place

import (
	"fmt"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/errors"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/kicad"
)

// Placed is a resolved placement rewritten into the canonical frame: origin
// at the board's lower-left corner, x and y non-negative, rotation within
// (-180, 180].
type Placed struct {
	Ref      string
	Name     string
	X, Y     float64
	Rotation float64
	Slot     int
	SlotSet  bool
	Head     int
}

// Corner identifies which board corner the export's origin sits in.
type Corner int

const (
	CornerLowerLeft Corner = iota
	CornerLowerRight
	CornerUpperLeft
	CornerUpperRight
)

func (c Corner) String() string {
	switch c {
	case CornerLowerLeft:
		return "lower-left"
	case CornerLowerRight:
		return "lower-right"
	case CornerUpperLeft:
		return "upper-left"
	case CornerUpperRight:
		return "upper-right"
	}
	return fmt.Sprintf("Corner(%d)", int(c))
}

// DetectCorner classifies the origin corner from the coordinate signs.
//
// All x of one sign and all y of one sign are required: x >= 0 everywhere
// means the origin sits on the board's left edge, y >= 0 everywhere means it
// sits on the lower edge. Mixed signs mean the origin is inside the board,
// which the remap cannot handle. An axis that is all zeros satisfies both
// signs; the left/lower reading wins so the identity remap is preferred.
func DetectCorner(rs []Resolved) (Corner, error) {
	left, right, lower, upper := true, true, true, true
	for _, r := range rs {
		if r.X < 0 {
			left = false
		}
		if r.X > 0 {
			right = false
		}
		if r.Y < 0 {
			lower = false
		}
		if r.Y > 0 {
			upper = false
		}
	}

	if !left && !right || !lower && !upper {
		return 0, errors.New(errors.ErrCodeGeometryOrigin, "origin not in a board corner: mixed coordinate signs")
	}

	switch {
	case left && lower:
		return CornerLowerLeft, nil
	case left: // upper
		return CornerUpperLeft, nil
	case lower: // right
		return CornerLowerRight, nil
	default:
		return CornerUpperRight, nil
	}
}

// Transform rewrites resolved placements into the canonical frame.
//
// The remap per detected corner, with the rotation added to each part:
//
//	lower-left:  (x, y)     +0
//	upper-left:  (-y, x)    +90
//	lower-right: (y, -x)    +270
//	upper-right: (-x, -y)   +180
//
// On the bottom layer the machine's placement head uses swapped axes
// relative to top, so x and y are exchanged after the remap. Rotations are
// then reduced into (-180, 180].
func Transform(rs []Resolved, layer Layer) ([]Placed, error) {
	corner, err := DetectCorner(rs)
	if err != nil {
		return nil, err
	}

	out := make([]Placed, 0, len(rs))
	for _, r := range rs {
		x, y, rot := remap(corner, r.X, r.Y, r.Rotation)
		if layer == kicad.LayerBottom {
			x, y = y, x
		}
		rot = normalizeRotation(rot)

		// A negative coordinate here is a corner-detection bug, not bad
		// input.
		if x < 0 || y < 0 {
			panic(errors.New(errors.ErrCodeInternal,
				"transform invariant violated: %s at (%g, %g) after %s remap", r.Ref, x, y, corner))
		}

		out = append(out, Placed{
			Ref:      r.Ref,
			Name:     r.Name,
			X:        x,
			Y:        y,
			Rotation: rot,
			Slot:     r.Slot,
			SlotSet:  r.SlotSet,
			Head:     r.Head,
		})
	}
	return out, nil
}

func remap(c Corner, x, y, rot float64) (float64, float64, float64) {
	switch c {
	case CornerUpperLeft:
		return -y, x, rot + 90
	case CornerLowerRight:
		return y, -x, rot + 270
	case CornerUpperRight:
		return -x, -y, rot + 180
	default:
		return x, y, rot
	}
}

// normalizeRotation reduces rot into (-180, 180]. Only the upper bound is
// clamped; a value already below -180 is left alone.
func normalizeRotation(rot float64) float64 {
	for rot > 180 {
		rot -= 360
	}
	return rot
}
