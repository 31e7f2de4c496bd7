// Package xform provides rigid bone transforms and the small vector helpers
// used when remapping tracked joints onto a skeleton.
package xform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a translation, rotation and per-axis scale.
//
// Transforms compose child-first: a.Mul(b) applies a, then b. A bone's
// component-space transform is therefore local.Mul(parentComponentSpace).
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// New creates a transform with unit scale.
func New(translation mgl64.Vec3, rotation mgl64.Quat) Transform {
	return Transform{
		Translation: translation,
		Rotation:    rotation,
		Scale:       mgl64.Vec3{1, 1, 1},
	}
}

// Mul returns t followed by parent.
func (t Transform) Mul(parent Transform) Transform {
	return Transform{
		Translation: parent.TransformPosition(t.Translation),
		Rotation:    parent.Rotation.Mul(t.Rotation).Normalize(),
		Scale:       mulElem(t.Scale, parent.Scale),
	}
}

// TransformPosition maps a point from t's local space into its parent space.
func (t Transform) TransformPosition(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(mulElem(p, t.Scale)).Add(t.Translation)
}

// Inverse returns the transform undoing t. Exact for uniform scale.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Inverse()
	invScale := mgl64.Vec3{safeRecip(t.Scale[0]), safeRecip(t.Scale[1]), safeRecip(t.Scale[2])}
	return Transform{
		Translation: mulElem(inv.Rotate(t.Translation.Mul(-1)), invScale),
		Rotation:    inv,
		Scale:       invScale,
	}
}

// RelativeTo expresses t in the space of other, so that
// t.RelativeTo(other).Mul(other) == t.
func (t Transform) RelativeTo(other Transform) Transform {
	return t.Mul(other.Inverse())
}

// ApproxEqual reports whether both transforms match within eps. Rotations
// q and -q are treated as equal.
func (t Transform) ApproxEqual(o Transform, eps float64) bool {
	if !VecApproxEqual(t.Translation, o.Translation, eps) {
		return false
	}
	if !VecApproxEqual(t.Scale, o.Scale, eps) {
		return false
	}
	dot := t.Rotation.Dot(o.Rotation)
	return math.Abs(math.Abs(dot)-1) <= eps
}

// VecApproxEqual reports whether a and b are no further than eps apart.
// Unlike mgl64's ApproxEqualThreshold the tolerance is absolute, so
// components near zero compare the same as any other.
func VecApproxEqual(a, b mgl64.Vec3, eps float64) bool {
	return a.Sub(b).Len() <= eps
}

func mulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func safeRecip(v float64) float64 {
	if v == 0 {
		return 0
	}
	return 1 / v
}
