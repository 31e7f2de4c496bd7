package xform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ZeroNonDominantAxes keeps only the component of v with the largest
// magnitude and zeroes the other two. X is compared against Y first; the
// winner is then compared against Z. Ties go to the later axis.
func ZeroNonDominantAxes(v *mgl64.Vec3) {
	aX := math.Abs(v[0])
	aY := math.Abs(v[1])

	if aY < aX {
		v[1] = 0
		if math.Abs(v[2]) < aX {
			v[2] = 0
		} else {
			v[0] = 0
		}
	} else {
		v[0] = 0
		if math.Abs(v[2]) < aY {
			v[2] = 0
		} else {
			v[1] = 0
		}
	}
}

// DominantAxis snaps v onto its dominant axis and returns the unit vector
// along it. The second result is false for a zero vector.
func DominantAxis(v mgl64.Vec3) (mgl64.Vec3, bool) {
	ZeroNonDominantAxes(&v)
	l := v.Len()
	if l == 0 {
		return mgl64.Vec3{}, false
	}
	return v.Mul(1 / l), true
}

// BasisRotation returns the rotation taking +X onto forward and +Y onto
// side. Both must be unit length and perpendicular.
func BasisRotation(forward, side mgl64.Vec3) (mgl64.Quat, bool) {
	const eps = 1e-6
	if math.Abs(forward.Len()-1) > eps || math.Abs(side.Len()-1) > eps {
		return mgl64.QuatIdent(), false
	}
	if math.Abs(forward.Dot(side)) > eps {
		return mgl64.QuatIdent(), false
	}
	up := forward.Cross(side)
	m := mgl64.Mat3FromCols(forward, side, up)
	return mgl64.Mat4ToQuat(m.Mat4()).Normalize(), true
}
