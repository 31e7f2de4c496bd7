package mapping

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/skeleton"
	"github.com/gwillem/handremap/pkg/xform"
)

// ReferenceSkeleton builds a UE4-mannequin style forearm and hand for the
// given side: lowerarm_<s> -> hand_<s> -> three bones per digit. Fingers
// extend along +Y; the thumb sits toward -X on the right hand and +X on the
// left.
func ReferenceSkeleton(hand handtrack.Hand) *skeleton.Skeleton {
	s := hand.Suffix()
	fwd := mgl64.Vec3{0, 1, 0}
	side := mgl64.Vec3{-1, 0, 0}
	if hand == handtrack.Left {
		side = mgl64.Vec3{1, 0, 0}
	}
	at := func(f, sd float64) xform.Transform {
		return xform.New(fwd.Mul(f).Add(side.Mul(sd)), mgl64.QuatIdent())
	}

	bones := []skeleton.Bone{
		{Name: "lowerarm_" + s, Parent: skeleton.IndexNone, Local: xform.Identity()},
		{Name: "hand_" + s, Parent: 0, Local: at(0.26, 0)},
	}
	digits := []struct {
		name       string
		base       xform.Transform
		seg1, seg2 float64
	}{
		{"thumb", at(0.020, 0.025), 0.035, 0.032},
		{"index", at(0.090, 0.020), 0.040, 0.025},
		{"middle", at(0.090, 0.002), 0.045, 0.028},
		{"ring", at(0.085, -0.015), 0.042, 0.026},
		{"pinky", at(0.080, -0.030), 0.032, 0.018},
	}
	for _, d := range digits {
		first := len(bones)
		bones = append(bones,
			skeleton.Bone{Name: fmt.Sprintf("%s_01_%s", d.name, s), Parent: 1, Local: d.base},
			skeleton.Bone{Name: fmt.Sprintf("%s_02_%s", d.name, s), Parent: first, Local: at(d.seg1, 0)},
			skeleton.Bone{Name: fmt.Sprintf("%s_03_%s", d.name, s), Parent: first + 1, Local: at(d.seg2, 0)},
		)
	}

	sk, err := skeleton.New("ue4_hand_"+s, bones)
	if err != nil {
		// Static layout; only a programming error gets here.
		panic(err)
	}
	return sk
}
