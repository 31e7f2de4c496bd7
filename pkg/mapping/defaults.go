package mapping

import (
	"fmt"

	"github.com/gwillem/handremap/pkg/handtrack"
)

// ue4HandBones lists the UE4 mannequin hand bones in evaluation order. The
// wrist comes first; tips and non-thumb metacarpals have no bone.
var ue4HandBones = []struct {
	joint  handtrack.Keypoint
	format string
}{
	{handtrack.Wrist, "hand_%s"},
	{handtrack.ThumbMetacarpal, "thumb_01_%s"},
	{handtrack.ThumbProximal, "thumb_02_%s"},
	{handtrack.ThumbDistal, "thumb_03_%s"},
	{handtrack.IndexProximal, "index_01_%s"},
	{handtrack.IndexIntermediate, "index_02_%s"},
	{handtrack.IndexDistal, "index_03_%s"},
	{handtrack.MiddleProximal, "middle_01_%s"},
	{handtrack.MiddleIntermediate, "middle_02_%s"},
	{handtrack.MiddleDistal, "middle_03_%s"},
	{handtrack.RingProximal, "ring_01_%s"},
	{handtrack.RingIntermediate, "ring_02_%s"},
	{handtrack.RingDistal, "ring_03_%s"},
	{handtrack.LittleProximal, "pinky_01_%s"},
	{handtrack.LittleIntermediate, "pinky_02_%s"},
	{handtrack.LittleDistal, "pinky_03_%s"},
}

// Hand returns the hand a built-in convention targets.
func (c Convention) Hand() handtrack.Hand {
	if c == UE4DefaultLeft {
		return handtrack.Left
	}
	return handtrack.Right
}

// BuildDefault fills the table from a built-in convention. A table that
// already has pairs is left untouched, so user mappings always win. The
// custom convention adds nothing.
func (t *Table) BuildDefault(conv Convention, skipRoot bool) {
	if conv == Custom {
		return
	}
	t.MergeMissingBones = true

	if len(t.Pairs) > 0 {
		return
	}

	t.Hand = conv.Hand()
	suffix := t.Hand.Suffix()
	t.WristBone = fmt.Sprintf(ue4HandBones[0].format, suffix)

	t.Pairs = make([]Pair, 0, len(ue4HandBones))
	for _, b := range ue4HandBones {
		if skipRoot && b.joint == handtrack.Wrist {
			continue
		}
		t.Pairs = append(t.Pairs, NewPair(b.joint, fmt.Sprintf(b.format, suffix)))
	}
	t.Initialized = false
}
