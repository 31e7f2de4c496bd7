// Package mapping pairs tracked hand keypoints with target skeleton bones.
package mapping

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/skeleton"
	"github.com/gwillem/handremap/pkg/xform"
)

// IndexNone marks an unresolved bone or a missing parent.
const IndexNone = skeleton.IndexNone

// Convention selects a built-in bone naming scheme.
type Convention uint8

const (
	UE4DefaultLeft Convention = iota
	UE4DefaultRight
	Custom
)

func (c Convention) String() string {
	switch c {
	case UE4DefaultLeft:
		return "ue4_left"
	case UE4DefaultRight:
		return "ue4_right"
	default:
		return "custom"
	}
}

// ParseConvention parses the names returned by String.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ue4_left", "left":
		return UE4DefaultLeft, nil
	case "ue4_right", "right":
		return UE4DefaultRight, nil
	case "custom", "":
		return Custom, nil
	}
	return Custom, fmt.Errorf("unknown skeleton convention %q", s)
}

// Pair maps one tracked keypoint onto a target bone. BoneIndex and
// ParentIndex are compact indices cached by Table.Resolve.
type Pair struct {
	Joint       handtrack.Keypoint
	Bone        string
	BoneIndex   int
	ParentIndex int
}

// NewPair returns an unresolved pair.
func NewPair(joint handtrack.Keypoint, bone string) Pair {
	return Pair{Joint: joint, Bone: bone, BoneIndex: IndexNone, ParentIndex: IndexNone}
}

// Resolved reports whether the pair found its bone.
func (p Pair) Resolved() bool {
	return p.BoneIndex != IndexNone
}

// Table is an ordered set of pairs plus the settings shared by all of them.
type Table struct {
	Pairs []Pair

	// MergeMissingBones derives Adjustment from the reference pose and
	// carries the tracked change onto bones that have no pair.
	MergeMissingBones bool

	// Hand selects which tracked hand feeds the table.
	Hand handtrack.Hand

	// WristBone names the target wrist bone even when its pair is skipped.
	WristBone string

	// Adjustment rotates tracked joint frames into the target bone frames.
	Adjustment mgl64.Quat

	Initialized     bool
	InitializedFrom string // container identity the indices belong to
}

// NewTable returns an empty table targeting the right hand.
func NewTable() *Table {
	return &Table{
		Hand:       handtrack.Right,
		Adjustment: mgl64.QuatIdent(),
	}
}

// ResolvedCount returns the number of pairs with a valid bone index.
func (t *Table) ResolvedCount() int {
	n := 0
	for _, p := range t.Pairs {
		if p.Resolved() {
			n++
		}
	}
	return n
}

// WristPair returns the index of the pair driven by the wrist keypoint, or
// -1.
func (t *Table) WristPair() int {
	for i, p := range t.Pairs {
		if p.Joint == handtrack.Wrist {
			return i
		}
	}
	return -1
}

// NeedsResolve reports whether the cached indices do not belong to c.
func (t *Table) NeedsResolve(c *skeleton.BoneContainer) bool {
	return !t.Initialized || t.InitializedFrom != c.Identity()
}

// Resolve looks up every pair's bone and parent in c. Unknown bones are left
// at IndexNone; the remaining pairs resolve independently.
func (t *Table) Resolve(c *skeleton.BoneContainer, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}

	for i := range t.Pairs {
		p := &t.Pairs[i]
		p.BoneIndex = c.CompactIndex(p.Bone)
		p.ParentIndex = IndexNone
		if p.BoneIndex == IndexNone {
			log.Debug("bone not found", "bone", p.Bone, "joint", p.Joint, "skeleton", c.Skeleton().Name)
			continue
		}
		if _, err := c.RefComponentSpace(p.BoneIndex); err != nil {
			log.Debug("bone unusable", "bone", p.Bone, "err", err)
			p.BoneIndex = IndexNone
			continue
		}
		p.ParentIndex = c.ParentIndex(p.BoneIndex)
	}

	t.Adjustment = mgl64.QuatIdent()
	if t.MergeMissingBones {
		if q, ok := t.deriveAdjustment(c); ok {
			t.Adjustment = q
		} else {
			log.Debug("no adjustment derived, using identity", "skeleton", c.Skeleton().Name)
		}
	}

	t.Initialized = true
	t.InitializedFrom = c.Identity()
}

// deriveAdjustment finds the target wrist's own axes from the reference
// pose: forward toward the middle finger base, side from little toward
// index. Each is snapped to its dominant axis so small bind-pose tilts do not
// leak into the result.
func (t *Table) deriveAdjustment(c *skeleton.BoneContainer) (mgl64.Quat, bool) {
	wristName := t.WristBone
	if i := t.WristPair(); i >= 0 {
		wristName = t.Pairs[i].Bone
	}
	wrist, ok := refCS(c, wristName)
	if !ok {
		return mgl64.QuatIdent(), false
	}
	middle, ok1 := t.refCSOf(c, handtrack.MiddleProximal)
	index, ok2 := t.refCSOf(c, handtrack.IndexProximal)
	little, ok3 := t.refCSOf(c, handtrack.LittleProximal)
	if !ok1 || !ok2 || !ok3 {
		return mgl64.QuatIdent(), false
	}

	toLocal := wrist.Rotation.Inverse()
	forward, ok := xform.DominantAxis(toLocal.Rotate(middle.Translation.Sub(wrist.Translation)))
	if !ok {
		return mgl64.QuatIdent(), false
	}
	side, ok := xform.DominantAxis(toLocal.Rotate(index.Translation.Sub(little.Translation)))
	if !ok {
		return mgl64.QuatIdent(), false
	}
	basis, ok := xform.BasisRotation(forward, side)
	if !ok {
		return mgl64.QuatIdent(), false
	}
	return basis.Inverse(), true
}

func (t *Table) refCSOf(c *skeleton.BoneContainer, k handtrack.Keypoint) (xform.Transform, bool) {
	for _, p := range t.Pairs {
		if p.Joint == k && p.Resolved() {
			cs, err := c.RefComponentSpace(p.BoneIndex)
			return cs, err == nil
		}
	}
	return xform.Identity(), false
}

func refCS(c *skeleton.BoneContainer, bone string) (xform.Transform, bool) {
	if bone == "" {
		return xform.Identity(), false
	}
	ci := c.CompactIndex(bone)
	if ci == IndexNone {
		return xform.Identity(), false
	}
	cs, err := c.RefComponentSpace(ci)
	return cs, err == nil
}
