// Package retarget drives a target skeleton's hand bones from tracked hand
// joints. Node is the per-tick control node; Driver runs it on a ticker.
package retarget

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/mapping"
	"github.com/gwillem/handremap/pkg/skeleton"
	"github.com/gwillem/handremap/pkg/xform"
)

// BoneTransform is a component-space transform for one bone, addressed by
// compact index.
type BoneTransform struct {
	Index     int
	Transform xform.Transform
}

// EvalContext is everything a single evaluation needs. None of it is kept
// after Evaluate returns.
type EvalContext struct {
	Pose   *skeleton.Pose
	Source handtrack.Source
}

// Node remaps tracked joints onto skeleton bones.
//
// InitializeBoneReferences must be called whenever the bone container
// changes; Evaluate may then be called from any goroutine, concurrently,
// until the next re-initialization.
type Node struct {
	// Convention picks the auto-generated mapping when Table has no pairs.
	Convention mapping.Convention

	// SkipRoot leaves the wrist bone to the incoming pose, for hands that
	// are part of a larger body without a proxy wrist bone.
	SkipRoot bool

	// WristOnly writes only the wrist. It forces the wrist pair into an
	// auto-generated table even with SkipRoot.
	WristOnly bool

	// StoredFrame, when set, is used instead of the context source.
	StoredFrame *handtrack.Frame

	Table  *mapping.Table
	Logger *slog.Logger

	ownerSource handtrack.Source
}

// NewNode returns a node for a built-in convention.
func NewNode(conv mapping.Convention, skipRoot, wristOnly bool) *Node {
	return &Node{
		Convention: conv,
		SkipRoot:   skipRoot,
		WristOnly:  wristOnly,
		Table:      mapping.NewTable(),
	}
}

func (n *Node) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// OnInitializeOwner inspects the object that owns the node. An owner that is
// itself a tracking source becomes the node's data path. It reports whether
// the owner is tracking-aware.
func (n *Node) OnInitializeOwner(owner any) bool {
	src, ok := owner.(handtrack.Source)
	if !ok {
		n.ownerSource = nil
		return false
	}
	n.ownerSource = src
	return true
}

// InitializeBoneReferences fills the table from the convention if it is
// empty and resolves it against c when the cached indices are stale.
func (n *Node) InitializeBoneReferences(c *skeleton.BoneContainer) {
	if n.Table == nil {
		n.Table = mapping.NewTable()
	}
	n.Table.BuildDefault(n.Convention, n.SkipRoot && !n.WristOnly)

	if n.Table.NeedsResolve(c) {
		n.Table.Resolve(c, n.logger())
		n.logger().Debug("resolved bone mapping",
			"skeleton", c.Skeleton().Name,
			"resolved", n.Table.ResolvedCount(),
			"pairs", len(n.Table.Pairs))
	}
}

// IsValidToEvaluate reports whether the node has something to write for c.
func (n *Node) IsValidToEvaluate(c *skeleton.BoneContainer) bool {
	t := n.Table
	if t == nil || c == nil || t.NeedsResolve(c) {
		return false
	}
	if n.WristOnly {
		wp := t.WristPair()
		return wp >= 0 && t.Pairs[wp].Resolved()
	}
	return t.ResolvedCount() > 0
}

func (n *Node) frame(src handtrack.Source, hand handtrack.Hand) (handtrack.Frame, bool) {
	if n.ownerSource != nil {
		return n.ownerSource.Frame(hand)
	}
	if n.StoredFrame != nil && n.StoredFrame.Hand == hand {
		return *n.StoredFrame, true
	}
	if src == nil {
		return handtrack.Frame{}, false
	}
	return src.Frame(hand)
}

// Evaluate computes new component-space transforms for the mapped bones,
// ordered parents first. It returns nil when the node is not valid for the
// pose or no frame with a tracked wrist is available.
func (n *Node) Evaluate(ec EvalContext) []BoneTransform {
	pose := ec.Pose
	if pose == nil || !n.IsValidToEvaluate(pose.Container) {
		return nil
	}
	frame, ok := n.frame(ec.Source, n.Table.Hand)
	if !ok {
		return nil
	}
	return n.evaluateFrame(pose, &frame)
}

// evaluateFrame is Evaluate against an already fetched frame. The caller has
// checked validity for pose.
func (n *Node) evaluateFrame(pose *skeleton.Pose, frame *handtrack.Frame) []BoneTransform {
	t := n.Table
	c := pose.Container

	trackedWrist, ok := frame.Joint(handtrack.Wrist)
	if !ok {
		return nil
	}
	adj := t.Adjustment
	wristRot := trackedWrist.Rotation.Mul(adj)

	// The output wrist: tracked when mapped, otherwise whatever the pose has.
	wp := t.WristPair()
	wristMapped := wp >= 0 && t.Pairs[wp].Resolved()
	var root xform.Transform
	switch {
	case wristMapped:
		root = xform.Transform{
			Translation: trackedWrist.Translation,
			Rotation:    wristRot,
			Scale:       mgl64.Vec3{1, 1, 1},
		}
		if cs, ok := pose.ComponentSpace(t.Pairs[wp].BoneIndex); ok {
			root.Scale = cs.Scale
		}
	case c.CompactIndex(t.WristBone) != skeleton.IndexNone:
		root, _ = pose.ComponentSpace(c.CompactIndex(t.WristBone))
	default:
		root = xform.New(trackedWrist.Translation, wristRot)
	}

	if n.WristOnly {
		return []BoneTransform{{Index: t.Pairs[wp].BoneIndex, Transform: root}}
	}

	// Tracked rotations are taken relative to the tracked wrist and
	// re-rooted on the output wrist.
	toRoot := root.Rotation.Mul(wristRot.Inverse())

	pairAt := make(map[int]mapping.Pair, len(t.Pairs))
	for _, p := range t.Pairs {
		if p.Resolved() {
			pairAt[p.BoneIndex] = p
		}
	}

	written := make([]bool, c.Len())
	cs := make([]xform.Transform, c.Len())
	var out []BoneTransform

	parentCS := func(ci int) (xform.Transform, bool) {
		pi := c.ParentIndex(ci)
		if pi == skeleton.IndexNone {
			return xform.Identity(), false
		}
		if written[pi] {
			return cs[pi], true
		}
		return pose.ComponentSpace(pi)
	}

	for ci := 0; ci < c.Len(); ci++ {
		p, mapped := pairAt[ci]
		var joint xform.Transform
		if mapped {
			joint, mapped = frame.Joint(p.Joint)
		}

		switch {
		case mapped && p.Joint == handtrack.Wrist:
			cs[ci] = root

		case mapped:
			rot := toRoot.Mul(joint.Rotation.Mul(adj)).Normalize()
			local := pose.Local[ci]
			if parent, ok := parentCS(ci); ok {
				cs[ci] = xform.Transform{
					Translation: parent.TransformPosition(local.Translation),
					Rotation:    rot,
					Scale:       mgl64.Vec3{local.Scale[0] * parent.Scale[0], local.Scale[1] * parent.Scale[1], local.Scale[2] * parent.Scale[2]},
				}
			} else {
				// A mapped root bone takes its position from tracking.
				offset := toRoot.Rotate(joint.Translation.Sub(trackedWrist.Translation))
				cs[ci] = xform.Transform{Translation: root.Translation.Add(offset), Rotation: rot, Scale: local.Scale}
			}

		case t.MergeMissingBones:
			pi := c.ParentIndex(ci)
			if pi == skeleton.IndexNone || !written[pi] {
				continue
			}
			cs[ci] = pose.Local[ci].Mul(cs[pi])

		default:
			continue
		}

		written[ci] = true
		out = append(out, BoneTransform{Index: ci, Transform: cs[ci]})
	}

	return out
}

// Apply writes evaluated component-space transforms back into pose as local
// transforms. Bones not in bones keep their local transform.
func Apply(pose *skeleton.Pose, bones []BoneTransform) {
	c := pose.Container
	cs := make(map[int]xform.Transform, len(bones))
	for _, b := range bones {
		cs[b.Index] = b.Transform
	}

	locals := append([]xform.Transform(nil), pose.Local...)
	for _, b := range bones {
		parent := xform.Identity()
		if pi := c.ParentIndex(b.Index); pi != skeleton.IndexNone {
			if p, ok := cs[pi]; ok {
				parent = p
			} else if p, ok := pose.ComponentSpace(pi); ok {
				parent = p
			}
		}
		locals[b.Index] = b.Transform.RelativeTo(parent)
	}
	*pose = *skeleton.NewPose(c, locals)
}
