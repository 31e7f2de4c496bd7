package skeleton

import (
	"github.com/gwillem/handremap/pkg/xform"
)

// Pose holds local bone transforms for every bone of a container, indexed by
// compact index. Component-space transforms are computed on demand and
// cached for the lifetime of the pose.
type Pose struct {
	Container *BoneContainer
	Local     []xform.Transform

	cs    []xform.Transform
	state []uint8 // 0 unknown, 1 computed, 2 failed
}

// NewPose wraps locals, which must hold one entry per active bone.
func NewPose(c *BoneContainer, locals []xform.Transform) *Pose {
	return &Pose{
		Container: c,
		Local:     locals,
		cs:        make([]xform.Transform, len(locals)),
		state:     make([]uint8, len(locals)),
	}
}

// NewRefPose returns the container's reference pose.
func NewRefPose(c *BoneContainer) *Pose {
	locals := make([]xform.Transform, c.Len())
	for ci := range locals {
		locals[ci] = c.skeleton.Bones[c.active[ci]].Local
	}
	return NewPose(c, locals)
}

// ComponentSpace returns the component-space transform of the bone at a
// compact index. The second result is false for an out-of-range index or a
// bone whose ancestor chain is broken.
func (p *Pose) ComponentSpace(compact int) (xform.Transform, bool) {
	if compact < 0 || compact >= len(p.Local) {
		return xform.Identity(), false
	}
	switch p.state[compact] {
	case 1:
		return p.cs[compact], true
	case 2:
		return xform.Identity(), false
	}

	// Walk up until a cached ancestor or the root, then fold back down.
	chain := []int{compact}
	base := xform.Identity()
	for i := p.Container.ParentIndex(compact); i != IndexNone; i = p.Container.ParentIndex(i) {
		if len(chain) > len(p.Local) || p.state[i] == 2 {
			p.fail(chain)
			return xform.Identity(), false
		}
		if p.state[i] == 1 {
			base = p.cs[i]
			break
		}
		chain = append(chain, i)
	}

	for k := len(chain) - 1; k >= 0; k-- {
		ci := chain[k]
		base = p.Local[ci].Mul(base)
		p.cs[ci] = base
		p.state[ci] = 1
	}
	return p.cs[compact], true
}

func (p *Pose) fail(chain []int) {
	for _, ci := range chain {
		p.state[ci] = 2
	}
}
