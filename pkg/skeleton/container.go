package skeleton

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"

	"github.com/gwillem/handremap/pkg/xform"
)

// BoneContainer is the subset of a skeleton's bones that is currently being
// evaluated. Bones inside the container are addressed by compact index: the
// position within the active set. Compact order preserves skeleton order,
// so parents always come before their children.
type BoneContainer struct {
	skeleton *Skeleton
	active   []int // compact index -> skeleton index
	compact  []int // skeleton index -> compact index or IndexNone
	parents  []int // compact index -> compact parent index
	identity string
}

// NewBoneContainer activates the named bones of s, plus all of their
// ancestors. A nil list activates every bone. Unknown names are an error.
func NewBoneContainer(s *Skeleton, required []string) (*BoneContainer, error) {
	keep := make([]bool, len(s.Bones))
	if required == nil {
		for i := range keep {
			keep[i] = true
		}
	}
	for _, name := range required {
		idx := s.BoneIndex(name)
		if idx == IndexNone {
			return nil, fmt.Errorf("required bone %q not in skeleton %q", name, s.Name)
		}
		for i, steps := idx, 0; i != IndexNone && !keep[i]; i, steps = s.Bones[i].Parent, steps+1 {
			if steps > len(s.Bones) {
				return nil, fmt.Errorf("required bone %q: %w", name, ErrCycle)
			}
			keep[i] = true
		}
	}

	var active []int
	for i, k := range keep {
		if k {
			active = append(active, i)
		}
	}
	sort.Ints(active)

	c := &BoneContainer{
		skeleton: s,
		active:   active,
		compact:  make([]int, len(s.Bones)),
		parents:  make([]int, len(active)),
	}
	for i := range c.compact {
		c.compact[i] = IndexNone
	}
	for ci, si := range active {
		c.compact[si] = ci
	}
	for ci, si := range active {
		p := s.Bones[si].Parent
		if p == IndexNone {
			c.parents[ci] = IndexNone
			continue
		}
		c.parents[ci] = c.compact[p]
	}

	h := fnv.New64a()
	for _, si := range active {
		h.Write([]byte(strconv.Itoa(si)))
		h.Write([]byte{','})
	}
	c.identity = s.Name + "#" + strconv.FormatUint(h.Sum64(), 16)

	return c, nil
}

// Skeleton returns the skeleton the container was built from.
func (c *BoneContainer) Skeleton() *Skeleton {
	return c.skeleton
}

// Identity names the skeleton and active bone set. Two containers with the
// same identity assign the same compact indices.
func (c *BoneContainer) Identity() string {
	return c.identity
}

// Len returns the number of active bones.
func (c *BoneContainer) Len() int {
	return len(c.active)
}

// CompactIndex resolves a bone name to its compact index, or IndexNone when
// the bone is unknown or inactive.
func (c *BoneContainer) CompactIndex(name string) int {
	si := c.skeleton.BoneIndex(name)
	if si == IndexNone {
		return IndexNone
	}
	return c.compact[si]
}

// ParentIndex returns the compact index of a bone's parent, or IndexNone.
func (c *BoneContainer) ParentIndex(compact int) int {
	if compact < 0 || compact >= len(c.parents) {
		return IndexNone
	}
	return c.parents[compact]
}

// BoneName returns the name of the bone at a compact index.
func (c *BoneContainer) BoneName(compact int) string {
	if compact < 0 || compact >= len(c.active) {
		return ""
	}
	return c.skeleton.Bones[c.active[compact]].Name
}

// SkeletonIndex maps a compact index back to the skeleton bone index.
func (c *BoneContainer) SkeletonIndex(compact int) int {
	if compact < 0 || compact >= len(c.active) {
		return IndexNone
	}
	return c.active[compact]
}

// RefComponentSpace returns the reference-pose component-space transform of
// a bone given by compact index.
func (c *BoneContainer) RefComponentSpace(compact int) (xform.Transform, error) {
	si := c.SkeletonIndex(compact)
	if si == IndexNone {
		return xform.Identity(), fmt.Errorf("compact index %d out of range", compact)
	}
	return c.skeleton.RefComponentSpace(si)
}
