// Package skeleton describes target skeletons: the bone hierarchy, the active
// bone subset used for evaluation, and per-call poses over that subset.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/gwillem/handremap/pkg/xform"
)

// IndexNone marks a missing bone or the parent of a root bone.
const IndexNone = -1

// ErrCycle is returned when a bone's ancestor chain loops back on itself.
var ErrCycle = errors.New("bone hierarchy contains a cycle")

// Bone is a single joint in the hierarchy.
type Bone struct {
	Name   string
	Parent int
	Local  xform.Transform // reference pose, relative to Parent
}

// Skeleton is a named bone hierarchy with its reference pose.
type Skeleton struct {
	Name  string
	Bones []Bone

	byName map[string]int
}

// New builds a skeleton and validates it.
func New(name string, bones []Bone) (*Skeleton, error) {
	s := &Skeleton{Name: name, Bones: bones}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that names are unique, parents are in range and precede
// their children, and the hierarchy is acyclic.
func (s *Skeleton) Validate() error {
	byName := make(map[string]int, len(s.Bones))
	for i, b := range s.Bones {
		if b.Name == "" {
			return fmt.Errorf("bone %d: empty name", i)
		}
		if _, dup := byName[b.Name]; dup {
			return fmt.Errorf("bone %q: duplicate name", b.Name)
		}
		byName[b.Name] = i

		if b.Parent == IndexNone {
			continue
		}
		if b.Parent < 0 || b.Parent >= len(s.Bones) {
			return fmt.Errorf("bone %q: parent %d out of range", b.Name, b.Parent)
		}
		if b.Parent == i {
			return fmt.Errorf("bone %q: %w", b.Name, ErrCycle)
		}
		if b.Parent > i {
			return fmt.Errorf("bone %q: parent %q must precede it", b.Name, s.Bones[b.Parent].Name)
		}
	}
	s.byName = byName
	return nil
}

// BoneIndex returns the index of the named bone, or IndexNone.
func (s *Skeleton) BoneIndex(name string) int {
	if s.byName != nil {
		if i, ok := s.byName[name]; ok {
			return i
		}
		return IndexNone
	}
	// Not validated yet
	for i, b := range s.Bones {
		if b.Name == name {
			return i
		}
	}
	return IndexNone
}

// Parents returns the parent index of every bone.
func (s *Skeleton) Parents() []int {
	parents := make([]int, len(s.Bones))
	for i, b := range s.Bones {
		parents[i] = b.Parent
	}
	return parents
}

// Locals returns the reference-pose local transform of every bone.
func (s *Skeleton) Locals() []xform.Transform {
	locals := make([]xform.Transform, len(s.Bones))
	for i, b := range s.Bones {
		locals[i] = b.Local
	}
	return locals
}

// RefComponentSpace returns the reference-pose transform of a bone relative
// to the skeleton root.
func (s *Skeleton) RefComponentSpace(index int) (xform.Transform, error) {
	return ComposeToComponentSpace(s.Locals(), s.Parents(), index)
}
