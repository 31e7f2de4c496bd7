package skeleton

import (
	"fmt"

	"github.com/gwillem/handremap/pkg/xform"
)

// ComposeToComponentSpace returns locals[index] composed with every ancestor
// up to the root: local * parentLocal * ... * rootLocal.
//
// The ancestor chain is walked iteratively. A chain that revisits a bone
// yields ErrCycle instead of looping.
func ComposeToComponentSpace(locals []xform.Transform, parents []int, index int) (xform.Transform, error) {
	if len(locals) != len(parents) {
		return xform.Identity(), fmt.Errorf("compose: %d locals for %d parents", len(locals), len(parents))
	}
	if index < 0 || index >= len(locals) {
		return xform.Identity(), fmt.Errorf("compose: bone index %d out of range", index)
	}

	visited := make(map[int]struct{})
	result := locals[index]
	visited[index] = struct{}{}

	for p := parents[index]; p != IndexNone; p = parents[p] {
		if p < 0 || p >= len(locals) {
			return xform.Identity(), fmt.Errorf("compose: parent index %d out of range", p)
		}
		if _, seen := visited[p]; seen {
			return xform.Identity(), fmt.Errorf("compose bone %d: %w", index, ErrCycle)
		}
		visited[p] = struct{}{}
		result = result.Mul(locals[p])
	}

	return result, nil
}
