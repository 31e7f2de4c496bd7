package xform

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroNonDominantAxes(t *testing.T) {
	tests := []struct {
		in       mgl64.Vec3
		expected mgl64.Vec3
	}{
		{mgl64.Vec3{3, -5, 1}, mgl64.Vec3{0, -5, 0}},
		{mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 0}},
		{mgl64.Vec3{-7, 2, 3}, mgl64.Vec3{-7, 0, 0}},
		{mgl64.Vec3{1, 2, -9}, mgl64.Vec3{0, 0, -9}},
		{mgl64.Vec3{4, 1, 4}, mgl64.Vec3{0, 0, 4}}, // tie X/Z -> Z
		{mgl64.Vec3{2, 2, 0}, mgl64.Vec3{0, 2, 0}}, // tie X/Y -> Y
	}

	for _, tt := range tests {
		got := tt.in
		ZeroNonDominantAxes(&got)
		if got != tt.expected {
			t.Errorf("ZeroNonDominantAxes(%v) = %v, want %v", tt.in, got, tt.expected)
		}
		for i := range got {
			if math.IsNaN(got[i]) {
				t.Errorf("ZeroNonDominantAxes(%v) produced NaN", tt.in)
			}
		}
	}
}

func TestDominantAxis(t *testing.T) {
	axis, ok := DominantAxis(mgl64.Vec3{0.2, -3, 0.5})
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, -1, 0}, axis)

	_, ok = DominantAxis(mgl64.Vec3{})
	assert.False(t, ok)
}

func TestBasisRotation(t *testing.T) {
	q, ok := BasisRotation(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{-1, 0, 0})
	require.True(t, ok)
	assert.True(t, VecApproxEqual(q.Rotate(mgl64.Vec3{1, 0, 0}), mgl64.Vec3{0, 1, 0}, 1e-9))
	assert.True(t, VecApproxEqual(q.Rotate(mgl64.Vec3{0, 1, 0}), mgl64.Vec3{-1, 0, 0}, 1e-9))
	assert.True(t, VecApproxEqual(q.Rotate(mgl64.Vec3{0, 0, 1}), mgl64.Vec3{0, 0, 1}, 1e-9))

	_, ok = BasisRotation(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 0, 0})
	assert.False(t, ok, "parallel axes")
}

func TestApproxEqual_NearZero(t *testing.T) {
	tests := []struct {
		a, b     mgl64.Vec3
		expected bool
	}{
		{mgl64.Vec3{2.22e-16, 1, 0}, mgl64.Vec3{0, 1, 0}, true},
		{mgl64.Vec3{1e-12, 0, 0}, mgl64.Vec3{}, true},
		{mgl64.Vec3{1e-6, 0, 0}, mgl64.Vec3{}, false},
		{mgl64.Vec3{1000, 0, 0}, mgl64.Vec3{1000.001, 0, 0}, false},
	}

	for _, tt := range tests {
		if got := VecApproxEqual(tt.a, tt.b, 1e-9); got != tt.expected {
			t.Errorf("VecApproxEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
		}
	}

	near := New(mgl64.Vec3{1e-12, 0, 0}, mgl64.QuatIdent())
	assert.True(t, near.ApproxEqual(Identity(), 1e-9))
	assert.False(t, New(mgl64.Vec3{1e-6, 0, 0}, mgl64.QuatIdent()).ApproxEqual(Identity(), 1e-9))
}

func TestTransform_MulChain(t *testing.T) {
	root := New(mgl64.Vec3{1, 0, 0}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	a := New(mgl64.Vec3{0, 2, 0}, mgl64.QuatIdent())
	b := New(mgl64.Vec3{3, 0, 0}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{1, 0, 0}))

	cs := b.Mul(a).Mul(root)

	// a sits at root + rotZ90(0,2,0) = (1,0,0) + (-2,0,0)
	// b sits at a + rotZ90(3,0,0) = (-1,0,0) + (0,3,0)
	assert.True(t, VecApproxEqual(cs.Translation, mgl64.Vec3{-1, 3, 0}, 1e-9), "got %v", cs.Translation)

	expectedRot := root.Rotation.Mul(b.Rotation)
	assert.InDelta(t, 1, math.Abs(cs.Rotation.Dot(expectedRot)), 1e-9)
}

func TestTransform_InverseAndRelative(t *testing.T) {
	tr := Transform{
		Translation: mgl64.Vec3{1, 2, 3},
		Rotation:    mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0}),
		Scale:       mgl64.Vec3{2, 2, 2},
	}

	assert.True(t, tr.Mul(tr.Inverse()).ApproxEqual(Identity(), 1e-9))

	other := New(mgl64.Vec3{-4, 0, 1}, mgl64.QuatRotate(-1.1, mgl64.Vec3{1, 0, 0}))
	rel := tr.RelativeTo(other)
	assert.True(t, rel.Mul(other).ApproxEqual(tr, 1e-9))
}
