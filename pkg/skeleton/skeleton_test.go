package skeleton

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/handremap/pkg/xform"
)

// arm is root -> upper -> lower -> hand, plus a second root child.
func arm(t *testing.T) *Skeleton {
	t.Helper()
	s, err := New("arm", []Bone{
		{Name: "root", Parent: IndexNone, Local: xform.New(mgl64.Vec3{0, 0, 1}, mgl64.QuatIdent())},
		{Name: "upper", Parent: 0, Local: xform.New(mgl64.Vec3{1, 0, 0}, mgl64.QuatRotate(mgl64.DegToRad(90), mgl64.Vec3{0, 0, 1}))},
		{Name: "lower", Parent: 1, Local: xform.New(mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent())},
		{Name: "hand", Parent: 2, Local: xform.New(mgl64.Vec3{0.5, 0, 0}, mgl64.QuatIdent())},
		{Name: "prop", Parent: 0, Local: xform.New(mgl64.Vec3{0, 2, 0}, mgl64.QuatIdent())},
	})
	require.NoError(t, err)
	return s
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		bones []Bone
		cycle bool
	}{
		{"empty name", []Bone{{Name: "", Parent: IndexNone}}, false},
		{"duplicate", []Bone{{Name: "a", Parent: IndexNone}, {Name: "a", Parent: 0}}, false},
		{"parent out of range", []Bone{{Name: "a", Parent: 3}}, false},
		{"self parent", []Bone{{Name: "a", Parent: 0}}, true},
		{"parent after child", []Bone{{Name: "a", Parent: 1}, {Name: "b", Parent: IndexNone}}, false},
	}

	for _, tt := range tests {
		_, err := New(tt.name, tt.bones)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if tt.cycle && !errors.Is(err, ErrCycle) {
			t.Errorf("%s: error %v is not ErrCycle", tt.name, err)
		}
	}
}

func TestComposeToComponentSpace_Chain(t *testing.T) {
	s := arm(t)
	locals, parents := s.Locals(), s.Parents()

	got, err := ComposeToComponentSpace(locals, parents, 2)
	require.NoError(t, err)
	expected := locals[2].Mul(locals[1]).Mul(locals[0])
	assert.True(t, got.ApproxEqual(expected, 1e-12))

	// upper is turned 90 degrees about Z, so lower sits along +Y of it.
	assert.True(t, xform.VecApproxEqual(got.Translation, mgl64.Vec3{1, 1, 1}, 1e-12), "lower at %v", got.Translation)

	root, err := ComposeToComponentSpace(locals, parents, 0)
	require.NoError(t, err)
	assert.True(t, root.ApproxEqual(locals[0], 1e-12))
}

func TestComposeToComponentSpace_Cycle(t *testing.T) {
	locals := []xform.Transform{xform.Identity(), xform.Identity(), xform.Identity()}
	parents := []int{2, 0, 1}

	for i := range locals {
		_, err := ComposeToComponentSpace(locals, parents, i)
		assert.ErrorIs(t, err, ErrCycle, "bone %d", i)
	}

	_, err := ComposeToComponentSpace(locals, parents, 3)
	assert.Error(t, err)
	_, err = ComposeToComponentSpace(locals, []int{IndexNone, 7, 0}, 1)
	assert.Error(t, err)
}

func TestBoneContainer(t *testing.T) {
	s := arm(t)

	full, err := NewBoneContainer(s, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, full.Len())
	assert.Equal(t, 3, full.CompactIndex("hand"))
	assert.Equal(t, IndexNone, full.CompactIndex("tail"))

	sub, err := NewBoneContainer(s, []string{"lower"})
	require.NoError(t, err)
	assert.Equal(t, 3, sub.Len(), "ancestors are included")
	assert.Equal(t, IndexNone, sub.CompactIndex("hand"))
	assert.Equal(t, IndexNone, sub.CompactIndex("prop"))
	assert.Equal(t, sub.CompactIndex("upper"), sub.ParentIndex(sub.CompactIndex("lower")))
	assert.Equal(t, IndexNone, sub.ParentIndex(0))
	assert.Equal(t, "lower", sub.BoneName(2))
	assert.NotEqual(t, full.Identity(), sub.Identity())

	prop, err := NewBoneContainer(s, []string{"prop", "hand"})
	require.NoError(t, err)
	assert.Equal(t, 5, prop.Len())
	assert.Equal(t, full.Identity(), prop.Identity(), "same active set, same identity")

	_, err = NewBoneContainer(s, []string{"tail"})
	assert.Error(t, err)

	cs, err := sub.RefComponentSpace(sub.CompactIndex("lower"))
	require.NoError(t, err)
	assert.True(t, xform.VecApproxEqual(cs.Translation, mgl64.Vec3{1, 1, 1}, 1e-12))
}

func TestPose_ComponentSpace(t *testing.T) {
	s := arm(t)
	c, err := NewBoneContainer(s, nil)
	require.NoError(t, err)
	p := NewRefPose(c)

	for ci := 0; ci < c.Len(); ci++ {
		got, ok := p.ComponentSpace(ci)
		require.True(t, ok)
		ref, err := c.RefComponentSpace(ci)
		require.NoError(t, err)
		assert.True(t, got.ApproxEqual(ref, 1e-12), "bone %s", c.BoneName(ci))
	}

	// A pose over moved locals composes from them, not from the reference.
	locals := append([]xform.Transform(nil), p.Local...)
	locals[0] = xform.New(mgl64.Vec3{10, 0, 0}, mgl64.QuatIdent())
	moved := NewPose(c, locals)
	hand, ok := moved.ComponentSpace(c.CompactIndex("hand"))
	require.True(t, ok)
	assert.True(t, xform.VecApproxEqual(hand.Translation, mgl64.Vec3{11, 1.5, 0}, 1e-12), "hand at %v", hand.Translation)

	_, ok = p.ComponentSpace(99)
	assert.False(t, ok)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
name: finger
bones:
  - name: base
    translation: [0, 0, 1]
  - name: tip
    parent: base
    translation: [0, 0.03, 0]
    rotation: [0, 0, 0.7071068, 0.7071068]
`)
	s, err := ParseYAML(data)
	require.NoError(t, err)
	assert.Equal(t, "finger", s.Name)
	require.Len(t, s.Bones, 2)
	assert.Equal(t, 0, s.Bones[1].Parent)
	assert.InDelta(t, 0.03, s.Bones[1].Local.Translation[1], 1e-12)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, s.Bones[1].Local.Scale)

	out, err := yaml.Marshal(s)
	require.NoError(t, err)
	again, err := ParseYAML(out)
	require.NoError(t, err)
	for i := range s.Bones {
		assert.Equal(t, s.Bones[i].Name, again.Bones[i].Name)
		assert.True(t, s.Bones[i].Local.ApproxEqual(again.Bones[i].Local, 1e-9))
	}
}

func TestParseYAML_Errors(t *testing.T) {
	tests := map[string]string{
		"late parent":  "bones:\n  - {name: a, parent: b}\n  - {name: b}\n",
		"short vector": "bones:\n  - {name: a, translation: [1, 2]}\n",
		"bad rotation": "bones:\n  - {name: a, rotation: [0, 0, 1]}\n",
		"duplicate":    "bones:\n  - {name: a}\n  - {name: a}\n",
		"invalid yaml": "bones: [",
	}
	for name, doc := range tests {
		if _, err := ParseYAML([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestGLTFRoundTrip(t *testing.T) {
	s := arm(t)
	c, err := NewBoneContainer(s, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportGLTF(&buf, NewRefPose(c), false))

	doc := new(gltf.Document)
	require.NoError(t, gltf.NewDecoder(&buf).Decode(doc))
	require.Len(t, doc.Nodes, 5)
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)

	back, err := FromGLTF(doc, -1, "exported")
	require.NoError(t, err)
	assert.Equal(t, "exported", back.Name)
	require.Len(t, back.Bones, len(s.Bones))
	for _, b := range s.Bones {
		i := back.BoneIndex(b.Name)
		require.NotEqual(t, IndexNone, i, b.Name)
		assert.True(t, back.Bones[i].Local.ApproxEqual(b.Local, 1e-6), b.Name)
		if b.Parent != IndexNone {
			assert.Equal(t, s.Bones[b.Parent].Name, back.Bones[back.Bones[i].Parent].Name)
		}
	}
}

func TestFromGLTF_SkinFoldsIntermediateNodes(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Nodes = []*gltf.Node{
		{Name: "armature", Children: []uint32{1}, Translation: [3]float32{0, 0, 5}},
		{Name: "hips", Children: []uint32{2}, Translation: [3]float32{0, 1, 0}},
		{Name: "offset", Children: []uint32{3}, Translation: [3]float32{0, 0.5, 0}},
		{Name: "spine", Translation: [3]float32{0, 0.25, 0}},
	}
	doc.Skins = []*gltf.Skin{{Name: "body", Joints: []uint32{1, 3}}}

	s, err := FromGLTF(doc, 0, "unused")
	require.NoError(t, err)
	assert.Equal(t, "body", s.Name)
	require.Len(t, s.Bones, 2)
	assert.Equal(t, "hips", s.Bones[0].Name)
	assert.Equal(t, 0, s.Bones[1].Parent)
	assert.InDelta(t, 0.75, s.Bones[1].Local.Translation[1], 1e-6, "offset node folded into spine")

	_, err = FromGLTF(doc, 3, "x")
	assert.Error(t, err)
}
