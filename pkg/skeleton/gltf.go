package skeleton

import (
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/gwillem/handremap/pkg/xform"
)

var identityMatrix = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// LoadGLTF reads a skeleton from a glTF or GLB file. With skin >= 0 the
// joints of that skin form the skeleton; otherwise every node does.
func LoadGLTF(path string, skin int) (*Skeleton, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open gltf %q", path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, err := FromGLTF(doc, skin, name)
	if err != nil {
		return nil, errors.Wrapf(err, "gltf %q", path)
	}
	return s, nil
}

// FromGLTF builds a skeleton from a decoded glTF document. fallbackName is
// used when the skin has no name.
func FromGLTF(doc *gltf.Document, skin int, fallbackName string) (*Skeleton, error) {
	name := fallbackName
	inSet := make(map[uint32]bool)

	if skin >= 0 {
		if skin >= len(doc.Skins) {
			return nil, errors.Errorf("skin %d not found (document has %d)", skin, len(doc.Skins))
		}
		sk := doc.Skins[skin]
		if sk.Name != "" {
			name = sk.Name
		}
		for _, j := range sk.Joints {
			inSet[j] = true
		}
	} else {
		for i := range doc.Nodes {
			inSet[uint32(i)] = true
		}
	}

	parentOf := make(map[uint32]uint32, len(doc.Nodes))
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) >= len(doc.Nodes) {
				return nil, errors.Errorf("node %d: child %d out of range", i, c)
			}
			if _, dup := parentOf[c]; dup {
				return nil, errors.Errorf("node %d has more than one parent", c)
			}
			parentOf[c] = uint32(i)
		}
	}

	// Nearest ancestor inside the set, folding skipped nodes into the local.
	resolveParent := func(n uint32) (uint32, bool, xform.Transform, error) {
		local := nodeLocal(doc.Nodes[n])
		cur := n
		for steps := 0; ; steps++ {
			if steps > len(doc.Nodes) {
				return 0, false, local, errors.Wrapf(ErrCycle, "node %d", n)
			}
			p, ok := parentOf[cur]
			if !ok {
				return 0, false, local, nil
			}
			if inSet[p] {
				return p, true, local, nil
			}
			local = local.Mul(nodeLocal(doc.Nodes[p]))
			cur = p
		}
	}

	type entry struct {
		parent    uint32
		hasParent bool
		local     xform.Transform
	}
	entries := make(map[uint32]entry, len(inSet))
	children := make(map[uint32][]uint32)
	var roots []uint32
	for i := range doc.Nodes {
		n := uint32(i)
		if !inSet[n] {
			continue
		}
		p, ok, local, err := resolveParent(n)
		if err != nil {
			return nil, err
		}
		entries[n] = entry{parent: p, hasParent: ok, local: local}
		if ok {
			children[p] = append(children[p], n)
		} else {
			roots = append(roots, n)
		}
	}

	bones := make([]Bone, 0, len(entries))
	boneIndex := make(map[uint32]int, len(entries))
	var visit func(n uint32)
	visit = func(n uint32) {
		e := entries[n]
		parent := IndexNone
		if e.hasParent {
			parent = boneIndex[e.parent]
		}
		boneName := doc.Nodes[n].Name
		if boneName == "" {
			boneName = "node_" + strconv.Itoa(int(n))
		}
		boneIndex[n] = len(bones)
		bones = append(bones, Bone{Name: boneName, Parent: parent, Local: e.local})
		for _, c := range children[n] {
			visit(c)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	if len(bones) != len(entries) {
		return nil, errors.Wrapf(ErrCycle, "%d joints unreachable from a root", len(entries)-len(bones))
	}

	return New(name, bones)
}

// ExportGLTF writes a pose as a glTF node hierarchy, one node per active
// bone. With binary set the output is GLB.
func ExportGLTF(w io.Writer, p *Pose, binary bool) error {
	doc := gltf.NewDocument()
	c := p.Container

	for ci := 0; ci < c.Len(); ci++ {
		local := p.Local[ci]
		q := local.Rotation
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:        c.BoneName(ci),
			Translation: [3]float32{float32(local.Translation[0]), float32(local.Translation[1]), float32(local.Translation[2])},
			Rotation:    [4]float32{float32(q.V[0]), float32(q.V[1]), float32(q.V[2]), float32(q.W)},
			Scale:       [3]float32{float32(local.Scale[0]), float32(local.Scale[1]), float32(local.Scale[2])},
		})
	}
	for ci := 0; ci < c.Len(); ci++ {
		parent := c.ParentIndex(ci)
		if parent == IndexNone {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(ci))
			continue
		}
		doc.Nodes[parent].Children = append(doc.Nodes[parent].Children, uint32(ci))
	}

	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = binary
	if err := encoder.Encode(doc); err != nil {
		return errors.Wrap(err, "encode gltf")
	}
	return nil
}

func nodeLocal(n *gltf.Node) xform.Transform {
	if n.Matrix != identityMatrix && n.Matrix != ([16]float32{}) {
		return matrixToTransform(n.Matrix)
	}

	t := xform.Identity()
	t.Translation = mgl64.Vec3{float64(n.Translation[0]), float64(n.Translation[1]), float64(n.Translation[2])}
	if n.Rotation != ([4]float32{}) {
		t.Rotation = mgl64.Quat{
			W: float64(n.Rotation[3]),
			V: mgl64.Vec3{float64(n.Rotation[0]), float64(n.Rotation[1]), float64(n.Rotation[2])},
		}.Normalize()
	}
	if n.Scale != ([3]float32{}) {
		t.Scale = mgl64.Vec3{float64(n.Scale[0]), float64(n.Scale[1]), float64(n.Scale[2])}
	}
	return t
}

// matrixToTransform decomposes a column-major TRS matrix.
func matrixToTransform(m [16]float32) xform.Transform {
	var mat mgl64.Mat4
	for i, v := range m {
		mat[i] = float64(v)
	}
	col := func(i int) mgl64.Vec3 { return mat.Col(i).Vec3() }

	scale := mgl64.Vec3{col(0).Len(), col(1).Len(), col(2).Len()}
	rot := mgl64.QuatIdent()
	if scale[0] != 0 && scale[1] != 0 && scale[2] != 0 {
		r := mgl64.Mat3FromCols(col(0).Mul(1/scale[0]), col(1).Mul(1/scale[1]), col(2).Mul(1/scale[2]))
		rot = mgl64.Mat4ToQuat(r.Mat4()).Normalize()
	}
	return xform.Transform{
		Translation: col(3),
		Rotation:    rot,
		Scale:       scale,
	}
}
