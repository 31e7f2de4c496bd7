package skeleton

import (
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/handremap/pkg/xform"
)

type yamlSkeleton struct {
	Name  string     `yaml:"name"`
	Bones []yamlBone `yaml:"bones"`
}

type yamlBone struct {
	Name        string    `yaml:"name"`
	Parent      string    `yaml:"parent,omitempty"`
	Translation []float64 `yaml:"translation,flow,omitempty"`
	Rotation    []float64 `yaml:"rotation,flow,omitempty"` // x, y, z, w
	Scale       []float64 `yaml:"scale,flow,omitempty"`
}

// LoadYAML reads a skeleton description from a YAML file.
func LoadYAML(path string) (*Skeleton, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read skeleton file")
	}
	s, err := ParseYAML(data)
	if err != nil {
		return nil, errors.Wrapf(err, "skeleton %q", path)
	}
	return s, nil
}

// ParseYAML decodes a skeleton description. Bones reference their parent by
// name and must be listed after it.
func ParseYAML(data []byte) (*Skeleton, error) {
	var raw yamlSkeleton
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse skeleton YAML")
	}

	index := make(map[string]int, len(raw.Bones))
	bones := make([]Bone, 0, len(raw.Bones))
	for i, rb := range raw.Bones {
		parent := IndexNone
		if rb.Parent != "" {
			p, ok := index[rb.Parent]
			if !ok {
				return nil, errors.Errorf("bone %q: parent %q not declared before it", rb.Name, rb.Parent)
			}
			parent = p
		}

		local := xform.Identity()
		if err := fillVec3(&local.Translation, rb.Translation); err != nil {
			return nil, errors.Wrapf(err, "bone %q translation", rb.Name)
		}
		if err := fillVec3(&local.Scale, rb.Scale); err != nil {
			return nil, errors.Wrapf(err, "bone %q scale", rb.Name)
		}
		if len(rb.Rotation) != 0 {
			if len(rb.Rotation) != 4 {
				return nil, errors.Errorf("bone %q rotation: want 4 components, got %d", rb.Name, len(rb.Rotation))
			}
			local.Rotation = mgl64.Quat{
				W: rb.Rotation[3],
				V: mgl64.Vec3{rb.Rotation[0], rb.Rotation[1], rb.Rotation[2]},
			}.Normalize()
		}

		index[rb.Name] = i
		bones = append(bones, Bone{Name: rb.Name, Parent: parent, Local: local})
	}

	return New(raw.Name, bones)
}

// MarshalYAML encodes the skeleton in the format read by ParseYAML.
func (s *Skeleton) MarshalYAML() (interface{}, error) {
	out := yamlSkeleton{Name: s.Name, Bones: make([]yamlBone, len(s.Bones))}
	for i, b := range s.Bones {
		yb := yamlBone{
			Name:        b.Name,
			Translation: b.Local.Translation[:],
			Rotation: []float64{
				b.Local.Rotation.V[0], b.Local.Rotation.V[1], b.Local.Rotation.V[2], b.Local.Rotation.W,
			},
			Scale: b.Local.Scale[:],
		}
		if b.Parent != IndexNone {
			yb.Parent = s.Bones[b.Parent].Name
		}
		out.Bones[i] = yb
	}
	return out, nil
}

func fillVec3(dst *mgl64.Vec3, src []float64) error {
	if len(src) == 0 {
		return nil
	}
	if len(src) != 3 {
		return errors.Errorf("want 3 components, got %d", len(src))
	}
	*dst = mgl64.Vec3{src[0], src[1], src[2]}
	return nil
}
