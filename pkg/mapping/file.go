package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gwillem/handremap/pkg/handtrack"
)

type tableFile struct {
	Hand              string     `yaml:"hand"`
	WristBone         string     `yaml:"wrist_bone,omitempty"`
	MergeMissingBones bool       `yaml:"merge_missing_bones"`
	Pairs             []pairFile `yaml:"pairs"`
}

type pairFile struct {
	Joint string `yaml:"joint"`
	Bone  string `yaml:"bone"`
}

// LoadTable reads a custom mapping table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return t, nil
}

// ParseTable decodes a mapping table. Pairs keep file order.
func ParseTable(data []byte) (*Table, error) {
	var raw tableFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse mapping YAML: %w", err)
	}

	t := NewTable()
	t.WristBone = raw.WristBone
	t.MergeMissingBones = raw.MergeMissingBones
	if raw.Hand != "" {
		hand, err := handtrack.ParseHand(raw.Hand)
		if err != nil {
			return nil, err
		}
		t.Hand = hand
	}

	for i, rp := range raw.Pairs {
		joint, err := handtrack.ParseKeypoint(rp.Joint)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		if rp.Bone == "" {
			return nil, fmt.Errorf("pair %d (%s): empty bone name", i, joint)
		}
		t.Pairs = append(t.Pairs, NewPair(joint, rp.Bone))
	}
	if t.WristBone == "" {
		if i := t.WristPair(); i >= 0 {
			t.WristBone = t.Pairs[i].Bone
		}
	}
	return t, nil
}

// Marshal encodes the table's user-editable fields as YAML.
func (t *Table) Marshal() ([]byte, error) {
	raw := tableFile{
		Hand:              t.Hand.String(),
		WristBone:         t.WristBone,
		MergeMissingBones: t.MergeMissingBones,
		Pairs:             make([]pairFile, len(t.Pairs)),
	}
	for i, p := range t.Pairs {
		raw.Pairs[i] = pairFile{Joint: p.Joint.String(), Bone: p.Bone}
	}
	return yaml.Marshal(raw)
}

// SaveTable writes the table to a YAML file.
func SaveTable(path string, t *Table) error {
	data, err := t.Marshal()
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
