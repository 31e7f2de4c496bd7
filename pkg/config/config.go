// Package config reads and writes the handremap.json project file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gwillem/handremap/pkg/glove"
	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/mapping"
	"github.com/gwillem/handremap/pkg/retarget"
	"github.com/gwillem/handremap/pkg/skeleton"
)

const DefaultConfigFile = "handremap.json"

// Source kinds.
const (
	SourceStatic    = "static"
	SourceWebSocket = "websocket"
	SourceGlove     = "glove"
)

// Config holds the handremap configuration
type Config struct {
	Skeleton   SkeletonConfig `json:"skeleton"`
	Convention string         `json:"convention"`
	SkipRoot   bool           `json:"skip_root,omitempty"`
	WristOnly  bool           `json:"wrist_only,omitempty"`
	Mapping    string         `json:"mapping,omitempty"` // YAML table, for the custom convention
	Source     SourceConfig   `json:"source"`
	Hz         int            `json:"hz,omitempty"`
}

// SkeletonConfig points at the target skeleton. An empty path selects the
// built-in reference hand.
type SkeletonConfig struct {
	Path  string   `json:"path,omitempty"`
	Skin  int      `json:"skin,omitempty"`
	Bones []string `json:"bones,omitempty"` // active subset; empty means all
}

// SourceConfig selects where tracked frames come from.
type SourceConfig struct {
	Kind        string            `json:"kind"`
	URL         string            `json:"url,omitempty"`
	Port        string            `json:"port,omitempty"`
	Calibration glove.Calibration `json:"calibration,omitempty"`
}

// IsCalibrated returns true if a glove source has calibration data
func (s *SourceConfig) IsCalibrated() bool {
	return len(s.Calibration) > 0
}

// Default returns a configuration driving the reference right hand from a
// static frame.
func Default() *Config {
	return &Config{
		Convention: mapping.UE4DefaultRight.String(),
		Source:     SourceConfig{Kind: SourceStatic},
		Hz:         60,
	}
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that have a fixed set of values.
func (c *Config) Validate() error {
	conv, err := mapping.ParseConvention(c.Convention)
	if err != nil {
		return err
	}
	if conv == mapping.Custom && c.Mapping == "" {
		return fmt.Errorf("custom convention needs a mapping file")
	}
	switch c.Source.Kind {
	case SourceStatic:
	case SourceWebSocket:
		if c.Source.URL == "" {
			return fmt.Errorf("websocket source needs a url")
		}
	case SourceGlove:
		if c.Source.Port == "" {
			return fmt.Errorf("glove source needs a port")
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	if c.Hz < 0 {
		return fmt.Errorf("hz must not be negative, got %d", c.Hz)
	}
	return nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}

// Hand returns the tracked hand the configuration targets. A custom
// convention reads it from the mapping file.
func (c *Config) Hand() (handtrack.Hand, error) {
	conv, err := mapping.ParseConvention(c.Convention)
	if err != nil {
		return handtrack.Right, err
	}
	if conv == mapping.Custom && c.Mapping != "" {
		t, err := mapping.LoadTable(c.Mapping)
		if err != nil {
			return handtrack.Right, fmt.Errorf("load mapping: %w", err)
		}
		return t.Hand, nil
	}
	return conv.Hand(), nil
}

// LoadSkeleton loads the configured skeleton: glTF for .gltf/.glb files,
// YAML otherwise, and the reference hand when no path is set.
func (c *Config) LoadSkeleton() (*skeleton.Skeleton, error) {
	if c.Skeleton.Path == "" {
		hand, err := c.Hand()
		if err != nil {
			return nil, err
		}
		return mapping.ReferenceSkeleton(hand), nil
	}
	switch strings.ToLower(filepath.Ext(c.Skeleton.Path)) {
	case ".gltf", ".glb":
		return skeleton.LoadGLTF(c.Skeleton.Path, c.Skeleton.Skin)
	default:
		return skeleton.LoadYAML(c.Skeleton.Path)
	}
}

// LoadContainer loads the skeleton and selects the configured active bones.
func (c *Config) LoadContainer() (*skeleton.BoneContainer, error) {
	sk, err := c.LoadSkeleton()
	if err != nil {
		return nil, err
	}
	if len(c.Skeleton.Bones) == 0 {
		return skeleton.NewBoneContainer(sk, nil)
	}
	return skeleton.NewBoneContainer(sk, c.Skeleton.Bones)
}

// Node builds a control node from the configuration. A custom convention
// reads its pairs from the mapping file.
func (c *Config) Node() (*retarget.Node, error) {
	conv, err := mapping.ParseConvention(c.Convention)
	if err != nil {
		return nil, err
	}
	node := retarget.NewNode(conv, c.SkipRoot, c.WristOnly)
	if c.Mapping != "" {
		t, err := mapping.LoadTable(c.Mapping)
		if err != nil {
			return nil, err
		}
		node.Table = t
	}
	return node, nil
}
