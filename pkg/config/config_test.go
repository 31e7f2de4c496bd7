package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/handremap/pkg/glove"
	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/mapping"
)

func TestSaveLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)

	cfg := Default()
	cfg.Convention = mapping.UE4DefaultLeft.String()
	cfg.SkipRoot = true
	cfg.Source = SourceConfig{
		Kind: SourceGlove,
		Port: "/dev/ttyUSB0",
		Calibration: glove.Calibration{
			handtrack.Index: {ID: 2, RangeMin: 1000, RangeMax: 3000},
		},
	}
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.True(t, loaded.Source.IsCalibrated())
	hand, err := loaded.Hand()
	require.NoError(t, err)
	assert.Equal(t, handtrack.Left, hand)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"skip_root": true}`), 0644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "ue4_right", cfg.Convention)
	assert.Equal(t, SourceStatic, cfg.Source.Kind)
	assert.Equal(t, 60, cfg.Hz)
	assert.True(t, cfg.SkipRoot)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"default", func(*Config) {}, true},
		{"bad convention", func(c *Config) { c.Convention = "mixamo" }, false},
		{"custom without mapping", func(c *Config) { c.Convention = "custom" }, false},
		{"custom with mapping", func(c *Config) { c.Convention = "custom"; c.Mapping = "m.yaml" }, true},
		{"websocket without url", func(c *Config) { c.Source.Kind = SourceWebSocket }, false},
		{"websocket", func(c *Config) { c.Source = SourceConfig{Kind: SourceWebSocket, URL: "ws://localhost:9000"} }, true},
		{"glove without port", func(c *Config) { c.Source.Kind = SourceGlove }, false},
		{"unknown source", func(c *Config) { c.Source.Kind = "leap" }, false},
		{"zero hz", func(c *Config) { c.Hz = 0 }, true},
		{"negative hz", func(c *Config) { c.Hz = -1 }, false},
	}

	for _, tt := range tests {
		cfg := Default()
		tt.modify(cfg)
		err := cfg.Validate()
		if tt.valid && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestConfig_Node(t *testing.T) {
	dir := t.TempDir()
	tbl := mapping.NewTable()
	tbl.BuildDefault(mapping.UE4DefaultLeft, false)
	mappingPath := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, mapping.SaveTable(mappingPath, tbl))

	cfg := Default()
	cfg.Convention = "custom"
	cfg.Mapping = mappingPath

	hand, err := cfg.Hand()
	require.NoError(t, err)
	assert.Equal(t, handtrack.Left, hand)

	c, err := cfg.LoadContainer()
	require.NoError(t, err)
	assert.Equal(t, "ue4_hand_l", c.Skeleton().Name)

	node, err := cfg.Node()
	require.NoError(t, err)
	node.InitializeBoneReferences(c)
	assert.True(t, node.IsValidToEvaluate(c))
	assert.Equal(t, 16, node.Table.ResolvedCount())
}

func TestConfig_BoneSubset(t *testing.T) {
	cfg := Default()
	cfg.Skeleton.Bones = []string{"index_03_r"}

	c, err := cfg.LoadContainer()
	require.NoError(t, err)
	assert.Equal(t, 5, c.Len()) // lowerarm, hand, index chain
}

func TestConfig_HandMissingMapping(t *testing.T) {
	cfg := Default()
	cfg.Convention = "custom"
	cfg.Mapping = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := cfg.Hand()
	assert.Error(t, err)

	_, err = cfg.LoadSkeleton()
	assert.Error(t, err, "reference skeleton must not silently fall back to the right hand")
}
