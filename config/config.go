// Package config holds the exporter configuration: which layers are
// excluded, how numeric layer prefixes map to output files, and texture
// processing options.
package config

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Range is an inclusive integer range or an explicit set of values.
// When Set is non-empty it takes priority over From/To.
type Range struct {
	From int   `yaml:"from"`
	To   int   `yaml:"to"`
	Set  []int `yaml:"set,omitempty"`
}

// Contains reports whether n falls inside the range.
func (r Range) Contains(n int) bool {
	if len(r.Set) > 0 {
		for _, v := range r.Set {
			if v == n {
				return true
			}
		}
		return false
	}
	return n >= r.From && n <= r.To
}

// Empty reports whether the range matches nothing.
func (r Range) Empty() bool {
	return len(r.Set) == 0 && r.From == 0 && r.To == 0
}

// TextureConfig controls texture extraction output.
type TextureConfig struct {
	// Downscale enables resizing of extracted textures.
	Downscale bool `yaml:"downscale"`
	// MaxDimension caps the larger side of an extracted texture. 0 = unlimited.
	MaxDimension int `yaml:"max_dimension"`
	// ScaleFactor is applied before the MaxDimension cap. 0 means 1.0.
	ScaleFactor float64 `yaml:"scale_factor"`
	// SolidColorFallback synthesizes a 1x1 texture from the material color
	// when a material has no extractable texture. When false the material
	// relies on baseColorFactor alone.
	SolidColorFallback bool `yaml:"solid_color_fallback"`
}

// ProgressFunc receives cooperative progress updates during an export run.
type ProgressFunc func(stage string, done, total int)

type Config struct {
	// ExcludedLayerPattern is a regexp; entities on matching layers are
	// never exported. Exclusion is transitive over the scene graph.
	ExcludedLayerPattern string `yaml:"excluded_layer_pattern"`

	// TagRanges maps an output file base name to the layer-prefix range
	// that feeds it.
	TagRanges map[string]Range `yaml:"tag_ranges"`

	// SkipRange is always excluded, independent of TagRanges.
	SkipRange Range `yaml:"skip_range"`

	// MaxNestingDepth guards scene-graph traversal against runaway nesting.
	MaxNestingDepth int `yaml:"max_nesting_depth"`

	Textures TextureConfig `yaml:"textures"`

	// Progress, when set, is invoked as the export advances.
	Progress ProgressFunc `yaml:"-"`
}

// Default returns the stock configuration: the standard tag-range table,
// reserved layers 1-4 skipped, and solid-color fallback textures on.
func Default() *Config {
	return &Config{
		ExcludedLayerPattern: `(?i)_noexport$`,
		TagRanges: map[string]Range{
			"LandscapeEnvironment": {From: 5, To: 9},
			"MainBuildingModel":    {From: 10, To: 19},
			"GroundFloorDecor":     {Set: []int{39}},
		},
		SkipRange:       Range{From: 1, To: 4},
		MaxNestingDepth: 20,
		Textures: TextureConfig{
			ScaleFactor:        1.0,
			SolidColorFallback: true,
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %q", path)
	}
	if cfg.Textures.ScaleFactor == 0 {
		cfg.Textures.ScaleFactor = 1.0
	}
	if cfg.MaxNestingDepth <= 0 {
		cfg.MaxNestingDepth = 20
	}
	return cfg, nil
}

// PartitionNames returns the tag-range names in stable order.
func (c *Config) PartitionNames() []string {
	names := make([]string, 0, len(c.TagRanges))
	for name := range c.TagRanges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PartitionFor resolves a layer-prefix number to an output name.
func (c *Config) PartitionFor(n int) (string, bool) {
	if c.SkipRange.Contains(n) && !c.SkipRange.Empty() {
		return "", false
	}
	for _, name := range c.PartitionNames() {
		if c.TagRanges[name].Contains(n) {
			return name, true
		}
	}
	return "", false
}
