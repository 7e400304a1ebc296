package strategy

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed presets/*.yaml
var presetFiles embed.FS

const (
	PresetAggressiveScalp = "aggressive_scalp"
	PresetLiquidationHunt = "liquidation_hunt"
	PresetMinimalPionex   = "minimal_pionex"
)

// Presets lists the names of the built-in strategies.
func Presets() []string {
	entries, err := presetFiles.ReadDir("presets")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}

	sort.Strings(names)

	return names
}

// PresetSource returns the YAML of a built-in strategy.
func PresetSource(name string) ([]byte, error) {
	data, err := presetFiles.ReadFile("presets/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q, available: %s", name, strings.Join(Presets(), ", "))
	}

	return data, nil
}

// Preset parses a built-in strategy.
func Preset(name string) (*Config, error) {
	data, err := PresetSource(name)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Resolve loads ref as a file when it exists, otherwise as a preset name.
func Resolve(ref string) (*Config, error) {
	if _, err := os.Stat(ref); err == nil {
		return Load(ref)
	}

	return Preset(ref)
}
