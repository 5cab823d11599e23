package config

import (
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// LoadFile overlays a JSON5 configuration file onto base. Given
// "pipeline.json5" it reads, in increasing priority:
//  1. pipeline.json5
//  2. pipeline.local.json5
//
// Only non-zero values in the files override base. At least one of the two
// files must exist.
func LoadFile(base *Config, name string) (*Config, error) {
	out := *base
	out.GeoKeys = append(out.GeoKeys[:0:0], base.GeoKeys...)
	out.MedianIncome = maps.Clone(base.MedianIncome)

	prefix, ext := splitExt(filepath.Base(name))
	localName := filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))

	found := false
	for _, path := range []string{name, localName} {
		contents, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		found = true
		if len(contents) == 0 {
			continue
		}

		var override Config
		if err := json5.Unmarshal(contents, &override); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("config: merge %q: %w", path, err)
		}
		log.Printf("[config] merged overrides from %s", path)
	}

	if !found {
		return nil, fmt.Errorf("config: %q: %w", name, os.ErrNotExist)
	}
	return &out, nil
}
