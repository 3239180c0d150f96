package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/nordatlas/atlas-cli/internal/model"
)

// sourcesFile is the on-disk shape of the layer source definitions.
type sourcesFile struct {
	Sources []model.SourceConfig `yaml:"sources"`
}

// DefaultSources returns the built-in layer set: the embedded landmark
// dataset, shown by default, and the national AED registry, hidden until
// toggled on.
func DefaultSources() []model.SourceConfig {
	return []model.SourceConfig{
		{
			ID:             "landmarks",
			Kind:           model.KindStatic,
			DisplayName:    "Landmarks",
			DefaultVisible: true,
		},
		{
			ID:             "hjertestarter",
			Kind:           model.KindRegistryOAuth,
			DisplayName:    "Hjertestarter",
			DefaultVisible: false,
		},
	}
}

// LoadSources reads layer source definitions from a YAML file. An empty path
// yields the built-in defaults.
func LoadSources(path string) ([]model.SourceConfig, error) {
	if path == "" {
		return DefaultSources(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read sources %s", path)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "config: parse sources %s", path)
	}
	if len(f.Sources) == 0 {
		return nil, eris.Errorf("config: no sources defined in %s", path)
	}

	seen := map[string]bool{}
	for i := range f.Sources {
		s := &f.Sources[i]
		if s.ID == "" {
			return nil, eris.Errorf("config: source %d is missing an id", i)
		}
		if seen[s.ID] {
			return nil, eris.Errorf("config: duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
		if !s.Kind.Valid() {
			return nil, eris.Errorf("config: source %s has unknown kind %q", s.ID, s.Kind)
		}
		if s.Color == "" {
			s.Color = model.DefaultLayerColor
		}
	}
	return f.Sources, nil
}
