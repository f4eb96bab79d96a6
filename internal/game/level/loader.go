package level

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/gamehub/internal/game/entity"
)

// yamlLevelFile is the top-level YAML structure for level files.
type yamlLevelFile struct {
	Level yamlLevel `yaml:"level"`
}

type yamlLevel struct {
	ID      string         `yaml:"id"`
	Paused  bool           `yaml:"paused"`
	Camera  map[string]any `yaml:"camera"`
	Weather map[string]any `yaml:"weather"`
	Things  []yamlThing    `yaml:"things"`
}

type yamlThing struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Type      string         `yaml:"type"`
	Speed     float64        `yaml:"speed"`
	Tags      []string       `yaml:"tags"`
	Transform *yamlTransform `yaml:"transform"`
	Data      map[string]any `yaml:"data"`
}

type yamlTransform struct {
	Position *yamlVec3     `yaml:"position"`
	Rotation *yamlRotation `yaml:"rotation"`
	Scale    *yamlVec3     `yaml:"scale"`
}

type yamlVec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type yamlRotation struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Z     float64 `yaml:"z"`
	Order string  `yaml:"order"`
}

// LoadFromFile reads and validates a single level YAML file.
//
// Precondition: path must point to a level YAML file.
// Postcondition: Returns a validated Level or a non-nil error.
func LoadFromFile(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading level file %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates a level from YAML bytes.
//
// Postcondition: Returns a validated Level or a non-nil error.
func LoadFromBytes(data []byte) (*Level, error) {
	var file yamlLevelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing level YAML: %w", err)
	}
	lvl := convertYAMLLevel(file.Level)
	if err := lvl.Validate(); err != nil {
		return nil, fmt.Errorf("validating level: %w", err)
	}
	return lvl, nil
}

// LoadDir loads every .yaml/.yml file in dir. A missing directory yields an
// empty library so that games without level data still run.
//
// Postcondition: Returns a Library or the first load error.
func LoadDir(dir string) (*Library, error) {
	lib := NewLibrary()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return lib, nil
		}
		return nil, fmt.Errorf("reading level directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		lvl, err := LoadFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading level from %s: %w", name, err)
		}
		if err := lib.Add(lvl); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func convertYAMLLevel(yl yamlLevel) *Level {
	lvl := &Level{
		ID:      yl.ID,
		Paused:  yl.Paused,
		Camera:  yl.Camera,
		Weather: yl.Weather,
	}
	if lvl.Camera == nil {
		lvl.Camera = make(map[string]any)
	}
	if lvl.Weather == nil {
		lvl.Weather = make(map[string]any)
	}
	for _, yt := range yl.Things {
		t := entity.NewThing(yt.ID, yt.Name, yt.Type)
		t.Speed = yt.Speed
		if yt.Tags != nil {
			t.GameplayTags = yt.Tags
		}
		if yt.Data != nil {
			t.Data = yt.Data
		}
		if tr := yt.Transform; tr != nil {
			if tr.Position != nil {
				t.Transform.Position = entity.Vec3(*tr.Position)
			}
			if tr.Scale != nil {
				t.Transform.Scale = entity.Vec3(*tr.Scale)
			}
			if tr.Rotation != nil {
				t.Transform.Rotation = entity.Rotation{
					IsEuler: true,
					X:       tr.Rotation.X,
					Y:       tr.Rotation.Y,
					Z:       tr.Rotation.Z,
					Order:   tr.Rotation.Order,
				}
				if t.Transform.Rotation.Order == "" {
					t.Transform.Rotation.Order = "XYZ"
				}
			}
		}
		lvl.Things = append(lvl.Things, t)
	}
	return lvl
}
