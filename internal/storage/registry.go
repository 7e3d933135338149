package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/elefant-ai/p2vn/pkg/blueprint"
)

// LoadRegistry builds a static registry from a content directory:
//
//	<dataDir>/game.json
//	<dataDir>/scenes/<scene_id>.json
//	<dataDir>/characters/<character_id>.json
//
// Filenames override any id embedded in the JSON.
func LoadRegistry(dataDir string) (*blueprint.StaticRegistry, error) {
	reg := blueprint.NewStaticRegistry()

	gameData, err := os.ReadFile(filepath.Join(dataDir, "game.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read game definition: %w", err)
	}
	if err := json.Unmarshal(gameData, &reg.Game); err != nil {
		return nil, fmt.Errorf("failed to parse game definition: %w", err)
	}

	scenes, err := loadJSONDir(filepath.Join(dataDir, "scenes"))
	if err != nil {
		return nil, err
	}
	for id, data := range scenes {
		var s blueprint.Scene
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse scene %s: %w", id, err)
		}
		s.ID = id
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("invalid scene %s: %w", id, err)
		}
		reg.Scenes[id] = s
	}

	characters, err := loadJSONDir(filepath.Join(dataDir, "characters"))
	if err != nil {
		return nil, err
	}
	for id, data := range characters {
		var c blueprint.Character
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse character %s: %w", id, err)
		}
		c.ID = id
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid character %s: %w", id, err)
		}
		reg.Characters[id] = c
	}

	return reg, nil
}

// loadJSONDir reads every .json file in dir, keyed by filename sans
// extension. A missing directory yields an empty map.
func loadJSONDir(dir string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		out[id] = data
	}

	return out, nil
}
