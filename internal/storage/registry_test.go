package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "game.json"), `{
		"title": "Blackout",
		"starting_route": "route_main",
		"starting_scene": "scene_1",
		"player_character_id": "you",
		"items": {"keycard": {"id": "keycard", "name": "Maintenance Keycard"}}
	}`)
	writeFile(t, filepath.Join(dir, "scenes", "scene_1.json"), `{
		"title": "Rooftop at Dusk",
		"characters": ["you", "riley"],
		"goals": [{"id": "g1", "character_id": "riley", "description": "Earn trust."}]
	}`)
	writeFile(t, filepath.Join(dir, "characters", "riley.json"), `{
		"name": "Riley",
		"role": "heroine"
	}`)
	writeFile(t, filepath.Join(dir, "characters", "you.json"), `{
		"name": "You",
		"role": "player"
	}`)

	reg, err := LoadRegistry(dir)
	require.NoError(t, err)

	game, err := reg.GetGame()
	require.NoError(t, err)
	assert.Equal(t, "Blackout", game.Title)
	assert.Equal(t, "you", game.PlayerCharacterID)

	scene, err := reg.GetScene("scene_1")
	require.NoError(t, err)
	assert.Equal(t, "scene_1", scene.ID, "filename supplies the id")
	assert.Equal(t, []string{"you", "riley"}, scene.Characters)

	char, err := reg.GetCharacter("riley")
	require.NoError(t, err)
	assert.Equal(t, "Riley", char.Name)
}

func TestLoadRegistryMissingGame(t *testing.T) {
	_, err := LoadRegistry(t.TempDir())
	assert.Error(t, err)
}

func TestLoadRegistryInvalidScene(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "game.json"), `{"title": "X", "player_character_id": "you"}`)
	writeFile(t, filepath.Join(dir, "scenes", "bad.json"), `{"title": "No participants"}`)

	_, err := LoadRegistry(dir)
	assert.Error(t, err, "scene without participants must fail validation")
}
