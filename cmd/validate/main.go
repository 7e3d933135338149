package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/elefant-ai/p2vn/internal/storage"
	"github.com/elefant-ai/p2vn/pkg/blueprint"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <content-dir>\n", os.Args[0])
		os.Exit(1)
	}

	dataDir := os.Args[1]
	fmt.Printf("Validating %s...\n", dataDir)

	reg, err := storage.LoadRegistry(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	validator := &ContentValidator{registry: reg}
	if err := validator.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("Game content is valid!")
}

// ContentValidator cross-checks references between the game definition,
// scenes and characters after each file has passed its own Validate.
type ContentValidator struct {
	registry *blueprint.StaticRegistry
	errors   []string
}

func (v *ContentValidator) validate() error {
	game := v.registry.Game

	v.validateIDFormat("player_character_id", game.PlayerCharacterID)
	if game.StartingScene == "" {
		v.addError("game has no starting_scene")
	} else if _, ok := v.registry.Scenes[game.StartingScene]; !ok {
		v.addError(fmt.Sprintf("starting_scene '%s' does not exist", game.StartingScene))
	}

	for itemID := range game.Items {
		v.validateIDFormat("item ID", itemID)
	}

	routeScenes := make(map[string]bool)
	for _, route := range game.Routes {
		v.validateIDFormat("route ID", route.ID)
		for _, sceneID := range route.Scenes {
			routeScenes[sceneID] = true
			if _, ok := v.registry.Scenes[sceneID]; !ok {
				v.addError(fmt.Sprintf("route '%s' references unknown scene '%s'", route.ID, sceneID))
			}
		}
	}

	for charID := range v.registry.Characters {
		v.validateIDFormat("character ID", charID)
	}

	for sceneID, scene := range v.registry.Scenes {
		v.validateIDFormat("scene ID", sceneID)
		v.validateScene(&scene)
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *ContentValidator) validateScene(scene *blueprint.Scene) {
	players := 0
	nonPlayers := 0

	for _, charID := range scene.Characters {
		char, ok := v.registry.Characters[charID]
		if !ok {
			v.addError(fmt.Sprintf("scene '%s' references unknown character '%s'", scene.ID, charID))
			continue
		}
		if char.IsPlayer() {
			players++
		} else {
			nonPlayers++
		}
	}

	if players != 1 {
		v.addError(fmt.Sprintf("scene '%s' must have exactly one player-role participant, has %d", scene.ID, players))
	}
	if nonPlayers == 0 {
		v.addError(fmt.Sprintf("scene '%s' has no character for the engine to voice", scene.ID))
	}

	transitions := 0
	for _, goal := range scene.Goals {
		v.validateGoal(scene, &goal)
		if goal.OnComplete.TransitionTo != "" {
			transitions++
		}
	}
	if transitions > 1 {
		v.addError(fmt.Sprintf("scene '%s' has %d transition goals; only the first is ever applied", scene.ID, transitions))
	}
}

func (v *ContentValidator) validateGoal(scene *blueprint.Scene, goal *blueprint.Goal) {
	label := fmt.Sprintf("goal '%s' in scene '%s'", goal.ID, scene.ID)

	if goal.CharacterID != "" && !containsString(scene.Characters, goal.CharacterID) {
		v.addError(fmt.Sprintf("%s is owned by '%s', who is not a participant", label, goal.CharacterID))
	}

	if goal.OnComplete.TransitionTo != "" {
		if _, ok := v.registry.Scenes[goal.OnComplete.TransitionTo]; !ok {
			v.addError(fmt.Sprintf("%s transitions to unknown scene '%s'", label, goal.OnComplete.TransitionTo))
		}
	}
	for _, itemID := range goal.OnComplete.GrantItems {
		if _, ok := v.registry.Game.Items[itemID]; !ok {
			v.addError(fmt.Sprintf("%s grants unknown item '%s'", label, itemID))
		}
	}
	if routeID := goal.OnComplete.UnlockRoute; routeID != "" && !routeExists(v.registry.Game.Routes, routeID) {
		v.addError(fmt.Sprintf("%s unlocks unknown route '%s'", label, routeID))
	}
}

func (v *ContentValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *ContentValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func routeExists(routes []blueprint.Route, id string) bool {
	for _, r := range routes {
		if r.ID == id {
			return true
		}
	}
	return false
}
