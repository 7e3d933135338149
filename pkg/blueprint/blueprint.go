package blueprint

// Package blueprint holds the immutable content definitions for a game:
// scenes, characters, routes and items. Definitions are loaded once by a
// Registry implementation and treated as read-only value data everywhere
// else; the engine copies what it needs when building run-state.

// RolePlayer marks the one participant per scene controlled by the user.
const RolePlayer = "player"

// Game is the top-level content descriptor.
type Game struct {
	Title             string          `json:"title"`
	StartingRoute     string          `json:"starting_route"`
	StartingScene     string          `json:"starting_scene"`
	PlayerCharacterID string          `json:"player_character_id"`
	DefaultLocale     string          `json:"default_locale,omitempty"` // BCP 47 tag, "en" when empty
	Items             map[string]Item `json:"items,omitempty"`
	Routes            []Route         `json:"routes,omitempty"`
}

// Route is an ordered arc of scenes. Routes other than the starting route
// begin locked and are opened through goal effects.
type Route struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Scenes      []string `json:"scenes,omitempty"`
}

// Item is a grantable inventory entry.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Scene is a self-contained dialogue encounter.
type Scene struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Background       string   `json:"background,omitempty"` // asset reference for the presentation layer
	OpeningNarration string   `json:"opening_narration,omitempty"`
	ClosingNarration string   `json:"closing_narration,omitempty"`
	Characters       []string `json:"characters"` // ordered participant ids
	Goals            []Goal   `json:"goals,omitempty"`
}

// Goal is a natural-language success condition judged by the LLM. The
// engine never evaluates Description programmatically; it only applies
// OnComplete effects when the scene ends.
type Goal struct {
	ID          string     `json:"id"`
	CharacterID string     `json:"character_id,omitempty"` // empty = scene-global
	Description string     `json:"description"`
	OnComplete  GoalEffect `json:"on_complete,omitempty"`
}

// GoalEffect is the bundle applied when a scene carrying the goal ends.
// At most one goal's TransitionTo is consulted per scene.
type GoalEffect struct {
	TransitionTo string   `json:"transition_to,omitempty"`
	GrantItems   []string `json:"grant_items,omitempty"`
	UnlockRoute  string   `json:"unlock_route,omitempty"`
}

// Character is a persona definition. Exactly one character per scene
// carries RolePlayer.
type Character struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Role          string            `json:"role"` // "player" or a flavor tag like "heroine", "rival"
	Personality   string            `json:"personality,omitempty"`
	Background    string            `json:"background,omitempty"`
	SpeakingStyle string            `json:"speaking_style,omitempty"`
	Introduction  string            `json:"introduction,omitempty"` // one-time reveal text
	Sprites       map[string]string `json:"sprites,omitempty"`      // mood -> asset reference
}

// IsPlayer reports whether the character is the user-controlled participant.
func (c Character) IsPlayer() bool {
	return c.Role == RolePlayer
}

// GoalsFor returns copies of the scene goals owned by the given character.
func (s *Scene) GoalsFor(characterID string) []Goal {
	var out []Goal
	for _, g := range s.Goals {
		if g.CharacterID == characterID {
			out = append(out, g)
		}
	}
	return out
}

// GlobalGoals returns copies of the scene goals with no owning character.
func (s *Scene) GlobalGoals() []Goal {
	var out []Goal
	for _, g := range s.Goals {
		if g.CharacterID == "" {
			out = append(out, g)
		}
	}
	return out
}
