package prompts

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/elefant-ai/p2vn/pkg/blueprint"
)

// Assembler builds the system prompt for a scene + speaking-character pair
// using a fluent interface. It is deterministic, has no side effects, and
// is safe to call repeatedly.
type Assembler struct {
	registry      blueprint.Registry
	sceneID       string
	characterID   string
	locale        language.Tag
	defaultLocale language.Tag
}

// New creates an assembler bound to a content registry.
func New(registry blueprint.Registry) *Assembler {
	return &Assembler{
		registry:      registry,
		locale:        language.English,
		defaultLocale: language.English,
	}
}

// WithScene sets the scene to frame.
func (a *Assembler) WithScene(sceneID string) *Assembler {
	a.sceneID = sceneID
	return a
}

// WithCharacter sets the speaking character.
func (a *Assembler) WithCharacter(characterID string) *Assembler {
	a.characterID = characterID
	return a
}

// WithLocale sets the active and default locales. A directive is added
// only when they differ.
func (a *Assembler) WithLocale(active, def language.Tag) *Assembler {
	a.locale = active
	a.defaultLocale = def
	return a
}

// Build assembles the prompt text. Unresolvable scene or character ids
// propagate as lookup errors; identity fields are never defaulted.
func (a *Assembler) Build() (string, error) {
	scene, err := a.registry.GetScene(a.sceneID)
	if err != nil {
		return "", fmt.Errorf("assembling prompt: %w", err)
	}
	char, err := a.registry.GetCharacter(a.characterID)
	if err != nil {
		return "", fmt.Errorf("assembling prompt: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, BaseScenePrompt, char.Name, scene.Title, sceneFraming(scene))

	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, PersonaPrompt, orUnremarkable(char.Personality), orUnremarkable(char.Background), orUnremarkable(char.SpeakingStyle))

	goals := append(scene.GoalsFor(char.ID), scene.GlobalGoals()...)
	if len(goals) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(GoalsPrompt)
		for i, g := range goals {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, g.Description)
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(ToolProtocolPrompt)

	if a.locale != a.defaultLocale {
		name := display.English.Languages().Name(a.locale)
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, LanguageDirective, name, a.locale.String())
	}

	return sb.String(), nil
}

// Generate is the convenience form for the common case.
func Generate(registry blueprint.Registry, sceneID, characterID string, active, def language.Tag) (string, error) {
	return New(registry).
		WithScene(sceneID).
		WithCharacter(characterID).
		WithLocale(active, def).
		Build()
}

func sceneFraming(scene *blueprint.Scene) string {
	if scene.OpeningNarration != "" {
		return scene.OpeningNarration
	}
	return scene.Title
}

func orUnremarkable(s string) string {
	if s == "" {
		return "(unremarkable)"
	}
	return s
}
