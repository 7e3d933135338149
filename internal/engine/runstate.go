package engine

import (
	"fmt"

	"github.com/elefant-ai/p2vn/pkg/blueprint"
	"github.com/elefant-ai/p2vn/pkg/chat"
	"github.com/elefant-ai/p2vn/pkg/events"
)

// Participant is one resolved scene character plus the subset of scene
// goals it owns.
type Participant struct {
	Character blueprint.Character
	Goals     []blueprint.Goal
}

// sceneRun is the per-scene working state: the resolved definitions, the
// active (AI-voiced) character, and the transcript. It is born at
// StartScene and discarded on scene change or end; continuity across
// scenes lives only in the persistent player state.
type sceneRun struct {
	scene        blueprint.Scene
	participants map[string]Participant
	order        []string // participant ids in definition order
	activeID     string
	playerID     string // player-role participant, "" if the scene has none
	transcript   []chat.ChatMessage
}

// resolveScene loads and cross-checks everything a scene needs. Lookup
// failures and a missing non-player participant are fatal to startScene.
func resolveScene(registry blueprint.Registry, sceneID string) (*sceneRun, error) {
	scene, err := registry.GetScene(sceneID)
	if err != nil {
		return nil, fmt.Errorf("loading scene: %w", err)
	}

	run := &sceneRun{
		scene:        *scene,
		participants: make(map[string]Participant, len(scene.Characters)),
		order:        append([]string(nil), scene.Characters...),
	}

	for _, charID := range scene.Characters {
		char, err := registry.GetCharacter(charID)
		if err != nil {
			return nil, fmt.Errorf("loading scene %q participant: %w", sceneID, err)
		}
		run.participants[charID] = Participant{
			Character: *char,
			Goals:     scene.GoalsFor(charID),
		}
		if char.IsPlayer() && run.playerID == "" {
			run.playerID = charID
		}
		// The active character is the first non-player participant.
		if !char.IsPlayer() && run.activeID == "" {
			run.activeID = charID
		}
	}

	if run.activeID == "" {
		return nil, fmt.Errorf("scene %q: %w", sceneID, ErrNoActiveCharacter)
	}

	return run, nil
}

func (r *sceneRun) active() Participant {
	return r.participants[r.activeID]
}

func (r *sceneRun) append(msg chat.ChatMessage) {
	r.transcript = append(r.transcript, msg)
}

// loadedEvent builds the scene_loaded payload from the resolved run-state.
func (r *sceneRun) loadedEvent() events.SceneLoaded {
	parts := make([]events.Participant, 0, len(r.order))
	for _, id := range r.order {
		p := r.participants[id]
		var goals []string
		for _, g := range p.Goals {
			goals = append(goals, g.Description)
		}
		parts = append(parts, events.Participant{
			ID:    p.Character.ID,
			Name:  p.Character.Name,
			Role:  p.Character.Role,
			Goals: goals,
		})
	}
	return events.SceneLoaded{
		SceneID:           r.scene.ID,
		Title:             r.scene.Title,
		Background:        r.scene.Background,
		ActiveCharacterID: r.activeID,
		Participants:      parts,
	}
}
