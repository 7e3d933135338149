package events

import "time"

// Package events defines the contract between the scene orchestrator and
// the presentation layer: a typed event stream the orchestrator produces,
// and two suspension callbacks the presentation layer fulfills.

// Event is one UI-facing occurrence. Concrete types carry the payloads;
// consumers type-switch on them.
type Event interface {
	Kind() string
}

// Participant is the resolved view of one scene character.
type Participant struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Role  string   `json:"role"`
	Goals []string `json:"goals,omitempty"` // descriptions of goals this character owns
}

// SceneLoaded is emitted once per startScene with the full resolved
// run-state.
type SceneLoaded struct {
	SceneID           string        `json:"scene_id"`
	Title             string        `json:"title"`
	Background        string        `json:"background,omitempty"`
	ActiveCharacterID string        `json:"active_character_id"`
	Participants      []Participant `json:"participants"`
}

// Typewriter is a timed narration reveal sized to the text length.
type Typewriter struct {
	Text     string        `json:"text"`
	Duration time.Duration `json:"duration"`
}

// DialogueChunk is one sentence-like unit of character speech. Each chunk
// is gated by a continue acknowledgement before the next is emitted.
type DialogueChunk struct {
	SpeakerID   string `json:"speaker_id"`
	SpeakerName string `json:"speaker_name"`
	Text        string `json:"text"`
}

// AIThinking is emitted the instant player input is accepted, before the
// next model call resolves.
type AIThinking struct{}

// SceneTransition names the next scene. The caller is responsible for
// invoking startScene again.
type SceneTransition struct {
	NextSceneID string `json:"next_scene_id"`
}

// SceneEnded is terminal: the scene resolved with no follow-up scene.
type SceneEnded struct {
	Result  string `json:"result"`
	Summary string `json:"summary,omitempty"`
}

func (SceneLoaded) Kind() string     { return "scene_loaded" }
func (Typewriter) Kind() string      { return "typewriter" }
func (DialogueChunk) Kind() string   { return "dialogue_chunk" }
func (AIThinking) Kind() string      { return "ai_thinking" }
func (SceneTransition) Kind() string { return "scene_transition" }
func (SceneEnded) Kind() string      { return "scene_ended" }

// InputRequestFunc is invoked when the engine needs player text. The
// presentation layer must eventually call resolve exactly once.
type InputRequestFunc func(resolve func(text string))

// ContinueRequestFunc is invoked when the engine needs a continue
// acknowledgement. The presentation layer must eventually call resolve
// exactly once.
type ContinueRequestFunc func(resolve func())

// Emitter receives the orchestrator's event stream in order.
type Emitter func(Event)
