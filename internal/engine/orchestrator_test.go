package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elefant-ai/p2vn/internal/engine"
	"github.com/elefant-ai/p2vn/internal/services"
	"github.com/elefant-ai/p2vn/internal/storage"
	"github.com/elefant-ai/p2vn/pkg/blueprint"
	"github.com/elefant-ai/p2vn/pkg/chat"
	"github.com/elefant-ai/p2vn/pkg/events"
	"github.com/elefant-ai/p2vn/pkg/state"
	"github.com/elefant-ai/p2vn/pkg/tools"
)

const stepTimeout = 2 * time.Second

// harness runs the orchestrator on a background goroutine and lets the
// test drive the suspension protocol step by step.
type harness struct {
	t     *testing.T
	reg   *blueprint.StaticRegistry
	store *storage.MockStorage
	llm   *services.MockLLM
	ps    *state.PlayerState
	orc   *engine.Orchestrator

	mu     sync.Mutex
	events []events.Event

	inputReq    chan func(text string)
	continueReq chan func()
	done        chan error
}

func newHarness(t *testing.T, scene blueprint.Scene) *harness {
	t.Helper()

	reg := blueprint.NewStaticRegistry()
	reg.Game = blueprint.Game{
		Title:             "Blackout",
		StartingScene:     "scene_1",
		PlayerCharacterID: "you",
		Items: map[string]blueprint.Item{
			"keycard": {ID: "keycard", Name: "Maintenance Keycard"},
		},
	}
	reg.Characters["you"] = blueprint.Character{ID: "you", Name: "You", Role: "player"}
	reg.Characters["riley"] = blueprint.Character{ID: "riley", Name: "Riley", Role: "heroine"}
	reg.Scenes[scene.ID] = scene

	h := &harness{
		t:           t,
		reg:         reg,
		store:       storage.NewMockStorage(),
		llm:         services.NewMockLLM(),
		ps:          state.NewPlayerState(),
		inputReq:    make(chan func(string), 1),
		continueReq: make(chan func(), 1),
		done:        make(chan error, 1),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orc, err := engine.NewOrchestrator(reg, h.store, h.llm, h.ps, logger)
	require.NoError(t, err)

	orc.OnEvent(func(ev events.Event) {
		h.mu.Lock()
		h.events = append(h.events, ev)
		h.mu.Unlock()
	})
	orc.OnNeedPlayerInput(func(resolve func(string)) { h.inputReq <- resolve })
	orc.OnNeedContinue(func(resolve func()) { h.continueReq <- resolve })

	h.orc = orc
	return h
}

func (h *harness) start(sceneID string) {
	go func() {
		h.done <- h.orc.StartScene(context.Background(), sceneID)
	}()
}

func (h *harness) ack() {
	h.t.Helper()
	select {
	case resolve := <-h.continueReq:
		resolve()
	case <-time.After(stepTimeout):
		h.t.Fatal("timed out waiting for a continue request")
	}
}

func (h *harness) submit(text string) {
	h.t.Helper()
	select {
	case resolve := <-h.inputReq:
		resolve(text)
	case <-time.After(stepTimeout):
		h.t.Fatal("timed out waiting for a player-input request")
	}
}

func (h *harness) finish() error {
	h.t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(stepTimeout):
		h.t.Fatal("timed out waiting for the scene to finish")
		return nil
	}
}

func (h *harness) recorded() []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]events.Event(nil), h.events...)
}

func (h *harness) eventKinds() []string {
	var kinds []string
	for _, ev := range h.recorded() {
		kinds = append(kinds, ev.Kind())
	}
	return kinds
}

func basicScene() blueprint.Scene {
	return blueprint.Scene{
		ID:         "scene_1",
		Title:      "Rooftop at Dusk",
		Background: "rooftop_dusk",
		Characters: []string{"you", "riley"},
		Goals: []blueprint.Goal{
			{ID: "g1", CharacterID: "riley", Description: "Earn the player's trust."},
		},
	}
}

func textResponse(text string) *chat.ChatResponse {
	return &chat.ChatResponse{Message: text}
}

func toolResponse(calls ...chat.ToolCall) *chat.ChatResponse {
	return &chat.ChatResponse{ToolCalls: calls}
}

func call(id, name, args string) chat.ToolCall {
	return chat.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func endSceneCall(id, result, summary string) chat.ToolCall {
	return call(id, "end-scene", fmt.Sprintf(`{"result":%q,"summary":%q}`, result, summary))
}

func TestSceneHappyPath(t *testing.T) {
	scene := basicScene()
	scene.OpeningNarration = "The city below has gone dark."
	h := newHarness(t, scene)

	h.llm.Script(
		textResponse("Hello there."),
		toolResponse(endSceneCall("t1", "success", "Trust earned.")),
	)

	h.start("scene_1")

	h.ack() // opening narration typewriter
	h.ack() // "Hello there." chunk
	h.submit("Hi")

	require.NoError(t, h.finish())

	evs := h.recorded()
	require.Equal(t,
		[]string{"scene_loaded", "typewriter", "dialogue_chunk", "ai_thinking", "scene_ended"},
		h.eventKinds())

	loaded := evs[0].(events.SceneLoaded)
	assert.Equal(t, "scene_1", loaded.SceneID)
	assert.Equal(t, "riley", loaded.ActiveCharacterID)
	require.Len(t, loaded.Participants, 2)
	assert.Equal(t, "you", loaded.Participants[0].ID)

	tw := evs[1].(events.Typewriter)
	assert.Equal(t, "The city below has gone dark.", tw.Text)
	assert.Greater(t, tw.Duration, time.Duration(0))

	chunk := evs[2].(events.DialogueChunk)
	assert.Equal(t, "riley", chunk.SpeakerID)
	assert.Equal(t, "Riley", chunk.SpeakerName)
	assert.Equal(t, "Hello there.", chunk.Text)

	ended := evs[4].(events.SceneEnded)
	assert.Equal(t, "success", ended.Result)
	assert.Equal(t, "Trust earned.", ended.Summary)

	// The player's input reached the model verbatim.
	last := h.llm.LastCall()
	require.NotNil(t, last)
	assert.Equal(t, chat.ChatRoleUser, last.Messages[len(last.Messages)-1].Role)
	assert.Equal(t, "Hi", last.Messages[len(last.Messages)-1].Content)
}

func TestSystemPromptFirstAndOnce(t *testing.T) {
	h := newHarness(t, basicScene())
	h.llm.Script(
		textResponse("One."),
		toolResponse(endSceneCall("t1", "neutral", "")),
	)

	h.start("scene_1")
	h.ack()
	h.submit("Bye")
	require.NoError(t, h.finish())

	for _, c := range h.llm.Calls {
		require.NotEmpty(t, c.Messages)
		assert.Equal(t, chat.ChatRoleSystem, c.Messages[0].Role, "system prompt leads every call")
		systems := 0
		for _, m := range c.Messages {
			if m.Role == chat.ChatRoleSystem {
				systems++
			}
		}
		assert.Equal(t, 1, systems, "system prompt is never re-inserted")
	}
}

func TestToolCatalogBuiltOnce(t *testing.T) {
	h := newHarness(t, basicScene())
	h.llm.Script(
		textResponse("One."),
		toolResponse(endSceneCall("t1", "neutral", "")),
	)

	h.start("scene_1")
	h.ack()
	h.submit("Bye")
	require.NoError(t, h.finish())

	// Schema reflection happens once at construction; every model call
	// receives the same backing slice.
	require.GreaterOrEqual(t, len(h.llm.Calls), 2)
	first := h.llm.Calls[0].Catalog
	second := h.llm.Calls[1].Catalog
	require.NotEmpty(t, first)
	assert.Same(t, &first[0], &second[0])
}

func TestDialogueChunkGating(t *testing.T) {
	h := newHarness(t, basicScene())
	h.llm.Script(
		textResponse("First. Second! Third?"),
		toolResponse(endSceneCall("t1", "neutral", "")),
	)

	h.start("scene_1")
	h.ack()
	h.ack()
	h.ack()
	h.submit("ok")
	require.NoError(t, h.finish())

	var texts []string
	for _, ev := range h.recorded() {
		if c, ok := ev.(events.DialogueChunk); ok {
			texts = append(texts, c.Text)
		}
	}
	assert.Equal(t, []string{"First.", "Second!", "Third?"}, texts)
}

func TestObjectivesResetOnSceneLoad(t *testing.T) {
	scene := basicScene()
	scene.Goals = append(scene.Goals, blueprint.Goal{ID: "g2", Description: "Survive the night."})
	h := newHarness(t, scene)

	h.ps.SetObjectives([]string{"Stale objective from last scene"})
	h.llm.Script(toolResponse(endSceneCall("t1", "neutral", "")))

	h.start("scene_1")
	require.NoError(t, h.finish())

	assert.Equal(t,
		[]string{"Riley: Earn the player's trust.", "Survive the night."},
		h.ps.Dossier.Objectives)
}

func TestTerminalToolShortCircuitsBatch(t *testing.T) {
	h := newHarness(t, basicScene())
	h.llm.Script(toolResponse(
		call("t1", "set-flag", `{"name":"before","value":true}`),
		endSceneCall("t2", "success", ""),
		call("t3", "set-flag", `{"name":"after","value":true}`),
	))

	h.start("scene_1")
	require.NoError(t, h.finish())

	assert.True(t, h.ps.GetFlag("before"), "calls before end-scene execute")
	assert.False(t, h.ps.GetFlag("after"), "calls after end-scene never execute")
}

func TestSceneTransitionAppliesEffects(t *testing.T) {
	scene := basicScene()
	scene.Goals[0].OnComplete = blueprint.GoalEffect{
		TransitionTo: "scene_2",
		GrantItems:   []string{"keycard"},
		UnlockRoute:  "route_b",
	}
	h := newHarness(t, scene)
	h.llm.Script(toolResponse(endSceneCall("t1", "success", "Done.")))

	h.start("scene_1")
	require.NoError(t, h.finish())

	kinds := h.eventKinds()
	assert.Equal(t, "scene_transition", kinds[len(kinds)-1])
	assert.NotContains(t, kinds, "scene_ended", "transition replaces the terminal event")

	assert.Equal(t, "scene_2", h.ps.CurrentScene)
	assert.True(t, h.ps.HasItem("keycard"))
	assert.True(t, h.ps.IsRouteUnlocked("route_b"))

	// The pointer was persisted, so a crash after the event resumes at
	// the new scene.
	saved, err := h.store.LoadPlayerState(context.Background(), h.ps.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "scene_2", saved.CurrentScene)
}

func TestSceneEndedLeavesPointerUnchanged(t *testing.T) {
	h := newHarness(t, basicScene())
	h.ps.CurrentScene = "scene_1"
	h.llm.Script(toolResponse(endSceneCall("t1", "fail", "It went badly.")))

	h.start("scene_1")
	require.NoError(t, h.finish())

	evs := h.recorded()
	ended := evs[len(evs)-1].(events.SceneEnded)
	assert.Equal(t, "fail", ended.Result)
	assert.Equal(t, "It went badly.", ended.Summary)
	assert.Equal(t, "scene_1", h.ps.CurrentScene)
}

func TestClosingNarrationBeforeTerminalEvent(t *testing.T) {
	scene := basicScene()
	scene.ClosingNarration = "Dawn finds the rooftop empty."
	h := newHarness(t, scene)
	h.llm.Script(toolResponse(endSceneCall("t1", "neutral", "")))

	h.start("scene_1")
	h.ack() // closing narration typewriter
	require.NoError(t, h.finish())

	assert.Equal(t, []string{"scene_loaded", "typewriter", "scene_ended"}, h.eventKinds())
}

func TestCharacterIntroductionShownOnce(t *testing.T) {
	scene := basicScene()
	h := newHarness(t, scene)
	h.reg.Characters["riley"] = blueprint.Character{
		ID: "riley", Name: "Riley", Role: "heroine",
		Introduction: "Riley. Night-shift engineer, insomniac.",
	}
	h.llm.Script(toolResponse(endSceneCall("t1", "neutral", "")))

	h.start("scene_1")
	h.ack() // introduction typewriter
	require.NoError(t, h.finish())

	assert.Contains(t, h.eventKinds(), "typewriter")
	assert.True(t, h.ps.IsIntroduced("riley"))

	// Second run of the same scene skips the introduction entirely.
	h.llm.Script(toolResponse(endSceneCall("t2", "neutral", "")))
	h.events = nil
	h.start("scene_1")
	require.NoError(t, h.finish())
	assert.NotContains(t, h.eventKinds(), "typewriter")
}

func TestUnknownSceneFailsFast(t *testing.T) {
	h := newHarness(t, basicScene())

	err := h.orc.StartScene(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, blueprint.ErrNotFound)
	assert.Empty(t, h.recorded(), "nothing is emitted for an unloadable scene")
}

func TestSceneWithoutNonPlayerParticipantFailsFast(t *testing.T) {
	scene := blueprint.Scene{ID: "scene_1", Title: "Alone", Characters: []string{"you"}}
	h := newHarness(t, scene)

	err := h.orc.StartScene(context.Background(), "scene_1")
	assert.ErrorIs(t, err, engine.ErrNoActiveCharacter)
}

func TestMissingContinueHandlerFailsLoudly(t *testing.T) {
	h := newHarness(t, basicScene())
	h.orc.OnNeedContinue(nil)
	h.llm.Script(textResponse("Hello."))

	err := h.orc.StartScene(context.Background(), "scene_1")
	assert.ErrorIs(t, err, engine.ErrNoContinueHandler)
}

func TestInferenceFailureRetry(t *testing.T) {
	h := newHarness(t, basicScene())

	var turnErrs []*engine.TurnError
	h.orc.OnTurnError(func(te *engine.TurnError) { turnErrs = append(turnErrs, te) })

	boom := errors.New("upstream 500")
	var calls int
	h.llm.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage, catalog []tools.Definition) (*chat.ChatResponse, error) {
		calls++
		switch calls {
		case 1:
			return textResponse("Hello."), nil
		case 2:
			return nil, boom // the player-initiated turn fails
		default:
			return toolResponse(endSceneCall("t1", "neutral", "")), nil
		}
	}

	h.start("scene_1")
	h.ack()
	h.submit("Hi")

	// The failed turn surfaces, then the engine awaits input again.
	h.submit("Hi")
	require.NoError(t, h.finish())

	require.Len(t, turnErrs, 1)
	assert.Equal(t, "Hi", turnErrs[0].Input, "the failed input is carried for re-submission")
	assert.ErrorIs(t, turnErrs[0], boom)

	// The transcript holds exactly one copy of the retried input.
	users := 0
	for _, m := range h.llm.LastCall().Messages {
		if m.Role == chat.ChatRoleUser {
			users++
		}
	}
	assert.Equal(t, 1, users)
}

func TestToolRoundCapYieldsTurn(t *testing.T) {
	h := newHarness(t, basicScene())

	// The model never stops asking for tools; the engine must yield to
	// the player instead of looping forever. Chat serializes ChatFunc
	// under the mock's mutex, so the counter is safe.
	var calls int
	h.llm.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage, catalog []tools.Definition) (*chat.ChatResponse, error) {
		calls++
		if calls <= 5 {
			return toolResponse(call("t", "read-state", `{"paths":["flags"]}`)), nil
		}
		return toolResponse(endSceneCall("t1", "neutral", "")), nil
	}

	h.start("scene_1")
	h.submit("") // reaching the input request proves the cap fired
	require.NoError(t, h.finish())

	// 1 capped turn (5 rounds) + 1 ending call.
	assert.Len(t, h.llm.Calls, 6)
}
