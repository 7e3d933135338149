package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/elefant-ai/p2vn/internal/logger"
	"github.com/elefant-ai/p2vn/internal/services"
	"github.com/elefant-ai/p2vn/internal/storage"
	"github.com/elefant-ai/p2vn/pkg/blueprint"
	"github.com/elefant-ai/p2vn/pkg/chat"
	"github.com/elefant-ai/p2vn/pkg/events"
	"github.com/elefant-ai/p2vn/pkg/prompts"
	"github.com/elefant-ai/p2vn/pkg/state"
	"github.com/elefant-ai/p2vn/pkg/tools"
)

var (
	// ErrNoActiveCharacter means a scene has no non-player participant to
	// voice, which makes the conversation loop impossible.
	ErrNoActiveCharacter = errors.New("engine: scene has no non-player participant")

	// ErrSceneActive rejects a StartScene while another run is in flight.
	ErrSceneActive = errors.New("engine: a scene is already running")
)

const (
	// maxToolRounds bounds consecutive model calls within one turn when
	// the model keeps requesting tools without yielding dialogue.
	maxToolRounds = 5

	// inferenceTimeout caps a single model call.
	inferenceTimeout = 60 * time.Second

	// typewriterPerRune sizes narration reveal duration to text length.
	typewriterPerRune = 35 * time.Millisecond
)

// TurnError marks an inference failure during a player-initiated turn.
// The failed input is carried so the presentation layer can offer a
// retry that re-submits it.
type TurnError struct {
	Input string
	Err   error
}

func (e *TurnError) Error() string { return fmt.Sprintf("turn failed: %v", e.Err) }
func (e *TurnError) Unwrap() error { return e.Err }

// sceneEnding captures the end-scene tool's terminal result while closing
// steps (narration, effects) still run.
type sceneEnding struct {
	outcome string
	summary string
}

// Orchestrator drives one scene at a time: it loads and resolves scene
// content, runs the conversation loop against the inference service,
// dispatches tool calls against the player state, and narrates everything
// to the presentation layer as an ordered event stream punctuated by
// suspension requests.
//
// StartScene is synchronous and single-flight. All event emissions and
// suspension requests happen on the calling goroutine; the presentation
// layer resolves suspensions from its own.
type Orchestrator struct {
	registry   blueprint.Registry
	store      storage.Storage
	llm        services.LLMService
	ps         *state.PlayerState
	dispatcher *tools.Dispatcher
	catalog    []tools.Definition
	logger     *slog.Logger

	game          *blueprint.Game
	locale        language.Tag
	defaultLocale language.Tag

	emit        events.Emitter
	onInput     events.InputRequestFunc
	onContinue  events.ContinueRequestFunc
	onTurnError func(err *TurnError)

	susp    suspender
	running bool
	run     *sceneRun
}

// NewOrchestrator wires an orchestrator to its collaborators. The game
// definition is resolved once here; per-scene content is resolved at
// StartScene.
func NewOrchestrator(registry blueprint.Registry, store storage.Storage, llm services.LLMService, ps *state.PlayerState, logger *slog.Logger) (*Orchestrator, error) {
	game, err := registry.GetGame()
	if err != nil {
		return nil, fmt.Errorf("resolving game definition: %w", err)
	}

	def := language.English
	if game.DefaultLocale != "" {
		if tag, err := language.Parse(game.DefaultLocale); err == nil {
			def = tag
		} else {
			logger.Warn("Invalid default locale in game definition, using English", "locale", game.DefaultLocale)
		}
	}

	return &Orchestrator{
		registry:      registry,
		store:         store,
		llm:           llm,
		ps:            ps,
		dispatcher:    tools.NewDispatcher(ps, game, logger),
		catalog:       tools.Catalog(),
		logger:        logger,
		game:          game,
		locale:        def,
		defaultLocale: def,
		emit:          func(events.Event) {},
	}, nil
}

// SetLocale overrides the active presentation locale. When it differs from
// the game's default, prompts carry a language directive.
func (o *Orchestrator) SetLocale(tag language.Tag) {
	o.locale = tag
}

// OnEvent registers the event consumer. Must be set before StartScene;
// a nil emitter silently drops events.
func (o *Orchestrator) OnEvent(emit events.Emitter) {
	if emit == nil {
		emit = func(events.Event) {}
	}
	o.emit = emit
}

// OnNeedPlayerInput registers the player-input suspension handler.
func (o *Orchestrator) OnNeedPlayerInput(fn events.InputRequestFunc) {
	o.onInput = fn
}

// OnNeedContinue registers the continue suspension handler.
func (o *Orchestrator) OnNeedContinue(fn events.ContinueRequestFunc) {
	o.onContinue = fn
}

// OnTurnError registers the handler surfaced when a player-initiated turn
// fails at the inference service. The handler should offer the player a
// retry with the carried input; the orchestrator then awaits input again.
// Without a handler, turn failures end StartScene with the error.
func (o *Orchestrator) OnTurnError(fn func(err *TurnError)) {
	o.onTurnError = fn
}

// PlayerState exposes the live state. Tool dispatch mutates it on the
// goroutine running StartScene, so other goroutines may only read it while
// the engine is suspended, e.g. inside a suspension handler before the
// resolver is called.
func (o *Orchestrator) PlayerState() *state.PlayerState {
	return o.ps
}

// StartScene runs one scene to completion: load, intro, conversation loop,
// ending. It returns nil after emitting scene_transition or scene_ended,
// and an error when loading fails, a suspension contract is violated, or
// the context is cancelled.
func (o *Orchestrator) StartScene(ctx context.Context, sceneID string) error {
	if o.running {
		return ErrSceneActive
	}
	o.running = true
	defer func() {
		o.running = false
		o.run = nil
	}()

	run, err := resolveScene(o.registry, sceneID)
	if err != nil {
		return err
	}
	o.run = run

	// Objectives reset wholesale on scene entry; notes and the rest of the
	// dossier persist across scenes.
	var objectives []string
	for _, g := range run.scene.Goals {
		objectives = append(objectives, o.objectiveText(run, g))
	}
	o.ps.SetObjectives(objectives)
	o.dispatcher.SetPlayerCharacter(run.playerID)

	o.logger.Info("Scene loaded",
		"scene_id", run.scene.ID,
		"active_character", run.activeID,
		"participants", len(run.participants))
	o.emit(run.loadedEvent())
	o.saveState(ctx)

	if err := o.playIntro(ctx, run); err != nil {
		return err
	}

	prompt, err := prompts.Generate(o.registry, run.scene.ID, run.activeID, o.locale, o.defaultLocale)
	if err != nil {
		return fmt.Errorf("building scene prompt: %w", err)
	}
	run.append(chat.ChatMessage{Role: chat.ChatRoleSystem, Content: prompt})

	ending, err := o.conversationLoop(ctx)
	if err != nil {
		return err
	}
	return o.endScene(ctx, ending)
}

// playIntro reveals the opening narration and, once per playthrough, the
// active character's introduction. Each reveal is gated by a continue.
func (o *Orchestrator) playIntro(ctx context.Context, run *sceneRun) error {
	if run.scene.OpeningNarration != "" {
		if err := o.typewriter(ctx, run.scene.OpeningNarration); err != nil {
			return err
		}
	}

	active := run.active()
	if active.Character.Introduction != "" && !o.ps.IsIntroduced(active.Character.ID) {
		if err := o.typewriter(ctx, active.Character.Introduction); err != nil {
			return err
		}
		o.ps.MarkIntroduced(active.Character.ID)
		o.saveState(ctx)
	}
	return nil
}

// conversationLoop alternates model turns and player input until a turn
// ends the scene. The opening model turn runs unprompted so the active
// character speaks first.
func (o *Orchestrator) conversationLoop(ctx context.Context) (*sceneEnding, error) {
	ending, err := o.runModelTurn(ctx)
	if err != nil {
		return nil, err
	}

	for ending == nil {
		input, err := o.susp.awaitInput(ctx, o.onInput)
		if err != nil {
			return nil, err
		}

		o.emit(events.AIThinking{})
		o.run.append(chat.ChatMessage{Role: chat.ChatRoleUser, Content: input})

		ending, err = o.runModelTurn(ctx)
		if err != nil {
			var te *TurnError
			if errors.As(err, &te) && o.onTurnError != nil {
				// Drop the failed input so a retry does not double it, then
				// hand the failure to the presentation layer. After a failed
				// follow-up tool round the tail is a tool message; keep it.
				if n := len(o.run.transcript); n > 0 && o.run.transcript[n-1].Role == chat.ChatRoleUser {
					o.run.transcript = o.run.transcript[:n-1]
				}
				o.logger.Warn("Turn failed, awaiting retry", "error", te.Err)
				o.onTurnError(te)
				continue
			}
			return nil, err
		}
	}
	return ending, nil
}

// runModelTurn performs one logical turn: model call, dialogue reveal,
// tool dispatch, repeated while the model keeps calling tools, up to
// maxToolRounds. A terminal end-scene result short-circuits the batch.
func (o *Orchestrator) runModelTurn(ctx context.Context) (*sceneEnding, error) {
	lastInput := lastUserContent(o.run.transcript)

	for round := 0; round < maxToolRounds; round++ {
		callCtx, cancel := context.WithTimeout(ctx, inferenceTimeout)
		resp, err := o.llm.Chat(callCtx, o.run.transcript, o.catalog)
		cancel()
		if err != nil {
			return nil, &TurnError{Input: lastInput, Err: err}
		}

		o.run.append(chat.ChatMessage{
			Role:      chat.ChatRoleAgent,
			Content:   resp.Message,
			ToolCalls: resp.ToolCalls,
		})

		if resp.Message != "" {
			if err := o.revealDialogue(ctx, resp.Message); err != nil {
				return nil, err
			}
		}

		if !resp.HasToolCalls() {
			o.saveState(ctx)
			return nil, nil
		}

		ending := o.dispatchBatch(resp.ToolCalls)
		o.saveState(ctx)
		if ending != nil {
			return ending, nil
		}
	}

	o.logger.Warn("Tool round cap reached, yielding turn to player",
		"scene_id", o.run.scene.ID, "cap", maxToolRounds)
	return nil, nil
}

// dispatchBatch executes tool calls in order, recording each result in the
// transcript. Calls after a terminal result are never executed.
func (o *Orchestrator) dispatchBatch(calls []chat.ToolCall) *sceneEnding {
	for _, tc := range calls {
		var res tools.Result
		if err := tc.Validate(); err != nil {
			res = tools.Result{Success: false, Error: err.Error()}
		} else {
			res = o.dispatcher.Execute(tc.Name, tc.Arguments)
		}

		o.run.append(chat.ChatMessage{
			Role:       chat.ChatRoleTool,
			Content:    res.JSON(),
			ToolCallID: tc.ID,
		})

		if res.Terminal {
			return &sceneEnding{outcome: res.Outcome, summary: res.Summary}
		}
	}
	return nil
}

// revealDialogue splits character speech into sentence-like chunks, each
// gated by a continue acknowledgement.
func (o *Orchestrator) revealDialogue(ctx context.Context, text string) error {
	active := o.run.active()
	for _, chunk := range chat.SplitChunks(text) {
		o.emit(events.DialogueChunk{
			SpeakerID:   active.Character.ID,
			SpeakerName: active.Character.Name,
			Text:        chunk,
		})
		if err := o.susp.awaitContinue(ctx, o.onContinue); err != nil {
			return err
		}
	}
	return nil
}

// endScene plays the closing narration, applies the effect bundle of the
// first goal carrying a transition, and emits the final event. The scene
// pointer is persisted before scene_transition so a crash between the two
// resumes at the correct scene.
func (o *Orchestrator) endScene(ctx context.Context, ending *sceneEnding) error {
	run := o.run
	if run.scene.ClosingNarration != "" {
		if err := o.typewriter(ctx, run.scene.ClosingNarration); err != nil {
			return err
		}
	}

	for _, g := range run.scene.Goals {
		if g.OnComplete.TransitionTo == "" {
			continue
		}
		o.applyEffects(g.OnComplete)
		o.ps.CurrentScene = g.OnComplete.TransitionTo
		o.saveState(ctx)

		o.logger.Info("Scene transition",
			"from", run.scene.ID, "to", g.OnComplete.TransitionTo, "goal", g.ID)
		o.emit(events.SceneTransition{NextSceneID: g.OnComplete.TransitionTo})
		return nil
	}

	o.saveState(ctx)
	o.logger.Info("Scene ended", "scene_id", run.scene.ID, "result", ending.outcome)
	o.emit(events.SceneEnded{Result: ending.outcome, Summary: ending.summary})
	return nil
}

func (o *Orchestrator) applyEffects(effect blueprint.GoalEffect) {
	for _, itemID := range effect.GrantItems {
		item, ok := o.game.Items[itemID]
		if !ok {
			o.logger.Warn("Effect grants unknown item, skipping", "item_id", itemID)
			continue
		}
		if !o.ps.HasItem(itemID) {
			o.ps.AddItem(item)
		}
	}
	if effect.UnlockRoute != "" {
		o.ps.UnlockRoute(effect.UnlockRoute)
	}
}

// typewriter emits a timed narration reveal and waits for the continue.
func (o *Orchestrator) typewriter(ctx context.Context, text string) error {
	o.emit(events.Typewriter{
		Text:     text,
		Duration: time.Duration(len([]rune(text))) * typewriterPerRune,
	})
	return o.susp.awaitContinue(ctx, o.onContinue)
}

// objectiveText renders a goal for the dossier, prefixed with the owning
// character's name so mixed-owner objective lists stay readable.
func (o *Orchestrator) objectiveText(run *sceneRun, g blueprint.Goal) string {
	if g.CharacterID == "" {
		return g.Description
	}
	if p, ok := run.participants[g.CharacterID]; ok {
		return fmt.Sprintf("%s: %s", p.Character.Name, g.Description)
	}
	return g.Description
}

// saveState persists after every completed mutation point. Persistence
// failures are logged, not fatal: losing a checkpoint must not kill a
// live scene.
func (o *Orchestrator) saveState(ctx context.Context) {
	if err := o.store.SavePlayerState(ctx, o.ps.ID, o.ps); err != nil {
		logger.WithError(o.logger, err).Error("Failed to save player state", "player_id", o.ps.ID)
	}
}

func lastUserContent(transcript []chat.ChatMessage) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == chat.ChatRoleUser {
			return transcript[i].Content
		}
	}
	return ""
}
