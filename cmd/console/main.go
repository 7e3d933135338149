package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/language"

	"github.com/elefant-ai/p2vn/internal/config"
	"github.com/elefant-ai/p2vn/internal/engine"
	"github.com/elefant-ai/p2vn/internal/logger"
	"github.com/elefant-ai/p2vn/internal/services"
	"github.com/elefant-ai/p2vn/internal/storage"
	"github.com/elefant-ai/p2vn/pkg/events"
	"github.com/elefant-ai/p2vn/pkg/state"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	reg, err := storage.LoadRegistry(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load game content from %s: %v\n", cfg.DataDir, err)
		os.Exit(1)
	}
	game, err := reg.GetGame()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve game definition: %v\n", err)
		os.Exit(1)
	}

	store := storage.NewRedisStorage(cfg.RedisAddr, log)
	defer func() {
		_ = store.Close() // Ignore error in defer
	}()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = store.Ping(pingCtx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to Redis at %s. Please ensure it is running.\nTry: docker-compose up -d\n", cfg.RedisAddr)
		os.Exit(1)
	}

	var llm services.LLMService
	switch cfg.LLMProvider {
	case "openai":
		llm = services.NewOpenAIService(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMBaseURL, log)
	case "anthropic":
		llm = services.NewAnthropicService(cfg.LLMAPIKey, cfg.LLMModel, log)
	default:
		fmt.Fprintf(os.Stderr, "Unknown LLM_PROVIDER %q (want anthropic or openai)\n", cfg.LLMProvider)
		os.Exit(1)
	}

	ps := state.NewPlayerState()
	ps.CurrentRoute = game.StartingRoute
	ps.CurrentScene = game.StartingScene

	orc, err := engine.NewOrchestrator(reg, store, llm, ps, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize engine: %v\n", err)
		os.Exit(1)
	}
	if cfg.Locale != "" {
		tag, err := language.Parse(cfg.Locale)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid LOCALE %q: %v\n", cfg.Locale, err)
			os.Exit(1)
		}
		orc.SetLocale(tag)
	}

	p := tea.NewProgram(NewConsoleUI(game.Title),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())

	// The engine runs on its own goroutine; everything it produces is
	// forwarded into the bubbletea loop as messages. Suspension resolvers
	// cross over the same way and are invoked by the UI.
	orc.OnEvent(func(ev events.Event) {
		p.Send(engineEventMsg{ev})
	})
	// Suspension handlers run on the engine goroutine right before it
	// blocks, so snapshotting player state here cannot race tool dispatch.
	orc.OnNeedPlayerInput(func(resolve func(string)) {
		p.Send(inputRequestMsg{resolve: resolve, state: snapshotPlayerState(ps)})
	})
	orc.OnNeedContinue(func(resolve func()) {
		p.Send(continueRequestMsg{resolve: resolve, state: snapshotPlayerState(ps)})
	})
	orc.OnTurnError(func(te *engine.TurnError) {
		p.Send(turnErrorMsg{te})
	})

	go runScenes(orc, game.StartingScene, p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// runScenes drives the orchestrator scene after scene, following
// transitions until a scene ends terminally or fails.
func runScenes(orc *engine.Orchestrator, startScene string, p *tea.Program) {
	sceneID := startScene
	for {
		err := orc.StartScene(context.Background(), sceneID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			p.Send(engineDoneMsg{err: err})
			return
		}
		next := orc.PlayerState().CurrentScene
		if next == "" || next == sceneID {
			// Terminal end, no follow-up scene.
			p.Send(engineDoneMsg{})
			return
		}
		sceneID = next
	}
}
