package engine

import (
	"context"
	"errors"
	"sync"
)

// Suspension protocol errors. The contract is exactly one pending request
// at a time; violations fail the scene loudly rather than deadlock it.
var (
	ErrNoInputHandler    = errors.New("engine: no player-input handler registered")
	ErrNoContinueHandler = errors.New("engine: no continue handler registered")
	ErrRequestPending    = errors.New("engine: a suspension request is already pending")
)

// suspender owns the single-slot resolver channels. The orchestrator
// blocks on them; the presentation layer's resolve closures fill them.
type suspender struct {
	mu              sync.Mutex
	pendingInput    chan string
	pendingContinue chan struct{}
}

// awaitInput invokes the handler with a resolver and blocks until the
// presentation layer calls it or the context is cancelled. Extra resolve
// calls are ignored.
func (s *suspender) awaitInput(ctx context.Context, handler func(resolve func(text string))) (string, error) {
	if handler == nil {
		return "", ErrNoInputHandler
	}

	s.mu.Lock()
	if s.pendingInput != nil || s.pendingContinue != nil {
		s.mu.Unlock()
		return "", ErrRequestPending
	}
	ch := make(chan string, 1)
	s.pendingInput = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pendingInput = nil
		s.mu.Unlock()
	}()

	var once sync.Once
	handler(func(text string) {
		once.Do(func() { ch <- text })
	})

	select {
	case text := <-ch:
		return text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// awaitContinue mirrors awaitInput for the parameterless acknowledgement.
func (s *suspender) awaitContinue(ctx context.Context, handler func(resolve func())) error {
	if handler == nil {
		return ErrNoContinueHandler
	}

	s.mu.Lock()
	if s.pendingInput != nil || s.pendingContinue != nil {
		s.mu.Unlock()
		return ErrRequestPending
	}
	ch := make(chan struct{}, 1)
	s.pendingContinue = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pendingContinue = nil
		s.mu.Unlock()
	}()

	var once sync.Once
	handler(func() {
		once.Do(func() { ch <- struct{}{} })
	})

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
