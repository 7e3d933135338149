package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/elefant-ai/p2vn/pkg/state"
)

// Storage persists player state opaquely: the engine never knows the
// medium. Content (blueprints) is loaded separately at startup; see
// LoadRegistry.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// PlayerState operations
	SavePlayerState(ctx context.Context, id uuid.UUID, ps *state.PlayerState) error
	LoadPlayerState(ctx context.Context, id uuid.UUID) (*state.PlayerState, error)
	DeletePlayerState(ctx context.Context, id uuid.UUID) error
}
