package blueprint

import (
	"fmt"
)

// ErrNotFound is returned by Registry lookups for unknown ids.
var ErrNotFound = fmt.Errorf("blueprint: not found")

// Registry exposes lookup-by-id over loaded content. Implementations must
// return data that callers can treat as immutable.
type Registry interface {
	GetGame() (*Game, error)
	GetScene(id string) (*Scene, error)
	GetCharacter(id string) (*Character, error)
}

// StaticRegistry is an in-memory Registry. The filesystem loader builds one
// at startup; tests build them inline.
type StaticRegistry struct {
	Game       Game
	Scenes     map[string]Scene
	Characters map[string]Character
}

var _ Registry = (*StaticRegistry)(nil)

// NewStaticRegistry creates an empty registry ready for population.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		Scenes:     make(map[string]Scene),
		Characters: make(map[string]Character),
	}
}

func (r *StaticRegistry) GetGame() (*Game, error) {
	g := r.Game
	return &g, nil
}

func (r *StaticRegistry) GetScene(id string) (*Scene, error) {
	s, ok := r.Scenes[id]
	if !ok {
		return nil, fmt.Errorf("%w: scene %q", ErrNotFound, id)
	}
	// Copy the participant and goal slices so callers can't mutate the
	// registry's backing arrays.
	cp := s
	cp.Characters = append([]string(nil), s.Characters...)
	cp.Goals = append([]Goal(nil), s.Goals...)
	return &cp, nil
}

func (r *StaticRegistry) GetCharacter(id string) (*Character, error) {
	c, ok := r.Characters[id]
	if !ok {
		return nil, fmt.Errorf("%w: character %q", ErrNotFound, id)
	}
	cp := c
	return &cp, nil
}
