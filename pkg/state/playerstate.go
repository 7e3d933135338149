package state

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elefant-ai/p2vn/pkg/blueprint"
)

// Dossier is the player-visible running record of objectives and notes.
// Both lists are ordered and duplicate-suppressed.
type Dossier struct {
	Objectives []string `json:"objectives,omitempty"`
	Notes      []string `json:"notes,omitempty"`
}

// PlayerState is the persistent progress of one playthrough. It is mutated
// only through tool dispatch and top-level progression events, and carried
// across scenes; transcripts are not.
type PlayerState struct {
	ID             uuid.UUID         `json:"id"`
	Affinity       map[string]int    `json:"affinity,omitempty"` // character id -> relationship score
	Flags          map[string]bool   `json:"flags,omitempty"`
	Vars           map[string]string `json:"vars,omitempty"`
	Inventory      []blueprint.Item  `json:"inventory,omitempty"`
	Dossier        Dossier           `json:"dossier"`
	CurrentRoute   string            `json:"current_route,omitempty"`
	CurrentChapter string            `json:"current_chapter,omitempty"`
	CurrentScene   string            `json:"current_scene,omitempty"`
	UnlockedRoutes []string          `json:"unlocked_routes,omitempty"`
	Introduced     []string          `json:"introduced,omitempty"` // character ids whose intro has been shown
	UpdatedAt      time.Time         `json:"updated_at,omitempty"`
}

// NewPlayerState creates a fresh state with a unique session id.
func NewPlayerState() *PlayerState {
	return &PlayerState{
		ID:       uuid.New(),
		Affinity: make(map[string]int),
		Flags:    make(map[string]bool),
		Vars:     make(map[string]string),
	}
}

// GetAffinity returns the relationship score for a character, 0 if unset.
func (ps *PlayerState) GetAffinity(characterID string) int {
	return ps.Affinity[characterID]
}

// AdjustAffinity adds a signed delta to a character's relationship score.
func (ps *PlayerState) AdjustAffinity(characterID string, delta int) {
	if ps.Affinity == nil {
		ps.Affinity = make(map[string]int)
	}
	ps.Affinity[characterID] += delta
}

// SetFlag sets a named boolean story flag.
func (ps *PlayerState) SetFlag(name string, value bool) {
	if ps.Flags == nil {
		ps.Flags = make(map[string]bool)
	}
	ps.Flags[name] = value
}

// GetFlag returns a flag value, false if unset.
func (ps *PlayerState) GetFlag(name string) bool {
	return ps.Flags[name]
}

// SetVar sets a named string variable.
func (ps *PlayerState) SetVar(name, value string) {
	if ps.Vars == nil {
		ps.Vars = make(map[string]string)
	}
	ps.Vars[name] = value
}

// GetVar returns a variable value, "" if unset.
func (ps *PlayerState) GetVar(name string) string {
	return ps.Vars[name]
}

// AddItem appends an item to the inventory.
func (ps *PlayerState) AddItem(item blueprint.Item) {
	ps.Inventory = append(ps.Inventory, item)
}

// HasItem reports whether an item id is in the inventory.
func (ps *PlayerState) HasItem(itemID string) bool {
	for _, it := range ps.Inventory {
		if it.ID == itemID {
			return true
		}
	}
	return false
}

// AddObjective appends an objective unless the exact text is already
// present. Returns true if the dossier changed.
func (ps *PlayerState) AddObjective(text string) bool {
	if containsString(ps.Dossier.Objectives, text) {
		return false
	}
	ps.Dossier.Objectives = append(ps.Dossier.Objectives, text)
	return true
}

// AddNote appends a note unless the exact text is already present.
// Returns true if the dossier changed.
func (ps *PlayerState) AddNote(text string) bool {
	if containsString(ps.Dossier.Notes, text) {
		return false
	}
	ps.Dossier.Notes = append(ps.Dossier.Notes, text)
	return true
}

// SetObjectives replaces the objective list wholesale. Scene loading uses
// this to clear leftovers from the prior scene.
func (ps *PlayerState) SetObjectives(objectives []string) {
	ps.Dossier.Objectives = append([]string(nil), objectives...)
}

// UnlockRoute adds a route id to the unlocked set.
func (ps *PlayerState) UnlockRoute(routeID string) {
	if containsString(ps.UnlockedRoutes, routeID) {
		return
	}
	ps.UnlockedRoutes = append(ps.UnlockedRoutes, routeID)
}

// IsRouteUnlocked reports whether a route has been opened.
func (ps *PlayerState) IsRouteUnlocked(routeID string) bool {
	return containsString(ps.UnlockedRoutes, routeID)
}

// MarkIntroduced records that a character's one-time introduction was shown.
func (ps *PlayerState) MarkIntroduced(characterID string) {
	if containsString(ps.Introduced, characterID) {
		return
	}
	ps.Introduced = append(ps.Introduced, characterID)
}

// IsIntroduced reports whether a character has been introduced.
func (ps *PlayerState) IsIntroduced(characterID string) bool {
	return containsString(ps.Introduced, characterID)
}

// DeepCopy returns an independent copy via a JSON round trip.
func (ps *PlayerState) DeepCopy() (*PlayerState, error) {
	data, err := json.Marshal(ps)
	if err != nil {
		return nil, err
	}
	var cp PlayerState
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// ReadPath resolves a dotted path (e.g. "affinity.riley", "dossier.notes")
// against the JSON form of the state. The bool is false when any segment
// is missing; a missing path is not an error.
func (ps *PlayerState) ReadPath(path string) (interface{}, bool) {
	data, err := json.Marshal(ps)
	if err != nil {
		return nil, false
	}
	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, false
	}

	var current interface{} = root
	for _, seg := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
