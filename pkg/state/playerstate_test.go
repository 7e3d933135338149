package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elefant-ai/p2vn/pkg/blueprint"
)

func TestAdjustAffinity(t *testing.T) {
	ps := NewPlayerState()

	assert.Equal(t, 0, ps.GetAffinity("riley"), "unset affinity defaults to 0")

	ps.AdjustAffinity("riley", 3)
	_ = ps.GetAffinity("riley") // interleaved read must not affect the total
	ps.AdjustAffinity("riley", -1)

	assert.Equal(t, 2, ps.GetAffinity("riley"))
	assert.Equal(t, 0, ps.GetAffinity("casey"), "other characters unaffected")
}

func TestDossierIdempotence(t *testing.T) {
	ps := NewPlayerState()

	assert.True(t, ps.AddNote("Riley hates coffee."))
	assert.False(t, ps.AddNote("Riley hates coffee."), "duplicate note suppressed")
	assert.Len(t, ps.Dossier.Notes, 1)

	assert.True(t, ps.AddObjective("Find the key."))
	assert.True(t, ps.AddObjective("Open the door."))
	assert.False(t, ps.AddObjective("Find the key."))
	assert.Equal(t, []string{"Find the key.", "Open the door."}, ps.Dossier.Objectives)
}

func TestSetObjectivesReplaces(t *testing.T) {
	ps := NewPlayerState()
	ps.AddObjective("Old objective from scene 1")

	ps.SetObjectives([]string{"Riley: Earn her trust", "Escape the station"})

	assert.Equal(t, []string{"Riley: Earn her trust", "Escape the station"}, ps.Dossier.Objectives)
}

func TestReadPath(t *testing.T) {
	ps := NewPlayerState()
	ps.AdjustAffinity("riley", 5)
	ps.SetFlag("met_riley", true)
	ps.AddItem(blueprint.Item{ID: "keycard", Name: "Keycard"})

	v, ok := ps.ReadPath("affinity.riley")
	assert.True(t, ok)
	assert.Equal(t, float64(5), v, "JSON numbers decode as float64")

	v, ok = ps.ReadPath("flags.met_riley")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = ps.ReadPath("flags.never_set")
	assert.False(t, ok, "missing leaf is not found")

	_, ok = ps.ReadPath("no.such.path")
	assert.False(t, ok, "missing root is not found")

	v, ok = ps.ReadPath("inventory")
	assert.True(t, ok)
	assert.Len(t, v, 1)
}

func TestUnlockAndIntroduceSets(t *testing.T) {
	ps := NewPlayerState()

	ps.UnlockRoute("route_riley")
	ps.UnlockRoute("route_riley")
	assert.Len(t, ps.UnlockedRoutes, 1)
	assert.True(t, ps.IsRouteUnlocked("route_riley"))
	assert.False(t, ps.IsRouteUnlocked("route_casey"))

	ps.MarkIntroduced("riley")
	ps.MarkIntroduced("riley")
	assert.Len(t, ps.Introduced, 1)
	assert.True(t, ps.IsIntroduced("riley"))
}

func TestDeepCopyIsIndependent(t *testing.T) {
	ps := NewPlayerState()
	ps.SetFlag("met_riley", true)
	ps.AddNote("note one")

	cp, err := ps.DeepCopy()
	assert.NoError(t, err)

	cp.SetFlag("met_riley", false)
	cp.AddNote("note two")

	assert.True(t, ps.GetFlag("met_riley"))
	assert.Len(t, ps.Dossier.Notes, 1)
	assert.Equal(t, ps.ID, cp.ID)
}
