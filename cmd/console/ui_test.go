package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elefant-ai/p2vn/pkg/blueprint"
	"github.com/elefant-ai/p2vn/pkg/events"
	"github.com/elefant-ai/p2vn/pkg/state"
)

func snapshotFixture() (*state.PlayerState, stateSnapshot) {
	ps := state.NewPlayerState()
	ps.AdjustAffinity("riley", 2)
	ps.AddObjective("Riley: Earn trust.")
	ps.AddNote("Riley hates coffee.")
	ps.AddItem(blueprint.Item{ID: "keycard", Name: "Maintenance Keycard"})
	return ps, snapshotPlayerState(ps)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	ps, snap := snapshotFixture()

	ps.AdjustAffinity("riley", 5)
	ps.Dossier.Objectives[0] = "changed"
	ps.Inventory[0].Name = "changed"

	assert.Equal(t, 2, snap.affinity["riley"])
	assert.Equal(t, "Riley: Earn trust.", snap.objectives[0])
	assert.Equal(t, []string{"Maintenance Keycard"}, snap.inventory)
}

func TestMetadataRendersFromSnapshotWhileStateMutates(t *testing.T) {
	ps, snap := snapshotFixture()

	m := NewConsoleUI("Blackout")
	m.width, m.height = 100, 40
	m.layout()
	m.scene = &events.SceneLoaded{
		Title:        "Rooftop at Dusk",
		Participants: []events.Participant{{ID: "riley", Name: "Riley"}},
	}
	m.stateSnap = snap

	// The engine keeps mutating live state mid turn; the panel renders
	// only the snapshot, so this must not race.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			ps.AdjustAffinity("riley", 1)
			ps.AddNote(fmt.Sprintf("note %d", i))
		}
	}()
	for i := 0; i < 100; i++ {
		m.writeMetadata()
	}
	<-done

	out := m.metaViewport.View()
	require.Contains(t, out, "Rooftop at Dusk")
	assert.Contains(t, out, "Riley: +2")
	assert.Contains(t, out, "Riley: Earn trust.")
	assert.Contains(t, out, "Maintenance Keycard")
}
