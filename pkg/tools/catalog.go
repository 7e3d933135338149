package tools

import (
	"github.com/invopop/jsonschema"
)

// Kind enumerates the closed tool catalog. Dispatch is by variant, not by
// open string map: adding a tool means adding a Kind, its handler, and its
// catalog entry together.
type Kind int

const (
	KindReadState Kind = iota
	KindAdjustAffinity
	KindSetFlag
	KindTransferItem
	KindUpdateDossier
	KindEndScene
)

// Wire names as exposed in the inference tool catalog.
const (
	NameReadState      = "read-state"
	NameAdjustAffinity = "adjust-affinity"
	NameSetFlag        = "set-flag"
	NameTransferItem   = "transfer-item"
	NameUpdateDossier  = "update-dossier"
	NameEndScene       = "end-scene"
)

// KindFromName maps a wire name to its Kind. The bool is false for names
// outside the catalog.
func KindFromName(name string) (Kind, bool) {
	switch name {
	case NameReadState:
		return KindReadState, true
	case NameAdjustAffinity:
		return KindAdjustAffinity, true
	case NameSetFlag:
		return KindSetFlag, true
	case NameTransferItem:
		return KindTransferItem, true
	case NameUpdateDossier:
		return KindUpdateDossier, true
	case NameEndScene:
		return KindEndScene, true
	}
	return 0, false
}

// Argument shapes. The jsonschema tags drive the parameter schemas sent to
// the inference service.

type ReadStateArgs struct {
	Paths []string `json:"paths" jsonschema:"description=Dotted state paths to resolve (e.g. affinity.riley or flags.met_riley)"`
}

type AdjustAffinityArgs struct {
	CharacterID string `json:"character_id" jsonschema:"description=Character whose relationship score changes"`
	Delta       int    `json:"delta" jsonschema:"description=Signed amount to add to the score"`
}

type SetFlagArgs struct {
	Name  string `json:"name" jsonschema:"description=Flag name"`
	Value bool   `json:"value" jsonschema:"description=Flag value"`
}

type TransferItemArgs struct {
	ItemID     string `json:"item_id" jsonschema:"description=Item definition id to transfer"`
	ReceiverID string `json:"receiver_id" jsonschema:"description=Character receiving the item"`
}

type UpdateDossierArgs struct {
	Entry string `json:"entry" jsonschema:"description=Dossier section to append to,enum=objective,enum=note"`
	Text  string `json:"text" jsonschema:"description=Text to record"`
}

type EndSceneArgs struct {
	Result  string `json:"result" jsonschema:"description=How the scene resolved,enum=success,enum=neutral,enum=fail"`
	Summary string `json:"summary" jsonschema:"description=One or two sentences summarizing what happened"`
}

// Definition is one catalog entry handed to the inference service.
type Definition struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// Catalog returns the fixed six-tool catalog with generated parameter
// schemas. The order is stable.
func Catalog() []Definition {
	// Inline schemas, no $ref indirection: inference services want a
	// self-contained object per tool.
	reflector := jsonschema.Reflector{DoNotReference: true}

	return []Definition{
		{
			Name:        NameReadState,
			Description: "Read current game state values by dotted path. Missing paths resolve to null.",
			Parameters:  reflector.Reflect(&ReadStateArgs{}),
		},
		{
			Name:        NameAdjustAffinity,
			Description: "Add a signed delta to a character's relationship score with the player.",
			Parameters:  reflector.Reflect(&AdjustAffinityArgs{}),
		},
		{
			Name:        NameSetFlag,
			Description: "Set a named boolean story flag.",
			Parameters:  reflector.Reflect(&SetFlagArgs{}),
		},
		{
			Name:        NameTransferItem,
			Description: "Give an item to a character. Only the player character can receive items.",
			Parameters:  reflector.Reflect(&TransferItemArgs{}),
		},
		{
			Name:        NameUpdateDossier,
			Description: "Append an objective or note to the player's dossier. Duplicate text is ignored.",
			Parameters:  reflector.Reflect(&UpdateDossierArgs{}),
		},
		{
			Name:        NameEndScene,
			Description: "End the current scene. Call this when the scene's goals are met or irrecoverably failed.",
			Parameters:  reflector.Reflect(&EndSceneArgs{}),
		},
	}
}
