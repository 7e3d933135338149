package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/elefant-ai/p2vn/pkg/blueprint"
	"github.com/elefant-ai/p2vn/pkg/state"
)

// Scene outcome tags carried by terminal results.
const (
	OutcomeSuccess = "success"
	OutcomeNeutral = "neutral"
	OutcomeFail    = "fail"
)

// Result is the structured outcome of one tool execution. It is what the
// inference service sees as the tool message, so failures are data here,
// never Go errors: a malformed call must not abort the scene loop.
type Result struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`

	// Terminal is set only by end-scene. The orchestrator stops executing
	// the rest of the batch the moment it sees it.
	Terminal bool   `json:"terminal,omitempty"`
	Outcome  string `json:"result,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// JSON renders the result for the transcript's tool message.
func (r Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"unencodable tool result"}`
	}
	return string(data)
}

func failure(format string, args ...interface{}) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Dispatcher executes tool calls against the player state. It holds the
// state store as an explicit dependency; there is no ambient access.
type Dispatcher struct {
	state    *state.PlayerState
	game     *blueprint.Game
	playerID string // player-role participant of the current scene
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher bound to one player state.
func NewDispatcher(ps *state.PlayerState, game *blueprint.Game, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		state:  ps,
		game:   game,
		logger: logger,
	}
}

// SetPlayerCharacter records the current scene's player-role participant,
// the only legal transfer-item receiver. The orchestrator calls this at
// scene load.
func (d *Dispatcher) SetPlayerCharacter(characterID string) {
	d.playerID = characterID
}

// Execute runs one tool call. It never returns a Go error and never
// panics out: every failure becomes a structured Result the model can
// read and recover from.
func (d *Dispatcher) Execute(name string, args json.RawMessage) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tool execution panicked", "tool", name, "panic", r)
			result = failure("internal error executing %s", name)
		}
	}()

	kind, ok := KindFromName(name)
	if !ok {
		return failure("unknown tool %q", name)
	}

	d.logger.Debug("Executing tool", "tool", name, "args", string(args))

	switch kind {
	case KindReadState:
		return d.readState(args)
	case KindAdjustAffinity:
		return d.adjustAffinity(args)
	case KindSetFlag:
		return d.setFlag(args)
	case KindTransferItem:
		return d.transferItem(args)
	case KindUpdateDossier:
		return d.updateDossier(args)
	case KindEndScene:
		return d.endScene(args)
	}
	return failure("unhandled tool kind %d", kind)
}

func (d *Dispatcher) readState(raw json.RawMessage) Result {
	var args ReadStateArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure("bad read-state arguments: %v", err)
	}
	if len(args.Paths) == 0 {
		return failure("read-state requires at least one path")
	}

	values := make(map[string]interface{}, len(args.Paths))
	for _, path := range args.Paths {
		// A missing path is undefined, not an error.
		v, ok := d.state.ReadPath(path)
		if !ok {
			values[path] = nil
			continue
		}
		values[path] = v
	}
	return Result{Success: true, Data: map[string]interface{}{"values": values}}
}

func (d *Dispatcher) adjustAffinity(raw json.RawMessage) Result {
	var args AdjustAffinityArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure("bad adjust-affinity arguments: %v", err)
	}
	if args.CharacterID == "" {
		return failure("adjust-affinity requires character_id")
	}

	d.state.AdjustAffinity(args.CharacterID, args.Delta)
	return Result{Success: true, Data: map[string]interface{}{
		"character_id": args.CharacterID,
		"affinity":     d.state.GetAffinity(args.CharacterID),
	}}
}

func (d *Dispatcher) setFlag(raw json.RawMessage) Result {
	var args SetFlagArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure("bad set-flag arguments: %v", err)
	}
	if args.Name == "" {
		return failure("set-flag requires a name")
	}

	d.state.SetFlag(args.Name, args.Value)
	return Result{Success: true}
}

func (d *Dispatcher) transferItem(raw json.RawMessage) Result {
	var args TransferItemArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure("bad transfer-item arguments: %v", err)
	}

	item, ok := d.game.Items[args.ItemID]
	if !ok {
		return failure("unknown item %q", args.ItemID)
	}
	if args.ReceiverID != d.playerID || d.playerID == "" {
		return failure("unsupported operation: only the player character can receive items, got receiver %q", args.ReceiverID)
	}

	d.state.AddItem(item)
	return Result{Success: true, Data: map[string]interface{}{"item_name": item.Name}}
}

func (d *Dispatcher) updateDossier(raw json.RawMessage) Result {
	var args UpdateDossierArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure("bad update-dossier arguments: %v", err)
	}
	if args.Text == "" {
		return failure("update-dossier requires text")
	}

	var added bool
	switch args.Entry {
	case "objective":
		added = d.state.AddObjective(args.Text)
	case "note":
		added = d.state.AddNote(args.Text)
	default:
		return failure("update-dossier entry must be objective or note, got %q", args.Entry)
	}
	return Result{Success: true, Data: map[string]interface{}{"added": added}}
}

func (d *Dispatcher) endScene(raw json.RawMessage) Result {
	var args EndSceneArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure("bad end-scene arguments: %v", err)
	}

	switch args.Result {
	case OutcomeSuccess, OutcomeNeutral, OutcomeFail:
	case "":
		args.Result = OutcomeNeutral
	default:
		return failure("end-scene result must be success, neutral or fail, got %q", args.Result)
	}

	return Result{
		Success:  true,
		Terminal: true,
		Outcome:  args.Result,
		Summary:  args.Summary,
	}
}
