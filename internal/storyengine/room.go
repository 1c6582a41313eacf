// Package storyengine implements the hierarchical Script -> Scene ->
// Room state machine that turns one inbound voice request into a TwiML
// response, and its inbound-SMS counterpart. Rooms and Scenes are pure
// narrative content; this package owns the traversal rules, routing,
// and failure recovery shared by every narrative built on top of it.
package storyengine

import (
	"context"

	"github.com/aeturnum/spins-halp-line/internal/sharedstate"
	"github.com/aeturnum/spins-halp-line/internal/storymodel"
	"github.com/aeturnum/spins-halp-line/internal/twiml"
)

// RoomContext is the mutable view a Room's methods act on: the player's
// own record, a Shard for proposing shared-state changes, and three
// nested string maps mirroring ScriptInfo.Data, SceneInfo.Data, and this
// room's own RoomInfo.Data. Mutations a Room makes to these maps, to
// State, or via EndScene are captured back into the underlying records
// once the call returns — Rooms never see or hold the records directly.
type RoomContext struct {
	Player *storymodel.Player
	Shard  *sharedstate.Shard

	Script map[string]string
	Scene  map[string]string
	Data   map[string]string

	// Choices is the ordered history of digits this room has received
	// across every visit in this SceneInfo, oldest first. Read-only.
	Choices []string

	// State is this room's own sub-state, e.g. which branch of a
	// multi-part room the player is in. StateIsNew reports whether this
	// is the first Action call since State last changed.
	State      string
	StateIsNew bool

	startState string
	ended      bool
}

func newRoomContext(player *storymodel.Player, shard *sharedstate.Shard, si *storymodel.ScriptInfo, sc *storymodel.SceneInfo, ri *storymodel.RoomInfo) *RoomContext {
	choices := append([]string(nil), ri.Choices...)
	return &RoomContext{
		Player:     player,
		Shard:      shard,
		Script:     si.Data,
		Scene:      sc.Data,
		Data:       ri.Data,
		Choices:    choices,
		State:      ri.State,
		StateIsNew: ri.FreshState,
		startState: ri.State,
		ended:      sc.EndedEarly,
	}
}

// EndScene marks the current scene as finished early, regardless of
// whether its room queue is empty — used by rooms that branch straight
// to the next scene's first state.
func (rc *RoomContext) EndScene() {
	rc.ended = true
}

// applyTo writes a RoomContext's mutations back into the live records.
// spoilState controls whether RoomInfo.FreshState is recomputed now: the
// notify-previous-room-of-choice step and the entered room's own Action
// call both pass true.
func (rc *RoomContext) applyTo(si *storymodel.ScriptInfo, sc *storymodel.SceneInfo, ri *storymodel.RoomInfo, spoilState bool) {
	si.Data = rc.Script
	sc.Data = rc.Scene
	sc.EndedEarly = rc.ended
	ri.Data = rc.Data
	if spoilState {
		if rc.State == rc.startState {
			ri.FreshState = false
		} else {
			ri.State = rc.State
			ri.FreshState = true
		}
	}
}

// Room is one node in a Scene's traversal graph. Load is called once at
// process startup to warm any backing media or config; NewPlayerChoice
// reacts to the digit a player entered while this room's prompt was
// playing, before the scene advances past it; Action renders this
// room's own TwiML when the player arrives.
type Room interface {
	Name() string
	Load(ctx context.Context) error
	NewPlayerChoice(ctx context.Context, digit string, rc *RoomContext) error
	Action(ctx context.Context, rc *RoomContext) (*twiml.Document, error)
}

// BaseRoom supplies no-op defaults for Rooms that don't react to
// incoming digits themselves (most rooms delegate that entirely to
// Scene.Choices) and need no load-time setup.
type BaseRoom struct{}

func (BaseRoom) Load(context.Context) error { return nil }

func (BaseRoom) NewPlayerChoice(context.Context, string, *RoomContext) error { return nil }

// Registry is the name-keyed set of Rooms a Script's Scenes route
// through. Rooms are singleton values identified by a stable name
// string rather than used as map keys themselves, so two equivalent-but-
// distinct Room values are never silently aliased together.
type Registry struct {
	rooms map[string]Room
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rooms: map[string]Room{}}
}

// Register adds room under its own Name(), returning the Registry for
// chaining. A later registration with the same name replaces the
// earlier one.
func (r *Registry) Register(room Room) *Registry {
	r.rooms[room.Name()] = room
	return r
}

// Get looks up a Room by name.
func (r *Registry) Get(name string) (Room, bool) {
	room, ok := r.rooms[name]
	return room, ok
}

// Load calls Load on every registered Room, stopping at the first
// error.
func (r *Registry) Load(ctx context.Context) error {
	for _, room := range r.rooms {
		if err := room.Load(ctx); err != nil {
			return err
		}
	}
	return nil
}
