package storyengine

import (
	"context"
	"fmt"

	"github.com/aeturnum/spins-halp-line/internal/sharedstate"
	"github.com/aeturnum/spins-halp-line/internal/storyerr"
	"github.com/aeturnum/spins-halp-line/internal/storymodel"
	"github.com/aeturnum/spins-halp-line/internal/twiml"
)

// Scene is one ordered run of Rooms within a Script. Choices is indexed
// first by room name (not by Room value — Rooms are singletons
// identified by name, never used as map keys), then by the player's
// current path ("*" if the scene doesn't branch on path), then by the
// digit they entered ("*" for an unrecognized or absent digit), to a
// list of room names queued up next. A scene with no entry in Choices
// for its last visited room, and an empty queue, is done.
type Scene struct {
	Name    string
	Start   []string
	Choices map[string]map[string]map[string][]string
}

// HasChoices reports whether roomName has any outgoing Choices entry.
func (s *Scene) HasChoices(roomName string) bool {
	_, ok := s.Choices[roomName]
	return ok
}

// Done reports whether this scene has finished for the given ScriptInfo.
func (s *Scene) Done(si *storymodel.ScriptInfo) bool {
	info, ok := si.SceneStates[s.Name]
	if !ok {
		return false
	}
	return info.Done(s.HasChoices)
}

func (s *Scene) choicesFor(roomName, path, digits string) ([]string, bool) {
	byPath, ok := s.Choices[roomName]
	if !ok {
		return nil, false
	}
	table, ok := byPath[path]
	if !ok {
		table, ok = byPath["*"]
		if !ok {
			return nil, false
		}
	}
	if list, ok := table[digits]; ok {
		return list, true
	}
	if list, ok := table["*"]; ok {
		return list, true
	}
	return nil, false
}

// Play advances scriptInfo's SceneInfo for this scene by exactly one
// room: it notifies the previously visited room (if any) of the digit
// the player just entered, resolves the next room from either the
// pending queue or this scene's Choices table, and renders that room's
// Action. Any error unwinds scriptInfo back to its pre-call snapshot and
// is wrapped as storyerr.StoryNavigationError, matching the "never leave
// a half-applied mutation in a player's saved record" rule.
func (s *Scene) Play(ctx context.Context, registry *Registry, shard *sharedstate.Shard, player *storymodel.Player, digits string, scriptInfo *storymodel.ScriptInfo) (*twiml.Document, error) {
	snapshot := scriptInfo.Snapshot()
	doc, err := s.play(ctx, registry, shard, player, digits, scriptInfo)
	if err != nil {
		*scriptInfo = *snapshot
		return nil, fmt.Errorf("storyengine: scene %q: %w: %v", s.Name, storyerr.StoryNavigationError, err)
	}
	return doc, nil
}

func (s *Scene) play(ctx context.Context, registry *Registry, shard *sharedstate.Shard, player *storymodel.Player, digits string, scriptInfo *storymodel.ScriptInfo) (*twiml.Document, error) {
	sceneInfo := scriptInfo.Scene(s.Name, s.Start)

	var prevRoom string
	if n := len(sceneInfo.RoomsVisited); n > 0 {
		prevRoom = sceneInfo.RoomsVisited[n-1]
	}

	if prevRoom != "" && digits != "" {
		room, ok := registry.Get(prevRoom)
		if !ok {
			return nil, fmt.Errorf("unknown room %q", prevRoom)
		}
		roomInfo := sceneInfo.Room(prevRoom)
		rc := newRoomContext(player, shard, scriptInfo, sceneInfo, roomInfo)
		if err := room.NewPlayerChoice(ctx, digits, rc); err != nil {
			return nil, err
		}
		rc.applyTo(scriptInfo, sceneInfo, roomInfo, true)
		roomInfo.Choices = append(roomInfo.Choices, digits)
	}

	queue := sceneInfo.RoomQueue
	if len(queue) == 0 {
		path := scriptInfo.Data["path"]
		if list, ok := s.choicesFor(prevRoom, path, digits); ok {
			queue = list
		}
	}

	var roomName string
	if len(queue) > 0 {
		roomName, queue = queue[0], queue[1:]
	} else if prevRoom != "" {
		roomName = prevRoom
	} else {
		return nil, fmt.Errorf("empty room queue with no room yet visited")
	}

	room, ok := registry.Get(roomName)
	if !ok {
		return nil, fmt.Errorf("unknown room %q", roomName)
	}
	roomInfo := sceneInfo.Room(roomName)
	rc := newRoomContext(player, shard, scriptInfo, sceneInfo, roomInfo)
	doc, err := room.Action(ctx, rc)
	if err != nil {
		return nil, err
	}
	rc.applyTo(scriptInfo, sceneInfo, roomInfo, true)

	sceneInfo.RoomsVisited = append(sceneInfo.RoomsVisited, roomName)
	sceneInfo.RoomQueue = queue
	return doc, nil
}
