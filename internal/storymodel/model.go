// Package storymodel defines the per-player persisted shapes: RoomInfo,
// SceneInfo, ScriptInfo, and Player. These are pure data; the rules that
// mutate them live in internal/storyengine and internal/playerstore.
package storymodel

import "github.com/aeturnum/spins-halp-line/internal/phoneid"

// Script state labels common to every narrative.
const (
	StateNew = "NEW"
	StateEnd = "END"

	// IgnoreChange is the sentinel next-state value meaning "keep the
	// current ScriptInfo.State as-is" — used by holding-pen scenes a
	// player can dial into without losing their place in the script.
	IgnoreChange = "__ignore_change__"
)

// RoomInfo is per-player, per-room, per-script state.
type RoomInfo struct {
	Name       string            `json:"name"`
	State      string            `json:"state"`
	FreshState bool              `json:"freshState"`
	Choices    []string          `json:"choices"`
	Data       map[string]string `json:"data"`
}

// NewRoomInfo returns a freshly initialized RoomInfo for name.
func NewRoomInfo(name string) *RoomInfo {
	return &RoomInfo{
		Name:    name,
		Choices: []string{},
		Data:    map[string]string{},
	}
}

// SceneInfo is per-player, per-scene, per-script state.
type SceneInfo struct {
	Name         string               `json:"name"`
	RoomsVisited []string             `json:"roomsVisited"`
	RoomStates   map[string]*RoomInfo `json:"roomStates"`
	RoomQueue    []string             `json:"roomQueue"`
	Data         map[string]string    `json:"data"`
	EndedEarly   bool                 `json:"endedEarly"`
}

// NewSceneInfo returns a freshly initialized SceneInfo for name, seeding
// RoomQueue from start.
func NewSceneInfo(name string, start []string) *SceneInfo {
	queue := make([]string, len(start))
	copy(queue, start)
	return &SceneInfo{
		Name:       name,
		RoomStates: map[string]*RoomInfo{},
		RoomQueue:  queue,
		Data:       map[string]string{},
	}
}

// Done reports whether the scene is complete: ended early, or the room
// queue is empty and the last visited room has no outgoing choices
// (hasChoices is supplied by the caller, which knows the choice table).
func (s *SceneInfo) Done(hasChoices func(lastRoom string) bool) bool {
	if s.EndedEarly {
		return true
	}
	if len(s.RoomQueue) != 0 {
		return false
	}
	if len(s.RoomsVisited) == 0 {
		return false
	}
	last := s.RoomsVisited[len(s.RoomsVisited)-1]
	return !hasChoices(last)
}

// Room returns (creating if absent) the RoomInfo for name.
func (s *SceneInfo) Room(name string) *RoomInfo {
	r, ok := s.RoomStates[name]
	if !ok {
		r = NewRoomInfo(name)
		s.RoomStates[name] = r
	}
	return r
}

// ScriptInfo is per-player, per-script state.
type ScriptInfo struct {
	State             string                `json:"state"`
	SceneStates       map[string]*SceneInfo `json:"sceneStates"`
	SceneHistory      []string              `json:"sceneHistory"`
	TextHandlerStates map[string]string     `json:"textHandlerStates"`
	Data              map[string]string     `json:"data"`
}

// NewScriptInfo returns a freshly initialized ScriptInfo in StateNew.
func NewScriptInfo() *ScriptInfo {
	return &ScriptInfo{
		State:             StateNew,
		SceneStates:       map[string]*SceneInfo{},
		SceneHistory:      []string{},
		TextHandlerStates: map[string]string{},
		Data:              map[string]string{},
	}
}

// Complete reports whether the script has reached its terminal state.
func (si *ScriptInfo) Complete() bool {
	return si.State == StateEnd
}

// Scene returns (creating if absent) the SceneInfo for name, seeding its
// room queue from start when newly created.
func (si *ScriptInfo) Scene(name string, start []string) *SceneInfo {
	sc, ok := si.SceneStates[name]
	if !ok {
		sc = NewSceneInfo(name, start)
		si.SceneStates[name] = sc
	}
	return sc
}

// Snapshot returns a deep copy, used to restore pre-request state when a
// Scene.Play fails with StoryNavigationError.
func (si *ScriptInfo) Snapshot() *ScriptInfo {
	cp := &ScriptInfo{
		State:             si.State,
		SceneHistory:      append([]string(nil), si.SceneHistory...),
		TextHandlerStates: map[string]string{},
		Data:              map[string]string{},
		SceneStates:       map[string]*SceneInfo{},
	}
	for k, v := range si.TextHandlerStates {
		cp.TextHandlerStates[k] = v
	}
	for k, v := range si.Data {
		cp.Data[k] = v
	}
	for name, scene := range si.SceneStates {
		cp.SceneStates[name] = scene.snapshot()
	}
	return cp
}

func (s *SceneInfo) snapshot() *SceneInfo {
	cp := &SceneInfo{
		Name:         s.Name,
		RoomsVisited: append([]string(nil), s.RoomsVisited...),
		RoomQueue:    append([]string(nil), s.RoomQueue...),
		Data:         map[string]string{},
		RoomStates:   map[string]*RoomInfo{},
		EndedEarly:   s.EndedEarly,
	}
	for k, v := range s.Data {
		cp.Data[k] = v
	}
	for name, room := range s.RoomStates {
		cp.RoomStates[name] = room.snapshot()
	}
	return cp
}

func (r *RoomInfo) snapshot() *RoomInfo {
	cp := &RoomInfo{
		Name:       r.Name,
		State:      r.State,
		FreshState: r.FreshState,
		Choices:    append([]string(nil), r.Choices...),
		Data:       map[string]string{},
	}
	for k, v := range r.Data {
		cp.Data[k] = v
	}
	return cp
}

// Player is the top-level per-phone-number persisted record.
type Player struct {
	Number     phoneid.ID             `json:"number"`
	Generation uint64                 `json:"generation"`
	Scripts    map[string]*ScriptInfo `json:"scripts"`
}

// NewPlayer returns a fresh player record for number, generation zero.
func NewPlayer(number phoneid.ID) *Player {
	return &Player{
		Number:  number,
		Scripts: map[string]*ScriptInfo{},
	}
}

// Script returns (creating if absent) the ScriptInfo for scriptName.
func (p *Player) Script(scriptName string) *ScriptInfo {
	si, ok := p.Scripts[scriptName]
	if !ok {
		si = NewScriptInfo()
		p.Scripts[scriptName] = si
	}
	return si
}
