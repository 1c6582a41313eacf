package storyengine

import "github.com/aeturnum/spins-halp-line/internal/phoneid"

// RouteKey picks out which dialed number a Structure entry applies to:
// either one specific PhoneId or the wildcard "any number this script
// doesn't otherwise claim". It replaces comparing a PhoneId directly
// against a sentinel wildcard string, which would make two distinct
// identity notions ("this exact caller" vs "nobody in particular")
// collide inside ordinary PhoneId equality.
type RouteKey struct {
	id  phoneid.ID
	any bool
}

// Exact routes only the given number.
func Exact(id phoneid.ID) RouteKey {
	return RouteKey{id: id}
}

// Any routes whatever number a specific entry doesn't already claim.
func Any() RouteKey {
	return RouteKey{any: true}
}

// SceneAndNextState pairs the Scene played for a given (state, dialed
// number) combination with the ScriptInfo.State to move to once that
// scene finishes — storymodel.IgnoreChange to stay put.
type SceneAndNextState struct {
	Scene     *Scene
	NextState string
}

// RouteTable resolves one ScriptInfo.State's dialed-number routing: an
// exact match always wins over the wildcard entry, if both exist.
type RouteTable struct {
	exact    map[string]SceneAndNextState
	wildcard *SceneAndNextState
}

// NewRouteTable returns an empty RouteTable.
func NewRouteTable() *RouteTable {
	return &RouteTable{exact: map[string]SceneAndNextState{}}
}

// Add registers s under key, returning the table for chaining.
func (t *RouteTable) Add(key RouteKey, s SceneAndNextState) *RouteTable {
	if key.any {
		cp := s
		t.wildcard = &cp
		return t
	}
	t.exact[key.id.E164()] = s
	return t
}

// Lookup resolves dialed against this table's exact entries, falling
// back to the wildcard entry if present.
func (t *RouteTable) Lookup(dialed phoneid.ID) (SceneAndNextState, bool) {
	if s, ok := t.exact[dialed.E164()]; ok {
		return s, true
	}
	if t.wildcard != nil {
		return *t.wildcard, true
	}
	return SceneAndNextState{}, false
}

// Structure is a Script's full state -> RouteTable map, one entry per
// ScriptInfo.State the script defines (storymodel.StateNew included).
type Structure map[string]*RouteTable

// NewStructure returns an empty Structure.
func NewStructure() Structure {
	return Structure{}
}

// On registers scene/nextState under (state, key), creating state's
// RouteTable on first use. Returns the Structure for chaining.
func (s Structure) On(state string, key RouteKey, scene *Scene, nextState string) Structure {
	table, ok := s[state]
	if !ok {
		table = NewRouteTable()
		s[state] = table
	}
	table.Add(key, SceneAndNextState{Scene: scene, NextState: nextState})
	return s
}
