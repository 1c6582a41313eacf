package storyengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/sharedstate"
	"github.com/aeturnum/spins-halp-line/internal/storymodel"
	"github.com/aeturnum/spins-halp-line/internal/taskrunner"
	"github.com/aeturnum/spins-halp-line/internal/texthandler"
	"github.com/aeturnum/spins-halp-line/internal/twiml"
)

// ErrDeclined is returned by Script.Handle when the call isn't this
// script's to answer: neither a continuing player nor a number this
// script claims for new games. The router tries the next registered
// script.
var ErrDeclined = errors.New("storyengine: script declines request")

// InboundCall is one voice webhook, reduced to what routing needs.
type InboundCall struct {
	From   phoneid.ID
	Called phoneid.ID
	Digits string
}

// Script is one complete narrative: a state -> RouteTable structure, the
// Room registry its Scenes traverse, the shared-state Manager and
// reduce hook for its cross-player lists, and the ordered TextHandlers
// that process inbound SMS for players mid-script.
type Script struct {
	Name         string
	Structure    Structure
	Registry     *Registry
	StateManager *sharedstate.Manager
	Reduce       sharedstate.ReduceFunc
	Tasks        *taskrunner.Runner
	TextHandlers []texthandler.Handler
}

// NewScript builds a Script from its pieces.
func NewScript(name string, structure Structure, registry *Registry, manager *sharedstate.Manager, reduce sharedstate.ReduceFunc, tasks *taskrunner.Runner, handlers ...texthandler.Handler) *Script {
	return &Script{
		Name:         name,
		Structure:    structure,
		Registry:     registry,
		StateManager: manager,
		Reduce:       reduce,
		Tasks:        tasks,
		TextHandlers: handlers,
	}
}

// Handle plays one voice request against this script for player,
// mutating player.Scripts[s.Name] in place on success. It returns
// ErrDeclined if this script doesn't apply to call at all;
// any other error means the script DID apply but failed mid-play, and
// player's script state has already been rewound to before the call.
func (s *Script) Handle(ctx context.Context, player *storymodel.Player, call InboundCall) (*twiml.Document, error) {
	existing, has := player.Scripts[s.Name]
	continuing := has && !existing.Complete()

	if !continuing {
		table, ok := s.Structure[storymodel.StateNew]
		if !ok {
			return nil, ErrDeclined
		}
		if _, ok := table.Lookup(call.Called); !ok {
			return nil, ErrDeclined
		}
		player.Scripts[s.Name] = storymodel.NewScriptInfo()
	}
	scriptInfo := player.Script(s.Name)

	table, ok := s.Structure[scriptInfo.State]
	if !ok {
		return nil, ErrDeclined
	}
	sceneAndNext, ok := table.Lookup(call.Called)
	if !ok {
		return nil, fmt.Errorf("storyengine: script %q: no scene for state %q, number %s", s.Name, scriptInfo.State, call.Called.E164())
	}

	shard := s.StateManager.NewShard()
	doc, err := sceneAndNext.Scene.Play(ctx, s.Registry, shard, player, call.Digits, scriptInfo)
	if err != nil {
		return nil, err
	}

	if sceneAndNext.Scene.Done(scriptInfo) && sceneAndNext.NextState != storymodel.IgnoreChange {
		scriptInfo.SceneHistory = append(scriptInfo.SceneHistory, sceneAndNext.Scene.Name)
		scriptInfo.State = sceneAndNext.NextState
	}

	if s.Tasks != nil {
		task := &sharedstate.IntegrateTask{Manager: s.StateManager, Shard: shard, Reduce: s.Reduce}
		if enqueueErr := s.Tasks.Enqueue(ctx, task); enqueueErr != nil {
			return nil, fmt.Errorf("storyengine: script %q: enqueue integrate: %w", s.Name, enqueueErr)
		}
	}

	return doc, nil
}

// ProcessText dispatches an inbound SMS to this script's TextHandlers,
// provided player is currently mid-script. A no-op otherwise.
func (s *Script) ProcessText(ctx context.Context, player *storymodel.Player, req texthandler.InboundText) error {
	scriptInfo, has := player.Scripts[s.Name]
	if !has || scriptInfo.Complete() {
		return nil
	}

	shard := s.StateManager.NewShard()
	if err := texthandler.Dispatch(ctx, s.TextHandlers, req, shard, scriptInfo); err != nil {
		return fmt.Errorf("storyengine: script %q: %w", s.Name, err)
	}

	if s.Tasks != nil {
		task := &sharedstate.IntegrateTask{Manager: s.StateManager, Shard: shard, Reduce: s.Reduce}
		return s.Tasks.Enqueue(ctx, task)
	}
	return nil
}
