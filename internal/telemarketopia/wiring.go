package telemarketopia

import (
	"context"

	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/conference"
	"github.com/aeturnum/spins-halp-line/internal/kvstore"
	"github.com/aeturnum/spins-halp-line/internal/mediacatalog"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/playerstore"
	"github.com/aeturnum/spins-halp-line/internal/sharedstate"
	"github.com/aeturnum/spins-halp-line/internal/storyengine"
	"github.com/aeturnum/spins-halp-line/internal/storymodel"
	"github.com/aeturnum/spins-halp-line/internal/taskrunner"
	"github.com/aeturnum/spins-halp-line/internal/voicegateway"
)

// Deps bundles every process-wide collaborator this narrative needs to
// wire itself up, all constructed once in cmd/tipline and passed in
// rather than reached for as package-level singletons (spec §9).
type Deps struct {
	KV      kvstore.Store
	Media   *mediacatalog.Catalog
	Numbers *mediacatalog.NumberLibrary
	Voice   *voicegateway.Gateway
	Players *playerstore.Store
	Tasks   *taskrunner.Runner
	Logger  *zap.Logger

	TwimlBaseURL string
}

// Narrative is this show's fully wired set of components: the Script
// the StoryRouter dispatches voice calls and texts to, the Conference
// Coordinator driving the first-conference handshake, and the record
// store both the HTTP conference webhooks and the Conductor share.
type Narrative struct {
	Script    *storyengine.Script
	Conductor *conference.Conductor
	Records   *conference.Store
	Manager   *sharedstate.Manager

	ConferenceNumber phoneid.ID
	FinalNumber      phoneid.ID
}

// errNoSuchLabel is returned when the number manifest doesn't carry a
// label this narrative requires.
type errNoSuchLabel string

func (e errNoSuchLabel) Error() string { return "telemarketopia: no number labeled " + string(e) }

// Build assembles the complete Telemarketopia narrative: rooms, scenes,
// script structure, shared-state manager and reduce hook, the first-
// conference Conductor, the destruction-conference follow-up, and the
// text handler pipeline. Grounded in telemarketopia.py's top-level
// story assembly plus tele_story_objects.py's room/scene wiring and
// telemarketopia_conferences.py's conductor construction.
func Build(deps Deps) (*Narrative, error) {
	tipline, ok := deps.Numbers.FromLabel(LabelTipLine)
	if !ok {
		return nil, errNoSuchLabel(LabelTipLine)
	}
	confNumber, ok := deps.Numbers.FromLabel(LabelConference)
	if !ok {
		return nil, errNoSuchLabel(LabelConference)
	}
	finalNumber, ok := deps.Numbers.FromLabel(LabelFinal)
	if !ok {
		return nil, errNoSuchLabel(LabelFinal)
	}

	roomDeps := RoomDeps{Media: deps.Media, Voice: deps.Voice, FromNumber: tipline}

	entry := &entryRoom{RoomDeps: roomDeps}
	intro := &introRoom{RoomDeps: roomDeps}
	puzzle := &puzzleRoom{RoomDeps: roomDeps}
	ghost := &ghostRoom{RoomDeps: roomDeps}
	queue := &queueRoom{RoomDeps: roomDeps}
	holding := &holdingRoom{RoomDeps: roomDeps}

	registry := storyengine.NewRegistry().
		Register(entry).
		Register(intro).
		Register(puzzle).
		Register(ghost).
		Register(queue).
		Register(holding)

	mazeScene := buildMazeScene(entry, intro, puzzle, ghost, queue)
	holdingScene := buildHoldingScene(holding)

	structure := storyengine.NewStructure().
		On(storymodel.StateNew, storyengine.Exact(tipline), mazeScene, StateWaiting).
		On(StateWaiting, storyengine.Any(), holdingScene, storymodel.IgnoreChange)

	manager := sharedstate.NewManager(deps.KV, ScriptName, SharedStateFields)
	records := conference.NewStore(deps.KV)

	finalDeps := finalConferenceDeps{
		Players:      deps.Players,
		Records:      records,
		Tasks:        deps.Tasks,
		Logger:       deps.Logger,
		FinalNumber:  finalNumber,
		TwimlBaseURL: deps.TwimlBaseURL,
		text: func(ctx context.Context, to phoneid.ID, body string) {
			_, _ = deps.Voice.SendSMS(ctx, to, finalNumber, body, "")
		},
		placeCall: deps.Voice.PlaceCall,
	}

	// conductor is declared before combinedReduce is built since the
	// reduce closure calls conductor.Reduce, but isn't assigned until
	// after NewConductor runs; Go closures capture the variable, not
	// its value at closure-creation time, so this is safe as long as
	// combinedReduce is never invoked before Build returns.
	var conductor *conference.Conductor
	combinedReduce := func(ctx context.Context, state *sharedstate.State, shard *sharedstate.Shard) error {
		if err := conductor.Reduce(ctx, state, shard); err != nil {
			return err
		}
		return finalDeps.finalReduce(ctx, state, shard)
	}

	conductorDeps := conference.Deps{
		Players:      deps.Players,
		Voice:        deps.Voice,
		Media:        deps.Media,
		Records:      records,
		Tasks:        deps.Tasks,
		Manager:      manager,
		Reduce:       combinedReduce,
		Logger:       deps.Logger,
		TwimlBaseURL: deps.TwimlBaseURL,
	}
	conductorCfg := conference.Config{
		ScriptName:         ScriptName,
		FromNumber:         confNumber,
		NudgeAsset:         AssetConferenceNudge,
		TextReady:          TextConfReady,
		TextReadyReminder:  TextConfReminder,
		TextUnreadyReplied: TextUnreadyReplied,
		TextUnreadyNoReply: TextUnreadyNoReply,
		Clavae:             clavaeConfig(),
		Karen:              karenConfig(),
	}
	conductor = conference.NewConductor(conductorDeps, conductorCfg)

	readyHandler := conference.ReadyHandler{ConferenceNumber: confNumber}
	postConf := postConferenceHandler{ConferenceNumber: confNumber, Deps: roomDeps}
	finalAnswer := finalAnswerHandler{FinalNumber: finalNumber, Deps: roomDeps, TwimlBaseURL: deps.TwimlBaseURL}

	records.SetEventHook(newConferenceEventHook(roomDeps, deps.Players))

	script := storyengine.NewScript(
		ScriptName,
		structure,
		registry,
		manager,
		combinedReduce,
		deps.Tasks,
		readyHandler, postConf, finalAnswer,
	)

	return &Narrative{
		Script:           script,
		Conductor:        conductor,
		Records:          records,
		Manager:          manager,
		ConferenceNumber: confNumber,
		FinalNumber:      finalNumber,
	}, nil
}

// Load warms the room registry, loads the conference record store, then
// replays startup reconciliation (returning any crash-orphaned
// in-conference players to their waiting lists, deleting confused
// duplicate-path players), in that order.
func (n *Narrative) Load(ctx context.Context) error {
	if err := n.Script.Registry.Load(ctx); err != nil {
		return err
	}
	if err := n.Records.Load(ctx); err != nil {
		return err
	}
	return n.Conductor.OnStartup(ctx)
}
