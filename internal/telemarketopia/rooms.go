package telemarketopia

import (
	"context"
	"fmt"

	"github.com/aeturnum/spins-halp-line/internal/conference"
	"github.com/aeturnum/spins-halp-line/internal/mediacatalog"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/storyengine"
	"github.com/aeturnum/spins-halp-line/internal/twiml"
	"github.com/aeturnum/spins-halp-line/internal/voicegateway"
)

// RoomDeps bundles the media and voice dependencies this narrative's
// rooms close over, grounded in how tele_story_objects.py's rooms reach
// back into the story's shared Resource Space and SMS sender.
type RoomDeps struct {
	Media      *mediacatalog.Catalog
	Voice      *voicegateway.Gateway
	FromNumber phoneid.ID
}

func (d RoomDeps) play(ctx context.Context, doc *twiml.Document, assetID int64) *twiml.Document {
	asset, err := d.Media.Asset(ctx, assetID)
	if err != nil {
		return doc.Say("Static crackles on the line.")
	}
	return doc.Play(asset.URL)
}

func (d RoomDeps) text(ctx context.Context, to phoneid.ID, body string) {
	_, _ = d.Voice.SendSMS(ctx, to, d.FromNumber, body, "")
}

// entryRoom assigns the caller to whichever path currently has fewer
// players, grounded in TipLineStart's "least populated track" balancing
// in telemarketopia.py.
type entryRoom struct {
	storyengine.BaseRoom
	RoomDeps
}

func (r *entryRoom) Name() string { return "tele.Entry" }

func (r *entryRoom) Action(ctx context.Context, rc *storyengine.RoomContext) (*twiml.Document, error) {
	clavae, _ := rc.Shard.Get(FieldClavaePlayers)
	karen, _ := rc.Shard.Get(FieldKarenPlayers)

	path := PathClavae
	if len(karen) < len(clavae) {
		path = PathKaren
	}
	rc.Script[KeyPath] = string(path)

	field := FieldClavaePlayers
	recruitText := TextClavaeRecruit
	if path == PathKaren {
		field = FieldKarenPlayers
		recruitText = TextKarenRecruit
	}
	if err := rc.Shard.Append(field, rc.Player.Number, false); err != nil {
		return nil, fmt.Errorf("tele: entry: %w", err)
	}
	r.text(ctx, rc.Player.Number, recruitText)

	doc := r.play(ctx, twiml.New(), AssetTipLineGreeting)
	return doc.Gather(1, ""), nil
}

// introRoom plays the path-specific recruitment beat.
type introRoom struct {
	storyengine.BaseRoom
	RoomDeps
}

func (r *introRoom) Name() string { return "tele.Intro" }

func (r *introRoom) Action(ctx context.Context, rc *storyengine.RoomContext) (*twiml.Document, error) {
	asset := int64(AssetClavaeContent)
	if Path(rc.Script[KeyPath]) == PathKaren {
		asset = AssetKarenContent
	}
	doc := r.play(ctx, twiml.New(), asset)
	return doc.Gather(1, ""), nil
}

// puzzleRoom is the foreshadowing riddle room — spec's "final-puzzle
// room" beat, played during the normal content maze well before the
// SMS-driven climax. A caller pressing 9 finds the easter egg instead.
type puzzleRoom struct {
	storyengine.BaseRoom
	RoomDeps
}

func (r *puzzleRoom) Name() string { return "tele.Puzzle" }

func (r *puzzleRoom) Action(ctx context.Context, rc *storyengine.RoomContext) (*twiml.Document, error) {
	doc := r.play(ctx, twiml.New(), AssetFinalPuzzle)
	return doc.Gather(1, ""), nil
}

// ghostRoom is the easter-egg detour, grounded in telemarketopia.py's
// hidden "Ghost" room reachable from a handful of content rooms.
type ghostRoom struct {
	storyengine.BaseRoom
	RoomDeps
}

func (r *ghostRoom) Name() string { return "tele.Ghost" }

func (r *ghostRoom) Action(ctx context.Context, rc *storyengine.RoomContext) (*twiml.Document, error) {
	doc := r.play(ctx, twiml.New(), AssetGhostEasterEgg)
	return doc.Gather(1, ""), nil
}

// queueRoom enqueues the caller onto their path's waiting-for-conference
// list and ends the maze scene.
type queueRoom struct {
	storyengine.BaseRoom
	RoomDeps
}

func (r *queueRoom) Name() string { return "tele.Queue" }

func (r *queueRoom) Action(ctx context.Context, rc *storyengine.RoomContext) (*twiml.Document, error) {
	field := FieldClavaeWaiting
	if Path(rc.Script[KeyPath]) == PathKaren {
		field = FieldKarenWaiting
	}
	if err := rc.Shard.Append(field, rc.Player.Number, false); err != nil {
		return nil, fmt.Errorf("tele: queue: %w", err)
	}
	doc := r.play(ctx, twiml.New(), AssetQueueHold)
	return doc.Hangup(), nil
}

// holdingRoom is the perpetual WAITING-state room: replayed on every
// call back from a caller still waiting for, in, or past their first
// conference. Its behavior branches entirely on ScriptInfo/RoomInfo
// flags rather than on Scene routing, matching PleaseWaitRoom's
// self-contained state handling in tele_story_objects.py.
type holdingRoom struct {
	storyengine.BaseRoom
	RoomDeps
}

func (r *holdingRoom) Name() string { return "tele.Holding" }

func (r *holdingRoom) NewPlayerChoice(ctx context.Context, digit string, rc *storyengine.RoomContext) error {
	if rc.Script[conference.KeyInFirstConf] != "true" {
		return nil
	}
	if rc.Script[KeyFinalChoice] != "" {
		return nil
	}
	switch digit {
	case "3":
		field := FieldClavaeFinalist
		if Path(rc.Script[KeyPath]) == PathKaren {
			field = FieldKarenFinalist
		}
		if err := rc.Shard.Append(field, rc.Player.Number, false); err != nil {
			return fmt.Errorf("tele: holding: %w", err)
		}
		rc.Script[KeyFinalChoice] = "queued"
	case "1", "2":
		rc.Script[KeyFinalChoice] = ""
	}
	return nil
}

func (r *holdingRoom) Action(ctx context.Context, rc *storyengine.RoomContext) (*twiml.Document, error) {
	doc := twiml.New()
	switch {
	case rc.Script[KeyFinalChoice] == "queued":
		return doc.Say(TextFinalPuzzle1).Hangup(), nil
	case rc.Script[conference.KeyInFirstConf] == "true":
		return doc.Say(TextPostConfMenu).Gather(1, ""), nil
	default:
		return r.play(ctx, doc, AssetQueueHold).Hangup(), nil
	}
}
