package telemarketopia

import (
	"context"
	"fmt"
	"strings"

	"github.com/aeturnum/spins-halp-line/internal/conference"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/sharedstate"
	"github.com/aeturnum/spins-halp-line/internal/storymodel"
	"github.com/aeturnum/spins-halp-line/internal/texthandler"
)

// postConferenceHandler is the SMS twin of holdingRoom's digit handling:
// a reply of "1"/"2"/"3" to the conference number, sent any time after
// a player's first conference has ended, texts back the title of their
// conference intro clip (no audio is played), texts them a reminder to
// keep waiting, or queues them for the destruction-puzzle climax. Grounded in
// ConferenceChecker.first_conf_text/first_conf_choice in
// telemarketopia_conferences.py, which resolves this entirely over SMS
// rather than a voice menu.
type postConferenceHandler struct {
	ConferenceNumber phoneid.ID
	Deps             RoomDeps
}

func (postConferenceHandler) Name() string { return "tele.post-conference-choice" }

func (h postConferenceHandler) NewText(ctx context.Context, req texthandler.InboundText, shard *sharedstate.Shard, si *storymodel.ScriptInfo) error {
	if !req.To.Equal(h.ConferenceNumber) {
		return nil
	}
	if si.Data[conference.KeyInFirstConf] != "true" {
		return nil
	}
	if si.Data[KeyFinalChoice] == "queued" {
		return nil
	}

	switch strings.TrimSpace(req.Body) {
	case "1":
		asset := int64(AssetClavaeConferenceIntro)
		if Path(si.Data[KeyPath]) == PathKaren {
			asset = AssetKarenConferenceIntro
		}
		clip, err := h.Deps.Media.Asset(ctx, asset)
		if err == nil {
			h.Deps.text(ctx, req.From, "Replaying: "+clip.Title)
		}
	case "2":
		h.Deps.text(ctx, req.From, TextConfReminder)
	case "3":
		field := FieldClavaeFinalist
		if Path(si.Data[KeyPath]) == PathKaren {
			field = FieldKarenFinalist
		}
		if err := shard.Append(field, req.From, false); err != nil {
			return err
		}
		si.Data[KeyFinalChoice] = "queued"
		h.Deps.text(ctx, req.From, TextFinalPuzzle1)
	}
	return nil
}

// finalAnswerHandler checks a queued finalist's SMS reply to the final
// number against the climax passcode, grounded in
// ConferenceChecker.final_answer_text. A correct answer triggers a
// "right" climax call to both participants; anything else triggers the
// "wrong" climax — the partner number comes from KeyPartner, stashed by
// finalStartTask when the pair was matched.
type finalAnswerHandler struct {
	FinalNumber  phoneid.ID
	Deps         RoomDeps
	TwimlBaseURL string

	// dial and sendText default to Deps.Voice.PlaceCall/Deps.text in
	// production; overridable in tests the same way
	// finalConferenceDeps.placeCall is, so the passcode/partner logic can
	// be exercised without a live Twilio client.
	dial     func(ctx context.Context, to, from phoneid.ID, twimlURL string) (string, error)
	sendText func(ctx context.Context, to phoneid.ID, body string)
}

func (finalAnswerHandler) Name() string { return "tele.final-answer" }

func (h finalAnswerHandler) placeCall(ctx context.Context, to, from phoneid.ID, twimlURL string) (string, error) {
	if h.dial != nil {
		return h.dial(ctx, to, from, twimlURL)
	}
	return h.Deps.Voice.PlaceCall(ctx, to, from, twimlURL)
}

func (h finalAnswerHandler) text(ctx context.Context, to phoneid.ID, body string) {
	if h.sendText != nil {
		h.sendText(ctx, to, body)
		return
	}
	h.Deps.text(ctx, to, body)
}

func (h finalAnswerHandler) NewText(ctx context.Context, req texthandler.InboundText, shard *sharedstate.Shard, si *storymodel.ScriptInfo) error {
	if !req.To.Equal(h.FinalNumber) {
		return nil
	}
	if si.Data[KeyFinalChoice] != "queued" {
		return nil
	}

	result := "wrong"
	if strings.TrimSpace(req.Body) == finalPasscode {
		si.Data[KeyFinalChoice] = "correct"
		h.text(ctx, req.From, TextFinalCorrect)
		result = "right"
	} else {
		si.Data[KeyFinalChoice] = "wrong"
		h.text(ctx, req.From, TextFinalWrong)
	}

	climaxURL := fmt.Sprintf("%s/finalclimax/%s", h.TwimlBaseURL, result)
	if _, err := h.placeCall(ctx, req.From, h.FinalNumber, climaxURL); err != nil {
		return err
	}
	if partner, ok := lookupPartner(si); ok {
		if _, err := h.placeCall(ctx, partner, h.FinalNumber, climaxURL); err != nil {
			return err
		}
	}
	return nil
}

// newConferenceEventHook builds the Store.EventHook that unlocks the
// post-conference menu for both participants once either of them leaves
// the first conference, mirroring ConferenceEventHandler's transition
// out of the readiness/connect state machine in the original.
func newConferenceEventHook(deps RoomDeps, players playerLoader) conference.EventHook {
	return func(ctx context.Context, rec *conference.Record, event string, participant phoneid.ID) {
		if event != conference.EventParticipantLeave {
			return
		}
		for p := range rec.Participants {
			num, err := phoneid.Parse(p)
			if err != nil {
				continue
			}
			player, err := players.Load(ctx, num)
			if err != nil || player == nil {
				continue
			}
			si := player.Script(ScriptName)
			if si.Data[conference.KeyInFirstConf] == "true" {
				continue
			}
			si.Data[conference.KeyInFirstConf] = "true"
			if _, err := players.Save(ctx, player); err != nil {
				continue
			}
			deps.text(ctx, num, TextPostConfMenu)
		}
	}
}

// playerLoader is the narrow slice of playerstore.Store the event hook
// needs, kept as an interface so it can be stubbed in tests.
type playerLoader interface {
	Load(ctx context.Context, num phoneid.ID) (*storymodel.Player, error)
	Save(ctx context.Context, p *storymodel.Player) (bool, error)
}
