package storyengine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/playerstore"
	"github.com/aeturnum/spins-halp-line/internal/storyerr"
	"github.com/aeturnum/spins-halp-line/internal/texthandler"
	"github.com/aeturnum/spins-halp-line/internal/twiml"
)

// ErrorNotifier sends a human operator a heads-up when a script fails
// mid-play, independent of whatever apology TwiML goes back to Twilio.
type ErrorNotifier interface {
	NotifyError(ctx context.Context, message string) error
}

// StoryRouter tries each registered Script in order against an inbound
// call or text, the way a phone-tree evaluates the first matching
// branch. Exactly one Script is expected to claim any given call in
// practice, but nothing stops more than one from being registered for
// future narratives sharing a process.
type StoryRouter struct {
	scripts []*Script
	players *playerstore.Store
	logger  *zap.Logger
	notify  ErrorNotifier
}

// NewStoryRouter builds a router over scripts, tried in the given order.
func NewStoryRouter(players *playerstore.Store, logger *zap.Logger, scripts ...*Script) *StoryRouter {
	return &StoryRouter{scripts: scripts, players: players, logger: logger}
}

// SetErrorNotifier wires an operator-facing error channel, optional.
func (r *StoryRouter) SetErrorNotifier(n ErrorNotifier) { r.notify = n }

// HandleCall loads the calling player, offers the request to each
// registered script in turn, and saves the player back on whichever
// script claims it. If every script declines, it returns the generic
// "we're lost" TwiML without touching the player record.
func (r *StoryRouter) HandleCall(ctx context.Context, call InboundCall) *twiml.Document {
	player, err := r.players.Load(ctx, call.From)
	if err != nil && !errors.Is(err, storyerr.DataIntegrityError) {
		r.logger.Error("storyengine: load player failed", zap.String("number", call.From.Friendly()), zap.Error(err))
		return ErrorResponse()
	}
	if err != nil {
		r.logger.Warn("storyengine: player record corrupt, starting fresh", zap.String("number", call.From.Friendly()), zap.Error(err))
	}

	for _, s := range r.scripts {
		doc, err := s.Handle(ctx, player, call)
		switch {
		case errors.Is(err, ErrDeclined):
			continue
		case err != nil:
			r.logger.Error("storyengine: script failed", zap.String("script", s.Name), zap.Error(err))
			if r.notify != nil {
				msg := "script " + s.Name + " failed for " + call.From.Friendly() + ": " + err.Error()
				if notifyErr := r.notify.NotifyError(ctx, msg); notifyErr != nil {
					r.logger.Error("storyengine: error notifier failed", zap.Error(notifyErr))
				}
			}
			return ErrorResponse()
		default:
			if _, err := r.players.Save(ctx, player); err != nil {
				r.logger.Error("storyengine: save player failed", zap.Error(err))
			}
			return doc
		}
	}
	return ConfusedResponse()
}

// HandleText loads the texting player and offers req to every
// registered script's TextHandlers, saving the player once regardless
// of how many scripts accepted it.
func (r *StoryRouter) HandleText(ctx context.Context, req texthandler.InboundText) error {
	player, err := r.players.Load(ctx, req.From)
	if err != nil && !errors.Is(err, storyerr.DataIntegrityError) {
		return err
	}
	for _, s := range r.scripts {
		if err := s.ProcessText(ctx, player, req); err != nil {
			r.logger.Error("storyengine: text handler failed", zap.String("script", s.Name), zap.Error(err))
		}
	}
	_, err = r.players.Save(ctx, player)
	return err
}

// ErrorResponse is the apology played when a script fails mid-request
// and the player's progress has already been rewound.
func ErrorResponse() *twiml.Document {
	return twiml.New().Say("Oh no! Something has gone wrong on our end! Please give us a moment to figure out what happened, and call back soon.")
}

// ConfusedResponse is played when no registered script will claim a
// call: it isn't a start number and the player isn't mid-script
// anywhere.
func ConfusedResponse() *twiml.Document {
	return twiml.New().Say("Hmm, we're not quite sure how you got here. Sorry about that!")
}
