// Package texthandler defines the ordered, per-script inbound-SMS
// dispatch pipeline: each narrative registers a small ordered list of
// Handlers that inspect every text addressed to one of its numbers,
// regardless of which room or scene the player currently occupies.
package texthandler

import (
	"context"
	"fmt"

	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/sharedstate"
	"github.com/aeturnum/spins-halp-line/internal/storymodel"
)

// InboundText is one delivered SMS/MMS, as parsed from a Twilio webhook.
type InboundText struct {
	From phoneid.ID
	To   phoneid.ID
	Body string
	SID  string
}

// Handler reacts to inbound texts for a player already mid-script. A
// Handler may read and write the player's shared-state Shard and its
// own ScriptInfo.Data, but must not block on network calls any longer
// than a single outbound SMS/voice request.
type Handler interface {
	Name() string
	NewText(ctx context.Context, req InboundText, shard *sharedstate.Shard, scriptInfo *storymodel.ScriptInfo) error
}

// dedupePrefix namespaces the SID-seen marker stored in
// ScriptInfo.TextHandlerStates so it can't collide with a handler that
// also keys its own state off a plain SID-like string.
const dedupePrefix = "text-sid:"

// Dispatch runs every handler against req in order. Twilio's delivery
// webhook can retry, so a request whose SID has already been fully
// processed for this ScriptInfo is skipped outright.
func Dispatch(ctx context.Context, handlers []Handler, req InboundText, shard *sharedstate.Shard, scriptInfo *storymodel.ScriptInfo) error {
	if req.SID != "" {
		if _, seen := scriptInfo.TextHandlerStates[dedupePrefix+req.SID]; seen {
			return nil
		}
	}
	for _, h := range handlers {
		if err := h.NewText(ctx, req, shard, scriptInfo); err != nil {
			return fmt.Errorf("texthandler: %s: %w", h.Name(), err)
		}
	}
	if req.SID != "" {
		scriptInfo.TextHandlerStates[dedupePrefix+req.SID] = "1"
	}
	return nil
}
