package conference

import (
	"context"
	"time"

	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/sharedstate"
	"github.com/aeturnum/spins-halp-line/internal/storymodel"
	"github.com/aeturnum/spins-halp-line/internal/texthandler"
)

// KeyInFirstConf marks that a player has already shared a first
// conference attempt, so a stray reply to the conference number after
// that point doesn't re-arm the readiness handshake.
const KeyInFirstConf = "conf_in_first_conference"

// ReadyHandler is the texthandler.Handler a narrative registers so any
// reply to its conference number timestamps the sender as ready for
// their pending match.
type ReadyHandler struct {
	ConferenceNumber phoneid.ID
}

func (ReadyHandler) Name() string { return "conference-ready" }

func (h ReadyHandler) NewText(ctx context.Context, req texthandler.InboundText, shard *sharedstate.Shard, si *storymodel.ScriptInfo) error {
	if !req.To.Equal(h.ConferenceNumber) {
		return nil
	}
	if si.Data[KeyInFirstConf] == "true" {
		return nil
	}
	si.Data[KeyReadyAt] = time.Now().UTC().Format(time.RFC3339)
	return nil
}
