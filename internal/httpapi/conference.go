package httpapi

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/twiml"
)

func confIDFromPath(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("confId"), 10, 64)
	return id, err == nil
}

// confTwiml answers the per-leg TwiML fetch Twilio makes for each
// outbound call we place into a conference: play that participant's
// pending intro clip, if any, then dial them into the named conference,
// tagged with their own number as the participantLabel so the status
// callback can tell participants apart (Twilio conference callbacks
// carry no From/To of their own).
func (s *Server) confTwiml(c *gin.Context) {
	ctx := c.Request.Context()

	confID, ok := confIDFromPath(c)
	if !ok {
		respondTwiml(c, twiml.New().Hangup())
		return
	}
	participant, err := phoneid.Parse(form(c, "To"))
	if err != nil {
		s.cfg.Logger.Warn("httpapi: conf twiml: bad To", zap.Int64("conf", confID), zap.Error(err))
		respondTwiml(c, twiml.New().Hangup())
		return
	}

	doc := twiml.New()
	if asset, ok, err := s.cfg.Records.TakeIntro(ctx, confID, participant); err != nil {
		s.cfg.Logger.Error("httpapi: conf twiml: take intro failed", zap.Int64("conf", confID), zap.Error(err))
	} else if ok {
		doc = s.playAsset(ctx, doc, asset)
	}

	statusCB := fmt.Sprintf("%s/conf/status/%d", s.cfg.TwimlBaseURL, confID)
	name := fmt.Sprintf("conf-%d", confID)
	respondTwiml(c, doc.DialConference(name, participant.E164(), statusCB, ""))
}

// confStatus answers Twilio's conference status callback, applying the
// event to the record store and acking with an empty document — Twilio
// discards whatever TwiML a status callback returns, but it still has
// to be valid voice-XML.
func (s *Server) confStatus(c *gin.Context) {
	ctx := c.Request.Context()

	confID, ok := confIDFromPath(c)
	if !ok {
		respondTwiml(c, twiml.New())
		return
	}

	var participant phoneid.ID
	if raw := form(c, "ParticipantLabel"); raw != "" {
		if id, err := phoneid.Parse(raw); err == nil {
			participant = id
		}
	}

	event := form(c, "StatusCallbackEvent")
	twilioSID := form(c, "ConferenceSid")
	if err := s.cfg.Records.HandleEvent(ctx, confID, twilioSID, event, participant); err != nil {
		s.cfg.Logger.Error("httpapi: conf status: handle event failed",
			zap.Int64("conf", confID), zap.String("event", event), zap.Error(err))
	}
	respondTwiml(c, twiml.New())
}
