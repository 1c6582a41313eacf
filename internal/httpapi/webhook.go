package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/storyengine"
	"github.com/aeturnum/spins-halp-line/internal/texthandler"
	"github.com/aeturnum/spins-halp-line/internal/twiml"
)

// form reads a Twilio webhook parameter from either the query string
// (GET, used by Twilio's request-inspector and local curl testing) or
// the posted form body (POST, Twilio's actual webhook content type).
func form(c *gin.Context, key string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	return c.Query(key)
}

func respondTwiml(c *gin.Context, doc *twiml.Document) {
	c.Data(200, "application/xml; charset=utf-8", doc.Bytes())
}

// tiplineStart answers Twilio's inbound-call webhook: it identifies the
// caller and the number they dialed and hands both to the StoryRouter,
// whose job is deciding which registered narrative claims the call.
func (s *Server) tiplineStart(c *gin.Context) {
	ctx := c.Request.Context()

	from, err := phoneid.Parse(form(c, "From"))
	if err != nil {
		s.cfg.Logger.Warn("httpapi: tipline start: bad From", zap.String("raw", form(c, "From")), zap.Error(err))
		respondTwiml(c, storyengine.ConfusedResponse())
		return
	}
	calledRaw := form(c, "Called")
	if calledRaw == "" {
		calledRaw = form(c, "To")
	}
	called, err := phoneid.Parse(calledRaw)
	if err != nil {
		s.cfg.Logger.Warn("httpapi: tipline start: bad Called", zap.String("raw", calledRaw), zap.Error(err))
		respondTwiml(c, storyengine.ConfusedResponse())
		return
	}

	call := storyengine.InboundCall{From: from, Called: called, Digits: form(c, "Digits")}
	respondTwiml(c, s.cfg.Router.HandleCall(ctx, call))
}

// tiplineSMS answers Twilio's inbound-message webhook: every narrative's
// TextHandlers get a look, and we always ack with an empty voice-XML
// document since SMS webhooks don't expect spoken content back.
func (s *Server) tiplineSMS(c *gin.Context) {
	ctx := c.Request.Context()

	from, err := phoneid.Parse(form(c, "From"))
	if err != nil {
		s.cfg.Logger.Warn("httpapi: tipline sms: bad From", zap.String("raw", form(c, "From")), zap.Error(err))
		respondTwiml(c, twiml.New())
		return
	}
	to, err := phoneid.Parse(form(c, "To"))
	if err != nil {
		s.cfg.Logger.Warn("httpapi: tipline sms: bad To", zap.String("raw", form(c, "To")), zap.Error(err))
		respondTwiml(c, twiml.New())
		return
	}

	sid := form(c, "SmsSid")
	if sid == "" {
		sid = form(c, "MessageSid")
	}
	req := texthandler.InboundText{From: from, To: to, Body: form(c, "Body"), SID: sid}
	if err := s.cfg.Router.HandleText(ctx, req); err != nil {
		s.cfg.Logger.Error("httpapi: tipline sms: handle text failed", zap.Error(err))
	}
	respondTwiml(c, twiml.New())
}
