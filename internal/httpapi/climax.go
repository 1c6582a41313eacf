package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/aeturnum/spins-halp-line/internal/twiml"
)

// climax answers a caller dialing the narrative's ending number, whose
// two path segments are the post-conference menu digit each half of a
// pair chose — resolved purely from the URL, no player lookup needed,
// since both digits travel in the dialed number's path already.
func (s *Server) climax(c *gin.Context) {
	ctx := c.Request.Context()
	assetID := s.cfg.ClimaxAsset(c.Param("a"), c.Param("b"))
	doc := s.playAsset(ctx, twiml.New(), assetID)
	respondTwiml(c, doc.Hangup())
}

// finalClimax answers the destruction-puzzle outcome call, one of
// "right" or "wrong" chosen by finalAnswerHandler when it validated the
// SMS passcode reply.
func (s *Server) finalClimax(c *gin.Context) {
	ctx := c.Request.Context()
	assetID := s.cfg.FinalClimaxAsset(c.Param("result"))
	doc := s.playAsset(ctx, twiml.New(), assetID)
	respondTwiml(c, doc.Hangup())
}
