// Package httpapi implements the inbound HTTP surface named in spec §6:
// the Twilio voice/SMS webhooks, the conference TwiML and status
// callbacks, the climax/finalclimax ending calls, and a small JWT-
// guarded debug surface. Route-group-per-concern with a constructor-
// injected handler struct, grounded on the teacher's router package
// shape (engine.Group(prefix), one constructor per concern) even though
// the teacher's own handlers are gRPC services layered behind gin
// elsewhere in its tree — this system answers Twilio's plain
// form-encoded webhooks directly, so the handlers here are native gin.
package httpapi

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/conference"
	"github.com/aeturnum/spins-halp-line/internal/mediacatalog"
	"github.com/aeturnum/spins-halp-line/internal/playerstore"
	"github.com/aeturnum/spins-halp-line/internal/storyengine"
	"github.com/aeturnum/spins-halp-line/internal/twiml"
	"github.com/aeturnum/spins-halp-line/internal/voicegateway"
)

// ClimaxAssetFunc resolves the /climax/:a/:b ending clip for one pair's
// combination of post-conference menu choices.
type ClimaxAssetFunc func(a, b string) int64

// FinalClimaxAssetFunc resolves the /finalclimax/:result ending clip,
// result being "right" or "wrong".
type FinalClimaxAssetFunc func(result string) int64

// Config bundles everything a Server needs, all constructed once in
// cmd/tipline and passed in explicitly rather than reached for as
// package-level state (spec §9).
type Config struct {
	Router  *storyengine.StoryRouter
	Players *playerstore.Store
	Media   *mediacatalog.Catalog
	Voice   *voicegateway.Gateway
	Records *conference.Store

	ClimaxAsset      ClimaxAssetFunc
	FinalClimaxAsset FinalClimaxAssetFunc

	TwimlBaseURL string
	DebugSecret  string
	Logger       *zap.Logger

	AllowedOrigins []string

	// TwilioAuthToken, when set, turns on X-Twilio-Signature validation
	// for every webhook Twilio calls directly (start/sms/conf twiml/conf
	// status). Left empty in tests, which post forms with no signature.
	TwilioAuthToken string
}

// Server owns the gin engine and every webhook/debug handler.
type Server struct {
	cfg    Config
	engine *gin.Engine
}

// New builds a Server and registers every route named in spec §6.
func New(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ginZapLogger(cfg.Logger))

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST"}
	engine.Use(cors.New(corsCfg))

	s := &Server{cfg: cfg, engine: engine}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine, e.g. for http.Server.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	tip := s.engine.Group("/tipline")
	tip.Use(s.requireTwilioSignature)
	{
		tip.GET("/start", s.tiplineStart)
		tip.POST("/start", s.tiplineStart)
		tip.GET("/sms", s.tiplineSMS)
		tip.POST("/sms", s.tiplineSMS)
	}

	conf := s.engine.Group("/conf")
	conf.Use(s.requireTwilioSignature)
	{
		conf.GET("/twiml/:confId", s.confTwiml)
		conf.POST("/twiml/:confId", s.confTwiml)
		conf.GET("/status/:confId", s.confStatus)
		conf.POST("/status/:confId", s.confStatus)
	}

	s.engine.GET("/climax/:a/:b", s.climax)
	s.engine.POST("/climax/:a/:b", s.climax)
	s.engine.GET("/finalclimax/:result", s.finalClimax)
	s.engine.POST("/finalclimax/:result", s.finalClimax)

	debug := s.engine.Group("/debug")
	debug.Use(s.requireDebugAuth)
	{
		debug.GET("/players", s.debugListPlayers)
		debug.GET("/players/:number", s.debugGetPlayer)
		debug.POST("/players/:number/reset", s.debugResetPlayer)
		debug.POST("/players/:number/snapshot", s.debugSnapshotPlayer)
	}
}

func (s *Server) playAsset(ctx context.Context, doc *twiml.Document, assetID int64) *twiml.Document {
	asset, err := s.cfg.Media.Asset(ctx, assetID)
	if err != nil {
		s.cfg.Logger.Warn("httpapi: asset lookup failed", zap.Int64("asset", assetID), zap.Error(err))
		return doc
	}
	return doc.Play(asset.URL)
}

// ginZapLogger is a minimal gin middleware logging each request through
// the process zap logger instead of gin's own default writer, matching
// the teacher's structured-logging-everywhere convention.
func ginZapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
