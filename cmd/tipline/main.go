// Command tipline runs the telephony story-engine process: it loads
// configuration and the two JSON manifests, wires every collaborator
// explicitly (no package-level singletons, per spec §9), assembles the
// Telemarketopia narrative, starts the task runner, and serves the HTTP
// surface until told to shut down.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/config"
	"github.com/aeturnum/spins-halp-line/internal/httpapi"
	"github.com/aeturnum/spins-halp-line/internal/httplog"
	"github.com/aeturnum/spins-halp-line/internal/kvstore"
	"github.com/aeturnum/spins-halp-line/internal/mediacatalog"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/playerstore"
	"github.com/aeturnum/spins-halp-line/internal/storyengine"
	"github.com/aeturnum/spins-halp-line/internal/taskrunner"
	"github.com/aeturnum/spins-halp-line/internal/telemarketopia"
	"github.com/aeturnum/spins-halp-line/internal/voicegateway"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("tipline: %v", err)
	}
}

func run() error {
	v, err := config.InitConfig()
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := httplog.New(httplog.Config{Level: cfg.LogLevel, FilePath: cfg.LogFilePath})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	store := kvstore.NewRedisStore(redisClient)

	numbers, err := mediacatalog.LoadNumberLibrary(cfg.NumbersManifestPath)
	if err != nil {
		return fmt.Errorf("load numbers manifest: %w", err)
	}

	restClient := resty.New().
		SetBaseURL(cfg.MediaCatalog.BaseURL).
		SetHeader("Authorization", "Bearer "+cfg.MediaCatalog.APIKey).
		SetTimeout(10 * time.Second)
	media := mediacatalog.NewCatalog(restClient, cfg.MediaCatalog.BaseURL)

	voiceClient := voicegateway.NewClient(voicegateway.Credentials{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
	})
	voice := voicegateway.New(voiceClient)

	players := playerstore.New(store)
	tasks := taskrunner.New(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go tasks.Run(ctx)

	narrative, err := telemarketopia.Build(telemarketopia.Deps{
		KV:           store,
		Media:        media,
		Numbers:      numbers,
		Voice:        voice,
		Players:      players,
		Tasks:        tasks,
		Logger:       logger,
		TwimlBaseURL: cfg.TwimlBaseURL,
	})
	if err != nil {
		return fmt.Errorf("build narrative: %w", err)
	}
	if err := narrative.Load(ctx); err != nil {
		return fmt.Errorf("load narrative: %w", err)
	}

	router := storyengine.NewStoryRouter(players, logger, narrative.Script)
	if notifier, err := newErrorNotifier(voice, numbers, cfg.ErrorReports); err != nil {
		logger.Warn("tipline: error notifier disabled", zap.Error(err))
	} else if notifier != nil {
		router.SetErrorNotifier(notifier)
	}

	api := httpapi.New(httpapi.Config{
		Router:           router,
		Players:          players,
		Media:            media,
		Voice:            voice,
		Records:          narrative.Records,
		ClimaxAsset:      telemarketopia.ClimaxAsset,
		FinalClimaxAsset: telemarketopia.FinalClimaxAsset,
		TwimlBaseURL:     cfg.TwimlBaseURL,
		DebugSecret:      cfg.DebugAuthSecret,
		Logger:           logger,
		TwilioAuthToken:  cfg.Twilio.AuthToken,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: api.Engine(),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("tipline: listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("serve: %w", err)
	case sig := <-sigCh:
		logger.Info("tipline: shutting down", zap.String("signal", sig.String()))
	}

	cancel() // stop dispatching tasks; delayed tasks are dropped and running ones see a canceled context

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// errorNotifier texts every operator in ErrorReportsConfig.NumbersToText
// when a script fails mid-call, satisfying storyengine.ErrorNotifier.
type errorNotifier struct {
	voice *voicegateway.Gateway
	from  phoneid.ID
	to    []phoneid.ID
}

func newErrorNotifier(voice *voicegateway.Gateway, numbers *mediacatalog.NumberLibrary, cfg config.ErrorReportsConfig) (*errorNotifier, error) {
	if len(cfg.NumbersToText) == 0 {
		return nil, nil
	}
	from, err := numbers.Random(mediacatalog.CapSMS)
	if err != nil {
		return nil, fmt.Errorf("no sms-capable number for error reports: %w", err)
	}
	to := make([]phoneid.ID, 0, len(cfg.NumbersToText))
	for _, raw := range cfg.NumbersToText {
		id, err := phoneid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("error report number %q: %w", raw, err)
		}
		to = append(to, id)
	}
	return &errorNotifier{voice: voice, from: from, to: to}, nil
}

func (n *errorNotifier) NotifyError(ctx context.Context, message string) error {
	var firstErr error
	for _, id := range n.to {
		if _, err := n.voice.SendSMS(ctx, id, n.from, message, ""); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
