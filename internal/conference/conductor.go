package conference

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/mediacatalog"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/playerstore"
	"github.com/aeturnum/spins-halp-line/internal/sharedstate"
	"github.com/aeturnum/spins-halp-line/internal/storymodel"
	"github.com/aeturnum/spins-halp-line/internal/taskrunner"
	"github.com/aeturnum/spins-halp-line/internal/voicegateway"
)

// Readiness and conference-membership flags, stored in the narrative
// ScriptInfo.Data of each paired player.
const (
	KeyReadyAt = "conf_ready_at"
)

func isReady(si *storymodel.ScriptInfo) bool {
	_, ok := si.Data[KeyReadyAt]
	return ok
}

// PathConfig names one path's four shared-state list fields and the
// intro clip played to that path's player on connect.
type PathConfig struct {
	PlayersList   string
	WaitingList   string
	InConfList    string
	FinalConfList string
	IntroAsset    int64
}

// Config carries narrative copy, media, and timing knobs the Conductor
// needs but shouldn't hardcode.
type Config struct {
	ScriptName string
	FromNumber phoneid.ID
	NudgeAsset int64

	TextReady          string
	TextReadyReminder  string
	TextUnreadyReplied string
	TextUnreadyNoReply string

	Clavae PathConfig
	Karen  PathConfig

	WaitBeforeRetext time.Duration
	WaitBeforeGiveUp time.Duration
	RepollInterval   time.Duration
	ConnectWait      time.Duration
	NudgeWait        time.Duration
}

// WithDefaultTimings fills in the spec's timing constants for any zero
// field: a 30s connect check, 15s repoll, a re-text at the 5-minute
// mark, a 10-minute give-up deadline, and a 5-minute nudge delay.
func (c Config) WithDefaultTimings() Config {
	if c.WaitBeforeRetext == 0 {
		c.WaitBeforeRetext = 5 * time.Minute
	}
	if c.WaitBeforeGiveUp == 0 {
		c.WaitBeforeGiveUp = 10 * time.Minute
	}
	if c.RepollInterval == 0 {
		c.RepollInterval = 15 * time.Second
	}
	if c.ConnectWait == 0 {
		c.ConnectWait = 30 * time.Second
	}
	if c.NudgeWait == 0 {
		c.NudgeWait = 5 * time.Minute
	}
	return c
}

// Deps bundles the Conductor's collaborators.
type Deps struct {
	Players      *playerstore.Store
	Voice        *voicegateway.Gateway
	Media        *mediacatalog.Catalog
	Records      *Store
	Tasks        *taskrunner.Runner
	Manager      *sharedstate.Manager
	Reduce       sharedstate.ReduceFunc
	Logger       *zap.Logger
	TwimlBaseURL string
}

// Pair names the two players matched for one conference attempt.
type Pair struct {
	Clavae phoneid.ID
	Karen  phoneid.ID
}

// Conductor runs the readiness -> dial -> connect -> nudge state machine
// for matched pairs as a chain of self-re-enqueuing Task Runner tasks,
// rather than a goroutine sleeping through the whole handshake. This
// puts every cancellation and restart boundary at a task dispatch point
// instead of mid-sleep.
type Conductor struct {
	deps Deps
	cfg  Config
}

// NewConductor builds a Conductor, filling in default timings.
func NewConductor(deps Deps, cfg Config) *Conductor {
	return &Conductor{deps: deps, cfg: cfg.WithDefaultTimings()}
}

func (c *Conductor) withPlayer(ctx context.Context, num phoneid.ID, fn func(si *storymodel.ScriptInfo) error) error {
	p, err := c.deps.Players.Load(ctx, num)
	if err != nil && p == nil {
		return err
	}
	si := p.Script(c.cfg.ScriptName)
	if err := fn(si); err != nil {
		return err
	}
	if _, err := c.deps.Players.Save(ctx, p); err != nil {
		return err
	}
	return nil
}

func (c *Conductor) text(ctx context.Context, to phoneid.ID, body string) {
	if _, err := c.deps.Voice.SendSMS(ctx, to, c.cfg.FromNumber, body, ""); err != nil {
		c.deps.Logger.Error("conference: text failed", zap.String("to", to.Friendly()), zap.Error(err))
	}
}

// Reduce is the narrative's shared-state reduce hook: while both
// waiting lists are non-empty, pop one player off each, move them into
// their in-conference lists, and hand the pair off to a freshly
// enqueued start-first task rather than blocking here.
func (c *Conductor) Reduce(ctx context.Context, state *sharedstate.State, shard *sharedstate.Shard) error {
	for len(state.Lists[c.cfg.Clavae.WaitingList]) > 0 && len(state.Lists[c.cfg.Karen.WaitingList]) > 0 {
		clavae := state.Lists[c.cfg.Clavae.WaitingList][0]
		karen := state.Lists[c.cfg.Karen.WaitingList][0]
		state.Lists[c.cfg.Clavae.WaitingList] = state.Lists[c.cfg.Clavae.WaitingList][1:]
		state.Lists[c.cfg.Karen.WaitingList] = state.Lists[c.cfg.Karen.WaitingList][1:]
		state.Lists[c.cfg.Clavae.InConfList] = append(state.Lists[c.cfg.Clavae.InConfList], clavae)
		state.Lists[c.cfg.Karen.InConfList] = append(state.Lists[c.cfg.Karen.InConfList], karen)

		if err := c.deps.Tasks.Enqueue(ctx, &startFirstTask{c: c, pair: Pair{Clavae: clavae, Karen: karen}}); err != nil {
			return fmt.Errorf("conference: reduce: enqueue start: %w", err)
		}
	}
	return nil
}

// OnStartup reconciles shared state at process boot: anyone left
// in-conference from a crash mid-attempt goes back to waiting, and any
// player who somehow ended up on both path lists is removed from both
// and has their record deleted outright, per the confused-player
// remediation policy.
func (c *Conductor) OnStartup(ctx context.Context) error {
	return c.deps.Manager.Mutate(ctx, func(state *sharedstate.State) error {
		state.Lists[c.cfg.Clavae.WaitingList] = append(state.Lists[c.cfg.Clavae.WaitingList], state.Lists[c.cfg.Clavae.InConfList]...)
		state.Lists[c.cfg.Karen.WaitingList] = append(state.Lists[c.cfg.Karen.WaitingList], state.Lists[c.cfg.Karen.InConfList]...)
		state.Lists[c.cfg.Clavae.InConfList] = nil
		state.Lists[c.cfg.Karen.InConfList] = nil

		clavaePlayers := dedupe(state.Lists[c.cfg.Clavae.PlayersList])
		karenPlayers := dedupe(state.Lists[c.cfg.Karen.PlayersList])
		karenSet := toSet(karenPlayers)

		var shared []phoneid.ID
		for _, p := range clavaePlayers {
			if karenSet[p.E164()] {
				shared = append(shared, p)
			}
		}
		if len(shared) > 0 {
			sharedSet := toSet(shared)
			clavaePlayers = filterOut(clavaePlayers, sharedSet)
			karenPlayers = filterOut(karenPlayers, sharedSet)
			for _, p := range shared {
				if err := c.deps.Players.Delete(ctx, p); err != nil {
					c.deps.Logger.Error("conference: startup dedupe delete failed", zap.String("number", p.Friendly()), zap.Error(err))
				}
			}
		}
		state.Lists[c.cfg.Clavae.PlayersList] = clavaePlayers
		state.Lists[c.cfg.Karen.PlayersList] = karenPlayers

		clavaeSet := toSet(clavaePlayers)
		karenSet = toSet(karenPlayers)
		state.Lists[c.cfg.Clavae.WaitingList] = filterIn(state.Lists[c.cfg.Clavae.WaitingList], clavaeSet)
		state.Lists[c.cfg.Karen.WaitingList] = filterIn(state.Lists[c.cfg.Karen.WaitingList], karenSet)
		state.Lists[c.cfg.Clavae.FinalConfList] = filterIn(state.Lists[c.cfg.Clavae.FinalConfList], clavaeSet)
		state.Lists[c.cfg.Karen.FinalConfList] = filterIn(state.Lists[c.cfg.Karen.FinalConfList], karenSet)
		return nil
	})
}

func dedupe(list []phoneid.ID) []phoneid.ID {
	seen := map[string]bool{}
	out := make([]phoneid.ID, 0, len(list))
	for _, p := range list {
		if seen[p.E164()] {
			continue
		}
		seen[p.E164()] = true
		out = append(out, p)
	}
	return out
}

func toSet(list []phoneid.ID) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, p := range list {
		set[p.E164()] = true
	}
	return set
}

func filterOut(list []phoneid.ID, exclude map[string]bool) []phoneid.ID {
	out := make([]phoneid.ID, 0, len(list))
	for _, p := range list {
		if !exclude[p.E164()] {
			out = append(out, p)
		}
	}
	return out
}

func filterIn(list []phoneid.ID, include map[string]bool) []phoneid.ID {
	out := make([]phoneid.ID, 0, len(list))
	for _, p := range list {
		if include[p.E164()] {
			out = append(out, p)
		}
	}
	return out
}

// StartFirst begins the readiness handshake for a freshly matched pair:
// clear stale flags, text both players, and schedule the first
// readiness poll.
func (c *Conductor) StartFirst(ctx context.Context, pair Pair) error {
	for _, num := range []phoneid.ID{pair.Clavae, pair.Karen} {
		if err := c.withPlayer(ctx, num, func(si *storymodel.ScriptInfo) error {
			delete(si.Data, KeyReadyAt)
			return nil
		}); err != nil {
			return err
		}
		c.text(ctx, num, c.cfg.TextReady)
	}
	return c.deps.Tasks.Enqueue(ctx, &waitForPlayersTask{
		c: c, pair: pair, delay: c.cfg.ConnectWait,
		textCounts: map[string]int{pair.Clavae.E164(): 1, pair.Karen.E164(): 1},
	})
}

func (c *Conductor) startConference(ctx context.Context, pair Pair) error {
	rec, err := c.deps.Records.New(ctx, c.cfg.FromNumber)
	if err != nil {
		return err
	}
	if err := c.deps.Records.Invite(ctx, rec.ID, pair.Clavae, c.cfg.Clavae.IntroAsset); err != nil {
		return err
	}
	if err := c.deps.Records.Invite(ctx, rec.ID, pair.Karen, c.cfg.Karen.IntroAsset); err != nil {
		return err
	}

	twimlURL := fmt.Sprintf("%s/conf/twiml/%d", c.deps.TwimlBaseURL, rec.ID)
	if _, err := c.deps.Voice.PlaceCall(ctx, pair.Clavae, c.cfg.FromNumber, twimlURL); err != nil {
		c.deps.Logger.Error("conference: dial clavae failed", zap.Error(err))
	}
	if _, err := c.deps.Voice.PlaceCall(ctx, pair.Karen, c.cfg.FromNumber, twimlURL); err != nil {
		c.deps.Logger.Error("conference: dial karen failed", zap.Error(err))
	}

	return c.deps.Tasks.Enqueue(ctx, &connectTask{c: c, pair: pair, confID: rec.ID, delay: c.cfg.ConnectWait})
}

func (c *Conductor) unreadyText(ctx context.Context, replied bool, num phoneid.ID) {
	body := c.cfg.TextUnreadyNoReply
	if replied {
		body = c.cfg.TextUnreadyReplied
	}
	c.text(ctx, num, body)
}

// startFirstTask is the zero-delay wrapper that lets Reduce enqueue
// StartFirst instead of calling it inline, matching the "reduce must not
// block" rule.
type startFirstTask struct {
	taskrunner.BaseTask
	c    *Conductor
	pair Pair
}

func (t *startFirstTask) Execute(ctx context.Context) error { return t.c.StartFirst(ctx, t.pair) }
func (t *startFirstTask) String() string {
	return fmt.Sprintf("ConfStartFirst[%s,%s]", t.pair.Clavae.E164(), t.pair.Karen.E164())
}

// waitForPlayersTask re-polls both players' readiness every
// RepollInterval, re-texting an unreplied player once past
// WaitBeforeRetext, until either both are ready (-> conference dial) or
// WaitBeforeGiveUp elapses (-> return both to their waiting lists).
type waitForPlayersTask struct {
	taskrunner.BaseTask
	c          *Conductor
	pair       Pair
	delay      time.Duration
	elapsed    time.Duration
	textCounts map[string]int
}

func (t *waitForPlayersTask) Delay() time.Duration { return t.delay }

func (t *waitForPlayersTask) Execute(ctx context.Context) error {
	t.elapsed += t.delay

	var cReady, kReady bool
	if err := t.c.withPlayer(ctx, t.pair.Clavae, func(si *storymodel.ScriptInfo) error {
		cReady = isReady(si)
		return nil
	}); err != nil {
		return err
	}
	if err := t.c.withPlayer(ctx, t.pair.Karen, func(si *storymodel.ScriptInfo) error {
		kReady = isReady(si)
		return nil
	}); err != nil {
		return err
	}

	t.maybeRetext(ctx, cReady, t.pair.Clavae)
	t.maybeRetext(ctx, kReady, t.pair.Karen)

	switch {
	case cReady && kReady:
		return t.c.startConference(ctx, t.pair)
	case t.elapsed >= t.c.cfg.WaitBeforeGiveUp:
		return t.c.deps.Tasks.Enqueue(ctx, &returnPlayersTask{c: t.c, pair: t.pair, clavaeReady: cReady, karenReady: kReady})
	default:
		next := &waitForPlayersTask{c: t.c, pair: t.pair, delay: t.c.cfg.RepollInterval, elapsed: t.elapsed, textCounts: t.textCounts}
		return t.c.deps.Tasks.Enqueue(ctx, next)
	}
}

func (t *waitForPlayersTask) maybeRetext(ctx context.Context, ready bool, num phoneid.ID) {
	if ready {
		return
	}
	if t.elapsed <= t.c.cfg.WaitBeforeRetext {
		return
	}
	if t.textCounts[num.E164()] != 1 {
		return
	}
	t.c.text(ctx, num, t.c.cfg.TextReadyReminder)
	t.textCounts[num.E164()]++
}

func (t *waitForPlayersTask) String() string {
	return fmt.Sprintf("ConfWaitForPlayers[%s,%s](%s)", t.pair.Clavae.E164(), t.pair.Karen.E164(), t.elapsed)
}

// connectTask checks, ConnectWait after dialing, whether the conference
// actually started; if not, the pair is returned to waiting. Otherwise
// it schedules the nudge check.
type connectTask struct {
	taskrunner.BaseTask
	c      *Conductor
	pair   Pair
	confID int64
	delay  time.Duration
}

func (t *connectTask) Delay() time.Duration { return t.delay }

func (t *connectTask) Execute(ctx context.Context) error {
	rec, ok := t.c.deps.Records.Get(t.confID)
	if !ok || rec.StartedAt == nil {
		return t.c.deps.Tasks.Enqueue(ctx, &returnPlayersTask{c: t.c, pair: t.pair, clavaeReady: true, karenReady: true})
	}
	return t.c.deps.Tasks.Enqueue(ctx, &nudgeTask{c: t.c, confID: t.confID, delay: t.c.cfg.NudgeWait})
}

func (t *connectTask) String() string { return fmt.Sprintf("ConnectFirstConference[%d]", t.confID) }

// nudgeTask plays a hold-music nudge clip into a conference that's
// still live after NudgeWait, to keep waiting players from thinking the
// line died.
type nudgeTask struct {
	taskrunner.BaseTask
	c      *Conductor
	confID int64
	delay  time.Duration
}

func (t *nudgeTask) Delay() time.Duration { return t.delay }

func (t *nudgeTask) Execute(ctx context.Context) error {
	rec, ok := t.c.deps.Records.Get(t.confID)
	if !ok || !rec.IsLive() {
		return nil
	}
	asset, err := t.c.deps.Media.Asset(ctx, t.c.cfg.NudgeAsset)
	if err != nil {
		return err
	}
	return t.c.deps.Voice.PlayInto(ctx, rec.TwilioSID, asset.URL)
}

func (t *nudgeTask) String() string { return fmt.Sprintf("ConferenceNudge[%d]", t.confID) }

// returnPlayersTask un-matches a pair: moves both back to their waiting
// lists (front of the line if they replied, back if they never did),
// clears their readiness flag, texts each an explanation, and re-queues
// matchmaking.
type returnPlayersTask struct {
	taskrunner.BaseTask
	c           *Conductor
	pair        Pair
	clavaeReady bool
	karenReady  bool
}

func (t *returnPlayersTask) Execute(ctx context.Context) error {
	shard := t.c.deps.Manager.NewShard()
	if err := shard.Move(t.c.cfg.Clavae.InConfList, t.c.cfg.Clavae.WaitingList, t.pair.Clavae, t.clavaeReady); err != nil {
		t.c.deps.Logger.Warn("conference: return clavae move failed", zap.Error(err))
	}
	if err := shard.Move(t.c.cfg.Karen.InConfList, t.c.cfg.Karen.WaitingList, t.pair.Karen, t.karenReady); err != nil {
		t.c.deps.Logger.Warn("conference: return karen move failed", zap.Error(err))
	}

	clearReady := func(si *storymodel.ScriptInfo) error {
		delete(si.Data, KeyReadyAt)
		return nil
	}
	if err := t.c.withPlayer(ctx, t.pair.Clavae, clearReady); err != nil {
		return err
	}
	if err := t.c.withPlayer(ctx, t.pair.Karen, clearReady); err != nil {
		return err
	}

	t.c.unreadyText(ctx, t.clavaeReady, t.pair.Clavae)
	t.c.unreadyText(ctx, t.karenReady, t.pair.Karen)

	return t.c.deps.Tasks.Enqueue(ctx, &sharedstate.IntegrateTask{Manager: t.c.deps.Manager, Shard: shard, Reduce: t.c.deps.Reduce})
}

func (t *returnPlayersTask) String() string {
	return fmt.Sprintf("ReturnPlayers[%s,%s]", t.pair.Clavae.E164(), t.pair.Karen.E164())
}
