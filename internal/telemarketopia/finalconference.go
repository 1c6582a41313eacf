package telemarketopia

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/conference"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/playerstore"
	"github.com/aeturnum/spins-halp-line/internal/sharedstate"
	"github.com/aeturnum/spins-halp-line/internal/storymodel"
	"github.com/aeturnum/spins-halp-line/internal/taskrunner"
)

// finalConferenceDeps bundles what the destruction-conference follow-up
// needs, grounded in DestroyTelemarketopia.execute() in
// telemarketopia_conferences.py: it dials immediately once both
// finalists are matched, with no readiness handshake (spec §9's Open
// Question resolution for the second conference).
type finalConferenceDeps struct {
	Players      *playerstore.Store
	Records      *conference.Store
	Tasks        *taskrunner.Runner
	Logger       *zap.Logger
	FinalNumber  phoneid.ID
	TwimlBaseURL string
	text         func(ctx context.Context, to phoneid.ID, body string)
	placeCall    func(ctx context.Context, to, from phoneid.ID, twimlURL string) (string, error)
}

// finalReduce is the second half of this narrative's reduce hook:
// while both destruction-finalist lists are non-empty, pop one off each
// and hand the pair to a zero-delay follow-up task, mirroring Reduce's
// main matchmaking shape but against the *_final fields instead of the
// *_waiting_for_conf fields.
func (d finalConferenceDeps) finalReduce(ctx context.Context, state *sharedstate.State, shard *sharedstate.Shard) error {
	for len(state.Lists[FieldClavaeFinalist]) > 0 && len(state.Lists[FieldKarenFinalist]) > 0 {
		clavae := state.Lists[FieldClavaeFinalist][0]
		karen := state.Lists[FieldKarenFinalist][0]
		state.Lists[FieldClavaeFinalist] = state.Lists[FieldClavaeFinalist][1:]
		state.Lists[FieldKarenFinalist] = state.Lists[FieldKarenFinalist][1:]

		pair := conference.Pair{Clavae: clavae, Karen: karen}
		if err := d.Tasks.Enqueue(ctx, &finalStartTask{d: d, pair: pair}); err != nil {
			return fmt.Errorf("telemarketopia: final reduce: enqueue: %w", err)
		}
	}
	return nil
}

// finalStartTask texts both finalists the puzzle follow-up, records
// each as the other's partner (so the eventual SMS answer knows who
// else to climax-call), and dials both directly into a fresh conference
// on the final number — no readiness polling, no connect-wait check.
type finalStartTask struct {
	taskrunner.BaseTask
	d    finalConferenceDeps
	pair conference.Pair
}

func (t *finalStartTask) Execute(ctx context.Context) error {
	if err := t.setPartner(ctx, t.pair.Clavae, t.pair.Karen); err != nil {
		return err
	}
	if err := t.setPartner(ctx, t.pair.Karen, t.pair.Clavae); err != nil {
		return err
	}

	t.d.text(ctx, t.pair.Clavae, TextFinalPuzzle2)
	t.d.text(ctx, t.pair.Karen, TextFinalPuzzle2)

	rec, err := t.d.Records.New(ctx, t.d.FinalNumber)
	if err != nil {
		return fmt.Errorf("telemarketopia: final start: %w", err)
	}
	if err := t.d.Records.Invite(ctx, rec.ID, t.pair.Clavae, 0); err != nil {
		return err
	}
	if err := t.d.Records.Invite(ctx, rec.ID, t.pair.Karen, 0); err != nil {
		return err
	}

	twimlURL := fmt.Sprintf("%s/conf/twiml/%d", t.d.TwimlBaseURL, rec.ID)
	if _, err := t.d.placeCall(ctx, t.pair.Clavae, t.d.FinalNumber, twimlURL); err != nil {
		t.d.Logger.Error("telemarketopia: final dial clavae failed", zap.Error(err))
	}
	if _, err := t.d.placeCall(ctx, t.pair.Karen, t.d.FinalNumber, twimlURL); err != nil {
		t.d.Logger.Error("telemarketopia: final dial karen failed", zap.Error(err))
	}
	return nil
}

func (t *finalStartTask) setPartner(ctx context.Context, num, partner phoneid.ID) error {
	p, err := t.d.Players.Load(ctx, num)
	if err != nil && p == nil {
		return err
	}
	si := p.Script(ScriptName)
	si.Data[KeyPartner] = partner.E164()
	_, err = t.d.Players.Save(ctx, p)
	return err
}

func (t *finalStartTask) String() string {
	return fmt.Sprintf("FinalConferenceStart[%s,%s]", t.pair.Clavae.E164(), t.pair.Karen.E164())
}

// lookupPartner reads the partner number stashed on si by finalStartTask.
func lookupPartner(si *storymodel.ScriptInfo) (phoneid.ID, bool) {
	raw, ok := si.Data[KeyPartner]
	if !ok || raw == "" {
		return phoneid.ID{}, false
	}
	id, err := phoneid.Parse(raw)
	if err != nil {
		return phoneid.ID{}, false
	}
	return id, true
}
