package telemarketopia

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/conference"
	"github.com/aeturnum/spins-halp-line/internal/kvstore"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/playerstore"
	"github.com/aeturnum/spins-halp-line/internal/sharedstate"
	"github.com/aeturnum/spins-halp-line/internal/taskrunner"
	"github.com/aeturnum/spins-halp-line/internal/texthandler"
)

func TestFinalAnswerHandler_CorrectPasscodeCallsBothParticipants(t *testing.T) {
	kv := kvstore.NewMemStore()
	players := playerstore.New(kv)
	finalNumber := phoneid.MustParse("+15105550003")
	clavae := phoneid.MustParse("+15105551111")
	karen := phoneid.MustParse("+15105552222")

	ctx := context.Background()
	p, err := players.Load(ctx, clavae)
	require.NoError(t, err)
	si := p.Script(ScriptName)
	si.Data[KeyFinalChoice] = "queued"
	si.Data[KeyPartner] = karen.E164()
	_, err = players.Save(ctx, p)
	require.NoError(t, err)

	var calls []string
	handler := finalAnswerHandler{
		FinalNumber:  finalNumber,
		TwimlBaseURL: "https://tipline.example.com",
		sendText:     func(ctx context.Context, to phoneid.ID, body string) {},
		dial: func(ctx context.Context, to, from phoneid.ID, twimlURL string) (string, error) {
			calls = append(calls, to.E164()+"->"+twimlURL)
			return "CA123", nil
		},
	}

	req := texthandler.InboundText{From: clavae, To: finalNumber, Body: "462", SID: "SM1"}
	require.NoError(t, handler.NewText(ctx, req, nil, si))

	assert.Equal(t, "correct", si.Data[KeyFinalChoice])
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0], clavae.E164())
	assert.Contains(t, calls[0], "/finalclimax/right")
	assert.Contains(t, calls[1], karen.E164())
	assert.Contains(t, calls[1], "/finalclimax/right")
}

func TestFinalAnswerHandler_WrongPasscodeCallsWrongClimax(t *testing.T) {
	kv := kvstore.NewMemStore()
	players := playerstore.New(kv)
	finalNumber := phoneid.MustParse("+15105550003")
	clavae := phoneid.MustParse("+15105551111")

	ctx := context.Background()
	p, err := players.Load(ctx, clavae)
	require.NoError(t, err)
	si := p.Script(ScriptName)
	si.Data[KeyFinalChoice] = "queued"

	var calls []string
	handler := finalAnswerHandler{
		FinalNumber:  finalNumber,
		TwimlBaseURL: "https://tipline.example.com",
		sendText:     func(ctx context.Context, to phoneid.ID, body string) {},
		dial: func(ctx context.Context, to, from phoneid.ID, twimlURL string) (string, error) {
			calls = append(calls, to.E164()+"->"+twimlURL)
			return "CA1", nil
		},
	}

	req := texthandler.InboundText{From: clavae, To: finalNumber, Body: "000", SID: "SM2"}
	require.NoError(t, handler.NewText(ctx, req, nil, si))

	assert.Equal(t, "wrong", si.Data[KeyFinalChoice])
	require.Len(t, calls, 1) // no partner recorded, only the replying caller is dialed
	assert.Contains(t, calls[0], "/finalclimax/wrong")
}

func TestFinalReduce_PopsMatchedPairAndEnqueuesStart(t *testing.T) {
	kv := kvstore.NewMemStore()
	players := playerstore.New(kv)
	records := conference.NewStore(kv)
	logger := zap.NewNop()
	tasks := taskrunner.New(logger)

	clavae := phoneid.MustParse("+15105551111")
	karen := phoneid.MustParse("+15105552222")

	state := &sharedstate.State{Lists: map[string][]phoneid.ID{
		FieldClavaeFinalist: {clavae},
		FieldKarenFinalist:  {karen},
	}}

	deps := finalConferenceDeps{
		Players:      players,
		Records:      records,
		Tasks:        tasks,
		Logger:       logger,
		FinalNumber:  phoneid.MustParse("+15105550003"),
		TwimlBaseURL: "https://tipline.example.com",
		text:         func(ctx context.Context, to phoneid.ID, body string) {},
		placeCall:    func(ctx context.Context, to, from phoneid.ID, twimlURL string) (string, error) { return "CA1", nil },
	}

	require.NoError(t, deps.finalReduce(context.Background(), state, nil))

	assert.Empty(t, state.Lists[FieldClavaeFinalist])
	assert.Empty(t, state.Lists[FieldKarenFinalist])
}
