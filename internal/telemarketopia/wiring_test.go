package telemarketopia_test

import (
	"context"
	"os"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/kvstore"
	"github.com/aeturnum/spins-halp-line/internal/mediacatalog"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/playerstore"
	"github.com/aeturnum/spins-halp-line/internal/taskrunner"
	"github.com/aeturnum/spins-halp-line/internal/telemarketopia"
	"github.com/aeturnum/spins-halp-line/internal/voicegateway"
)

func testNumbers(t *testing.T) *mediacatalog.NumberLibrary {
	t.Helper()
	path := t.TempDir() + "/numbers.json"
	body := `[
		{"number": "+15105550001", "labels": ["tipline"], "capabilities": ["voice","sms"]},
		{"number": "+15105550002", "labels": ["conference"], "capabilities": ["voice","sms"]},
		{"number": "+15105550003", "labels": ["final"], "capabilities": ["voice","sms"]}
	]`
	require.NoError(t, writeFile(path, body))
	lib, err := mediacatalog.LoadNumberLibrary(path)
	require.NoError(t, err)
	return lib
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o600)
}

func TestBuild_MissingLabelFails(t *testing.T) {
	kv := kvstore.NewMemStore()
	emptyPath := t.TempDir() + "/empty.json"
	require.NoError(t, writeFile(emptyPath, `[]`))
	numbers, err := mediacatalog.LoadNumberLibrary(emptyPath)
	require.NoError(t, err)

	logger := zap.NewNop()
	voice := voicegateway.New(voicegateway.NewClient(voicegateway.Credentials{AccountSID: "AC", AuthToken: "tok"}))

	_, err = telemarketopia.Build(telemarketopia.Deps{
		KV:      kv,
		Media:   mediacatalog.NewCatalog(resty.New(), "https://media.example.com"),
		Numbers: numbers,
		Voice:   voice,
		Players: playerstore.New(kv),
		Tasks:   taskrunner.New(logger),
		Logger:  logger,
	})
	assert.Error(t, err)
}

func TestBuild_WiresNarrativeWithAllLabelsPresent(t *testing.T) {
	kv := kvstore.NewMemStore()
	logger := zap.NewNop()
	voice := voicegateway.New(voicegateway.NewClient(voicegateway.Credentials{AccountSID: "AC", AuthToken: "tok"}))

	narrative, err := telemarketopia.Build(telemarketopia.Deps{
		KV:           kv,
		Media:        mediacatalog.NewCatalog(resty.New(), "https://media.example.com"),
		Numbers:      testNumbers(t),
		Voice:        voice,
		Players:      playerstore.New(kv),
		Tasks:        taskrunner.New(logger),
		Logger:       logger,
		TwimlBaseURL: "https://tipline.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, telemarketopia.ScriptName, narrative.Script.Name)
	assert.True(t, narrative.ConferenceNumber.Equal(phoneid.MustParse("+15105550002")))
	assert.True(t, narrative.FinalNumber.Equal(phoneid.MustParse("+15105550003")))

	require.NoError(t, narrative.Load(context.Background()))
}
