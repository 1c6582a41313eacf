package mediacatalog_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeturnum/spins-halp-line/internal/mediacatalog"
	"github.com/aeturnum/spins-halp-line/internal/storyerr"
)

func writeManifest(t *testing.T, entries any) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "numbers.json")
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadNumberLibrary_RandomAndLabel(t *testing.T) {
	path := writeManifest(t, []map[string]any{
		{"number": "+15105551111", "labels": []string{"Clavae1"}, "capabilities": []string{"voice", "sms"}},
		{"number": "+15105552222", "labels": nil, "capabilities": []string{"sms", "mms"}},
	})

	lib, err := mediacatalog.LoadNumberLibrary(path)
	require.NoError(t, err)

	id, ok := lib.FromLabel("Clavae1")
	require.True(t, ok)
	assert.Equal(t, "+15105551111", id.E164())

	voice, err := lib.Random(mediacatalog.CapVoice)
	require.NoError(t, err)
	assert.Equal(t, "+15105551111", voice.E164())

	mms, err := lib.Random(mediacatalog.CapMMS)
	require.NoError(t, err)
	assert.Equal(t, "+15105552222", mms.E164())
}

func TestLoadNumberLibrary_NoMatch(t *testing.T) {
	path := writeManifest(t, []map[string]any{
		{"number": "+15105551111", "capabilities": []string{"sms"}},
	})
	lib, err := mediacatalog.LoadNumberLibrary(path)
	require.NoError(t, err)

	_, err = lib.Random(mediacatalog.CapVoice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storyerr.NoSuchCapability))
}
