package phoneid_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/storyerr"
)

func TestParse_E164(t *testing.T) {
	id, err := phoneid.Parse("+15105551234")
	require.NoError(t, err)
	assert.Equal(t, "+15105551234", id.E164())
}

func TestParse_DefaultRegionFallback(t *testing.T) {
	id, err := phoneid.Parse("5105551234")
	require.NoError(t, err)
	assert.Equal(t, "+15105551234", id.E164())
}

func TestParse_Invalid(t *testing.T) {
	_, err := phoneid.Parse("not-a-number")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storyerr.InvalidNumber))
}

func TestParse_Empty(t *testing.T) {
	_, err := phoneid.Parse("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storyerr.InvalidNumber))
}

func TestEqual(t *testing.T) {
	a := phoneid.MustParse("+15105551234")
	b, err := phoneid.Parse("(510) 555-1234")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	c := phoneid.MustParse("+15105559999")
	assert.False(t, a.Equal(c))
}

func TestJSONRoundTrip(t *testing.T) {
	a := phoneid.MustParse("+15105551234")
	data, err := a.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"+15105551234"`, string(data))

	var b phoneid.ID
	require.NoError(t, b.UnmarshalJSON(data))
	assert.True(t, a.Equal(b))
}
