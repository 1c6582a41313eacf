package playerstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeturnum/spins-halp-line/internal/kvstore"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/playerstore"
)

func TestLoad_MissingIsFresh(t *testing.T) {
	ctx := context.Background()
	store := playerstore.New(kvstore.NewMemStore())
	id := phoneid.MustParse("+15105551234")

	p, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.Number.Equal(id))
	assert.Equal(t, uint64(0), p.Generation)
	assert.Empty(t, p.Scripts)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := playerstore.New(kvstore.NewMemStore())
	id := phoneid.MustParse("+15105551234")

	p, err := store.Load(ctx, id)
	require.NoError(t, err)
	p.Script("telemarketopia").Data["path"] = "CLAVAE"

	ok, err := store.Save(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "CLAVAE", reloaded.Script("telemarketopia").Data["path"])
}

func TestSave_StaleGenerationDropped(t *testing.T) {
	ctx := context.Background()
	store := playerstore.New(kvstore.NewMemStore())
	id := phoneid.MustParse("+15105551234")

	p, err := store.Load(ctx, id)
	require.NoError(t, err)
	ok, err := store.Save(ctx, p)
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate a newer writer bumping generation via snapshot restore.
	require.NoError(t, store.AdvanceGenerationTo(ctx, id, p))

	// The stale in-flight handler still holds generation 0 and tries to save.
	stale, _ := store.Load(ctx, id)
	stale.Generation = 0
	ok, err = store.Save(ctx, stale)
	require.NoError(t, err)
	assert.False(t, ok, "stale writer's save must be silently dropped")
}

func TestAdvanceGenerationTo(t *testing.T) {
	ctx := context.Background()
	store := playerstore.New(kvstore.NewMemStore())
	id := phoneid.MustParse("+15105551234")

	p, _ := store.Load(ctx, id)
	_, err := store.Save(ctx, p)
	require.NoError(t, err)

	require.NoError(t, store.AdvanceGenerationTo(ctx, id, p))

	reloaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), reloaded.Generation)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := playerstore.New(kvstore.NewMemStore())
	a := phoneid.MustParse("+15105551111")
	b := phoneid.MustParse("+15105552222")

	pa, _ := store.Load(ctx, a)
	_, err := store.Save(ctx, pa)
	require.NoError(t, err)
	pb, _ := store.Load(ctx, b)
	_, err = store.Save(ctx, pb)
	require.NoError(t, err)

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
