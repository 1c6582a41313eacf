package sharedstate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeturnum/spins-halp-line/internal/kvstore"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/sharedstate"
)

func fields() []string {
	return []string{"clavae_waiting", "clavae_in_conf", "karen_waiting", "karen_in_conf"}
}

func TestShard_AppendUnknownField(t *testing.T) {
	m := sharedstate.NewManager(kvstore.NewMemStore(), "t", fields())
	shard := m.NewShard()
	err := shard.Append("no_such_field", phoneid.MustParse("+15105551111"), false)
	require.Error(t, err)
}

func TestShard_DirectSetPanics(t *testing.T) {
	m := sharedstate.NewManager(kvstore.NewMemStore(), "t", fields())
	shard := m.NewShard()
	assert.Panics(t, func() {
		shard.Set("clavae_waiting", nil)
	})
}

func TestIntegrate_AppendPersists(t *testing.T) {
	ctx := context.Background()
	m := sharedstate.NewManager(kvstore.NewMemStore(), "t", fields())

	shard := m.NewShard()
	p := phoneid.MustParse("+15105551111")
	require.NoError(t, shard.Append("clavae_waiting", p, false))

	require.NoError(t, m.Integrate(ctx, shard, nil))

	snap := m.Snapshot()
	require.Len(t, snap.Lists["clavae_waiting"], 1)
	assert.True(t, snap.Lists["clavae_waiting"][0].Equal(p))
	assert.Equal(t, uint64(1), snap.Version)
}

func TestIntegrate_ConcurrentAppendsBothSurvive(t *testing.T) {
	// Scenario 5: two handlers each append a distinct PhoneId using
	// independently created shards; after both AfterRequestActions run,
	// the final list contains both, version increased by exactly the
	// number of rounds that produced a change, no duplicates.
	ctx := context.Background()
	store := kvstore.NewMemStore()
	m := sharedstate.NewManager(store, "t", fields())

	shardA := m.NewShard()
	shardB := m.NewShard()

	pa := phoneid.MustParse("+15105551111")
	pb := phoneid.MustParse("+15105552222")
	require.NoError(t, shardA.Append("clavae_waiting", pa, false))
	require.NoError(t, shardB.Append("clavae_waiting", pb, false))

	require.NoError(t, m.Integrate(ctx, shardA, nil))
	require.NoError(t, m.Integrate(ctx, shardB, nil))

	snap := m.Snapshot()
	assert.Len(t, snap.Lists["clavae_waiting"], 2)
	assert.Equal(t, uint64(2), snap.Version)
}

func TestIntegrate_MoveMissingValueIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemStore()
	m := sharedstate.NewManager(store, "t", fields())

	p := phoneid.MustParse("+15105551111")
	other := phoneid.MustParse("+15105559999")

	// Seed clavae_waiting with `other` only, via one integrate.
	seed := m.NewShard()
	require.NoError(t, seed.Append("clavae_waiting", other, false))
	require.NoError(t, m.Integrate(ctx, seed, nil))

	// A second shard, created against a stale snapshot, tries to move
	// `p` out of clavae_waiting even though only `other` is present by
	// the time integrate runs against canonical state. Simulate by
	// directly constructing a shard with a stale snapshot via NewShard.
	staleSnapshot := map[string][]phoneid.ID{"clavae_waiting": {p}, "clavae_in_conf": {}}
	stale := sharedstate.NewShard(staleSnapshot, m)
	require.NoError(t, stale.Move("clavae_waiting", "clavae_in_conf", p, false))

	before := m.Snapshot()
	require.NoError(t, m.Integrate(ctx, stale, nil))
	after := m.Snapshot()

	// p was never actually in canonical clavae_waiting, so the move is
	// a no-op: clavae_in_conf must not gain a phantom entry.
	assert.Empty(t, after.Lists["clavae_in_conf"])
	assert.Equal(t, before.Version, after.Version, "a no-op replay must not bump version")
}

func TestIntegrate_ReduceSeesIntegratedLists(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemStore()
	m := sharedstate.NewManager(store, "t", fields())

	pa := phoneid.MustParse("+15105551111")
	pk := phoneid.MustParse("+15105552222")

	shardA := m.NewShard()
	require.NoError(t, shardA.Append("clavae_waiting", pa, false))
	require.NoError(t, m.Integrate(ctx, shardA, nil))

	shardB := m.NewShard()
	require.NoError(t, shardB.Append("karen_waiting", pk, false))

	matched := false
	reduce := func(ctx context.Context, state *sharedstate.State, fresh *sharedstate.Shard) error {
		cw, _ := fresh.Get("clavae_waiting")
		kw, _ := fresh.Get("karen_waiting")
		if len(cw) > 0 && len(kw) > 0 {
			matched = true
		}
		return nil
	}
	require.NoError(t, m.Integrate(ctx, shardB, reduce))
	assert.True(t, matched)
}
