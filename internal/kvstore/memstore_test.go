package kvstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeturnum/spins-halp-line/internal/kvstore"
)

func TestMemStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewMemStore()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(v))

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemStore_MGet(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewMemStore()
	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Set(ctx, "c", []byte("3")))

	values, present, err := s.MGet(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, true}, present)
	assert.Equal(t, "1", string(values[0]))
	assert.Equal(t, "3", string(values[2]))
}

func TestMemStore_ScanPrefix(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewMemStore()
	require.NoError(t, s.Set(ctx, "plr:1", []byte("x")))
	require.NoError(t, s.Set(ctx, "plr:2", []byte("x")))
	require.NoError(t, s.Set(ctx, "script:a", []byte("x")))

	_, keys, err := s.Scan(ctx, 0, "plr:", 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"plr:1", "plr:2"}, keys)
}
