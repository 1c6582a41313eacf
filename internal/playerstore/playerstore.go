// Package playerstore implements per-player durable state with
// generation-based optimistic concurrency, as described for the Player
// Store component: load reads the record; save writes it back only if
// no newer generation has been written in the meantime.
package playerstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aeturnum/spins-halp-line/internal/kvstore"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/storyerr"
	"github.com/aeturnum/spins-halp-line/internal/storymodel"
)

const keyPrefix = "plr:"

func playerKey(id phoneid.ID) string {
	return keyPrefix + id.E164()
}

// Store is the Player Store gateway.
type Store struct {
	kv kvstore.Store
}

// New wraps a KV Store Gateway.
func New(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Load reads plr:<E.164> and deserializes it. A missing key is treated
// as a fresh player at generation zero, matching the "created lazily on
// first inbound request" lifecycle (§3).
func (s *Store) Load(ctx context.Context, id phoneid.ID) (*storymodel.Player, error) {
	raw, ok, err := s.kv.Get(ctx, playerKey(id))
	if err != nil {
		return nil, fmt.Errorf("playerstore: load %s: %w", id.E164(), err)
	}
	if !ok {
		return storymodel.NewPlayer(id), nil
	}

	var p storymodel.Player
	if err := json.Unmarshal(raw, &p); err != nil {
		// DataIntegrityError: fall back to defaults and let the caller
		// log; we do not fail the request over a corrupt record.
		fresh := storymodel.NewPlayer(id)
		return fresh, fmt.Errorf("playerstore: %s: %w", id.E164(), storyerr.DataIntegrityError)
	}
	if p.Scripts == nil {
		p.Scripts = map[string]*storymodel.ScriptInfo{}
	}
	return &p, nil
}

// Save writes local back using the optimistic-concurrency generation
// rule: read the current record; if its generation is strictly greater
// than local's, abort (a newer writer already won, and the save is
// silently dropped); otherwise write local back unchanged.
//
// Returns true if the write happened, false if it was dropped.
func (s *Store) Save(ctx context.Context, local *storymodel.Player) (bool, error) {
	key := playerKey(local.Number)

	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("playerstore: save %s: %w", local.Number.E164(), err)
	}
	if ok {
		var current storymodel.Player
		if err := json.Unmarshal(raw, &current); err == nil {
			if current.Generation > local.Generation {
				return false, nil
			}
		}
	}

	data, err := json.Marshal(local)
	if err != nil {
		return false, fmt.Errorf("playerstore: marshal %s: %w", local.Number.E164(), err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return false, fmt.Errorf("playerstore: write %s: %w", local.Number.E164(), err)
	}
	return true, nil
}

// AdvanceGenerationTo is the forced-overwrite variant used by admin
// snapshot restore: it loads the current record, copies its generation,
// replaces state with the supplied payload, bumps generation by one, and
// writes unconditionally.
func (s *Store) AdvanceGenerationTo(ctx context.Context, id phoneid.ID, replacement *storymodel.Player) error {
	key := playerKey(id)

	var generation uint64
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("playerstore: snapshot-restore read %s: %w", id.E164(), err)
	}
	if ok {
		var current storymodel.Player
		if err := json.Unmarshal(raw, &current); err == nil {
			generation = current.Generation
		}
	}

	replacement.Number = id
	replacement.Generation = generation + 1

	data, err := json.Marshal(replacement)
	if err != nil {
		return fmt.Errorf("playerstore: snapshot-restore marshal %s: %w", id.E164(), err)
	}
	return s.kv.Set(ctx, key, data)
}

// List returns every player key present in the store, paginating scans
// internally until exhausted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		next, batch, err := s.kv.Scan(ctx, cursor, keyPrefix, 100)
		if err != nil {
			return nil, fmt.Errorf("playerstore: list: %w", err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			break
		}
		cursor = next
	}
	return keys, nil
}

// Delete removes a player record entirely (admin reset / confused-player
// cleanup).
func (s *Store) Delete(ctx context.Context, id phoneid.ID) error {
	return s.kv.Delete(ctx, playerKey(id))
}
