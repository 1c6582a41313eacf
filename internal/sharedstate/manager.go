package sharedstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aeturnum/spins-halp-line/internal/kvstore"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
)

const keyPrefix = "script:"

// State is the canonical, persisted shape of a narrative's shared
// state: a fixed set of named PhoneId sequences plus version and
// generation housekeeping.
type State struct {
	Lists      map[string][]phoneid.ID `json:"lists"`
	Version    uint64                  `json:"version"`
	Generation uint64                  `json:"generation"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	lists := make(map[string][]phoneid.ID, len(s.Lists))
	for k, v := range s.Lists {
		cp := make([]phoneid.ID, len(v))
		copy(cp, v)
		lists[k] = cp
	}
	return State{Lists: lists, Version: s.Version, Generation: s.Generation}
}

func listsEqual(a, b map[string][]phoneid.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for field, av := range a {
		bv, ok := b[field]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}
	}
	return true
}

// ReduceFunc is the narrative-specific hook invoked after every
// Integrate, still holding the manager lock. It may mutate state's
// lists and may enqueue further work (e.g. a conference-start task);
// it must not block on request handlers.
type ReduceFunc func(ctx context.Context, state *State, freshShard *Shard) error

// Manager owns one narrative's shared state and serializes every
// sync/integrate/reduce/save cycle behind a single lock. It implements
// ChangeSink so Shards it creates can be constructed without a pointer
// back to it.
type Manager struct {
	mu     sync.Mutex
	kv     kvstore.Store
	key    string
	fields []string
	local  State
}

// NewManager constructs a manager for a narrative named scriptName,
// whose shared-state shape has exactly the given fields (each a
// sequence of PhoneId).
func NewManager(kv kvstore.Store, scriptName string, fields []string) *Manager {
	lists := make(map[string][]phoneid.ID, len(fields))
	for _, f := range fields {
		lists[f] = []phoneid.ID{}
	}
	return &Manager{
		kv:     kv,
		key:    keyPrefix + scriptName,
		fields: fields,
		local:  State{Lists: lists},
	}
}

// Record implements ChangeSink. The manager does not need to act on a
// Change at record time — Integrate replays a shard's full Changes()
// list directly — but it satisfies the capability interface so Shard
// never needs a pointer back to *Manager.
func (m *Manager) Record(Change) {}

// NewShard takes the manager lock just long enough to snapshot current
// state into a new Shard.
func (m *Manager) NewShard() *Shard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return NewShard(m.local.Lists, m)
}

// Snapshot returns a deep copy of current local state, for read-only
// inspection (e.g. by HTTP debug handlers).
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.local.Clone()
}

// Name returns the narrative name this manager was constructed with
// (the key without its "script:" prefix).
func (m *Manager) Name() string {
	return m.key[len(keyPrefix):]
}

// Mutate runs fn against freshly synced local state under the manager
// lock and persists the result if it changed. Used for one-off
// administrative passes — e.g. startup reconciliation — that aren't
// driven by a shard's recorded changes.
func (m *Manager) Mutate(ctx context.Context, fn func(*State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sync(ctx); err != nil {
		return err
	}
	before := m.local.Clone()
	if err := fn(&m.local); err != nil {
		return err
	}
	return m.commitIfChanged(ctx, before)
}

// SetNewGeneration bumps generation so any concurrent writer with a
// stale local copy loses on its next sync. Used only by admin snapshot
// restore.
func (m *Manager) SetNewGeneration(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.local.Generation++
	return m.persist(ctx)
}

// Integrate runs the full sync -> replay -> reduce -> save cycle under
// the manager lock: it syncs local state from the store, replays
// shard's recorded changes, invokes reduce, and persists whichever of
// those two phases actually changed the lists.
func (m *Manager) Integrate(ctx context.Context, shard *Shard, reduce ReduceFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sync(ctx); err != nil {
		return err
	}

	beforeReplay := m.local.Clone()
	for _, c := range shard.Changes() {
		applyChange(&m.local, c)
	}
	if err := m.commitIfChanged(ctx, beforeReplay); err != nil {
		return err
	}

	if reduce != nil {
		beforeReduce := m.local.Clone()
		freshShard := NewShard(m.local.Lists, m)
		if err := reduce(ctx, &m.local, freshShard); err != nil {
			return err
		}
		if err := m.commitIfChanged(ctx, beforeReduce); err != nil {
			return err
		}
	}
	return nil
}

// sync reads the stored record; if its version or generation is
// strictly ahead of local's, local is replaced.
func (m *Manager) sync(ctx context.Context) error {
	raw, ok, err := m.kv.Get(ctx, m.key)
	if err != nil {
		return fmt.Errorf("sharedstate: sync %s: %w", m.key, err)
	}
	if !ok {
		return nil
	}
	var stored State
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("sharedstate: sync %s: malformed record: %w", m.key, err)
	}
	if stored.Version > m.local.Version || stored.Generation > m.local.Generation {
		if stored.Lists == nil {
			stored.Lists = map[string][]phoneid.ID{}
		}
		for _, f := range m.fields {
			if stored.Lists[f] == nil {
				stored.Lists[f] = []phoneid.ID{}
			}
		}
		m.local = stored
	}
	return nil
}

// commitIfChanged bumps version and persists only if local's lists
// differ from the given "before" snapshot, matching the protocol's
// save rule: do nothing when the resulting state equals what was read.
func (m *Manager) commitIfChanged(ctx context.Context, before State) error {
	if listsEqual(before.Lists, m.local.Lists) {
		return nil
	}
	m.local.Version++
	return m.persist(ctx)
}

func (m *Manager) persist(ctx context.Context) error {
	data, err := json.Marshal(m.local)
	if err != nil {
		return fmt.Errorf("sharedstate: marshal %s: %w", m.key, err)
	}
	if err := m.kv.Set(ctx, m.key, data); err != nil {
		return fmt.Errorf("sharedstate: persist %s: %w", m.key, err)
	}
	return nil
}

// applyChange replays one Change onto state: for each value, if From is
// set and the value is not currently present there, the move is a
// silent no-op (it is not removed, and it is not appended to To); this
// is the only place the "ignore missing" rule applies — Shard.Move
// validates eagerly against its own snapshot instead.
func applyChange(state *State, c Change) {
	for _, v := range c.Values {
		if c.From != "" {
			idx := -1
			list := state.Lists[c.From]
			for i, existing := range list {
				if existing.Equal(v) {
					idx = i
					break
				}
			}
			if idx < 0 {
				continue
			}
			state.Lists[c.From] = append(list[:idx], list[idx+1:]...)
		}
		if c.AtFront {
			state.Lists[c.To] = append([]phoneid.ID{v}, state.Lists[c.To]...)
		} else {
			state.Lists[c.To] = append(state.Lists[c.To], v)
		}
	}
}
