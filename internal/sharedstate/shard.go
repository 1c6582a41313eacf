// Package sharedstate implements the shard/integrate/reduce protocol
// described for the Script Shared State Manager: concurrent request
// handlers propose changes to shared, per-script state (sequences of
// PhoneId, e.g. "clavae_waiting") without holding a lock for the
// duration of a call. Changes recorded on a Shard are only applied to
// canonical state later, under the manager's lock, by Integrate.
package sharedstate

import (
	"fmt"

	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/storyerr"
)

// Change records a single append or move recorded against a Shard.
// From is empty for a pure append.
type Change struct {
	From    string
	To      string
	Values  []phoneid.ID
	AtFront bool
}

// ChangeSink receives a Change at the moment a Shard records it. The
// ScriptStateManager implements this, letting a Shard be constructed
// without holding a pointer back to its manager (the cyclic-reference
// concern called out for this protocol) — the Shard only needs the
// one-method capability.
type ChangeSink interface {
	Record(Change)
}

// Shard is a snapshot-plus-changelog view of shared script state. Reads
// see the values as of shard creation; Append and Move record pending
// Changes without mutating the snapshot. Direct field assignment is not
// expressible through this type — there are no exported fields to
// assign — and Set exists solely to fail loudly if calling code still
// expects a mutable struct.
type Shard struct {
	snapshot map[string][]phoneid.ID
	sink     ChangeSink
	changes  []Change
}

// NewShard copies the given field snapshot and binds sink as the
// destination for recorded changes.
func NewShard(fields map[string][]phoneid.ID, sink ChangeSink) *Shard {
	snap := make(map[string][]phoneid.ID, len(fields))
	for k, v := range fields {
		cp := make([]phoneid.ID, len(v))
		copy(cp, v)
		snap[k] = cp
	}
	return &Shard{snapshot: snap, sink: sink}
}

// Get returns the snapshot value of field as of shard creation. Returns
// nil, false if field is not part of this shard's state shape.
func (s *Shard) Get(field string) ([]phoneid.ID, bool) {
	v, ok := s.snapshot[field]
	if !ok {
		return nil, false
	}
	cp := make([]phoneid.ID, len(v))
	copy(cp, v)
	return cp, true
}

// Set always panics: shard fields may never be assigned directly. Use
// Append or Move.
func (s *Shard) Set(string, []phoneid.ID) {
	panic(storyerr.ShardFrozen)
}

// Append records a Change appending value to the to field. Returns
// storyerr-wrapped error if to is not a recognized field on this
// shard's state shape.
func (s *Shard) Append(to string, value phoneid.ID, atFront bool) error {
	if _, ok := s.snapshot[to]; !ok {
		return fmt.Errorf("sharedstate: unknown field %q: %w", to, storyerr.DataIntegrityError)
	}
	c := Change{To: to, Values: []phoneid.ID{value}, AtFront: atFront}
	s.record(c)
	return nil
}

// Move records a Change moving value from the from field to the to
// field. Both fields must be recognized, and value must currently be
// present in from's snapshot — if it isn't, Move fails loudly (this is
// a caller bug at shard-construction time, distinct from the lenient
// "silently ignore" rule applied later during Integrate against
// possibly-changed canonical state).
func (s *Shard) Move(from, to string, value phoneid.ID, atFront bool) error {
	fromVals, ok := s.snapshot[from]
	if !ok {
		return fmt.Errorf("sharedstate: unknown field %q: %w", from, storyerr.DataIntegrityError)
	}
	if _, ok := s.snapshot[to]; !ok {
		return fmt.Errorf("sharedstate: unknown field %q: %w", to, storyerr.DataIntegrityError)
	}
	found := false
	for _, v := range fromVals {
		if v.Equal(value) {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("sharedstate: %s not present in %q: %w", value.E164(), from, storyerr.DataIntegrityError)
	}
	c := Change{From: from, To: to, Values: []phoneid.ID{value}, AtFront: atFront}
	s.record(c)
	return nil
}

func (s *Shard) record(c Change) {
	s.changes = append(s.changes, c)
	if s.sink != nil {
		s.sink.Record(c)
	}
}

// Changes returns the pending changes recorded on this shard, in
// recording order. Used by Integrate to replay them onto canonical
// state.
func (s *Shard) Changes() []Change {
	cp := make([]Change, len(s.changes))
	copy(cp, s.changes)
	return cp
}
