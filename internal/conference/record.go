// Package conference owns the conference record store and the
// matchmaking/readiness state machine that pairs one Clavae-path player
// with one Karen-path player into a live Twilio conference. Record
// bookkeeping is narrative-agnostic; the Conductor hardcodes the
// Clavae/Karen two-path shape the way the rest of this system does,
// since the spec treats those two names as the generic path identifiers
// rather than flavor specific to one narrative.
package conference

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aeturnum/spins-halp-line/internal/kvstore"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
)

const storeKey = "spins_conference_list"

// Status is a participant's membership state within one Record.
type Status string

const (
	StatusInvited Status = "invited"
	StatusActive  Status = "active"
	StatusLeft    Status = "left"
)

// Event names as delivered on a Twilio conference status callback.
const (
	EventStart            = "conference-start"
	EventParticipantJoin  = "participant-join"
	EventParticipantLeave = "participant-leave"
)

// Record is one conference attempt: the number it dials from, the
// Twilio conference SID once known, and each invited participant's
// status plus any pending intro clip to play when they're connected.
type Record struct {
	ID           int64             `json:"id"`
	TwilioSID    string            `json:"twilioSid"`
	FromNumber   phoneid.ID        `json:"fromNumber"`
	Participants map[string]Status `json:"participants"`
	Intros       map[string]int64  `json:"intros"`
	StartedAt    *time.Time        `json:"startedAt,omitempty"`
}

func newRecord(id int64, from phoneid.ID) *Record {
	return &Record{ID: id, FromNumber: from, Participants: map[string]Status{}, Intros: map[string]int64{}}
}

// Active returns the E.164 numbers currently marked active.
func (r *Record) Active() []string {
	var out []string
	for p, s := range r.Participants {
		if s == StatusActive {
			out = append(out, p)
		}
	}
	return out
}

// IsLive reports whether more than one participant is currently active,
// matching Twilio's own definition of a conference worth keeping open.
func (r *Record) IsLive() bool {
	return len(r.Active()) > 1
}

// EventHook runs after an event has been applied to a Record and
// persisted, letting a narrative react — e.g. flag both participants as
// having shared a conference, or text a post-conference menu once
// someone leaves.
type EventHook func(ctx context.Context, rec *Record, event string, participant phoneid.ID)

// Store owns the process-wide set of conference records behind a single
// lock, persisted as one JSON array.
type Store struct {
	mu      sync.Mutex
	kv      kvstore.Store
	records map[int64]*Record
	nextID  int64
	hook    EventHook
}

// NewStore wraps a KV Store gateway.
func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv, records: map[int64]*Record{}}
}

// SetEventHook wires the narrative's status-callback reaction. Must be
// called before Load/HandleEvent are exercised concurrently.
func (s *Store) SetEventHook(hook EventHook) { s.hook = hook }

// Load reads the persisted conference list into memory. Called once at
// process startup.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(ctx, storeKey)
	if err != nil {
		return fmt.Errorf("conference: load: %w", err)
	}
	if !ok {
		return nil
	}
	var records []*Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("conference: load: malformed record: %w", err)
	}
	for _, r := range records {
		s.records[r.ID] = r
		if r.ID > s.nextID {
			s.nextID = r.ID
		}
	}
	return nil
}

// New creates, persists, and returns a fresh conference record dialing
// out from fromNumber.
func (s *Store) New(ctx context.Context, fromNumber phoneid.ID) (*Record, error) {
	s.mu.Lock()
	s.nextID++
	rec := newRecord(s.nextID, fromNumber)
	s.records[rec.ID] = rec
	s.mu.Unlock()

	if err := s.save(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get looks up a record by id.
func (s *Store) Get(id int64) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	return r, ok
}

// Invite records that `to` has been dialed into conference id with the
// given intro media asset pending.
func (s *Store) Invite(ctx context.Context, id int64, to phoneid.ID, introAsset int64) error {
	s.mu.Lock()
	r, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("conference: invite: no such conference %d", id)
	}
	r.Participants[to.E164()] = StatusInvited
	r.Intros[to.E164()] = introAsset
	s.mu.Unlock()
	return s.save(ctx)
}

// TakeIntro returns and clears the pending intro asset id for a
// participant dialing into their own TwiML leg. ok is false if no intro
// is pending (already played, or never set).
func (s *Store) TakeIntro(ctx context.Context, id int64, participant phoneid.ID) (asset int64, ok bool, err error) {
	s.mu.Lock()
	r, found := s.records[id]
	if !found {
		s.mu.Unlock()
		return 0, false, fmt.Errorf("conference: take intro: no such conference %d", id)
	}
	asset, ok = r.Intros[participant.E164()]
	if ok {
		delete(r.Intros, participant.E164())
	}
	s.mu.Unlock()
	if !ok {
		return 0, false, nil
	}
	return asset, true, s.save(ctx)
}

// HandleEvent applies a conference status-callback event to the named
// record and runs the configured EventHook, if any.
func (s *Store) HandleEvent(ctx context.Context, id int64, twilioSID, event string, participant phoneid.ID) error {
	s.mu.Lock()
	r, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("conference: event: no such conference %d", id)
	}

	if r.TwilioSID == "" && twilioSID != "" {
		r.TwilioSID = twilioSID
	}
	if !participant.IsZero() {
		if _, seen := r.Participants[participant.E164()]; !seen {
			r.Participants[participant.E164()] = StatusInvited
		}
	}
	switch event {
	case EventStart:
		now := time.Now()
		r.StartedAt = &now
	case EventParticipantJoin:
		r.Participants[participant.E164()] = StatusActive
	case EventParticipantLeave:
		r.Participants[participant.E164()] = StatusLeft
	}
	hook := s.hook
	s.mu.Unlock()

	if err := s.save(ctx); err != nil {
		return err
	}
	if hook != nil {
		hook(ctx, r, event, participant)
	}
	return nil
}

func (s *Store) save(ctx context.Context) error {
	s.mu.Lock()
	records := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.mu.Unlock()

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("conference: marshal: %w", err)
	}
	return s.kv.Set(ctx, storeKey, data)
}
