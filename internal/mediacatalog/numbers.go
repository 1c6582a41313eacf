package mediacatalog

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/storyerr"
)

// Capability is a number's outbound capability.
type Capability string

const (
	CapVoice Capability = "voice"
	CapSMS   Capability = "sms"
	CapMMS   Capability = "mms"
)

type numberEntry struct {
	Number       string   `json:"number"`
	Labels       []string `json:"labels"`
	Capabilities []string `json:"capabilities"`
}

// NumberLibrary is loaded once from a JSON manifest listing outbound
// numbers, their capabilities, and optional labels.
type NumberLibrary struct {
	numbers      []phoneid.ID
	capabilities map[Capability]map[string]bool // capability -> set of E.164
	labels       map[string]phoneid.ID
	rand         *rand.Rand
}

// LoadNumberLibrary reads and parses the numbers manifest at path. The
// expected shape is an array of
// {"number": "+15105551234", "labels": ["Clavae1"], "capabilities": ["voice","sms"]}.
func LoadNumberLibrary(path string) (*NumberLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mediacatalog: read numbers manifest: %w", err)
	}

	var entries []numberEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("mediacatalog: parse numbers manifest: %w", err)
	}

	lib := &NumberLibrary{
		capabilities: map[Capability]map[string]bool{CapVoice: {}, CapSMS: {}, CapMMS: {}},
		labels:       map[string]phoneid.ID{},
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, e := range entries {
		id, err := phoneid.Parse(e.Number)
		if err != nil {
			return nil, fmt.Errorf("mediacatalog: numbers manifest entry %q: %w", e.Number, err)
		}
		lib.numbers = append(lib.numbers, id)
		for _, l := range e.Labels {
			lib.labels[l] = id
		}
		for _, cap := range e.Capabilities {
			c := Capability(cap)
			if lib.capabilities[c] == nil {
				lib.capabilities[c] = map[string]bool{}
			}
			lib.capabilities[c][id.E164()] = true
		}
	}
	return lib, nil
}

// Random returns a uniformly chosen number possessing every capability
// in caps (defaulting to {voice} when caps is empty). Fails with
// storyerr.NoSuchCapability if no number matches.
func (l *NumberLibrary) Random(caps ...Capability) (phoneid.ID, error) {
	if len(caps) == 0 {
		caps = []Capability{CapVoice}
	}

	var candidates []phoneid.ID
	for _, n := range l.numbers {
		ok := true
		for _, c := range caps {
			if !l.capabilities[c][n.E164()] {
				ok = false
				break
			}
		}
		if ok {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return phoneid.ID{}, fmt.Errorf("mediacatalog: no number with capabilities %v: %w", caps, storyerr.NoSuchCapability)
	}
	return candidates[l.rand.Intn(len(candidates))], nil
}

// FromLabel resolves a labeled number, or (zero, false) if the label is
// unknown.
func (l *NumberLibrary) FromLabel(label string) (phoneid.ID, bool) {
	id, ok := l.labels[label]
	return id, ok
}
