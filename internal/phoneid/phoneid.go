// Package phoneid implements the canonical normalized phone identifier
// used throughout the story engine. A PhoneId is the only identity of a
// player externally visible to the system.
package phoneid

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"

	"github.com/aeturnum/spins-halp-line/internal/storyerr"
)

// DefaultRegion is the country prefix assumed when a number cannot be
// parsed as a fully-qualified international number.
const DefaultRegion = "US"

// ID is a normalized phone identifier. The zero value is not valid; use
// Parse to construct one.
type ID struct {
	e164 string
	num  *phonenumbers.PhoneNumber
}

// Parse normalizes a phone number string or integer-ish string. It first
// tries to parse as an international number; on failure it assumes
// DefaultRegion and retries. It fails with storyerr.InvalidNumber when
// neither parse succeeds.
func Parse(raw string) (ID, error) {
	if raw == "" {
		return ID{}, fmt.Errorf("phoneid: empty input: %w", storyerr.InvalidNumber)
	}

	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		num, err = phonenumbers.Parse(raw, DefaultRegion)
		if err != nil {
			return ID{}, fmt.Errorf("phoneid: %q: %w", raw, storyerr.InvalidNumber)
		}
	}

	return fromProto(num), nil
}

// MustParse parses raw and panics on failure. Intended for constants and
// tests, never for request-path input.
func MustParse(raw string) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func fromProto(num *phonenumbers.PhoneNumber) ID {
	return ID{
		e164: phonenumbers.Format(num, phonenumbers.E164),
		num:  num,
	}
}

// E164 returns the canonical E.164 representation, e.g. "+15105551234".
func (p ID) E164() string {
	return p.e164
}

// Friendly returns a human-readable form: national formatting for
// US/Canada numbers, international formatting otherwise.
func (p ID) Friendly() string {
	if p.num == nil {
		return ""
	}
	if p.num.GetCountryCode() == 1 {
		return phonenumbers.Format(p.num, phonenumbers.NATIONAL)
	}
	return phonenumbers.Format(p.num, phonenumbers.INTERNATIONAL)
}

// IsZero reports whether p is the unparsed zero value.
func (p ID) IsZero() bool {
	return p.e164 == ""
}

// Equal compares two normalized identifiers. Equality is purely on the
// normalized E.164 form — there is no wildcard special-case here; that
// concern belongs to routing keys (internal/storyengine.RouteKey), not
// to identity comparison.
func (p ID) Equal(other ID) bool {
	return p.e164 == other.e164
}

func (p ID) String() string {
	return p.Friendly()
}

// MarshalJSON serializes a PhoneId as its E.164 string, matching the
// original's toJson() behavior.
func (p ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.e164 + `"`), nil
}

// UnmarshalJSON parses a quoted E.164 string back into a PhoneId.
func (p *ID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("phoneid: malformed JSON phone id %q", data)
	}
	raw := string(data[1 : len(data)-1])
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
