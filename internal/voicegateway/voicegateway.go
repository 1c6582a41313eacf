// Package voicegateway implements the Voice Gateway component: outbound
// calls, outbound SMS, playing audio into a live conference, and hangup.
// It has no conference-creation call: a conference comes into being when
// a dialed leg's TwiML joins it by name (twiml.DialConference). All operations serialize through a single
// process-wide mutex because the underlying Twilio client is not safe
// for concurrent use.
package voicegateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/storyerr"
)

// Credentials holds the Twilio account credentials, grounded in the
// teacher's ClientParam extraction (account_sid/account_token).
type Credentials struct {
	AccountSID string
	AuthToken  string
}

// NewClient builds a *twilio.RestClient from credentials, mirroring the
// teacher's Client(vaultCredential) constructor.
func NewClient(creds Credentials) *twilio.RestClient {
	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: creds.AccountSID,
		Password: creds.AuthToken,
	})
}

// Gateway wraps a Twilio REST client behind the voice-gateway lock.
type Gateway struct {
	mu     sync.Mutex
	client *twilio.RestClient
}

// New wraps an already-constructed client.
func New(client *twilio.RestClient) *Gateway {
	return &Gateway{client: client}
}

// PlaceCall starts an outbound voice call whose media is driven by
// fetching twimlURL.
func (g *Gateway) PlaceCall(ctx context.Context, to, from phoneid.ID, twimlURL string) (sid string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	params := &twilioapi.CreateCallParams{}
	params.SetTo(to.E164())
	params.SetFrom(from.E164())
	params.SetUrl(twimlURL)

	resp, err := g.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("voicegateway: place call to %s: %w: %w", to.E164(), storyerr.VoiceGatewayError, err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("voicegateway: place call to %s: no sid returned: %w", to.E164(), storyerr.VoiceGatewayError)
	}
	return *resp.Sid, nil
}

// SendSMS sends an outbound text, optionally with one media attachment.
func (g *Gateway) SendSMS(ctx context.Context, to, from phoneid.ID, body string, mediaURL string) (sid string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to.E164())
	params.SetFrom(from.E164())
	params.SetBody(body)
	if mediaURL != "" {
		params.SetMediaUrl([]string{mediaURL})
	}

	resp, err := g.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("voicegateway: send sms to %s: %w: %w", to.E164(), storyerr.VoiceGatewayError, err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("voicegateway: send sms to %s: no sid returned: %w", to.E164(), storyerr.VoiceGatewayError)
	}
	return *resp.Sid, nil
}

// PlayInto plays an audio URL as an announcement into every participant
// of a live conference.
func (g *Gateway) PlayInto(ctx context.Context, conferenceSID, url string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	params := &twilioapi.UpdateConferenceParams{}
	params.SetAnnounceUrl(url)
	if _, err := g.client.Api.UpdateConference(conferenceSID, params); err != nil {
		return fmt.Errorf("voicegateway: play into %s: %w: %w", conferenceSID, storyerr.VoiceGatewayError, err)
	}
	return nil
}

// HangupConference ends a live conference for every participant.
func (g *Gateway) HangupConference(ctx context.Context, conferenceSID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	params := &twilioapi.UpdateConferenceParams{}
	params.SetStatus("completed")
	if _, err := g.client.Api.UpdateConference(conferenceSID, params); err != nil {
		return fmt.Errorf("voicegateway: hangup %s: %w: %w", conferenceSID, storyerr.VoiceGatewayError, err)
	}
	return nil
}
