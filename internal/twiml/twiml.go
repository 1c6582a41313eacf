// Package twiml builds the voice-XML documents the Voice Gateway's
// webhooks respond with: a Response element containing ordered verbs —
// Play, Say, Gather, Dial/Conference, Hangup — matching the verb shapes
// named in the external-interfaces surface. Built programmatically
// rather than through a template engine, matching the original's twil.py
// which assembles verbs in code.
package twiml

import (
	"encoding/xml"
	"fmt"
)

// Document is a TwiML response under construction.
type Document struct {
	verbs []any
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

type playVerb struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type sayVerb struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type hangupVerb struct {
	XMLName xml.Name `xml:"Hangup"`
}

type gatherVerb struct {
	XMLName          xml.Name `xml:"Gather"`
	NumDigits        int      `xml:"numDigits,attr,omitempty"`
	Action           string   `xml:"action,attr,omitempty"`
	ActionOnEmptyResult bool `xml:"actionOnEmptyResult,attr"`
	Inner            []any
}

// MarshalXML flattens Gather's nested Play/Say verbs.
func (g gatherVerb) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = nil
	if g.NumDigits > 0 {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "numDigits"}, Value: fmt.Sprint(g.NumDigits)})
	}
	if g.Action != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "action"}, Value: g.Action})
	}
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "actionOnEmptyResult"}, Value: fmt.Sprint(g.ActionOnEmptyResult)})
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, v := range g.Inner {
		if err := e.Encode(v); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

type conferenceVerb struct {
	XMLName            xml.Name `xml:"Conference"`
	ParticipantLabel   string   `xml:"participantLabel,attr,omitempty"`
	StatusCallback     string   `xml:"statusCallback,attr,omitempty"`
	StatusCallbackEvent string  `xml:"statusCallbackEvent,attr,omitempty"`
	WaitURL            string   `xml:"waitUrl,attr,omitempty"`
	Name               string   `xml:",chardata"`
}

type dialVerb struct {
	XMLName    xml.Name `xml:"Dial"`
	Conference conferenceVerb
}

type response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

func (r response) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = nil
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, v := range r.Verbs {
		if err := e.Encode(v); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// Play appends a <Play> verb.
func (d *Document) Play(url string) *Document {
	d.verbs = append(d.verbs, playVerb{URL: url})
	return d
}

// Say appends a <Say> TTS-fallback verb.
func (d *Document) Say(text string) *Document {
	d.verbs = append(d.verbs, sayVerb{Text: text})
	return d
}

// Hangup appends a <Hangup> verb.
func (d *Document) Hangup() *Document {
	d.verbs = append(d.verbs, hangupVerb{})
	return d
}

// GatherOpt configures a Gather verb's nested prompt.
type GatherOpt func(*gatherVerb)

// GatherPlay queues a <Play> inside the Gather.
func GatherPlay(url string) GatherOpt {
	return func(g *gatherVerb) { g.Inner = append(g.Inner, playVerb{URL: url}) }
}

// GatherSay queues a <Say> inside the Gather.
func GatherSay(text string) GatherOpt {
	return func(g *gatherVerb) { g.Inner = append(g.Inner, sayVerb{Text: text}) }
}

// Gather appends a DTMF-collection verb expecting numDigits digits,
// posting back to action when the caller finishes (or times out with
// no input, since actionOnEmptyResult is always set).
func (d *Document) Gather(numDigits int, action string, opts ...GatherOpt) *Document {
	g := gatherVerb{NumDigits: numDigits, Action: action, ActionOnEmptyResult: true}
	for _, opt := range opts {
		opt(&g)
	}
	d.verbs = append(d.verbs, g)
	return d
}

// DialConference appends a verb dialing the caller into the named
// conference, wiring status callbacks and an optional wait-music URL.
func (d *Document) DialConference(name, participantLabel, statusCallbackURL, waitURL string) *Document {
	d.verbs = append(d.verbs, dialVerb{
		Conference: conferenceVerb{
			ParticipantLabel:    participantLabel,
			StatusCallback:      statusCallbackURL,
			StatusCallbackEvent: "start end leave join",
			WaitURL:             waitURL,
			Name:                name,
		},
	})
	return d
}

// String renders the document as an XML string with declaration.
func (d *Document) String() string {
	out, err := xml.Marshal(response{Verbs: d.verbs})
	if err != nil {
		// Marshaling these fixed verb types cannot fail; if it somehow
		// does, fall back to an empty-but-valid response rather than
		// a malformed one.
		return xml.Header + `<Response></Response>`
	}
	return xml.Header + string(out)
}

// Bytes renders the document as XML bytes.
func (d *Document) Bytes() []byte {
	return []byte(d.String())
}
