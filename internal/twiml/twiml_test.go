package twiml_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aeturnum/spins-halp-line/internal/twiml"
)

func TestDocument_PlayAndGather(t *testing.T) {
	doc := twiml.New().
		Play("https://example.com/a.mp3").
		Gather(1, "/tipline/start", twiml.GatherSay("press a key"))

	out := doc.String()
	assert.True(t, strings.Contains(out, "<Response>"))
	assert.True(t, strings.Contains(out, "<Play>https://example.com/a.mp3</Play>"))
	assert.True(t, strings.Contains(out, "<Gather"))
	assert.True(t, strings.Contains(out, `numDigits="1"`))
	assert.True(t, strings.Contains(out, `action="/tipline/start"`))
}

func TestDocument_DialConference(t *testing.T) {
	doc := twiml.New().DialConference("clavae-karen-7", "clavae", "/conf/status/7", "")
	out := doc.String()
	assert.True(t, strings.Contains(out, "<Dial>"))
	assert.True(t, strings.Contains(out, "clavae-karen-7"))
	assert.True(t, strings.Contains(out, `statusCallbackEvent="start end leave join"`))
}

func TestDocument_Hangup(t *testing.T) {
	doc := twiml.New().Say("goodbye").Hangup()
	out := doc.String()
	assert.True(t, strings.Contains(out, "<Hangup"))
}
