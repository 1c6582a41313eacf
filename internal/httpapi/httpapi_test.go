package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/conference"
	"github.com/aeturnum/spins-halp-line/internal/httpapi"
	"github.com/aeturnum/spins-halp-line/internal/kvstore"
	"github.com/aeturnum/spins-halp-line/internal/mediacatalog"
	"github.com/aeturnum/spins-halp-line/internal/phoneid"
	"github.com/aeturnum/spins-halp-line/internal/playerstore"
	"github.com/aeturnum/spins-halp-line/internal/storyengine"
)

func testServer(t *testing.T) (*httpapi.Server, *conference.Store, *mediacatalog.Catalog) {
	t.Helper()
	kv := kvstore.NewMemStore()
	players := playerstore.New(kv)
	records := conference.NewStore(kv)
	media := mediacatalog.NewCatalog(resty.New(), "https://media.example.com")
	media.Prime(&mediacatalog.Asset{ID: 1, URL: "https://cdn.example.com/1.mp3", Title: "clip"})

	logger := zap.NewNop()
	router := storyengine.NewStoryRouter(players, logger)

	s := httpapi.New(httpapi.Config{
		Router:           router,
		Players:          players,
		Media:            media,
		Records:          records,
		ClimaxAsset:      func(a, b string) int64 { return 1 },
		FinalClimaxAsset: func(result string) int64 { return 1 },
		TwimlBaseURL:     "https://tipline.example.com",
		DebugSecret:      "test-secret",
		Logger:           logger,
	})
	return s, records, media
}

func postForm(t *testing.T, s *httpapi.Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestTiplineStart_NoScriptClaimsCall_ReturnsConfused(t *testing.T) {
	s, _, _ := testServer(t)
	form := url.Values{"From": {"+15105551111"}, "Called": {"+15105559999"}}
	rec := postForm(t, s, "/tipline/start", form)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "not quite sure how you got here")
}

func TestTiplineStart_BadFrom_ReturnsConfusedWithoutPanicking(t *testing.T) {
	s, _, _ := testServer(t)
	form := url.Values{"From": {"not-a-number"}, "Called": {"+15105559999"}}
	rec := postForm(t, s, "/tipline/start", form)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Response>")
}

func TestTiplineSMS_AlwaysAcksWithEmptyDocument(t *testing.T) {
	s, _, _ := testServer(t)
	form := url.Values{"From": {"+15105551111"}, "To": {"+15105559999"}, "Body": {"hi"}, "SmsSid": {"SM123"}}
	rec := postForm(t, s, "/tipline/sms", form)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"+"<Response></Response>", rec.Body.String())
}

func TestConfTwiml_PlaysPendingIntroThenDials(t *testing.T) {
	s, records, _ := testServer(t)
	ctx := context.Background()

	rec0, err := records.New(ctx, phoneid.MustParse("+15105550000"))
	require.NoError(t, err)
	require.NoError(t, records.Invite(ctx, rec0.ID, phoneid.MustParse("+15105551111"), 1))

	form := url.Values{"To": {"+15105551111"}}
	resp := postForm(t, s, "/conf/twiml/"+strconv.FormatInt(rec0.ID, 10), form)

	assert.Equal(t, 200, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, "<Play>https://cdn.example.com/1.mp3</Play>")
	assert.Contains(t, body, "<Dial>")
	assert.Contains(t, body, `participantLabel="+15105551111"`)
}

func TestConfStatus_AppliesEventAndAcks(t *testing.T) {
	s, records, _ := testServer(t)
	ctx := context.Background()

	rec0, err := records.New(ctx, phoneid.MustParse("+15105550000"))
	require.NoError(t, err)

	form := url.Values{
		"ConferenceSid":       {"CF123"},
		"StatusCallbackEvent": {conference.EventParticipantJoin},
		"ParticipantLabel":    {"+15105551111"},
	}
	resp := postForm(t, s, "/conf/status/"+strconv.FormatInt(rec0.ID, 10), form)
	assert.Equal(t, 200, resp.Code)

	updated, ok := records.Get(rec0.ID)
	require.True(t, ok)
	assert.Equal(t, conference.StatusActive, updated.Participants["+15105551111"])
	assert.Equal(t, "CF123", updated.TwilioSID)
}

func TestClimax_PlaysResolvedAssetThenHangsUp(t *testing.T) {
	s, _, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/climax/1/2", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Play>https://cdn.example.com/1.mp3</Play>")
	assert.Contains(t, rec.Body.String(), "<Hangup")
}

func TestDebugPlayers_RequiresBearerToken(t *testing.T) {
	s, _, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/debug/players", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, 401, rec.Code)
}

func TestDebugPlayers_RejectsBadToken(t *testing.T) {
	s, _, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/debug/players", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, 401, rec.Code)
}

func TestDebugPlayers_AcceptsValidToken(t *testing.T) {
	s, _, _ := testServer(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "operator"})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/debug/players", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "players")
}
