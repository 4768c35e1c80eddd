package server

import (
	"bytes"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cardquiz/internal/content"
	"github.com/abhisek/cardquiz/internal/images"
	"github.com/abhisek/cardquiz/internal/quiz"
)

func testQuizConfig() quiz.Config {
	cfg := quiz.DefaultConfig()
	cfg.RevealDelay = 5 * time.Millisecond
	cfg.ExplainDelay = 10 * time.Millisecond
	cfg.FetchTimeout = time.Second
	return cfg
}

func newTestServer(t *testing.T, mutate func(*Config)) *httptest.Server {
	t.Helper()
	cfg := Config{Quiz: testQuizConfig()}
	if mutate != nil {
		mutate(&cfg)
	}
	svc := content.New(nil, content.DefaultConfig(), content.WithRandSource(rand.NewPCG(3, 4)))
	srv := New(cfg, svc, images.New(nil, nil), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeView(t *testing.T, resp *http.Response) sessionView {
	t.Helper()
	var v sessionView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func errorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["error"]
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := do(t, http.MethodPost, ts.URL+"/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	v := decodeView(t, resp)
	require.NotEmpty(t, v.ID)
	assert.Equal(t, quiz.StageAwaitingTopic, v.State.Stage)
	return v.ID
}

func waitView(t *testing.T, ts *httptest.Server, id string, cond func(sessionView) bool) sessionView {
	t.Helper()
	var last sessionView
	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/api/sessions/" + id)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var v sessionView
		if json.NewDecoder(resp.Body).Decode(&v) != nil {
			return false
		}
		last = v
		return cond(v)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func answerOf(t *testing.T, items []content.Item) content.Item {
	t.Helper()
	for _, it := range items {
		if it.IsAnswer() {
			return it
		}
	}
	t.Fatalf("no answer among %d items", len(items))
	return content.Item{}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestSessionRound(t *testing.T) {
	ts := newTestServer(t, nil)
	id := createSession(t, ts)
	base := ts.URL + "/api/sessions/" + id

	resp := do(t, http.MethodPost, base+"/topic", map[string]string{"text": "Hayvanlar"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := waitView(t, ts, id, func(v sessionView) bool {
		return v.State.Stage == quiz.StageFindWrong && !v.Busy
	})
	require.Len(t, v.Options, content.BatchSize)
	assert.Equal(t, quiz.StepCard, v.ActiveStep)
	assert.Equal(t, 1, v.StageIndex)
	assert.True(t, v.State.Round.Degraded)

	wrong := answerOf(t, v.Options)
	resp = do(t, http.MethodPost, base+"/cards/"+wrong.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v = decodeView(t, resp)
	assert.Equal(t, 10, v.State.Score)

	v = waitView(t, ts, id, func(v sessionView) bool { return v.State.Stage == quiz.StageExplain })
	resp = do(t, http.MethodPost, base+"/explanation/skip", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v = waitView(t, ts, id, func(v sessionView) bool {
		return v.State.Stage == quiz.StageSelectCorrect && v.ActiveStep == quiz.StepDescription && !v.Busy
	})
	desc := answerOf(t, v.Options)
	resp = do(t, http.MethodPost, base+"/options/"+desc.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 25, decodeView(t, resp).State.Score)

	v = waitView(t, ts, id, func(v sessionView) bool { return v.ActiveStep == quiz.StepWord && !v.Busy })
	word := answerOf(t, v.Options)
	resp = do(t, http.MethodPost, base+"/options/"+word.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 45, decodeView(t, resp).State.Score)

	v = waitView(t, ts, id, func(v sessionView) bool { return len(v.State.History) == 1 })
	assert.True(t, v.State.History[0].Completed)
	assert.InDelta(t, 1.1, v.State.Difficulty, 1e-9)
}

func TestRejectedTransitionIsConflict(t *testing.T) {
	ts := newTestServer(t, nil)
	id := createSession(t, ts)

	resp := do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/cards/card_1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, errorBody(t, resp))

	resp = do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/topic", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestResetKeepsHistoryFlag(t *testing.T) {
	ts := newTestServer(t, nil)
	id := createSession(t, ts)
	base := ts.URL + "/api/sessions/" + id

	do(t, http.MethodPost, base+"/topic", map[string]string{"text": "Okul"})
	waitView(t, ts, id, func(v sessionView) bool { return v.State.Stage == quiz.StageFindWrong })

	resp := do(t, http.MethodPost, base+"/reset", map[string]bool{"keep_history": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decodeView(t, resp)
	assert.Equal(t, quiz.StageAwaitingTopic, v.State.Stage)
	assert.Equal(t, 0, v.State.Score)
	assert.Nil(t, v.State.Round)
}

func TestUnknownAndMalformedSessions(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodGet, ts.URL+"/api/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/sessions/7b0d6a3e-8f44-4d6f-9a55-0d5cf5f0b9a1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	id := createSession(t, ts)
	resp = do(t, http.MethodDelete, ts.URL+"/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBadBody(t *testing.T) {
	ts := newTestServer(t, nil)
	id := createSession(t, ts)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/sessions/"+id+"/topic", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMaxSessions(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.MaxSessions = 1 })
	createSession(t, ts)

	resp := do(t, http.MethodPost, ts.URL+"/api/sessions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMaxSessions_IdleSessionMakesRoom(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.MaxSessions = 1
		c.SessionIdle = 20 * time.Millisecond
	})
	first := createSession(t, ts)

	time.Sleep(50 * time.Millisecond)
	createSession(t, ts)

	resp := do(t, http.MethodGet, ts.URL+"/api/sessions/"+first, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImageURL(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodGet, ts.URL+"/api/images?description=A+red+apple", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, images.PlaceholderURL("A red apple"), body["url"])

	resp = do(t, http.MethodGet, ts.URL+"/api/images", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreview(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodPost, ts.URL+"/api/preview/cards", map[string]any{"topic": "Yemek"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var batch content.Batch
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&batch))
	assert.Equal(t, content.KindCard, batch.Kind)
	assert.Len(t, batch.Items, content.BatchSize)
	assert.Equal(t, content.OriginFallback, batch.Origin)

	resp = do(t, http.MethodPost, ts.URL+"/api/preview/words", map[string]any{
		"topic":     "Yemek",
		"reference": map[string]string{"image_description": "A red car on the street"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&batch))
	word, ok := batch.Answer()
	require.True(t, ok)
	assert.Equal(t, "Car", word.PrimaryText)

	resp = do(t, http.MethodPost, ts.URL+"/api/preview/words", map[string]any{"topic": "Yemek"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/preview/images", map[string]any{
		"topic":     "Doğa",
		"reference": map[string]string{"primary_text": "The tree is very tall."},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/preview/sounds", map[string]any{"topic": "Yemek"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreview_ReferenceFieldPerKind(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		kind, field string
		ref         map[string]string
	}{
		{"descriptions", "image_description", map[string]string{"primary_text": "The tree is very tall."}},
		{"words", "image_description", map[string]string{"primary_text": "I drink milk."}},
		{"images", "primary_text", map[string]string{"image_description": "A red car"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			resp := do(t, http.MethodPost, ts.URL+"/api/preview/"+tt.kind, map[string]any{"topic": "Yemek", "reference": tt.ref})
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "reference."+tt.field+" is required", errorBody(t, resp))
		})
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.RatePerSecond = 0.001
		c.Burst = 2
	})

	for i := 0; i < 2; i++ {
		resp := do(t, http.MethodGet, ts.URL+"/api/images?description=cat", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := do(t, http.MethodGet, ts.URL+"/api/images?description=cat", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate limit exceeded", errorBody(t, resp))

	// health checks bypass the limiter
	resp = do(t, http.MethodGet, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.CORSOrigins = []string{"http://quiz.test"} })

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://quiz.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://quiz.test", resp.Header.Get("Access-Control-Allow-Origin"))
}
