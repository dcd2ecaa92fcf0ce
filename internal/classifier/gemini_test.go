package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGemini(t *testing.T, handler http.HandlerFunc) (*Gemini, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g := NewGemini("test-key")
	g.endpoint = server.URL
	g.chunkPause = time.Millisecond
	g.rateLimitBackoff = time.Millisecond
	g.retryDelay = time.Millisecond
	g.retryMaxDelay = 2 * time.Millisecond
	return g, server
}

func geminiBody(text string) string {
	quoted, _ := json.Marshal(text)
	return `{"candidates":[{"content":{"parts":[{"text":` + string(quoted) + `}]}}]}`
}

func TestGeminiClassifyParsesFencedResponse(t *testing.T) {
	payload := "```json\n{\"Captain Blood\": {\"genres\": [\"Action\", \"Adventure\"], \"version\": null}}\n```"

	g, _ := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(geminiBody(payload)))
	})

	results := g.Classify(context.Background(), []string{"Captain Blood (MULTi17) [DODI Repack]"})

	res, ok := results["Captain Blood (MULTi17) [DODI Repack]"]
	require.True(t, ok)
	assert.Equal(t, []string{"Action", "Adventure"}, res.Genres)
	assert.Equal(t, "Captain Blood", res.CleanTitle)
	assert.Empty(t, res.Version)
}

func TestGeminiClassifyKeepsVersion(t *testing.T) {
	payload := `{"Satisfactory": {"genres": ["Simulation"], "version": "Build 10092024"}}`

	g, _ := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geminiBody(payload)))
	})

	results := g.Classify(context.Background(), []string{"Satisfactory Build 10092024"})

	res := results["Satisfactory Build 10092024"]
	assert.Equal(t, []string{"Simulation"}, res.Genres)
	assert.Equal(t, "Satisfactory", res.CleanTitle)
	assert.Equal(t, "Build 10092024", res.Version)
}

func TestGeminiFallbackOnInvalidJSON(t *testing.T) {
	var calls int
	g, _ := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(geminiBody("this is not json at all")))
	})

	results := g.Classify(context.Background(), []string{"Some Game", "Another Game"})

	assert.Equal(t, genericAttempts, calls)
	assert.Equal(t, []string{DefaultGenre}, results["Some Game"].Genres)
	assert.Equal(t, []string{DefaultGenre}, results["Another Game"].Genres)
}

func TestGeminiRateLimitDoesNotConsumeRetryBudget(t *testing.T) {
	payload := `{"Hades": {"genres": ["Action"], "version": null}}`

	var calls int
	g, _ := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			// generic failure after the rate-limit retry: consumes one attempt
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(geminiBody(payload)))
		}
	})

	results := g.Classify(context.Background(), []string{"Hades"})

	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"Action"}, results["Hades"].Genres)
}

func TestGeminiFallbackOnServerError(t *testing.T) {
	g, _ := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	results := g.Classify(context.Background(), []string{"Broken"})
	assert.Equal(t, []string{DefaultGenre}, results["Broken"].Genres)
}

func TestReconcileContainmentMatch(t *testing.T) {
	parsed := map[string]chunkEntry{
		"The Witcher 3: Wild Hunt": {Genres: []string{"RPG", "Open World"}},
	}

	results := reconcile([]string{"The Witcher 3 [FitGirl Repack]"}, parsed)

	res := results["The Witcher 3 [FitGirl Repack]"]
	assert.Equal(t, []string{"RPG", "Open World"}, res.Genres)
	assert.Equal(t, "The Witcher 3: Wild Hunt", res.CleanTitle)
}

func TestReconcileUnmatchedDefaults(t *testing.T) {
	parsed := map[string]chunkEntry{
		"Completely Different": {Genres: []string{"Puzzle"}},
	}

	results := reconcile([]string{"Stardew Valley"}, parsed)
	assert.Equal(t, []string{DefaultGenre}, results["Stardew Valley"].Genres)
}

func TestReconcileCapsGenresAtThree(t *testing.T) {
	parsed := map[string]chunkEntry{
		"Hades": {Genres: []string{"Action", "RPG", "Indie", "Platformer"}},
	}

	results := reconcile([]string{"Hades"}, parsed)
	assert.Len(t, results["Hades"].Genres, 3)
}

func TestChunkEntryLegacyArrayShape(t *testing.T) {
	var parsed map[string]chunkEntry
	err := json.Unmarshal([]byte(`{"Hades": ["Action", "Indie"]}`), &parsed)
	require.NoError(t, err)
	assert.Equal(t, []string{"Action", "Indie"}, parsed["Hades"].Genres)
}

func TestStripFencing(t *testing.T) {
	in := "Here you go:\n```json\n{\"a\": 1}\n```\nthanks"
	assert.Equal(t, `{"a": 1}`, stripFencing(in))
}
