package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hivegames/backend/internal/titles"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-lite:generateContent"

const (
	defaultChunkSize  = 200
	maxCallsPerMinute = 10
	genericAttempts   = 3 // first call plus two retries
)

var errRateLimited = errors.New("gemini: rate limited")

// Gemini classifies titles in batches through the Gemini API. Calls are paced
// by a limiter allowing at most maxCallsPerMinute per rolling window; callers
// block until a slot frees. A 429 response pauses for rateLimitBackoff and
// retries without consuming the generic retry budget.
type Gemini struct {
	apiKey   string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter

	chunkSize        int
	chunkPause       time.Duration
	rateLimitBackoff time.Duration
	retryDelay       time.Duration
	retryMaxDelay    time.Duration
}

func NewGemini(apiKey string) *Gemini {
	return &Gemini{
		apiKey:           apiKey,
		endpoint:         geminiEndpoint,
		client:           &http.Client{Timeout: 2 * time.Minute},
		limiter:          rate.NewLimiter(rate.Every(time.Minute/maxCallsPerMinute), maxCallsPerMinute),
		chunkSize:        defaultChunkSize,
		chunkPause:       3 * time.Second,
		rateLimitBackoff: 70 * time.Second,
		retryDelay:       5 * time.Second,
		retryMaxDelay:    15 * time.Second,
	}
}

func (g *Gemini) Classify(ctx context.Context, rawTitles []string) map[string]Result {
	all := make(map[string]Result, len(rawTitles))

	totalChunks := (len(rawTitles) + g.chunkSize - 1) / g.chunkSize
	for i := 0; i < len(rawTitles); i += g.chunkSize {
		end := i + g.chunkSize
		if end > len(rawTitles) {
			end = len(rawTitles)
		}
		chunk := rawTitles[i:end]

		log.Info().
			Int("chunk", i/g.chunkSize+1).
			Int("chunks", totalChunks).
			Int("titles", len(chunk)).
			Msg("classifying chunk")

		for title, res := range g.classifyChunk(ctx, chunk) {
			all[title] = res
		}

		if end < len(rawTitles) {
			if err := sleepCtx(ctx, g.chunkPause); err != nil {
				for _, title := range rawTitles[end:] {
					all[title] = Result{Genres: []string{DefaultGenre}}
				}
				break
			}
		}
	}

	return all
}

// classifyChunk runs one chunk with a bounded generic retry budget. Exhausting
// the budget degrades every title in the chunk to the default genre.
func (g *Gemini) classifyChunk(ctx context.Context, chunk []string) map[string]Result {
	var parsed map[string]chunkEntry

	err := retry.Do(
		func() error {
			var err error
			parsed, err = g.callChunk(ctx, chunk)
			return err
		},
		retry.Attempts(genericAttempts),
		retry.Delay(g.retryDelay),
		retry.MaxDelay(g.retryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Uint("attempt", n+1).Err(err).Msg("classification call failed, retrying")
		}),
	)
	if err != nil {
		log.Error().Err(err).Int("titles", len(chunk)).Msg("chunk classification failed, using default genre")
		return fallbackResults(chunk)
	}

	return reconcile(chunk, parsed)
}

// callChunk performs a single rate-limited call. HTTP 429 is handled here
// with the long back-off so it never counts against the retry budget.
func (g *Gemini) callChunk(ctx context.Context, chunk []string) (map[string]chunkEntry, error) {
	for {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		parsed, err := g.callOnce(ctx, chunk)
		if errors.Is(err, errRateLimited) {
			log.Warn().Dur("backoff", g.rateLimitBackoff).Msg("rate limit signalled by API, backing off")
			if err := sleepCtx(ctx, g.rateLimitBackoff); err != nil {
				return nil, err
			}
			continue
		}
		return parsed, err
	}
}

func (g *Gemini) callOnce(ctx context.Context, chunk []string) (map[string]chunkEntry, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildPrompt(chunk)}},
		}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"?key="+g.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var gr geminiResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return nil, fmt.Errorf("gemini: decoding response envelope: %w", err)
	}

	text := gr.text()
	if text == "" {
		return nil, errors.New("gemini: empty response")
	}

	var parsed map[string]chunkEntry
	if err := json.Unmarshal([]byte(stripFencing(text)), &parsed); err != nil {
		return nil, fmt.Errorf("gemini: response is not valid JSON: %w", err)
	}

	return parsed, nil
}

// reconcile maps the AI's cleaned-title keys back to the original raw titles.
// Exact match on the locally cleaned title wins; otherwise containment in
// either direction, since the model may normalize slightly differently.
// Unmatched titles get the default genre.
func reconcile(chunk []string, parsed map[string]chunkEntry) map[string]Result {
	results := make(map[string]Result, len(chunk))

	for _, raw := range chunk {
		ourClean, _ := titles.Clean(raw)

		key, entry, ok := matchEntry(ourClean, parsed)
		if !ok || len(entry.Genres) == 0 {
			results[raw] = Result{Genres: []string{DefaultGenre}}
			continue
		}

		genres := entry.Genres
		if len(genres) > 3 {
			genres = genres[:3]
		}
		results[raw] = Result{
			Genres:     genres,
			CleanTitle: key,
			Version:    entry.Version,
		}
	}

	return results
}

func matchEntry(ourClean string, parsed map[string]chunkEntry) (string, chunkEntry, bool) {
	if ourClean == "" {
		return "", chunkEntry{}, false
	}

	for key, entry := range parsed {
		if strings.EqualFold(key, ourClean) {
			return key, entry, true
		}
	}

	ourLower := strings.ToLower(ourClean)
	for key, entry := range parsed {
		keyLower := strings.ToLower(key)
		if strings.Contains(keyLower, ourLower) || strings.Contains(ourLower, keyLower) {
			return key, entry, true
		}
	}

	return "", chunkEntry{}, false
}

func fallbackResults(chunk []string) map[string]Result {
	results := make(map[string]Result, len(chunk))
	for _, title := range chunk {
		results[title] = Result{Genres: []string{DefaultGenre}}
	}
	return results
}

// stripFencing removes markdown code fences and clamps the text to its
// outermost braces so stray prose around the JSON object does not break
// parsing.
func stripFencing(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first == -1 || last == -1 || first >= last {
		return cleaned
	}
	return cleaned[first : last+1]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// chunkEntry tolerates both the requested object shape and the model's
// occasional bare genre array. Unrecognized shapes leave Genres empty rather
// than failing the whole chunk.
type chunkEntry struct {
	Genres  []string
	Version string
}

func (e *chunkEntry) UnmarshalJSON(data []byte) error {
	var obj struct {
		Genres  []string `json:"genres"`
		Version *string  `json:"version"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Genres != nil {
		e.Genres = obj.Genres
		if obj.Version != nil {
			e.Version = *obj.Version
		}
		return nil
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		e.Genres = arr
	}
	return nil
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

var allowedGenres = []string{
	"Action", "Adventure", "RPG", "Strategy", "Simulation", "Racing", "Sports",
	"Puzzle", "Horror", "Platformer", "Survival", "Indie", "Multiplayer",
	"Sandbox", "Open World", "Shooter", "Fighting", "MMORPG", "Card Game",
	"Educational", "Stealth", "Tower Defense", "Battle Royale",
	"Real-time Strategy", "Turn-based Strategy",
}

func buildPrompt(chunk []string) string {
	var b strings.Builder

	b.WriteString("Analyze the following game release titles. Clean each title of extra markers ")
	b.WriteString("(languages, repack tags, file sizes, DLC information) but KEEP the version/build information. ")
	b.WriteString("For each game return the 1-3 best matching genres from this list: ")
	b.WriteString(strings.Join(allowedGenres, ", "))
	b.WriteString(".\n\n")
	b.WriteString("IMPORTANT: respond with strictly valid JSON and nothing else, mapping each cleaned title to an object:\n")
	b.WriteString(`{"Cleaned Title": {"genres": ["Genre1", "Genre2"], "version": "1.0.2"}}` + "\n")
	b.WriteString("Use null for version when the title carries none.\n\n")
	b.WriteString("Cleaning examples:\n")
	b.WriteString("- \"Captain Blood (MULTi17) [DODI Repack]\" -> \"Captain Blood\" (version: null)\n")
	b.WriteString("- \"Satisfactory Build 10092024\" -> \"Satisfactory\" (version: \"Build 10092024\")\n")
	b.WriteString("- \"Age of Empires II: Definitive Edition (v101.103.12349.0 + All DLCs + MULTi17)\" -> \"Age of Empires II: Definitive Edition\" (version: \"v101.103.12349.0\")\n\n")
	b.WriteString("Titles to process:\n")

	for i, title := range chunk {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
	}

	return b.String()
}
