package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/use-agent/eduminer/grade"
	"github.com/use-agent/eduminer/metrics"
	"github.com/use-agent/eduminer/models"
)

// scoringFailedMessage is the only message clients see for scoring errors.
const scoringFailedMessage = "failed to fetch relevance scores"

const (
	minScore = 1
	maxScore = 10
)

const systemPrompt = `You are an intelligent evaluator that assigns a relevance score (1-10) to a list of educational resources based on:
1. How well they match the user's query.
2. How complete the data is (title, description, link, image, grade, and type).
3. Whether the content is suitable for the specified grade.

- If an item is completely unrelated, assign a low score (1-3).
- If an item is somewhat related but lacks key details, assign a moderate score (4-6).
- If an item is highly relevant and well-structured, assign a high score (7-10).

### Example of Irrelevant Data:
- Query: "volcano"
- Example Irrelevant Item: { "title": "Cooking with Fire", "description": "A guide to cooking techniques over open flames." }

### Expected Output Format:
Return only a JSON object with an "items" array holding every input item, in the same order, each with an added integer "relevance_score":
{
  "items": [
    {
      "title": "...",
      "description": "...",
      "link": "...",
      "image": "...",
      "grade": "...",
      "type": "...",
      "source": "...",
      "relevance_score": 5
    }
  ]
}`

// Chatter sends one chat exchange. *Client implements it.
type Chatter interface {
	Chat(ctx context.Context, params ChatParams) (*ChatResult, error)
}

// Scorer assigns LLM relevance scores to scraped items.
type Scorer struct {
	chat Chatter
}

// NewScorer creates a scorer backed by chat.
func NewScorer(chat Chatter) *Scorer {
	return &Scorer{chat: chat}
}

// Score returns items annotated with a relevance score in [1,10], in input
// order. Item fields always come from the input; the model only supplies
// scores. Any transport or validation problem fails the whole call.
func (s *Scorer) Score(ctx context.Context, query string, g grade.Token, items []models.ScrapedItem) ([]models.ScoredItem, error) {
	if len(items) == 0 {
		return []models.ScoredItem{}, nil
	}

	start := time.Now()
	scored, err := s.score(ctx, query, g, items)
	metrics.RecordScoring(err == nil)
	if err != nil {
		slog.Error("relevance scoring failed",
			"items", len(items),
			"duration", time.Since(start),
			"error", err,
			"request_id", models.RequestIDFrom(ctx),
		)
		return nil, scoringError(err)
	}
	return scored, nil
}

func (s *Scorer) score(ctx context.Context, query string, g grade.Token, items []models.ScrapedItem) ([]models.ScoredItem, error) {
	user, err := userPrompt(query, g, items)
	if err != nil {
		return nil, err
	}

	res, err := s.chat.Chat(ctx, ChatParams{System: systemPrompt, User: user, JSON: true})
	if err != nil {
		return nil, err
	}
	slog.Debug("relevance scoring completed",
		"items", len(items),
		"prompt_tokens", res.Usage.PromptTokens,
		"completion_tokens", res.Usage.CompletionTokens,
	)

	scores, err := parseScores([]byte(res.Content), len(items))
	if err != nil {
		return nil, err
	}

	out := make([]models.ScoredItem, len(items))
	for i, it := range items {
		out[i] = models.ScoredItem{ScrapedItem: it, RelevanceScore: scores[i]}
	}
	return out, nil
}

func userPrompt(query string, g grade.Token, items []models.ScrapedItem) (string, error) {
	list, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	return fmt.Sprintf(`User search query: %q
Target grade level: %q

Scraped items:
%s

Return the same items, in the same order, each with an additional field "relevance_score" (integer 1-10).`,
		query, g.String(), list), nil
}

// parseScores reads the model output, either a bare array or an object
// wrapping one array, and returns one score per expected item.
func parseScores(content []byte, want int) ([]int, error) {
	entries, err := scoredEntries(content)
	if err != nil {
		return nil, err
	}
	if len(entries) != want {
		return nil, fmt.Errorf("LLM returned %d items, want %d", len(entries), want)
	}

	scores := make([]int, len(entries))
	for i, raw := range entries {
		var entry struct {
			RelevanceScore *float64 `json:"relevance_score"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if entry.RelevanceScore == nil {
			return nil, fmt.Errorf("item %d: missing relevance_score", i)
		}
		scores[i] = clampScore(*entry.RelevanceScore)
	}
	return scores, nil
}

func scoredEntries(content []byte) ([]json.RawMessage, error) {
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return nil, errors.New("empty LLM output")
	}

	var entries []json.RawMessage
	if content[0] == '[' {
		if err := json.Unmarshal(content, &entries); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		return entries, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(content, &obj); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if raw, ok := obj["items"]; ok {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		return entries, nil
	}

	// Accept any single array-valued key the model chose to use.
	var found []json.RawMessage
	arrays := 0
	for _, raw := range obj {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			continue
		}
		var arr []json.RawMessage
		if json.Unmarshal(raw, &arr) == nil {
			arrays++
			found = arr
		}
	}
	if arrays != 1 {
		return nil, fmt.Errorf("expected one array in LLM output, found %d", arrays)
	}
	return found, nil
}

// clampScore rounds v into [minScore, maxScore]. It clamps before the int
// conversion, which is undefined for out-of-range floats.
func clampScore(v float64) int {
	return int(math.Round(math.Max(minScore, math.Min(maxScore, v))))
}

// scoringError keeps the LLM auth and rate-limit codes and hides details.
func scoringError(err error) *models.ScrapeError {
	code := models.ErrCodeScoringFailure
	var se *models.ScrapeError
	if errors.As(err, &se) {
		switch se.Code {
		case models.ErrCodeLLMAuthFailure, models.ErrCodeLLMRateLimited:
			code = se.Code
		}
	}
	return models.NewScrapeError(code, scoringFailedMessage, err)
}
