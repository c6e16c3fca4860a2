package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTriviaAPIURL = "https://the-trivia-api.com/api"

// TriviaAPIClient integrates with The Trivia API. The key is optional and
// only raises rate limits.
type TriviaAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewTriviaAPIClient(baseURL, apiKey string, httpClient *http.Client) *TriviaAPIClient {
	if baseURL == "" {
		baseURL = defaultTriviaAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TriviaAPIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type TriviaAPIQuestion struct {
	ID         string   `json:"id"`
	Category   string   `json:"category"`
	Question   string   `json:"question"`
	Difficulty string   `json:"difficulty"`
	Type       string   `json:"type"`
	Correct    string   `json:"correctAnswer"`
	Incorrect  []string `json:"incorrectAnswers"`
}

func (c *TriviaAPIClient) Fetch(ctx context.Context, params FetchParams) ([]TriviaAPIQuestion, error) {
	if params.Amount <= 0 {
		return nil, fmt.Errorf("triviaapi: amount must be positive, got %d", params.Amount)
	}

	values := url.Values{}
	values.Set("limit", strconv.Itoa(params.Amount))
	if params.Category != "" {
		values.Set("categories", params.Category)
	}
	if params.Difficulty != "" {
		values.Set("difficulty", params.Difficulty)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/questions?%s", c.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("triviaapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("triviaapi non-200: %d", resp.StatusCode)
	}

	var payload []TriviaAPIQuestion
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("triviaapi decode: %w", err)
	}
	return payload, nil
}

// Questions fetches a batch in the source-neutral form.
func (c *TriviaAPIClient) Questions(ctx context.Context, params FetchParams) ([]Question, error) {
	batch, err := c.Fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]Question, 0, len(batch))
	for _, q := range batch {
		out = append(out, Question{
			Question:   strings.TrimSpace(q.Question),
			Answer:     strings.TrimSpace(q.Correct),
			Difficulty: q.Difficulty,
			Category:   q.Category,
		})
	}
	return out, nil
}
