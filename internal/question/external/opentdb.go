// Package external talks to public trivia sources used to seed the question bank.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultOpenTDBURL = "https://opentdb.com"

// OpenTDBClient fetches questions from the Open Trivia DB (no API key).
type OpenTDBClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenTDBClient(baseURL string, httpClient *http.Client) *OpenTDBClient {
	if baseURL == "" {
		baseURL = defaultOpenTDBURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OpenTDBClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// OpenTDBQuestion is one result as served by the API. Text fields are HTML-entity encoded.
type OpenTDBQuestion struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type openTDBResponse struct {
	ResponseCode int               `json:"response_code"`
	Results      []OpenTDBQuestion `json:"results"`
}

// Fetch retrieves one batch of questions.
func (c *OpenTDBClient) Fetch(ctx context.Context, params FetchParams) ([]OpenTDBQuestion, error) {
	if params.Amount <= 0 {
		return nil, fmt.Errorf("opentdb: amount must be positive, got %d", params.Amount)
	}

	values := url.Values{}
	values.Set("amount", strconv.Itoa(params.Amount))
	if params.Category != "" {
		values.Set("category", params.Category)
	}
	if params.Difficulty != "" {
		values.Set("difficulty", params.Difficulty)
	}
	if params.Type != "" {
		values.Set("type", params.Type)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api.php?%s", c.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opentdb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("opentdb non-200: %d", resp.StatusCode)
	}

	var payload openTDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("opentdb decode: %w", err)
	}
	if payload.ResponseCode != 0 {
		return nil, fmt.Errorf("opentdb response code %d", payload.ResponseCode)
	}
	return payload.Results, nil
}

// Questions fetches a batch and decodes the HTML entities OpenTDB embeds in its text.
func (c *OpenTDBClient) Questions(ctx context.Context, params FetchParams) ([]Question, error) {
	batch, err := c.Fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]Question, 0, len(batch))
	for _, q := range batch {
		out = append(out, Question{
			Question:   html.UnescapeString(q.Question),
			Answer:     html.UnescapeString(q.CorrectAnswer),
			Difficulty: q.Difficulty,
			Category:   html.UnescapeString(q.Category),
		})
	}
	return out, nil
}
