package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenTDBFetchSendsFilters(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response_code":0,"results":[
			{"category":"General Knowledge","type":"multiple","difficulty":"easy",
			 "question":"What does &quot;HTTP&quot; stand for?","correct_answer":"HyperText Transfer Protocol",
			 "incorrect_answers":["a","b","c"]}]}`))
	}))
	defer srv.Close()

	client := NewOpenTDBClient(srv.URL, srv.Client())
	results, err := client.Fetch(context.Background(), FetchParams{Amount: 1, Category: "9", Difficulty: "easy"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "/api.php", got.URL.Path)
	assert.Equal(t, "1", got.URL.Query().Get("amount"))
	assert.Equal(t, "9", got.URL.Query().Get("category"))
	assert.Equal(t, "easy", got.URL.Query().Get("difficulty"))
	assert.Empty(t, got.URL.Query().Get("type"))

	assert.Equal(t, "What does &quot;HTTP&quot; stand for?", results[0].Question)
	assert.Len(t, results[0].IncorrectAnswers, 3)
}

func TestOpenTDBFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "upstream failure", status: http.StatusBadGateway, body: `{}`, wantErr: "non-200: 502"},
		{name: "no results", status: http.StatusOK, body: `{"response_code":1,"results":[]}`, wantErr: "response code 1"},
		{name: "garbage", status: http.StatusOK, body: `<html>`, wantErr: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenTDBClient(srv.URL, nil).Fetch(context.Background(), FetchParams{Amount: 5})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenTDBFetchRejectsNonPositiveAmount(t *testing.T) {
	_, err := NewOpenTDBClient("", nil).Fetch(context.Background(), FetchParams{})
	assert.Error(t, err)
}

func TestOpenTDBQuestionsUnescapesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response_code":0,"results":[
			{"category":"Entertainment: Film","difficulty":"hard",
			 "question":"Which film says &#039;I&#039;ll be back&#039;?","correct_answer":"The Terminator &amp; sequels"}]}`))
	}))
	defer srv.Close()

	got, err := NewOpenTDBClient(srv.URL, nil).Questions(context.Background(), FetchParams{Amount: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Question{
		Question:   "Which film says 'I'll be back'?",
		Answer:     "The Terminator & sequels",
		Difficulty: "hard",
		Category:   "Entertainment: Film",
	}, got[0])
}
