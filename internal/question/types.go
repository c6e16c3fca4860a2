package question

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/gokatarajesh/trivia-api/internal/db/repository"
)

// Question is the transport form of a stored question.
type Question struct {
	ID         int64  `json:"id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Category   int64  `json:"category"`
	Difficulty int    `json:"difficulty"`
}

func format(q repository.Question) Question {
	return Question{
		ID:         q.ID,
		Question:   q.Question,
		Answer:     q.Answer,
		Category:   q.Category,
		Difficulty: q.Difficulty,
	}
}

// Page is one slice of a question listing plus the listing's total size.
type Page struct {
	Questions  []Question
	Total      int
	Categories map[int64]string
}

// FlexInt decodes from a JSON number or from a string of digits, since
// browser forms submit select values as strings.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}

	s := string(raw)
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("invalid integer %s", s)
		}
		s = strings.TrimSpace(unquoted)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", raw)
	}
	*f = FlexInt(n)
	return nil
}

// CreateRequest is the body of POST /questions when it creates a question.
type CreateRequest struct {
	Question   string  `json:"question" validate:"required"`
	Answer     string  `json:"answer" validate:"required"`
	Category   FlexInt `json:"category" validate:"required,gt=0"`
	Difficulty FlexInt `json:"difficulty" validate:"required,min=1,max=5"`
}

func (r *CreateRequest) normalize() {
	r.Question = strings.TrimSpace(r.Question)
	r.Answer = strings.TrimSpace(r.Answer)
}

// SearchRequest is the body of POST /questions when it carries searchTerm.
// An empty term matches every question.
type SearchRequest struct {
	SearchTerm string `json:"searchTerm"`
}

// QuizCategory selects the quiz pool; ID 0 means every category.
type QuizCategory struct {
	ID   FlexInt `json:"id" validate:"min=0"`
	Type string  `json:"type"`
}

// QuizRequest is the body of POST /quizzes.
type QuizRequest struct {
	PreviousQuestions []int64       `json:"previous_questions"`
	QuizCategory      *QuizCategory `json:"quiz_category" validate:"required"`
}
