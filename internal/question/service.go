package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-api/internal/db/repository"
	"github.com/gokatarajesh/trivia-api/internal/events"
	"github.com/gokatarajesh/trivia-api/internal/metrics"
)

const (
	defaultPageSize     = 10
	defaultStoreTimeout = 5 * time.Second
)

// Store is the question bank the service reads and mutates.
type Store interface {
	ListCategories(ctx context.Context) ([]repository.Category, error)
	ListQuestions(ctx context.Context) ([]repository.Question, error)
	FindByID(ctx context.Context, id int64) (repository.Question, error)
	FindByCategory(ctx context.Context, categoryID int64) ([]repository.Question, error)
	SearchByText(ctx context.Context, term string) ([]repository.Question, error)
	Insert(ctx context.Context, q *repository.Question) error
	Delete(ctx context.Context, id int64) error
}

// Publisher receives question change events. Failures are logged, never returned to clients.
type Publisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

// Options tunes the service; zero values fall back to defaults.
type Options struct {
	PageSize     int
	StoreTimeout time.Duration
	// Pick returns a uniformly random index in [0, n).
	Pick    func(n int) int
	Metrics *metrics.Metrics
}

// Service implements the question bank operations on top of a Store.
type Service struct {
	store     Store
	publisher Publisher
	logger    zerolog.Logger
	pageSize  int
	timeout   time.Duration
	pick      func(n int) int
	metrics   *metrics.Metrics
	validator *requestValidator
}

func NewService(store Store, publisher Publisher, logger zerolog.Logger, opts Options) *Service {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	timeout := opts.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	pick := opts.Pick
	if pick == nil {
		pick = rand.IntN
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger.With().Str("component", "question_service").Logger(),
		pageSize:  pageSize,
		timeout:   timeout,
		pick:      pick,
		metrics:   opts.Metrics,
		validator: newRequestValidator(),
	}
}

// Categories returns the id -> type mapping of every category.
func (s *Service) Categories(ctx context.Context) (map[int64]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.categories(ctx)
}

func (s *Service) categories(ctx context.Context) (map[int64]string, error) {
	rows, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(rows))
	for _, c := range rows {
		out[c.ID] = c.Type
	}
	return out, nil
}

// ListQuestions returns one page of the whole bank. Total is the size of the
// bank, not of the page.
func (s *Service) ListQuestions(ctx context.Context, page int) (Page, error) {
	if err := s.checkPage(page); err != nil {
		return Page{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	all, err := s.store.ListQuestions(ctx)
	if err != nil {
		return Page{}, err
	}
	current := paginate(all, page, s.pageSize)
	if len(current) == 0 {
		return Page{}, fmt.Errorf("questions page %d: %w", page, ErrNotFound)
	}

	categories, err := s.categories(ctx)
	if err != nil {
		return Page{}, err
	}

	return Page{Questions: current, Total: len(all), Categories: categories}, nil
}

// Search returns one page of the questions whose text contains term, ignoring case.
func (s *Service) Search(ctx context.Context, term string, page int) (Page, error) {
	if err := s.checkPage(page); err != nil {
		return Page{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	matches, err := s.store.SearchByText(ctx, term)
	if err != nil {
		return Page{}, err
	}
	if len(matches) == 0 {
		return Page{}, fmt.Errorf("search %q: %w", term, ErrNotFound)
	}
	current := paginate(matches, page, s.pageSize)
	if len(current) == 0 {
		return Page{}, fmt.Errorf("search %q page %d: %w", term, page, ErrNotFound)
	}
	return Page{Questions: current, Total: len(matches)}, nil
}

// ByCategory returns one page of the questions filed under categoryID.
func (s *Service) ByCategory(ctx context.Context, categoryID int64, page int) (Page, error) {
	if err := s.checkPage(page); err != nil {
		return Page{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	matches, err := s.store.FindByCategory(ctx, categoryID)
	if err != nil {
		return Page{}, err
	}
	if len(matches) == 0 {
		return Page{}, fmt.Errorf("category %d: %w", categoryID, ErrNotFound)
	}
	current := paginate(matches, page, s.pageSize)
	if len(current) == 0 {
		return Page{}, fmt.Errorf("category %d page %d: %w", categoryID, page, ErrNotFound)
	}
	return Page{Questions: current, Total: len(matches)}, nil
}

// Delete removes a question. A missing id is ErrUnprocessable, not ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.store.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("delete question %d: %w", id, ErrUnprocessable)
		}
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Deleted concurrently between lookup and delete.
			return fmt.Errorf("delete question %d: %w", id, ErrUnprocessable)
		}
		return err
	}

	s.publish(ctx, events.Event{Type: events.TypeQuestionDeleted, QuestionID: id})
	return nil
}

// Create stores a new question. Schema failures are a *ValidationError; any
// store failure is ErrUnprocessable.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Question, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return Question{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := repository.Question{
		Question:   req.Question,
		Answer:     req.Answer,
		Category:   int64(req.Category),
		Difficulty: int(req.Difficulty),
	}
	if err := s.store.Insert(ctx, &row); err != nil {
		s.logger.Warn().Err(err).Msg("question insert rejected")
		return Question{}, fmt.Errorf("%w: %v", ErrUnprocessable, err)
	}

	created := format(row)
	payload, err := json.Marshal(created)
	if err == nil {
		s.publish(ctx, events.Event{Type: events.TypeQuestionCreated, QuestionID: created.ID, Question: payload})
	}
	return created, nil
}

// NextQuizQuestion draws one question uniformly at random from the requested
// category (0 for all), skipping the ids already asked.
func (s *Service) NextQuizQuestion(ctx context.Context, req QuizRequest) (Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return Question{}, err
	}
	categoryID := int64(req.QuizCategory.ID)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		candidates []repository.Question
		err        error
		scope      = "category"
	)
	if categoryID == 0 {
		scope = "all"
		candidates, err = s.store.ListQuestions(ctx)
	} else {
		candidates, err = s.store.FindByCategory(ctx, categoryID)
	}
	if err != nil {
		return Question{}, err
	}

	asked := make(map[int64]struct{}, len(req.PreviousQuestions))
	for _, id := range req.PreviousQuestions {
		asked[id] = struct{}{}
	}

	pool := make([]repository.Question, 0, len(candidates))
	for _, q := range candidates {
		if _, seen := asked[q.ID]; !seen {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		return Question{}, fmt.Errorf("quiz pool for category %d: %w", categoryID, ErrNotFound)
	}

	if s.metrics != nil {
		s.metrics.QuizQuestionsServed.WithLabelValues(scope).Inc()
	}
	return format(pool[s.pick(len(pool))]), nil
}

func (s *Service) checkPage(page int) error {
	if page < 1 {
		return newValidationError("page", "must be a positive integer")
	}
	return nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	evt.OccurredAt = time.Now().UTC()

	result := "ok"
	if err := s.publisher.Publish(ctx, evt); err != nil {
		result = "error"
		s.logger.Warn().Err(err).Str("type", evt.Type).Int64("question_id", evt.QuestionID).Msg("question event publish failed")
	}
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(evt.Type, result).Inc()
	}
}

func paginate(rows []repository.Question, page, size int) []Question {
	// Bound the page before multiplying so a huge ?page= cannot overflow.
	if page < 1 || size < 1 || len(rows) == 0 || page-1 > (len(rows)-1)/size {
		return nil
	}
	start := (page - 1) * size
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}

	out := make([]Question, 0, end-start)
	for _, q := range rows[start:end] {
		out = append(out, format(q))
	}
	return out
}
