package question

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-api/internal/db/repository"
	"github.com/gokatarajesh/trivia-api/internal/events"
	"github.com/gokatarajesh/trivia-api/internal/metrics"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListCategories(ctx context.Context) ([]repository.Category, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]repository.Category)
	return rows, args.Error(1)
}

func (m *mockStore) ListQuestions(ctx context.Context) ([]repository.Question, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]repository.Question)
	return rows, args.Error(1)
}

func (m *mockStore) FindByID(ctx context.Context, id int64) (repository.Question, error) {
	args := m.Called(ctx, id)
	row, _ := args.Get(0).(repository.Question)
	return row, args.Error(1)
}

func (m *mockStore) FindByCategory(ctx context.Context, categoryID int64) ([]repository.Question, error) {
	args := m.Called(ctx, categoryID)
	rows, _ := args.Get(0).([]repository.Question)
	return rows, args.Error(1)
}

func (m *mockStore) SearchByText(ctx context.Context, term string) ([]repository.Question, error) {
	args := m.Called(ctx, term)
	rows, _ := args.Get(0).([]repository.Question)
	return rows, args.Error(1)
}

func (m *mockStore) Insert(ctx context.Context, q *repository.Question) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *mockStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

var anyCtx = mock.Anything

func bank(n int, category int64) []repository.Question {
	out := make([]repository.Question, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, repository.Question{
			ID:         int64(i),
			Question:   fmt.Sprintf("Question %d?", i),
			Answer:     fmt.Sprintf("Answer %d", i),
			Category:   category,
			Difficulty: 1 + i%5,
		})
	}
	return out
}

func seededCategories() []repository.Category {
	return []repository.Category{
		{ID: 1, Type: "Science"},
		{ID: 2, Type: "Art"},
		{ID: 3, Type: "Geography"},
	}
}

func newTestService(store Store, pub Publisher, opts Options) *Service {
	return NewService(store, pub, zerolog.Nop(), opts)
}

func TestServiceDefaults(t *testing.T) {
	svc := newTestService(&mockStore{}, nil, Options{})
	assert.Equal(t, defaultPageSize, svc.pageSize)
	assert.Equal(t, defaultStoreTimeout, svc.timeout)
	assert.NotNil(t, svc.pick)
}

func TestListQuestionsPaginates(t *testing.T) {
	store := &mockStore{}
	store.On("ListQuestions", anyCtx).Return(bank(25, 1), nil)
	store.On("ListCategories", anyCtx).Return(seededCategories(), nil)
	svc := newTestService(store, nil, Options{})

	tests := []struct {
		page    int
		wantLen int
		firstID int64
	}{
		{page: 1, wantLen: 10, firstID: 1},
		{page: 2, wantLen: 10, firstID: 11},
		{page: 3, wantLen: 5, firstID: 21},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			got, err := svc.ListQuestions(context.Background(), tt.page)
			require.NoError(t, err)
			require.Len(t, got.Questions, tt.wantLen)
			assert.Equal(t, tt.firstID, got.Questions[0].ID)
			assert.Equal(t, 25, got.Total)
			assert.Equal(t, "Geography", got.Categories[3])
		})
	}

	_, err := svc.ListQuestions(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListQuestionsRejectsBadPage(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(store, nil, Options{})

	_, err := svc.ListQuestions(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	store.AssertNotCalled(t, "ListQuestions", anyCtx)
}

func TestListQuestionsHonoursPageSize(t *testing.T) {
	store := &mockStore{}
	store.On("ListQuestions", anyCtx).Return(bank(7, 1), nil)
	store.On("ListCategories", anyCtx).Return(seededCategories(), nil)
	svc := newTestService(store, nil, Options{PageSize: 3})

	got, err := svc.ListQuestions(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, int64(7), got.Questions[0].ID)
}

func TestListQuestionsStoreFailure(t *testing.T) {
	store := &mockStore{}
	store.On("ListQuestions", anyCtx).Return(nil, errors.New("connection reset"))
	svc := newTestService(store, nil, Options{})

	_, err := svc.ListQuestions(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.False(t, IsValidationError(err))
}

func TestCategoriesAreStable(t *testing.T) {
	store := &mockStore{}
	store.On("ListCategories", anyCtx).Return(seededCategories(), nil)
	svc := newTestService(store, nil, Options{})

	first, err := svc.Categories(context.Background())
	require.NoError(t, err)
	second, err := svc.Categories(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, map[int64]string{1: "Science", 2: "Art", 3: "Geography"}, first)
}

func TestDeleteMissingQuestionIsUnprocessable(t *testing.T) {
	store := &mockStore{}
	store.On("FindByID", anyCtx, int64(99)).Return(nil, repository.ErrNotFound)
	pub := &recordingPublisher{}
	svc := newTestService(store, pub, Options{})

	err := svc.Delete(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUnprocessable)
	store.AssertNotCalled(t, "Delete", anyCtx, int64(99))
	assert.Empty(t, pub.published())
}

func TestDeleteTwice(t *testing.T) {
	store := &mockStore{}
	store.On("FindByID", anyCtx, int64(5)).Return(repository.Question{ID: 5}, nil).Once()
	store.On("Delete", anyCtx, int64(5)).Return(nil).Once()
	store.On("FindByID", anyCtx, int64(5)).Return(nil, repository.ErrNotFound)
	pub := &recordingPublisher{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := newTestService(store, pub, Options{Metrics: m})

	require.NoError(t, svc.Delete(context.Background(), 5))
	assert.ErrorIs(t, svc.Delete(context.Background(), 5), ErrUnprocessable)

	published := pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeQuestionDeleted, published[0].Type)
	assert.Equal(t, int64(5), published[0].QuestionID)
	assert.False(t, published[0].OccurredAt.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(events.TypeQuestionDeleted, "ok")))
	store.AssertExpectations(t)
}

func TestDeleteRaceIsUnprocessable(t *testing.T) {
	store := &mockStore{}
	store.On("FindByID", anyCtx, int64(5)).Return(repository.Question{ID: 5}, nil)
	store.On("Delete", anyCtx, int64(5)).Return(fmt.Errorf("delete question: %w", repository.ErrNotFound))
	svc := newTestService(store, nil, Options{})

	assert.ErrorIs(t, svc.Delete(context.Background(), 5), ErrUnprocessable)
}

func TestCreateStoresAndPublishes(t *testing.T) {
	store := &mockStore{}
	store.On("Insert", anyCtx, mock.MatchedBy(func(q *repository.Question) bool {
		return q.Question == "Who painted the Mona Lisa?" && q.Answer == "Leonardo da Vinci" &&
			q.Category == 2 && q.Difficulty == 3
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*repository.Question).ID = 42
	}).Return(nil)
	pub := &recordingPublisher{}
	svc := newTestService(store, pub, Options{})

	created, err := svc.Create(context.Background(), CreateRequest{
		Question:   "  Who painted the Mona Lisa? ",
		Answer:     "Leonardo da Vinci",
		Category:   2,
		Difficulty: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)

	published := pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeQuestionCreated, published[0].Type)
	assert.JSONEq(t,
		`{"id":42,"question":"Who painted the Mona Lisa?","answer":"Leonardo da Vinci","category":2,"difficulty":3}`,
		string(published[0].Question))
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   CreateRequest
		field string
	}{
		{name: "blank question", req: CreateRequest{Question: "   ", Answer: "a", Category: 1, Difficulty: 1}, field: "question"},
		{name: "missing answer", req: CreateRequest{Question: "q", Category: 1, Difficulty: 1}, field: "answer"},
		{name: "missing category", req: CreateRequest{Question: "q", Answer: "a", Difficulty: 1}, field: "category"},
		{name: "negative category", req: CreateRequest{Question: "q", Answer: "a", Category: -2, Difficulty: 1}, field: "category"},
		{name: "difficulty too high", req: CreateRequest{Question: "q", Answer: "a", Category: 1, Difficulty: 6}, field: "difficulty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			svc := newTestService(store, nil, Options{})

			_, err := svc.Create(context.Background(), tt.req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			store.AssertNotCalled(t, "Insert", anyCtx, mock.Anything)
		})
	}
}

func TestCreateStoreFailureIsUnprocessable(t *testing.T) {
	store := &mockStore{}
	store.On("Insert", anyCtx, mock.Anything).Return(errors.New("value too long"))
	pub := &recordingPublisher{}
	svc := newTestService(store, pub, Options{})

	_, err := svc.Create(context.Background(), CreateRequest{Question: "q", Answer: "a", Category: 1, Difficulty: 1})
	assert.ErrorIs(t, err, ErrUnprocessable)
	assert.Empty(t, pub.published())
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	store := &mockStore{}
	store.On("Insert", anyCtx, mock.Anything).Return(nil)
	pub := &recordingPublisher{err: errors.New("redis down")}
	m := metrics.New(prometheus.NewRegistry())
	svc := newTestService(store, pub, Options{Metrics: m})

	_, err := svc.Create(context.Background(), CreateRequest{Question: "q", Answer: "a", Category: 1, Difficulty: 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(events.TypeQuestionCreated, "error")))
}

func TestSearch(t *testing.T) {
	store := &mockStore{}
	store.On("SearchByText", anyCtx, "TITLE").Return(bank(12, 4), nil)
	store.On("SearchByText", anyCtx, "xyzzy").Return([]repository.Question{}, nil)
	svc := newTestService(store, nil, Options{})

	got, err := svc.Search(context.Background(), "TITLE", 2)
	require.NoError(t, err)
	assert.Len(t, got.Questions, 2)
	assert.Equal(t, 12, got.Total)

	_, err = svc.Search(context.Background(), "TITLE", 3)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Search(context.Background(), "xyzzy", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestByCategory(t *testing.T) {
	store := &mockStore{}
	store.On("FindByCategory", anyCtx, int64(3)).Return(bank(4, 3), nil)
	store.On("FindByCategory", anyCtx, int64(1000)).Return(nil, nil)
	svc := newTestService(store, nil, Options{})

	got, err := svc.ByCategory(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.Len(t, got.Questions, 4)
	assert.Equal(t, 4, got.Total)
	for _, q := range got.Questions {
		assert.Equal(t, int64(3), q.Category)
	}

	_, err = svc.ByCategory(context.Background(), 1000, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNextQuizQuestionExcludesPrevious(t *testing.T) {
	store := &mockStore{}
	store.On("FindByCategory", anyCtx, int64(2)).Return(bank(3, 2), nil)
	m := metrics.New(prometheus.NewRegistry())
	var poolSizes []int
	svc := newTestService(store, nil, Options{
		Metrics: m,
		Pick: func(n int) int {
			poolSizes = append(poolSizes, n)
			return 0
		},
	})

	got, err := svc.NextQuizQuestion(context.Background(), QuizRequest{
		PreviousQuestions: []int64{1, 2},
		QuizCategory:      &QuizCategory{ID: 2, Type: "Art"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, []int{1}, poolSizes)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuizQuestionsServed.WithLabelValues("category")))

	_, err = svc.NextQuizQuestion(context.Background(), QuizRequest{
		PreviousQuestions: []int64{1, 2, 3},
		QuizCategory:      &QuizCategory{ID: 2},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNextQuizQuestionAllCategories(t *testing.T) {
	mixed := []repository.Question{
		{ID: 1, Category: 1}, {ID: 2, Category: 2}, {ID: 3, Category: 3}, {ID: 4, Category: 6},
	}
	store := &mockStore{}
	store.On("ListQuestions", anyCtx).Return(mixed, nil)

	seen := map[int64]bool{}
	for i := range mixed {
		idx := i
		svc := newTestService(store, nil, Options{Pick: func(int) int { return idx }})
		got, err := svc.NextQuizQuestion(context.Background(), QuizRequest{QuizCategory: &QuizCategory{ID: 0}})
		require.NoError(t, err)
		seen[got.Category] = true
	}

	assert.Len(t, seen, 4)
	store.AssertNotCalled(t, "FindByCategory", anyCtx, mock.Anything)
}

func TestNextQuizQuestionRequiresCategory(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(store, nil, Options{})

	_, err := svc.NextQuizQuestion(context.Background(), QuizRequest{PreviousQuestions: []int64{1}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quiz_category", ve.Field)
}

func TestPaginate(t *testing.T) {
	rows := bank(3, 1)
	assert.Len(t, paginate(rows, 1, 2), 2)
	assert.Len(t, paginate(rows, 2, 2), 1)
	assert.Nil(t, paginate(rows, 3, 2))
	assert.Nil(t, paginate(nil, 1, 10))
	assert.Nil(t, paginate(rows, 0, 2))
}

func TestPaginateHugePage(t *testing.T) {
	rows := bank(25, 1)
	assert.NotPanics(t, func() {
		assert.Nil(t, paginate(rows, math.MaxInt, 10))
		assert.Nil(t, paginate(rows, math.MaxInt/2+2, 10))
		assert.Nil(t, paginate(rows, 922337203685477582, 10))
	})
	assert.Len(t, paginate(rows, 3, 10), 5)
}
