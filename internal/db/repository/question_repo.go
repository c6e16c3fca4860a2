package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup or delete matches no row.
var ErrNotFound = errors.New("record not found")

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// QuestionRepository is the gorm-backed question store.
type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// ListCategories returns every category ordered by id.
func (r *QuestionRepository) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := r.db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListQuestions returns every question ordered by id.
func (r *QuestionRepository) ListQuestions(ctx context.Context) ([]Question, error) {
	var questions []Question
	if err := r.db.WithContext(ctx).Order("id").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// FindByID fetches one question or ErrNotFound.
func (r *QuestionRepository) FindByID(ctx context.Context, id int64) (Question, error) {
	var q Question
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Question{}, ErrNotFound
	}
	if err != nil {
		return Question{}, fmt.Errorf("find question %d: %w", id, err)
	}
	return q, nil
}

// FindByCategory returns the questions of one category ordered by id.
func (r *QuestionRepository) FindByCategory(ctx context.Context, categoryID int64) ([]Question, error) {
	var questions []Question
	if err := r.db.WithContext(ctx).Where("category = ?", categoryID).Order("id").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("find questions of category %d: %w", categoryID, err)
	}
	return questions, nil
}

// SearchByText matches term as a literal, case-insensitive substring of the question text.
func (r *QuestionRepository) SearchByText(ctx context.Context, term string) ([]Question, error) {
	pattern := "%" + likeEscaper.Replace(term) + "%"

	var questions []Question
	if err := r.db.WithContext(ctx).Where("question ILIKE ?", pattern).Order("id").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("search questions: %w", err)
	}
	return questions, nil
}

// Insert persists q and sets its store-assigned id.
func (r *QuestionRepository) Insert(ctx context.Context, q *Question) error {
	if err := r.db.WithContext(ctx).Create(q).Error; err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// Delete removes the question with id, or returns ErrNotFound when nothing was deleted.
func (r *QuestionRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Question{})
	if res.Error != nil {
		return fmt.Errorf("delete question %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
