package question

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-api/internal/question/external"
)

// Source is an upstream trivia provider.
type Source interface {
	Questions(ctx context.Context, params external.FetchParams) ([]external.Question, error)
}

// ImportRequest describes one import batch.
type ImportRequest struct {
	Amount int
	// SourceCategory is the upstream category key; empty takes any.
	SourceCategory string
	// Difficulty filters the upstream batch (easy, medium or hard); empty takes any.
	Difficulty string
	// Category is the local category id every imported question is filed under.
	Category int64
}

// ImportResult counts what happened to a batch.
type ImportResult struct {
	Fetched  int
	Inserted int
	Failed   int
}

// Importer pulls questions from an upstream source into the bank.
type Importer struct {
	source Source
	svc    *Service
	logger zerolog.Logger
}

func NewImporter(source Source, svc *Service, logger zerolog.Logger) *Importer {
	return &Importer{
		source: source,
		svc:    svc,
		logger: logger.With().Str("component", "question_importer").Logger(),
	}
}

// Import fetches one batch and stores each question. A question that cannot be
// stored is logged and counted; only a failed fetch aborts the batch.
func (i *Importer) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	if req.Category <= 0 {
		return ImportResult{}, newValidationError("category", "must be greater than 0")
	}

	batch, err := i.source.Questions(ctx, external.FetchParams{
		Amount:     req.Amount,
		Category:   req.SourceCategory,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("fetch question batch: %w", err)
	}

	result := ImportResult{Fetched: len(batch)}
	for _, q := range batch {
		created, err := i.svc.Create(ctx, CreateRequest{
			Question:   q.Question,
			Answer:     q.Answer,
			Category:   FlexInt(req.Category),
			Difficulty: FlexInt(difficultyLevel(q.Difficulty)),
		})
		if err != nil {
			result.Failed++
			if IsValidationError(err) {
				i.logger.Debug().Err(err).Str("question", q.Question).Msg("import rejected invalid question")
				continue
			}
			i.logger.Warn().Err(err).Str("question", q.Question).Msg("import skipped question")
			continue
		}
		result.Inserted++
		i.logger.Debug().Int64("question_id", created.ID).Msg("imported question")
	}

	i.logger.Info().
		Int("fetched", result.Fetched).
		Int("inserted", result.Inserted).
		Int("failed", result.Failed).
		Msg("import finished")
	return result, nil
}

func difficultyLevel(d string) int {
	switch strings.ToLower(d) {
	case "medium":
		return 2
	case "hard":
		return 3
	default:
		return 1
	}
}
