package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/trivia-api/internal/config"
	"github.com/gokatarajesh/trivia-api/internal/db"
	"github.com/gokatarajesh/trivia-api/internal/db/repository"
	"github.com/gokatarajesh/trivia-api/internal/question"
	"github.com/gokatarajesh/trivia-api/internal/question/external"
)

func main() {
	var (
		source            = flag.String("source", "opentdb", "Upstream provider: opentdb or triviaapi")
		amount            = flag.Int("amount", 10, "Number of questions to fetch (OpenTDB caps a batch at 50)")
		opentdbCategory   = flag.Int("opentdb-category", 0, "OpenTDB category id; 0 takes any")
		triviaAPICategory = flag.String("triviaapi-category", "", "The Trivia API category slug, e.g. science; empty takes any")
		category          = flag.Int64("category", 0, "Local category id to file the questions under")
		difficulty        = flag.String("difficulty", "", "easy, medium or hard; empty takes any")
		baseURL           = flag.String("source-url", "", "Override the provider base URL")
		envFile           = flag.String("env", "configs/.env", "Optional dotenv file loaded before reading PG_* variables")
	)
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", "trivia-importer").Logger()

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug().Err(err).Str("file", *envFile).Msg("no dotenv file loaded")
	}

	var (
		upstream       question.Source
		sourceCategory string
	)
	switch *source {
	case "opentdb":
		upstream = external.NewOpenTDBClient(*baseURL, nil)
		if *opentdbCategory > 0 {
			sourceCategory = strconv.Itoa(*opentdbCategory)
		}
	case "triviaapi":
		upstream = external.NewTriviaAPIClient(*baseURL, os.Getenv("TRIVIA_API_KEY"), nil)
		sourceCategory = *triviaAPICategory
	default:
		log.Fatal().Str("source", *source).Msg("unknown source. Use: opentdb or triviaapi")
	}

	pg, err := config.LoadPostgres()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, sqlDB, err := db.Connect(ctx, pg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	defer sqlDB.Close()

	gdb, err := repository.Open(sqlDB, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open question store")
	}

	svc := question.NewService(repository.NewQuestionRepository(gdb), nil, log.Logger, question.Options{})
	importer := question.NewImporter(upstream, svc, log.Logger)

	result, err := importer.Import(ctx, question.ImportRequest{
		Amount:         *amount,
		SourceCategory: sourceCategory,
		Difficulty:     *difficulty,
		Category:       *category,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}
	if result.Failed > 0 {
		log.Warn().Int("failed", result.Failed).Msg("some questions were not imported")
	}
}
