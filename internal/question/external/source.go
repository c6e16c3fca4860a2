package external

// Question is a source-neutral question with plain text fields.
type Question struct {
	Question   string
	Answer     string
	Difficulty string
	Category   string
}

// FetchParams narrows an upstream request. Zero values leave the filter off.
// Category is the upstream category key: a numeric id for OpenTDB, a slug
// such as "science" for The Trivia API.
type FetchParams struct {
	Amount     int
	Category   string
	Difficulty string
	Type       string
}
