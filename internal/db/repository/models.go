package repository

// Category is seeded reference data; the API never mutates it.
type Category struct {
	ID   int64  `gorm:"primaryKey"`
	Type string `gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

// Question is a single trivia entry. Category is a loose reference to
// Category.ID and is not enforced by the schema.
type Question struct {
	ID         int64  `gorm:"primaryKey"`
	Question   string `gorm:"not null"`
	Answer     string `gorm:"not null"`
	Category   int64  `gorm:"not null;index"`
	Difficulty int    `gorm:"not null"`
}

func (Question) TableName() string { return "questions" }
