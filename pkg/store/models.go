package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null;default:user"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type BookModel struct {
	ID           string `gorm:"primaryKey"`
	Title        string `gorm:"not null"`
	AuthorID     string `gorm:"not null;index"`
	Description  string `gorm:"not null"`
	Genre        string `gorm:"not null"`
	CoverImage   string `gorm:"not null"`
	CoverImageID string
	File         *string
	FileID       string
	Views        int                        `gorm:"not null;default:0"`
	Likes        datatypes.JSONSlice[string] `gorm:"not null"`
	CreatedAt    time.Time                  `gorm:"not null;index"`
	UpdatedAt    time.Time                  `gorm:"not null"`
}

type RatingModel struct {
	ID        string    `gorm:"primaryKey"`
	BookID    string    `gorm:"not null;index"`
	UserID    string    `gorm:"not null;index"`
	Rating    int       `gorm:"not null;check:rating_range,rating >= 1 AND rating <= 5"`
	Comment   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// ratingRow is the scan target of the rating/book/user join.
type ratingRow struct {
	ID            string
	BookID        string
	UserID        string
	Rating        int
	Comment       string
	CreatedAt     time.Time
	BookTitle     string
	AuthorID      string
	ReviewerName  string
	ReviewerEmail string
}
