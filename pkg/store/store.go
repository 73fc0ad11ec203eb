package store

import (
	"context"
	"errors"
	"time"

	"elib/pkg/domain"
)

var (
	// ErrDuplicateEmail is returned when a user with the same email already exists.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrInvalidRating is returned when a rating value violates the 1..5 constraint.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Store defines persistence operations for users, books, and ratings.
type Store interface {
	// users
	CreateUser(ctx context.Context, u domain.User) error
	HasUserEmail(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)

	// books
	SaveBook(ctx context.Context, b domain.Book) error
	GetBook(ctx context.Context, id string) (domain.Book, bool, error)
	ListBooks(ctx context.Context, offset, limit int) ([]domain.Book, error)
	CountBooks(ctx context.Context) (int64, error)
	IncrementViews(ctx context.Context, id string) error
	DeleteBook(ctx context.Context, id string) error

	// ratings
	CreateRating(ctx context.Context, r domain.Rating) error
	DeleteRating(ctx context.Context, bookID, ratingID, userID string) (int64, error)
	ListRatingsByBook(ctx context.Context, bookID string) ([]domain.Rating, error)
	ListRatingRowsByAuthor(ctx context.Context, authorID string) ([]domain.RatingRow, error)
}

// TokenRevoker tracks revoked token ids until expiry.
type TokenRevoker interface {
	Revoke(tokenID string, ttl time.Duration) error
	IsRevoked(tokenID string) (bool, error)
}

func validRating(v int) bool {
	return v >= 1 && v <= 5
}
