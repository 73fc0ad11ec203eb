package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"elib/internal/util"
	"elib/pkg/domain"
	"elib/pkg/store"
)

// AddRating stores a rating for an existing book. The 1..5 range is enforced
// by the store, so an out-of-range value surfaces as a persistence error.
func (a *App) AddRating(ctx context.Context, callerID, bookID string, rating *int, comment string) (domain.Rating, error) {
	if strings.TrimSpace(bookID) == "" || rating == nil || util.Blank(comment) {
		return domain.Rating{}, validation("Book ID, rating and comment are required.")
	}
	if _, ok, err := a.store.GetBook(ctx, bookID); err != nil {
		return domain.Rating{}, persistence("Failed to add rating.", err)
	} else if !ok {
		return domain.Rating{}, notFound("Book not found.")
	}
	r := domain.Rating{
		ID:        util.NewID(),
		BookID:    bookID,
		UserID:    callerID,
		Rating:    *rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateRating(ctx, r); err != nil {
		if errors.Is(err, store.ErrInvalidRating) {
			return domain.Rating{}, persistence("Rating validation failed: rating must be between 1 and 5.", err)
		}
		return domain.Rating{}, persistence("Failed to add rating.", err)
	}
	return r, nil
}

// DeleteRating removes the caller's rating. Zero matches is still a success.
func (a *App) DeleteRating(ctx context.Context, callerID, bookID, ratingID string) error {
	n, err := a.store.DeleteRating(ctx, bookID, ratingID, callerID)
	if err != nil {
		return persistence("Failed to delete rating.", err)
	}
	util.LoggerFromContext(ctx).Debug("rating_delete", "rating_id", ratingID, "deleted", n)
	return nil
}

// ListRatingsByBook returns ratings of a book, highest first.
func (a *App) ListRatingsByBook(ctx context.Context, bookID string) ([]domain.Rating, error) {
	ratings, err := a.store.ListRatingsByBook(ctx, bookID)
	if err != nil {
		return nil, persistence("Failed to list ratings.", err)
	}
	return ratings, nil
}

// ListRatingsByAuthor returns ratings across an author's books, newest first,
// annotated with reviewer and book title.
func (a *App) ListRatingsByAuthor(ctx context.Context, authorID string) ([]domain.RatingRow, error) {
	rows, err := a.store.ListRatingRowsByAuthor(ctx, authorID)
	if err != nil {
		return nil, persistence("Failed to list ratings.", err)
	}
	return rows, nil
}
