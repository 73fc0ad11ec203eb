package app

import (
	"context"

	"elib/pkg/domain"
)

// AverageRating returns the mean rating over all books of an author.
// No ratings yields 0/0.
func (a *App) AverageRating(ctx context.Context, authorID string) (domain.RatingSummary, error) {
	rows, err := a.store.ListRatingRowsByAuthor(ctx, authorID)
	if err != nil {
		return domain.RatingSummary{}, persistence("Failed to get average rating.", err)
	}
	return summarize(rows), nil
}

// HighestAvgRatedBook returns the author's book with the best mean rating.
// Exact ties resolve to whichever book the store lists first.
func (a *App) HighestAvgRatedBook(ctx context.Context, authorID string) (domain.BookAverage, error) {
	rows, err := a.store.ListRatingRowsByAuthor(ctx, authorID)
	if err != nil {
		return domain.BookAverage{}, persistence("Failed to get highest average rated book.", err)
	}
	return highestAverage(rows), nil
}

// MostRecentRating returns the latest rating on the author's books, or nil.
func (a *App) MostRecentRating(ctx context.Context, authorID string) (*domain.RecentRating, error) {
	rows, err := a.store.ListRatingRowsByAuthor(ctx, authorID)
	if err != nil {
		return nil, persistence("Failed to get most recent rating.", err)
	}
	return mostRecent(rows), nil
}

func summarize(rows []domain.RatingRow) domain.RatingSummary {
	if len(rows) == 0 {
		return domain.RatingSummary{}
	}
	sum := 0
	for _, r := range rows {
		sum += r.Rating.Rating
	}
	return domain.RatingSummary{
		AverageRating: float64(sum) / float64(len(rows)),
		TotalRatings:  len(rows),
	}
}

func highestAverage(rows []domain.RatingRow) domain.BookAverage {
	type acc struct{ sum, n int }
	order := make([]string, 0)
	byBook := make(map[string]*acc)
	for _, r := range rows {
		b, ok := byBook[r.BookID]
		if !ok {
			b = &acc{}
			byBook[r.BookID] = b
			order = append(order, r.BookID)
		}
		b.sum += r.Rating.Rating
		b.n++
	}
	best := domain.BookAverage{}
	for _, id := range order {
		b := byBook[id]
		mean := float64(b.sum) / float64(b.n)
		if best.BookID == "" || mean > best.AverageRating {
			best = domain.BookAverage{BookID: id, AverageRating: mean}
		}
	}
	return best
}

func mostRecent(rows []domain.RatingRow) *domain.RecentRating {
	var latest *domain.RatingRow
	for i := range rows {
		if latest == nil || rows[i].CreatedAt.After(latest.CreatedAt) {
			latest = &rows[i]
		}
	}
	if latest == nil {
		return nil
	}
	return &domain.RecentRating{
		BookTitle:     latest.BookTitle,
		Rating:        latest.Rating.Rating,
		Comment:       latest.Comment,
		CreatedAt:     latest.CreatedAt,
		ReviewerName:  latest.ReviewerName,
		ReviewerEmail: latest.ReviewerEmail,
	}
}
