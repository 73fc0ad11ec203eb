package server

import (
	"encoding/json"
	"math"
	"net/http"

	"elib/pkg/domain"
	"elib/services/api/internal/app"
)

// rateRequest takes the rating as a JSON number or a numeric string.
type rateRequest struct {
	Rating  json.Number `json:"rating"`
	Comment string      `json:"comment"`
}

// score converts the submitted rating. A missing rating yields nil so the
// required-field check reports it; the 1..5 range is left to the store.
func (req rateRequest) score() (*int, error) {
	if req.Rating == "" {
		return nil, nil
	}
	f, err := req.Rating.Float64()
	if err != nil || f != math.Trunc(f) {
		return nil, &app.Error{Kind: app.ErrValidation, Message: "Rating must be a whole number.", Err: err}
	}
	f = math.Max(math.MinInt32, math.Min(math.MaxInt32, f))
	v := int(f)
	return &v, nil
}

type rateResponse struct {
	Message string        `json:"message"`
	Rating  domain.Rating `json:"rating"`
}

type authorRatingsResponse struct {
	Ratings      []domain.RatingRow `json:"ratings"`
	TotalRatings int                `json:"totalRatings"`
}

type averageResponse struct {
	Message string `json:"message"`
	domain.RatingSummary
}

type highestResponse struct {
	Message string `json:"message"`
	domain.BookAverage
}

type recentResponse struct {
	Message      string               `json:"message"`
	RecentRating *domain.RecentRating `json:"recentRating"`
}

// handleRatingRoutes dispatches everything under /api/rate/.
func (s *Server) handleRatingRoutes(w http.ResponseWriter, r *http.Request, caller Caller) {
	parts := splitPath(r.URL.Path, "/api/rate/")
	switch {
	case len(parts) == 2 && parts[0] == "book" && r.Method == http.MethodGet:
		s.handleBookRatings(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "author" && r.Method == http.MethodGet:
		s.handleAuthorRatings(w, r, parts[1])
	case len(parts) == 1:
		if r.Method != http.MethodPost {
			s.methodNotAllowed(w, r)
			return
		}
		s.handleAddRating(w, r, caller, parts[0])
	case len(parts) == 2:
		if r.Method != http.MethodDelete {
			s.methodNotAllowed(w, r)
			return
		}
		s.handleDeleteRating(w, r, caller, parts[0], parts[1])
	default:
		s.notFound(w, r)
	}
}

func (s *Server) handleAddRating(w http.ResponseWriter, r *http.Request, caller Caller, bookID string) {
	var req rateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	score, err := req.score()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	rating, err := s.app.AddRating(r.Context(), caller.ID, bookID, score, req.Comment)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rateResponse{Message: "Rating added successfully", Rating: rating})
}

func (s *Server) handleDeleteRating(w http.ResponseWriter, r *http.Request, caller Caller, bookID, ratingID string) {
	if err := s.app.DeleteRating(r.Context(), caller.ID, bookID, ratingID); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Rating deleted successfully"})
}

func (s *Server) handleBookRatings(w http.ResponseWriter, r *http.Request, bookID string) {
	ratings, err := s.app.ListRatingsByBook(r.Context(), bookID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if ratings == nil {
		ratings = []domain.Rating{}
	}
	writeJSON(w, http.StatusOK, ratings)
}

func (s *Server) handleAuthorRatings(w http.ResponseWriter, r *http.Request, authorID string) {
	rows, err := s.app.ListRatingsByAuthor(r.Context(), authorID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.RatingRow{}
	}
	writeJSON(w, http.StatusOK, authorRatingsResponse{Ratings: rows, TotalRatings: len(rows)})
}

// handleInsightRoutes serves the per-author aggregates under /api/insight/.
func (s *Server) handleInsightRoutes(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/insight/")
	if len(parts) != 2 {
		s.notFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	authorID := parts[1]
	switch parts[0] {
	case "averageRating":
		summary, err := s.app.AverageRating(r.Context(), authorID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, averageResponse{Message: "Average rating fetched successfully", RatingSummary: summary})
	// heighestRatedBook is the published path; highestRatedBook is an alias.
	case "heighestRatedBook", "highestRatedBook":
		best, err := s.app.HighestAvgRatedBook(r.Context(), authorID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, highestResponse{Message: "Highest average rated book fetched successfully", BookAverage: best})
	case "recentRating":
		recent, err := s.app.MostRecentRating(r.Context(), authorID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, recentResponse{Message: "Most recent rating fetched successfully", RecentRating: recent})
	default:
		s.notFound(w, r)
	}
}
