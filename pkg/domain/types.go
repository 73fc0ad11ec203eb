package domain

import "time"

type UserRole string

const (
	RoleUser   UserRole = "user"
	RoleAuthor UserRole = "author"
)

// AssetCategory selects the storage folder and resource type of an upload.
type AssetCategory string

const (
	CategoryImage       AssetCategory = "image"
	CategoryRawDocument AssetCategory = "raw-document"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Author is the public projection of a User attached to books.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Book struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	AuthorID     string    `json:"-"`
	Author       Author    `json:"author"`
	Description  string    `json:"description"`
	Genre        string    `json:"genre"`
	CoverImage   string    `json:"coverImage"`
	CoverImageID string    `json:"-"`
	File         *string   `json:"file"`
	FileID       string    `json:"-"`
	Views        int       `json:"views"`
	Likes        []string  `json:"likes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// LikedBy reports whether userID is in the likes set.
func (b Book) LikedBy(userID string) bool {
	for _, id := range b.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

type Rating struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book"`
	UserID    string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// RatingRow is a rating joined with its book and reviewer.
type RatingRow struct {
	Rating
	BookTitle     string `json:"bookTitle"`
	AuthorID      string `json:"-"`
	ReviewerName  string `json:"reviewerName"`
	ReviewerEmail string `json:"reviewerEmail"`
}

// RemoteAsset is an object that lives in object storage.
type RemoteAsset struct {
	URL      string `json:"url"`
	RemoteID string `json:"remoteId"`
}

type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int     `json:"totalRatings"`
}

type BookAverage struct {
	BookID        string  `json:"highestAvgRatedBook"`
	AverageRating float64 `json:"averageRating"`
}

// RecentRating is the projection returned by the most-recent-rating insight.
type RecentRating struct {
	BookTitle     string    `json:"bookTitle"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"createdAt"`
	ReviewerName  string    `json:"reviewerName"`
	ReviewerEmail string    `json:"reviewerEmail"`
}

// Page describes one slice of a paginated listing.
type Page struct {
	TotalBooks  int64 `json:"totalBooks"`
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	PageSize    int   `json:"pageSize"`
}
