package store

import (
	"context"
	"sort"
	"sync"

	"elib/pkg/domain"
)

// MemoryStore is an in-process Store for single-instance runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	emails  map[string]string
	books   map[string]domain.Book
	ratings map[string]domain.Rating
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		emails:  make(map[string]string),
		books:   make(map[string]domain.Book),
		ratings: make(map[string]domain.Rating),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := u.Email
	if _, ok := s.emails[key]; ok {
		return ErrDuplicateEmail
	}
	s.users[u.ID] = u
	s.emails[key] = u.ID
	return nil
}

func (s *MemoryStore) HasUserEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.emails[email]
	return ok, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return domain.User{}, false, nil
	}
	return s.users[id], true, nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) SaveBook(_ context.Context, b domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.books[b.ID]; ok {
		b.CreatedAt = prev.CreatedAt
		b.Views = prev.Views
	}
	b.Likes = append([]string{}, b.Likes...)
	b.Author = domain.Author{}
	s.books[b.ID] = b
	return nil
}

func (s *MemoryStore) GetBook(_ context.Context, id string) (domain.Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return domain.Book{}, false, nil
	}
	return s.withAuthor(b), true, nil
}

func (s *MemoryStore) ListBooks(_ context.Context, offset, limit int) ([]domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]domain.Book, 0, len(s.books))
	for _, b := range s.books {
		all = append(all, b)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []domain.Book{}, nil
	}
	end := len(all)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	res := make([]domain.Book, 0, end-offset)
	for _, b := range all[offset:end] {
		res = append(res, s.withAuthor(b))
	}
	return res, nil
}

func (s *MemoryStore) CountBooks(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.books)), nil
}

func (s *MemoryStore) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil
	}
	b.Views++
	s.books[id] = b
	return nil
}

func (s *MemoryStore) DeleteBook(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.books, id)
	return nil
}

func (s *MemoryStore) CreateRating(_ context.Context, r domain.Rating) error {
	if !validRating(r.Rating) {
		return ErrInvalidRating
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[r.ID] = r
	return nil
}

func (s *MemoryStore) DeleteRating(_ context.Context, bookID, ratingID, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratings[ratingID]
	if !ok || r.BookID != bookID || r.UserID != userID {
		return 0, nil
	}
	delete(s.ratings, ratingID)
	return 1, nil
}

func (s *MemoryStore) ListRatingsByBook(_ context.Context, bookID string) ([]domain.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.Rating, 0)
	for _, r := range s.ratings {
		if r.BookID == bookID {
			res = append(res, r)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Rating == res[j].Rating {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].Rating > res[j].Rating
	})
	return res, nil
}

func (s *MemoryStore) ListRatingRowsByAuthor(_ context.Context, authorID string) ([]domain.RatingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.RatingRow, 0)
	for _, r := range s.ratings {
		b, ok := s.books[r.BookID]
		if !ok || b.AuthorID != authorID {
			continue
		}
		row := domain.RatingRow{Rating: r, BookTitle: b.Title, AuthorID: b.AuthorID}
		if u, ok := s.users[r.UserID]; ok {
			row.ReviewerName = u.Name
			row.ReviewerEmail = u.Email
		}
		res = append(res, row)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (s *MemoryStore) withAuthor(b domain.Book) domain.Book {
	b.Likes = append([]string{}, b.Likes...)
	b.Author = domain.Author{ID: b.AuthorID, Name: s.users[b.AuthorID].Name}
	return b
}
