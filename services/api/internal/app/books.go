package app

import (
	"context"
	"strings"
	"time"

	"elib/internal/util"
	"elib/pkg/domain"
	"elib/pkg/storage"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// CreateBookInput carries a validated create request. Cover is required, File optional.
type CreateBookInput struct {
	Title       string
	Genre       string
	Description string
	Cover       *storage.StagedFile
	File        *storage.StagedFile
}

// UpdateBookInput carries a partial update. Blank strings and nil files keep prior values.
type UpdateBookInput struct {
	Title       string
	Genre       string
	Description string
	Cover       *storage.StagedFile
	File        *storage.StagedFile
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked      bool
	LikesCount int
	Book       domain.Book
}

// CreateBook uploads the cover (and optional file) then persists a new book.
// Staged files are removed on every exit path.
func (a *App) CreateBook(ctx context.Context, callerID string, in CreateBookInput) (domain.Book, error) {
	defer discardStaged(ctx, in.Cover, in.File)

	if util.Blank(in.Title) || util.Blank(in.Genre) || util.Blank(in.Description) {
		return domain.Book{}, validation("Title, genre and description are required.")
	}
	if in.Cover == nil {
		return domain.Book{}, validation("Cover image is required.")
	}
	if callerID == "" {
		return domain.Book{}, unauthorized("Unauthorized: User ID missing in request.", nil)
	}

	cover, err := a.assets.Transfer(ctx, in.Cover.Path, in.Cover.Filename, domain.CategoryImage, in.Cover.ContentType)
	if err != nil {
		return domain.Book{}, uploadFailed(err)
	}
	// A failed body upload leaves the cover in storage.
	var body *domain.RemoteAsset
	if in.File != nil {
		asset, err := a.assets.Transfer(ctx, in.File.Path, in.File.Filename, domain.CategoryRawDocument, in.File.ContentType)
		if err != nil {
			return domain.Book{}, uploadFailed(err)
		}
		body = &asset
	}

	now := time.Now().UTC()
	book := domain.Book{
		ID:           util.NewID(),
		Title:        in.Title,
		AuthorID:     callerID,
		Description:  in.Description,
		Genre:        in.Genre,
		CoverImage:   cover.URL,
		CoverImageID: cover.RemoteID,
		Likes:        []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if body != nil {
		url := body.URL
		book.File = &url
		book.FileID = body.RemoteID
	}
	if err := a.store.SaveBook(ctx, book); err != nil {
		return domain.Book{}, persistence("Failed to create book.", err)
	}
	return a.reload(ctx, book)
}

// UpdateBook applies a partial update by the book's author. New assets are
// uploaded first; superseded ones are removed only after the update is saved.
func (a *App) UpdateBook(ctx context.Context, callerID, bookID string, in UpdateBookInput) (domain.Book, error) {
	defer discardStaged(ctx, in.Cover, in.File)

	book, err := a.ownedBook(ctx, callerID, bookID)
	if err != nil {
		return domain.Book{}, err
	}

	var uploaded []string
	rollback := func() {
		for _, id := range uploaded {
			a.removeRemote(ctx, id)
		}
	}
	var stale []string

	if in.Cover != nil {
		cover, err := a.assets.Transfer(ctx, in.Cover.Path, in.Cover.Filename, domain.CategoryImage, in.Cover.ContentType)
		if err != nil {
			return domain.Book{}, uploadFailed(err)
		}
		uploaded = append(uploaded, cover.RemoteID)
		stale = append(stale, storage.ResolveRemoteID(book.CoverImageID, book.CoverImage, domain.CategoryImage))
		book.CoverImage = cover.URL
		book.CoverImageID = cover.RemoteID
	}
	if in.File != nil {
		body, err := a.assets.Transfer(ctx, in.File.Path, in.File.Filename, domain.CategoryRawDocument, in.File.ContentType)
		if err != nil {
			rollback()
			return domain.Book{}, uploadFailed(err)
		}
		uploaded = append(uploaded, body.RemoteID)
		if book.File != nil {
			stale = append(stale, storage.ResolveRemoteID(book.FileID, *book.File, domain.CategoryRawDocument))
		}
		url := body.URL
		book.File = &url
		book.FileID = body.RemoteID
	}

	if !util.Blank(in.Title) {
		book.Title = in.Title
	}
	if !util.Blank(in.Genre) {
		book.Genre = in.Genre
	}
	if !util.Blank(in.Description) {
		book.Description = in.Description
	}
	book.UpdatedAt = time.Now().UTC()

	if err := a.store.SaveBook(ctx, book); err != nil {
		rollback()
		return domain.Book{}, persistence("Failed to update book.", err)
	}
	for _, id := range stale {
		a.removeRemote(ctx, id)
	}
	return a.reload(ctx, book)
}

// ListBooks returns one page of books, newest first. Non-positive page or
// pageSize fall back to 1 and 10.
func (a *App) ListBooks(ctx context.Context, page, pageSize int) ([]domain.Book, domain.Page, error) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	total, err := a.store.CountBooks(ctx)
	if err != nil {
		return nil, domain.Page{}, persistence("Failed to list books.", err)
	}
	books, err := a.store.ListBooks(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, domain.Page{}, persistence("Failed to list books.", err)
	}
	return books, domain.Page{
		TotalBooks:  total,
		CurrentPage: page,
		TotalPages:  int((total + int64(pageSize) - 1) / int64(pageSize)),
		PageSize:    pageSize,
	}, nil
}

// GetBookDetails returns a book and counts the read.
func (a *App) GetBookDetails(ctx context.Context, bookID string) (domain.Book, error) {
	if strings.TrimSpace(bookID) == "" {
		return domain.Book{}, validation("Book ID is required.")
	}
	book, ok, err := a.store.GetBook(ctx, bookID)
	if err != nil {
		return domain.Book{}, persistence("Failed to get book details.", err)
	}
	if !ok {
		return domain.Book{}, notFound("Book not found.")
	}
	if err := a.store.IncrementViews(ctx, bookID); err != nil {
		return domain.Book{}, persistence("Failed to get book details.", err)
	}
	book.Views++
	return book, nil
}

// DeleteBook removes the remote cover and file, then the record.
// Remote failures are logged and do not stop the delete.
func (a *App) DeleteBook(ctx context.Context, callerID, bookID string) error {
	book, err := a.ownedBook(ctx, callerID, bookID)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		a.removeRemote(ctx, storage.ResolveRemoteID(book.CoverImageID, book.CoverImage, domain.CategoryImage))
		return nil
	})
	if book.File != nil {
		g.Go(func() error {
			a.removeRemote(ctx, storage.ResolveRemoteID(book.FileID, *book.File, domain.CategoryRawDocument))
			return nil
		})
	}
	_ = g.Wait()

	if err := a.store.DeleteBook(ctx, book.ID); err != nil {
		return persistence("Failed to delete book.", err)
	}
	return nil
}

// ToggleLike adds the caller to the likes set, or removes them if present.
// Read-modify-write without locking: concurrent toggles by one user may race.
func (a *App) ToggleLike(ctx context.Context, callerID, bookID string) (LikeResult, error) {
	if strings.TrimSpace(bookID) == "" {
		return LikeResult{}, validation("Book ID is required.")
	}
	if !util.ValidID(bookID) {
		return LikeResult{}, validation("Invalid Book ID format.")
	}
	book, ok, err := a.store.GetBook(ctx, bookID)
	if err != nil {
		return LikeResult{}, persistence("Failed to update like count.", err)
	}
	if !ok {
		return LikeResult{}, notFound("Book not found.")
	}

	liked := !book.LikedBy(callerID)
	if liked {
		book.Likes = append(book.Likes, callerID)
	} else {
		kept := book.Likes[:0]
		for _, id := range book.Likes {
			if id != callerID {
				kept = append(kept, id)
			}
		}
		book.Likes = kept
	}
	book.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveBook(ctx, book); err != nil {
		return LikeResult{}, persistence("Failed to update like count.", err)
	}
	saved, _ := a.reload(ctx, book)
	return LikeResult{Liked: liked, LikesCount: len(book.Likes), Book: saved}, nil
}

func (a *App) ownedBook(ctx context.Context, callerID, bookID string) (domain.Book, error) {
	if strings.TrimSpace(bookID) == "" {
		return domain.Book{}, validation("Book ID is required.")
	}
	book, ok, err := a.store.GetBook(ctx, bookID)
	if err != nil {
		return domain.Book{}, persistence("Failed to load book.", err)
	}
	if !ok {
		return domain.Book{}, notFound("Book not found.")
	}
	if book.AuthorID != callerID {
		return domain.Book{}, forbidden("Forbidden: You are not the author of this book.")
	}
	return book, nil
}

// reload fetches the saved book so the author is resolved.
func (a *App) reload(ctx context.Context, book domain.Book) (domain.Book, error) {
	saved, ok, err := a.store.GetBook(ctx, book.ID)
	if err != nil || !ok {
		book.Author = domain.Author{ID: book.AuthorID}
		return book, nil
	}
	return saved, nil
}
