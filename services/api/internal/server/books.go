package server

import (
	"errors"
	"mime/multipart"
	"net/http"

	"elib/internal/util"
	"elib/pkg/domain"
	"elib/pkg/storage"
	"elib/services/api/internal/app"
)

const (
	coverField = "coverImage"
	fileField  = "file"
)

type bookResponse struct {
	Message string      `json:"message"`
	Book    domain.Book `json:"book"`
}

type bookListResponse struct {
	Message    string        `json:"message"`
	Books      []domain.Book `json:"books"`
	Pagination domain.Page   `json:"pagination"`
}

type likeResponse struct {
	Message    string      `json:"message"`
	LikesCount int         `json:"likesCount"`
	Book       domain.Book `json:"book"`
}

// bookForm is the parsed multipart body of a create or update request.
type bookForm struct {
	Title       string
	Genre       string
	Description string
	Cover       *storage.StagedFile
	File        *storage.StagedFile
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	books, page, err := s.app.ListBooks(r.Context(), queryInt(r, "page", 1), queryInt(r, "limit", 10))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if books == nil {
		books = []domain.Book{}
	}
	writeJSON(w, http.StatusOK, bookListResponse{
		Message:    "Books listed successfully",
		Books:      books,
		Pagination: page,
	})
}

// handleBookRoutes dispatches everything under /api/books/.
func (s *Server) handleBookRoutes(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/books/")
	switch {
	case len(parts) == 0:
		s.handleListBooks(w, r)
	case len(parts) == 1 && parts[0] == "add":
		if r.Method != http.MethodPost {
			s.methodNotAllowed(w, r)
			return
		}
		s.authenticated(s.handleCreateBook).ServeHTTP(w, r)
	case len(parts) == 2 && parts[0] == "update":
		if r.Method != http.MethodPatch {
			s.methodNotAllowed(w, r)
			return
		}
		bookID := parts[1]
		s.authenticated(func(w http.ResponseWriter, r *http.Request, caller Caller) {
			s.handleUpdateBook(w, r, caller, bookID)
		}).ServeHTTP(w, r)
	case len(parts) == 1:
		bookID := parts[0]
		switch r.Method {
		case http.MethodGet:
			s.handleGetBook(w, r, bookID)
		case http.MethodDelete:
			s.authenticated(func(w http.ResponseWriter, r *http.Request, caller Caller) {
				s.handleDeleteBook(w, r, caller, bookID)
			}).ServeHTTP(w, r)
		default:
			s.methodNotAllowed(w, r)
		}
	case len(parts) == 2 && parts[1] == "like":
		if r.Method != http.MethodPatch {
			s.methodNotAllowed(w, r)
			return
		}
		bookID := parts[0]
		s.authenticated(func(w http.ResponseWriter, r *http.Request, caller Caller) {
			s.handleToggleLike(w, r, caller, bookID)
		}).ServeHTTP(w, r)
	default:
		s.notFound(w, r)
	}
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request, caller Caller) {
	form, err := s.readBookForm(w, r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	book, err := s.app.CreateBook(r.Context(), caller.ID, app.CreateBookInput{
		Title:       form.Title,
		Genre:       form.Genre,
		Description: form.Description,
		Cover:       form.Cover,
		File:        form.File,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	util.LoggerFromContext(r.Context()).Info("book_created", "book_id", book.ID)
	writeJSON(w, http.StatusCreated, bookResponse{Message: "Book created successfully", Book: book})
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, caller Caller, bookID string) {
	form, err := s.readBookForm(w, r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	book, err := s.app.UpdateBook(r.Context(), caller.ID, bookID, app.UpdateBookInput{
		Title:       form.Title,
		Genre:       form.Genre,
		Description: form.Description,
		Cover:       form.Cover,
		File:        form.File,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookResponse{Message: "Book updated successfully", Book: book})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request, bookID string) {
	book, err := s.app.GetBookDetails(r.Context(), bookID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookResponse{Message: "Book details fetched successfully", Book: book})
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, caller Caller, bookID string) {
	if err := s.app.DeleteBook(r.Context(), caller.ID, bookID); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	util.LoggerFromContext(r.Context()).Info("book_deleted", "book_id", bookID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Book deleted successfully"})
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request, caller Caller, bookID string) {
	res, err := s.app.ToggleLike(r.Context(), caller.ID, bookID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	msg := "Book unliked successfully"
	if res.Liked {
		msg = "Book liked successfully"
	}
	writeJSON(w, http.StatusOK, likeResponse{Message: msg, LikesCount: res.LikesCount, Book: res.Book})
}

// readBookForm parses the multipart body and stages its files on disk.
// On error nothing is left staged.
func (s *Server) readBookForm(w http.ResponseWriter, r *http.Request) (bookForm, error) {
	// Two files plus text fields.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(maxMultipartMem); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return bookForm{}, &app.Error{Kind: app.ErrValidation, Message: "File too large", Err: err}
		}
		return bookForm{}, &app.Error{Kind: app.ErrValidation, Message: "Invalid multipart body", Err: err}
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := bookForm{
		Title:       r.FormValue("title"),
		Genre:       r.FormValue("genre"),
		Description: r.FormValue("description"),
	}
	cover, err := s.stageField(r.MultipartForm, coverField)
	if err != nil {
		return bookForm{}, err
	}
	file, err := s.stageField(r.MultipartForm, fileField)
	if err != nil {
		if cover != nil {
			_ = storage.RemoveStaged(cover.Path)
		}
		return bookForm{}, err
	}
	form.Cover = cover
	form.File = file
	return form, nil
}

// stageField copies the first file of field into staging; nil when absent.
func (s *Server) stageField(form *multipart.Form, field string) (*storage.StagedFile, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	staged, err := s.staging.Stage(headers[0])
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) {
			return nil, &app.Error{Kind: app.ErrValidation, Message: "File too large", Err: err}
		}
		return nil, &app.Error{Kind: app.ErrUploadFailed, Message: "Failed to stage upload.", Err: err}
	}
	return &staged, nil
}
