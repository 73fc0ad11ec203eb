package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"elib/pkg/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const migrateLockID int64 = 51061907

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the Postgres DB and runs auto-migrations under an advisory lock.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := openGorm(postgres.Open(dsn))
	if err != nil {
		return nil, err
	}
	if err := withMigrationLock(db, migrate); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// NewGormStoreWithDialector opens any GORM dialector and migrates without locking.
// Used for single-process databases such as SQLite.
func NewGormStoreWithDialector(dialector gorm.Dialector) (*GormStore, error) {
	db, err := openGorm(dialector)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func openGorm(dialector gorm.Dialector) (*gorm.DB, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserModel{}, &BookModel{}, &RatingModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser inserts a new user; a taken email yields ErrDuplicateEmail.
func (s *GormStore) CreateUser(ctx context.Context, u domain.User) error {
	model := userToModel(u)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveBook stores or updates a book. Views are only written on insert;
// IncrementViews owns the counter afterwards.
func (s *GormStore) SaveBook(ctx context.Context, b domain.Book) error {
	model := bookToModel(b)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "genre", "cover_image", "cover_image_id",
			"file", "file_id", "likes", "updated_at",
		}),
	}).Create(&model).Error
}

// GetBook retrieves a book with its author resolved.
func (s *GormStore) GetBook(ctx context.Context, id string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	books, err := s.withAuthors(ctx, []BookModel{model})
	if err != nil {
		return domain.Book{}, false, err
	}
	return books[0], true, nil
}

// ListBooks returns one page of books, newest first.
func (s *GormStore) ListBooks(ctx context.Context, offset, limit int) ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, models)
}

// CountBooks returns number of books.
func (s *GormStore) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&BookModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementViews bumps the view counter in a single statement.
func (s *GormStore) IncrementViews(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&BookModel{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// DeleteBook removes a book record. Ratings of the book are kept.
func (s *GormStore) DeleteBook(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&BookModel{}, "id = ?", id).Error
}

// CreateRating inserts a rating after enforcing the 1..5 range.
func (s *GormStore) CreateRating(ctx context.Context, r domain.Rating) error {
	if !validRating(r.Rating) {
		return ErrInvalidRating
	}
	model := ratingToModel(r)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrCheckConstraintViolated) {
			return ErrInvalidRating
		}
		return err
	}
	return nil
}

// DeleteRating removes the rating matching all three ids and reports rows affected.
func (s *GormStore) DeleteRating(ctx context.Context, bookID, ratingID, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&RatingModel{}, "id = ? AND book_id = ? AND user_id = ?", ratingID, bookID, userID)
	return res.RowsAffected, res.Error
}

// ListRatingsByBook returns ratings of a book, highest first.
func (s *GormStore) ListRatingsByBook(ctx context.Context, bookID string) ([]domain.Rating, error) {
	var models []RatingModel
	if err := s.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("rating DESC").
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Rating, 0, len(models))
	for _, m := range models {
		res = append(res, ratingFromModel(m))
	}
	return res, nil
}

// ListRatingRowsByAuthor joins ratings to books and reviewers for one author, newest first.
func (s *GormStore) ListRatingRowsByAuthor(ctx context.Context, authorID string) ([]domain.RatingRow, error) {
	var rows []ratingRow
	if err := s.db.WithContext(ctx).
		Table("rating_models AS r").
		Select(`r.id, r.book_id, r.user_id, r.rating, r.comment, r.created_at,
			b.title AS book_title, b.author_id AS author_id,
			COALESCE(u.name, '') AS reviewer_name, COALESCE(u.email, '') AS reviewer_email`).
		Joins("JOIN book_models AS b ON b.id = r.book_id").
		Joins("LEFT JOIN user_models AS u ON u.id = r.user_id").
		Where("b.author_id = ?", authorID).
		Order("r.created_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	res := make([]domain.RatingRow, 0, len(rows))
	for _, row := range rows {
		res = append(res, domain.RatingRow{
			Rating: domain.Rating{
				ID:        row.ID,
				BookID:    row.BookID,
				UserID:    row.UserID,
				Rating:    row.Rating,
				Comment:   row.Comment,
				CreatedAt: row.CreatedAt,
			},
			BookTitle:     row.BookTitle,
			AuthorID:      row.AuthorID,
			ReviewerName:  row.ReviewerName,
			ReviewerEmail: row.ReviewerEmail,
		})
	}
	return res, nil
}

// withAuthors converts book models and resolves author names in one query.
func (s *GormStore) withAuthors(ctx context.Context, models []BookModel) ([]domain.Book, error) {
	ids := make([]string, 0, len(models))
	seen := make(map[string]struct{}, len(models))
	for _, m := range models {
		if _, ok := seen[m.AuthorID]; ok {
			continue
		}
		seen[m.AuthorID] = struct{}{}
		ids = append(ids, m.AuthorID)
	}
	names := make(map[string]string, len(ids))
	if len(ids) > 0 {
		var users []UserModel
		if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			names[u.ID] = u.Name
		}
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		b := bookFromModel(m)
		b.Author = domain.Author{ID: m.AuthorID, Name: names[m.AuthorID]}
		res = append(res, b)
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	role := domain.UserRole(m.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         role,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	likes := make([]string, len(b.Likes))
	copy(likes, b.Likes)
	return BookModel{
		ID:           b.ID,
		Title:        b.Title,
		AuthorID:     b.AuthorID,
		Description:  b.Description,
		Genre:        b.Genre,
		CoverImage:   b.CoverImage,
		CoverImageID: b.CoverImageID,
		File:         b.File,
		FileID:       b.FileID,
		Views:        b.Views,
		Likes:        likes,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	likes := []string(m.Likes)
	if likes == nil {
		likes = []string{}
	}
	return domain.Book{
		ID:           m.ID,
		Title:        m.Title,
		AuthorID:     m.AuthorID,
		Description:  m.Description,
		Genre:        m.Genre,
		CoverImage:   m.CoverImage,
		CoverImageID: m.CoverImageID,
		File:         m.File,
		FileID:       m.FileID,
		Views:        m.Views,
		Likes:        likes,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func ratingToModel(r domain.Rating) RatingModel {
	return RatingModel{
		ID:        r.ID,
		BookID:    r.BookID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func ratingFromModel(m RatingModel) domain.Rating {
	return domain.Rating{
		ID:        m.ID,
		BookID:    m.BookID,
		UserID:    m.UserID,
		Rating:    m.Rating,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
	}
}
