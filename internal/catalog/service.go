// Package catalog は蔵書カタログの管理機能を提供する。
// 蔵書の一括登録、ページネーション付き一覧、メタデータ更新、削除を担う。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/libman/internal/model"
	"github.com/hitoshi/libman/internal/repository"
	"github.com/hitoshi/libman/internal/security"
)

// defaultPageSize は蔵書一覧の1ページあたりの件数のデフォルト値。
const defaultPageSize = 7

// BookInput は蔵書登録の入力を表す。
type BookInput struct {
	ISBN            string
	Title           string
	Author          string
	Edition         string
	Publisher       string
	Genre           string
	PageCount       int
	Language        string
	PublicationYear int
}

// BookUpdate は蔵書メタデータの部分更新を表す。
// nilのフィールドは変更されない。ISBNと貸出状態は更新対象外。
type BookUpdate struct {
	Title           *string
	Author          *string
	Edition         *string
	Publisher       *string
	Genre           *string
	PageCount       *int
	Language        *string
	PublicationYear *int
}

// Page は蔵書一覧の1ページを表す。
type Page struct {
	Books      []*model.Book
	Page       int
	TotalPages int
	TotalCount int
}

// ServiceConfig はカタログサービスの設定。
type ServiceConfig struct {
	PageSize int // 一覧の1ページあたりの件数
}

// Service は蔵書カタログのサービス層。
type Service struct {
	bookRepo  repository.BookRepository
	sanitizer security.FieldSanitizerService
	config    ServiceConfig
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(bookRepo repository.BookRepository, sanitizer security.FieldSanitizerService, config ServiceConfig) *Service {
	if config.PageSize <= 0 {
		config.PageSize = defaultPageSize
	}
	return &Service{
		bookRepo:  bookRepo,
		sanitizer: sanitizer,
		config:    config,
		now:       time.Now,
	}
}

// CreateBooks は蔵書を一括登録する。
//
// リクエスト内の重複ISBNと登録済みISBNを事前に検出し、1件でも重複が
// あれば全件を拒否する（全件成功か全件失敗）。自由記述フィールドは
// 保存前にサニタイズされる。登録された蔵書はすべてavailable状態となる。
func (s *Service) CreateBooks(ctx context.Context, inputs []BookInput) ([]*model.Book, error) {
	if len(inputs) == 0 {
		return nil, model.NewNoBooksProvidedError()
	}

	seen := make(map[string]bool, len(inputs))
	var duplicates []string
	isbns := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input.ISBN) == "" {
			return nil, model.NewISBNRequiredError()
		}
		if seen[input.ISBN] {
			duplicates = append(duplicates, input.ISBN)
			continue
		}
		seen[input.ISBN] = true
		isbns = append(isbns, input.ISBN)
	}

	existing, err := s.bookRepo.ListISBNsIn(ctx, isbns)
	if err != nil {
		return nil, fmt.Errorf("登録済みISBNの確認に失敗しました: %w", err)
	}
	duplicates = append(duplicates, existing...)
	if len(duplicates) > 0 {
		return nil, model.NewDuplicateISBNError(strings.Join(duplicates, ", "))
	}

	now := s.now()
	books := make([]*model.Book, len(inputs))
	for i, input := range inputs {
		books[i] = &model.Book{
			ISBN:            input.ISBN,
			Title:           s.sanitizer.Sanitize(input.Title),
			Author:          s.sanitizer.Sanitize(input.Author),
			Edition:         s.sanitizer.Sanitize(input.Edition),
			Publisher:       s.sanitizer.Sanitize(input.Publisher),
			Genre:           s.sanitizer.Sanitize(input.Genre),
			PageCount:       input.PageCount,
			Language:        s.sanitizer.Sanitize(input.Language),
			PublicationYear: input.PublicationYear,
			Status:          model.BookStatusAvailable,
			AddedAt:         now,
		}
	}

	if err := s.bookRepo.CreateBatch(ctx, books); err != nil {
		// 事前確認をすり抜けた並行登録との競合
		if repository.IsUniqueViolation(err) {
			return nil, model.NewDuplicateISBNError(strings.Join(isbns, ", "))
		}
		return nil, fmt.Errorf("蔵書の一括登録に失敗しました: %w", err)
	}

	slog.Info("books created", slog.Int("count", len(books)))
	return books, nil
}

// ListBooks は蔵書一覧の指定ページをISBN降順で返す。
// pageは1始まり。1未満の指定は1ページ目として扱う。
func (s *Service) ListBooks(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	total, err := s.bookRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("蔵書総数の取得に失敗しました: %w", err)
	}

	totalPages := (total + s.config.PageSize - 1) / s.config.PageSize

	books, err := s.bookRepo.List(ctx, (page-1)*s.config.PageSize, s.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("蔵書一覧の取得に失敗しました: %w", err)
	}

	return &Page{
		Books:      books,
		Page:       page,
		TotalPages: totalPages,
		TotalCount: total,
	}, nil
}

// GetBook は指定ISBNの蔵書を返す。
func (s *Service) GetBook(ctx context.Context, isbn string) (*model.Book, error) {
	book, err := s.bookRepo.FindByISBN(ctx, isbn)
	if err != nil {
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(isbn)
	}
	return book, nil
}

// UpdateBook は蔵書のメタデータを部分更新する。
// 指定されたフィールドのみが更新され、updated_atが設定される。
func (s *Service) UpdateBook(ctx context.Context, isbn string, update BookUpdate) (*model.Book, error) {
	book, err := s.bookRepo.FindByISBN(ctx, isbn)
	if err != nil {
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(isbn)
	}

	if update.Title != nil {
		book.Title = s.sanitizer.Sanitize(*update.Title)
	}
	if update.Author != nil {
		book.Author = s.sanitizer.Sanitize(*update.Author)
	}
	if update.Edition != nil {
		book.Edition = s.sanitizer.Sanitize(*update.Edition)
	}
	if update.Publisher != nil {
		book.Publisher = s.sanitizer.Sanitize(*update.Publisher)
	}
	if update.Genre != nil {
		book.Genre = s.sanitizer.Sanitize(*update.Genre)
	}
	if update.PageCount != nil {
		book.PageCount = *update.PageCount
	}
	if update.Language != nil {
		book.Language = s.sanitizer.Sanitize(*update.Language)
	}
	if update.PublicationYear != nil {
		book.PublicationYear = *update.PublicationYear
	}

	now := s.now()
	book.UpdatedAt = &now

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("蔵書の更新に失敗しました: %w", err)
	}

	slog.Info("book updated", slog.String("isbn", isbn))
	return book, nil
}

// DeleteBook は指定ISBNの蔵書を削除する。
// 貸出履歴はDB側の外部キー制約（ON DELETE CASCADE）により併せて削除される。
func (s *Service) DeleteBook(ctx context.Context, isbn string) error {
	book, err := s.bookRepo.FindByISBN(ctx, isbn)
	if err != nil {
		return fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}
	if book == nil {
		return model.NewBookNotFoundError(isbn)
	}

	if err := s.bookRepo.DeleteByISBN(ctx, isbn); err != nil {
		return fmt.Errorf("蔵書の削除に失敗しました: %w", err)
	}

	slog.Info("book deleted", slog.String("isbn", isbn))
	return nil
}
