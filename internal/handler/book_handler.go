package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libman/internal/catalog"
	"github.com/hitoshi/libman/internal/model"
)

// CatalogServiceInterface は蔵書ハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	// CreateBooks は蔵書を一括登録する。
	CreateBooks(ctx context.Context, inputs []catalog.BookInput) ([]*model.Book, error)
	// ListBooks は蔵書一覧の指定ページを返す。
	ListBooks(ctx context.Context, page int) (*catalog.Page, error)
	// GetBook は指定ISBNの蔵書を返す。
	GetBook(ctx context.Context, isbn string) (*model.Book, error)
	// UpdateBook は蔵書のメタデータを部分更新する。
	UpdateBook(ctx context.Context, isbn string, update catalog.BookUpdate) (*model.Book, error)
	// DeleteBook は指定ISBNの蔵書を削除する。
	DeleteBook(ctx context.Context, isbn string) error
}

// BookHandler は蔵書カタログのHTTPハンドラー。
type BookHandler struct {
	service CatalogServiceInterface
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service CatalogServiceInterface) *BookHandler {
	return &BookHandler{service: service}
}

// bookInput は蔵書登録リクエストの1冊分。
type bookInput struct {
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Edition         string `json:"edition"`
	Publisher       string `json:"publisher"`
	Genre           string `json:"genre"`
	PageCount       int    `json:"page_count"`
	Language        string `json:"language"`
	PublicationYear int    `json:"publication_year"`
}

// createBooksRequest は蔵書一括登録リクエストのボディ。
type createBooksRequest struct {
	Books []bookInput `json:"books"`
}

// updateBookRequest は蔵書更新リクエストのボディ。nilのフィールドは変更しない。
type updateBookRequest struct {
	Title           *string `json:"title"`
	Author          *string `json:"author"`
	Edition         *string `json:"edition"`
	Publisher       *string `json:"publisher"`
	Genre           *string `json:"genre"`
	PageCount       *int    `json:"page_count"`
	Language        *string `json:"language"`
	PublicationYear *int    `json:"publication_year"`
}

// bookResponse は蔵書情報のAPIレスポンス。
type bookResponse struct {
	ISBN            string     `json:"isbn"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Edition         string     `json:"edition,omitempty"`
	Publisher       string     `json:"publisher,omitempty"`
	Genre           string     `json:"genre,omitempty"`
	PageCount       int        `json:"page_count,omitempty"`
	Language        string     `json:"language,omitempty"`
	PublicationYear int        `json:"publication_year,omitempty"`
	Status          string     `json:"status"`
	AddedAt         time.Time  `json:"added_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// listBooksResponse は蔵書一覧のAPIレスポンス。
type listBooksResponse struct {
	Books      []bookResponse `json:"books"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	TotalCount int            `json:"total_count"`
}

// CreateBooks は蔵書の一括登録を処理する。
// POST /books
func (h *BookHandler) CreateBooks(w http.ResponseWriter, r *http.Request) {
	var req createBooksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	inputs := make([]catalog.BookInput, len(req.Books))
	for i, b := range req.Books {
		inputs[i] = catalog.BookInput(b)
	}

	books, err := h.service.CreateBooks(r.Context(), inputs)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]bookResponse, len(books))
	for i, book := range books {
		responses[i] = toBookResponse(book)
	}

	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"books": responses,
		"count": len(responses),
	})
}

// ListBooks は蔵書一覧を取得する。
// GET /books?page=N
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationFailedError("pageは整数で指定してください"))
			return
		}
		page = parsed
	}

	result, err := h.service.ListBooks(r.Context(), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]bookResponse, len(result.Books))
	for i, book := range result.Books {
		responses[i] = toBookResponse(book)
	}

	writeJSONResponse(w, http.StatusOK, listBooksResponse{
		Books:      responses,
		Page:       result.Page,
		TotalPages: result.TotalPages,
		TotalCount: result.TotalCount,
	})
}

// GetBook は蔵書1冊の取得を処理する。
// GET /books/{isbn}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")

	book, err := h.service.GetBook(r.Context(), isbn)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toBookResponse(book))
}

// UpdateBook は蔵書のメタデータ更新を処理する。
// PUT /books/{isbn}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")

	var req updateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	book, err := h.service.UpdateBook(r.Context(), isbn, catalog.BookUpdate(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toBookResponse(book))
}

// DeleteBook は蔵書の削除を処理する。
// DELETE /books/{isbn}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")

	if err := h.service.DeleteBook(r.Context(), isbn); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toBookResponse はmodel.BookからAPIレスポンスに変換する。
func toBookResponse(book *model.Book) bookResponse {
	return bookResponse{
		ISBN:            book.ISBN,
		Title:           book.Title,
		Author:          book.Author,
		Edition:         book.Edition,
		Publisher:       book.Publisher,
		Genre:           book.Genre,
		PageCount:       book.PageCount,
		Language:        book.Language,
		PublicationYear: book.PublicationYear,
		Status:          string(book.Status),
		AddedAt:         book.AddedAt,
		UpdatedAt:       book.UpdatedAt,
	}
}
