package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libman/internal/borrow"
	"github.com/hitoshi/libman/internal/middleware"
	"github.com/hitoshi/libman/internal/model"
)

// BorrowServiceInterface は貸出ハンドラーが必要とするサービスインターフェース。
type BorrowServiceInterface interface {
	// Borrow は蔵書を貸し出す。
	Borrow(ctx context.Context, isbn string, userID int64) (*borrow.Result, error)
	// Return は貸出中の蔵書を返却する。
	Return(ctx context.Context, isbn string, userID int64) error
	// ListBorrowings は貸出履歴を返す。userIDがnilの場合は全ユーザー分。
	ListBorrowings(ctx context.Context, userID *int64) ([]borrow.BorrowedBookInfo, error)
}

// BorrowHandler は貸出・返却のHTTPハンドラー。
type BorrowHandler struct {
	service     BorrowServiceInterface
	adminAPIKey string
}

// NewBorrowHandler はBorrowHandlerを生成する。
// adminAPIKeyは全ユーザー分の貸出履歴取得（?all=true）の認可に使用する。
func NewBorrowHandler(service BorrowServiceInterface, adminAPIKey string) *BorrowHandler {
	return &BorrowHandler{
		service:     service,
		adminAPIKey: adminAPIKey,
	}
}

// borrowRequest は貸出リクエストのボディ。
type borrowRequest struct {
	ISBN string `json:"isbn"`
}

// borrowResponse は貸出成功のAPIレスポンス。
type borrowResponse struct {
	BorrowingID string    `json:"borrowing_id"`
	ISBN        string    `json:"isbn"`
	BorrowedAt  time.Time `json:"borrowed_at"`
}

// borrowedBookResponse は貸出履歴1件のAPIレスポンス。
type borrowedBookResponse struct {
	ISBN       string     `json:"isbn"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	ReturnedAt *time.Time `json:"returned_at"`
}

// Borrow は蔵書の貸出を処理する。
// POST /borrow
func (h *BorrowHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.ISBN == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewISBNRequiredError())
		return
	}

	result, err := h.service.Borrow(r.Context(), req.ISBN, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, borrowResponse{
		BorrowingID: result.BorrowingID,
		ISBN:        result.ISBN,
		BorrowedAt:  result.BorrowedAt,
	})
}

// Return は蔵書の返却を処理する。
// DELETE /return/{isbn}
func (h *BorrowHandler) Return(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	isbn := chi.URLParam(r, "isbn")
	if isbn == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewISBNRequiredError())
		return
	}

	if err := h.service.Return(r.Context(), isbn, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListBorrowed は認証ユーザーの貸出履歴（返却済み含む）を取得する。
// 管理者APIキーを併せて提示した場合、?all=true で全ユーザー分を取得できる。
// GET /borrowed
func (h *BorrowHandler) ListBorrowed(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	filter := &userID
	if r.URL.Query().Get("all") == "true" {
		if !middleware.AdminKeyMatches(r, h.adminAPIKey) {
			writeUnauthorized(w)
			return
		}
		filter = nil
	}

	infos, err := h.service.ListBorrowings(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	books := make([]borrowedBookResponse, len(infos))
	for i, info := range infos {
		books[i] = borrowedBookResponse{
			ISBN:       info.ISBN,
			BorrowedAt: info.BorrowedAt,
			ReturnedAt: info.ReturnedAt,
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"books": books})
}
