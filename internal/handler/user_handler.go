package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/libman/internal/model"
)

// AuthServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録する。
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	// Login は認証情報を検証し、ユーザーとセッショントークンを返す。
	Login(ctx context.Context, username, password string) (*model.User, string, error)
}

// UserHandlerConfig はユーザーハンドラーの設定。
type UserHandlerConfig struct {
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// UserHandler はユーザー登録・ログインのHTTPハンドラー。
type UserHandler struct {
	service AuthServiceInterface
	config  UserHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service AuthServiceInterface, config UserHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		config:  config,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userResponse はユーザー情報のAPIレスポンス。
// メールアドレスは暗号化済みのため返さない。
type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Register はユーザー登録を処理する。
// POST /user/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, userResponse{
		ID:       user.ID,
		Username: user.Username,
	})
}

// Login はログインを処理し、セッショントークンをHTTP Only Cookieに設定する。
// POST /user/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSONResponse(w, http.StatusOK, userResponse{
		ID:       user.ID,
		Username: user.Username,
	})
}

// Logout はセッションCookieを破棄する。
// POST /user/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}
