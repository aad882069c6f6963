package handler

import (
	"context"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/libman/internal/model"
)

// errTestInfra はAPIError以外のインフラエラーを表すテスト用エラー。
var errTestInfra = errors.New("connection refused")

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFunc func(ctx context.Context, username, email, password string) (*model.User, error)
	loginFunc    func(ctx context.Context, username, password string) (*model.User, string, error)
}

func (m *mockAuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	return m.registerFunc(ctx, username, email, password)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	return m.loginFunc(ctx, username, password)
}

func TestUserHandler_Register_Success(t *testing.T) {
	service := &mockAuthService{
		registerFunc: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return &model.User{ID: 1, Username: "alice"}, nil
		},
	}
	h := NewUserHandler(service, UserHandlerConfig{SessionMaxAge: 7200})

	body := `{"username":"alice","email":"alice@example.com","password":"Passw0rd!"}`
	req := httptest.NewRequest(http.MethodPost, "/user/register", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != 1 || resp.Username != "alice" {
		t.Errorf("response = %+v, want ID=1 Username=alice", resp)
	}
}

func TestUserHandler_Register_InvalidBody(t *testing.T) {
	h := NewUserHandler(&mockAuthService{}, UserHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/user/register", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUserHandler_Register_UsernameTaken_ReturnsTeapot(t *testing.T) {
	service := &mockAuthService{
		registerFunc: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return nil, model.NewUserAlreadyExistsError()
		},
	}
	h := NewUserHandler(service, UserHandlerConfig{})

	body := `{"username":"alice","email":"alice@example.com","password":"Passw0rd!"}`
	req := httptest.NewRequest(http.MethodPost, "/user/register", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTeapot)
	}

	var resp apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrCodeUserAlreadyExists {
		t.Errorf("code = %s, want %s", resp.Code, model.ErrCodeUserAlreadyExists)
	}
}

func TestUserHandler_Register_EmailTaken_ReturnsTeapot(t *testing.T) {
	service := &mockAuthService{
		registerFunc: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return nil, model.NewEmailAlreadyExistsError()
		},
	}
	h := NewUserHandler(service, UserHandlerConfig{})

	body := `{"username":"bob","email":"alice@example.com","password":"Passw0rd!"}`
	req := httptest.NewRequest(http.MethodPost, "/user/register", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
}

func TestUserHandler_Register_ValidationFailure(t *testing.T) {
	service := &mockAuthService{
		registerFunc: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return nil, model.NewValidationFailedError("パスワードは8文字以上で指定してください")
		},
	}
	h := NewUserHandler(service, UserHandlerConfig{})

	body := `{"username":"alice","email":"alice@example.com","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/user/register", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUserHandler_Login_SetsSessionCookie(t *testing.T) {
	service := &mockAuthService{
		loginFunc: func(ctx context.Context, username, password string) (*model.User, string, error) {
			return &model.User{ID: 42, Username: "alice"}, "token-value", nil
		},
	}
	h := NewUserHandler(service, UserHandlerConfig{CookieSecure: true, SessionMaxAge: 7200})

	body := `{"username":"alice","password":"Passw0rd!"}`
	req := httptest.NewRequest(http.MethodPost, "/user/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	cookies := w.Result().Cookies()
	var session *http.Cookie
	for _, c := range cookies {
		if c.Name == sessionCookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatal("session cookie not set")
	}
	if session.Value != "token-value" {
		t.Errorf("cookie value = %s, want token-value", session.Value)
	}
	if !session.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if !session.Secure {
		t.Error("session cookie should be Secure")
	}
	if session.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", session.SameSite)
	}
	if session.MaxAge != 7200 {
		t.Errorf("MaxAge = %d, want 7200", session.MaxAge)
	}

	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != 42 {
		t.Errorf("ID = %d, want 42", resp.ID)
	}
}

func TestUserHandler_Login_InvalidCredentials_Returns401(t *testing.T) {
	service := &mockAuthService{
		loginFunc: func(ctx context.Context, username, password string) (*model.User, string, error) {
			return nil, "", model.NewInvalidCredentialsError()
		},
	}
	h := NewUserHandler(service, UserHandlerConfig{})

	body := `{"username":"alice","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/user/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	if len(w.Result().Cookies()) != 0 {
		t.Error("cookie should not be set on failed login")
	}
}

func TestUserHandler_Logout_ClearsCookie(t *testing.T) {
	h := NewUserHandler(&mockAuthService{}, UserHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/user/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1", cookies[0].MaxAge)
	}
	if cookies[0].Value != "" {
		t.Errorf("value = %s, want empty", cookies[0].Value)
	}
}

func TestUserHandler_Register_InternalError_Returns500(t *testing.T) {
	service := &mockAuthService{
		registerFunc: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return nil, errTestInfra
		},
	}
	h := NewUserHandler(service, UserHandlerConfig{})

	body := `{"username":"alice","email":"alice@example.com","password":"Passw0rd!"}`
	req := httptest.NewRequest(http.MethodPost, "/user/register", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var resp apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %s, want INTERNAL_ERROR", resp.Code)
	}
}
