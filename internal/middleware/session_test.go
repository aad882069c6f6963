package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/libman/internal/auth"
)

// --- モック定義 ---

type mockTokenVerifier struct {
	verifyFn func(tokenString string) (*auth.Claims, error)
}

func (m *mockTokenVerifier) Verify(tokenString string) (*auth.Claims, error) {
	if m.verifyFn != nil {
		return m.verifyFn(tokenString)
	}
	return nil, fmt.Errorf("invalid token")
}

// --- テスト ---

func TestSessionMiddleware_ValidToken_InjectsUserID(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyFn: func(tokenString string) (*auth.Claims, error) {
			if tokenString == "valid-token" {
				return &auth.Claims{UserID: 123, Username: "alice"}, nil
			}
			return nil, fmt.Errorf("invalid token")
		},
	}

	mw := NewSessionMiddleware(verifier)

	var capturedUserID int64
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedUserID = userID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/borrowed", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "valid-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if capturedUserID != 123 {
		t.Errorf("userID = %d, want 123", capturedUserID)
	}
}

func TestSessionMiddleware_NoSessionCookie_Returns401(t *testing.T) {
	mw := NewSessionMiddleware(&mockTokenVerifier{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/borrowed", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_EmptySessionCookie_Returns401(t *testing.T) {
	mw := NewSessionMiddleware(&mockTokenVerifier{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/borrowed", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: ""})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_InvalidToken_Returns401(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyFn: func(tokenString string) (*auth.Claims, error) {
			return nil, fmt.Errorf("token has expired")
		},
	}
	mw := NewSessionMiddleware(verifier)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/borrowed", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "expired-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

// 実際のTokenManagerとの組み合わせで動作することを検証
func TestSessionMiddleware_WithRealTokenManager(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", 7200)
	token, err := tm.Issue(42, "alice")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	mw := NewSessionMiddleware(tm)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if userID != 42 {
			t.Errorf("userID = %d, want 42", userID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/borrowed", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestUserIDFromContext_NoValue_ReturnsError(t *testing.T) {
	ctx := context.Background()
	_, err := UserIDFromContext(ctx)
	if err == nil {
		t.Error("expected error for missing user ID in context")
	}
}

func TestUserIDFromContext_ValidValue_ReturnsUserID(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), 456)
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if userID != 456 {
		t.Errorf("userID = %d, want 456", userID)
	}
}
