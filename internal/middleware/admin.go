package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// AdminKeyMatches はリクエストのAuthorizationヘッダーのBearerトークンが
// 管理者APIキーと一致するか判定する。キーの比較は一定時間比較で行う。
func AdminKeyMatches(r *http.Request, apiKey string) bool {
	if apiKey == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) == 1
}

// NewAdminAuthMiddleware はAuthorizationヘッダーのBearerトークンを
// 管理者APIキーと照合するミドルウェアを返す。
// 不一致の場合は401 Unauthorizedを返す。
func NewAdminAuthMiddleware(apiKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !AdminKeyMatches(r, apiKey) {
				slog.Warn("admin auth failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
