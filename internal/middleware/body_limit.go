package middleware

import "net/http"

// NewBodyLimitMiddleware はリクエストボディの最大サイズを制限するミドルウェアを返す。
// 上限を超えた読み取りはハンドラ側のデコード時にエラーとなる。
func NewBodyLimitMiddleware(maxBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
