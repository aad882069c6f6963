package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/libman/internal/metrics"
	"github.com/hitoshi/libman/internal/middleware"
)

// RouterDeps はルーター構築に必要な依存を保持する。
type RouterDeps struct {
	Logger *slog.Logger

	// 認証
	TokenVerifier middleware.TokenVerifier
	AdminAPIKey   string

	// サービス
	AuthService    AuthServiceInterface
	CatalogService CatalogServiceInterface
	BorrowService  BorrowServiceInterface

	// インフラ
	DB              DBPinger
	RateLimiter     *middleware.RateLimiter
	MetricsGatherer prometheus.Gatherer
	MetricsRecorder middleware.HTTPStatusRecorder

	// HTTP設定
	UserHandlerConfig UserHandlerConfig
	CORSAllowedOrigin string
	MaxBodySize       int64
}

// NewRouter はアプリケーションの全ルートを構成したルーターを生成する。
//
// ルートは3つのグループに分かれる。
//   - 公開: ユーザー登録・ログイン、蔵書一覧、ヘルスチェック、メトリクス
//   - セッション認証: 貸出・返却・貸出履歴（ユーザー別レート制限つき）
//   - 管理者認証: 蔵書の登録・更新・削除（APIキーによるBearer認証）
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewBodyLimitMiddleware(deps.MaxBodySize))

	userHandler := NewUserHandler(deps.AuthService, deps.UserHandlerConfig)
	bookHandler := NewBookHandler(deps.CatalogService)
	borrowHandler := NewBorrowHandler(deps.BorrowService, deps.AdminAPIKey)
	healthHandler := NewHealthHandler(deps.DB)

	// 公開ルート
	r.Get("/health", healthHandler.Check)
	r.Get("/books", bookHandler.ListBooks)
	r.Get("/books/{isbn}", bookHandler.GetBook)
	r.Post("/user/register", userHandler.Register)
	r.Post("/user/login", userHandler.Login)
	r.Post("/user/logout", userHandler.Logout)

	if deps.MetricsGatherer != nil {
		r.Get("/metrics", metrics.SetupMetricsRoute(deps.MetricsGatherer).ServeHTTP)
	}

	// セッション認証が必要なルート
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/borrowed", borrowHandler.ListBorrowed)

		// 貸出・返却は直列化トランザクションを使うため、より厳しいレート制限をかける
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.BorrowMiddleware())

			r.Post("/borrow", borrowHandler.Borrow)
			r.Delete("/return/{isbn}", borrowHandler.Return)
		})
	})

	// 管理者認証が必要なルート
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAdminAuthMiddleware(deps.AdminAPIKey))

		r.Post("/books", bookHandler.CreateBooks)
		r.Put("/books/{isbn}", bookHandler.UpdateBook)
		r.Delete("/books/{isbn}", bookHandler.DeleteBook)
	})

	return r
}
