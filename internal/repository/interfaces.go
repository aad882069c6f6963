// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/libman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByUsernameOrEmail はユーザー名または暗号化済みメールアドレスの
	// いずれかが一致するユーザーを検索する。見つからない場合はnilを返す。
	FindByUsernameOrEmail(ctx context.Context, username, encryptedEmail string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDを返す。
	Create(ctx context.Context, user *model.User) (int64, error)
}

// BookRepository は蔵書データの永続化インターフェース。
type BookRepository interface {
	// FindByISBN は指定ISBNの蔵書を取得する。見つからない場合はnilを返す。
	FindByISBN(ctx context.Context, isbn string) (*model.Book, error)

	// ListISBNsIn は指定されたISBN群のうち、既に登録済みのISBNを返す。
	ListISBNsIn(ctx context.Context, isbns []string) ([]string, error)

	// CreateBatch は複数の蔵書を同一トランザクションで一括作成する。
	CreateBatch(ctx context.Context, books []*model.Book) error

	// List は蔵書一覧をISBN降順で取得する。
	List(ctx context.Context, offset, limit int) ([]*model.Book, error)

	// Count は蔵書の総数を返す。
	Count(ctx context.Context) (int, error)

	// Update は蔵書のメタデータを更新し、updated_atを設定する。
	Update(ctx context.Context, book *model.Book) error

	// DeleteByISBN は指定ISBNの蔵書を削除する。
	DeleteByISBN(ctx context.Context, isbn string) error
}

// BorrowingRepository は貸出履歴の参照インターフェース。
// 貸出・返却の書き込みはBorrowStoreのトランザクション経由でのみ行う。
type BorrowingRepository interface {
	// ListWithISBN は貸出履歴（返却済み含む）を蔵書のISBN付きで返す。
	// userIDがnilの場合は全ユーザーの履歴を返す。borrowed_at降順。
	ListWithISBN(ctx context.Context, userID *int64) ([]BorrowingWithISBN, error)
}

// BorrowingWithISBN は貸出レコードと蔵書のISBNを結合した構造体。
// 外部へは蔵書の内部IDではなくISBNのみを公開する。
type BorrowingWithISBN struct {
	model.Borrowing
	ISBN string
}

// BorrowTx は貸出・返却処理の1トランザクション内で使用する操作群。
// すべての読み取りと書き込みは同一のシリアライザブルトランザクション上で評価される。
// CommitまたはRollbackの呼び出しでトランザクションは終了する。
type BorrowTx interface {
	// FindBookByISBNForUpdate は指定ISBNの蔵書を行ロック付きで取得する。
	// 見つからない場合はnilを返す。
	FindBookByISBNForUpdate(ctx context.Context, isbn string) (*model.Book, error)

	// CountOpenByUser はユーザーの未返却の貸出数を返す。
	CountOpenByUser(ctx context.Context, userID int64) (int, error)

	// OpenBorrowingExists は指定蔵書に未返却の貸出が存在するかを返す。
	OpenBorrowingExists(ctx context.Context, bookID int64) (bool, error)

	// FindOpenByUserAndBook はユーザーと蔵書に対する未返却の貸出を取得する。
	// 見つからない場合はnilを返す。
	FindOpenByUserAndBook(ctx context.Context, userID, bookID int64) (*model.Borrowing, error)

	// InsertBorrowing は新規貸出レコードを挿入する。
	InsertBorrowing(ctx context.Context, borrowing *model.Borrowing) error

	// SetReturned は貸出レコードに返却日時を設定する。
	SetReturned(ctx context.Context, borrowingID string, returnedAt time.Time) error

	// UpdateBookStatus は蔵書の貸出状態を更新する。
	UpdateBookStatus(ctx context.Context, bookID int64, status model.BookStatus) error

	// Commit はトランザクションをコミットする。
	Commit() error

	// Rollback はトランザクションをロールバックする。
	// Commit後の呼び出しは無視される。
	Rollback() error
}

// BorrowStore は貸出・返却のトランザクション境界を提供するインターフェース。
type BorrowStore interface {
	// Begin はシリアライザブル分離レベルのトランザクションを開始する。
	Begin(ctx context.Context) (BorrowTx, error)
}
