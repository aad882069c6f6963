package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/libman/internal/model"
)

// PostgresBorrowStore は貸出・返却のトランザクション境界を提供する。
// すべてのトランザクションはシリアライザブル分離レベルで開始され、
// 蔵書行の行ロックと組み合わせて同時実行時の二重貸出を防止する。
type PostgresBorrowStore struct {
	db *sql.DB
}

// NewPostgresBorrowStore はPostgresBorrowStoreを生成する。
func NewPostgresBorrowStore(db *sql.DB) *PostgresBorrowStore {
	return &PostgresBorrowStore{db: db}
}

// Begin はシリアライザブル分離レベルのトランザクションを開始する。
func (s *PostgresBorrowStore) Begin(ctx context.Context) (BorrowTx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresBorrowTx{tx: tx}, nil
}

// postgresBorrowTx はBorrowTxのPostgreSQL実装。
type postgresBorrowTx struct {
	tx *sql.Tx
}

// FindBookByISBNForUpdate は指定ISBNの蔵書を行ロック付きで取得する。
// トランザクション終了までこの蔵書行への並行する貸出・返却はブロックされる。
// 見つからない場合はnilを返す。
func (t *postgresBorrowTx) FindBookByISBNForUpdate(ctx context.Context, isbn string) (*model.Book, error) {
	book := &model.Book{}
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, isbn, title, author, edition, publisher, genre, page_count, language,
		        publication_year, status, added_at, updated_at
		 FROM books WHERE isbn = $1
		 FOR UPDATE`,
		isbn,
	).Scan(
		&book.ID, &book.ISBN, &book.Title, &book.Author, &book.Edition, &book.Publisher,
		&book.Genre, &book.PageCount, &book.Language, &book.PublicationYear,
		&book.Status, &book.AddedAt, &book.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("蔵書の行ロック取得に失敗しました: %w", err)
	}

	return book, nil
}

// CountOpenByUser はユーザーの未返却の貸出数を返す。
func (t *postgresBorrowTx) CountOpenByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM borrowings WHERE user_id = $1 AND returned_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("未返却貸出数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// OpenBorrowingExists は指定蔵書に未返却の貸出が存在するかを返す。
func (t *postgresBorrowTx) OpenBorrowingExists(ctx context.Context, bookID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM borrowings WHERE book_id = $1 AND returned_at IS NULL)`,
		bookID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("未返却貸出の存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// FindOpenByUserAndBook はユーザーと蔵書に対する未返却の貸出を取得する。
// 見つからない場合はnilを返す。
func (t *postgresBorrowTx) FindOpenByUserAndBook(ctx context.Context, userID, bookID int64) (*model.Borrowing, error) {
	borrowing := &model.Borrowing{}
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, user_id, book_id, borrowed_at, returned_at
		 FROM borrowings
		 WHERE user_id = $1 AND book_id = $2 AND returned_at IS NULL`,
		userID, bookID,
	).Scan(&borrowing.ID, &borrowing.UserID, &borrowing.BookID, &borrowing.BorrowedAt, &borrowing.ReturnedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("未返却貸出の検索に失敗しました: %w", err)
	}

	return borrowing, nil
}

// InsertBorrowing は新規貸出レコードを挿入する。
// 同一蔵書に未返却の貸出が既に存在する場合は部分一意インデックスにより
// 一意制約違反となる（IsUniqueViolationで判定できる）。
func (t *postgresBorrowTx) InsertBorrowing(ctx context.Context, borrowing *model.Borrowing) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO borrowings (id, user_id, book_id, borrowed_at, returned_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		borrowing.ID, borrowing.UserID, borrowing.BookID, borrowing.BorrowedAt, borrowing.ReturnedAt,
	)
	if err != nil {
		return fmt.Errorf("貸出レコードの挿入に失敗しました: %w", err)
	}
	return nil
}

// SetReturned は貸出レコードに返却日時を設定する。
func (t *postgresBorrowTx) SetReturned(ctx context.Context, borrowingID string, returnedAt time.Time) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE borrowings SET returned_at = $2 WHERE id = $1 AND returned_at IS NULL`,
		borrowingID, returnedAt,
	)
	if err != nil {
		return fmt.Errorf("返却日時の設定に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("未返却の貸出レコードが見つかりません: %s", borrowingID)
	}
	return nil
}

// UpdateBookStatus は蔵書の貸出状態を更新する。
func (t *postgresBorrowTx) UpdateBookStatus(ctx context.Context, bookID int64, status model.BookStatus) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE books SET status = $2 WHERE id = $1`,
		bookID, status,
	)
	if err != nil {
		return fmt.Errorf("蔵書状態の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("蔵書が見つかりません: %d", bookID)
	}
	return nil
}

// Commit はトランザクションをコミットする。
func (t *postgresBorrowTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback はトランザクションをロールバックする。
// Commit後の呼び出しは無視される。
func (t *postgresBorrowTx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation はPostgreSQLの一意制約違反（23505）かどうかを判定する。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// IsSerializationFailure はPostgreSQLの直列化失敗（40001）かどうかを判定する。
// シリアライザブルトランザクション同士の競合時に発生する。
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001"
	}
	return false
}

// compile-time interface checks
var (
	_ BorrowStore = (*PostgresBorrowStore)(nil)
	_ BorrowTx    = (*postgresBorrowTx)(nil)
)
