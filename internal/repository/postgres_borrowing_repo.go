package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresBorrowingRepo はPostgreSQLを使用した貸出履歴リポジトリ。
// 参照専用であり、貸出・返却の書き込みはPostgresBorrowStoreが担う。
type PostgresBorrowingRepo struct {
	db *sql.DB
}

// NewPostgresBorrowingRepo はPostgresBorrowingRepoを生成する。
func NewPostgresBorrowingRepo(db *sql.DB) *PostgresBorrowingRepo {
	return &PostgresBorrowingRepo{db: db}
}

// ListWithISBN は貸出履歴（返却済み含む）を蔵書のISBN付きで返す。
// userIDがnilの場合は全ユーザーの履歴を返す。borrowed_at降順。
func (r *PostgresBorrowingRepo) ListWithISBN(ctx context.Context, userID *int64) ([]BorrowingWithISBN, error) {
	query := `SELECT br.id, br.user_id, br.book_id, br.borrowed_at, br.returned_at, b.isbn
	          FROM borrowings br
	          JOIN books b ON br.book_id = b.id`
	args := []any{}
	if userID != nil {
		query += ` WHERE br.user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY br.borrowed_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("貸出履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []BorrowingWithISBN
	for rows.Next() {
		var item BorrowingWithISBN
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.BookID, &item.BorrowedAt, &item.ReturnedAt, &item.ISBN,
		); err != nil {
			return nil, fmt.Errorf("貸出履歴行の読み取りに失敗しました: %w", err)
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("貸出履歴の走査に失敗しました: %w", err)
	}
	return results, nil
}

// compile-time interface check
var _ BorrowingRepository = (*PostgresBorrowingRepo)(nil)
