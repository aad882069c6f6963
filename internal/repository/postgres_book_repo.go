package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/libman/internal/model"
)

// PostgresBookRepo はPostgreSQLを使用した蔵書リポジトリ。
type PostgresBookRepo struct {
	db *sql.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sql.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

// FindByISBN は指定ISBNの蔵書を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	book := &model.Book{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, isbn, title, author, edition, publisher, genre, page_count, language,
		        publication_year, status, added_at, updated_at
		 FROM books WHERE isbn = $1`,
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
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}

	return book, nil
}

// ListISBNsIn は指定されたISBN群のうち、既に登録済みのISBNを返す。
func (r *PostgresBookRepo) ListISBNsIn(ctx context.Context, isbns []string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT isbn FROM books WHERE isbn = ANY($1)`,
		pq.Array(isbns),
	)
	if err != nil {
		return nil, fmt.Errorf("登録済みISBNの検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var isbn string
		if err := rows.Scan(&isbn); err != nil {
			return nil, fmt.Errorf("ISBN行の読み取りに失敗しました: %w", err)
		}
		existing = append(existing, isbn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("登録済みISBNの走査に失敗しました: %w", err)
	}
	return existing, nil
}

// CreateBatch は複数の蔵書を同一トランザクションで一括作成する。
// いずれか1件でも失敗した場合は全体がロールバックされる。
func (r *PostgresBookRepo) CreateBatch(ctx context.Context, books []*model.Book) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, book := range books {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO books (isbn, title, author, edition, publisher, genre,
			                    page_count, language, publication_year, status, added_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			book.ISBN, book.Title, book.Author, book.Edition, book.Publisher, book.Genre,
			book.PageCount, book.Language, book.PublicationYear, book.Status, book.AddedAt,
		)
		if err != nil {
			return fmt.Errorf("蔵書の挿入に失敗しました (%s): %w", book.ISBN, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// List は蔵書一覧をISBN降順で取得する。
func (r *PostgresBookRepo) List(ctx context.Context, offset, limit int) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, isbn, title, author, edition, publisher, genre, page_count, language,
		        publication_year, status, added_at, updated_at
		 FROM books ORDER BY isbn DESC
		 OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("蔵書一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book := &model.Book{}
		if err := rows.Scan(
			&book.ID, &book.ISBN, &book.Title, &book.Author, &book.Edition, &book.Publisher,
			&book.Genre, &book.PageCount, &book.Language, &book.PublicationYear,
			&book.Status, &book.AddedAt, &book.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("蔵書行の読み取りに失敗しました: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("蔵書一覧の走査に失敗しました: %w", err)
	}
	return books, nil
}

// Count は蔵書の総数を返す。
func (r *PostgresBookRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("蔵書数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Update は蔵書のメタデータを更新し、updated_atを設定する。
// 貸出状態（status）はこのメソッドでは変更しない。
func (r *PostgresBookRepo) Update(ctx context.Context, book *model.Book) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE books
		 SET title = $2, author = $3, edition = $4, publisher = $5, genre = $6,
		     page_count = $7, language = $8, publication_year = $9, updated_at = $10
		 WHERE isbn = $1`,
		book.ISBN, book.Title, book.Author, book.Edition, book.Publisher, book.Genre,
		book.PageCount, book.Language, book.PublicationYear, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("蔵書の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("蔵書が見つかりません: %s", book.ISBN)
	}
	return nil
}

// DeleteByISBN は指定ISBNの蔵書を削除する。
func (r *PostgresBookRepo) DeleteByISBN(ctx context.Context, isbn string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM books WHERE isbn = $1`,
		isbn,
	)
	if err != nil {
		return fmt.Errorf("蔵書の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("蔵書が見つかりません: %s", isbn)
	}
	return nil
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)
