// Package borrow は貸出・返却のドメインロジックを提供する。
//
// 貸出と返却はいずれも1つのシリアライザブルトランザクション内で
// 前提条件の検証と書き込みを行う。蔵書行の行ロックとDB側の部分一意
// インデックスを併用し、同時実行下でも「同一蔵書の未返却貸出は常に
// 高々1件」を保証する。ビジネスルール違反は*model.APIErrorとして
// 呼び出し側に返し、サービス層では自動リトライしない。
package borrow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/libman/internal/model"
	"github.com/hitoshi/libman/internal/repository"
)

// defaultBorrowLimit はユーザーあたりの同時貸出上限のデフォルト値。
const defaultBorrowLimit = 2

// MetricsRecorder は貸出・返却のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordBorrowSuccess()
	RecordBorrowFailure(code string)
	RecordReturnSuccess()
	RecordBorrowTxLatency(duration time.Duration)
}

// Result は貸出成功時の結果を表す。
type Result struct {
	BorrowingID string
	ISBN        string
	BorrowedAt  time.Time
}

// BorrowedBookInfo は貸出履歴1件の公開情報を表す。
// 蔵書は内部IDではなくISBNで識別される。
type BorrowedBookInfo struct {
	ISBN       string
	BorrowedAt time.Time
	ReturnedAt *time.Time
}

// ServiceConfig は貸出サービスの設定。
type ServiceConfig struct {
	BorrowLimit int // ユーザーあたりの同時貸出上限
}

// Service は貸出・返却のサービス層。
// 蔵書の貸出可否判定、貸出上限の強制、貸出・返却の原子的な反映を提供する。
type Service struct {
	store         repository.BorrowStore
	borrowingRepo repository.BorrowingRepository
	metrics       MetricsRecorder
	config        ServiceConfig
	now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい（記録をスキップする）。
func NewService(
	store repository.BorrowStore,
	borrowingRepo repository.BorrowingRepository,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	if config.BorrowLimit <= 0 {
		config.BorrowLimit = defaultBorrowLimit
	}
	return &Service{
		store:         store,
		borrowingRepo: borrowingRepo,
		metrics:       metrics,
		config:        config,
		now:           time.Now,
	}
}

// Borrow は蔵書を貸し出す。
//
// 前提条件は以下の順で、1つのトランザクション内で検証する:
//  1. ISBNに対応する蔵書が存在する
//  2. ユーザーの未返却貸出数が上限未満である
//  3. 蔵書がavailable状態である
//  4. 蔵書に未返却の貸出が存在しない（状態フラグだけでは防げない競合の再確認）
//
// すべて満たされた場合のみ、貸出レコードの挿入と蔵書状態の更新を
// 同一トランザクションでコミットする。トランザクションのコミット時に
// 一意制約違反または直列化失敗が検出された場合、並行する貸出が先に
// コミットしたことを意味するため、二重貸出エラーとして返す。
func (s *Service) Borrow(ctx context.Context, isbn string, userID int64) (*Result, error) {
	start := s.now()
	result, err := s.borrow(ctx, isbn, userID)
	if s.metrics != nil {
		s.metrics.RecordBorrowTxLatency(s.now().Sub(start))
		if err == nil {
			s.metrics.RecordBorrowSuccess()
		} else if apiErr, ok := err.(*model.APIError); ok {
			s.metrics.RecordBorrowFailure(apiErr.Code)
		}
	}
	return result, err
}

func (s *Service) borrow(ctx context.Context, isbn string, userID int64) (*Result, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("貸出トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 1. 蔵書の存在確認（行ロック取得）
	book, err := tx.FindBookByISBNForUpdate(ctx, isbn)
	if err != nil {
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(isbn)
	}

	// 2. 貸出上限の確認
	openCount, err := tx.CountOpenByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("未返却貸出数の取得に失敗しました: %w", err)
	}
	if openCount >= s.config.BorrowLimit {
		return nil, model.NewBorrowLimitReachedError(s.config.BorrowLimit)
	}

	// 3. 貸出可否の確認
	if book.Status != model.BookStatusAvailable {
		return nil, model.NewBookNotAvailableError(isbn)
	}

	// 4. 未返却貸出の再確認
	open, err := tx.OpenBorrowingExists(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("未返却貸出の確認に失敗しました: %w", err)
	}
	if open {
		return nil, model.NewAlreadyBorrowedError(isbn)
	}

	borrowing := &model.Borrowing{
		ID:         uuid.New().String(),
		UserID:     userID,
		BookID:     book.ID,
		BorrowedAt: s.now(),
	}

	if err := tx.InsertBorrowing(ctx, borrowing); err != nil {
		// 部分一意インデックスが最後の防衛線として並行貸出を拒否する
		if repository.IsUniqueViolation(err) {
			return nil, model.NewAlreadyBorrowedError(isbn)
		}
		return nil, fmt.Errorf("貸出レコードの挿入に失敗しました: %w", err)
	}

	if err := tx.UpdateBookStatus(ctx, book.ID, model.BookStatusBorrowed); err != nil {
		return nil, fmt.Errorf("蔵書状態の更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if repository.IsUniqueViolation(err) || repository.IsSerializationFailure(err) {
			return nil, model.NewAlreadyBorrowedError(isbn)
		}
		return nil, fmt.Errorf("貸出トランザクションのコミットに失敗しました: %w", err)
	}

	return &Result{
		BorrowingID: borrowing.ID,
		ISBN:        isbn,
		BorrowedAt:  borrowing.BorrowedAt,
	}, nil
}

// Return は貸出中の蔵書を返却する。
//
// 1つのトランザクション内で、蔵書の存在とこのユーザーの未返却貸出の
// 存在を確認し、返却日時の設定と蔵書状態の更新を原子的にコミットする。
// 対象が見つからない場合は常にエラーを返す（握り潰さない）。
func (s *Service) Return(ctx context.Context, isbn string, userID int64) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("返却トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	book, err := tx.FindBookByISBNForUpdate(ctx, isbn)
	if err != nil {
		return fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}
	if book == nil {
		return model.NewBookNotFoundError(isbn)
	}

	borrowing, err := tx.FindOpenByUserAndBook(ctx, userID, book.ID)
	if err != nil {
		return fmt.Errorf("未返却貸出の検索に失敗しました: %w", err)
	}
	if borrowing == nil {
		return model.NewBorrowingNotFoundError(isbn)
	}

	if err := tx.SetReturned(ctx, borrowing.ID, s.now()); err != nil {
		return fmt.Errorf("返却日時の設定に失敗しました: %w", err)
	}

	if err := tx.UpdateBookStatus(ctx, book.ID, model.BookStatusAvailable); err != nil {
		return fmt.Errorf("蔵書状態の更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("返却トランザクションのコミットに失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordReturnSuccess()
	}

	return nil
}

// ListBorrowings は貸出履歴（返却済み含む）をborrowed_at降順で返す。
// userIDがnilの場合は全ユーザーの履歴を返す（管理用途）。
func (s *Service) ListBorrowings(ctx context.Context, userID *int64) ([]BorrowedBookInfo, error) {
	rows, err := s.borrowingRepo.ListWithISBN(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("貸出履歴の取得に失敗しました: %w", err)
	}

	results := make([]BorrowedBookInfo, len(rows))
	for i, row := range rows {
		results[i] = BorrowedBookInfo{
			ISBN:       row.ISBN,
			BorrowedAt: row.BorrowedAt,
			ReturnedAt: row.ReturnedAt,
		}
	}
	return results, nil
}
