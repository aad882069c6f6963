package model

import "time"

// Borrowing は貸出レコードを表す。
// ReturnedAtがnilの間は未返却（貸出中）を意味する。
// レコードは返却時にReturnedAtが1度だけ設定され、削除されることはない。
type Borrowing struct {
	ID         string
	UserID     int64
	BookID     int64
	BorrowedAt time.Time
	ReturnedAt *time.Time
}

// Open は貸出が未返却かどうかを返す。
func (b *Borrowing) Open() bool {
	return b.ReturnedAt == nil
}
