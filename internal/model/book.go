// Package model はドメインモデルを定義する。
package model

import "time"

// Book は蔵書1冊を表す。ISBNで一意に識別される。
// IDは内部参照用のサロゲートキーで、外部にはISBNのみを公開する。
type Book struct {
	ID              int64
	ISBN            string
	Title           string
	Author          string
	Edition         string
	Publisher       string
	Genre           string
	PageCount       int
	Language        string
	PublicationYear int
	Status          BookStatus
	AddedAt         time.Time
	UpdatedAt       *time.Time
}

// BookStatus は蔵書の貸出状態を表す。
// 未返却の貸出レコードが存在する場合に限りborrowedとなる。
type BookStatus string

const (
	// BookStatusAvailable は貸出可能な状態。
	BookStatusAvailable BookStatus = "available"
	// BookStatusBorrowed は貸出中の状態。
	BookStatusBorrowed BookStatus = "borrowed"
)
