// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, borrow, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBookNotFound       = "BOOK_NOT_FOUND"
	ErrCodeBorrowLimitReached = "BORROW_LIMIT_REACHED"
	ErrCodeBookNotAvailable   = "BOOK_NOT_AVAILABLE"
	ErrCodeAlreadyBorrowed    = "BOOK_ALREADY_BORROWED"
	ErrCodeBorrowingNotFound  = "BORROWING_NOT_FOUND"
	ErrCodeDuplicateISBN      = "DUPLICATE_ISBN"
	ErrCodeNoBooksProvided    = "NO_BOOKS_PROVIDED"
	ErrCodeISBNRequired       = "ISBN_REQUIRED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserAlreadyExists  = "USER_ALREADY_EXISTS"
	ErrCodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
)

// NewBookNotFoundError は蔵書未検出エラーを生成する。
func NewBookNotFoundError(isbn string) *APIError {
	return &APIError{
		Code:     ErrCodeBookNotFound,
		Message:  fmt.Sprintf("指定された蔵書が見つかりません: %s", isbn),
		Category: "catalog",
		Action:   "ISBNを確認してください。",
	}
}

// NewBorrowLimitReachedError は貸出上限エラーを生成する。
func NewBorrowLimitReachedError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeBorrowLimitReached,
		Message:  fmt.Sprintf("貸出数が上限（%d冊）に達しています。", limit),
		Category: "borrow",
		Action:   "借りている本を返却してから、新しい本を借りてください。",
	}
}

// NewBookNotAvailableError は貸出不可エラーを生成する。
func NewBookNotAvailableError(isbn string) *APIError {
	return &APIError{
		Code:     ErrCodeBookNotAvailable,
		Message:  fmt.Sprintf("この蔵書は現在貸出できません: %s", isbn),
		Category: "borrow",
		Action:   "返却されるまでお待ちください。",
	}
}

// NewAlreadyBorrowedError は二重貸出エラーを生成する。
func NewAlreadyBorrowedError(isbn string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyBorrowed,
		Message:  fmt.Sprintf("この蔵書は既に他のユーザーに貸出されています: %s", isbn),
		Category: "borrow",
		Action:   "返却されるまでお待ちください。",
	}
}

// NewBorrowingNotFoundError は貸出レコード未検出エラーを生成する。
func NewBorrowingNotFoundError(isbn string) *APIError {
	return &APIError{
		Code:     ErrCodeBorrowingNotFound,
		Message:  fmt.Sprintf("このユーザーの未返却の貸出が見つかりません: %s", isbn),
		Category: "borrow",
		Action:   "借りている本のISBNを確認してください。",
	}
}

// NewDuplicateISBNError はISBN重複エラーを生成する。
func NewDuplicateISBNError(isbns string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateISBN,
		Message:  fmt.Sprintf("重複するISBNが含まれています: %s", isbns),
		Category: "catalog",
		Action:   "登録済みまたはリクエスト内で重複するISBNを取り除いてください。",
	}
}

// NewNoBooksProvidedError は登録対象なしエラーを生成する。
func NewNoBooksProvidedError() *APIError {
	return &APIError{
		Code:     ErrCodeNoBooksProvided,
		Message:  "登録する蔵書が指定されていません。",
		Category: "validation",
		Action:   "booksフィールドに1冊以上の蔵書を指定してください。",
	}
}

// NewISBNRequiredError はISBN未指定エラーを生成する。
func NewISBNRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeISBNRequired,
		Message:  "ISBNが指定されていません。",
		Category: "validation",
		Action:   "isbnフィールドを指定してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー不存在とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserAlreadyExistsError はユーザー名重複エラーを生成する。
func NewUserAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  "このユーザー名は既に使用されています。",
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewEmailAlreadyExistsError はメールアドレス重複エラーを生成する。
func NewEmailAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyExists,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを指定するか、ログインしてください。",
	}
}

// NewValidationFailedError は入力値検証エラーを生成する。
func NewValidationFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}
