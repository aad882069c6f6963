package model

import "time"

// User はサービス利用ユーザーを表す。
// Emailは保存時にAES-256-CBCで暗号化されており、平文では保持しない。
type User struct {
	ID             int64
	Username       string
	EncryptedEmail string
	PasswordHash   string
	CreatedAt      time.Time
}
