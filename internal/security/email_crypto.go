// Package security はメールアドレスの保存時暗号化と入力サニタイズを提供する。
package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
)

// emailIV はAES-CBCの初期化ベクトル。
// 同一メールアドレスが常に同一暗号文になる決定的暗号化とすることで、
// DBの一意制約と等価検索（重複登録チェック）がそのまま機能する。
var emailIV = []byte("1234567890123456")

// EmailCipher はメールアドレスのAES-256-CBC暗号化・復号を提供する。
type EmailCipher struct {
	key []byte
}

// NewEmailCipher は秘密鍵からEmailCipherを生成する。
// 鍵は32バイトに満たない場合は'0'でパディングし、超える場合は切り詰める。
func NewEmailCipher(secretKey string) *EmailCipher {
	key := []byte(secretKey)
	for len(key) < 32 {
		key = append(key, '0')
	}
	return &EmailCipher{key: key[:32]}
}

// Encrypt はメールアドレスを暗号化し、hex文字列で返す。
func (c *EmailCipher) Encrypt(email string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := pkcs7Pad([]byte(email), aes.BlockSize)
	ciphertext := make([]byte, len(plaintext))

	mode := cipher.NewCBCEncrypter(block, emailIV)
	mode.CryptBlocks(ciphertext, plaintext)

	return hex.EncodeToString(ciphertext), nil
}

// Decrypt はhex文字列の暗号文からメールアドレスを復号する。
func (c *EmailCipher) Decrypt(encrypted string) (string, error) {
	ciphertext, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("invalid ciphertext length: %d", len(ciphertext))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, emailIV)
	mode.CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("failed to unpad plaintext: %w", err)
	}

	return string(unpadded), nil
}

// pkcs7Pad はPKCS#7パディングを付与する。
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

// pkcs7Unpad はPKCS#7パディングを除去する。
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length: %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("invalid padding length: %d", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("invalid padding byte")
		}
	}
	return data[:len(data)-padLen], nil
}
