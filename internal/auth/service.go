// Package auth はユーザー登録・ログイン・セッショントークンの発行を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/libman/internal/model"
	"github.com/hitoshi/libman/internal/repository"
	"github.com/hitoshi/libman/internal/security"
)

// bcryptCost はパスワードハッシュのコストパラメータ。
const bcryptCost = 10

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EmailCipher はメールアドレスの暗号化インターフェース。
// 保存・検索の両方で同一平文が同一暗号文になる決定的暗号化を前提とする。
type EmailCipher interface {
	Encrypt(email string) (string, error)
	Decrypt(encrypted string) (string, error)
}

// Service はユーザー登録とログインのビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	cipher   EmailCipher
	tokens   *TokenManager
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, cipher EmailCipher, tokens *TokenManager) *Service {
	return &Service{
		userRepo: userRepo,
		cipher:   cipher,
		tokens:   tokens,
	}
}

// Register は新規ユーザーを登録する。
//
// ユーザー名はサニタイズ後に検証され、メールアドレスは暗号化して保存する。
// ユーザー名またはメールアドレスが既に使用されている場合はエラーを返す。
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = security.SanitizeUsername(username)

	if username == "" {
		return nil, model.NewValidationFailedError("ユーザー名は英小文字・数字・アンダースコアで指定してください")
	}
	if !emailPattern.MatchString(email) {
		return nil, model.NewValidationFailedError("メールアドレスの形式が正しくありません")
	}
	if reason := validatePassword(password); reason != "" {
		return nil, model.NewValidationFailedError(reason)
	}

	encryptedEmail, err := s.cipher.Encrypt(email)
	if err != nil {
		return nil, fmt.Errorf("メールアドレスの暗号化に失敗しました: %w", err)
	}

	// ユーザー名・メールアドレスの重複確認
	existing, err := s.userRepo.FindByUsernameOrEmail(ctx, username, encryptedEmail)
	if err != nil {
		return nil, fmt.Errorf("既存ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		if existing.Username == username {
			return nil, model.NewUserAlreadyExistsError()
		}
		return nil, model.NewEmailAlreadyExistsError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	user := &model.User{
		Username:       username,
		EncryptedEmail: encryptedEmail,
		PasswordHash:   string(hash),
		CreatedAt:      time.Now(),
	}

	id, err := s.userRepo.Create(ctx, user)
	if err != nil {
		// 並行する登録との競合はDBの一意制約が拒否する
		if repository.IsUniqueViolation(err) {
			return nil, model.NewUserAlreadyExistsError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	user.ID = id

	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login はユーザー名とパスワードを検証し、セッショントークンを発行する。
// ユーザー不存在とパスワード不一致はいずれも同一の認証失敗エラーとして返す。
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	username = security.SanitizeUsername(username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("セッショントークンの発行に失敗しました: %w", err)
	}

	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, token, nil
}

// validatePassword はパスワードの強度を検証し、不正な場合は理由を返す。
// 大文字・小文字・数字・記号をそれぞれ1文字以上含む8文字以上を要求する。
func validatePassword(password string) string {
	if len(password) < minPasswordLength {
		return fmt.Sprintf("パスワードは%d文字以上で指定してください", minPasswordLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return "パスワードには大文字を1文字以上含めてください"
	case !hasLower:
		return "パスワードには小文字を1文字以上含めてください"
	case !hasDigit:
		return "パスワードには数字を1文字以上含めてください"
	case !hasSpecial:
		return "パスワードには記号を1文字以上含めてください"
	}
	return ""
}
