package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxUsernameLength はサニタイズ後のユーザー名の最大長。
const maxUsernameLength = 20

// SanitizeUsername はユーザー名を正規化する。
// 前後の空白を除去し、小文字化した上で英小文字・数字・アンダースコア以外を
// 取り除き、20文字に切り詰める。
func SanitizeUsername(username string) string {
	s := strings.ToLower(strings.TrimSpace(username))

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}

	result := b.String()
	if len(result) > maxUsernameLength {
		result = result[:maxUsernameLength]
	}
	return result
}

// FieldSanitizerService は自由記述フィールドのサニタイズ機能のインターフェースを定義する。
// 蔵書メタデータ（タイトル、著者名等）の保存前に使用される。
type FieldSanitizerService interface {
	// Sanitize は入力からHTMLタグをすべて除去し、前後の空白を取り除いて返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// fieldSanitizer はFieldSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type fieldSanitizer struct {
	policy *bluemonday.Policy
}

// NewFieldSanitizer はFieldSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのHTML要素と属性を除去する。
// 蔵書メタデータはプレーンテキストのみを想定しており、許可するタグはない。
func NewFieldSanitizer() *fieldSanitizer {
	return &fieldSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグをすべて除去し、前後の空白を取り除いて返す。
func (s *fieldSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
